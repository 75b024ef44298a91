package insights

import (
	"sync"
	"time"
)

// State is the externally visible phase of a session.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateFailed  State = "failed"
)

// Session owns the single piece of application state for one browser: the
// current result, the in-flight flag, and the last error message. All
// transitions happen under mu; views only ever see Snapshot copies.
type Session struct {
	id string

	mu         sync.Mutex
	generation uint64
	handle     string
	loading    bool
	result     *AnalysisResult
	errMsg     string
	updatedAt  time.Time
	now        func() time.Time
}

// NewSession creates an idle session.
func NewSession(id string) *Session {
	return &Session{id: id, now: time.Now, updatedAt: time.Now()}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Snapshot is a read-only copy of a session.
type Snapshot struct {
	SessionID  string          `json:"session_id"`
	State      State           `json:"state"`
	Handle     string          `json:"handle,omitempty"`
	Loading    bool            `json:"loading"`
	Result     *AnalysisResult `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
	Generation uint64          `json:"generation"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// HasResult reports whether a dashboard can be rendered.
func (s Snapshot) HasResult() bool {
	return s.Result != nil
}

// begin enters Loading: the previous result and error are cleared and a new
// generation is issued for the request about to be made.
func (s *Session) begin(handle string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.handle = handle
	s.loading = true
	s.result = nil
	s.errMsg = ""
	s.touch()
	return s.generation
}

// complete applies the outcome of the request issued with generation gen.
// Outcomes from superseded requests are dropped and false is returned.
func (s *Session) complete(gen uint64, result AnalysisResult, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return false
	}
	s.loading = false
	if err != nil {
		s.result = nil
		s.errMsg = ErrorMessage(err)
	} else {
		cloned := result.Clone()
		s.result = &cloned
		s.errMsg = ""
	}
	s.touch()
	return true
}

// Reset returns the session to Idle. Any in-flight request is orphaned.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.handle = ""
	s.loading = false
	s.result = nil
	s.errMsg = ""
	s.touch()
}

// DismissError hides the notification without touching the result.
func (s *Session) DismissError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errMsg = ""
	s.touch()
}

// Snapshot copies the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		SessionID:  s.id,
		State:      s.stateLocked(),
		Handle:     s.handle,
		Loading:    s.loading,
		Error:      s.errMsg,
		Generation: s.generation,
		UpdatedAt:  s.updatedAt,
	}
	if s.result != nil {
		cloned := s.result.Clone()
		snap.Result = &cloned
	}
	return snap
}

// State returns the current phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) lastTouched() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

// A present result is authoritative over loading and error.
func (s *Session) stateLocked() State {
	switch {
	case s.result != nil:
		return StateReady
	case s.loading:
		return StateLoading
	case s.errMsg != "":
		return StateFailed
	default:
		return StateIdle
	}
}

func (s *Session) touch() {
	now := time.Now
	if s.now != nil {
		now = s.now
	}
	s.updatedAt = now()
}
