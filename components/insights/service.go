package insights

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-insights/pkg/logging"
)

// Options configures the insights Service. Every collaborator is provided via
// interface so applications can swap implementations.
type Options struct {
	Client      Client
	Sessions    SessionStore
	RefreshHook RefreshHook
	Telemetry   Telemetry
	Logger      *zerolog.Logger
}

// Service is the root controller: it drives session transitions in response
// to user actions and analytics client outcomes.
type Service struct {
	opts Options
	log  zerolog.Logger
}

// NewService builds a Service instance with safe defaults.
func NewService(opts Options) *Service {
	if opts.Sessions == nil {
		opts.Sessions = NewInMemorySessionStore(0)
	}
	if opts.RefreshHook == nil {
		opts.RefreshHook = noopRefreshHook{}
	}
	opts.Telemetry = normalizeTelemetry(opts.Telemetry)
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Service{
		opts: opts,
		log:  logger.With().Str("component", "insights").Logger(),
	}
}

// NormalizeHandle trims surrounding whitespace and rejects empty handles.
func NormalizeHandle(handle string) (string, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return "", &ValidationError{Field: "handle", Reason: "must not be empty"}
	}
	return handle, nil
}

// Analyze runs one analysis synchronously and returns the resulting snapshot.
// The client error, if any, is returned alongside the Failed snapshot.
func (s *Service) Analyze(ctx context.Context, sessionID, handle string) (Snapshot, error) {
	ctx, sess, handle, gen, err := s.prepare(ctx, sessionID, handle)
	if err != nil {
		return Snapshot{}, err
	}
	fetchErr := s.fetch(ctx, sess, handle, gen)
	return sess.Snapshot(), fetchErr
}

// Start enters Loading immediately and resolves the request in the
// background. The returned channel yields the session snapshot once the
// request has resolved and is then closed.
func (s *Service) Start(ctx context.Context, sessionID, handle string) (<-chan Snapshot, error) {
	ctx, sess, handle, gen, err := s.prepare(ctx, sessionID, handle)
	if err != nil {
		return nil, err
	}
	done := make(chan Snapshot, 1)
	bg := context.WithoutCancel(ctx)
	go func() {
		defer close(done)
		_ = s.fetch(bg, sess, handle, gen)
		done <- sess.Snapshot()
	}()
	return done, nil
}

// Reset returns the session to Idle, clearing result and error.
func (s *Service) Reset(ctx context.Context, sessionID string) (Snapshot, error) {
	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	sess.Reset()
	snap := sess.Snapshot()
	s.publish(ctx, snap, "reset")
	s.recordTelemetry(ctx, "insights.session.reset", map[string]any{"session_id": sessionID})
	return snap, nil
}

// DismissError hides the current notification.
func (s *Service) DismissError(ctx context.Context, sessionID string) (Snapshot, error) {
	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	sess.DismissError()
	snap := sess.Snapshot()
	s.publish(ctx, snap, "dismiss")
	s.recordTelemetry(ctx, "insights.session.dismiss", map[string]any{"session_id": sessionID})
	return snap, nil
}

// Snapshot returns the current state of a session, creating it when missing.
func (s *Service) Snapshot(ctx context.Context, sessionID string) (Snapshot, error) {
	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	return sess.Snapshot(), nil
}

// prepare enters Loading and returns a context carrying the session logger,
// which the client and fetch log through.
func (s *Service) prepare(ctx context.Context, sessionID, handle string) (context.Context, *Session, string, uint64, error) {
	if s.opts.Client == nil {
		return ctx, nil, "", 0, errMissingClient
	}
	handle, err := NormalizeHandle(handle)
	if err != nil {
		return ctx, nil, "", 0, err
	}
	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return ctx, nil, "", 0, err
	}
	gen := sess.begin(handle)
	ctx = logging.WithSession(ctx, s.log, sessionID)
	logging.Ctx(ctx).Info().Str("handle", handle).Uint64("generation", gen).Msg("analysis started")
	s.publish(ctx, sess.Snapshot(), "analyze")
	s.recordTelemetry(ctx, "insights.analyze.start", map[string]any{
		"session_id": sessionID,
		"handle":     handle,
	})
	return ctx, sess, handle, gen, nil
}

func (s *Service) fetch(ctx context.Context, sess *Session, handle string, gen uint64) error {
	started := time.Now()
	result, err := s.opts.Client.FetchAnalytics(ctx, handle)
	elapsed := time.Since(started)

	applied := sess.complete(gen, result, err)
	logger := logging.Ctx(ctx).With().Str("handle", handle).Uint64("generation", gen).Dur("elapsed", elapsed).Logger()
	switch {
	case !applied:
		logger.Debug().Msg("stale analysis dropped")
		s.recordTelemetry(ctx, "insights.analyze.stale", map[string]any{"session_id": sess.ID()})
		return err
	case err != nil:
		logger.Error().Err(err).Msg("analysis failed")
		s.recordTelemetry(ctx, "insights.analyze.failure", map[string]any{
			"session_id":       sess.ID(),
			"error":            err.Error(),
			"duration_seconds": elapsed.Seconds(),
		})
	default:
		logger.Info().Int("posts", len(result.Posts)).Msg("analysis finished")
		s.recordTelemetry(ctx, "insights.analyze.success", map[string]any{
			"session_id":       sess.ID(),
			"duration_seconds": elapsed.Seconds(),
		})
	}
	s.publish(ctx, sess.Snapshot(), "complete")
	return err
}

func (s *Service) session(ctx context.Context, sessionID string) (*Session, error) {
	if sessionID == "" {
		return nil, errMissingSession
	}
	return s.opts.Sessions.GetOrCreate(ctx, sessionID)
}

func (s *Service) publish(ctx context.Context, snap Snapshot, reason string) {
	event := StateEvent{
		SessionID:  snap.SessionID,
		State:      snap.State,
		Generation: snap.Generation,
		Reason:     reason,
	}
	if err := s.opts.RefreshHook.SessionUpdated(ctx, event); err != nil {
		s.log.Warn().Err(err).Str("session", snap.SessionID).Msg("refresh hook failed")
	}
}

func (s *Service) recordTelemetry(ctx context.Context, event string, payload map[string]any) {
	s.opts.Telemetry.Record(ctx, event, payload)
}

type noopRefreshHook struct{}

func (noopRefreshHook) SessionUpdated(context.Context, StateEvent) error {
	return nil
}
