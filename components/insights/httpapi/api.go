package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"
	gocommand "github.com/goliatone/go-command"

	"github.com/goliatone/go-insights/components/insights"
	"github.com/goliatone/go-insights/components/insights/commands"
)

// Handlers exposes JSON endpoints backed by shared commands and queries.
type Handlers struct {
	Analyze  gocommand.Commander[commands.AnalyzeInput]
	Reset    gocommand.Commander[commands.ResetInput]
	Dismiss  gocommand.Commander[commands.DismissErrorInput]
	Snapshot gocommand.Querier[insights.ViewerContext, insights.Snapshot]
}

// ErrorResponse is the JSON body of a failed request.
type ErrorResponse struct {
	Error    string             `json:"error"`
	Snapshot *insights.Snapshot `json:"snapshot,omitempty"`
}

// HandleAnalyze runs a synchronous analysis and responds with the result.
func (h *Handlers) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	var payload commands.AnalyzeInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	if payload.SessionID == "" {
		payload.SessionID = r.URL.Query().Get("session")
	}
	status, body := h.Analyzed(r.Context(), payload)
	writeJSON(w, status, body)
}

// Analyzed executes the analyze command and maps the outcome to a status
// code and JSON body. Transports other than net/http reuse it.
func (h *Handlers) Analyzed(ctx context.Context, input commands.AnalyzeInput) (int, any) {
	input.Wait = true
	if strings.TrimSpace(input.SessionID) == "" {
		return http.StatusBadRequest, ErrorResponse{Error: "session is required"}
	}
	execErr := h.Analyze.Execute(ctx, input)
	if insights.IsValidation(execErr) {
		return http.StatusBadRequest, ErrorResponse{Error: execErr.Error()}
	}
	snap, err := h.Snapshot.Query(ctx, insights.ViewerContext{SessionID: input.SessionID})
	if err != nil {
		return http.StatusInternalServerError, ErrorResponse{Error: err.Error()}
	}
	if execErr != nil {
		return StatusFor(execErr), ErrorResponse{Error: insights.ErrorMessage(execErr), Snapshot: &snap}
	}
	if snap.Result == nil {
		return http.StatusInternalServerError, ErrorResponse{Error: "analysis superseded", Snapshot: &snap}
	}
	return http.StatusOK, snap.Result
}

// HandleSnapshot responds with the session snapshot for ?session=.
func (h *Handlers) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "session is required"})
		return
	}
	snap, err := h.Snapshot.Query(r.Context(), insights.ViewerContext{SessionID: sessionID})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// HandleReset resets the session named by ?session=.
func (h *Handlers) HandleReset(w http.ResponseWriter, r *http.Request) {
	if err := h.Reset.Execute(r.Context(), commands.ResetInput{SessionID: r.URL.Query().Get("session")}); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDismiss dismisses the notification of the session named by ?session=.
func (h *Handlers) HandleDismiss(w http.ResponseWriter, r *http.Request) {
	if err := h.Dismiss.Execute(r.Context(), commands.DismissErrorInput{SessionID: r.URL.Query().Get("session")}); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// StatusFor maps a client failure onto an HTTP status.
func StatusFor(err error) int {
	var validation *insights.ValidationError
	var remote *insights.RemoteServiceError
	var transport *insights.TransportError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &remote):
		return http.StatusBadGateway
	case errors.As(err, &transport):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
