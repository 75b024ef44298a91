package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"

	"github.com/goliatone/go-insights/components/insights"
)

type sessionResetter interface {
	Reset(ctx context.Context, sessionID string) (insights.Snapshot, error)
	DismissError(ctx context.Context, sessionID string) (insights.Snapshot, error)
}

// ResetInput returns a session to the landing view.
type ResetInput struct {
	SessionID string `json:"session"`
}

// ResetCommand clears the session result and error.
type ResetCommand struct {
	service   sessionResetter
	telemetry Telemetry
}

// NewResetCommand creates the command.
func NewResetCommand(service sessionResetter, telemetry Telemetry) *ResetCommand {
	return &ResetCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[ResetInput] = (*ResetCommand)(nil)

// Execute resets the session.
func (c *ResetCommand) Execute(ctx context.Context, msg ResetInput) error {
	if c.service == nil {
		return errors.New("reset command requires service")
	}
	if _, err := c.service.Reset(ctx, msg.SessionID); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "insights.command.reset", map[string]any{"session_id": msg.SessionID})
	return nil
}

// DismissErrorInput hides the notification of a session.
type DismissErrorInput struct {
	SessionID string `json:"session"`
}

// DismissErrorCommand clears the session error without touching its state.
type DismissErrorCommand struct {
	service   sessionResetter
	telemetry Telemetry
}

// NewDismissErrorCommand creates the command.
func NewDismissErrorCommand(service sessionResetter, telemetry Telemetry) *DismissErrorCommand {
	return &DismissErrorCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[DismissErrorInput] = (*DismissErrorCommand)(nil)

// Execute dismisses the notification.
func (c *DismissErrorCommand) Execute(ctx context.Context, msg DismissErrorInput) error {
	if c.service == nil {
		return errors.New("dismiss command requires service")
	}
	if _, err := c.service.DismissError(ctx, msg.SessionID); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "insights.command.dismiss", map[string]any{"session_id": msg.SessionID})
	return nil
}
