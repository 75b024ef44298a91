package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"

	"github.com/goliatone/go-insights/components/insights"
)

// AnalyzeInput requests an analysis of Handle for a session. Wait blocks
// until the client resolves; otherwise the session enters Loading and the
// request completes in the background.
type AnalyzeInput struct {
	SessionID string `json:"session"`
	Handle    string `json:"username"`
	Wait      bool   `json:"-"`
}

type analyzer interface {
	Analyze(ctx context.Context, sessionID, handle string) (insights.Snapshot, error)
	Start(ctx context.Context, sessionID, handle string) (<-chan insights.Snapshot, error)
}

// AnalyzeCommand starts an analysis through the insights service.
type AnalyzeCommand struct {
	service   analyzer
	telemetry Telemetry
}

// NewAnalyzeCommand creates the command.
func NewAnalyzeCommand(service analyzer, telemetry Telemetry) *AnalyzeCommand {
	return &AnalyzeCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[AnalyzeInput] = (*AnalyzeCommand)(nil)

// Execute validates the handle and runs or schedules the analysis.
func (c *AnalyzeCommand) Execute(ctx context.Context, msg AnalyzeInput) error {
	if c.service == nil {
		return errors.New("analyze command requires service")
	}
	mode := "async"
	var err error
	if msg.Wait {
		mode = "sync"
		_, err = c.service.Analyze(ctx, msg.SessionID, msg.Handle)
	} else {
		_, err = c.service.Start(ctx, msg.SessionID, msg.Handle)
	}
	if insights.IsValidation(err) {
		return err
	}
	c.telemetry.Record(ctx, "insights.command.analyze", map[string]any{
		"session_id": msg.SessionID,
		"mode":       mode,
	})
	return err
}
