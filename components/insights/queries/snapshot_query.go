package queries

import (
	"context"

	gocommand "github.com/goliatone/go-command"

	"github.com/goliatone/go-insights/components/insights"
)

type snapshotService interface {
	Snapshot(ctx context.Context, sessionID string) (insights.Snapshot, error)
}

// SnapshotQuery reads the current state of a viewer's session.
type SnapshotQuery struct {
	service snapshotService
}

// NewSnapshotQuery builds the query.
func NewSnapshotQuery(service snapshotService) *SnapshotQuery {
	return &SnapshotQuery{service: service}
}

var _ gocommand.Querier[insights.ViewerContext, insights.Snapshot] = (*SnapshotQuery)(nil)

// Query returns the viewer's session snapshot.
func (q *SnapshotQuery) Query(ctx context.Context, viewer insights.ViewerContext) (insights.Snapshot, error) {
	return q.service.Snapshot(ctx, viewer.SessionID)
}
