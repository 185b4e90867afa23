package conductor

import (
	"context"
	"time"

	"github.com/coregx/conductor/model"
)

// RouteRecordRepository defines the persistence interface for route records.
// Route records are append-only fan-out summaries; they never carry payloads.
//
// Implementations must be safe for concurrent use.
type RouteRecordRepository interface {
	// Save creates a new route record.
	// Returns the saved record with populated ID.
	Save(ctx context.Context, m model.RouteRecord) (model.RouteRecord, error)

	// FindByTopic retrieves the most recent records for a topic.
	// Results are ordered newest first.
	// Returns ErrNoData if none found.
	FindByTopic(ctx context.Context, topic string, limit int) ([]model.RouteRecord, error)

	// CountByTopic returns the number of records for a topic.
	CountByTopic(ctx context.Context, topic string) (int, error)
}

// SessionRepository defines the persistence interface for subscriber sessions.
type SessionRepository interface {
	// Save creates a new session (if ID=0) or updates an existing one.
	// Returns the saved session with populated ID.
	Save(ctx context.Context, m model.SubscriberSession) (model.SubscriberSession, error)

	// Load retrieves a session by its broker-assigned session ID.
	// Returns ErrNoData if not found.
	Load(ctx context.Context, sessionID string) (model.SubscriberSession, error)

	// FindActive retrieves sessions that have not been marked dead.
	// Results are ordered oldest first.
	// Returns ErrNoData if none found.
	FindActive(ctx context.Context, limit int) ([]model.SubscriberSession, error)

	// MarkDead sets state=dead and dead_at for the session with the given
	// session ID. Marking an unknown session is not an error.
	MarkDead(ctx context.Context, sessionID string, deadAt time.Time) error
}
