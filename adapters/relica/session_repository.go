package relica

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/coregx/conductor"
	"github.com/coregx/conductor/model"
	"github.com/coregx/relica"
)

// SessionRepository implements conductor.SessionRepository using Relica.
type SessionRepository struct {
	db          *relica.DB
	tablePrefix string
}

// NewSessionRepository creates a new SessionRepository with default table prefix.
func NewSessionRepository(sqlDB *sql.DB, driverName string) *SessionRepository {
	return &SessionRepository{
		db:          relica.WrapDB(sqlDB, driverName),
		tablePrefix: DefaultTablePrefix,
	}
}

// NewSessionRepositoryWithPrefix creates a new SessionRepository with custom table prefix.
func NewSessionRepositoryWithPrefix(sqlDB *sql.DB, driverName, prefix string) *SessionRepository {
	return &SessionRepository{
		db:          relica.WrapDB(sqlDB, driverName),
		tablePrefix: prefix,
	}
}

func (r *SessionRepository) tableName() string {
	return r.tablePrefix + "session"
}

// Save creates or updates a session.
func (r *SessionRepository) Save(ctx context.Context, m model.SubscriberSession) (model.SubscriberSession, error) {
	if m.ID == 0 {
		err := r.db.WithContext(ctx).Model(&m).Table(r.tableName()).Insert()
		if err != nil {
			return m, conductor.NewErrorWithCause(conductor.ErrCodeDatabase, "failed to insert session", err)
		}
		return m, nil
	}

	err := r.db.WithContext(ctx).Model(&m).Table(r.tableName()).Update()
	if err != nil {
		return m, conductor.NewErrorWithCause(conductor.ErrCodeDatabase, "failed to update session", err)
	}
	return m, nil
}

// Load retrieves a session by its broker-assigned session ID.
func (r *SessionRepository) Load(ctx context.Context, sessionID string) (model.SubscriberSession, error) {
	var session model.SubscriberSession

	err := r.db.WithContext(ctx).Select("*").
		From(r.tableName()).
		Where("session_id = ?", sessionID).
		WithContext(ctx).
		One(&session)

	if errors.Is(err, sql.ErrNoRows) {
		return session, conductor.ErrNoData
	}
	if err != nil {
		return session, conductor.NewErrorWithCause(conductor.ErrCodeDatabase, "failed to load session", err)
	}

	return session, nil
}

// FindActive retrieves sessions that are still active, oldest first.
func (r *SessionRepository) FindActive(ctx context.Context, limit int) ([]model.SubscriberSession, error) {
	var sessions []model.SubscriberSession

	err := r.db.WithContext(ctx).Select("*").
		From(r.tableName()).
		Where("state = ?", model.SessionStateActive).
		OrderBy("id ASC").
		Limit(int64(limit)).
		WithContext(ctx).
		All(&sessions)

	if err != nil {
		return nil, conductor.NewErrorWithCause(conductor.ErrCodeDatabase, "failed to find active sessions", err)
	}

	if len(sessions) == 0 {
		return nil, conductor.ErrNoData
	}

	return sessions, nil
}

// MarkDead marks the session dead.
func (r *SessionRepository) MarkDead(ctx context.Context, sessionID string, deadAt time.Time) error {
	_, err := r.db.WithContext(ctx).Update(r.tableName()).
		Set(map[string]interface{}{
			"state":   model.SessionStateDead,
			"dead_at": deadAt,
		}).
		Where("session_id = ?", sessionID).
		WithContext(ctx).
		Execute()

	if err != nil {
		return conductor.NewErrorWithCause(conductor.ErrCodeDatabase, "failed to mark session dead", err)
	}

	return nil
}
