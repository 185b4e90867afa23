package model

import (
	"database/sql"
	"strings"
	"time"
)

// SessionState is the persisted lifecycle state of a subscriber session.
type SessionState string

const (
	// SessionStateActive indicates the subscriber is registered under at least one topic.
	SessionStateActive SessionState = "active"

	// SessionStateDead indicates a fan-out write failed and the subscriber was pruned.
	// Dead is terminal; a reconnecting client opens a new session.
	SessionStateDead SessionState = "dead"
)

// SubscriberSession records one subscription connection from registration
// until its first failed write.
type SubscriberSession struct {
	ID           int64        `json:"id" db:"id"`
	SessionID    string       `json:"sessionID" db:"session_id"` // Broker-assigned UUID
	RemoteAddr   string       `json:"remoteAddr" db:"remote_addr"`
	Topics       string       `json:"topics" db:"topics"` // Comma-joined topic list
	State        SessionState `json:"state" db:"state"`
	RegisteredAt time.Time    `json:"registeredAt" db:"registered_at"`
	DeadAt       sql.NullTime `json:"deadAt" db:"dead_at"`
}

// TableName returns the database table name for SubscriberSession.
func (s SubscriberSession) TableName() string {
	return tablePrefix + "session"
}

// NewSubscriberSession creates an active session record.
//
// Parameters:
//   - sessionID: Broker-assigned identifier of the connection
//   - remoteAddr: Peer address of the subscriber socket
//   - topics: Topics the subscriber registered for
func NewSubscriberSession(sessionID, remoteAddr string, topics []string) SubscriberSession {
	return SubscriberSession{
		ID:           0,
		SessionID:    sessionID,
		RemoteAddr:   remoteAddr,
		Topics:       strings.Join(topics, ","),
		State:        SessionStateActive,
		RegisteredAt: time.Now(),
		DeadAt:       sql.NullTime{},
	}
}

// MarkDead moves the session to the terminal dead state.
// Calling it on an already dead session keeps the original timestamp.
func (s *SubscriberSession) MarkDead() {
	if s.State == SessionStateDead {
		return
	}
	s.State = SessionStateDead
	s.DeadAt = sql.NullTime{Time: time.Now(), Valid: true}
}

// IsActive reports whether the session is still receiving frames.
func (s SubscriberSession) IsActive() bool {
	return s.State == SessionStateActive
}

// TopicList splits the stored topic list.
func (s SubscriberSession) TopicList() []string {
	if s.Topics == "" {
		return []string{}
	}
	return strings.Split(s.Topics, ",")
}

// Lifetime returns how long the session was (or has been) alive.
func (s SubscriberSession) Lifetime() time.Duration {
	if s.DeadAt.Valid {
		return s.DeadAt.Time.Sub(s.RegisteredAt)
	}
	return time.Since(s.RegisteredAt)
}
