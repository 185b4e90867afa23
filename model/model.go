// Package model contains the domain models persisted by the delivery journal.
//
// The journal stores routing metadata only. Payload bytes are never written
// to the database, and nothing stored here is ever replayed to subscribers.
package model

// tablePrefix is the default table prefix used by TableName methods.
// Repositories may override it.
const tablePrefix = "conductor_"
