package relica

import (
	"database/sql"

	"github.com/coregx/conductor"
)

// DefaultTablePrefix is the table prefix used by NewRepositories.
const DefaultTablePrefix = "conductor_"

// Repositories holds all repository implementations.
type Repositories struct {
	Route   conductor.RouteRecordRepository
	Session conductor.SessionRepository
}

// NewRepositories creates all repository implementations using Relica.
//
// The db parameter should be an *sql.DB connected to MySQL, PostgreSQL, or SQLite.
// The driverName should be "mysql", "postgres", or "sqlite3".
// The table prefix defaults to "conductor_" but can be customized.
func NewRepositories(db *sql.DB, driverName string) *Repositories {
	return &Repositories{
		Route:   NewRouteRecordRepository(db, driverName),
		Session: NewSessionRepository(db, driverName),
	}
}

// NewRepositoriesWithPrefix creates all repository implementations with a custom table prefix.
func NewRepositoriesWithPrefix(db *sql.DB, driverName, prefix string) *Repositories {
	return &Repositories{
		Route:   NewRouteRecordRepositoryWithPrefix(db, driverName, prefix),
		Session: NewSessionRepositoryWithPrefix(db, driverName, prefix),
	}
}
