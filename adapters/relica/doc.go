// Package relica provides journal repository implementations using Relica query builder.
//
// Relica (github.com/coregx/relica) is a lightweight, type-safe database query builder
// for Go with zero production dependencies.
//
// This package implements the conductor journal repository interfaces:
//   - RouteRecordRepository
//   - SessionRepository
//
// Example usage:
//
//	import (
//	    "database/sql"
//	    "github.com/coregx/conductor"
//	    "github.com/coregx/conductor/adapters/relica"
//	    _ "github.com/mattn/go-sqlite3"
//	)
//
//	db, err := sql.Open("sqlite3", "conductor.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := conductor.ApplyMigrations(ctx, db, "sqlite3", relica.DefaultTablePrefix); err != nil {
//	    log.Fatal(err)
//	}
//
//	// driverName should be "mysql", "postgres", or "sqlite3"
//	repos := relica.NewRepositories(db, "sqlite3")
//
//	journal, err := conductor.NewJournal(
//	    conductor.WithJournalRepositories(repos.Route, repos.Session),
//	)
package relica
