package conductor

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

// prefixPlaceholder is replaced with the table prefix when migrations are applied.
const prefixPlaceholder = "{{prefix}}"

// MigrationFiles contains the journal schema for every supported dialect,
// one directory per driver name (sqlite3, mysql, postgres). Table names carry
// a {{prefix}} placeholder.
//
// Most setups call ApplyMigrations. The files can also be fed to an external
// migration tool after substituting the placeholder.
//
//go:embed migrations/*/*.sql
var MigrationFiles embed.FS

// ApplyMigrations creates the journal tables for driver ("sqlite3", "mysql" or
// "postgres") using the given table prefix. Files are applied in name order and
// every statement is idempotent, so applying twice is safe.
//
// Example:
//
//	db, _ := sql.Open("sqlite3", "conductor.db")
//	if err := conductor.ApplyMigrations(ctx, db, "sqlite3", "conductor_"); err != nil {
//	    log.Fatal(err)
//	}
func ApplyMigrations(ctx context.Context, db *sql.DB, driver, prefix string) error {
	statements, err := migrationStatements(driver, prefix)
	if err != nil {
		return err
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return NewErrorWithCause(ErrCodeDatabase, "failed to apply migration", err)
		}
	}
	return nil
}

// migrationStatements returns the statements of every migration for driver,
// with the prefix substituted.
func migrationStatements(driver, prefix string) ([]string, error) {
	dir := path.Join("migrations", driver)
	files, err := fs.Glob(MigrationFiles, dir+"/*.sql")
	if err != nil || len(files) == 0 {
		return nil, NewError(ErrCodeConfiguration, fmt.Sprintf("no migrations for driver %q", driver))
	}
	sort.Strings(files)

	var statements []string
	for _, name := range files {
		content, err := MigrationFiles.ReadFile(name)
		if err != nil {
			return nil, NewErrorWithCause(ErrCodeDatabase, "failed to read migration "+name, err)
		}

		sqlText := strings.ReplaceAll(string(content), prefixPlaceholder, prefix)
		for _, stmt := range strings.Split(sqlText, ";") {
			if stmt = strings.TrimSpace(stmt); stmt != "" {
				statements = append(statements, stmt)
			}
		}
	}
	return statements, nil
}
