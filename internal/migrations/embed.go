// Package migrations provides the embedded SQLite schema.
package migrations

import (
	"database/sql"
	_ "embed"
	"fmt"
)

//go:embed sql/001_initial.sql
var InitialSQL string

// Apply creates all tables. It is safe to call on an existing database.
func Apply(db *sql.DB) error {
	if _, err := db.Exec(InitialSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
