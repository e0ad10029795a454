// pkg/db/sqlite.go
package db

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // SQLite driver, registers as "sqlite"
)

// NewSQLiteDB opens a SQLite database at path. ":memory:" gives a private
// in-memory database, which only lives as long as its single connection.
// The parent directory of a plain file path is created when missing.
func NewSQLiteDB(path string) (*sqlx.DB, error) {
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory for SQLite database %q: %w", path, err)
		}
	}

	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database %q: %w", path, err)
	}

	// SQLite serializes writers; one connection also keeps :memory: databases alive.
	db.SetMaxOpenConns(1)

	if err = ping(db); err != nil {
		return nil, fmt.Errorf("failed to ping SQLite database %q: %w", path, err)
	}

	return db, nil
}
