package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/simaogato/timedeposit-backend/internal/adapter/repository/document"
)

// DB wraps the SQLite connection
type DB struct {
	*sql.DB
}

// NewDB opens the SQLite database at path
// A single connection serializes writers, which SQLite requires anyway
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	return &DB{DB: db}, nil
}

// EnsureCollection creates the table backing a document collection if it does not exist
func (db *DB) EnsureCollection(ctx context.Context, collection string) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id       TEXT PRIMARY KEY,
			document TEXT NOT NULL
		)
	`, document.TableName(collection))

	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create collection %s: %w", collection, err)
	}
	return nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}
