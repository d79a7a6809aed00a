// Package index provides the SQLite-backed article index that the read-only
// surfaces (serve, mcp) use for search. It is derived state: the mirror
// directory is the source of truth and the index is reconciled against it by
// checksum.
package index

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/arving/kbmirror/internal/progress"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS articles (
	path       TEXT PRIMARY KEY,
	title      TEXT NOT NULL DEFAULT '',
	checksum   TEXT NOT NULL DEFAULT '',
	body       TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// DB wraps a sql.DB with article index operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the article index under the given mirror root.
func Open(root string) (*DB, error) {
	dir := progress.StateDir(root)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("index: create state dir: %w", err)
	}
	dsn := filepath.Join(dir, "index.db") + "?_journal_mode=WAL&_busy_timeout=5000"
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
