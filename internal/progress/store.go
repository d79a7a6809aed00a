// Package progress provides the durable per-node completion store that makes
// interrupted mirror runs resumable. One store lives under each destination
// root; every processed node is appended as one SQLite row, so a crash after
// record N leaves records 1..N intact and readable on the next run.
package progress

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/arving/kbmirror/internal/models"
)

// StateDirName is the hidden directory under the mirror root that holds all
// run state (progress records, article index). Storage listing skips
// dot-directories, so nothing in here is ever indexed or served as content.
const StateDirName = ".kbmirror"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS records (
	seq            INTEGER PRIMARY KEY AUTOINCREMENT,
	node_id        TEXT NOT NULL UNIQUE,
	path           TEXT NOT NULL,
	title          TEXT NOT NULL DEFAULT '',
	kind           TEXT NOT NULL DEFAULT '',
	parent_id      TEXT NOT NULL DEFAULT '',
	target_ref     TEXT NOT NULL DEFAULT '',
	title_segments TEXT NOT NULL DEFAULT '[]',
	id_segments    TEXT NOT NULL DEFAULT '[]',
	success        INTEGER NOT NULL DEFAULT 0,
	run_id         TEXT NOT NULL DEFAULT '',
	created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// Record is one durably persisted outcome for one node.
type Record struct {
	Entry   models.ResolvedEntry
	Success bool
	RunID   string
}

// Store is the SQLite-backed progress record store for one mirror root.
type Store struct {
	db    *sql.DB
	runID string
}

// StateDir returns the state directory for a mirror root.
func StateDir(root string) string {
	return filepath.Join(root, StateDirName)
}

// Open opens (or creates) the progress store under the given mirror root and
// stamps this process with a fresh run id.
func Open(root string) (*Store, error) {
	dir := StateDir(root)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("progress: create state dir: %w", err)
	}
	dsn := filepath.Join(dir, "progress.db") + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("progress: open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("progress: ping: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("progress: apply schema: %w", err)
	}
	return &Store{db: db, runID: uuid.NewString()}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error { return s.db.Close() }

// RunID returns the id stamped on records appended by this process.
func (s *Store) RunID() string { return s.runID }

// Load returns all persisted records in append order. An empty store yields
// an empty slice, not an error.
func (s *Store) Load() ([]Record, error) {
	rows, err := s.db.Query(`
		SELECT node_id, path, title, kind, parent_id, target_ref,
		       title_segments, id_segments, success, run_id
		FROM records ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("progress: load: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			r               Record
			titleSeg, idSeg string
			kind            string
			success         int
		)
		if err := rows.Scan(&r.Entry.ID, &r.Entry.Path, &r.Entry.SourceNode.Title, &kind,
			&r.Entry.SourceNode.ParentID, &r.Entry.SourceNode.TargetRef,
			&titleSeg, &idSeg, &success, &r.RunID); err != nil {
			return nil, fmt.Errorf("progress: scan record: %w", err)
		}
		r.Entry.SourceNode.ID = r.Entry.ID
		r.Entry.SourceNode.Kind = models.NodeKind(kind)
		r.Success = success != 0
		if err := json.Unmarshal([]byte(titleSeg), &r.Entry.TitleSegments); err != nil {
			return nil, fmt.Errorf("progress: decode title segments: %w", err)
		}
		if err := json.Unmarshal([]byte(idSeg), &r.Entry.IDSegments); err != nil {
			return nil, fmt.Errorf("progress: decode id segments: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Append durably persists one outcome before returning. Each append is a
// single INSERT, so a crash can never leave a half-written record visible to
// a later Load.
func (s *Store) Append(entry models.ResolvedEntry, success bool) error {
	titleSeg, err := json.Marshal(entry.TitleSegments)
	if err != nil {
		return fmt.Errorf("progress: encode title segments: %w", err)
	}
	idSeg, err := json.Marshal(entry.IDSegments)
	if err != nil {
		return fmt.Errorf("progress: encode id segments: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO records (node_id, path, title, kind, parent_id, target_ref,
		                     title_segments, id_segments, success, run_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Path, entry.SourceNode.Title, string(entry.SourceNode.Kind),
		entry.SourceNode.ParentID, entry.SourceNode.TargetRef,
		string(titleSeg), string(idSeg), boolToInt(success), s.runID)
	if err != nil {
		return fmt.Errorf("progress: append %s: %w", entry.ID, err)
	}
	return nil
}

// SetTotal records the node count of the current source sequence.
func (s *Store) SetTotal(n int) error {
	return s.setMeta("total", strconv.Itoa(n))
}

// Total returns the recorded source sequence length (zero when never set).
func (s *Store) Total() (int, error) {
	v, err := s.getMeta("total")
	if err != nil || v == "" {
		return 0, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("progress: corrupt total %q: %w", v, err)
	}
	return n, nil
}

// CompletedCount returns the number of records with success set.
func (s *Store) CompletedCount() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM records WHERE success = 1`).Scan(&n); err != nil {
		return 0, fmt.Errorf("progress: completed count: %w", err)
	}
	return n, nil
}

// RecordCount returns the number of persisted records regardless of outcome.
func (s *Store) RecordCount() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("progress: record count: %w", err)
	}
	return n, nil
}

// IsComplete reports whether every node of the recorded source sequence has
// a success record. A store with no recorded total is never complete.
func (s *Store) IsComplete() (bool, error) {
	total, err := s.Total()
	if err != nil {
		return false, err
	}
	if total == 0 {
		return false, nil
	}
	done, err := s.CompletedCount()
	if err != nil {
		return false, err
	}
	return done == total, nil
}

// IsInterrupted reports whether a previous run was cut short: some records
// persisted, but fewer than the recorded total.
func (s *Store) IsInterrupted() (bool, error) {
	total, err := s.Total()
	if err != nil {
		return false, err
	}
	n, err := s.RecordCount()
	if err != nil {
		return false, err
	}
	return n > 0 && n < total, nil
}

// SetBook records the book identity so read-only consumers (serve, mcp) can
// describe the mirror without re-fetching the source.
func (s *Store) SetBook(book models.BookInfo) error {
	pairs := map[string]string{
		"book_id":          book.ID,
		"book_slug":        book.Slug,
		"book_name":        book.Name,
		"book_description": book.Description,
		"book_url":         book.URL,
	}
	for k, v := range pairs {
		if err := s.setMeta(k, v); err != nil {
			return err
		}
	}
	return nil
}

// Book returns the recorded book identity (zero-valued fields when unset).
// The node sequence is not persisted; only identity metadata is.
func (s *Store) Book() (models.BookInfo, error) {
	var book models.BookInfo
	for key, dst := range map[string]*string{
		"book_id":          &book.ID,
		"book_slug":        &book.Slug,
		"book_name":        &book.Name,
		"book_description": &book.Description,
		"book_url":         &book.URL,
	} {
		v, err := s.getMeta(key)
		if err != nil {
			return models.BookInfo{}, err
		}
		*dst = v
	}
	return book, nil
}

func (s *Store) setMeta(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("progress: set meta %s: %w", key, err)
	}
	return nil
}

func (s *Store) getMeta(key string) (string, error) {
	var v string
	err := s.db.QueryRow(`SELECT value FROM meta WHERE key = ?`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("progress: get meta %s: %w", key, err)
	}
	return v, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
