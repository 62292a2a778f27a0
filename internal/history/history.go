// Package history keeps the bounded per-user log of successful lookups,
// SQLite-backed with a JSON payload column. The default DSN is
// in-memory, so nothing outlives the process.
package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/stupiduntilnot/auctionbot/internal/session"
	"github.com/stupiduntilnot/auctionbot/internal/valuation"
)

// MaxEntries is the per-user bound: insertion at the front, oldest entry
// evicted past this count (first-in-first-evicted).
const MaxEntries = 10

// Entry is an immutable snapshot of one successful lookup.
type Entry struct {
	Kind         session.Kind      `json:"kind"`
	Identifier   string            `json:"identifier"`
	Subseries    string            `json:"subseries,omitempty"`
	Transmission string            `json:"transmission,omitempty"`
	Filters      valuation.Filters `json:"filters"`
	Record       *valuation.Record `json:"record"`
	At           time.Time         `json:"at"`
	Refined      bool              `json:"refined,omitempty"`
	Historical   bool              `json:"historical,omitempty"`
}

// Open opens (or creates) the history database. ":memory:" keeps the
// log for the process lifetime only, which is the default.
func Open(path string) (*sql.DB, error) {
	dsn := path
	if path == ":memory:" {
		// A single shared in-memory database; a plain ":memory:" DSN
		// would give every pooled connection its own empty database.
		dsn = "file::memory:?mode=memory&cache=shared"
	} else {
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create history db directory %s: %w", dir, err)
			}
		}
		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open history db at %s: %w", path, err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping history db at %s: %w", path, err)
	}
	return db, nil
}

// InitSchema creates the searches table.
func InitSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS searches (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			kind TEXT NOT NULL,
			identifier TEXT NOT NULL,
			refined INTEGER NOT NULL DEFAULT 0,
			historical INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL,
			payload TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_searches_user_id ON searches(user_id, id);
	`)
	return err
}

// Recorder reads and writes the per-user search log.
type Recorder struct {
	db *sql.DB
}

// NewRecorder wraps an opened, schema-initialized database.
func NewRecorder(db *sql.DB) *Recorder {
	return &Recorder{db: db}
}

// Record prepends an entry to the user's log and evicts everything past
// the newest MaxEntries.
func (r *Recorder) Record(userID int64, e Entry) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal history entry: %w", err)
	}
	_, err = r.db.Exec(
		`INSERT INTO searches (user_id, kind, identifier, refined, historical, created_at, payload)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		userID, string(e.Kind), e.Identifier, boolInt(e.Refined), boolInt(e.Historical),
		e.At.Unix(), string(payload),
	)
	if err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}
	_, err = r.db.Exec(
		`DELETE FROM searches WHERE user_id = ? AND id NOT IN (
			SELECT id FROM searches WHERE user_id = ? ORDER BY id DESC LIMIT ?
		)`,
		userID, userID, MaxEntries,
	)
	if err != nil {
		return fmt.Errorf("prune history entries: %w", err)
	}
	return nil
}

// Recent returns up to limit entries for the user, most recent first.
func (r *Recorder) Recent(userID int64, limit int) ([]Entry, error) {
	if limit <= 0 || limit > MaxEntries {
		limit = MaxEntries
	}
	rows, err := r.db.Query(
		`SELECT payload FROM searches WHERE user_id = ? ORDER BY id DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query history entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		var e Entry
		if err := json.Unmarshal([]byte(payload), &e); err != nil {
			return nil, fmt.Errorf("unmarshal history entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Find returns the newest entry matching the predicate, searching
// most-recent-first so a duplicate identifier resolves to its latest
// lookup.
func (r *Recorder) Find(userID int64, match func(Entry) bool) (*Entry, error) {
	entries, err := r.Recent(userID, MaxEntries)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if match(entries[i]) {
			return &entries[i], nil
		}
	}
	return nil, nil
}

// FindByIdentifier is the common lookup used by the pagination and chart
// callbacks once the original reply has scrolled away.
func (r *Recorder) FindByIdentifier(userID int64, identifier string) (*Entry, error) {
	return r.Find(userID, func(e Entry) bool { return e.Identifier == identifier })
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
