// Package store keeps named value snapshots in a SQLite database.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/chazu/garnet/vm"
	"github.com/chazu/garnet/vm/snapshot"
)

// ErrNotFound indicates the requested snapshot doesn't exist.
var ErrNotFound = errors.New("snapshot not found")

// Entry describes a stored snapshot without its payload.
type Entry struct {
	ID      string
	Name    string
	Format  snapshot.Format
	Size    int
	Created time.Time
}

// Store handles SQLite storage for snapshots.
type Store struct {
	db     *sql.DB
	path   string
	format snapshot.Format
	mu     sync.Mutex
	log    commonlog.Logger
}

// Open opens (creating if needed) the database at path. New snapshots are
// written in format.
func Open(path string, format snapshot.Format) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS snapshots (
		id      TEXT PRIMARY KEY,
		name    TEXT NOT NULL UNIQUE,
		format  INTEGER NOT NULL,
		data    BLOB NOT NULL,
		created INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	return &Store{
		db:     db,
		path:   path,
		format: format,
		log:    commonlog.GetLogger("garnet.store"),
	}, nil
}

// Path returns the database file.
func (s *Store) Path() string { return s.path }

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Save snapshots v under name, replacing any snapshot with that name.
// It returns the new snapshot's id.
func (s *Store) Save(rt *vm.VM, name string, v vm.Value) (string, error) {
	snap, err := snapshot.FromValue(rt, v)
	if err != nil {
		return "", err
	}
	data, err := snapshot.Marshal(snap, s.format)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	_, err = s.db.Exec(
		"INSERT OR REPLACE INTO snapshots (id, name, format, data, created) VALUES (?, ?, ?, ?, ?)",
		id, name, int(s.format), data, time.Now().UnixNano(),
	)
	if err != nil {
		return "", fmt.Errorf("saving snapshot: %w", err)
	}
	s.log.Infof("saved snapshot %q (%s, %d bytes)", name, s.format, len(data))
	return id, nil
}

// Load rebuilds the snapshot stored under name inside rt.
func (s *Store) Load(rt *vm.VM, name string) (vm.Value, error) {
	var (
		format int
		data   []byte
	)
	err := s.db.QueryRow("SELECT format, data FROM snapshots WHERE name = ?", name).Scan(&format, &data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return vm.Undefined, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return vm.Undefined, fmt.Errorf("querying snapshot: %w", err)
	}

	snap, err := snapshot.Unmarshal(data, snapshot.Format(format))
	if err != nil {
		return vm.Undefined, err
	}
	s.log.Debugf("loaded snapshot %q", name)
	return snap.ToValue(rt)
}

// List returns every stored snapshot, oldest first.
func (s *Store) List() ([]Entry, error) {
	rows, err := s.db.Query("SELECT id, name, format, length(data), created FROM snapshots ORDER BY created, name")
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e       Entry
			format  int
			created int64
		)
		if err := rows.Scan(&e.ID, &e.Name, &format, &e.Size, &created); err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		e.Format = snapshot.Format(format)
		e.Created = time.Unix(0, created)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Delete removes the snapshot stored under name.
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec("DELETE FROM snapshots WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("deleting snapshot: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return nil
}
