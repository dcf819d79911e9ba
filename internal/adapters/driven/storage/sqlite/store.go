package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/tap-freshcaller/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/tap-freshcaller/internal/core/domain"
	"github.com/custodia-labs/tap-freshcaller/internal/core/ports/driven"
)

// keyCurrentlySyncing is the run_state key holding the in-progress stream.
const keyCurrentlySyncing = "currently_syncing"

// Store is a SQLite database holding tap state.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (or creates) the database at path.
// If path is empty, defaults to ~/.tap-freshcaller/state.db.
func NewStore(path string) (*Store, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		path = filepath.Join(home, ".tap-freshcaller", "state.db")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: path,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// StateStore returns a StateStore interface backed by this store.
func (s *Store) StateStore() driven.StateStore {
	return &stateStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}

		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== State Store ====================

// stateStore implements driven.StateStore.
type stateStore struct {
	store *Store
}

var _ driven.StateStore = (*stateStore)(nil)

// Load reads every bookmark and the run-level values.
// Returns domain.ErrNotFound when nothing has been saved yet.
func (s *stateStore) Load(ctx context.Context) (*domain.State, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT stream_id, field, value FROM bookmarks ORDER BY stream_id, field
	`)
	if err != nil {
		return nil, fmt.Errorf("querying bookmarks: %w", err)
	}
	defer rows.Close()

	state := domain.NewState()
	found := false
	for rows.Next() {
		var streamID, field, value string
		if err := rows.Scan(&streamID, &field, &value); err != nil {
			return nil, fmt.Errorf("scanning bookmark: %w", err)
		}
		state.SetBookmark(streamID, field, value)
		found = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating bookmarks: %w", err)
	}

	var current string
	row := s.store.db.QueryRowContext(ctx, "SELECT value FROM run_state WHERE key = ?", keyCurrentlySyncing)
	switch err := row.Scan(&current); {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("scanning run state: %w", err)
	default:
		state.SetCurrentlySyncing(current)
		found = true
	}

	if !found {
		return nil, domain.ErrNotFound
	}
	return state, nil
}

// Save replaces the stored state with state in a single transaction.
func (s *stateStore) Save(ctx context.Context, state *domain.State) error {
	if state == nil {
		return domain.ErrInvalidInput
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM bookmarks"); err != nil {
		return fmt.Errorf("clearing bookmarks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO bookmarks (stream_id, field, value, updated_at)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for streamID, fields := range state.Bookmarks {
		for field, value := range fields {
			if _, err := stmt.ExecContext(ctx, streamID, field, value, now); err != nil {
				return fmt.Errorf("saving bookmark %s.%s: %w", streamID, field, err)
			}
		}
	}

	if state.CurrentlySyncing == "" {
		_, err = tx.ExecContext(ctx, "DELETE FROM run_state WHERE key = ?", keyCurrentlySyncing)
	} else {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO run_state (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value
		`, keyCurrentlySyncing, state.CurrentlySyncing)
	}
	if err != nil {
		return fmt.Errorf("saving run state: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
