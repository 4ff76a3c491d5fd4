// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package viewport persists the last viewport per asset so a returning
// viewer can reopen where the user left off.
package viewport

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"

	"github.com/ManuGH/artstor-viewer/internal/asset"
	"github.com/ManuGH/artstor-viewer/internal/persistence/sqlite"
)

// ErrNotFound is returned when no viewport was stored for an asset.
var ErrNotFound = errors.New("viewport: not found")

// ErrInvalidID is returned for empty asset identifiers.
var ErrInvalidID = errors.New("viewport: empty asset id")

// Entry is a stored viewport.
type Entry struct {
	AssetID   string              `json:"asset_id"`
	State     asset.ViewportState `json:"viewport"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// Store keeps one viewport per asset.
type Store interface {
	Get(ctx context.Context, assetID string) (Entry, error)
	// Put merges patch into the stored state and returns the result.
	Put(ctx context.Context, assetID string, patch asset.ViewportPatch) (Entry, error)
	Delete(ctx context.Context, assetID string) error
	Ping(ctx context.Context) error
	Close() error
}

func checkID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", ErrInvalidID
	}
	return id, nil
}

// memoryStore is the default store; contents do not survive a restart.
type memoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
	now     func() time.Time
}

// NewMemoryStore returns an in-process Store.
func NewMemoryStore() Store {
	return &memoryStore{entries: make(map[string]Entry), now: time.Now}
}

func (m *memoryStore) Get(_ context.Context, assetID string) (Entry, error) {
	id, err := checkID(assetID)
	if err != nil {
		return Entry{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[id]
	if !ok {
		return Entry{}, ErrNotFound
	}
	e.State = e.State.Clone()
	return e, nil
}

func (m *memoryStore) Put(_ context.Context, assetID string, patch asset.ViewportPatch) (Entry, error) {
	id, err := checkID(assetID)
	if err != nil {
		return Entry{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.entries[id]
	e.AssetID = id
	e.State = e.State.Apply(patch)
	e.UpdatedAt = m.now().UTC()
	m.entries[id] = e

	e.State = e.State.Clone()
	return e, nil
}

func (m *memoryStore) Delete(_ context.Context, assetID string) error {
	id, err := checkID(assetID)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	return nil
}

func (m *memoryStore) Ping(context.Context) error { return nil }

func (m *memoryStore) Close() error { return nil }

var schema = []string{
	`CREATE TABLE IF NOT EXISTS viewports (
		asset_id   TEXT PRIMARY KEY,
		state      TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	)`,
}

// SQLiteStore persists viewports in a SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// OpenSQLite opens (and migrates) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sqlite.Open(path, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}
	if err := sqlite.Migrate(ctx, db, schema...); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db, path: path, now: time.Now}, nil
}

// Path returns the database file.
func (s *SQLiteStore) Path() string { return s.path }

func (s *SQLiteStore) Get(ctx context.Context, assetID string) (Entry, error) {
	id, err := checkID(assetID)
	if err != nil {
		return Entry{}, err
	}
	var (
		raw     string
		updated int64
	)
	err = s.db.QueryRowContext(ctx,
		`SELECT state, updated_at FROM viewports WHERE asset_id = ?`, id).Scan(&raw, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("viewport: get %s: %w", id, err)
	}
	var state asset.ViewportState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return Entry{}, fmt.Errorf("viewport: decode %s: %w", id, err)
	}
	return Entry{AssetID: id, State: state, UpdatedAt: time.UnixMilli(updated).UTC()}, nil
}

// Put reads, merges and writes inside one transaction.
func (s *SQLiteStore) Put(ctx context.Context, assetID string, patch asset.ViewportPatch) (Entry, error) {
	id, err := checkID(assetID)
	if err != nil {
		return Entry{}, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Entry{}, fmt.Errorf("viewport: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var current asset.ViewportState
	var raw string
	err = tx.QueryRowContext(ctx, `SELECT state FROM viewports WHERE asset_id = ?`, id).Scan(&raw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return Entry{}, fmt.Errorf("viewport: read %s: %w", id, err)
	default:
		if err := json.Unmarshal([]byte(raw), &current); err != nil {
			return Entry{}, fmt.Errorf("viewport: decode %s: %w", id, err)
		}
	}

	next := current.Apply(patch)
	encoded, err := json.Marshal(next)
	if err != nil {
		return Entry{}, fmt.Errorf("viewport: encode %s: %w", id, err)
	}
	now := s.now().UTC().Truncate(time.Millisecond)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO viewports (asset_id, state, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(asset_id) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`,
		id, string(encoded), now.UnixMilli()); err != nil {
		return Entry{}, fmt.Errorf("viewport: write %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return Entry{}, fmt.Errorf("viewport: commit %s: %w", id, err)
	}
	return Entry{AssetID: id, State: next, UpdatedAt: now}, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, assetID string) error {
	id, err := checkID(assetID)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM viewports WHERE asset_id = ?`, id); err != nil {
		return fmt.Errorf("viewport: delete %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLiteStore) Close() error { return s.db.Close() }
