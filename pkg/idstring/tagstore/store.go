// Package tagstore persists per-entity tag sets in SQLite.
//
// Only full paths are stored. Loading re-resolves them through the set's
// registry, so tags removed from the declarations come back as missing
// handles instead of failing the load.
package tagstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/zeusync/idstring/internal/core/observability/log"
	"github.com/zeusync/idstring/pkg/idstring"
)

var ErrNotFound = errors.New("tagstore: entity not found")

// Store keeps one JSON row of tag paths per entity.
type Store struct {
	db     *sql.DB
	mu     sync.Mutex
	path   string
	logger log.Log
}

// Open opens or creates the database at path.
func Open(path string, logger log.Log) (*Store, error) {
	if path == "" {
		path = "idstring.db"
	}
	if logger == nil {
		logger = log.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS entity_tags (
		entity TEXT PRIMARY KEY,
		payload BLOB NOT NULL,
		updated_at INTEGER NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create entity_tags table: %w", err)
	}
	return &Store{db: db, path: path, logger: logger}, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

func (s *Store) Close() error { return s.db.Close() }

// Save replaces the stored tags of entity with the paths of set.
func (s *Store) Save(ctx context.Context, entity string, set *idstring.Set) (retErr error) {
	if entity == "" {
		return errors.New("tagstore: empty entity")
	}
	data, err := set.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, `INSERT INTO entity_tags(entity, payload, updated_at) VALUES(?, ?, ?)
		ON CONFLICT(entity) DO UPDATE SET payload=excluded.payload, updated_at=excluded.updated_at`,
		entity, data, time.Now().UnixNano()); err != nil {
		return fmt.Errorf("upsert %s: %w", entity, err)
	}
	return tx.Commit()
}

// Load replaces the contents of set with the stored tags of entity.
func (s *Store) Load(ctx context.Context, entity string, set *idstring.Set) error {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM entity_tags WHERE entity = ?`, entity).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrNotFound, entity)
	}
	if err != nil {
		return fmt.Errorf("select %s: %w", entity, err)
	}
	if err := set.UnmarshalJSON(payload); err != nil {
		return err
	}
	if missing := set.Missing(); len(missing) > 0 {
		paths := make([]string, 0, len(missing))
		for _, h := range missing {
			paths = append(paths, h.Path())
		}
		s.logger.Warn("tagstore: entity holds unknown tags",
			log.String("entity", entity), log.Strings("paths", paths))
	}
	return nil
}

// Delete removes entity. Deleting an unknown entity returns ErrNotFound.
func (s *Store) Delete(ctx context.Context, entity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, `DELETE FROM entity_tags WHERE entity = ?`, entity)
	if err != nil {
		return fmt.Errorf("delete %s: %w", entity, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, entity)
	}
	return nil
}

// Entities lists stored entities in name order.
func (s *Store) Entities(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT entity FROM entity_tags ORDER BY entity`)
	if err != nil {
		return nil, fmt.Errorf("select entities: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []string
	for rows.Next() {
		var e string
		if err := rows.Scan(&e); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
