// Package sqlite implements storage.Store on a SQLite database using the
// pure-Go modernc.org/sqlite driver. Entities are stored as JSON documents
// keyed by (entity_type, id).
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/daybookhq/daybook/internal/mergefield"
	"github.com/daybookhq/daybook/internal/storage"
	"github.com/daybookhq/daybook/internal/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS entities (
    entity_type TEXT NOT NULL,
    id          TEXT NOT NULL,
    data        TEXT NOT NULL,
    updated_at  TEXT NOT NULL,
    PRIMARY KEY (entity_type, id)
);
CREATE INDEX IF NOT EXISTS idx_entities_type ON entities(entity_type);
`

// Store is a SQLite-backed implementation of storage.Store.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the database at path. The special path ":memory:"
// opens a private in-memory database, used by tests.
func Open(ctx context.Context, path string) (*Store, error) {
	inMemory := path == ":memory:"
	if !inMemory {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	// In-memory databases are isolated per connection, so the pool must be
	// pinned to a single connection for writes to be visible.
	if inMemory {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxOpenConns(4)
		db.SetMaxIdleConns(2)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	if !inMemory {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma: %w", err)
		}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Path returns the database path the store was opened with.
func (s *Store) Path() string { return s.path }

// ExistsByID implements storage.Store.
func (s *Store) ExistsByID(ctx context.Context, t types.EntityType, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM entities WHERE entity_type = ? AND id = ?`, string(t), id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking %s/%s: %w", t, id, err)
	}
	return true, nil
}

// Get implements storage.Store.
func (s *Store) Get(ctx context.Context, t types.EntityType, id string) (types.Entity, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM entities WHERE entity_type = ? AND id = ?`, string(t), id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%s/%s: %w", t, id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading %s/%s: %w", t, id, err)
	}
	return types.DecodeEntity(t, json.RawMessage(data))
}

// List implements storage.Store. Results come back in ID order.
func (s *Store) List(ctx context.Context, t types.EntityType) ([]types.Entity, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM entities WHERE entity_type = ? ORDER BY id`, string(t))
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", t, err)
	}
	defer rows.Close()

	var out []types.Entity
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", t, err)
		}
		e, err := types.DecodeEntity(t, json.RawMessage(data))
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// PutBatch implements storage.Store. The whole batch is written in one
// transaction so a failed import never commits partially within a type.
func (s *Store) PutBatch(ctx context.Context, t types.EntityType, entities []types.Entity, strategy storage.Strategy) (storage.BatchResult, error) {
	var res storage.BatchResult
	if !strategy.IsValid() {
		return res, fmt.Errorf("invalid write strategy %q", strategy)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, e := range entities {
		if e.EntityType() != t {
			return storage.BatchResult{}, fmt.Errorf("batch for %s contains a %s entity", t, e.EntityType())
		}

		var existingData string
		err := tx.QueryRowContext(ctx,
			`SELECT data FROM entities WHERE entity_type = ? AND id = ?`, string(t), e.EntityID()).Scan(&existingData)
		switch {
		case err == sql.ErrNoRows:
			if err := writeEntity(ctx, tx, e, now); err != nil {
				return storage.BatchResult{}, err
			}
			res.Created++
		case err != nil:
			return storage.BatchResult{}, fmt.Errorf("checking %s/%s: %w", t, e.EntityID(), err)
		default:
			switch strategy {
			case storage.StrategySkipExisting:
				res.Skipped++
			case storage.StrategyReplace:
				if err := writeEntity(ctx, tx, e, now); err != nil {
					return storage.BatchResult{}, err
				}
				res.Replaced++
			case storage.StrategyMerge:
				existing, err := types.DecodeEntity(t, json.RawMessage(existingData))
				if err != nil {
					return storage.BatchResult{}, err
				}
				merged, err := mergefield.Merge(existing, e)
				if err != nil {
					return storage.BatchResult{}, fmt.Errorf("merging %s/%s: %w", t, e.EntityID(), err)
				}
				if err := writeEntity(ctx, tx, merged, now); err != nil {
					return storage.BatchResult{}, err
				}
				res.Merged++
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return storage.BatchResult{}, fmt.Errorf("committing batch: %w", err)
	}
	return res, nil
}

func writeEntity(ctx context.Context, tx *sql.Tx, e types.Entity, now string) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding %s/%s: %w", e.EntityType(), e.EntityID(), err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO entities (entity_type, id, data, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(entity_type, id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		string(e.EntityType()), e.EntityID(), string(raw), now)
	if err != nil {
		return fmt.Errorf("writing %s/%s: %w", e.EntityType(), e.EntityID(), err)
	}
	return nil
}

// Close flushes the WAL and closes the connection pool.
func (s *Store) Close() error {
	if !strings.EqualFold(s.path, ":memory:") {
		_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	}
	return s.db.Close()
}
