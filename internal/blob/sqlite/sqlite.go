// Package sqlite stores blobs in a single SQLite table.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"campanha/internal/blob"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM blobs WHERE key = ?`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get blob %s: %w", key, err)
	}
	return data, true, nil
}

func (s *Store) Put(ctx context.Context, key string, data []byte, opts blob.PutOptions) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if opts.Overwrite {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO blobs (key, data, content_type, size, updated_at) VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET
				data = excluded.data,
				content_type = excluded.content_type,
				size = excluded.size,
				updated_at = excluded.updated_at`,
			key, data, opts.ContentType, len(data), now)
		if err != nil {
			return fmt.Errorf("put blob %s: %w", key, err)
		}
	} else {
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO blobs (key, data, content_type, size, updated_at) VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(key) DO NOTHING`,
			key, data, opts.ContentType, len(data), now)
		if err != nil {
			return fmt.Errorf("put blob %s: %w", key, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("put blob %s: %w", key, err)
		}
		if n == 0 {
			return blob.ErrExists
		}
	}

	slog.DebugContext(ctx, "Blob saved to SQLite", "key", key, "size", len(data), "overwrite", opts.Overwrite)
	return nil
}

// Keys lists stored keys with the given prefix in key order.
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM blobs WHERE substr(key, 1, ?) = ? ORDER BY key`, len(prefix), prefix)
	if err != nil {
		return nil, fmt.Errorf("list blobs: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan blob key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
