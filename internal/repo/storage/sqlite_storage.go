package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Yael-Shi/WIP-Whiskey-Collection/internal/infra/logging"
)

// SQLiteStorageConfig holds configuration for the SQLite storage.
type SQLiteStorageConfig struct {
	// DatabasePath is the filesystem path to the SQLite database file
	DatabasePath string `env:"DATABASE_PATH" envDefault:"var/storage/session.db"`
}

// SQLiteStorage keeps keys in a single table of a SQLite database.
type SQLiteStorage struct {
	db        *sql.DB
	log       logging.Logger
	writeLock *sync.Mutex // go-sqlite does not support concurrent writes
}

var _ Storage = (*SQLiteStorage)(nil)

// NewSQLiteStorage opens the database and creates the schema if needed.
func NewSQLiteStorage(ctx context.Context, cfg SQLiteStorageConfig) (*SQLiteStorage, error) {
	log := logging.GetLogger("repo.storage.sqlite_storage").With(
		logging.Group("db", "path", cfg.DatabasePath),
	)

	db, err := sql.Open("sqlite", cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("ping db: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS client_storage (
			key        TEXT    PRIMARY KEY,
			value      TEXT    NOT NULL,
			updated_at INTEGER NOT NULL
		)
	`); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("create schema: %w", err)
	}

	db.SetConnMaxLifetime(5 * time.Minute)

	log.DebugContext(ctx, "storage initialized")

	return &SQLiteStorage{db: db, log: log, writeLock: new(sync.Mutex)}, nil
}

func (s *SQLiteStorage) Get(ctx context.Context, key string) (string, bool, error) {
	var value string

	err := s.db.QueryRowContext(ctx, "SELECT value FROM client_storage WHERE key = ?", key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}

		return "", false, fmt.Errorf("query value: %w", err)
	}

	return value, true, nil
}

func (s *SQLiteStorage) Set(ctx context.Context, values map[string]string) error {
	now := time.Now().Unix()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		for key, value := range values {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO client_storage (key, value, updated_at) VALUES (?, ?, ?)
				ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
			`, key, value, now); err != nil {
				return fmt.Errorf("upsert %s: %w", key, err)
			}
		}

		return nil
	})
}

func (s *SQLiteStorage) Delete(ctx context.Context, keys ...string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, key := range keys {
			if _, err := tx.ExecContext(ctx, "DELETE FROM client_storage WHERE key = ?", key); err != nil {
				return fmt.Errorf("delete %s: %w", key, err)
			}
		}

		return nil
	})
}

func (s *SQLiteStorage) inTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	defer func() {
		if err != nil {
			s.log.ErrorContext(ctx, "storage write failed", "error", err)
		}
	}()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	if err := fn(tx); err != nil {
		return errors.Join(err, tx.Rollback())
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}

func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}

	return nil
}
