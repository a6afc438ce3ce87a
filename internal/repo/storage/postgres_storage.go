package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Yael-Shi/WIP-Whiskey-Collection/internal/infra/logging"
)

// PostgresStorageConfig holds configuration for the PostgreSQL storage.
type PostgresStorageConfig struct {
	DSN string `env:"DSN" envDefault:"postgres://localhost:5432/whiskey?sslmode=disable"`

	// Owner scopes rows so that several companions can share one table
	Owner string `env:"OWNER" envDefault:"default"`
}

// PostgresStorage keeps keys in a PostgreSQL table, scoped by owner.
type PostgresStorage struct {
	pool  *pgxpool.Pool
	owner string
	log   logging.Logger
}

var _ Storage = (*PostgresStorage)(nil)

// NewPostgresStorage connects and creates the schema if needed.
func NewPostgresStorage(ctx context.Context, cfg PostgresStorageConfig) (*PostgresStorage, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("new pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()

		return nil, fmt.Errorf("ping: %w", err)
	}

	if _, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS client_storage (
			owner      TEXT        NOT NULL,
			key        TEXT        NOT NULL,
			value      TEXT        NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (owner, key)
		)
	`); err != nil {
		pool.Close()

		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &PostgresStorage{
		pool:  pool,
		owner: cfg.Owner,
		log:   logging.GetLogger("repo.storage.postgres_storage").With(logging.Group("db", "owner", cfg.Owner)),
	}, nil
}

func (s *PostgresStorage) Get(ctx context.Context, key string) (string, bool, error) {
	var value string

	err := s.pool.QueryRow(ctx,
		"SELECT value FROM client_storage WHERE owner = $1 AND key = $2",
		s.owner, key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}

		return "", false, fmt.Errorf("query value: %w", err)
	}

	return value, true, nil
}

func (s *PostgresStorage) Set(ctx context.Context, values map[string]string) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for key, value := range values {
			if _, err := tx.Exec(ctx, `
				INSERT INTO client_storage (owner, key, value, updated_at) VALUES ($1, $2, $3, now())
				ON CONFLICT (owner, key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
			`, s.owner, key, value); err != nil {
				return fmt.Errorf("upsert %s: %w", key, err)
			}
		}

		return nil
	})
	if err != nil {
		s.log.ErrorContext(ctx, "storage set failed", "error", err)

		return fmt.Errorf("set: %w", err)
	}

	return nil
}

func (s *PostgresStorage) Delete(ctx context.Context, keys ...string) error {
	if _, err := s.pool.Exec(ctx,
		"DELETE FROM client_storage WHERE owner = $1 AND key = ANY($2)",
		s.owner, keys,
	); err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	return nil
}

func (s *PostgresStorage) Close() error {
	s.pool.Close()

	return nil
}
