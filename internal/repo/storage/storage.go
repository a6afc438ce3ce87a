package storage

import (
	"context"
	"errors"
	"fmt"
)

// Keys of the durable identity projection. Only the session store writes them.
const (
	KeyAuthToken   = "authToken"
	KeyCurrentUser = "currentUser"
)

// ErrUnknownDriver is returned by New for an unsupported driver name.
var ErrUnknownDriver = errors.New("unknown storage driver")

// Storage is a small durable key/value store for client-side session state.
type Storage interface {
	// Get returns the value stored under key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores all values in one step: either every key is written or none is.
	Set(ctx context.Context, values map[string]string) error

	// Delete removes the given keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error

	// Close releases any resources held by the storage.
	Close() error
}

// Factory creates a Storage.
type Factory func(ctx context.Context) (Storage, error)

// Config selects and configures a storage driver.
type Config struct {
	// Driver is one of "file", "sqlite", "redis", "postgres" or "memory".
	Driver string `env:"DRIVER" envDefault:"file"`

	FileSystem FileSystemStorageConfig `envPrefix:"FS_"`
	SQLite     SQLiteStorageConfig     `envPrefix:"SQLITE_"`
	Redis      RedisStorageConfig      `envPrefix:"REDIS_"`
	Postgres   PostgresStorageConfig   `envPrefix:"POSTGRES_"`
}

// ConfigFactory returns a Factory for the driver selected in cfg.
func ConfigFactory(cfg Config) Factory {
	return func(ctx context.Context) (Storage, error) {
		return New(ctx, cfg)
	}
}

// New creates the storage selected by cfg.Driver.
func New(ctx context.Context, cfg Config) (Storage, error) {
	var (
		s   Storage
		err error
	)

	switch cfg.Driver {
	case "file", "":
		s, err = NewFileSystemStorage(ctx, cfg.FileSystem)
	case "sqlite":
		s, err = NewSQLiteStorage(ctx, cfg.SQLite)
	case "redis":
		s, err = NewRedisStorage(ctx, cfg.Redis)
	case "postgres":
		s, err = NewPostgresStorage(ctx, cfg.Postgres)
	case "memory":
		s = NewMemoryStorage()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("new %s storage: %w", cfg.Driver, err)
	}

	return s, nil
}
