package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/Yael-Shi/WIP-Whiskey-Collection/internal/infra/logging"
)

// FileSystemStorageConfig holds configuration for the filesystem storage.
type FileSystemStorageConfig struct {
	// Basedir is the directory holding the storage document
	Basedir string `env:"BASEDIR" envDefault:"var/storage"`

	// Name is the document's base name; the file is <Basedir>/<Name>.json
	Name string `env:"NAME" envDefault:"session"`
}

// ErrCorruptDocument is returned by Get when the storage document cannot be parsed.
// Set and Delete replace such a document.
var ErrCorruptDocument = errors.New("corrupt storage document")

// FileSystemStorage keeps all keys in a single JSON document. Writes replace the
// document atomically (temp file + rename) while holding an exclusive flock; reads
// take a shared lock.
type FileSystemStorage struct {
	cfg FileSystemStorageConfig
	log logging.Logger
	m   *sync.Mutex
}

var _ Storage = (*FileSystemStorage)(nil)

// NewFileSystemStorage creates the base directory if needed.
func NewFileSystemStorage(ctx context.Context, cfg FileSystemStorageConfig) (*FileSystemStorage, error) {
	log := logging.GetLogger("repo.storage.filesystem_storage").With(
		logging.Group("storage", "basedir", cfg.Basedir, "name", cfg.Name),
	)

	if err := os.MkdirAll(cfg.Basedir, 0o700); err != nil {
		return nil, fmt.Errorf("mkdir all: %w", err)
	}

	log.DebugContext(ctx, "storage initialized")

	return &FileSystemStorage{cfg: cfg, log: log, m: new(sync.Mutex)}, nil
}

// Filename returns the path of the storage document.
func (s *FileSystemStorage) Filename() string {
	return filepath.Join(s.cfg.Basedir, s.cfg.Name+".json")
}

func (s *FileSystemStorage) Get(ctx context.Context, key string) (string, bool, error) {
	release, err := s.flock(ctx, syscall.LOCK_SH)
	if err != nil {
		return "", false, err
	}
	defer release()

	doc, err := s.read()
	if err != nil {
		return "", false, err
	}

	value, ok := doc[key]

	return value, ok, nil
}

func (s *FileSystemStorage) Set(ctx context.Context, values map[string]string) error {
	return s.update(ctx, func(doc map[string]string) {
		maps.Copy(doc, values)
	})
}

func (s *FileSystemStorage) Delete(ctx context.Context, keys ...string) error {
	return s.update(ctx, func(doc map[string]string) {
		for _, key := range keys {
			delete(doc, key)
		}
	})
}

func (s *FileSystemStorage) Close() error {
	return nil
}

func (s *FileSystemStorage) update(ctx context.Context, mutate func(map[string]string)) (err error) {
	defer func() {
		if err != nil {
			s.log.ErrorContext(ctx, "storage update failed", "error", err)
		} else {
			s.log.DebugContext(ctx, "storage updated")
		}
	}()

	s.m.Lock()
	defer s.m.Unlock()

	release, err := s.flock(ctx, syscall.LOCK_EX)
	if err != nil {
		return err
	}
	defer release()

	doc, err := s.read()
	if errors.Is(err, ErrCorruptDocument) {
		// an unreadable document would block every later write; start over
		s.log.WarnContext(ctx, "discarding corrupt storage document", "error", err)

		doc, err = make(map[string]string), nil
	}

	if err != nil {
		return err
	}

	mutate(doc)

	return s.write(doc)
}

func (s *FileSystemStorage) read() (map[string]string, error) {
	doc := make(map[string]string)

	data, err := os.ReadFile(s.Filename())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return doc, nil
		}

		return nil, fmt.Errorf("read: %w", err)
	}

	if len(data) == 0 {
		return doc, nil
	}

	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", errors.Join(ErrCorruptDocument, err))
	}

	return doc, nil
}

func (s *FileSystemStorage) write(doc map[string]string) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	tmp, err := os.CreateTemp(s.cfg.Basedir, s.cfg.Name+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}

	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()

		return fmt.Errorf("write: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()

		return fmt.Errorf("sync: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.Filename()); err != nil {
		return fmt.Errorf("rename: %w", err)
	}

	return nil
}

func (s *FileSystemStorage) flock(ctx context.Context, mode int) (func(), error) {
	lockfile := s.Filename() + ".lock"

	file, err := os.OpenFile(lockfile, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lockfile: %w", err)
	}

	if err := syscall.Flock(int(file.Fd()), mode); err != nil {
		_ = file.Close()

		return nil, fmt.Errorf("flock: %w", err)
	}

	return func() {
		_ = syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
		_ = file.Close()

		s.log.DebugContext(ctx, "lock released", "lockfile", lockfile)
	}, nil
}
