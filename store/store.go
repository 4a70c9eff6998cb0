// Package store provides flock-protected read/modify/write access to a JSON
// file shared between processes. The updater daemon and the config CLI both
// open the platform config through a Store, so a `config set-env` racing a
// reconcile cycle can neither read a partial write nor lose an update.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/gofrs/flock"

	"github.com/dstack-validator/updater/utils"
)

const lockRetryDelay = 100 * time.Millisecond

// Initer is optionally implemented by T to initialize zero-value fields
// (nil maps and the like) after deserialization or when the file is absent.
type Initer interface {
	Init()
}

// Store manages a single JSON file of type T guarded by an flock lock file.
type Store[T any] struct {
	lockPath string
	filePath string
}

// New creates a Store for the given lock and data file paths.
func New[T any](lockPath, filePath string) *Store[T] {
	return &Store[T]{lockPath: lockPath, filePath: filePath}
}

// With loads the file under flock and passes the deserialized data to fn.
// A missing file yields a zero-value T. If *T implements Initer, Init() runs
// before fn. The lock is held for the duration of fn.
func (s *Store[T]) With(ctx context.Context, fn func(*T) error) error {
	fl := flock.New(s.lockPath)
	locked, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("acquire flock %s: %w", s.lockPath, err)
	}
	if !locked {
		return fmt.Errorf("acquire flock %s: %w", s.lockPath, ctx.Err())
	}
	defer fl.Unlock() //nolint:errcheck

	data, err := s.load()
	if err != nil {
		return err
	}
	return fn(data)
}

// Update performs a read-modify-write under flock. If fn returns nil the
// data is written back with an atomic temp-file + rename.
func (s *Store[T]) Update(ctx context.Context, fn func(*T) error) error {
	return s.With(ctx, func(data *T) error {
		if err := fn(data); err != nil {
			return err
		}
		return utils.AtomicWriteJSON(s.filePath, data)
	})
}

func (s *Store[T]) load() (*T, error) {
	var data T
	raw, err := os.ReadFile(s.filePath) //nolint:gosec // updater-owned path
	if err != nil {
		if os.IsNotExist(err) {
			initData(&data)
			return &data, nil
		}
		return nil, fmt.Errorf("read %s: %w", s.filePath, err)
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.filePath, err)
	}
	initData(&data)
	return &data, nil
}

func initData[T any](data *T) {
	if initer, ok := any(data).(Initer); ok {
		initer.Init()
	}
}
