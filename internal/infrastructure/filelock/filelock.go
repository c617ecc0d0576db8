// Package filelock implements lock.Locker with an advisory lock file next to
// the store.
package filelock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/apperror"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/lock"
	"github.com/DarkSario/2025-Interactifs-Gestion/pkg/logger"
)

const retryDelay = 50 * time.Millisecond

// Locker guards a single lock file.
type Locker struct {
	path    string
	timeout time.Duration
}

var _ lock.Locker = (*Locker)(nil)

// New creates a Locker for path. A non-positive timeout means a single
// non-blocking attempt.
func New(path string, timeout time.Duration) *Locker {
	return &Locker{path: path, timeout: timeout}
}

// ForStore returns the lock file path used for a store file.
func ForStore(storePath string) string {
	return storePath + ".lock"
}

// Path returns the lock file path.
func (l *Locker) Path() string {
	return l.path
}

// Acquire takes the lock or fails with LOCK_TIMEOUT once the timeout elapses.
func (l *Locker) Acquire(ctx context.Context) (lock.Release, error) {
	if dir := filepath.Dir(l.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create lock dir: %w", err)
		}
	}

	fl := flock.New(l.path)

	var (
		locked bool
		err    error
	)
	if l.timeout <= 0 {
		locked, err = fl.TryLock()
	} else {
		lockCtx, cancel := context.WithTimeout(ctx, l.timeout)
		locked, err = fl.TryLockContext(lockCtx, retryDelay)
		cancel()
	}

	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("acquire file lock %s: %w", l.path, err)
	}
	if !locked {
		logger.Warn(ctx, "file lock busy", "path", l.path, "timeout", l.timeout)
		return nil, apperror.NewLockTimeout(l.path, l.timeout)
	}

	logger.Debug(ctx, "file lock acquired", "path", l.path)

	var once sync.Once
	return func() error {
		var unlockErr error
		once.Do(func() {
			unlockErr = fl.Unlock()
		})
		return unlockErr
	}, nil
}
