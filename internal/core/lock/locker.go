// Package lock defines the cross-process advisory lock used around
// multi-step maintenance operations.
package lock

import "context"

// Release frees a held lock. Calling it more than once is harmless.
type Release func() error

// Locker acquires an exclusive advisory lock, waiting at most the configured
// timeout. A timeout is reported as an apperror LOCK_TIMEOUT.
type Locker interface {
	Acquire(ctx context.Context) (Release, error)
	// Path identifies the locked resource in logs and errors.
	Path() string
}

// Nop is a Locker that always succeeds. Used where no other process can
// share the store.
type Nop struct{}

func (Nop) Acquire(context.Context) (Release, error) {
	return func() error { return nil }, nil
}

func (Nop) Path() string { return "" }

// With runs fn while holding l.
func With(ctx context.Context, l Locker, fn func(ctx context.Context) error) (err error) {
	release, err := l.Acquire(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if relErr := release(); relErr != nil && err == nil {
			err = relErr
		}
	}()
	return fn(ctx)
}
