package sqlite

import (
	"context"
	"errors"
	"time"

	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"

	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/apperror"
)

// translateError maps driver errors to engine error codes.
// AppErrors and context cancellation pass through unchanged.
func translateError(err error, path string, busyTimeout time.Duration) error {
	if err == nil {
		return nil
	}
	if apperror.IsAppError(err) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var sqlErr sqlite3.Error
	if errors.As(err, &sqlErr) {
		switch sqlErr.Code {
		case sqlite3.ErrBusy, sqlite3.ErrLocked:
			return apperror.NewLockTimeout(path, busyTimeout).WithCause(err)
		}
	}
	return apperror.NewTransactionFailure(err)
}

// notFound maps gorm.ErrRecordNotFound to a NOT_FOUND AppError.
func notFound(err error, entity string, key any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NewNotFound(entity, key)
	}
	return err
}
