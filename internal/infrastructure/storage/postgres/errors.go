package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/apperror"
)

// PostgreSQL error codes the engine branches on.
const (
	pgLockNotAvailable     = "55P03"
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
)

// TranslateError maps driver errors to engine error codes.
// AppErrors and context cancellation pass through unchanged.
func TranslateError(err error, lockTimeout time.Duration) error {
	if err == nil {
		return nil
	}
	if apperror.IsAppError(err) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgLockNotAvailable:
			return apperror.NewLockTimeout("postgres", lockTimeout).WithCause(err)
		case pgUniqueViolation:
			return apperror.NewDuplicate(pgErr.TableName, pgErr.ConstraintName, pgErr.Detail).WithCause(err)
		case pgSerializationFailure:
			return apperror.NewTransactionFailure(err).WithDetail("retryable", true)
		}
	}
	return apperror.NewTransactionFailure(err)
}

// NotFound maps an empty scany result to a NOT_FOUND AppError.
func NotFound(err error, entity string, key any) error {
	if pgxscan.NotFound(err) {
		return apperror.NewNotFound(entity, key)
	}
	return err
}
