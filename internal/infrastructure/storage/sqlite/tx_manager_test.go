package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/apperror"
	"github.com/DarkSario/2025-Interactifs-Gestion/pkg/logger"
)

func newMockTxManager(t *testing.T) (*TxManager, sqlmock.Sqlmock) {
	t.Helper()

	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	mock.ExpectQuery(`select sqlite_version\(\)`).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow("3.45.1"))

	cfg := DefaultConfig("/tmp/association.db")
	cfg.BusyTimeout = 250 * time.Millisecond
	cfg.Tracing = false

	db, err := NewFromConn(conn, cfg)
	require.NoError(t, err)
	return NewTxManager(db), mock
}

func testContext() context.Context {
	return logger.WithLogger(context.Background(), logger.NewNop())
}

func TestRunInTransaction_BusyBecomesLockTimeout(t *testing.T) {
	txm, mock := newMockTxManager(t)
	mock.ExpectBegin().WillReturnError(sqlite3.Error{Code: sqlite3.ErrBusy})

	called := false
	err := txm.RunInTransaction(testContext(), func(ctx context.Context) error {
		called = true
		return nil
	})

	require.Error(t, err)
	assert.False(t, called)
	assert.True(t, apperror.IsLockTimeout(err))

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "/tmp/association.db", appErr.Details["resource"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTransaction_DriverErrorRollsBack(t *testing.T) {
	txm, mock := newMockTxManager(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE articles").WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	err := txm.RunInTransaction(testContext(), func(ctx context.Context) error {
		return txm.Conn(ctx).Exec("UPDATE articles SET stock = ?", 1).Error
	})

	require.Error(t, err)
	assert.True(t, apperror.IsTransactionFailure(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTransaction_AppErrorPassesThrough(t *testing.T) {
	txm, mock := newMockTxManager(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	err := txm.RunInTransaction(testContext(), func(ctx context.Context) error {
		return apperror.NewValidation("counted quantity must not be negative")
	})

	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTransaction_NestedReusesOuter(t *testing.T) {
	txm, mock := newMockTxManager(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	err := txm.RunInTransaction(testContext(), func(ctx context.Context) error {
		outer := txm.GetTx(ctx)
		require.NotNil(t, outer)
		return txm.RunInTransaction(ctx, func(ctx context.Context) error {
			assert.Same(t, outer, txm.GetTx(ctx))
			return nil
		})
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"busy", sqlite3.Error{Code: sqlite3.ErrBusy}, apperror.IsLockTimeout},
		{"locked", sqlite3.Error{Code: sqlite3.ErrLocked}, apperror.IsLockTimeout},
		{"constraint", sqlite3.Error{Code: sqlite3.ErrConstraint}, apperror.IsTransactionFailure},
		{"app error", apperror.NewNotFound("article", "x"), apperror.IsNotFound},
		{"canceled", context.Canceled, func(err error) bool { return errors.Is(err, context.Canceled) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(translateError(tt.err, "db", time.Second)))
		})
	}
	assert.NoError(t, translateError(nil, "db", time.Second))
}
