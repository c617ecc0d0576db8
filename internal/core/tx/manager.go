// Package tx provides transaction management abstractions.
// Domain services depend on these interfaces, never on a concrete store.
package tx

import (
	"context"
)

// Manager defines the contract for transaction management.
// Implementations live in infrastructure/storage/sqlite and infrastructure/storage/postgres.
type Manager interface {
	// RunInTransaction executes fn within a database transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn succeeds, the transaction is committed.
	//
	// Nested calls reuse the existing transaction from context, so an
	// operation composed of several service calls stays all-or-nothing.
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ReadOnlyManager extends Manager with read-only transaction support.
// Use for consistent multi-query reads such as drift audits.
type ReadOnlyManager interface {
	Manager

	// ReadOnly executes fn in a read-only transaction.
	ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}
