// Package repokit is the SQL seam repositories are written against
package repokit

import (
	"context"

	"swiftconcur/internal/platform/store"
)

type (
	// Queryer is the read and write surface a bound repo uses
	Queryer = store.RowQuerier
	// TxRunner opens transactions
	TxRunner = store.TxRunner
	// Rows is a result set
	Rows = store.Rows
	// Row is a single row result
	Row = store.Row
	// CommandTag reports what a write touched
	CommandTag = store.CommandTag
)

// WithTx binds b inside one transaction and hands the repo to fn
func WithTx[T any](ctx context.Context, tx TxRunner, b Binder[T], fn func(repo T) error) error {
	return tx.Tx(ctx, func(q Queryer) error {
		return fn(b.Bind(q))
	})
}
