// Package store provides the write-transaction boundary. Every mutating use
// case runs inside RunInTx so index projection is gated on a durable commit.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ludaNOFX/ludaproj-full/internal/search"
)

// Beginner starts a transaction. Satisfied by *pgxpool.Pool and
// pgxmock.PgxPoolIface.
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// TxManager runs functions inside a database transaction with an attached
// search change set. On commit the recorded mutations are projected into the
// index; on rollback they are discarded.
type TxManager struct {
	db     Beginner
	syncer *search.Synchronizer
}

// NewTxManager creates a transaction manager.
func NewTxManager(db Beginner, syncer *search.Synchronizer) *TxManager {
	return &TxManager{
		db:     db,
		syncer: syncer,
	}
}

type txKey struct{}

// TxFromContext returns the transaction attached by RunInTx, or nil outside
// a managed transaction. Repositories use it to route statements through the
// active transaction transparently.
func TxFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(txKey{}).(pgx.Tx)
	return tx
}

// RunInTx begins a transaction, attaches it and a change set to the context,
// and invokes fn. Repositories called by fn route their statements through
// the transaction and record searchable mutations through
// search.ChangeSetFromContext. If fn and the commit succeed, the change set
// is projected into the index; any other outcome discards it.
//
// The index projection runs synchronously after commit with no timeout of
// its own; cancellation is governed solely by ctx.
func (m *TxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	cs := m.syncer.Begin()
	ctx = search.NewContext(ctx, cs)

	tx, err := m.db.Begin(ctx)
	if err != nil {
		m.syncer.Rollback(cs)
		return fmt.Errorf("begin tx: %w", err)
	}
	ctx = context.WithValue(ctx, txKey{}, tx)

	if err := fn(ctx); err != nil {
		_ = tx.Rollback(ctx)
		m.syncer.Rollback(cs)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		m.syncer.Rollback(cs)
		return fmt.Errorf("commit tx: %w", err)
	}

	m.syncer.CommitSucceeded(ctx, cs)
	return nil
}
