// Package postgres implements the persistence layer. Repositories are bound
// to the connection pool but route statements through the transaction
// attached to the context by store.TxManager when one is active.
package postgres

import (
	"context"

	"github.com/ludaNOFX/ludaproj-full/internal/store"
	"github.com/ludaNOFX/ludaproj-full/pkg/database"
)

// conn returns the active transaction from the context, falling back to the
// repository's own connection.
func conn(ctx context.Context, fallback database.DBTX) database.DBTX {
	if tx := store.TxFromContext(ctx); tx != nil {
		return tx
	}
	return fallback
}
