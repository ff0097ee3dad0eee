// Package engine defines the contract between the index synchronizer and a
// concrete text-search backend.
package engine

import "context"

// Document is one record's index representation for bulk operations.
type Document struct {
	ID     int64
	Fields map[string]any
}

// Engine is the external text-search index client. Implementations must
// tolerate deletes of absent documents and repeated upserts of the same key.
type Engine interface {
	// Upsert writes the document for (kind, id), overwriting any previous
	// version.
	Upsert(ctx context.Context, kind string, id int64, doc map[string]any) error

	// Delete removes the document for (kind, id). Deleting a document that
	// does not exist is not an error.
	Delete(ctx context.Context, kind string, id int64) error

	// Search runs a multi-field match over the given fields and returns the
	// hit identifiers in relevance order plus the total match count.
	Search(ctx context.Context, kind, query string, fields []string, from, size int) (ids []int64, total int, err error)

	// BulkUpsert writes many documents of one kind in a single round trip.
	BulkUpsert(ctx context.Context, kind string, docs []Document) error
}
