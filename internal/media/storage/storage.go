// Package storage defines the file store contract for picture variants.
package storage

import (
	"context"
	"io"
)

// FileStore persists rendered picture variants under category-scoped
// locations ("product_pics", "profile_pics").
type FileStore interface {
	// Write stores the file contents under category/filename, overwriting
	// any existing file.
	Write(ctx context.Context, category, filename string, r io.Reader) error

	// Delete removes category/filename. Deleting an absent file is an error.
	Delete(ctx context.Context, category, filename string) error
}
