// Package disk implements the picture file store on the local filesystem.
package disk

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Store writes variant files under <root>/<category>/<filename>.
type Store struct {
	root string
}

// New creates a disk store rooted at the given directory, creating it if
// necessary.
func New(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root %s: %w", root, err)
	}
	return &Store{root: root}, nil
}

// Write stores the file contents under the category directory.
func (s *Store) Write(_ context.Context, category, filename string, r io.Reader) error {
	dir := filepath.Join(s.root, category)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create category dir %s: %w", dir, err)
	}

	path := filepath.Join(dir, filename)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file %s: %w", path, err)
	}

	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return fmt.Errorf("write file %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close file %s: %w", path, err)
	}
	return nil
}

// Delete removes the file from the category directory.
func (s *Store) Delete(_ context.Context, category, filename string) error {
	path := filepath.Join(s.root, category, filename)
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("delete file %s: %w", path, err)
	}
	return nil
}
