// Package memory implements the picture file store with an in-memory map,
// for tests and environments without disk access.
package memory

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Store keeps file contents in memory, keyed by category/filename.
// Thread-safe via sync.RWMutex.
type Store struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// New creates a new in-memory file store.
func New() *Store {
	return &Store{
		files: make(map[string][]byte),
	}
}

func key(category, filename string) string {
	return category + "/" + filename
}

// Write stores the file contents in memory.
func (s *Store) Write(_ context.Context, category, filename string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read contents: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.files[key(category, filename)] = data
	return nil
}

// Delete removes a file from memory.
func (s *Store) Delete(_ context.Context, category, filename string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(category, filename)
	if _, exists := s.files[k]; !exists {
		return fmt.Errorf("file not found: %s", k)
	}

	delete(s.files, k)
	return nil
}

// Exists reports whether a file is held in memory, for test inspection.
func (s *Store) Exists(category, filename string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.files[key(category, filename)]
	return exists
}

// Len returns the number of stored files.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.files)
}
