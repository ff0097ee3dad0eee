// Package memory implements the search engine contract with an in-memory
// map. It provides simple substring matching and serves as the test double
// for environments without a configured index.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ludaNOFX/ludaproj-full/internal/search/engine"
)

// Engine is an in-memory implementation of engine.Engine. Hits are returned
// in insertion order. Thread-safe via sync.RWMutex.
type Engine struct {
	mu    sync.RWMutex
	docs  map[string]map[int64]map[string]any
	order map[string][]int64
}

// New creates a new in-memory search engine.
func New() *Engine {
	return &Engine{
		docs:  make(map[string]map[int64]map[string]any),
		order: make(map[string][]int64),
	}
}

// Upsert adds or overwrites a single document.
func (e *Engine) Upsert(_ context.Context, kind string, id int64, doc map[string]any) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.upsertLocked(kind, id, doc)
	return nil
}

// Delete removes a document by its ID. Absent documents are ignored.
func (e *Engine) Delete(_ context.Context, kind string, id int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.docs[kind][id]; !ok {
		return nil
	}

	delete(e.docs[kind], id)
	ids := e.order[kind]
	for i, existing := range ids {
		if existing == id {
			e.order[kind] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

// Search matches documents whose field values contain the query as a
// case-insensitive substring. An empty query matches everything.
func (e *Engine) Search(_ context.Context, kind, query string, fields []string, from, size int) ([]int64, int, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	queryLower := strings.ToLower(query)

	matched := make([]int64, 0)
	for _, id := range e.order[kind] {
		if e.matches(e.docs[kind][id], fields, queryLower) {
			matched = append(matched, id)
		}
	}

	total := len(matched)

	if from < 0 {
		from = 0
	}
	if from > total {
		from = total
	}
	end := from + size
	if size <= 0 || end > total {
		end = total
	}

	return matched[from:end], total, nil
}

// BulkUpsert adds or overwrites multiple documents of one kind.
func (e *Engine) BulkUpsert(_ context.Context, kind string, docs []engine.Document) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range docs {
		e.upsertLocked(kind, docs[i].ID, docs[i].Fields)
	}
	return nil
}

// Count returns the number of documents held for a kind.
func (e *Engine) Count(kind string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return len(e.docs[kind])
}

// Document returns a stored document by key, for test inspection.
func (e *Engine) Document(kind string, id int64) (map[string]any, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	doc, ok := e.docs[kind][id]
	return doc, ok
}

func (e *Engine) upsertLocked(kind string, id int64, doc map[string]any) {
	if e.docs[kind] == nil {
		e.docs[kind] = make(map[int64]map[string]any)
	}
	if _, exists := e.docs[kind][id]; !exists {
		e.order[kind] = append(e.order[kind], id)
	}
	e.docs[kind][id] = doc
}

// matches checks whether any of the given fields contains the query
// substring. Non-string values are compared via their default formatting.
func (e *Engine) matches(doc map[string]any, fields []string, queryLower string) bool {
	if queryLower == "" {
		return true
	}

	for _, name := range fields {
		value, ok := doc[name]
		if !ok {
			continue
		}
		var text string
		switch v := value.(type) {
		case string:
			text = v
		default:
			text = fmt.Sprint(v)
		}
		if strings.Contains(strings.ToLower(text), queryLower) {
			return true
		}
	}
	return false
}
