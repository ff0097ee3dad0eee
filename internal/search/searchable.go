package search

import "sync"

// Searchable is the capability interface for entities that project into the
// external text index. Implementations declare their index kind and a stable
// integer identifier.
type Searchable interface {
	SearchKind() string
	SearchID() int64
}

// Field binds a searchable field name to its accessor. Accessors are resolved
// once at registration so document building never touches reflection.
type Field struct {
	Name string
	Get  func(Searchable) any
}

// Registry maps an index kind to its ordered field accessor table.
type Registry struct {
	mu    sync.RWMutex
	kinds map[string][]Field
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		kinds: make(map[string][]Field),
	}
}

// Register declares the searchable fields for a kind. Calling Register twice
// for the same kind replaces the previous field table.
func (r *Registry) Register(kind string, fields []Field) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.kinds[kind] = fields
}

// FieldNames returns the declared field names for a kind in registration order.
func (r *Registry) FieldNames(kind string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fields, ok := r.kinds[kind]
	if !ok {
		return nil
	}

	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, f.Name)
	}
	return names
}

// Kinds returns all registered kinds.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, 0, len(r.kinds))
	for k := range r.kinds {
		kinds = append(kinds, k)
	}
	return kinds
}

// Document builds the index document for a record from its registered field
// table. The second return value is false when the record's kind has no
// registered fields.
func (r *Registry) Document(rec Searchable) (map[string]any, bool) {
	r.mu.RLock()
	fields, ok := r.kinds[rec.SearchKind()]
	r.mu.RUnlock()

	if !ok {
		return nil, false
	}

	doc := make(map[string]any, len(fields))
	for _, f := range fields {
		doc[f.Name] = f.Get(rec)
	}
	return doc, true
}
