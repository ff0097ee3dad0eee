package search

import "context"

// Op classifies a primary-store mutation recorded in a ChangeSet.
type Op int

const (
	OpAdded Op = iota
	OpUpdated
	OpRemoved
)

// ChangeSet collects searchable mutations within a single write transaction.
// It is scoped to one request's transaction and is not safe for concurrent
// use; the transaction manager drains it exactly once at commit or rollback.
type ChangeSet struct {
	added   []Searchable
	updated []Searchable
	removed []Searchable
	drained bool
}

// Record appends a mutated record to the change set. Values that do not
// implement Searchable are silently ignored, so repositories can record every
// mutation without checking indexability themselves.
func (cs *ChangeSet) Record(rec any, op Op) {
	if cs == nil || cs.drained {
		return
	}

	s, ok := rec.(Searchable)
	if !ok {
		return
	}

	switch op {
	case OpAdded:
		cs.added = append(cs.added, s)
	case OpUpdated:
		cs.updated = append(cs.updated, s)
	case OpRemoved:
		cs.removed = append(cs.removed, s)
	}
}

// Empty reports whether the change set holds no recorded mutations.
func (cs *ChangeSet) Empty() bool {
	return cs == nil || (len(cs.added) == 0 && len(cs.updated) == 0 && len(cs.removed) == 0)
}

// drain consumes the change set. Subsequent drains return nothing so the
// projection runs at most once per transaction.
func (cs *ChangeSet) drain() (added, updated, removed []Searchable) {
	if cs == nil || cs.drained {
		return nil, nil, nil
	}

	cs.drained = true
	added, updated, removed = cs.added, cs.updated, cs.removed
	cs.added, cs.updated, cs.removed = nil, nil, nil
	return added, updated, removed
}

type changeSetKey struct{}

// NewContext returns a context carrying the given change set.
func NewContext(ctx context.Context, cs *ChangeSet) context.Context {
	return context.WithValue(ctx, changeSetKey{}, cs)
}

// ChangeSetFromContext extracts the active change set from the context.
// Returns nil when the caller is not inside a managed transaction; Record on
// a nil ChangeSet is a no-op, so call sites need no guard.
func ChangeSetFromContext(ctx context.Context) *ChangeSet {
	cs, _ := ctx.Value(changeSetKey{}).(*ChangeSet)
	return cs
}
