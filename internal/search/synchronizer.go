// Package search keeps an external text index in best-effort sync with the
// primary store. Mutations are collected per transaction and projected into
// the index only after the transaction durably commits; the index is a
// derived, rebuildable view and never blocks primary-store writes.
package search

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ludaNOFX/ludaproj-full/internal/search/engine"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// Source supplies every primary-store record of one kind for a full reindex.
type Source interface {
	Kind() string
	All(ctx context.Context) ([]Searchable, error)
}

// Synchronizer projects committed mutations into the external index and
// answers search queries with ranked primary-store identifiers.
//
// A nil engine is tolerated: projection becomes a no-op and searches return
// empty results, so the application runs without a configured index.
type Synchronizer struct {
	engine   engine.Engine
	registry *Registry
	logger   *slog.Logger
}

// NewSynchronizer creates a synchronizer. engine may be nil.
func NewSynchronizer(eng engine.Engine, registry *Registry, logger *slog.Logger) *Synchronizer {
	return &Synchronizer{
		engine:   eng,
		registry: registry,
		logger:   logger,
	}
}

// Registry returns the field registry the synchronizer projects with.
func (s *Synchronizer) Registry() *Registry {
	return s.registry
}

// Begin opens a change set for a new write transaction.
func (s *Synchronizer) Begin() *ChangeSet {
	return &ChangeSet{}
}

// CommitSucceeded drains the change set and projects it into the index:
// added and updated records are upserted, removed records are deleted.
// Index failures are logged and swallowed; the committed transaction is the
// source of truth and a later full reindex reconciles any drift.
func (s *Synchronizer) CommitSucceeded(ctx context.Context, cs *ChangeSet) {
	added, updated, removed := cs.drain()

	if s.engine == nil {
		return
	}

	for _, rec := range added {
		s.upsert(ctx, rec)
	}
	for _, rec := range updated {
		s.upsert(ctx, rec)
	}
	for _, rec := range removed {
		if err := s.engine.Delete(ctx, rec.SearchKind(), rec.SearchID()); err != nil {
			s.logger.WarnContext(ctx, "index delete failed, document will drift",
				slog.String("kind", rec.SearchKind()),
				slog.Int64("id", rec.SearchID()),
				slog.String("error", err.Error()),
			)
		}
	}
}

// Rollback discards the change set without projecting anything.
func (s *Synchronizer) Rollback(cs *ChangeSet) {
	cs.drain()
}

// Search returns ranked primary-store identifiers and the total match count
// for a multi-field query over the kind's registered fields. An absent engine
// or any engine failure degrades to an empty result, never an error.
func (s *Synchronizer) Search(ctx context.Context, kind, query string, page, perPage int) ([]int64, int) {
	if s.engine == nil {
		return []int64{}, 0
	}

	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	fields := s.registry.FieldNames(kind)
	from := (page - 1) * perPage

	ids, total, err := s.engine.Search(ctx, kind, query, fields, from, perPage)
	if err != nil {
		s.logger.WarnContext(ctx, "index search failed, returning empty result",
			slog.String("kind", kind),
			slog.String("query", query),
			slog.String("error", err.Error()),
		)
		return []int64{}, 0
	}

	if ids == nil {
		ids = []int64{}
	}
	return ids, total
}

// ReindexAll rebuilds the index for one kind from the primary store with an
// unconditional bulk upsert. Running it twice yields the same index content.
func (s *Synchronizer) ReindexAll(ctx context.Context, src Source) error {
	if s.engine == nil {
		return nil
	}

	kind := src.Kind()

	records, err := src.All(ctx)
	if err != nil {
		return fmt.Errorf("reindex %s: load records: %w", kind, err)
	}

	docs := make([]engine.Document, 0, len(records))
	for _, rec := range records {
		fields, ok := s.registry.Document(rec)
		if !ok {
			return fmt.Errorf("reindex %s: kind not registered", kind)
		}
		docs = append(docs, engine.Document{ID: rec.SearchID(), Fields: fields})
	}

	if err := s.engine.BulkUpsert(ctx, kind, docs); err != nil {
		return fmt.Errorf("reindex %s: %w", kind, err)
	}

	s.logger.InfoContext(ctx, "reindex completed",
		slog.String("kind", kind),
		slog.Int("count", len(docs)),
	)
	return nil
}

func (s *Synchronizer) upsert(ctx context.Context, rec Searchable) {
	doc, ok := s.registry.Document(rec)
	if !ok {
		s.logger.WarnContext(ctx, "no field table registered for kind, skipping",
			slog.String("kind", rec.SearchKind()),
			slog.Int64("id", rec.SearchID()),
		)
		return
	}

	if err := s.engine.Upsert(ctx, rec.SearchKind(), rec.SearchID(), doc); err != nil {
		s.logger.WarnContext(ctx, "index upsert failed, document will drift",
			slog.String("kind", rec.SearchKind()),
			slog.Int64("id", rec.SearchID()),
			slog.String("error", err.Error()),
		)
	}
}
