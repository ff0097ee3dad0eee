package service

import (
	"context"
	"log/slog"

	"github.com/ludaNOFX/ludaproj-full/internal/domain"
	"github.com/ludaNOFX/ludaproj-full/internal/search"
	"github.com/ludaNOFX/ludaproj-full/pkg/pagination"
)

// SearchUserRepository materializes ranked user hits.
type SearchUserRepository interface {
	ListByIDsRanked(ctx context.Context, ids []int64) ([]domain.User, error)
	All(ctx context.Context) ([]domain.User, error)
}

// SearchProductRepository materializes ranked product hits.
type SearchProductRepository interface {
	ListByIDsRanked(ctx context.Context, ids []int64) ([]domain.Product, error)
	All(ctx context.Context) ([]domain.Product, error)
}

// SearchService answers full-text queries by resolving engine hits back to
// database rows, and rebuilds the index from the store.
type SearchService struct {
	syncer   *search.Synchronizer
	users    SearchUserRepository
	products SearchProductRepository
	logger   *slog.Logger
}

// NewSearchService creates a search service.
func NewSearchService(
	syncer *search.Synchronizer,
	users SearchUserRepository,
	products SearchProductRepository,
	logger *slog.Logger,
) *SearchService {
	return &SearchService{
		syncer:   syncer,
		users:    users,
		products: products,
		logger:   logger,
	}
}

// SearchProducts returns products matching the query in engine rank order.
// Without a reachable engine the result is empty, never an error.
func (s *SearchService) SearchProducts(ctx context.Context, query string, params pagination.Params) (pagination.Result[domain.Product], error) {
	ids, total := s.syncer.Search(ctx, domain.SearchKindProduct, query, params.Page, params.PerPage)
	if len(ids) == 0 {
		return pagination.NewResult([]domain.Product{}, total, params), nil
	}

	products, err := s.products.ListByIDsRanked(ctx, ids)
	if err != nil {
		return pagination.Result[domain.Product]{}, err
	}
	return pagination.NewResult(products, total, params), nil
}

// SearchUsers returns users matching the query in engine rank order.
func (s *SearchService) SearchUsers(ctx context.Context, query string, params pagination.Params) (pagination.Result[domain.User], error) {
	ids, total := s.syncer.Search(ctx, domain.SearchKindUser, query, params.Page, params.PerPage)
	if len(ids) == 0 {
		return pagination.NewResult([]domain.User{}, total, params), nil
	}

	users, err := s.users.ListByIDsRanked(ctx, ids)
	if err != nil {
		return pagination.Result[domain.User]{}, err
	}
	return pagination.NewResult(users, total, params), nil
}

// Reindex rebuilds the engine's documents for every indexed kind from the
// store. Safe to run repeatedly.
func (s *SearchService) Reindex(ctx context.Context) error {
	sources := []search.Source{
		&userSource{users: s.users},
		&productSource{products: s.products},
	}

	for _, src := range sources {
		if err := s.syncer.ReindexAll(ctx, src); err != nil {
			return err
		}
	}
	return nil
}

type userSource struct {
	users SearchUserRepository
}

func (s *userSource) Kind() string { return domain.SearchKindUser }

func (s *userSource) All(ctx context.Context) ([]search.Searchable, error) {
	users, err := s.users.All(ctx)
	if err != nil {
		return nil, err
	}
	records := make([]search.Searchable, len(users))
	for i := range users {
		records[i] = &users[i]
	}
	return records, nil
}

type productSource struct {
	products SearchProductRepository
}

func (s *productSource) Kind() string { return domain.SearchKindProduct }

func (s *productSource) All(ctx context.Context) ([]search.Searchable, error) {
	products, err := s.products.All(ctx)
	if err != nil {
		return nil, err
	}
	records := make([]search.Searchable, len(products))
	for i := range products {
		records[i] = &products[i]
	}
	return records, nil
}
