package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ludaNOFX/ludaproj-full/internal/domain"
	"github.com/ludaNOFX/ludaproj-full/internal/search"
	"github.com/ludaNOFX/ludaproj-full/internal/search/engine/memory"
	"github.com/ludaNOFX/ludaproj-full/pkg/pagination"
)

func newSearchRegistry() *search.Registry {
	registry := search.NewRegistry()
	registry.Register(domain.SearchKindUser, []search.Field{
		{Name: "username", Get: func(rec search.Searchable) any { return rec.(*domain.User).Username }},
	})
	registry.Register(domain.SearchKindProduct, []search.Field{
		{Name: "name", Get: func(rec search.Searchable) any { return rec.(*domain.Product).Name }},
	})
	return registry
}

func newTestSearchService(
	users *mockUserRepository,
	products *mockProductRepository,
	eng *memory.Engine,
) *SearchService {
	syncer := search.NewSynchronizer(eng, newSearchRegistry(), newTestLogger())
	return NewSearchService(syncer, users, products, newTestLogger())
}

func indexProducts(t *testing.T, eng *memory.Engine, products ...domain.Product) {
	t.Helper()
	for _, p := range products {
		require.NoError(t, eng.Upsert(context.Background(), domain.SearchKindProduct, p.ID, map[string]any{"name": p.Name}))
	}
}

func TestSearchService_SearchProducts_PreservesEngineRankOrder(t *testing.T) {
	users := new(mockUserRepository)
	products := new(mockProductRepository)
	eng := memory.New()
	svc := newTestSearchService(users, products, eng)
	ctx := context.Background()

	indexProducts(t, eng,
		domain.Product{ID: 7, Name: "brass lamp"},
		domain.Product{ID: 3, Name: "desk lamp"},
		domain.Product{ID: 9, Name: "lamp shade"},
	)

	ranked := []domain.Product{{ID: 7}, {ID: 3}, {ID: 9}}
	products.On("ListByIDsRanked", ctx, []int64{7, 3, 9}).Return(ranked, nil)

	result, err := svc.SearchProducts(ctx, "lamp", pagination.DefaultParams())

	require.NoError(t, err)
	assert.Equal(t, ranked, result.Data)
	assert.Equal(t, 3, result.TotalCount)
	products.AssertExpectations(t)
}

func TestSearchService_SearchProducts_NoEngineReturnsEmpty(t *testing.T) {
	users := new(mockUserRepository)
	products := new(mockProductRepository)
	syncer := search.NewSynchronizer(nil, newSearchRegistry(), newTestLogger())
	svc := NewSearchService(syncer, users, products, newTestLogger())

	result, err := svc.SearchProducts(context.Background(), "lamp", pagination.DefaultParams())

	require.NoError(t, err)
	assert.Empty(t, result.Data)
	assert.Equal(t, 0, result.TotalCount)
	products.AssertNotCalled(t, "ListByIDsRanked", mock.Anything, mock.Anything)
}

func TestSearchService_SearchUsers_MaterializesHits(t *testing.T) {
	users := new(mockUserRepository)
	products := new(mockProductRepository)
	eng := memory.New()
	svc := newTestSearchService(users, products, eng)
	ctx := context.Background()

	require.NoError(t, eng.Upsert(ctx, domain.SearchKindUser, 5, map[string]any{"username": "susan"}))

	users.On("ListByIDsRanked", ctx, []int64{5}).Return([]domain.User{{ID: 5, Username: "susan"}}, nil)

	result, err := svc.SearchUsers(ctx, "sus", pagination.DefaultParams())

	require.NoError(t, err)
	require.Len(t, result.Data, 1)
	assert.Equal(t, "susan", result.Data[0].Username)
}

func TestSearchService_SearchUsers_NoMatchesSkipsMaterialization(t *testing.T) {
	users := new(mockUserRepository)
	products := new(mockProductRepository)
	svc := newTestSearchService(users, products, memory.New())

	result, err := svc.SearchUsers(context.Background(), "nobody", pagination.DefaultParams())

	require.NoError(t, err)
	assert.Empty(t, result.Data)
	users.AssertNotCalled(t, "ListByIDsRanked", mock.Anything, mock.Anything)
}

func TestSearchService_Reindex_RebuildsBothKinds(t *testing.T) {
	users := new(mockUserRepository)
	products := new(mockProductRepository)
	eng := memory.New()
	svc := newTestSearchService(users, products, eng)
	ctx := context.Background()

	users.On("All", ctx).Return([]domain.User{{ID: 1, Username: "susan"}, {ID: 2, Username: "mary"}}, nil)
	products.On("All", ctx).Return([]domain.Product{{ID: 3, Name: "lamp"}}, nil)

	require.NoError(t, svc.Reindex(ctx))

	assert.Equal(t, 2, eng.Count(domain.SearchKindUser))
	assert.Equal(t, 1, eng.Count(domain.SearchKindProduct))
}

func TestSearchService_Reindex_Idempotent(t *testing.T) {
	users := new(mockUserRepository)
	products := new(mockProductRepository)
	eng := memory.New()
	svc := newTestSearchService(users, products, eng)
	ctx := context.Background()

	users.On("All", ctx).Return([]domain.User{{ID: 1, Username: "susan"}}, nil)
	products.On("All", ctx).Return([]domain.Product{{ID: 3, Name: "lamp"}}, nil)

	require.NoError(t, svc.Reindex(ctx))
	require.NoError(t, svc.Reindex(ctx))

	assert.Equal(t, 1, eng.Count(domain.SearchKindUser))
	assert.Equal(t, 1, eng.Count(domain.SearchKindProduct))
}
