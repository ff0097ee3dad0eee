package postgres

import (
	"context"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludaNOFX/ludaproj-full/pkg/database"
)

func setupCartRepo(t *testing.T) (*CartRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	repo := NewCartRepository(mock)
	return repo, mock
}

func TestCartRepository_AddAndRemove(t *testing.T) {
	repo, mock := setupCartRepo(t)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO cart").
		WithArgs(int64(1), int64(5)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("DELETE FROM cart WHERE user_cart_id").
		WithArgs(int64(1), int64(5)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, repo.Add(context.Background(), 1, 5))
	require.NoError(t, repo.Remove(context.Background(), 1, 5))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepository_Contains(t *testing.T) {
	repo, mock := setupCartRepo(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(int64(1), int64(5)).
		WillReturnRows(mock.NewRows([]string{"exists"}).AddRow(false))

	in, err := repo.Contains(context.Background(), 1, 5)
	require.NoError(t, err)
	assert.False(t, in)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepository_ListProducts(t *testing.T) {
	repo, mock := setupCartRepo(t)
	defer mock.Close()

	cols := append(append([]string{}, productCols...), "total_count")
	rows := mock.NewRows(cols)
	for _, id := range []int64{9, 3} {
		p := sampleProduct(id)
		rows.AddRow(p.ID, p.Name, p.Slug, p.Description, p.Price, p.UserID,
			p.IsPurchased, p.CreatedAt, p.UpdatedAt, 12)
	}

	mock.ExpectQuery("SELECT .+ FROM products p").
		WithArgs(int64(1), 20, 0).
		WillReturnRows(rows)

	products, total, err := repo.ListProducts(context.Background(), 1, 20, 0)
	require.NoError(t, err)
	assert.Equal(t, 12, total)
	require.Len(t, products, 2)
	assert.Equal(t, int64(9), products[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepository_ListProducts_Empty(t *testing.T) {
	repo, mock := setupCartRepo(t)
	defer mock.Close()

	cols := append(append([]string{}, productCols...), "total_count")
	mock.ExpectQuery("SELECT .+ FROM products p").
		WithArgs(int64(1), 20, 0).
		WillReturnRows(mock.NewRows(cols))

	products, total, err := repo.ListProducts(context.Background(), 1, 20, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, products)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepository_Clear(t *testing.T) {
	repo, mock := setupCartRepo(t)
	defer mock.Close()

	mock.ExpectExec("DELETE FROM cart WHERE product_id").
		WithArgs(int64(5)).
		WillReturnResult(pgxmock.NewResult("DELETE", 4))

	require.NoError(t, repo.Clear(context.Background(), 5))
	assert.NoError(t, mock.ExpectationsWereMet())
}
