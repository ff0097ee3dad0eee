package postgres

import (
	"context"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludaNOFX/ludaproj-full/pkg/database"
)

func setupFollowRepo(t *testing.T) (*FollowRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	repo := NewFollowRepository(mock)
	return repo, mock
}

func TestFollowRepository_Follow(t *testing.T) {
	repo, mock := setupFollowRepo(t)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO followers").
		WithArgs(int64(1), int64(2)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Follow(context.Background(), 1, 2))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFollowRepository_Follow_DuplicateIsNoop(t *testing.T) {
	repo, mock := setupFollowRepo(t)
	defer mock.Close()

	// ON CONFLICT DO NOTHING reports zero rows; still no error.
	mock.ExpectExec("INSERT INTO followers").
		WithArgs(int64(1), int64(2)).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	require.NoError(t, repo.Follow(context.Background(), 1, 2))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFollowRepository_Unfollow(t *testing.T) {
	repo, mock := setupFollowRepo(t)
	defer mock.Close()

	mock.ExpectExec("DELETE FROM followers").
		WithArgs(int64(1), int64(2)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, repo.Unfollow(context.Background(), 1, 2))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFollowRepository_IsFollowing(t *testing.T) {
	repo, mock := setupFollowRepo(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(int64(1), int64(2)).
		WillReturnRows(mock.NewRows([]string{"exists"}).AddRow(true))

	following, err := repo.IsFollowing(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.True(t, following)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFollowRepository_Counts(t *testing.T) {
	repo, mock := setupFollowRepo(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT count").
		WithArgs(int64(2)).
		WillReturnRows(mock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery("SELECT count").
		WithArgs(int64(2)).
		WillReturnRows(mock.NewRows([]string{"count"}).AddRow(5))

	followers, err := repo.CountFollowers(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 3, followers)

	followed, err := repo.CountFollowed(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 5, followed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
