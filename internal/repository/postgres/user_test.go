package postgres

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludaNOFX/ludaproj-full/internal/domain"
	"github.com/ludaNOFX/ludaproj-full/internal/search"
	"github.com/ludaNOFX/ludaproj-full/pkg/database"
	apperrors "github.com/ludaNOFX/ludaproj-full/pkg/errors"
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func setupUserRepo(t *testing.T) (*UserRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	repo := NewUserRepository(mock)
	return repo, mock
}

var userCols = []string{
	"id", "username", "email", "password_hash", "about_me",
	"last_seen", "created_at", "updated_at",
}

func sampleUser(id int64) domain.User {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return domain.User{
		ID:           id,
		Username:     "susan",
		Email:        "susan@example.com",
		PasswordHash: "$2a$04$hash",
		AboutMe:      "collector of lamps",
		LastSeen:     ts,
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}
}

func userRow(mock pgxmock.PgxPoolIface, u domain.User) *pgxmock.Rows {
	return mock.NewRows(userCols).AddRow(
		u.ID, u.Username, u.Email, u.PasswordHash, u.AboutMe,
		u.LastSeen, u.CreatedAt, u.UpdatedAt,
	)
}

// ---------------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------------

func TestUserRepository_Create_RecordsAddedMutation(t *testing.T) {
	repo, mock := setupUserRepo(t)
	defer mock.Close()

	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("INSERT INTO users").
		WithArgs("susan", "susan@example.com", "$2a$04$hash", "", ts).
		WillReturnRows(mock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(int64(7), ts, ts))

	cs := &search.ChangeSet{}
	ctx := search.NewContext(context.Background(), cs)

	u := &domain.User{
		Username:     "susan",
		Email:        "susan@example.com",
		PasswordHash: "$2a$04$hash",
		LastSeen:     ts,
	}
	err := repo.Create(ctx, u)
	require.NoError(t, err)

	assert.Equal(t, int64(7), u.ID)
	assert.False(t, cs.Empty())
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// Lookups
// ---------------------------------------------------------------------------

func TestUserRepository_GetByUsername_Success(t *testing.T) {
	repo, mock := setupUserRepo(t)
	defer mock.Close()

	want := sampleUser(7)
	mock.ExpectQuery("SELECT .+ FROM users WHERE username").
		WithArgs("susan").
		WillReturnRows(userRow(mock, want))

	got, err := repo.GetByUsername(context.Background(), "susan")
	require.NoError(t, err)
	assert.Equal(t, want, *got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := setupUserRepo(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM users WHERE id").
		WithArgs(int64(99)).
		WillReturnRows(mock.NewRows(userCols))

	_, err := repo.GetByID(context.Background(), 99)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// Update
// ---------------------------------------------------------------------------

func TestUserRepository_Update_RecordsUpdatedMutation(t *testing.T) {
	repo, mock := setupUserRepo(t)
	defer mock.Close()

	mock.ExpectExec("UPDATE users").
		WithArgs("susan", "susan@example.com", "new bio", pgxmock.AnyArg(), int64(7)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	cs := &search.ChangeSet{}
	ctx := search.NewContext(context.Background(), cs)

	u := sampleUser(7)
	u.AboutMe = "new bio"
	err := repo.Update(ctx, &u)
	require.NoError(t, err)

	assert.False(t, cs.Empty())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Update_NotFound(t *testing.T) {
	repo, mock := setupUserRepo(t)
	defer mock.Close()

	mock.ExpectExec("UPDATE users").
		WithArgs("susan", "susan@example.com", "collector of lamps", pgxmock.AnyArg(), int64(99)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	u := sampleUser(99)
	err := repo.Update(context.Background(), &u)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// UpdateLastSeen
// ---------------------------------------------------------------------------

func TestUserRepository_UpdateLastSeen_NoMutationRecorded(t *testing.T) {
	repo, mock := setupUserRepo(t)
	defer mock.Close()

	seen := time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC)
	mock.ExpectExec("UPDATE users SET last_seen").
		WithArgs(seen, int64(7)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	cs := &search.ChangeSet{}
	ctx := search.NewContext(context.Background(), cs)

	require.NoError(t, repo.UpdateLastSeen(ctx, 7, seen))
	assert.True(t, cs.Empty())
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// ListByIDsRanked
// ---------------------------------------------------------------------------

func TestUserRepository_ListByIDsRanked_PreservesHitOrder(t *testing.T) {
	repo, mock := setupUserRepo(t)
	defer mock.Close()

	rows := mock.NewRows(userCols)
	for _, id := range []int64{2, 5, 8} {
		u := sampleUser(id)
		rows.AddRow(u.ID, u.Username, u.Email, u.PasswordHash, u.AboutMe,
			u.LastSeen, u.CreatedAt, u.UpdatedAt)
	}

	mock.ExpectQuery("SELECT .+ FROM users WHERE id = ANY").
		WithArgs([]int64{5, 8, 2}).
		WillReturnRows(rows)

	got, err := repo.ListByIDsRanked(context.Background(), []int64{5, 8, 2})
	require.NoError(t, err)

	require.Len(t, got, 3)
	assert.Equal(t, int64(5), got[0].ID)
	assert.Equal(t, int64(8), got[1].ID)
	assert.Equal(t, int64(2), got[2].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_ListByIDsRanked_EmptyInput(t *testing.T) {
	repo, mock := setupUserRepo(t)
	defer mock.Close()

	got, err := repo.ListByIDsRanked(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}
