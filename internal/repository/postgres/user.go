package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ludaNOFX/ludaproj-full/internal/domain"
	"github.com/ludaNOFX/ludaproj-full/internal/search"
	"github.com/ludaNOFX/ludaproj-full/pkg/database"
	apperrors "github.com/ludaNOFX/ludaproj-full/pkg/errors"
)

const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// UserRepository implements user persistence using PostgreSQL. Mutations are
// recorded into the transaction's search change set when one is present.
type UserRepository struct {
	db database.DBTX
}

// NewUserRepository creates a new PostgreSQL-backed user repository.
func NewUserRepository(db database.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) c(ctx context.Context) database.DBTX { return conn(ctx, r.db) }

const userColumns = `id, username, email, password_hash, about_me, last_seen, created_at, updated_at`

// Create inserts a new user row.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (username, email, password_hash, about_me, last_seen)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	err := r.c(ctx).QueryRow(ctx, query,
		u.Username,
		u.Email,
		u.PasswordHash,
		u.AboutMe,
		u.LastSeen,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("user", "username or email", u.Username)
		}
		return fmt.Errorf("insert user: %w", err)
	}

	search.ChangeSetFromContext(ctx).Record(u, search.OpAdded)
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanUser(ctx, query, id)
}

// GetByUsername retrieves a user by username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return r.scanUser(ctx, query, username)
}

// GetByEmail retrieves a user by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.scanUser(ctx, query, email)
}

// Update modifies a user's profile fields.
func (r *UserRepository) Update(ctx context.Context, u *domain.User) error {
	u.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE users
		SET username = $1, email = $2, about_me = $3, updated_at = $4
		WHERE id = $5`

	ct, err := r.c(ctx).Exec(ctx, query,
		u.Username,
		u.Email,
		u.AboutMe,
		u.UpdatedAt,
		u.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("user", "username or email", u.Username)
		}
		return fmt.Errorf("update user: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("user", fmt.Sprintf("%d", u.ID))
	}

	search.ChangeSetFromContext(ctx).Record(u, search.OpUpdated)
	return nil
}

// UpdateLastSeen stamps the user's last activity time. The timestamp is not
// a searchable field, so no mutation is recorded.
func (r *UserRepository) UpdateLastSeen(ctx context.Context, id int64, seen time.Time) error {
	query := `UPDATE users SET last_seen = $1 WHERE id = $2`

	if _, err := r.c(ctx).Exec(ctx, query, seen, id); err != nil {
		return fmt.Errorf("update last seen: %w", err)
	}
	return nil
}

// ListByIDsRanked fetches users by ID and returns them in the order of the
// given id list, preserving index relevance ranking.
func (r *UserRepository) ListByIDsRanked(ctx context.Context, ids []int64) ([]domain.User, error) {
	if len(ids) == 0 {
		return []domain.User{}, nil
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE id = ANY($1)`

	rows, err := r.c(ctx).Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("list users by ids: %w", err)
	}
	defer rows.Close()

	users, err := collectUsers(rows)
	if err != nil {
		return nil, err
	}

	rankByID(users, ids, func(u domain.User) int64 { return u.ID })
	return users, nil
}

// All returns every user, for index rebuilds.
func (r *UserRepository) All(ctx context.Context) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY id`

	rows, err := r.c(ctx).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list all users: %w", err)
	}
	defer rows.Close()

	return collectUsers(rows)
}

func collectUsers(rows pgx.Rows) ([]domain.User, error) {
	users := []domain.User{}
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(
			&u.ID,
			&u.Username,
			&u.Email,
			&u.PasswordHash,
			&u.AboutMe,
			&u.LastSeen,
			&u.CreatedAt,
			&u.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan user row: %w", err)
		}
		users = append(users, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user rows: %w", err)
	}
	return users, nil
}

func (r *UserRepository) scanUser(ctx context.Context, query string, args ...any) (*domain.User, error) {
	var u domain.User

	err := r.c(ctx).QueryRow(ctx, query, args...).Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.AboutMe,
		&u.LastSeen,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	return &u, nil
}

// rankByID sorts items in place by the position of their ID in the ids list,
// so rows come back in index relevance order rather than store order.
func rankByID[T any](items []T, ids []int64, idOf func(T) int64) {
	rank := make(map[int64]int, len(ids))
	for i, id := range ids {
		rank[id] = i
	}

	sort.SliceStable(items, func(i, j int) bool {
		return rank[idOf(items[i])] < rank[idOf(items[j])]
	})
}
