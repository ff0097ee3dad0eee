package postgres

import (
	"context"
	"fmt"

	"github.com/ludaNOFX/ludaproj-full/pkg/database"
)

// FollowRepository manages the follower graph using PostgreSQL.
type FollowRepository struct {
	db database.DBTX
}

// NewFollowRepository creates a new PostgreSQL-backed follow repository.
func NewFollowRepository(db database.DBTX) *FollowRepository {
	return &FollowRepository{db: db}
}

func (r *FollowRepository) c(ctx context.Context) database.DBTX { return conn(ctx, r.db) }

// Follow adds a follower edge. Following twice is a no-op.
func (r *FollowRepository) Follow(ctx context.Context, followerID, followedID int64) error {
	query := `
		INSERT INTO followers (follower_id, followed_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`

	if _, err := r.c(ctx).Exec(ctx, query, followerID, followedID); err != nil {
		return fmt.Errorf("insert follower edge: %w", err)
	}
	return nil
}

// Unfollow removes a follower edge. Unfollowing a user that is not followed
// is a no-op.
func (r *FollowRepository) Unfollow(ctx context.Context, followerID, followedID int64) error {
	query := `DELETE FROM followers WHERE follower_id = $1 AND followed_id = $2`

	if _, err := r.c(ctx).Exec(ctx, query, followerID, followedID); err != nil {
		return fmt.Errorf("delete follower edge: %w", err)
	}
	return nil
}

// IsFollowing reports whether the follower edge exists.
func (r *FollowRepository) IsFollowing(ctx context.Context, followerID, followedID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM followers WHERE follower_id = $1 AND followed_id = $2)`

	var exists bool
	if err := r.c(ctx).QueryRow(ctx, query, followerID, followedID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check follower edge: %w", err)
	}
	return exists, nil
}

// CountFollowers returns how many users follow the given user.
func (r *FollowRepository) CountFollowers(ctx context.Context, userID int64) (int, error) {
	query := `SELECT count(*) FROM followers WHERE followed_id = $1`

	var count int
	if err := r.c(ctx).QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count followers: %w", err)
	}
	return count, nil
}

// CountFollowed returns how many users the given user follows.
func (r *FollowRepository) CountFollowed(ctx context.Context, userID int64) (int, error) {
	query := `SELECT count(*) FROM followers WHERE follower_id = $1`

	var count int
	if err := r.c(ctx).QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count followed: %w", err)
	}
	return count, nil
}
