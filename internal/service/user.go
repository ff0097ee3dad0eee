// Package service implements the application use cases on top of the
// repositories, the index synchronizer, and the derivative asset manager.
package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/ludaNOFX/ludaproj-full/internal/auth"
	"github.com/ludaNOFX/ludaproj-full/internal/domain"
	"github.com/ludaNOFX/ludaproj-full/internal/event"
	"github.com/ludaNOFX/ludaproj-full/internal/media"
	apperrors "github.com/ludaNOFX/ludaproj-full/pkg/errors"
)

// TxRunner runs a function inside a managed write transaction.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// UserRepository is the persistence surface the user service depends on.
type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, u *domain.User) error
	UpdateLastSeen(ctx context.Context, id int64, seen time.Time) error
	ListByIDsRanked(ctx context.Context, ids []int64) ([]domain.User, error)
}

// FollowRepository is the follower graph surface the user service depends on.
type FollowRepository interface {
	Follow(ctx context.Context, followerID, followedID int64) error
	Unfollow(ctx context.Context, followerID, followedID int64) error
	IsFollowing(ctx context.Context, followerID, followedID int64) (bool, error)
	CountFollowers(ctx context.Context, userID int64) (int, error)
	CountFollowed(ctx context.Context, userID int64) (int, error)
}

// LastSeenCache tracks user activity timestamps.
type LastSeenCache interface {
	Touch(ctx context.Context, userID int64, seen time.Time) error
	Get(ctx context.Context, userID int64) (time.Time, error)
}

// PictureManager is the derivative asset surface consumed by services.
type PictureManager interface {
	CreatePicture(ctx context.Context, src io.Reader, origName string, owner media.Owner, category string, sizes []media.Size) (*media.Picture, error)
	ReplacePicture(ctx context.Context, src io.Reader, origName string, owner media.Owner, category string, sizes []media.Size) (*media.Picture, bool, error)
}

// RegisterInput holds the fields required to create an account.
type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email" validate:"required,email,max=120"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	AboutMe  string `json:"about_me" validate:"max=140"`
}

// UpdateProfileInput holds the editable profile fields.
type UpdateProfileInput struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	AboutMe  string `json:"about_me" validate:"max=140"`
}

// Profile is a user together with follow graph counts.
type Profile struct {
	User        *domain.User `json:"user"`
	Followers   int          `json:"followers"`
	Followed    int          `json:"followed"`
	IsFollowing bool         `json:"is_following,omitempty"`
}

// UserService implements account, profile, and follow graph use cases.
type UserService struct {
	users    UserRepository
	follows  FollowRepository
	tx       TxRunner
	jwt      *auth.JWTManager
	lastSeen LastSeenCache
	pictures PictureManager
	events   event.Publisher
	logger   *slog.Logger
}

// NewUserService creates a user service.
func NewUserService(
	users UserRepository,
	follows FollowRepository,
	tx TxRunner,
	jwt *auth.JWTManager,
	lastSeen LastSeenCache,
	pictures PictureManager,
	events event.Publisher,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		users:    users,
		follows:  follows,
		tx:       tx,
		jwt:      jwt,
		lastSeen: lastSeen,
		pictures: pictures,
		events:   events,
		logger:   logger,
	}
}

// Register creates a new account with a bcrypt password hash.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: string(hash),
		AboutMe:      input.AboutMe,
		LastSeen:     time.Now().UTC(),
	}

	if err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		return s.users.Create(ctx, user)
	}); err != nil {
		return nil, err
	}

	s.events.UserRegistered(ctx, user)

	s.logger.InfoContext(ctx, "user registered",
		slog.Int64("user_id", user.ID),
		slog.String("username", user.Username),
	)
	return user, nil
}

// Login verifies credentials and issues a token pair.
func (s *UserService) Login(ctx context.Context, username, password string) (*domain.User, *domain.TokenPair, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		// Same response for unknown user and bad password.
		return nil, nil, apperrors.Unauthorized("invalid username or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, apperrors.Unauthorized("invalid username or password")
	}

	pair, err := s.issueTokens(user)
	if err != nil {
		return nil, nil, err
	}

	s.TouchLastSeen(ctx, user.ID)
	return user, pair, nil
}

// Refresh validates a refresh token and issues a fresh pair.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid refresh token")
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid refresh token")
	}

	return s.issueTokens(user)
}

func (s *UserService) issueTokens(user *domain.User) (*domain.TokenPair, error) {
	access, err := s.jwt.GenerateAccessToken(user.ID, user.Username)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}
	refresh, err := s.jwt.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}
	return &domain.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// TouchLastSeen stamps activity in the cache and the store. Both writes are
// best effort.
func (s *UserService) TouchLastSeen(ctx context.Context, userID int64) {
	now := time.Now().UTC()

	if err := s.lastSeen.Touch(ctx, userID, now); err != nil {
		s.logger.WarnContext(ctx, "last seen cache write failed",
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
	if err := s.users.UpdateLastSeen(ctx, userID, now); err != nil {
		s.logger.WarnContext(ctx, "last seen store write failed",
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
}

// GetProfile returns a user's profile with follow counts. viewerID may be
// zero for anonymous viewers.
func (s *UserService) GetProfile(ctx context.Context, username string, viewerID int64) (*Profile, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	// The cache holds a fresher timestamp than the store when the user has
	// been active since the last persisted stamp.
	if seen, err := s.lastSeen.Get(ctx, user.ID); err == nil && seen.After(user.LastSeen) {
		user.LastSeen = seen
	}

	followers, err := s.follows.CountFollowers(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	followed, err := s.follows.CountFollowed(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	profile := &Profile{
		User:      user,
		Followers: followers,
		Followed:  followed,
	}

	if viewerID != 0 && viewerID != user.ID {
		following, err := s.follows.IsFollowing(ctx, viewerID, user.ID)
		if err != nil {
			return nil, err
		}
		profile.IsFollowing = following
	}

	return profile, nil
}

// UpdateProfile modifies the caller's editable profile fields.
func (s *UserService) UpdateProfile(ctx context.Context, userID int64, input UpdateProfileInput) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.Username = input.Username
	user.AboutMe = input.AboutMe

	if err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		return s.users.Update(ctx, user)
	}); err != nil {
		return nil, err
	}

	return user, nil
}

// Follow adds the caller as a follower of the named user.
func (s *UserService) Follow(ctx context.Context, followerID int64, username string) error {
	target, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return err
	}

	if target.ID == followerID {
		return apperrors.InvalidInput("cannot follow yourself")
	}

	if err := s.follows.Follow(ctx, followerID, target.ID); err != nil {
		return err
	}

	s.events.UserFollowed(ctx, followerID, target.ID)
	return nil
}

// Unfollow removes the caller from the named user's followers.
func (s *UserService) Unfollow(ctx context.Context, followerID int64, username string) error {
	target, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return err
	}

	if target.ID == followerID {
		return apperrors.InvalidInput("cannot unfollow yourself")
	}

	if err := s.follows.Unfollow(ctx, followerID, target.ID); err != nil {
		return err
	}

	s.events.UserUnfollowed(ctx, followerID, target.ID)
	return nil
}

// SetProfilePicture replaces the caller's profile picture with variants
// rendered at the standard profile sizes.
func (s *UserService) SetProfilePicture(ctx context.Context, userID int64, src io.Reader, origName string) (*media.Picture, error) {
	owner := media.Owner{UserID: &userID}

	pic, replaced, err := s.pictures.ReplacePicture(ctx, src, origName, owner, media.CategoryProfile, media.ProfileSizes)
	if err != nil {
		return nil, err
	}

	if replaced {
		s.events.PictureReplaced(ctx, pic)
	} else {
		s.events.PictureCreated(ctx, pic)
	}
	return pic, nil
}
