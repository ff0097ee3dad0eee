package domain

import (
	"time"
)

// SearchKindUser is the index kind for users.
const SearchKindUser = "user"

// User represents a registered user in the marketplace.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	AboutMe      string    `json:"about_me,omitempty"`
	LastSeen     time.Time `json:"last_seen"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SearchKind implements search.Searchable.
func (u *User) SearchKind() string { return SearchKindUser }

// SearchID implements search.Searchable.
func (u *User) SearchID() int64 { return u.ID }

// TokenPair holds an access and refresh token pair.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
