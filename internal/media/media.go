// Package media generates fixed-size image derivatives for uploaded pictures
// and manages their lifecycle when a new upload supersedes an old one.
package media

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	apperrors "github.com/ludaNOFX/ludaproj-full/pkg/errors"
)

// Storage categories. Each maps to a scoped directory under the store root.
const (
	CategoryProduct = "product_pics"
	CategoryProfile = "profile_pics"
)

// Picture identifies one logical uploaded image, independent of its rendered
// sizes. Exactly one of UserID/ProductID is set.
type Picture struct {
	ID        int64           `json:"id"`
	UserID    *int64          `json:"user_id,omitempty"`
	ProductID *int64          `json:"product_id,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	Formats   []PictureFormat `json:"formats,omitempty"`
}

// PictureFormat is one rendered size of a picture.
type PictureFormat struct {
	ID        int64  `json:"id"`
	Filename  string `json:"filename"`
	Format    string `json:"format"`
	PictureID int64  `json:"picture_id"`
}

// Size is a bounding box for thumbnail generation.
type Size struct {
	Width  int
	Height int
}

// Label returns the "WxH" dimension label stored on a format row.
func (s Size) Label() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Default variant sizes per category.
var (
	ProductSizes = []Size{{Width: 300, Height: 300}, {Width: 500, Height: 500}}
	ProfileSizes = []Size{{Width: 50, Height: 50}, {Width: 450, Height: 450}}
)

// Owner names the record a picture belongs to. Exactly one field must be set.
type Owner struct {
	UserID    *int64
	ProductID *int64
}

// Validate enforces the one-of owner invariant.
func (o Owner) Validate() error {
	if (o.UserID == nil) == (o.ProductID == nil) {
		return apperrors.InvalidInput("picture owner must be exactly one of user or product")
	}
	return nil
}

// newToken returns a 16-hex-character random token shared by all variants of
// one upload. Uniqueness across uploads relies on entropy, not a constraint.
func newToken() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate picture token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// variantFilename derives the stored filename for one rendered size.
func variantFilename(token string, size Size, ext string) string {
	return fmt.Sprintf("%s_%dx%d%s", token, size.Width, size.Height, ext)
}
