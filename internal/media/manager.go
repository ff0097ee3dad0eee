package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/ludaNOFX/ludaproj-full/internal/media/storage"
	apperrors "github.com/ludaNOFX/ludaproj-full/pkg/errors"
)

// Repository persists picture metadata rows.
type Repository interface {
	// InsertPicture inserts a picture row and sets its ID and CreatedAt.
	InsertPicture(ctx context.Context, p *Picture) error

	// InsertFormat inserts a format row and sets its ID.
	InsertFormat(ctx context.Context, f *PictureFormat) error

	// LatestPictureByOwner returns the most recent picture for an owner by
	// descending ID, or apperrors.ErrNotFound when the owner has none.
	LatestPictureByOwner(ctx context.Context, owner Owner) (*Picture, error)

	// FormatsByPictureID returns all format rows of a picture.
	FormatsByPictureID(ctx context.Context, pictureID int64) ([]PictureFormat, error)

	// DeletePicture removes the picture row and all its format rows.
	DeletePicture(ctx context.Context, pictureID int64) error
}

// Manager generates fixed-size derivatives for uploaded images and replaces
// a superseded picture's rows and files safely.
type Manager struct {
	repo   Repository
	files  storage.FileStore
	logger *slog.Logger
}

// NewManager creates a picture manager.
func NewManager(repo Repository, files storage.FileStore, logger *slog.Logger) *Manager {
	return &Manager{
		repo:   repo,
		files:  files,
		logger: logger,
	}
}

// CreatePicture decodes the source image, inserts a picture row, and for each
// size writes a downscaled variant file plus its format row. File writes and
// row inserts interleave per size; a crash mid-loop leaves a partial variant
// set, which is accepted. Filesystem errors propagate to the caller.
func (m *Manager) CreatePicture(ctx context.Context, src io.Reader, origName string, owner Owner, category string, sizes []Size) (*Picture, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(origName))

	img, err := decodeImage(src)
	if err != nil {
		return nil, err
	}

	token, err := newToken()
	if err != nil {
		return nil, err
	}

	picture := &Picture{
		UserID:    owner.UserID,
		ProductID: owner.ProductID,
	}
	if err := m.repo.InsertPicture(ctx, picture); err != nil {
		return nil, fmt.Errorf("insert picture: %w", err)
	}

	for _, size := range sizes {
		resized := thumbnailFit(img, size)

		var buf bytes.Buffer
		if err := encodeImage(&buf, resized, ext); err != nil {
			return nil, err
		}

		filename := variantFilename(token, size, ext)
		if err := m.files.Write(ctx, category, filename, &buf); err != nil {
			return nil, fmt.Errorf("write variant %s: %w", filename, err)
		}

		format := &PictureFormat{
			Filename:  filename,
			Format:    size.Label(),
			PictureID: picture.ID,
		}
		if err := m.repo.InsertFormat(ctx, format); err != nil {
			return nil, fmt.Errorf("insert format %s: %w", size.Label(), err)
		}
		picture.Formats = append(picture.Formats, *format)
	}

	m.logger.InfoContext(ctx, "picture created",
		slog.Int64("picture_id", picture.ID),
		slog.String("category", category),
		slog.Int("variants", len(picture.Formats)),
	)
	return picture, nil
}

// ReplacePicture retires the owner's most recent picture, then creates a new
// one from the source image. Metadata rows are deleted before files so a
// crash in between only leaks an orphan file, never a row pointing at a
// missing file. With no prior picture it behaves as plain CreatePicture; the
// returned bool reports whether a prior picture was retired.
//
// Concurrent replaces for the same owner race last-write-wins; no locking is
// performed here.
func (m *Manager) ReplacePicture(ctx context.Context, src io.Reader, origName string, owner Owner, category string, sizes []Size) (*Picture, bool, error) {
	if err := owner.Validate(); err != nil {
		return nil, false, err
	}

	prev, err := m.repo.LatestPictureByOwner(ctx, owner)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, false, fmt.Errorf("find previous picture: %w", err)
	}

	if prev != nil {
		formats, err := m.repo.FormatsByPictureID(ctx, prev.ID)
		if err != nil {
			return nil, false, fmt.Errorf("load previous formats: %w", err)
		}

		if err := m.repo.DeletePicture(ctx, prev.ID); err != nil {
			return nil, false, fmt.Errorf("delete previous picture: %w", err)
		}

		for _, f := range formats {
			if err := m.files.Delete(ctx, category, f.Filename); err != nil {
				return nil, false, fmt.Errorf("delete variant file %s: %w", f.Filename, err)
			}
		}

		m.logger.InfoContext(ctx, "previous picture retired",
			slog.Int64("picture_id", prev.ID),
			slog.Int("variants", len(formats)),
		)
	}

	pic, err := m.CreatePicture(ctx, src, origName, owner, category, sizes)
	if err != nil {
		return nil, false, err
	}
	return pic, prev != nil, nil
}
