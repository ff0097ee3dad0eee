package media

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	memstore "github.com/ludaNOFX/ludaproj-full/internal/media/storage/memory"
	apperrors "github.com/ludaNOFX/ludaproj-full/pkg/errors"
)

// fakeRepo is an in-memory metadata repository for manager tests.
type fakeRepo struct {
	nextPictureID int64
	nextFormatID  int64
	pictures      map[int64]*Picture
	formats       map[int64][]PictureFormat
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		pictures: make(map[int64]*Picture),
		formats:  make(map[int64][]PictureFormat),
	}
}

func (r *fakeRepo) InsertPicture(_ context.Context, p *Picture) error {
	r.nextPictureID++
	p.ID = r.nextPictureID
	p.CreatedAt = time.Now()
	cp := *p
	r.pictures[p.ID] = &cp
	return nil
}

func (r *fakeRepo) InsertFormat(_ context.Context, f *PictureFormat) error {
	r.nextFormatID++
	f.ID = r.nextFormatID
	r.formats[f.PictureID] = append(r.formats[f.PictureID], *f)
	return nil
}

func (r *fakeRepo) LatestPictureByOwner(_ context.Context, owner Owner) (*Picture, error) {
	var latest *Picture
	for _, p := range r.pictures {
		if owner.UserID != nil && (p.UserID == nil || *p.UserID != *owner.UserID) {
			continue
		}
		if owner.ProductID != nil && (p.ProductID == nil || *p.ProductID != *owner.ProductID) {
			continue
		}
		if latest == nil || p.ID > latest.ID {
			latest = p
		}
	}
	if latest == nil {
		return nil, apperrors.ErrNotFound
	}
	return latest, nil
}

func (r *fakeRepo) FormatsByPictureID(_ context.Context, pictureID int64) ([]PictureFormat, error) {
	return r.formats[pictureID], nil
}

func (r *fakeRepo) DeletePicture(_ context.Context, pictureID int64) error {
	delete(r.formats, pictureID)
	delete(r.pictures, pictureID)
	return nil
}

func testPNG(t *testing.T, w, h int) io.Reader {
	t.Helper()

	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	require.NoError(t, png.Encode(&buf, img))
	return &buf
}

func int64Ptr(v int64) *int64 { return &v }

func setupManager(t *testing.T) (*Manager, *fakeRepo, *memstore.Store) {
	t.Helper()

	repo := newFakeRepo()
	files := memstore.New()
	mgr := NewManager(repo, files, slog.New(slog.DiscardHandler))
	return mgr, repo, files
}

func TestCreatePictureProducesOneVariantPerSize(t *testing.T) {
	mgr, repo, files := setupManager(t)
	owner := Owner{ProductID: int64Ptr(10)}

	pic, err := mgr.CreatePicture(context.Background(), testPNG(t, 800, 600), "photo.png", owner, CategoryProduct, ProductSizes)
	require.NoError(t, err)

	require.Len(t, pic.Formats, 2)
	assert.Equal(t, "300x300", pic.Formats[0].Format)
	assert.Equal(t, "500x500", pic.Formats[1].Format)

	stored := repo.formats[pic.ID]
	require.Len(t, stored, 2)
	for _, f := range stored {
		assert.Equal(t, pic.ID, f.PictureID)
		assert.True(t, files.Exists(CategoryProduct, f.Filename), "variant file %s missing", f.Filename)
	}
	assert.Equal(t, 2, files.Len())
}

func TestCreatePictureVariantsShareOneToken(t *testing.T) {
	mgr, _, _ := setupManager(t)
	owner := Owner{UserID: int64Ptr(3)}

	pic, err := mgr.CreatePicture(context.Background(), testPNG(t, 800, 600), "avatar.png", owner, CategoryProfile, ProfileSizes)
	require.NoError(t, err)

	require.Len(t, pic.Formats, 2)
	assert.Equal(t, "50x50", pic.Formats[0].Format)
	assert.Equal(t, "450x450", pic.Formats[1].Format)

	// Filenames are {token}_{WxH}{ext} with the token shared across variants.
	first := pic.Formats[0].Filename
	second := pic.Formats[1].Filename
	require.Len(t, first, len("0123456789abcdef_50x50.png"))
	assert.Equal(t, first[:16], second[:16])
	assert.Contains(t, first, "_50x50.png")
	assert.Contains(t, second, "_450x450.png")
}

func TestCreatePictureRejectsAmbiguousOwner(t *testing.T) {
	mgr, _, _ := setupManager(t)

	tests := []struct {
		name  string
		owner Owner
	}{
		{name: "neither set", owner: Owner{}},
		{name: "both set", owner: Owner{UserID: int64Ptr(1), ProductID: int64Ptr(2)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := mgr.CreatePicture(context.Background(), testPNG(t, 10, 10), "a.png", tt.owner, CategoryProduct, ProductSizes)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		})
	}
}

func TestCreatePictureRejectsUnsupportedExtension(t *testing.T) {
	mgr, _, _ := setupManager(t)
	owner := Owner{ProductID: int64Ptr(1)}

	_, err := mgr.CreatePicture(context.Background(), testPNG(t, 10, 10), "image.bmp", owner, CategoryProduct, ProductSizes)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestReplacePictureRetiresOldRowsAndFiles(t *testing.T) {
	mgr, repo, files := setupManager(t)
	owner := Owner{UserID: int64Ptr(7)}

	first, err := mgr.CreatePicture(context.Background(), testPNG(t, 800, 600), "old.png", owner, CategoryProfile, ProfileSizes)
	require.NoError(t, err)
	oldFiles := make([]string, 0, 2)
	for _, f := range first.Formats {
		oldFiles = append(oldFiles, f.Filename)
	}

	second, replaced, err := mgr.ReplacePicture(context.Background(), testPNG(t, 800, 600), "new.png", owner, CategoryProfile, ProfileSizes)
	require.NoError(t, err)
	assert.True(t, replaced)

	// Exactly one picture remains for the owner, the new one.
	assert.Len(t, repo.pictures, 1)
	_, exists := repo.pictures[second.ID]
	assert.True(t, exists)
	_, gone := repo.pictures[first.ID]
	assert.False(t, gone)

	// Old rows and files are gone; new files are present.
	assert.Empty(t, repo.formats[first.ID])
	for _, name := range oldFiles {
		assert.False(t, files.Exists(CategoryProfile, name), "old file %s still present", name)
	}
	assert.Equal(t, 2, files.Len())
}

func TestReplacePictureWithoutPriorBehavesAsCreate(t *testing.T) {
	mgr, repo, files := setupManager(t)
	owner := Owner{ProductID: int64Ptr(42)}

	pic, replaced, err := mgr.ReplacePicture(context.Background(), testPNG(t, 800, 600), "photo.png", owner, CategoryProduct, ProductSizes)
	require.NoError(t, err)
	assert.False(t, replaced)

	assert.Len(t, repo.pictures, 1)
	assert.Len(t, repo.formats[pic.ID], 2)
	assert.Equal(t, 2, files.Len())
}
