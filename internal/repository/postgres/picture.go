package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ludaNOFX/ludaproj-full/internal/media"
	"github.com/ludaNOFX/ludaproj-full/pkg/database"
	apperrors "github.com/ludaNOFX/ludaproj-full/pkg/errors"
)

// PictureRepository implements media.Repository using PostgreSQL.
type PictureRepository struct {
	db database.DBTX
}

// NewPictureRepository creates a new PostgreSQL-backed picture repository.
func NewPictureRepository(db database.DBTX) *PictureRepository {
	return &PictureRepository{db: db}
}

func (r *PictureRepository) c(ctx context.Context) database.DBTX { return conn(ctx, r.db) }

// InsertPicture inserts a picture row and sets its ID and CreatedAt.
func (r *PictureRepository) InsertPicture(ctx context.Context, p *media.Picture) error {
	query := `
		INSERT INTO pictures (user_id, product_id)
		VALUES ($1, $2)
		RETURNING id, created_at`

	err := r.c(ctx).QueryRow(ctx, query, p.UserID, p.ProductID).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert picture: %w", err)
	}
	return nil
}

// InsertFormat inserts a format row and sets its ID.
func (r *PictureRepository) InsertFormat(ctx context.Context, f *media.PictureFormat) error {
	query := `
		INSERT INTO picture_formats (filename, format, picture_id)
		VALUES ($1, $2, $3)
		RETURNING id`

	err := r.c(ctx).QueryRow(ctx, query, f.Filename, f.Format, f.PictureID).Scan(&f.ID)
	if err != nil {
		return fmt.Errorf("insert picture format: %w", err)
	}
	return nil
}

// LatestPictureByOwner returns the most recent picture for an owner by
// descending ID.
func (r *PictureRepository) LatestPictureByOwner(ctx context.Context, owner media.Owner) (*media.Picture, error) {
	query := `
		SELECT id, user_id, product_id, created_at
		FROM pictures
		WHERE (user_id = $1 OR $1 IS NULL) AND (product_id = $2 OR $2 IS NULL)
		ORDER BY id DESC
		LIMIT 1`

	var p media.Picture
	err := r.c(ctx).QueryRow(ctx, query, owner.UserID, owner.ProductID).Scan(
		&p.ID,
		&p.UserID,
		&p.ProductID,
		&p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan picture: %w", err)
	}

	return &p, nil
}

// FormatsByPictureID returns all format rows of a picture.
func (r *PictureRepository) FormatsByPictureID(ctx context.Context, pictureID int64) ([]media.PictureFormat, error) {
	query := `
		SELECT id, filename, format, picture_id
		FROM picture_formats
		WHERE picture_id = $1
		ORDER BY id`

	rows, err := r.c(ctx).Query(ctx, query, pictureID)
	if err != nil {
		return nil, fmt.Errorf("list picture formats: %w", err)
	}
	defer rows.Close()

	formats := []media.PictureFormat{}
	for rows.Next() {
		var f media.PictureFormat
		if err := rows.Scan(&f.ID, &f.Filename, &f.Format, &f.PictureID); err != nil {
			return nil, fmt.Errorf("scan picture format row: %w", err)
		}
		formats = append(formats, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate picture format rows: %w", err)
	}
	return formats, nil
}

// DeletePicture removes the picture row; its format rows cascade.
func (r *PictureRepository) DeletePicture(ctx context.Context, pictureID int64) error {
	query := `DELETE FROM pictures WHERE id = $1`

	ct, err := r.c(ctx).Exec(ctx, query, pictureID)
	if err != nil {
		return fmt.Errorf("delete picture: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("picture", fmt.Sprintf("%d", pictureID))
	}
	return nil
}
