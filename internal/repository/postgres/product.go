package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ludaNOFX/ludaproj-full/internal/domain"
	"github.com/ludaNOFX/ludaproj-full/internal/search"
	"github.com/ludaNOFX/ludaproj-full/pkg/database"
	apperrors "github.com/ludaNOFX/ludaproj-full/pkg/errors"
)

// ProductRepository implements product persistence using PostgreSQL.
// Mutations are recorded into the transaction's search change set when one
// is present.
type ProductRepository struct {
	db database.DBTX
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(db database.DBTX) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) c(ctx context.Context) database.DBTX { return conn(ctx, r.db) }

const productColumns = `id, name, slug, description, price, user_id, is_purchased, created_at, updated_at`

// Create inserts a new product row.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) error {
	query := `
		INSERT INTO products (name, slug, description, price, user_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, is_purchased, created_at, updated_at`

	err := r.c(ctx).QueryRow(ctx, query,
		p.Name,
		p.Slug,
		p.Description,
		p.Price,
		p.UserID,
	).Scan(&p.ID, &p.IsPurchased, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("product", "slug", p.Slug)
		}
		return fmt.Errorf("insert product: %w", err)
	}

	search.ChangeSetFromContext(ctx).Record(p, search.OpAdded)
	return nil
}

// GetByID retrieves a product by ID.
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	return r.scanProduct(ctx, query, id)
}

// GetBySlug retrieves a product by its URL slug.
func (r *ProductRepository) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE slug = $1`
	return r.scanProduct(ctx, query, slug)
}

// Update modifies a product's listing fields.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) error {
	p.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE products
		SET name = $1, slug = $2, description = $3, price = $4, updated_at = $5
		WHERE id = $6`

	ct, err := r.c(ctx).Exec(ctx, query,
		p.Name,
		p.Slug,
		p.Description,
		p.Price,
		p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("product", "slug", p.Slug)
		}
		return fmt.Errorf("update product: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", fmt.Sprintf("%d", p.ID))
	}

	search.ChangeSetFromContext(ctx).Record(p, search.OpUpdated)
	return nil
}

// Delete removes a product row.
func (r *ProductRepository) Delete(ctx context.Context, p *domain.Product) error {
	query := `DELETE FROM products WHERE id = $1`

	ct, err := r.c(ctx).Exec(ctx, query, p.ID)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", fmt.Sprintf("%d", p.ID))
	}

	search.ChangeSetFromContext(ctx).Record(p, search.OpRemoved)
	return nil
}

// MarkPurchased flips the purchased flag. It reports whether the product was
// still available, so a repeat purchase can be rejected atomically.
func (r *ProductRepository) MarkPurchased(ctx context.Context, p *domain.Product) (bool, error) {
	query := `
		UPDATE products
		SET is_purchased = TRUE, updated_at = NOW()
		WHERE id = $1 AND is_purchased = FALSE`

	ct, err := r.c(ctx).Exec(ctx, query, p.ID)
	if err != nil {
		return false, fmt.Errorf("mark product purchased: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return false, nil
	}

	p.IsPurchased = true
	search.ChangeSetFromContext(ctx).Record(p, search.OpUpdated)
	return true, nil
}

// List returns products newest first with pagination.
func (r *ProductRepository) List(ctx context.Context, limit, offset int) ([]domain.Product, int, error) {
	query := `
		SELECT ` + productColumns + `,
			   count(*) OVER() AS total_count
		FROM products
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	return r.listWithTotal(ctx, query, limit, offset)
}

// ListFollowed returns products listed by users the given user follows,
// newest first.
func (r *ProductRepository) ListFollowed(ctx context.Context, userID int64, limit, offset int) ([]domain.Product, int, error) {
	query := `
		SELECT p.id, p.name, p.slug, p.description, p.price, p.user_id, p.is_purchased, p.created_at, p.updated_at,
			   count(*) OVER() AS total_count
		FROM products p
		JOIN followers f ON f.followed_id = p.user_id
		WHERE f.follower_id = $1
		ORDER BY p.created_at DESC
		LIMIT $2 OFFSET $3`

	return r.listWithTotal(ctx, query, userID, limit, offset)
}

// ListByIDsRanked fetches products by ID and returns them in the order of
// the given id list, preserving index relevance ranking.
func (r *ProductRepository) ListByIDsRanked(ctx context.Context, ids []int64) ([]domain.Product, error) {
	if len(ids) == 0 {
		return []domain.Product{}, nil
	}

	query := `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1)`

	rows, err := r.c(ctx).Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("list products by ids: %w", err)
	}
	defer rows.Close()

	products, err := collectProducts(rows)
	if err != nil {
		return nil, err
	}

	rankByID(products, ids, func(p domain.Product) int64 { return p.ID })
	return products, nil
}

// All returns every product, for index rebuilds.
func (r *ProductRepository) All(ctx context.Context) ([]domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY id`

	rows, err := r.c(ctx).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list all products: %w", err)
	}
	defer rows.Close()

	return collectProducts(rows)
}

func (r *ProductRepository) listWithTotal(ctx context.Context, query string, args ...any) ([]domain.Product, int, error) {
	rows, err := r.c(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var (
		products   = []domain.Product{}
		totalCount int
	)

	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(
			&p.ID,
			&p.Name,
			&p.Slug,
			&p.Description,
			&p.Price,
			&p.UserID,
			&p.IsPurchased,
			&p.CreatedAt,
			&p.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate product rows: %w", err)
	}

	return products, totalCount, nil
}

func collectProducts(rows pgx.Rows) ([]domain.Product, error) {
	products := []domain.Product{}
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(
			&p.ID,
			&p.Name,
			&p.Slug,
			&p.Description,
			&p.Price,
			&p.UserID,
			&p.IsPurchased,
			&p.CreatedAt,
			&p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}
	return products, nil
}

func (r *ProductRepository) scanProduct(ctx context.Context, query string, args ...any) (*domain.Product, error) {
	var p domain.Product

	err := r.c(ctx).QueryRow(ctx, query, args...).Scan(
		&p.ID,
		&p.Name,
		&p.Slug,
		&p.Description,
		&p.Price,
		&p.UserID,
		&p.IsPurchased,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}

	return &p, nil
}
