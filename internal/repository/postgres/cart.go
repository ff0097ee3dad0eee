package postgres

import (
	"context"
	"fmt"

	"github.com/ludaNOFX/ludaproj-full/internal/domain"
	"github.com/ludaNOFX/ludaproj-full/pkg/database"
)

// CartRepository manages cart membership using PostgreSQL.
type CartRepository struct {
	db database.DBTX
}

// NewCartRepository creates a new PostgreSQL-backed cart repository.
func NewCartRepository(db database.DBTX) *CartRepository {
	return &CartRepository{db: db}
}

func (r *CartRepository) c(ctx context.Context) database.DBTX { return conn(ctx, r.db) }

// Add puts a product into a user's cart. Adding twice is a no-op.
func (r *CartRepository) Add(ctx context.Context, userID, productID int64) error {
	query := `
		INSERT INTO cart (user_cart_id, product_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`

	if _, err := r.c(ctx).Exec(ctx, query, userID, productID); err != nil {
		return fmt.Errorf("insert cart entry: %w", err)
	}
	return nil
}

// Remove takes a product out of a user's cart.
func (r *CartRepository) Remove(ctx context.Context, userID, productID int64) error {
	query := `DELETE FROM cart WHERE user_cart_id = $1 AND product_id = $2`

	if _, err := r.c(ctx).Exec(ctx, query, userID, productID); err != nil {
		return fmt.Errorf("delete cart entry: %w", err)
	}
	return nil
}

// Contains reports whether the product is in the user's cart.
func (r *CartRepository) Contains(ctx context.Context, userID, productID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM cart WHERE user_cart_id = $1 AND product_id = $2)`

	var exists bool
	if err := r.c(ctx).QueryRow(ctx, query, userID, productID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check cart entry: %w", err)
	}
	return exists, nil
}

// ListProducts returns the products in a user's cart, newest first.
func (r *CartRepository) ListProducts(ctx context.Context, userID int64, limit, offset int) ([]domain.Product, int, error) {
	query := `
		SELECT p.id, p.name, p.slug, p.description, p.price, p.user_id, p.is_purchased, p.created_at, p.updated_at,
			   count(*) OVER() AS total_count
		FROM products p
		JOIN cart c ON c.product_id = p.id
		WHERE c.user_cart_id = $1
		ORDER BY p.created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.c(ctx).Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list cart products: %w", err)
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
			return nil, 0, fmt.Errorf("scan cart product row: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate cart product rows: %w", err)
	}

	return products, totalCount, nil
}

// Clear removes every cart entry that references the given product, used
// after a purchase retires the listing from other carts.
func (r *CartRepository) Clear(ctx context.Context, productID int64) error {
	query := `DELETE FROM cart WHERE product_id = $1`

	if _, err := r.c(ctx).Exec(ctx, query, productID); err != nil {
		return fmt.Errorf("clear cart entries: %w", err)
	}
	return nil
}
