package domain

import (
	"time"
)

// SearchKindProduct is the index kind for products.
const SearchKindProduct = "product"

// Product represents a listing offered by a user. Price is stored in cents.
type Product struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	Price       int64     `json:"price"`
	UserID      int64     `json:"user_id"`
	IsPurchased bool      `json:"is_purchased"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SearchKind implements search.Searchable.
func (p *Product) SearchKind() string { return SearchKindProduct }

// SearchID implements search.Searchable.
func (p *Product) SearchID() int64 { return p.ID }
