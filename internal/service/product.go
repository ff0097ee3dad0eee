package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/ludaNOFX/ludaproj-full/internal/domain"
	"github.com/ludaNOFX/ludaproj-full/internal/event"
	"github.com/ludaNOFX/ludaproj-full/internal/media"
	apperrors "github.com/ludaNOFX/ludaproj-full/pkg/errors"
	"github.com/ludaNOFX/ludaproj-full/pkg/pagination"
	"github.com/ludaNOFX/ludaproj-full/pkg/slug"
)

// ProductRepository is the persistence surface the product service depends on.
type ProductRepository interface {
	Create(ctx context.Context, p *domain.Product) error
	Update(ctx context.Context, p *domain.Product) error
	Delete(ctx context.Context, p *domain.Product) error
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Product, error)
	MarkPurchased(ctx context.Context, p *domain.Product) (bool, error)
	List(ctx context.Context, limit, offset int) ([]domain.Product, int, error)
	ListFollowed(ctx context.Context, userID int64, limit, offset int) ([]domain.Product, int, error)
	ListByIDsRanked(ctx context.Context, ids []int64) ([]domain.Product, error)
}

// CartRepository is the cart surface the product service depends on.
type CartRepository interface {
	Add(ctx context.Context, userID, productID int64) error
	Remove(ctx context.Context, userID, productID int64) error
	Contains(ctx context.Context, userID, productID int64) (bool, error)
	ListProducts(ctx context.Context, userID int64, limit, offset int) ([]domain.Product, int, error)
	Clear(ctx context.Context, productID int64) error
}

// CreateProductInput holds the fields required to list a product.
type CreateProductInput struct {
	Name        string `json:"name" validate:"required,min=2,max=64"`
	Description string `json:"description" validate:"max=140"`
	Price       int64  `json:"price" validate:"required,gt=0"`
}

// UpdateProductInput holds the editable listing fields.
type UpdateProductInput struct {
	Name        string `json:"name" validate:"required,min=2,max=64"`
	Description string `json:"description" validate:"max=140"`
	Price       int64  `json:"price" validate:"required,gt=0"`
}

// ProductService implements listing, cart, and purchase use cases.
type ProductService struct {
	products ProductRepository
	carts    CartRepository
	tx       TxRunner
	pictures PictureManager
	events   event.Publisher
	logger   *slog.Logger
}

// NewProductService creates a product service.
func NewProductService(
	products ProductRepository,
	carts CartRepository,
	tx TxRunner,
	pictures PictureManager,
	events event.Publisher,
	logger *slog.Logger,
) *ProductService {
	return &ProductService{
		products: products,
		carts:    carts,
		tx:       tx,
		pictures: pictures,
		events:   events,
		logger:   logger,
	}
}

// Create lists a new product for the seller.
func (s *ProductService) Create(ctx context.Context, sellerID int64, input CreateProductInput) (*domain.Product, error) {
	product := &domain.Product{
		Name:        input.Name,
		Slug:        slug.Generate(input.Name),
		Description: input.Description,
		Price:       input.Price,
		UserID:      sellerID,
	}

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		return s.products.Create(ctx, product)
	})
	if errors.Is(err, apperrors.ErrAlreadyExists) {
		// Slug collision with another listing of the same name; retry once
		// with a random suffix.
		product.Slug = fmt.Sprintf("%s-%s", product.Slug, randomSuffix())
		err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
			return s.products.Create(ctx, product)
		})
	}
	if err != nil {
		return nil, err
	}

	s.events.ProductCreated(ctx, product)

	s.logger.InfoContext(ctx, "product listed",
		slog.Int64("product_id", product.ID),
		slog.Int64("seller_id", sellerID),
	)
	return product, nil
}

// Update modifies a listing. Only the seller may update their product.
func (s *ProductService) Update(ctx context.Context, sellerID, productID int64, input UpdateProductInput) (*domain.Product, error) {
	product, err := s.ownedProduct(ctx, sellerID, productID)
	if err != nil {
		return nil, err
	}

	if product.Name != input.Name {
		product.Slug = slug.Generate(input.Name)
	}
	product.Name = input.Name
	product.Description = input.Description
	product.Price = input.Price

	if err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		return s.products.Update(ctx, product)
	}); err != nil {
		return nil, err
	}

	s.events.ProductUpdated(ctx, product)
	return product, nil
}

// Delete removes a listing. Only the seller may delete their product.
func (s *ProductService) Delete(ctx context.Context, sellerID, productID int64) error {
	product, err := s.ownedProduct(ctx, sellerID, productID)
	if err != nil {
		return err
	}

	if err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.carts.Clear(ctx, product.ID); err != nil {
			return err
		}
		return s.products.Delete(ctx, product)
	}); err != nil {
		return err
	}

	s.events.ProductDeleted(ctx, product)
	return nil
}

// GetBySlug returns a listing by its URL slug.
func (s *ProductService) GetBySlug(ctx context.Context, productSlug string) (*domain.Product, error) {
	return s.products.GetBySlug(ctx, productSlug)
}

// List returns listings newest first.
func (s *ProductService) List(ctx context.Context, params pagination.Params) (pagination.Result[domain.Product], error) {
	products, total, err := s.products.List(ctx, params.PerPage, params.Offset)
	if err != nil {
		return pagination.Result[domain.Product]{}, err
	}
	return pagination.NewResult(products, total, params), nil
}

// FollowedFeed returns listings by users the caller follows, newest first.
func (s *ProductService) FollowedFeed(ctx context.Context, userID int64, params pagination.Params) (pagination.Result[domain.Product], error) {
	products, total, err := s.products.ListFollowed(ctx, userID, params.PerPage, params.Offset)
	if err != nil {
		return pagination.Result[domain.Product]{}, err
	}
	return pagination.NewResult(products, total, params), nil
}

// Purchase buys a product. A product can be bought once, and not by its
// seller. The purchase and the cart cleanup commit atomically.
func (s *ProductService) Purchase(ctx context.Context, buyerID, productID int64) (*domain.Product, error) {
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	if product.UserID == buyerID {
		return nil, apperrors.Forbidden("cannot purchase your own product")
	}

	if err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		ok, err := s.products.MarkPurchased(ctx, product)
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.AlreadyPurchased(fmt.Sprintf("%d", product.ID))
		}
		return s.carts.Clear(ctx, product.ID)
	}); err != nil {
		return nil, err
	}

	s.events.ProductPurchased(ctx, product, buyerID)

	s.logger.InfoContext(ctx, "product purchased",
		slog.Int64("product_id", product.ID),
		slog.Int64("buyer_id", buyerID),
	)
	return product, nil
}

// AddToCart puts a product into the caller's cart. Own and already-sold
// products cannot be added.
func (s *ProductService) AddToCart(ctx context.Context, userID, productID int64) error {
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return err
	}

	if product.UserID == userID {
		return apperrors.Forbidden("cannot add your own product to the cart")
	}
	if product.IsPurchased {
		return apperrors.AlreadyPurchased(fmt.Sprintf("%d", product.ID))
	}

	return s.carts.Add(ctx, userID, productID)
}

// RemoveFromCart takes a product out of the caller's cart.
func (s *ProductService) RemoveFromCart(ctx context.Context, userID, productID int64) error {
	return s.carts.Remove(ctx, userID, productID)
}

// Cart returns the caller's cart contents, newest first.
func (s *ProductService) Cart(ctx context.Context, userID int64, params pagination.Params) (pagination.Result[domain.Product], error) {
	products, total, err := s.carts.ListProducts(ctx, userID, params.PerPage, params.Offset)
	if err != nil {
		return pagination.Result[domain.Product]{}, err
	}
	return pagination.NewResult(products, total, params), nil
}

// SetPicture replaces a product's picture with variants rendered at the
// standard product sizes. Only the seller may change it.
func (s *ProductService) SetPicture(ctx context.Context, sellerID, productID int64, src io.Reader, origName string) (*media.Picture, error) {
	product, err := s.ownedProduct(ctx, sellerID, productID)
	if err != nil {
		return nil, err
	}

	owner := media.Owner{ProductID: &product.ID}
	pic, replaced, err := s.pictures.ReplacePicture(ctx, src, origName, owner, media.CategoryProduct, media.ProductSizes)
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

func (s *ProductService) ownedProduct(ctx context.Context, sellerID, productID int64) (*domain.Product, error) {
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.UserID != sellerID {
		return nil, apperrors.Forbidden("not your product")
	}
	return product, nil
}

func randomSuffix() string {
	buf := make([]byte, 3)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
