// Package event publishes domain events to Kafka. Publishing is best effort:
// failures are logged and never fail the request that produced them.
package event

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/ludaNOFX/ludaproj-full/internal/domain"
	"github.com/ludaNOFX/ludaproj-full/internal/media"
	"github.com/ludaNOFX/ludaproj-full/pkg/kafka"
	"github.com/ludaNOFX/ludaproj-full/pkg/logger"
)

// Kafka topics.
const (
	TopicUsers    = "marketplace.users"
	TopicProducts = "marketplace.products"
	TopicPictures = "marketplace.pictures"
)

// Event types.
const (
	EventUserRegistered   = "user.registered"
	EventUserFollowed     = "user.followed"
	EventUserUnfollowed   = "user.unfollowed"
	EventProductCreated   = "product.created"
	EventProductUpdated   = "product.updated"
	EventProductDeleted   = "product.deleted"
	EventProductPurchased = "product.purchased"
	EventPictureCreated   = "picture.created"
	EventPictureReplaced  = "picture.replaced"
)

const source = "marketplace"

// Publisher is the event publishing surface consumed by services.
type Publisher interface {
	UserRegistered(ctx context.Context, u *domain.User)
	UserFollowed(ctx context.Context, followerID, followedID int64)
	UserUnfollowed(ctx context.Context, followerID, followedID int64)
	ProductCreated(ctx context.Context, p *domain.Product)
	ProductUpdated(ctx context.Context, p *domain.Product)
	ProductDeleted(ctx context.Context, p *domain.Product)
	ProductPurchased(ctx context.Context, p *domain.Product, buyerID int64)
	PictureCreated(ctx context.Context, pic *media.Picture)
	PictureReplaced(ctx context.Context, pic *media.Picture)
}

// Producer publishes domain events through the shared Kafka producer.
type Producer struct {
	producer *kafka.Producer
	logger   *slog.Logger
}

// NewProducer creates a domain event producer.
func NewProducer(producer *kafka.Producer, log *slog.Logger) *Producer {
	return &Producer{
		producer: producer,
		logger:   log,
	}
}

// userEventPayload is the data carried by user lifecycle events.
type userEventPayload struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// followEventPayload is the data carried by follow graph events.
type followEventPayload struct {
	FollowerID int64 `json:"follower_id"`
	FollowedID int64 `json:"followed_id"`
}

// productEventPayload is the data carried by product lifecycle events.
type productEventPayload struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	Price     int64  `json:"price"`
	SellerID  int64  `json:"seller_id"`
	BuyerID   int64  `json:"buyer_id,omitempty"`
}

// pictureEventPayload is the data carried by picture lifecycle events.
type pictureEventPayload struct {
	PictureID int64  `json:"picture_id"`
	UserID    *int64 `json:"user_id,omitempty"`
	ProductID *int64 `json:"product_id,omitempty"`
	Variants  int    `json:"variants"`
}

func (p *Producer) UserRegistered(ctx context.Context, u *domain.User) {
	p.publish(ctx, TopicUsers, EventUserRegistered, u.ID, "user", userEventPayload{
		UserID:   u.ID,
		Username: u.Username,
		Email:    u.Email,
	})
}

func (p *Producer) UserFollowed(ctx context.Context, followerID, followedID int64) {
	p.publish(ctx, TopicUsers, EventUserFollowed, followerID, "user", followEventPayload{
		FollowerID: followerID,
		FollowedID: followedID,
	})
}

func (p *Producer) UserUnfollowed(ctx context.Context, followerID, followedID int64) {
	p.publish(ctx, TopicUsers, EventUserUnfollowed, followerID, "user", followEventPayload{
		FollowerID: followerID,
		FollowedID: followedID,
	})
}

func (p *Producer) ProductCreated(ctx context.Context, prod *domain.Product) {
	p.publish(ctx, TopicProducts, EventProductCreated, prod.ID, "product", productPayload(prod, 0))
}

func (p *Producer) ProductUpdated(ctx context.Context, prod *domain.Product) {
	p.publish(ctx, TopicProducts, EventProductUpdated, prod.ID, "product", productPayload(prod, 0))
}

func (p *Producer) ProductDeleted(ctx context.Context, prod *domain.Product) {
	p.publish(ctx, TopicProducts, EventProductDeleted, prod.ID, "product", productPayload(prod, 0))
}

func (p *Producer) ProductPurchased(ctx context.Context, prod *domain.Product, buyerID int64) {
	p.publish(ctx, TopicProducts, EventProductPurchased, prod.ID, "product", productPayload(prod, buyerID))
}

func (p *Producer) PictureCreated(ctx context.Context, pic *media.Picture) {
	p.publish(ctx, TopicPictures, EventPictureCreated, pic.ID, "picture", picturePayload(pic))
}

func (p *Producer) PictureReplaced(ctx context.Context, pic *media.Picture) {
	p.publish(ctx, TopicPictures, EventPictureReplaced, pic.ID, "picture", picturePayload(pic))
}

func productPayload(prod *domain.Product, buyerID int64) productEventPayload {
	return productEventPayload{
		ProductID: prod.ID,
		Name:      prod.Name,
		Slug:      prod.Slug,
		Price:     prod.Price,
		SellerID:  prod.UserID,
		BuyerID:   buyerID,
	}
}

func picturePayload(pic *media.Picture) pictureEventPayload {
	return pictureEventPayload{
		PictureID: pic.ID,
		UserID:    pic.UserID,
		ProductID: pic.ProductID,
		Variants:  len(pic.Formats),
	}
}

func (p *Producer) publish(ctx context.Context, topic, eventType string, aggregateID int64, aggregateType string, data any) {
	evt, err := kafka.NewEvent(eventType, strconv.FormatInt(aggregateID, 10), aggregateType, source, data)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to build event",
			slog.String("event_type", eventType),
			slog.String("error", err.Error()),
		)
		return
	}

	if cid := logger.CorrelationIDFromContext(ctx); cid != "" {
		evt.WithCorrelationID(cid)
	}

	if err := p.producer.Publish(ctx, topic, evt); err != nil {
		p.logger.ErrorContext(ctx, "failed to publish event",
			slog.String("topic", topic),
			slog.String("event_type", eventType),
			slog.String("error", err.Error()),
		)
	}
}
