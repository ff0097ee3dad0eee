package kafka

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type productSoldPayload struct {
	ProductID int64 `json:"product_id"`
	BuyerID   int64 `json:"buyer_id"`
}

func TestNewEvent(t *testing.T) {
	payload := productSoldPayload{ProductID: 42, BuyerID: 7}
	event, err := NewEvent("product.sold", "42", "product", "marketplace", payload)
	require.NoError(t, err)

	_, parseErr := uuid.Parse(event.EventID)
	assert.NoError(t, parseErr, "event ID should be a valid UUID")
	assert.Equal(t, "product.sold", event.EventType)
	assert.Equal(t, "42", event.AggregateID)
	assert.Equal(t, "product", event.AggregateType)
	assert.Equal(t, "marketplace", event.Source)
	assert.Equal(t, 1, event.Version)
	assert.WithinDuration(t, time.Now().UTC(), event.Timestamp, time.Second)
	assert.NotNil(t, event.Metadata)
}

func TestNewEvent_UnmarshalableData(t *testing.T) {
	_, err := NewEvent("bad.event", "1", "thing", "marketplace", make(chan int))
	assert.Error(t, err)
}

func TestEvent_WithCorrelationID(t *testing.T) {
	event, err := NewEvent("user.registered", "7", "user", "marketplace", nil)
	require.NoError(t, err)

	same := event.WithCorrelationID("corr-123")
	assert.Same(t, event, same)
	assert.Equal(t, "corr-123", event.CorrelationID)
}

func TestEvent_MarshalRoundTrip(t *testing.T) {
	original, err := NewEvent("product.sold", "42", "product", "marketplace",
		productSoldPayload{ProductID: 42, BuyerID: 7})
	require.NoError(t, err)
	original.WithCorrelationID("corr-123")

	raw, err := original.Marshal()
	require.NoError(t, err)

	decoded, err := UnmarshalEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, original.EventID, decoded.EventID)
	assert.Equal(t, original.EventType, decoded.EventType)
	assert.Equal(t, original.CorrelationID, decoded.CorrelationID)

	var payload productSoldPayload
	require.NoError(t, decoded.UnmarshalData(&payload))
	assert.Equal(t, int64(42), payload.ProductID)
	assert.Equal(t, int64(7), payload.BuyerID)
}

func TestUnmarshalEvent_InvalidJSON(t *testing.T) {
	_, err := UnmarshalEvent([]byte("{not json"))
	assert.Error(t, err)
}
