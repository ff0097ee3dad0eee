package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func logLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestNewWithWriter_IncludesServiceName(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("marketplace", "info", &buf)
	l.Info("hello")

	entry := logLine(t, &buf)
	assert.Equal(t, "marketplace", entry["service"])
	assert.Equal(t, "hello", entry["msg"])
}

func TestNewWithWriter_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("marketplace", "warn", &buf)

	l.Info("suppressed")
	assert.Empty(t, buf.String())

	l.Warn("emitted")
	assert.Contains(t, buf.String(), "emitted")
}

func TestNewWithWriter_UnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("marketplace", "verbose", &buf)

	l.Debug("suppressed")
	assert.Empty(t, buf.String())

	l.Info("emitted")
	assert.Contains(t, buf.String(), "emitted")
}

func TestCorrelationID_RoundTrip(t *testing.T) {
	ctx := WithCorrelationID(context.Background(), "corr-123")
	assert.Equal(t, "corr-123", CorrelationIDFromContext(ctx))
	assert.Empty(t, CorrelationIDFromContext(context.Background()))
}

func TestUserID_RoundTrip(t *testing.T) {
	ctx := WithUserID(context.Background(), "7")
	assert.Equal(t, "7", UserIDFromContext(ctx))
	assert.Empty(t, UserIDFromContext(context.Background()))
}

func TestFromContext_FallsBackToDefault(t *testing.T) {
	assert.Equal(t, slog.Default(), FromContext(context.Background()))
}

func TestNewContext_StoresLogger(t *testing.T) {
	l := slog.New(slog.DiscardHandler)
	ctx := NewContext(context.Background(), l)
	assert.Same(t, l, FromContext(ctx))
}

func TestWithContext_AddsContextFields(t *testing.T) {
	var buf bytes.Buffer
	base := NewWithWriter("marketplace", "info", &buf)

	ctx := WithCorrelationID(context.Background(), "corr-123")
	ctx = WithUserID(ctx, "7")

	WithContext(ctx, base).Info("checkout")

	entry := logLine(t, &buf)
	assert.Equal(t, "corr-123", entry["correlation_id"])
	assert.Equal(t, "7", entry["user_id"])
}

func TestWithContext_NoFieldsWithoutContextValues(t *testing.T) {
	var buf bytes.Buffer
	base := NewWithWriter("marketplace", "info", &buf)

	WithContext(context.Background(), base).Info("checkout")

	entry := logLine(t, &buf)
	_, hasCorrelation := entry["correlation_id"]
	_, hasUser := entry["user_id"]
	assert.False(t, hasCorrelation)
	assert.False(t, hasUser)
}
