package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/camarr/camarr/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(level string) config.LoggingConfig {
	return config.LoggingConfig{Level: level, Format: "json"}
}

func TestNewLoggerWithWriterLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(testConfig("warn"), &buf)

	logger.Info("should be filtered")
	assert.Empty(t, buf.String())

	logger.Warn("should appear")
	assert.Contains(t, buf.String(), "should appear")
}

func TestCredentialRedaction(t *testing.T) {
	type creds struct {
		User string
		Pass string
	}

	var buf bytes.Buffer
	logger := NewLoggerWithWriter(testConfig("debug"), &buf)

	logger.Info("adding camera",
		slog.Any("camera", creds{User: "admin", Pass: "s3cret"}),
		slog.String("pass", "s3cret"),
	)

	out := buf.String()
	assert.NotContains(t, out, "s3cret")
	assert.Contains(t, out, "admin")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "[REDACTED]", entry["pass"])
}

func TestContextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(testConfig("info"), &buf)

	ctx := ContextWithLogger(context.Background(), WithComponent(logger, "supervisor"))
	got := LoggerFromContext(ctx)
	got.Info("hello")
	assert.Contains(t, buf.String(), "supervisor")

	// No logger in context falls back to default.
	assert.NotNil(t, LoggerFromContext(context.Background()))
}

func TestRequestIDContext(t *testing.T) {
	ctx := ContextWithRequestID(context.Background(), "req-123")
	assert.Equal(t, "req-123", RequestIDFromContext(ctx))
	assert.Empty(t, RequestIDFromContext(context.Background()))
}
