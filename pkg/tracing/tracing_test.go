package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitTracerAndShutdown(t *testing.T) {
	ctx := context.Background()

	// The exporter connects lazily, so an unreachable endpoint is fine here.
	tp, err := InitTracer(ctx, "chatbot-backend-test", "127.0.0.1:1")
	require.NoError(t, err)
	require.NotNil(t, tp)

	_, span := tp.Tracer("test").Start(ctx, "noop")
	span.End()

	shutdownCtx, cancel := context.WithCancel(ctx)
	cancel()
	_ = Shutdown(shutdownCtx, tp)
}

func TestShutdownNil(t *testing.T) {
	assert.NoError(t, Shutdown(context.Background(), nil))
}
