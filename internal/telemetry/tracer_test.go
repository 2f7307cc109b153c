package telemetry

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInitTracerWritesSpans(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := InitTracer("lane-test", &buf, zap.NewNop())
	require.NoError(t, err)

	_, span := Tracer().Start(context.Background(), "process frame")
	span.End()
	require.NoError(t, shutdown(context.Background()))

	assert.Contains(t, buf.String(), "process frame")
	assert.Contains(t, buf.String(), "lane-test")
}

func TestInitTracerNoop(t *testing.T) {
	shutdown, err := InitTracer("lane-test", nil, zap.NewNop())
	require.NoError(t, err)

	_, span := Tracer().Start(context.Background(), "ignored")
	assert.False(t, span.SpanContext().IsValid())
	span.End()
	assert.NoError(t, shutdown(context.Background()))
}
