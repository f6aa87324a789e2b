package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProviderWithoutEndpointIsNoop(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{})
	require.NoError(t, err)
	require.NotNil(t, p.Tracer())

	_, span := p.Tracer().Start(context.Background(), "test-span")
	span.End()

	require.NoError(t, p.Shutdown(context.Background()))
}

func TestNoopProviderShutdownIsIdempotent(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{})
	require.NoError(t, err)
	assert.NoError(t, p.Shutdown(context.Background()))
	assert.NoError(t, p.Shutdown(context.Background()))
}
