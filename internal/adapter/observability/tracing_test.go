package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/ai-mock-interview/internal/config"
)

func TestSetupTracing_Disabled(t *testing.T) {
	shutdown, err := SetupTracing(config.Config{})
	require.NoError(t, err)
	assert.Nil(t, shutdown)
	assert.Contains(t, otel.GetTextMapPropagator().Fields(), "traceparent")
}

func TestSetupTracing_WithEndpoint(t *testing.T) {
	// the gRPC exporter dials lazily, so construction succeeds without a collector
	shutdown, err := SetupTracing(config.Config{OTLPEndpoint: "localhost:4317", OTELServiceName: "test-service"})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = shutdown(ctx)
}

func TestSamplingRatio(t *testing.T) {
	assert.Equal(t, 0.1, SamplingRatio(config.Config{AppEnv: "prod"}))
	assert.Equal(t, 1.0, SamplingRatio(config.Config{AppEnv: "dev"}))
	assert.Equal(t, 0.25, SamplingRatio(config.Config{AppEnv: "prod", OTELSamplingRatio: 0.25}))
	assert.Equal(t, 1.0, SamplingRatio(config.Config{AppEnv: "dev", OTELSamplingRatio: 7}))
}
