package tracing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextlevelbuilder/socialpilot/internal/config"
)

func TestSetupDisabledIsNoop(t *testing.T) {
	shutdown, err := Setup(context.Background(), config.TelemetryConfig{}, "test")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetupRequiresEndpoint(t *testing.T) {
	_, err := Setup(context.Background(), config.TelemetryConfig{Enabled: true}, "test")
	assert.Error(t, err)
}

func TestSetupHTTPExporter(t *testing.T) {
	cfg := config.TelemetryConfig{
		Enabled:  true,
		Endpoint: "127.0.0.1:4318",
		Protocol: "HTTP",
		Insecure: true,
		Headers:  map[string]string{"x-team": "social"},
	}
	shutdown, err := Setup(context.Background(), cfg, "test")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	// Nothing was recorded, so shutdown has no spans to flush.
	assert.NoError(t, shutdown(ctx))
}

func TestProtocol(t *testing.T) {
	assert.Equal(t, "grpc", protocol(config.TelemetryConfig{}))
	assert.Equal(t, "http", protocol(config.TelemetryConfig{Protocol: "http"}))
}
