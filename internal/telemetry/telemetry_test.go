package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	assert.False(t, cfg.Enabled, "telemetry should be off by default")
	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.Equal(t, ProtocolGRPC, cfg.Protocol)
	assert.Equal(t, "interviewd", cfg.ServiceName)
	assert.True(t, cfg.Insecure)
	assert.Equal(t, 15*time.Second, cfg.ExportInterval)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
	require.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults enabled", func(c *Config) { c.Enabled = true }, false},
		{"disabled skips validation", func(c *Config) { c.Endpoint = "" }, false},
		{"missing endpoint", func(c *Config) { c.Enabled = true; c.Endpoint = "" }, true},
		{"bad protocol", func(c *Config) { c.Enabled = true; c.Protocol = "carrier-pigeon" }, true},
		{"missing service name", func(c *Config) { c.Enabled = true; c.ServiceName = "" }, true},
		{"insecure remote endpoint", func(c *Config) {
			c.Enabled = true
			c.Endpoint = "collector.example.com:4317"
		}, true},
		{"secure remote endpoint", func(c *Config) {
			c.Enabled = true
			c.Endpoint = "collector.example.com:4317"
			c.Insecure = false
		}, false},
		{"http protocol", func(c *Config) { c.Enabled = true; c.Protocol = ProtocolHTTP }, false},
		{"zero export interval", func(c *Config) { c.Enabled = true; c.ExportInterval = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestIsLocalEndpoint(t *testing.T) {
	tests := []struct {
		endpoint string
		local    bool
	}{
		{"localhost:4317", true},
		{"127.0.0.1:4317", true},
		{"127.0.0.53:4317", true},
		{"[::1]:4317", true},
		{"::1", true},
		{"http://localhost:4318", true},
		{"https://127.0.0.1:4318", true},
		{"collector.example.com:4317", false},
		{"192.168.1.10:4317", false},
	}
	for _, tt := range tests {
		cfg := Config{Endpoint: tt.endpoint}
		assert.Equal(t, tt.local, cfg.isLocalEndpoint(), "endpoint %q", tt.endpoint)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{Endpoint: "otel.internal:4317", Insecure: false}
	cfg.ApplyDefaults()
	assert.Equal(t, "otel.internal:4317", cfg.Endpoint, "set fields survive")
	assert.False(t, cfg.Insecure, "insecure is never defaulted on")
	assert.Equal(t, ProtocolGRPC, cfg.Protocol)
	assert.Equal(t, 15*time.Second, cfg.ExportInterval)
}

func TestNewDisabled(t *testing.T) {
	p, err := New(context.Background(), Config{Enabled: false}, nil)
	require.NoError(t, err)
	require.NotNil(t, p)

	assert.False(t, p.IsEnabled())
	health := p.Health()
	assert.True(t, health.Healthy)
	assert.False(t, health.Degraded)
	assert.NotNil(t, p.Meter("interviewd.test"))
	require.NoError(t, p.ForceFlush(context.Background()))
	require.NoError(t, p.Shutdown(context.Background()))
	assert.False(t, p.IsEnabled(), "shutdown marks unhealthy")
}

func TestNewInvalidConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Enabled = true
	cfg.Protocol = "carrier-pigeon"

	_, err := New(context.Background(), cfg, nil)
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNilProvider(t *testing.T) {
	var p *Provider
	assert.NotNil(t, p.Meter("interviewd.test"))
	assert.False(t, p.IsEnabled())
	assert.True(t, p.Health().Degraded)
	require.NoError(t, p.Shutdown(context.Background()))
	require.NoError(t, p.ForceFlush(context.Background()))
}

func TestTestProviderCollectsMetrics(t *testing.T) {
	tp := NewTestProvider(t)

	meter := tp.Meter("interviewd.test")
	counter, err := meter.Int64Counter("test.events")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	m, ok := tp.MetricByName("test.events")
	require.True(t, ok, "recorded metric should be collectable")

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "counter data should be a Sum")
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(3), sum.DataPoints[0].Value)

	tp.AssertMetricExists(t, "test.events")
}
