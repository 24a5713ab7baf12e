package telemetry

import (
	"context"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// TestProvider provides in-memory metrics collection for tests.
type TestProvider struct {
	*Provider
	reader *sdkmetric.ManualReader
}

// NewTestProvider creates a Provider backed by a manual reader, so
// tests can collect recorded metrics without an exporter. The provider
// is shut down when the test ends.
func NewTestProvider(tb testing.TB) *TestProvider {
	tb.Helper()

	cfg := NewDefaultConfig()
	cfg.Enabled = true

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	p := &Provider{cfg: cfg, meterProvider: mp}
	p.healthy.Store(true)
	tb.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	return &TestProvider{Provider: p, reader: reader}
}

// Collect gathers all metric data recorded so far.
func (t *TestProvider) Collect(ctx context.Context) (metricdata.ResourceMetrics, error) {
	var rm metricdata.ResourceMetrics
	err := t.reader.Collect(ctx, &rm)
	return rm, err
}

// MetricByName finds a recorded metric by instrument name.
func (t *TestProvider) MetricByName(name string) (metricdata.Metrics, bool) {
	rm, err := t.Collect(context.Background())
	if err != nil {
		return metricdata.Metrics{}, false
	}
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name == name {
				return m, true
			}
		}
	}
	return metricdata.Metrics{}, false
}

// AssertMetricExists verifies an instrument with the given name has
// recorded data.
func (t *TestProvider) AssertMetricExists(tb testing.TB, name string) {
	tb.Helper()
	if _, ok := t.MetricByName(name); !ok {
		tb.Errorf("expected metric %q not found", name)
	}
}
