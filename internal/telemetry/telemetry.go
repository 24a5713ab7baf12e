package telemetry

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

// Provider owns the metrics MeterProvider and its shutdown.
//
// Export failures never crash the daemon: when the exporter cannot be
// built the provider degrades to no-op meters and reports itself
// degraded.
type Provider struct {
	cfg    Config
	logger *zap.Logger

	meterProvider *sdkmetric.MeterProvider

	healthy  atomic.Bool
	degraded atomic.Bool
}

// New creates a Provider and, when telemetry is enabled, installs the
// global MeterProvider so in-package meters resolve against it.
//
// A disabled config returns a healthy no-op instance. Exporter
// construction errors degrade gracefully instead of failing startup.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Provider, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Provider{cfg: cfg, logger: logger}
	p.healthy.Store(true)

	if !cfg.Enabled {
		return p, nil
	}

	mp, err := newMeterProvider(ctx, cfg, newResource(cfg))
	if err != nil {
		p.setDegraded("meter provider failed", err)
		return p, nil
	}
	p.meterProvider = mp
	otel.SetMeterProvider(mp)

	logger.Info("metrics export enabled",
		zap.String("endpoint", cfg.Endpoint),
		zap.String("protocol", cfg.Protocol),
		zap.Duration("interval", cfg.ExportInterval))
	return p, nil
}

// Meter returns a meter for the given instrumentation scope. It falls
// back to the global provider when this one is disabled or degraded.
func (p *Provider) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	if p == nil || p.meterProvider == nil {
		return otel.GetMeterProvider().Meter(name, opts...)
	}
	return p.meterProvider.Meter(name, opts...)
}

// Shutdown flushes pending metrics and stops the exporter. When ctx has
// no deadline, the configured shutdown timeout applies.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	p.healthy.Store(false)
	if p.meterProvider == nil {
		return nil
	}

	if _, ok := ctx.Deadline(); !ok && p.cfg.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.ShutdownTimeout)
		defer cancel()
	}

	if err := p.meterProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("meter provider shutdown: %w", err)
	}
	return nil
}

// ForceFlush immediately exports all pending metric data.
func (p *Provider) ForceFlush(ctx context.Context) error {
	if p == nil || p.meterProvider == nil {
		return nil
	}
	if err := p.meterProvider.ForceFlush(ctx); err != nil {
		return fmt.Errorf("meter flush: %w", err)
	}
	return nil
}

// HealthStatus reports provider health.
type HealthStatus struct {
	Healthy  bool
	Degraded bool
}

// Health returns the current telemetry health status.
func (p *Provider) Health() HealthStatus {
	if p == nil {
		return HealthStatus{Healthy: false, Degraded: true}
	}
	return HealthStatus{
		Healthy:  p.healthy.Load(),
		Degraded: p.degraded.Load(),
	}
}

// IsEnabled returns true if telemetry is enabled and healthy.
func (p *Provider) IsEnabled() bool {
	if p == nil {
		return false
	}
	return p.cfg.Enabled && p.healthy.Load()
}

func (p *Provider) setDegraded(msg string, err error) {
	p.degraded.Store(true)
	p.logger.Warn("telemetry degraded: "+msg, zap.Error(err))
}
