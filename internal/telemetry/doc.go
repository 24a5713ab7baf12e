// Package telemetry provides OpenTelemetry metrics export for interviewd.
//
// # Overview
//
// This package configures the OpenTelemetry metrics SDK and pushes metric
// data to an OTLP collector over gRPC or HTTP. Services record metrics
// through in-package meters; this package owns the global MeterProvider
// those meters resolve against, plus its periodic export and shutdown.
//
// # Usage
//
// Create a provider during startup:
//
//	tel, err := telemetry.New(ctx, cfg, logger)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(ctx)
//
// Record metrics through a meter:
//
//	meter := tel.Meter("interviewd.oracle")
//	counter, _ := meter.Int64Counter("oracle.completions")
//	counter.Add(ctx, 1)
//
// # Configuration
//
//	telemetry:
//	  enabled: true
//	  endpoint: "localhost:4317"
//	  protocol: "grpc"
//	  service_name: "interviewd"
//	  export_interval: "15s"
//
// # Error Handling
//
// Telemetry failures do not crash the daemon. If the exporter cannot be
// initialized the provider degrades gracefully: meters become no-ops and
// the failure is logged once at startup.
//
// # Testing
//
// Use TestProvider for tests:
//
//	tp := telemetry.NewTestProvider(t)
//	meter := tp.Meter("test")
//	counter, _ := meter.Int64Counter("test.events")
//	counter.Add(ctx, 1)
//	tp.AssertMetricExists(t, "test.events")
package telemetry
