package interview

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// InstrumentationName is the name used for OTEL instrumentation.
const InstrumentationName = "github.com/fyrsmithlabs/interviewd/internal/interview"

// Metrics provides OpenTelemetry metrics for interview sessions.
// Attribute cardinality stays bounded: phase names are a small fixed
// set per case, and session ids are never used as attributes.
type Metrics struct {
	evaluationsTotal metric.Int64Counter
	overallScore     metric.Float64Histogram
	transitionsTotal metric.Int64Counter
	coachingTotal    metric.Int64Counter
	sessionsActive   metric.Int64UpDownCounter

	initialized bool
}

// NewMetrics creates a Metrics instance with the provided meter.
// If meter is nil, the global meter provider is used.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		meter = otel.Meter(InstrumentationName)
	}

	m := &Metrics{}
	var err error

	m.evaluationsTotal, err = meter.Int64Counter(
		"interview.evaluations.total",
		metric.WithDescription("Total number of response evaluations"),
		metric.WithUnit("{evaluation}"),
	)
	if err != nil {
		return nil, err
	}

	m.overallScore, err = meter.Float64Histogram(
		"interview.evaluation.overall_score",
		metric.WithDescription("Overall score assigned per evaluation (1-10)"),
		metric.WithUnit("1"),
		metric.WithExplicitBucketBoundaries(1, 2, 3, 4, 5, 6, 7, 8, 9, 10),
	)
	if err != nil {
		return nil, err
	}

	m.transitionsTotal, err = meter.Int64Counter(
		"interview.transitions.total",
		metric.WithDescription("Total number of phase transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, err
	}

	m.coachingTotal, err = meter.Int64Counter(
		"interview.coaching.total",
		metric.WithDescription("Total number of coaching payloads produced"),
		metric.WithUnit("{coaching}"),
	)
	if err != nil {
		return nil, err
	}

	m.sessionsActive, err = meter.Int64UpDownCounter(
		"interview.sessions.active",
		metric.WithDescription("Number of sessions not yet ended"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return nil, err
	}

	m.initialized = true
	return m, nil
}

// RecordSessionStarted records a new live session.
func (m *Metrics) RecordSessionStarted(ctx context.Context) {
	if m == nil || !m.initialized {
		return
	}
	m.sessionsActive.Add(ctx, 1)
}

// RecordSessionEnded records a session reaching the terminal state.
func (m *Metrics) RecordSessionEnded(ctx context.Context) {
	if m == nil || !m.initialized {
		return
	}
	m.sessionsActive.Add(ctx, -1)
}

// RecordEvaluation records one scored response.
func (m *Metrics) RecordEvaluation(ctx context.Context, phase string, score float64, fallback bool) {
	if m == nil || !m.initialized {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("phase", phase),
		attribute.Bool("fallback", fallback),
	)
	m.evaluationsTotal.Add(ctx, 1, attrs)
	m.overallScore.Record(ctx, score, attrs)
}

// RecordTransition records a phase change or interview completion.
func (m *Metrics) RecordTransition(ctx context.Context, action Action) {
	if m == nil || !m.initialized {
		return
	}
	m.transitionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", string(action)),
	))
}

// RecordCoaching records one coaching payload.
func (m *Metrics) RecordCoaching(ctx context.Context, phase string, fallback bool) {
	if m == nil || !m.initialized {
		return
	}
	m.coachingTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("phase", phase),
		attribute.Bool("fallback", fallback),
	))
}
