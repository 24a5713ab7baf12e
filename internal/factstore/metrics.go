package factstore

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// IngestDuration tracks how long whole-document ingestion takes,
	// embedding included.
	IngestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "interviewd",
			Subsystem: "factstore",
			Name:      "ingest_duration_seconds",
			Help:      "Duration of document ingestion in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// IngestChunks tracks how many chunks each ingested document produced.
	IngestChunks = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "interviewd",
			Subsystem: "factstore",
			Name:      "ingest_chunks",
			Help:      "Number of chunks produced per ingested document",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		},
	)

	// IngestTotal counts ingest operations.
	// Labels: result (success, error)
	IngestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "interviewd",
			Subsystem: "factstore",
			Name:      "ingests_total",
			Help:      "Total number of ingest operations",
		},
		[]string{"result"},
	)

	// SearchDuration tracks similarity search latency, query embedding
	// included.
	SearchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "interviewd",
			Subsystem: "factstore",
			Name:      "search_duration_seconds",
			Help:      "Duration of similarity searches in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// SearchTotal counts search operations.
	// Labels: result (success, error)
	SearchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "interviewd",
			Subsystem: "factstore",
			Name:      "searches_total",
			Help:      "Total number of similarity searches",
		},
		[]string{"result"},
	)

	// CacheAccess counts document cache lookups.
	// Labels: result (hit, miss)
	CacheAccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "interviewd",
			Subsystem: "factstore",
			Name:      "cache_access_total",
			Help:      "Total number of document cache lookups",
		},
		[]string{"result"},
	)
)

func observeIngest(elapsed time.Duration, chunks int, err error) {
	if err != nil {
		IngestTotal.WithLabelValues("error").Inc()
		return
	}
	IngestTotal.WithLabelValues("success").Inc()
	IngestDuration.Observe(elapsed.Seconds())
	IngestChunks.Observe(float64(chunks))
}

func observeSearch(elapsed time.Duration, err error) {
	if err != nil {
		SearchTotal.WithLabelValues("error").Inc()
		return
	}
	SearchTotal.WithLabelValues("success").Inc()
	SearchDuration.Observe(elapsed.Seconds())
}

func observeCache(hit bool) {
	if hit {
		CacheAccess.WithLabelValues("hit").Inc()
	} else {
		CacheAccess.WithLabelValues("miss").Inc()
	}
}
