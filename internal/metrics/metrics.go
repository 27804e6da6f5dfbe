package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Refresh pipeline counters and histograms.

var (
	// Job queue
	JobsEnqueued = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "token_metadata",
		Subsystem: "jobs",
		Name:      "enqueued_total",
		Help:      "Total jobs inserted, by target kind",
	}, []string{"target"})

	JobsClaimed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "token_metadata",
		Subsystem: "jobs",
		Name:      "claimed_total",
		Help:      "Total jobs claimed by workers",
	})

	JobsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "token_metadata",
		Subsystem: "jobs",
		Name:      "finished_total",
		Help:      "Total job outcomes (done, retry, failed)",
	}, []string{"outcome"})

	JobsSkippedRateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "token_metadata",
		Subsystem: "jobs",
		Name:      "skipped_rate_limited_total",
		Help:      "Candidates left pending because their host is rate limited",
	})

	JobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "token_metadata",
		Subsystem: "jobs",
		Name:      "duration_seconds",
		Help:      "Job processing duration",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"target"})

	// Fetcher
	FetchLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "token_metadata",
		Subsystem: "fetcher",
		Name:      "request_duration_seconds",
		Help:      "Metadata fetch duration by uri scheme",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"scheme"})

	FetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "token_metadata",
		Subsystem: "fetcher",
		Name:      "errors_total",
		Help:      "Metadata fetch failures by kind",
	}, []string{"kind"})

	HostPenalties = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "token_metadata",
		Subsystem: "fetcher",
		Name:      "host_penalties_total",
		Help:      "Total host penalties recorded after 429/503 responses",
	})

	// Notifications and chain tip
	NotificationsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "token_metadata",
		Subsystem: "notifications",
		Name:      "applied_total",
		Help:      "Update notifications applied, by update mode",
	}, []string{"mode"})

	ChainTipHeight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "token_metadata",
		Subsystem: "chain",
		Name:      "tip_block_height",
		Help:      "Last processed block height",
	})

	DynamicSweeps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "token_metadata",
		Subsystem: "notifications",
		Name:      "dynamic_sweeps_total",
		Help:      "Dynamic refresh sweep attempts by result (ran, skipped, lost)",
	}, []string{"result"})

	// HTTP cache
	EtagResponses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "token_metadata",
		Subsystem: "http",
		Name:      "etag_responses_total",
		Help:      "Conditional request outcomes (hit, miss, unknown)",
	}, []string{"result"})
)
