package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingestion metrics
	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vmhistory_events_total",
			Help: "Total number of history events received",
		},
		[]string{"kind", "status"},
	)

	EventBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vmhistory_event_bytes_total",
			Help: "Total bytes of event payloads received",
		},
	)

	// Durable store metrics
	StoreWriteDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vmhistory_store_write_duration_seconds",
			Help:    "Duration of full history document rewrites in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	StoreLoadFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vmhistory_store_load_fallbacks_total",
			Help: "Number of times an unreadable history document was replaced by an empty one",
		},
		[]string{"stage"},
	)

	// Mirror log metrics
	MirrorErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vmhistory_mirror_errors_total",
			Help: "Total number of failed transcript writes",
		},
	)

	HistoryClears = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vmhistory_history_clears_total",
			Help: "Total number of history resets",
		},
	)

	// Rate limiting metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vmhistory_rate_limit_hits_total",
			Help: "Total number of rejected requests due to rate limiting",
		},
		[]string{"client"},
	)

	// Event fan-out metrics
	PublishErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vmhistory_publish_errors_total",
			Help: "Total number of events that could not be published to the message bus",
		},
		[]string{"subject"},
	)
)
