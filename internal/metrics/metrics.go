package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	bookingCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "roombook",
			Name:      "booking_created_total",
			Help:      "Count of booking submissions by outcome.",
		},
		[]string{"status"},
	)

	bookingCancelled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "roombook",
			Name:      "booking_cancelled_total",
			Help:      "Count of booking cancellations by outcome.",
		},
		[]string{"status"},
	)

	apiRequests = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "roombook",
			Name:      "api_request_duration_seconds",
			Help:      "Latency of content API calls.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint", "status"},
	)

	staleDiscarded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "roombook",
			Name:      "stale_fetch_discarded_total",
			Help:      "Fetch results dropped because a newer reload superseded them.",
		},
	)

	snapshotFallback = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "roombook",
			Name:      "snapshot_fallback_total",
			Help:      "Reloads served from the local snapshot after an API failure.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "roombook",
			Name:      "http_requests_total",
			Help:      "Count of calendar HTTP requests by handler.",
		},
		[]string{"handler"},
	)

	activeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "roombook",
			Name:      "active_sessions",
			Help:      "Calendar sessions currently held in memory.",
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(bookingCreated, bookingCancelled, apiRequests, staleDiscarded, snapshotFallback,
			httpRequests, activeSessions)
	})
}

func IncBookingCreated(status string) {
	bookingCreated.WithLabelValues(status).Inc()
}

func IncBookingCancelled(status string) {
	bookingCancelled.WithLabelValues(status).Inc()
}

func ObserveAPIRequest(endpoint, status string, d time.Duration) {
	apiRequests.WithLabelValues(endpoint, status).Observe(d.Seconds())
}

func IncStaleDiscarded() {
	staleDiscarded.Inc()
}

func IncSnapshotFallback() {
	snapshotFallback.Inc()
}

func IncHTTP(handler string) {
	httpRequests.WithLabelValues(handler).Inc()
}

func SetActiveSessions(n int) {
	activeSessions.Set(float64(n))
}
