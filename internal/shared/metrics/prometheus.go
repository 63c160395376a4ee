package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// Reminder engine metrics
	reminderEntriesBuilt = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_entries_built_total",
			Help: "Total number of reminder entries derived from clinical events",
		},
		[]string{"event_kind"},
	)

	reminderDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminders_dispatched_total",
			Help: "Total number of reminder delivery attempts",
		},
		[]string{"channel", "outcome"},
	)

	dispatchTickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reminder_dispatch_tick_duration_seconds",
			Help:    "Duration of a full dispatcher tick",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)

	rebuildRuns = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reminder_rebuild_runs_total",
			Help: "Total number of schedule rebuild passes",
		},
	)

	rebuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reminder_rebuild_duration_seconds",
			Help:    "Duration of a schedule rebuild pass",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	cleanupPurged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reminder_entries_purged_total",
			Help: "Total number of completed entries removed by cleanup",
		},
	)

	voiceAlerts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voice_alerts_total",
			Help: "Total number of synthesized voice alerts",
		},
		[]string{"urgency"},
	)

	immediateNotifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "immediate_notifications_total",
			Help: "Total number of immediate artifact notifications",
		},
		[]string{"artifact_kind", "outcome"},
	)

	storeErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_store_errors_total",
			Help: "Total number of schedule store I/O failures",
		},
		[]string{"operation"},
	)

	clinicalSyncEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinical_sync_events_total",
			Help: "Total number of clinical events synced from legacy systems",
		},
		[]string{"source", "kind"},
	)

	// Database metrics
	dbQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)
)

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware creates HTTP metrics middleware
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		// Wrap response writer to capture status code
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()
		path := normalizePath(r.URL.Path)

		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// normalizePath normalizes URL paths for metrics to avoid cardinality explosion
func normalizePath(path string) string {
	if len(path) > 100 {
		return "/api/..."
	}
	return path
}

// --- Reminder engine metric helpers ---

// RecordEntriesBuilt records reminder entries produced by the builder
func RecordEntriesBuilt(eventKind string, count int) {
	reminderEntriesBuilt.WithLabelValues(eventKind).Add(float64(count))
}

// RecordDispatch records a reminder delivery attempt
func RecordDispatch(channel, outcome string) {
	reminderDispatched.WithLabelValues(channel, outcome).Inc()
}

// RecordDispatchTick records the duration of a dispatcher tick
func RecordDispatchTick(duration time.Duration) {
	dispatchTickDuration.Observe(duration.Seconds())
}

// RecordRebuild records a completed rebuild pass
func RecordRebuild(duration time.Duration) {
	rebuildRuns.Inc()
	rebuildDuration.Observe(duration.Seconds())
}

// RecordCleanup records entries purged by the cleanup pass
func RecordCleanup(count int) {
	cleanupPurged.Add(float64(count))
}

// RecordVoiceAlert records a synthesized voice alert
func RecordVoiceAlert(urgency string) {
	voiceAlerts.WithLabelValues(urgency).Inc()
}

// RecordImmediateNotification records an immediate artifact notification
func RecordImmediateNotification(artifactKind, outcome string) {
	immediateNotifications.WithLabelValues(artifactKind, outcome).Inc()
}

// RecordStoreError records a schedule store I/O failure
func RecordStoreError(operation string) {
	storeErrors.WithLabelValues(operation).Inc()
}

// RecordClinicalSync records a clinical event synced from a legacy source
func RecordClinicalSync(source, kind string) {
	clinicalSyncEvents.WithLabelValues(source, kind).Inc()
}

// RecordDBQuery records a database query duration
func RecordDBQuery(operation string, duration time.Duration) {
	dbQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
