package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce           sync.Once
	httpRequestsTotal      *prometheus.CounterVec
	httpLatencySeconds     *prometheus.HistogramVec
	httpErrorsTotal        *prometheus.CounterVec
	notificationsPublished *prometheus.CounterVec
	sseClientsActive       prometheus.Gauge
	logTransitionsTotal    *prometheus.CounterVec
	xpGrantedTotal         *prometheus.CounterVec
	levelUpsTotal          prometheus.Counter
	badgesAwardedTotal     *prometheus.CounterVec
	sideEffectFailures     *prometheus.CounterVec
	quizScores             prometheus.Histogram
	uploadsRejectedTotal   *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used across the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		notificationsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_published_total",
			Help: "Notifications published grouped by type.",
		}, []string{"type"})

		sseClientsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "notification_sse_clients_active",
			Help: "Currently connected notification stream clients.",
		})

		logTransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "log_transitions_total",
			Help: "Log workflow transitions grouped by source and target status.",
		}, []string{"from", "to"})

		xpGrantedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "xp_granted_total",
			Help: "Experience points granted grouped by reason.",
		}, []string{"reason"})

		levelUpsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "level_ups_total",
			Help: "Number of level ups reached by students.",
		})

		badgesAwardedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "badges_awarded_total",
			Help: "Badges newly awarded grouped by badge key.",
		}, []string{"badge"})

		sideEffectFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "workflow_side_effect_failures_total",
			Help: "Best-effort side effects that failed after a primary operation succeeded.",
		}, []string{"effect"})

		quizScores = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "quiz_scores",
			Help:    "Distribution of graded quiz scores.",
			Buckets: []float64{0, 25, 50, 75, 90, 100},
		})

		uploadsRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "log_uploads_rejected_total",
			Help: "Rejected log attachment uploads grouped by reason.",
		}, []string{"reason"})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			notificationsPublished,
			sseClientsActive,
			logTransitionsTotal,
			xpGrantedTotal,
			levelUpsTotal,
			badgesAwardedTotal,
			sideEffectFailures,
			quizScores,
			uploadsRejectedTotal,
		)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for API error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// NotificationsPublishedTotal exposes the notification counter.
func NotificationsPublishedTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationsPublished
}

// SSEClientsActive exposes the gauge of connected stream clients.
func SSEClientsActive() prometheus.Gauge {
	RegisterMetrics()
	return sseClientsActive
}

// LogTransitions exposes the workflow transition counter.
func LogTransitions() *prometheus.CounterVec {
	RegisterMetrics()
	return logTransitionsTotal
}

// XPGranted exposes the XP counter.
func XPGranted() *prometheus.CounterVec {
	RegisterMetrics()
	return xpGrantedTotal
}

// LevelUps exposes the level up counter.
func LevelUps() prometheus.Counter {
	RegisterMetrics()
	return levelUpsTotal
}

// BadgesAwarded exposes the badge counter.
func BadgesAwarded() *prometheus.CounterVec {
	RegisterMetrics()
	return badgesAwardedTotal
}

// SideEffectFailures exposes the counter of swallowed side-effect errors.
func SideEffectFailures() *prometheus.CounterVec {
	RegisterMetrics()
	return sideEffectFailures
}

// QuizScores exposes the quiz score histogram.
func QuizScores() prometheus.Histogram {
	RegisterMetrics()
	return quizScores
}

// UploadsRejected exposes the rejected upload counter.
func UploadsRejected() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadsRejectedTotal
}
