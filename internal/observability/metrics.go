package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	httpRequestsTotal     *prometheus.CounterVec
	httpLatencySeconds    *prometheus.HistogramVec
	httpErrorsTotal       *prometheus.CounterVec
	gradingJobsTotal      *prometheus.CounterVec
	gradingJobRetries     prometheus.Counter
	submissionsSweptTotal prometheus.Counter
	chatConnectionsTotal  prometheus.Counter
	chatMessagesSent      *prometheus.CounterVec
	notificationsTotal    *prometheus.CounterVec
	sseClientsActive      prometheus.Gauge
)

// RegisterMetrics initialises the Prometheus collectors used across the portal.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "portal_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		gradingJobsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grading_jobs_total",
			Help: "Grading job outcomes by result.",
		}, []string{"result"})

		gradingJobRetries = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "grading_job_retries_total",
			Help: "Number of grading job retry attempts.",
		})

		submissionsSweptTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "submissions_swept_total",
			Help: "Expired attempts auto-submitted by the sweeper.",
		})

		chatConnectionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chat_connections_total",
			Help: "Total websocket chat connections accepted.",
		})

		chatMessagesSent = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_messages_sent_total",
			Help: "Chat messages broadcast, labelled by message type.",
		}, []string{"type"})

		notificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_published_total",
			Help: "Notifications published, labelled by notification type.",
		}, []string{"type"})

		sseClientsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sse_clients_active",
			Help: "Currently connected notification stream clients.",
		})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			gradingJobsTotal,
			gradingJobRetries,
			submissionsSweptTotal,
			chatConnectionsTotal,
			chatMessagesSent,
			notificationsTotal,
			sseClientsActive,
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

// GradingJobs exposes the grading job outcome counter.
func GradingJobs() *prometheus.CounterVec {
	RegisterMetrics()
	return gradingJobsTotal
}

// GradingRetries exposes the grading retry counter.
func GradingRetries() prometheus.Counter {
	RegisterMetrics()
	return gradingJobRetries
}

// SubmissionsSwept exposes the sweeper counter.
func SubmissionsSwept() prometheus.Counter {
	RegisterMetrics()
	return submissionsSweptTotal
}

// ChatConnectionsTotal exposes the chat connection counter.
func ChatConnectionsTotal() prometheus.Counter {
	RegisterMetrics()
	return chatConnectionsTotal
}

// ChatMessagesSent exposes the chat message counter.
func ChatMessagesSent() *prometheus.CounterVec {
	RegisterMetrics()
	return chatMessagesSent
}

// NotificationsPublishedTotal exposes the notification counter.
func NotificationsPublishedTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationsTotal
}

// SSEClientsActive exposes the active stream client gauge.
func SSEClientsActive() prometheus.Gauge {
	RegisterMetrics()
	return sseClientsActive
}
