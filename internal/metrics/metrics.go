package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tradeslink"

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Current number of HTTP requests being processed",
		},
	)
)

// Marketplace metrics
var (
	JobsPosted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_posted_total",
			Help:      "Total number of jobs posted by customers",
		},
	)

	ApplicationsSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "applications_submitted_total",
			Help:      "Total number of job applications submitted",
		},
	)

	QuotesRequested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quotes_requested_total",
			Help:      "Total number of quote requests received",
		},
		[]string{"sender"}, // "customer" or "anonymous"
	)

	QuotaRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_rejections_total",
			Help:      "Submissions refused because a monthly allowance was used up",
		},
		[]string{"kind", "tier"},
	)

	Transitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_transitions_total",
			Help:      "Status transitions applied, by entity and action",
		},
		[]string{"entity", "action"},
	)

	RejectedTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_transitions_rejected_total",
			Help:      "Status transitions refused by a transition table or a concurrent change",
		},
		[]string{"entity"},
	)
)

// Moderation and billing metrics
var (
	ModerationActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "moderation_actions_total",
			Help:      "Admin moderation actions on reports",
		},
		[]string{"action", "content_action"},
	)

	ReviewsApproved = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reviews_approved_total",
			Help:      "Total number of reviews approved",
		},
	)

	BillingCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "billing_calls_total",
			Help:      "Calls to the billing provider",
		},
		[]string{"operation", "status"},
	)

	StorageUploadBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_upload_bytes_total",
			Help:      "Bytes written to object storage",
		},
		[]string{"kind"}, // "portfolio", "thumbnail" or "verification"
	)
)
