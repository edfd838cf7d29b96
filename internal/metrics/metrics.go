package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebhookRequests counts incoming webhooks, labeled by status.
	WebhookRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codecritics_webhook_requests_total",
		Help: "The total number of received webhook requests",
	}, []string{"status"}) // status: accepted, ping, ignored, invalid_signature, invalid_payload, dropped_concurrency

	// ReviewTotal counts review jobs by terminal outcome.
	ReviewTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codecritics_reviews_total",
		Help: "The total number of review jobs by outcome",
	}, []string{"outcome"}) // outcome: no_issues, findings, skipped, failed

	// ReviewDuration measures end-to-end review time.
	ReviewDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "codecritics_review_duration_seconds",
		Help:    "Time taken to run a review job",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})

	// LLMCalls counts provider calls by provider and status.
	LLMCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codecritics_llm_calls_total",
		Help: "The total number of LLM provider calls",
	}, []string{"provider", "status"}) // status: success, error, retry

	// CommentPostFailures counts failed posts back to the source host.
	CommentPostFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codecritics_comment_failures_total",
		Help: "Total number of failed comment or status posts",
	}, []string{"reason"}) // reason: summary, inline, status, notice

	// RateLimitRejections counts admissions refused by the limiter.
	RateLimitRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "codecritics_rate_limit_rejections_total",
		Help: "Total number of reviews refused by the per-repository rate limiter",
	})
)
