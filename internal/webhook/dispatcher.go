package webhook

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"
	"sync"
	"unicode/utf8"

	"code-critics/internal/config"
	"code-critics/internal/domain"
	"code-critics/internal/metrics"
)

// Reviewer runs the review pipeline for an admitted envelope.
type Reviewer interface {
	Run(ctx context.Context, env *domain.Envelope, trigger domain.Trigger) domain.Outcome
}

// NoticePoster posts user-visible notices for requests that never become
// review jobs. May be nil; posts are best effort.
type NoticePoster interface {
	PostBusyNotice(ctx context.Context, repo domain.Repo, pullNumber int)
}

// Dispatcher is the webhook front door: it authenticates and classifies
// each request, ACKs fast, and runs the review on a detached goroutine.
type Dispatcher struct {
	cfg      *config.Config
	reviewer Reviewer
	notices  NoticePoster
	sem      chan struct{} // Bounds concurrent review jobs
	wg       sync.WaitGroup
}

// NewDispatcher creates a webhook dispatcher. notices may be nil.
func NewDispatcher(cfg *config.Config, reviewer Reviewer, notices NoticePoster) *Dispatcher {
	return &Dispatcher{
		cfg:      cfg,
		reviewer: reviewer,
		notices:  notices,
		sem:      make(chan struct{}, cfg.Server.ConcurrencyLimit),
	}
}

// WaitForCompletion blocks until all background review jobs complete.
func (d *Dispatcher) WaitForCompletion() {
	d.wg.Wait()
}

// ServeHTTP handles POST /api/webhooks.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	slog.Debug("received webhook request", "method", r.Method, "content_length", r.ContentLength)
	metrics.WebhookRequests.WithLabelValues("received").Inc()

	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, d.cfg.Server.MaxBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		slog.Warn("read body failed", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "error reading request body"})
		metrics.WebhookRequests.WithLabelValues("error_read").Inc()
		return
	}

	signature := r.Header.Get("X-Hub-Signature-256")
	event := r.Header.Get("X-GitHub-Event")
	deliveryID := r.Header.Get("X-GitHub-Delivery")

	if !VerifySignature(body, signature, d.cfg.Server.WebhookSecret) {
		slog.Warn("invalid signature", "delivery_id", deliveryID)
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "invalid signature"})
		metrics.WebhookRequests.WithLabelValues("invalid_signature").Inc()
		return
	}

	if !utf8.Valid(body) {
		slog.Warn("request body is not valid utf-8", "delivery_id", deliveryID)
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid encoding"})
		metrics.WebhookRequests.WithLabelValues("invalid_encoding").Inc()
		return
	}

	env, err := ParsePayload(event, deliveryID, body)
	if err != nil {
		var details []string
		if ve, ok := err.(*ValidationError); ok {
			details = ve.Details
		}
		slog.Warn("payload validation failed", "delivery_id", deliveryID, "details", details)
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload", "details": details})
		metrics.WebhookRequests.WithLabelValues("invalid_payload").Inc()
		return
	}

	switch env.Kind {
	case domain.EventPing:
		metrics.WebhookRequests.WithLabelValues("ping").Inc()
		writeJSON(w, http.StatusOK, map[string]any{"message": "pong"})
		return

	case domain.EventPRChanged:
		d.launch(w, env, domain.TriggerAuto, body)
		return

	case domain.EventMentionComment:
		d.launch(w, env, domain.TriggerManual, body)
		return

	default:
		metrics.WebhookRequests.WithLabelValues("ignored").Inc()
		writeJSON(w, http.StatusAccepted, map[string]any{
			"message": "event not handled: " + event + "/" + env.Action,
		})
		return
	}
}

// launch ACKs the request and runs the review asynchronously. Capacity is
// checked before the goroutine is created so a full queue never leaks one.
func (d *Dispatcher) launch(w http.ResponseWriter, env *domain.Envelope, trigger domain.Trigger, body []byte) {
	select {
	case d.sem <- struct{}{}:
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			defer func() { <-d.sem }()

			defer func() {
				if rec := recover(); rec != nil {
					slog.Error("panic recovered in review job",
						"panic", rec,
						"repo", env.Repo.FullName,
						"pr", env.PullNumber,
						"stack", string(debug.Stack()))
				}
			}()

			// Payload echo happens after ACK so intake latency stays flat
			slog.Debug("webhook payload", "delivery_id", env.DeliveryID, "payload", SanitizePayload(body))

			// Margin above the job deadline so the orchestrator, not this
			// context, decides the timeout outcome
			ctx, cancel := context.WithTimeout(context.Background(), d.cfg.Review.JobDeadline*2)
			defer cancel()

			outcome := d.reviewer.Run(ctx, env, trigger)
			slog.Info("review finished",
				"repo", env.Repo.FullName,
				"pr", env.PullNumber,
				"trigger", trigger,
				"outcome", outcome.Kind)
		}()

		metrics.WebhookRequests.WithLabelValues("accepted").Inc()
		writeJSON(w, http.StatusAccepted, map[string]any{"message": "review queued"})

	default:
		slog.Warn("concurrency limit reached, request dropped",
			"repo", env.Repo.FullName, "pr", env.PullNumber)
		metrics.WebhookRequests.WithLabelValues("dropped_concurrency").Inc()
		// The refused PR still gets a rate-limit notice, off the
		// request path so the 429 stays fast
		if d.notices != nil {
			d.wg.Add(1)
			go func() {
				defer d.wg.Done()
				d.notices.PostBusyNotice(context.Background(), env.Repo, env.PullNumber)
			}()
		}
		writeJSON(w, http.StatusTooManyRequests, map[string]any{"error": "server busy, please retry later"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("write response failed", "error", err)
	}
}
