package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"code-critics/internal/config"
	"code-critics/internal/githost"
	"code-critics/internal/types"

	"golang.org/x/sync/errgroup"
)

// ProviderStatus is the gateway surface health reporting needs.
type ProviderStatus interface {
	Available() bool
	PrimaryAvailable() bool
	ProviderName() string
}

// Handler serves GET /health and GET /api/info.
type Handler struct {
	cfg     *config.Config
	host    githost.Client
	gateway ProviderStatus
	version string
}

// NewHandler creates the health handler.
func NewHandler(cfg *config.Config, host githost.Client, gateway ProviderStatus, version string) *Handler {
	return &Handler{cfg: cfg, host: host, gateway: gateway, version: version}
}

type report struct {
	Status    string         `json:"status"` // ok, degraded
	Checks    map[string]any `json:"checks"`
	Config    map[string]any `json:"config"`
	Timestamp time.Time      `json:"timestamp"`
}

// ServeHealth self-tests configuration, host reachability, and provider
// availability. Host identity failure degrades the service (503).
func (h *Handler) ServeHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	checks := map[string]any{
		"github_token_present":   h.cfg.GitHub.Token != "",
		"webhook_secret_present": h.cfg.Server.WebhookSecret != "",
		"provider_available":     h.gateway.Available(),
		"provider_primary":       h.gateway.PrimaryAvailable(),
		"provider":               h.gateway.ProviderName(),
	}

	var identity githost.Identity
	var rate githost.RateLimitInfo
	var identityErr error

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		identity, identityErr = h.host.ValidateIdentity(gCtx)
		return nil
	})
	g.Go(func() error {
		info, err := h.host.RateLimit(gCtx)
		if err != nil {
			slog.Warn("rate limit probe failed", "error", types.RedactError(err))
			return nil
		}
		rate = info
		return nil
	})
	g.Wait()

	status := "ok"
	httpStatus := http.StatusOK
	if identityErr != nil {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
		checks["github_identity"] = "unreachable"
		slog.Warn("host identity check failed", "error", types.RedactError(identityErr))
	} else {
		checks["github_identity"] = identity.Login
		checks["github_rate_limit"] = map[string]any{
			"limit":     rate.Limit,
			"remaining": rate.Remaining,
			"reset":     rate.Reset,
		}
	}

	writeJSON(w, httpStatus, report{
		Status: status,
		Checks: checks,
		Config: map[string]any{
			"provider":           h.cfg.LLM.Provider,
			"max_diff_size":      h.cfg.Review.MaxDiffSize,
			"chunk_size":         h.cfg.Review.ChunkSize,
			"allow_list_present": len(h.cfg.Review.AllowedRepositories) > 0,
		},
		Timestamp: time.Now().UTC(),
	})
}

// ServeInfo returns static service metadata.
func (h *Handler) ServeInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "code-critics",
		"version": h.version,
		"endpoints": []string{
			"POST /api/webhooks",
			"GET /health",
			"GET /api/info",
			"GET /metrics",
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("write health response failed", "error", err)
	}
}
