package admission

import (
	"log/slog"

	"code-critics/internal/config"
	"code-critics/internal/domain"
	"code-critics/internal/metrics"
)

// Decision is the result of the admission check.
type Decision int

const (
	Admitted Decision = iota
	Disallowed
	RateLimited
)

// Controller combines the repository allow-list with the per-repository
// rate limiter. Automatic and manual triggers draw from separate budgets.
type Controller struct {
	allowed map[string]bool
	limiter *RateLimiter
}

// NewController builds a controller from configuration.
func NewController(cfg *config.Config) *Controller {
	var allowed map[string]bool
	if len(cfg.Review.AllowedRepositories) > 0 {
		allowed = make(map[string]bool, len(cfg.Review.AllowedRepositories))
		for _, r := range cfg.Review.AllowedRepositories {
			allowed[r] = true
		}
	}
	return &Controller{
		allowed: allowed,
		limiter: NewRateLimiter(cfg.RateLimit.MaxPerWindow, cfg.RateLimit.Window, cfg.RateLimit.MaxKeys),
	}
}

// Limiter exposes the underlying rate limiter for health reporting.
func (c *Controller) Limiter() *RateLimiter { return c.limiter }

// Check runs the allow-list test, then consumes the trigger's rate
// budget. A Disallowed result consumes nothing.
func (c *Controller) Check(repo domain.Repo, trigger domain.Trigger) Decision {
	if c.allowed != nil && !c.allowed[repo.FullName] {
		slog.Info("repository not in allow-list", "repo", repo.FullName)
		return Disallowed
	}

	key := repo.FullName
	if trigger == domain.TriggerManual {
		key += "#manual"
	}
	if !c.limiter.Allow(key) {
		metrics.RateLimitRejections.Inc()
		slog.Warn("rate limit exceeded", "repo", repo.FullName, "trigger", trigger)
		return RateLimited
	}
	return Admitted
}
