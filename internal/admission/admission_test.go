package admission

import (
	"testing"
	"time"

	"code-critics/internal/config"
	"code-critics/internal/domain"
)

func admissionConfig(allowed []string, maxPerWindow int) *config.Config {
	cfg := &config.Config{}
	cfg.Review.AllowedRepositories = allowed
	cfg.RateLimit.MaxPerWindow = maxPerWindow
	cfg.RateLimit.Window = time.Hour
	cfg.RateLimit.MaxKeys = 100
	return cfg
}

func repo(fullName string) domain.Repo {
	return domain.Repo{Owner: "alice", Name: "repo", FullName: fullName}
}

func TestController_EmptyAllowListAdmitsAll(t *testing.T) {
	c := NewController(admissionConfig(nil, 10))

	if got := c.Check(repo("anyone/anything"), domain.TriggerAuto); got != Admitted {
		t.Errorf("expected admitted, got %v", got)
	}
}

func TestController_AllowList(t *testing.T) {
	c := NewController(admissionConfig([]string{"alice/repo"}, 10))

	if got := c.Check(repo("alice/repo"), domain.TriggerAuto); got != Admitted {
		t.Errorf("listed repo: expected admitted, got %v", got)
	}
	if got := c.Check(repo("mallory/repo"), domain.TriggerAuto); got != Disallowed {
		t.Errorf("unlisted repo: expected disallowed, got %v", got)
	}
}

func TestController_RateLimited(t *testing.T) {
	c := NewController(admissionConfig(nil, 2))

	c.Check(repo("a/b"), domain.TriggerAuto)
	c.Check(repo("a/b"), domain.TriggerAuto)
	if got := c.Check(repo("a/b"), domain.TriggerAuto); got != RateLimited {
		t.Errorf("expected rate limited, got %v", got)
	}
}

func TestController_ManualBudgetSeparate(t *testing.T) {
	c := NewController(admissionConfig(nil, 1))

	if got := c.Check(repo("a/b"), domain.TriggerAuto); got != Admitted {
		t.Fatalf("auto: expected admitted, got %v", got)
	}
	if got := c.Check(repo("a/b"), domain.TriggerAuto); got != RateLimited {
		t.Fatalf("auto over budget: expected rate limited, got %v", got)
	}

	// Manual trigger draws from its own key
	if got := c.Check(repo("a/b"), domain.TriggerManual); got != Admitted {
		t.Errorf("manual: expected admitted, got %v", got)
	}
	if got := c.Check(repo("a/b"), domain.TriggerManual); got != RateLimited {
		t.Errorf("manual over budget: expected rate limited, got %v", got)
	}
}

func TestController_DisallowedConsumesNoBudget(t *testing.T) {
	c := NewController(admissionConfig([]string{"alice/repo"}, 1))

	c.Check(repo("mallory/repo"), domain.TriggerAuto)
	if c.Limiter().Remaining("mallory/repo") != 1 {
		t.Error("disallowed check must not consume rate budget")
	}
}
