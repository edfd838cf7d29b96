package review

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"code-critics/internal/config"
	"code-critics/internal/githost"
)

var timestampPattern = regexp.MustCompile(`<!-- timestamp: (\d+) -->`)

// Oracle decides whether an automatic run would duplicate a recent one by
// looking for the service's own summary marker among the PR comments.
type Oracle struct {
	host   githost.Client
	window time.Duration
	now    func() time.Time
}

// NewOracle creates a dedup oracle with the given recency window.
func NewOracle(host githost.Client, window time.Duration) *Oracle {
	if window <= 0 {
		window = time.Hour
	}
	return &Oracle{host: host, window: window, now: time.Now}
}

// RecentSummaryExists reports whether a bot summary comment with a
// timestamp inside the window is present on the PR.
func (o *Oracle) RecentSummaryExists(ctx context.Context, owner, repo string, number int) (bool, error) {
	comments, err := o.host.ListPRComments(ctx, owner, repo, number)
	if err != nil {
		return false, fmt.Errorf("list comments for dedup: %w", err)
	}

	var latest time.Time
	for _, c := range comments {
		ts, ok := SummaryTimestamp(c.Body)
		if !ok {
			continue
		}
		if ts.After(latest) {
			latest = ts
		}
	}
	if latest.IsZero() {
		return false, nil
	}
	return o.now().Sub(latest) < o.window, nil
}

// SummaryTimestamp extracts the embedded timestamp of a bot summary
// comment. Returns false for comments without the summary marker or with
// an unparsable timestamp.
func SummaryTimestamp(body string) (time.Time, bool) {
	if !strings.Contains(body, config.MarkerSummary) {
		return time.Time{}, false
	}
	m := timestampPattern.FindStringSubmatch(body)
	if len(m) < 2 {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}
