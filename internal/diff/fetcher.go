package diff

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"code-critics/internal/githost"
	"code-critics/internal/types"
)

// ErrDiffTooLarge is returned when the diff response body exceeds the
// fetcher's byte cap. The caller should skip the review, not retry.
var ErrDiffTooLarge = errors.New("diff exceeds size limit")

// hosts a caller-supplied diff URL may point at
var allowedDiffHosts = []string{
	"github.com",
	".github.com",
	"githubusercontent.com",
	".githubusercontent.com",
}

// Fetcher retrieves the unified diff for a pull request. The webhook's
// diff_url is preferred when it passes the allow checks; otherwise the
// host compare API is used.
type Fetcher struct {
	host       githost.Client
	httpClient *http.Client
	maxBytes   int64 // response body cap; anything over is ErrDiffTooLarge
}

// NewFetcher creates a diff fetcher with the given per-fetch timeout and
// response size cap in bytes.
func NewFetcher(host githost.Client, timeout time.Duration, maxBytes int) *Fetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if maxBytes <= 0 {
		maxBytes = 1 << 20
	}
	return &Fetcher{
		host:       host,
		httpClient: &http.Client{Timeout: timeout},
		maxBytes:   int64(maxBytes),
	}
}

// Fetch returns the unified diff for the PR. diffURL may be empty.
func (f *Fetcher) Fetch(ctx context.Context, owner, repo string, number int, diffURL, baseSHA, headSHA string) (string, error) {
	if diffURL != "" {
		if err := ValidateDiffURL(diffURL, owner, repo, number); err != nil {
			slog.Warn("diff url rejected, falling back to compare API",
				"repo", owner+"/"+repo, "pr", number, "error", err)
		} else {
			diff, err := f.fetchURL(ctx, diffURL)
			if err == nil {
				return diff, nil
			}
			if errors.Is(err, ErrDiffTooLarge) {
				// The compare API would return the same oversized diff
				return "", err
			}
			slog.Warn("diff url fetch failed, falling back to compare API",
				"repo", owner+"/"+repo, "pr", number, "error", types.RedactError(err))
		}
	}

	diff, err := f.host.CompareCommits(ctx, owner, repo, baseSHA, headSHA)
	if err != nil {
		return "", fmt.Errorf("compare commits: %w", err)
	}
	return diff, nil
}

func (f *Fetcher) fetchURL(ctx context.Context, diffURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, diffURL, nil)
	if err != nil {
		return "", fmt.Errorf("build diff request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3.diff")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", types.NewRetryableError(fmt.Errorf("fetch diff: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("fetch diff: unexpected status %d", resp.StatusCode)
		if types.RetryableStatus(resp.StatusCode) {
			return "", types.NewRetryableError(err)
		}
		return "", err
	}

	// One byte of headroom distinguishes at-cap from over-cap
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return "", types.NewRetryableError(fmt.Errorf("read diff body: %w", err))
	}
	if int64(len(body)) > f.maxBytes {
		return "", fmt.Errorf("read diff body: %w", ErrDiffTooLarge)
	}
	return string(body), nil
}

// ValidateDiffURL rejects URLs that could redirect the fetch off the
// source host (SSRF). The URL must be http(s), resolve to an allowed
// host, and reference this exact pull request in its path.
func ValidateDiffURL(diffURL, owner, repo string, number int) error {
	u, err := url.Parse(diffURL)
	if err != nil {
		return fmt.Errorf("parse diff url: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("disallowed scheme %q", u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	allowed := false
	for _, h := range allowedDiffHosts {
		if strings.HasPrefix(h, ".") {
			if strings.HasSuffix(host, h) {
				allowed = true
				break
			}
		} else if host == h {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("disallowed host %q", host)
	}

	want := fmt.Sprintf("%s/%s/pull/%d", owner, repo, number)
	if !strings.Contains(u.Path, want) {
		return fmt.Errorf("path does not reference %s", want)
	}
	return nil
}
