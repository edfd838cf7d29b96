package review

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"code-critics/internal/config"
	"code-critics/internal/domain"
	"code-critics/internal/githost"
	"code-critics/internal/metrics"
	"code-critics/internal/types"

	"golang.org/x/sync/errgroup"
)

// Publisher reflects review outcomes back to the source host: summary
// comments, inline review comments, commit statuses, and human-readable
// notices. Each post can fail independently; failures are logged and
// counted, never escalated into the job outcome.
type Publisher struct {
	host        githost.Client
	postTimeout time.Duration
	now         func() time.Time
}

// NewPublisher creates a publisher with the per-post timeout.
func NewPublisher(host githost.Client, postTimeout time.Duration) *Publisher {
	if postTimeout <= 0 {
		postTimeout = 10 * time.Second
	}
	return &Publisher{host: host, postTimeout: postTimeout, now: time.Now}
}

// summaryFooter stamps a body with the summary and timestamp markers the
// dedup oracle looks for.
func (p *Publisher) summaryFooter() string {
	return fmt.Sprintf("\n\n%s\n"+config.MarkerTimestamp, config.MarkerSummary, p.now().UnixMilli())
}

// PublishFindings creates one review carrying every inline comment plus a
// PR-level summary comment. The review and the summary post in parallel.
func (p *Publisher) PublishFindings(ctx context.Context, job *domain.Job, findings []domain.Finding) {
	inline := make([]githost.InlineComment, 0, len(findings))
	for _, f := range findings {
		inline = append(inline, githost.InlineComment{
			Path: f.Path,
			Line: f.Line,
			Body: RenderFinding(f),
		})
	}

	reviewBody := fmt.Sprintf("CodeCritic found %d issue(s) in this pull request (max severity: %s). See inline comments.",
		len(findings), domain.MaxSeverity(findings))

	summary := p.renderSummary(findings) + p.summaryFooter()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		postCtx, cancel := context.WithTimeout(gCtx, p.postTimeout)
		defer cancel()
		if err := p.host.CreateReview(postCtx, job.Repo.Owner, job.Repo.Name, job.Number, githost.ReviewRequest{
			Body:     reviewBody,
			Event:    "COMMENT",
			Comments: inline,
		}); err != nil {
			metrics.CommentPostFailures.WithLabelValues("inline").Inc()
			slog.Error("create review failed",
				"repo", job.Repo.FullName, "pr", job.Number, "error", types.RedactError(err))
		}
		return nil
	})
	g.Go(func() error {
		postCtx, cancel := context.WithTimeout(gCtx, p.postTimeout)
		defer cancel()
		if err := p.host.CreatePRIssueComment(postCtx, job.Repo.Owner, job.Repo.Name, job.Number, summary); err != nil {
			metrics.CommentPostFailures.WithLabelValues("summary").Inc()
			slog.Error("post summary failed",
				"repo", job.Repo.FullName, "pr", job.Number, "error", types.RedactError(err))
		}
		return nil
	})
	g.Wait()
}

func (p *Publisher) renderSummary(findings []domain.Finding) string {
	counts := map[domain.Severity]int{}
	for _, f := range findings {
		counts[f.Severity]++
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## CodeCritic AI Review\n\nFound **%d** issue(s):\n\n", len(findings))
	for _, sev := range []domain.Severity{domain.SeverityCritical, domain.SeverityHigh, domain.SeverityMedium, domain.SeverityLow} {
		if counts[sev] > 0 {
			fmt.Fprintf(&sb, "- %s: %d\n", sev, counts[sev])
		}
	}
	sb.WriteString("\nDetails are in the inline review comments.")
	return sb.String()
}

// PublishNoIssues posts the clean-diff summary comment.
func (p *Publisher) PublishNoIssues(ctx context.Context, job *domain.Job) {
	body := "## CodeCritic AI Review\n\n" + config.NoIssuesSentinel + p.summaryFooter()
	p.postComment(ctx, job, body, "summary")
}

// PublishSkipNotice posts a human-readable explanation for a skipped run.
// Rate-limit and admission skips deliberately omit the summary marker so
// they never suppress a later real review.
func (p *Publisher) PublishSkipNotice(ctx context.Context, job *domain.Job, reason domain.SkipReason) {
	var body string
	switch reason {
	case domain.SkipDiffTooLarge:
		body = "CodeCritic review skipped: the diff is too large to review, even after filtering to supported file types."
	case domain.SkipNoSupportedFiles:
		body = "CodeCritic review skipped: no supported file types found in this diff."
	case domain.SkipRateLimited:
		body = config.MsgRateLimited
	default:
		return // Disallowed and duplicate runs stay silent
	}
	p.postComment(ctx, job, body, "notice")
}

// PublishFailure posts the sanitized, category-stable failure message.
func (p *Publisher) PublishFailure(ctx context.Context, job *domain.Job, kind domain.FailureKind) {
	var msg string
	switch kind {
	case domain.FailTimeout:
		msg = config.MsgTimeout
	case domain.FailTransient:
		msg = config.MsgNetworkFailure
	case domain.FailProviderUnavailable:
		msg = config.MsgAuthFailure
	default:
		msg = config.MsgUnexpected
	}
	p.postComment(ctx, job, "CodeCritic review failed. "+msg, "notice")
}

// PostBusyNotice posts the rate-limit message for a request refused at
// intake, before any job exists. Best effort, like every other post.
func (p *Publisher) PostBusyNotice(ctx context.Context, repo domain.Repo, pullNumber int) {
	postCtx, cancel := context.WithTimeout(ctx, p.postTimeout)
	defer cancel()
	if err := p.host.CreatePRIssueComment(postCtx, repo.Owner, repo.Name, pullNumber, config.MsgRateLimited); err != nil {
		metrics.CommentPostFailures.WithLabelValues("notice").Inc()
		slog.Error("post busy notice failed",
			"repo", repo.FullName, "pr", pullNumber, "error", types.RedactError(err))
	}
}

func (p *Publisher) postComment(ctx context.Context, job *domain.Job, body, reason string) {
	postCtx, cancel := context.WithTimeout(ctx, p.postTimeout)
	defer cancel()
	if err := p.host.CreatePRIssueComment(postCtx, job.Repo.Owner, job.Repo.Name, job.Number, body); err != nil {
		metrics.CommentPostFailures.WithLabelValues(reason).Inc()
		slog.Error("post comment failed",
			"repo", job.Repo.FullName, "pr", job.Number, "error", types.RedactError(err))
	}
}

// SetStatus writes a commit status on the job's head SHA. Failures are
// logged only; an earlier committed status is never retracted.
func (p *Publisher) SetStatus(ctx context.Context, job *domain.Job, state githost.CommitState, description string) {
	if job.HeadSHA == "" {
		return
	}
	postCtx, cancel := context.WithTimeout(ctx, p.postTimeout)
	defer cancel()
	if err := p.host.CreateCommitStatus(postCtx, job.Repo.Owner, job.Repo.Name, job.HeadSHA, state, description); err != nil {
		metrics.CommentPostFailures.WithLabelValues("status").Inc()
		slog.Error("set commit status failed",
			"repo", job.Repo.FullName, "sha", job.HeadSHA, "error", types.RedactError(err))
	}
}
