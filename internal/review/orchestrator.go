package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"code-critics/internal/admission"
	"code-critics/internal/config"
	"code-critics/internal/diff"
	"code-critics/internal/domain"
	"code-critics/internal/githost"
	"code-critics/internal/llm"
	"code-critics/internal/metrics"
	"code-critics/internal/storage"
	keysync "code-critics/internal/sync"
	"code-critics/internal/types"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Stage names for structured failure logs.
const (
	stageAdmitting  = "admitting"
	stageFetching   = "fetching"
	stageProcessing = "processing"
	stagePrompting  = "prompting"
	stageParsing    = "parsing"
	stagePublishing = "publishing"
)

// Completer is the gateway surface the orchestrator needs.
type Completer interface {
	Complete(ctx context.Context, messages []llm.Message) (string, error)
}

// Orchestrator drives one review job through the pipeline:
// admission, fetch, diff processing, prompting, parsing, publishing.
// It owns the per-job deadline and the per-(repo, pull, head SHA) lock.
type Orchestrator struct {
	cfg       *config.Config
	admission *admission.Controller
	host      githost.Client
	fetcher   *diff.Fetcher
	processor *diff.Processor
	gateway   Completer
	oracle    *Oracle
	publisher *Publisher
	locks     *keysync.KeyLock
	history   storage.Repository // optional, nil disables history
}

// NewOrchestrator wires the pipeline. history may be nil.
func NewOrchestrator(
	cfg *config.Config,
	adm *admission.Controller,
	host githost.Client,
	fetcher *diff.Fetcher,
	processor *diff.Processor,
	gateway Completer,
	oracle *Oracle,
	publisher *Publisher,
	history storage.Repository,
) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		admission: adm,
		host:      host,
		fetcher:   fetcher,
		processor: processor,
		gateway:   gateway,
		oracle:    oracle,
		publisher: publisher,
		locks:     keysync.NewKeyLock(),
		history:   history,
	}
}

// Run executes the review for an admitted envelope and returns the
// terminal outcome. Never panics: unexpected failures map to a Failed
// outcome with an internal kind.
func (o *Orchestrator) Run(ctx context.Context, env *domain.Envelope, trigger domain.Trigger) domain.Outcome {
	job := &domain.Job{
		ID:        uuid.NewString(),
		Repo:      env.Repo,
		Number:    env.PullNumber,
		HeadSHA:   env.HeadSHA,
		Trigger:   trigger,
		StartedAt: time.Now(),
	}

	ctx, cancel := context.WithTimeout(ctx, o.cfg.Review.JobDeadline)
	defer cancel()

	outcome := o.run(ctx, job, env)

	metrics.ReviewTotal.WithLabelValues(string(outcome.Kind)).Inc()
	metrics.ReviewDuration.WithLabelValues(string(outcome.Kind)).Observe(time.Since(job.StartedAt).Seconds())
	o.record(job, outcome)
	return outcome
}

func (o *Orchestrator) run(ctx context.Context, job *domain.Job, env *domain.Envelope) domain.Outcome {
	// Admitting
	switch o.admission.Check(job.Repo, job.Trigger) {
	case admission.Disallowed:
		return domain.Skipped(domain.SkipDisallowed)
	case admission.RateLimited:
		o.publisher.PublishSkipNotice(ctx, job, domain.SkipRateLimited)
		return domain.Skipped(domain.SkipRateLimited)
	}

	// Snapshot metadata and the dedup listing proceed in parallel.
	var snapshot *domain.PRSnapshot
	var duplicate bool
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		snap, err := o.host.GetPullRequest(gCtx, job.Repo.Owner, job.Repo.Name, job.Number)
		if err != nil {
			return fmt.Errorf("get pull request: %w", err)
		}
		snapshot = snap
		return nil
	})
	if job.Trigger == domain.TriggerAuto {
		g.Go(func() error {
			dup, err := o.oracle.RecentSummaryExists(gCtx, job.Repo.Owner, job.Repo.Name, job.Number)
			if err != nil {
				// Oracle failure must not block the review
				slog.Warn("dedup oracle failed, proceeding",
					"repo", job.Repo.FullName, "pr", job.Number, "error", types.RedactError(err))
				return nil
			}
			duplicate = dup
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return o.fail(ctx, job, stageAdmitting, err)
	}

	if job.HeadSHA == "" {
		job.HeadSHA = snapshot.HeadSHA
	}
	if duplicate {
		slog.Info("recent review exists, skipping automatic run",
			"repo", job.Repo.FullName, "pr", job.Number)
		return domain.Skipped(domain.SkipDuplicateRecent)
	}

	// A concurrent job for the same head SHA coalesces into a duplicate
	// skip instead of queueing a second identical review.
	if !o.locks.TryLock(job.Key()) {
		slog.Info("review already running for this head sha",
			"repo", job.Repo.FullName, "pr", job.Number, "sha", job.HeadSHA)
		return domain.Skipped(domain.SkipDuplicateRecent)
	}
	defer o.locks.Unlock(job.Key())

	o.publisher.SetStatus(ctx, job, githost.StatePending, "CodeCritic review in progress")

	// Fetching
	files, err := o.host.ListFiles(ctx, job.Repo.Owner, job.Repo.Name, job.Number)
	if err != nil {
		return o.fail(ctx, job, stageFetching, err)
	}
	snapshot.Files = files

	rawDiff, err := o.fetcher.Fetch(ctx, job.Repo.Owner, job.Repo.Name, job.Number,
		env.DiffURL, snapshot.BaseSHA, snapshot.HeadSHA)
	if err != nil {
		if errors.Is(err, diff.ErrDiffTooLarge) {
			o.publisher.PublishSkipNotice(ctx, job, domain.SkipDiffTooLarge)
			o.publisher.SetStatus(ctx, job, githost.StateSuccess, skipDescription(domain.SkipDiffTooLarge))
			return domain.Skipped(domain.SkipDiffTooLarge)
		}
		return o.fail(ctx, job, stageFetching, err)
	}
	snapshot.Diff = rawDiff

	// Processing
	result := o.processor.Process(rawDiff)
	if result.Skipped {
		o.publisher.PublishSkipNotice(ctx, job, result.Reason)
		o.publisher.SetStatus(ctx, job, githost.StateSuccess, skipDescription(result.Reason))
		return domain.Skipped(result.Reason)
	}
	snapshot.Diff = result.Diff

	// Prompting: one provider call per chunk, sequential under the job
	// deadline. Small diffs are a single chunk.
	var findings []domain.Finding
	lineIndex := diff.NewLineIndex(result.Diff)
	for _, chunk := range o.processor.Chunk(result.Diff) {
		reply, err := o.gateway.Complete(ctx, BuildMessages(chunk))
		if err != nil {
			return o.fail(ctx, job, stagePrompting, err)
		}

		// Parsing: clamp each finding onto the visible diff lines
		for _, f := range ParseFindings(reply) {
			f.Line = lineIndex.Clamp(f.Path, f.Line)
			findings = append(findings, f)
		}
	}

	// Publishing
	if len(findings) == 0 {
		o.publisher.PublishNoIssues(ctx, job)
		o.publisher.SetStatus(ctx, job, githost.StateSuccess, "No significant issues found")
		return domain.NoIssues()
	}

	o.publisher.PublishFindings(ctx, job, findings)
	state := githost.StateFailure
	if o.cfg.Review.StatusOnFindings == "success" {
		state = githost.StateSuccess
	}
	o.publisher.SetStatus(ctx, job, state,
		fmt.Sprintf("CodeCritic found %d issue(s)", len(findings)))
	return domain.WithFindings(findings)
}

// fail maps an error to a terminal Failed outcome, posts the sanitized
// notice, and sets the commit status to error.
func (o *Orchestrator) fail(ctx context.Context, job *domain.Job, stage string, err error) domain.Outcome {
	kind := failureKind(err)
	slog.Error("review failed",
		"repo", job.Repo.FullName,
		"pr", job.Number,
		"trigger", job.Trigger,
		"stage", stage,
		"kind", kind,
		"error", types.RedactError(err))

	// A deadline expiry also cancels ctx; give the failure posts their
	// own short budget so the user still sees the notice.
	postCtx := ctx
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		postCtx, cancel = context.WithTimeout(context.Background(), o.cfg.Review.PostTimeout)
		defer cancel()
	}
	o.publisher.PublishFailure(postCtx, job, kind)
	o.publisher.SetStatus(postCtx, job, githost.StateError, "CodeCritic review failed")
	return domain.Failed(kind)
}

func failureKind(err error) domain.FailureKind {
	switch {
	case errors.Is(err, llm.ErrProviderUnavailable):
		return domain.FailProviderUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return domain.FailTimeout
	case types.IsRetryable(err):
		return domain.FailTransient
	default:
		return domain.FailPermanent
	}
}

func skipDescription(reason domain.SkipReason) string {
	switch reason {
	case domain.SkipDiffTooLarge:
		return "Review skipped: diff too large"
	case domain.SkipNoSupportedFiles:
		return "Review skipped: no supported files"
	default:
		return "Review skipped"
	}
}

// record persists the terminal outcome when history storage is enabled.
func (o *Orchestrator) record(job *domain.Job, outcome domain.Outcome) {
	if o.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), o.cfg.Storage.Timeout)
	defer cancel()
	rec := &storage.ReviewRecord{
		ID:           job.ID,
		Repo:         job.Repo.FullName,
		PullNumber:   job.Number,
		HeadSHA:      job.HeadSHA,
		Trigger:      string(job.Trigger),
		Outcome:      string(outcome.Kind),
		FindingCount: len(outcome.Findings),
		CreatedAt:    job.StartedAt,
		DurationMs:   time.Since(job.StartedAt).Milliseconds(),
	}
	if err := o.history.SaveReview(ctx, rec); err != nil {
		slog.Error("save review history failed", "error", err)
	}
}
