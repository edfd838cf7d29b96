package domain

import (
	"strconv"
	"time"
)

// EventKind classifies an incoming webhook payload after validation.
type EventKind string

const (
	EventPRChanged      EventKind = "pr_changed"
	EventMentionComment EventKind = "mention_comment"
	EventPing           EventKind = "ping"
	EventOther          EventKind = "other"
)

// Trigger identifies how a review was requested.
type Trigger string

const (
	TriggerAuto   Trigger = "auto"
	TriggerManual Trigger = "manual"
)

// Repo identifies a repository on the source host.
type Repo struct {
	Owner    string
	Name     string
	FullName string
	Private  bool
}

// Envelope is the validated, immutable form of a webhook event.
// A PRChanged envelope always carries PullNumber and HeadSHA; a
// MentionComment envelope carries PullNumber and the comment body.
type Envelope struct {
	DeliveryID  string
	Kind        EventKind
	Action      string
	Repo        Repo
	PullNumber  int
	DiffURL     string
	HeadSHA     string
	CommentBody string
	Commenter   string
}

// FileChange describes one changed file in a pull request.
type FileChange struct {
	Filename  string
	Status    string
	Additions int
	Deletions int
	Patch     string
}

// PRSnapshot is the fetched state of a pull request at review time.
type PRSnapshot struct {
	Number  int
	Title   string
	Body    string
	HeadSHA string
	BaseSHA string
	Files   []FileChange
	Diff    string
}

// Severity of a finding, normalized from the model reply.
type Severity string

const (
	SeverityCritical Severity = "Critical"
	SeverityHigh     Severity = "High"
	SeverityMedium   Severity = "Medium"
	SeverityLow      Severity = "Low"
)

// Finding is one issue parsed from the model reply. Path is always
// non-empty and Line is at least 1.
type Finding struct {
	Path        string
	Line        int
	IssueType   string
	Severity    Severity
	Description string
	Suggestion  string
}

// SkipReason explains why a review stopped before the model call.
type SkipReason string

const (
	SkipDiffTooLarge     SkipReason = "diff_too_large"
	SkipNoSupportedFiles SkipReason = "no_supported_files"
	SkipDuplicateRecent  SkipReason = "duplicate_recent"
	SkipRateLimited      SkipReason = "rate_limited"
	SkipDisallowed       SkipReason = "disallowed"
)

// FailureKind categorizes terminal review failures.
type FailureKind string

const (
	FailTransient           FailureKind = "transient"
	FailPermanent           FailureKind = "permanent"
	FailTimeout             FailureKind = "timeout"
	FailProviderUnavailable FailureKind = "provider_unavailable"
	FailInternal            FailureKind = "internal"
)

// OutcomeKind is the terminal classification of a review job.
type OutcomeKind string

const (
	OutcomeNoIssues OutcomeKind = "no_issues"
	OutcomeFindings OutcomeKind = "findings"
	OutcomeSkipped  OutcomeKind = "skipped"
	OutcomeFailed   OutcomeKind = "failed"
)

// Outcome is the terminal result of a review job.
type Outcome struct {
	Kind        OutcomeKind
	Findings    []Finding
	SkipReason  SkipReason
	FailureKind FailureKind
}

// NoIssues reports a completed review with an empty finding list.
func NoIssues() Outcome { return Outcome{Kind: OutcomeNoIssues} }

// WithFindings reports a completed review carrying findings.
func WithFindings(fs []Finding) Outcome {
	return Outcome{Kind: OutcomeFindings, Findings: fs}
}

// Skipped reports a review that stopped before the model call.
func Skipped(r SkipReason) Outcome { return Outcome{Kind: OutcomeSkipped, SkipReason: r} }

// Failed reports a review terminated by an error.
func Failed(k FailureKind) Outcome { return Outcome{Kind: OutcomeFailed, FailureKind: k} }

// MaxSeverity returns the highest severity among findings, or SeverityLow
// for an empty list.
func MaxSeverity(fs []Finding) Severity {
	rank := map[Severity]int{SeverityLow: 0, SeverityMedium: 1, SeverityHigh: 2, SeverityCritical: 3}
	max := SeverityLow
	for _, f := range fs {
		if rank[f.Severity] > rank[max] {
			max = f.Severity
		}
	}
	return max
}

// Job tracks one in-flight review. Jobs are created on admission and
// never survive a restart.
type Job struct {
	ID        string
	Repo      Repo
	Number    int
	HeadSHA   string
	Trigger   Trigger
	StartedAt time.Time
}

// Key returns the serialization key for the job: two events for the same
// head SHA of the same PR must not review concurrently.
func (j *Job) Key() string {
	return j.Repo.FullName + "#" + strconv.Itoa(j.Number) + "@" + j.HeadSHA
}
