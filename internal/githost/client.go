package githost

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"code-critics/internal/domain"
	"code-critics/internal/types"

	"github.com/google/go-github/v68/github"
)

// Identity is the authenticated account on the source host.
type Identity struct {
	Login string
	ID    int64
}

// Comment is a PR-level issue comment.
type Comment struct {
	ID        int64
	Body      string
	Author    string
	CreatedAt time.Time
}

// InlineComment targets a specific line of the PR diff.
type InlineComment struct {
	Path string
	Line int
	Body string
}

// ReviewRequest creates one review with its inline comments.
type ReviewRequest struct {
	Body     string
	Event    string // COMMENT or REQUEST_CHANGES
	Comments []InlineComment
}

// RateLimitInfo mirrors the host's core rate-limit headers.
type RateLimitInfo struct {
	Limit     int
	Remaining int
	Reset     time.Time
}

// CommitState is a commit status state accepted by the host.
type CommitState string

const (
	StatePending CommitState = "pending"
	StateSuccess CommitState = "success"
	StateFailure CommitState = "failure"
	StateError   CommitState = "error"
)

// Client is the capability set the review pipeline consumes from the
// source host. Implementations must be safe for concurrent use and must
// surface transient failures as types.RetryableError.
type Client interface {
	ValidateIdentity(ctx context.Context) (Identity, error)
	GetPullRequest(ctx context.Context, owner, repo string, number int) (*domain.PRSnapshot, error)
	ListFiles(ctx context.Context, owner, repo string, number int) ([]domain.FileChange, error)
	CompareCommits(ctx context.Context, owner, repo, base, head string) (string, error)
	ListPRComments(ctx context.Context, owner, repo string, number int) ([]Comment, error)
	CreatePRIssueComment(ctx context.Context, owner, repo string, number int, body string) error
	CreateReview(ctx context.Context, owner, repo string, number int, review ReviewRequest) error
	CreateCommitStatus(ctx context.Context, owner, repo, sha string, state CommitState, description string) error
	RateLimit(ctx context.Context) (RateLimitInfo, error)
}

// githubClient implements Client by delegating to go-github.
type githubClient struct {
	gh            *github.Client
	statusContext string
}

// NewClient creates a GitHub client authenticated with the given token.
func NewClient(token, statusContext string) Client {
	return &githubClient{
		gh:            github.NewClient(nil).WithAuthToken(token),
		statusContext: statusContext,
	}
}

// NewClientWithGitHub creates a Client from an existing *github.Client.
// Used in tests to inject a client pointing at an httptest server.
func NewClientWithGitHub(gh *github.Client, statusContext string) Client {
	return &githubClient{gh: gh, statusContext: statusContext}
}

func (c *githubClient) ValidateIdentity(ctx context.Context) (Identity, error) {
	user, _, err := c.gh.Users.Get(ctx, "")
	if err != nil {
		return Identity{}, classify(fmt.Errorf("get authenticated user: %w", err))
	}
	return Identity{Login: user.GetLogin(), ID: user.GetID()}, nil
}

func (c *githubClient) GetPullRequest(ctx context.Context, owner, repo string, number int) (*domain.PRSnapshot, error) {
	pr, _, err := c.gh.PullRequests.Get(ctx, owner, repo, number)
	if err != nil {
		return nil, classify(fmt.Errorf("get pr %s/%s#%d: %w", owner, repo, number, err))
	}
	return &domain.PRSnapshot{
		Number:  pr.GetNumber(),
		Title:   pr.GetTitle(),
		Body:    pr.GetBody(),
		HeadSHA: pr.GetHead().GetSHA(),
		BaseSHA: pr.GetBase().GetSHA(),
	}, nil
}

func (c *githubClient) ListFiles(ctx context.Context, owner, repo string, number int) ([]domain.FileChange, error) {
	var all []domain.FileChange
	opts := &github.ListOptions{PerPage: 100}
	for {
		files, resp, err := c.gh.PullRequests.ListFiles(ctx, owner, repo, number, opts)
		if err != nil {
			return nil, classify(fmt.Errorf("list pr files %s/%s#%d: %w", owner, repo, number, err))
		}
		for _, f := range files {
			all = append(all, domain.FileChange{
				Filename:  f.GetFilename(),
				Status:    f.GetStatus(),
				Additions: f.GetAdditions(),
				Deletions: f.GetDeletions(),
				Patch:     f.GetPatch(),
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}

func (c *githubClient) CompareCommits(ctx context.Context, owner, repo, base, head string) (string, error) {
	diff, _, err := c.gh.Repositories.CompareCommitsRaw(ctx, owner, repo, base, head, github.RawOptions{Type: github.Diff})
	if err != nil {
		return "", classify(fmt.Errorf("compare %s..%s: %w", base, head, err))
	}
	return diff, nil
}

func (c *githubClient) ListPRComments(ctx context.Context, owner, repo string, number int) ([]Comment, error) {
	var all []Comment
	opts := &github.IssueListCommentsOptions{ListOptions: github.ListOptions{PerPage: 100}}
	for {
		comments, resp, err := c.gh.Issues.ListComments(ctx, owner, repo, number, opts)
		if err != nil {
			return nil, classify(fmt.Errorf("list pr comments %s/%s#%d: %w", owner, repo, number, err))
		}
		for _, cm := range comments {
			all = append(all, Comment{
				ID:        cm.GetID(),
				Body:      cm.GetBody(),
				Author:    cm.GetUser().GetLogin(),
				CreatedAt: cm.GetCreatedAt().Time,
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}

func (c *githubClient) CreatePRIssueComment(ctx context.Context, owner, repo string, number int, body string) error {
	_, _, err := c.gh.Issues.CreateComment(ctx, owner, repo, number, &github.IssueComment{
		Body: github.Ptr(body),
	})
	if err != nil {
		return classify(fmt.Errorf("create pr comment %s/%s#%d: %w", owner, repo, number, err))
	}
	return nil
}

func (c *githubClient) CreateReview(ctx context.Context, owner, repo string, number int, review ReviewRequest) error {
	comments := make([]*github.DraftReviewComment, 0, len(review.Comments))
	for _, ic := range review.Comments {
		comments = append(comments, &github.DraftReviewComment{
			Path: github.Ptr(ic.Path),
			Line: github.Ptr(ic.Line),
			Side: github.Ptr("RIGHT"),
			Body: github.Ptr(ic.Body),
		})
	}
	_, _, err := c.gh.PullRequests.CreateReview(ctx, owner, repo, number, &github.PullRequestReviewRequest{
		Body:     github.Ptr(review.Body),
		Event:    github.Ptr(review.Event),
		Comments: comments,
	})
	if err != nil {
		return classify(fmt.Errorf("create review %s/%s#%d: %w", owner, repo, number, err))
	}
	return nil
}

func (c *githubClient) CreateCommitStatus(ctx context.Context, owner, repo, sha string, state CommitState, description string) error {
	_, _, err := c.gh.Repositories.CreateStatus(ctx, owner, repo, sha, &github.RepoStatus{
		State:       github.Ptr(string(state)),
		Description: github.Ptr(description),
		Context:     github.Ptr(c.statusContext),
	})
	if err != nil {
		return classify(fmt.Errorf("create commit status %s/%s@%s: %w", owner, repo, sha, err))
	}
	return nil
}

func (c *githubClient) RateLimit(ctx context.Context) (RateLimitInfo, error) {
	limits, _, err := c.gh.RateLimit.Get(ctx)
	if err != nil {
		return RateLimitInfo{}, classify(fmt.Errorf("get rate limit: %w", err))
	}
	core := limits.GetCore()
	return RateLimitInfo{
		Limit:     core.Limit,
		Remaining: core.Remaining,
		Reset:     core.Reset.Time,
	}, nil
}

// classify wraps host API errors so callers can distinguish transient
// failures (5xx, 429, network) from permanent ones.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		code := ghErr.Response.StatusCode
		if code == http.StatusTooManyRequests {
			retryAfter := 0
			if v := ghErr.Response.Header.Get("Retry-After"); v != "" {
				retryAfter, _ = strconv.Atoi(v)
			}
			return types.NewRateLimitedError(err, retryAfter)
		}
		if types.RetryableStatus(code) {
			return types.NewRetryableError(err)
		}
		return err
	}
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return types.NewRetryableError(err)
	}
	// No structured response means the transport failed
	if types.IsRetryable(err) {
		return types.NewRetryableError(err)
	}
	return err
}
