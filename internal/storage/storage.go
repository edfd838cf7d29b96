package storage

import (
	"context"
	"time"
)

// ReviewRecord is one terminal review outcome kept for history. The
// pipeline never reads these back; they exist for operators.
type ReviewRecord struct {
	ID           string    `json:"id"`
	Repo         string    `json:"repo"`
	PullNumber   int       `json:"pull_number"`
	HeadSHA      string    `json:"head_sha"`
	Trigger      string    `json:"trigger"`
	Outcome      string    `json:"outcome"`
	FindingCount int       `json:"finding_count"`
	CreatedAt    time.Time `json:"created_at"`
	DurationMs   int64     `json:"duration_ms"`
}

// Repository persists review history.
type Repository interface {
	SaveReview(ctx context.Context, record *ReviewRecord) error
	ListReviewsByPR(ctx context.Context, repo string, pullNumber int) ([]*ReviewRecord, error)
	ListRecentReviews(ctx context.Context, limit int) ([]*ReviewRecord, error)
	Close() error
}
