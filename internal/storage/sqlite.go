package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite" // Pure Go driver, CGO-free
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dsn string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable wal: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func migrate(db *sql.DB) error {
	schema := `
    CREATE TABLE IF NOT EXISTS reviews (
        id            TEXT PRIMARY KEY,
        repo          TEXT NOT NULL,
        pull_number   INTEGER NOT NULL,
        head_sha      TEXT NOT NULL,
        trigger_kind  TEXT NOT NULL,
        outcome       TEXT NOT NULL,
        finding_count INTEGER NOT NULL DEFAULT 0,
        created_at    DATETIME DEFAULT CURRENT_TIMESTAMP,
        duration_ms   INTEGER
    );
    CREATE INDEX IF NOT EXISTS idx_reviews_pr ON reviews(repo, pull_number);
    CREATE INDEX IF NOT EXISTS idx_reviews_created ON reviews(created_at);
    `
	_, err := db.Exec(schema)
	return err
}

func (r *SQLiteRepository) SaveReview(ctx context.Context, record *ReviewRecord) error {
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO reviews (id, repo, pull_number, head_sha, trigger_kind, outcome, finding_count, created_at, duration_ms)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
    `, record.ID, record.Repo, record.PullNumber, record.HeadSHA, record.Trigger,
		record.Outcome, record.FindingCount, record.CreatedAt, record.DurationMs)
	return err
}

func (r *SQLiteRepository) ListReviewsByPR(ctx context.Context, repo string, pullNumber int) ([]*ReviewRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, repo, pull_number, head_sha, trigger_kind, outcome, finding_count, created_at, duration_ms
        FROM reviews
        WHERE repo = ? AND pull_number = ?
        ORDER BY created_at DESC
    `, repo, pullNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

func (r *SQLiteRepository) ListRecentReviews(ctx context.Context, limit int) ([]*ReviewRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, repo, pull_number, head_sha, trigger_kind, outcome, finding_count, created_at, duration_ms
        FROM reviews
        ORDER BY created_at DESC
        LIMIT ?
    `, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

func collect(rows *sql.Rows) ([]*ReviewRecord, error) {
	var reviews []*ReviewRecord
	for rows.Next() {
		rec := &ReviewRecord{}
		if err := rows.Scan(&rec.ID, &rec.Repo, &rec.PullNumber, &rec.HeadSHA,
			&rec.Trigger, &rec.Outcome, &rec.FindingCount, &rec.CreatedAt, &rec.DurationMs); err != nil {
			slog.Warn("scan review failed", "error", err)
			continue
		}
		reviews = append(reviews, rec)
	}
	return reviews, rows.Err()
}

func (r *SQLiteRepository) Close() error {
	// Checkpoint WAL so the main database file is current on shutdown
	if _, err := r.db.Exec("PRAGMA wal_checkpoint(TRUNCATE);"); err != nil {
		slog.Warn("wal checkpoint failed", "error", err)
	}
	return r.db.Close()
}
