package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CreateCrawlJob inserts a new pending crawl job for a source.
func (s *Store) CreateCrawlJob(ctx context.Context, job *CrawlJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	job.Status = JobStatusPending

	_, err := s.pool.Exec(ctx, `
		INSERT INTO crawl_jobs (id, source_id, status, max_pages, max_depth)
		VALUES ($1, $2, $3, $4, $5)`,
		job.ID, job.SourceID, job.Status, job.MaxPages, job.MaxDepth)
	if err != nil {
		return fmt.Errorf("insert crawl job: %w", err)
	}

	s.logger.Debug("created crawl job", "job_id", job.ID, "source_id", job.SourceID)
	return nil
}

// GetCrawlJob fetches a crawl job by ID. Returns ErrNotFound if missing.
func (s *Store) GetCrawlJob(ctx context.Context, id string) (*CrawlJob, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, source_id, status, pages_crawled, pages_total, max_pages, max_depth,
		       current_depth, COALESCE(error_message, ''), error_count,
		       started_at, completed_at, created_at
		FROM crawl_jobs WHERE id = $1`, id)

	var job CrawlJob
	err := row.Scan(&job.ID, &job.SourceID, &job.Status, &job.PagesCrawled, &job.PagesTotal,
		&job.MaxPages, &job.MaxDepth, &job.CurrentDepth, &job.ErrorMessage, &job.ErrorCount,
		&job.StartedAt, &job.CompletedAt, &job.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("crawl job %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get crawl job: %w", err)
	}
	return &job, nil
}

// StartCrawlJob transitions a job from pending to running.
// The guarded update enforces the state machine; a job that is not pending
// yields ErrInvalidTransition.
func (s *Store) StartCrawlJob(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE crawl_jobs SET status = $2, started_at = now()
		WHERE id = $1 AND status = $3`,
		id, JobStatusRunning, JobStatusPending)
	if err != nil {
		return fmt.Errorf("start crawl job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job %q not pending: %w", id, ErrInvalidTransition)
	}
	return nil
}

// CompleteCrawlJob transitions a running job to completed with final counts.
func (s *Store) CompleteCrawlJob(ctx context.Context, id string, pagesCrawled int) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE crawl_jobs
		SET status = $2, pages_crawled = $3, pages_total = $3, completed_at = now()
		WHERE id = $1 AND status = $4`,
		id, JobStatusCompleted, pagesCrawled, JobStatusRunning)
	if err != nil {
		return fmt.Errorf("complete crawl job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job %q not running: %w", id, ErrInvalidTransition)
	}
	return nil
}

// FailCrawlJob transitions a running job to failed with an error message.
func (s *Store) FailCrawlJob(ctx context.Context, id, message string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE crawl_jobs
		SET status = $2, error_message = $3, error_count = error_count + 1, completed_at = now()
		WHERE id = $1 AND status = $4`,
		id, JobStatusFailed, message, JobStatusRunning)
	if err != nil {
		return fmt.Errorf("fail crawl job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job %q not running: %w", id, ErrInvalidTransition)
	}
	return nil
}

// CancelCrawlJob transitions a pending or running job to cancelled.
func (s *Store) CancelCrawlJob(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE crawl_jobs SET status = $2, completed_at = now()
		WHERE id = $1 AND status IN ($3, $4)`,
		id, JobStatusCancelled, JobStatusPending, JobStatusRunning)
	if err != nil {
		return fmt.Errorf("cancel crawl job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job %q already terminal: %w", id, ErrInvalidTransition)
	}
	return nil
}

// ListCrawlJobs returns a source's crawl jobs, newest first.
func (s *Store) ListCrawlJobs(ctx context.Context, sourceID string) ([]CrawlJob, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, source_id, status, pages_crawled, pages_total, max_pages, max_depth,
		       current_depth, COALESCE(error_message, ''), error_count,
		       started_at, completed_at, created_at
		FROM crawl_jobs WHERE source_id = $1 ORDER BY created_at DESC`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("list crawl jobs: %w", err)
	}
	defer rows.Close()

	var jobs []CrawlJob
	for rows.Next() {
		var job CrawlJob
		if err := rows.Scan(&job.ID, &job.SourceID, &job.Status, &job.PagesCrawled,
			&job.PagesTotal, &job.MaxPages, &job.MaxDepth, &job.CurrentDepth,
			&job.ErrorMessage, &job.ErrorCount, &job.StartedAt, &job.CompletedAt,
			&job.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan crawl job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}
