package repository

import (
	"context"
	"database/sql"
	"time"
)

// StyleJob is a queued styling request waiting for the worker.
type StyleJob struct {
	ID        int
	Prompt    string
	Style     string
	ImagePath string
	Status    string
}

// JobRepository defines the interface for style job data access
type JobRepository interface {
	NextPending(ctx context.Context) (*StyleJob, error)
	MarkDone(ctx context.Context, id int, resultID string) error
	MarkFailed(ctx context.Context, id int, reason string) error
}

// PostgresJobRepository implements JobRepository for PostgreSQL
type PostgresJobRepository struct {
	db *sql.DB
}

// NewPostgresJobRepository creates a new PostgreSQL job repository
func NewPostgresJobRepository(db *sql.DB) *PostgresJobRepository {
	return &PostgresJobRepository{db: db}
}

// NextPending retrieves the oldest job ready for styling
func (r *PostgresJobRepository) NextPending(ctx context.Context) (*StyleJob, error) {
	query := `
		SELECT id, prompt, style, image_path
		FROM style_jobs
		WHERE status = 'Pending'
		AND prompt IS NOT NULL
		AND prompt != ''
		ORDER BY created_at ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	`

	var job StyleJob
	err := r.db.QueryRowContext(ctx, query).Scan(
		&job.ID,
		&job.Prompt,
		&job.Style,
		&job.ImagePath,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	job.Status = "Pending"
	return &job, nil
}

// MarkDone records the generation result id and completes the job
func (r *PostgresJobRepository) MarkDone(ctx context.Context, id int, resultID string) error {
	query := `
		UPDATE style_jobs
		SET status = 'Done', result_id = $1, updated_at = $2
		WHERE id = $3
	`

	_, err := r.db.ExecContext(ctx, query, resultID, time.Now(), id)
	return err
}

// MarkFailed records the failure reason for a job
func (r *PostgresJobRepository) MarkFailed(ctx context.Context, id int, reason string) error {
	query := `
		UPDATE style_jobs
		SET status = 'Failed', failure_reason = $1, updated_at = $2
		WHERE id = $3
	`

	_, err := r.db.ExecContext(ctx, query, reason, time.Now(), id)
	return err
}
