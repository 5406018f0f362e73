package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hszk-dev/vidshelf/internal/domain/model"
	"github.com/hszk-dev/vidshelf/internal/domain/repository"
	"github.com/hszk-dev/vidshelf/internal/infrastructure/metrics"
)

const uniqueViolation = "23505"

// DBTX is an interface that abstracts pgxpool.Pool and pgx.Tx for testability.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// QualityJobRepository implements repository.QualityJobRepository using PostgreSQL.
type QualityJobRepository struct {
	db DBTX
}

// Compile-time verification that QualityJobRepository implements repository.QualityJobRepository.
var _ repository.QualityJobRepository = (*QualityJobRepository)(nil)

// NewQualityJobRepository creates a new QualityJobRepository instance.
func NewQualityJobRepository(db DBTX) *QualityJobRepository {
	return &QualityJobRepository{db: db}
}

const selectJobColumns = `id, user_id, video_id, status, attempts, last_error, created_at, updated_at`

// Create persists a new job.
func (r *QualityJobRepository) Create(ctx context.Context, job *model.QualityJob) error {
	const query = `
		INSERT INTO quality_jobs (id, user_id, video_id, status, attempts, last_error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	metrics.DBQueriesTotal.WithLabelValues(metrics.DBQueryInsert, metrics.TableQualityJobs).Inc()
	_, err := r.db.Exec(ctx, query,
		job.ID,
		job.UserID,
		job.VideoID,
		job.Status.String(),
		job.Attempts,
		nullString(job.LastError),
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return repository.ErrDuplicateJob
		}
		return fmt.Errorf("failed to create quality job: %w", err)
	}

	return nil
}

// GetByID retrieves a job by its identifier.
func (r *QualityJobRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.QualityJob, error) {
	query := `SELECT ` + selectJobColumns + ` FROM quality_jobs WHERE id = $1`

	metrics.DBQueriesTotal.WithLabelValues(metrics.DBQuerySelect, metrics.TableQualityJobs).Inc()
	job, err := scanJob(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get quality job by ID: %w", err)
	}

	return job, nil
}

// GetLatest returns the most recent job for a video.
func (r *QualityJobRepository) GetLatest(ctx context.Context, user, videoID string) (*model.QualityJob, error) {
	query := `SELECT ` + selectJobColumns + ` FROM quality_jobs
		WHERE user_id = $1 AND video_id = $2
		ORDER BY created_at DESC
		LIMIT 1`

	metrics.DBQueriesTotal.WithLabelValues(metrics.DBQuerySelect, metrics.TableQualityJobs).Inc()
	job, err := scanJob(r.db.QueryRow(ctx, query, user, videoID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get latest quality job: %w", err)
	}

	return job, nil
}

// Update persists status, attempts and last error.
func (r *QualityJobRepository) Update(ctx context.Context, job *model.QualityJob) error {
	const query = `
		UPDATE quality_jobs
		SET status = $2, attempts = $3, last_error = $4, updated_at = $5
		WHERE id = $1
	`

	job.UpdatedAt = time.Now()

	metrics.DBQueriesTotal.WithLabelValues(metrics.DBQueryUpdate, metrics.TableQualityJobs).Inc()
	tag, err := r.db.Exec(ctx, query,
		job.ID,
		job.Status.String(),
		job.Attempts,
		nullString(job.LastError),
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update quality job: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return repository.ErrJobNotFound
	}

	return nil
}

// ListByStatus returns jobs in a status, oldest first.
func (r *QualityJobRepository) ListByStatus(ctx context.Context, status model.JobStatus, limit int) ([]*model.QualityJob, error) {
	query := `SELECT ` + selectJobColumns + ` FROM quality_jobs
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2`

	metrics.DBQueriesTotal.WithLabelValues(metrics.DBQuerySelect, metrics.TableQualityJobs).Inc()
	rows, err := r.db.Query(ctx, query, status.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query quality jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*model.QualityJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan quality job: %w", err)
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating quality jobs: %w", err)
	}

	return jobs, nil
}

// scanJob scans a single row into a QualityJob. pgx.Rows satisfies pgx.Row.
func scanJob(row pgx.Row) (*model.QualityJob, error) {
	var (
		job       model.QualityJob
		status    string
		lastError *string
	)

	err := row.Scan(
		&job.ID,
		&job.UserID,
		&job.VideoID,
		&status,
		&job.Attempts,
		&lastError,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	job.Status = model.JobStatus(status)
	if lastError != nil {
		job.LastError = *lastError
	}

	return &job, nil
}

// nullString returns nil for empty strings, otherwise returns a pointer to the string.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
