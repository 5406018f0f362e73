package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/hszk-dev/vidshelf/internal/domain/model"
)

// QualityJobRepository persists the quality transcoding ledger.
// Implementations should be provided by the infrastructure layer (e.g., PostgreSQL).
type QualityJobRepository interface {
	// Create persists a new job.
	// Returns ErrDuplicateJob if the ID is already taken.
	Create(ctx context.Context, job *model.QualityJob) error

	// GetByID retrieves a job by its identifier.
	// Returns nil and ErrJobNotFound if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*model.QualityJob, error)

	// GetLatest returns the most recently created job for a video.
	// Returns nil and ErrJobNotFound if the video has never been queued.
	GetLatest(ctx context.Context, user, videoID string) (*model.QualityJob, error)

	// Update persists status, attempts and last error of an existing job.
	// Returns ErrJobNotFound if the job does not exist.
	Update(ctx context.Context, job *model.QualityJob) error

	// ListByStatus returns up to limit jobs in the given status, oldest first.
	ListByStatus(ctx context.Context, status model.JobStatus, limit int) ([]*model.QualityJob, error)
}
