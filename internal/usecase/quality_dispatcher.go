package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hszk-dev/vidshelf/internal/domain/model"
	"github.com/hszk-dev/vidshelf/internal/domain/repository"
	"github.com/hszk-dev/vidshelf/internal/infrastructure/metrics"
)

// QualityDispatcher hands videos to the quality worker.
type QualityDispatcher interface {
	// Enqueue records a PENDING job and publishes it. The caller does not wait
	// for transcoding; progress is visible through QualityRegistry.JobStatus.
	Enqueue(ctx context.Context, user, videoID string, force bool) (*model.QualityJob, error)
}

type qualityDispatcher struct {
	store RecordStore
	jobs  repository.QualityJobRepository
	queue repository.MessageQueue
}

// NewQualityDispatcher creates a new QualityDispatcher instance.
func NewQualityDispatcher(
	store RecordStore,
	jobs repository.QualityJobRepository,
	queue repository.MessageQueue,
) QualityDispatcher {
	return &qualityDispatcher{
		store: store,
		jobs:  jobs,
		queue: queue,
	}
}

func (d *qualityDispatcher) Enqueue(ctx context.Context, user, videoID string, force bool) (*model.QualityJob, error) {
	if _, err := d.store.GetVideo(ctx, user, videoID); err != nil {
		return nil, err
	}

	job, err := model.NewQualityJob(user, videoID)
	if err != nil {
		return nil, err
	}

	if err := d.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	task := repository.QualityTask{
		JobID:   job.ID,
		UserID:  user,
		VideoID: videoID,
		Force:   force,
	}
	if err := d.queue.PublishQualityTask(ctx, task); err != nil {
		publishErr := fmt.Errorf("publish quality task: %w", err)
		if failErr := job.Fail(publishErr); failErr == nil {
			if updErr := d.jobs.Update(ctx, job); updErr != nil {
				publishErr = errors.Join(publishErr, updErr)
			}
		}
		return nil, publishErr
	}

	metrics.QualityJobsTotal.WithLabelValues(metrics.QualityJobEnqueued).Inc()
	slog.Info("quality job enqueued",
		"job_id", job.ID,
		"user_id", user,
		"video_id", videoID,
		"force", force,
	)

	return job, nil
}
