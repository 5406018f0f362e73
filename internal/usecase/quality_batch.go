package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hszk-dev/vidshelf/internal/domain/model"
	"github.com/hszk-dev/vidshelf/internal/domain/repository"
)

// BatchOptions selects which videos the quality batch visits.
type BatchOptions struct {
	// User restricts the batch to one namespace; empty means every user.
	User string
	// VideoID restricts the batch to one video; requires User.
	VideoID string
	// MaxVideos caps how many videos are queued or processed; 0 means no cap.
	MaxVideos int
	// Force re-renders videos that already have variants.
	Force bool
	// DryRun only reports the videos that would be handled.
	DryRun bool
	// Sync transcodes in-process instead of publishing to the worker queue.
	Sync bool
}

// BatchResult summarises a batch run.
type BatchResult struct {
	Considered int
	Skipped    int
	Handled    int
	Failed     int
	VideoIDs   []string
}

// QualityBatch backfills quality variants for stored videos.
type QualityBatch struct {
	store      RecordStore
	jobs       repository.QualityJobRepository
	dispatcher QualityDispatcher
	service    QualityService
}

// NewQualityBatch creates a batch runner. dispatcher is used for queued runs and
// service for synchronous ones; either may be nil if that mode is never requested.
func NewQualityBatch(
	store RecordStore,
	jobs repository.QualityJobRepository,
	dispatcher QualityDispatcher,
	service QualityService,
) *QualityBatch {
	return &QualityBatch{
		store:      store,
		jobs:       jobs,
		dispatcher: dispatcher,
		service:    service,
	}
}

// Run visits the selected videos. Per-video failures are counted, not returned.
func (b *QualityBatch) Run(ctx context.Context, opts BatchOptions) (*BatchResult, error) {
	if opts.VideoID != "" && opts.User == "" {
		return nil, errors.New("a video ID requires a user")
	}
	if opts.Sync && b.service == nil {
		return nil, errors.New("synchronous mode is not available")
	}
	if !opts.Sync && !opts.DryRun && b.dispatcher == nil {
		return nil, errors.New("queued mode is not available")
	}

	candidates, err := b.candidates(ctx, opts)
	if err != nil {
		return nil, err
	}

	result := &BatchResult{}
	for _, record := range candidates {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if opts.MaxVideos > 0 && result.Handled+result.Failed >= opts.MaxVideos {
			break
		}

		result.Considered++
		if record.HasVariants() && !opts.Force {
			result.Skipped++
			continue
		}

		if opts.DryRun {
			result.Handled++
			result.VideoIDs = append(result.VideoIDs, record.VideoID)
			continue
		}

		if err := b.handle(ctx, record, opts); err != nil {
			slog.Warn("quality batch item failed",
				"user_id", record.UserID,
				"video_id", record.VideoID,
				"error", err,
			)
			result.Failed++
			continue
		}

		result.Handled++
		result.VideoIDs = append(result.VideoIDs, record.VideoID)
	}

	return result, nil
}

func (b *QualityBatch) candidates(ctx context.Context, opts BatchOptions) ([]*model.VideoRecord, error) {
	if opts.VideoID != "" {
		record, err := b.store.GetVideo(ctx, opts.User, opts.VideoID)
		if err != nil {
			return nil, err
		}
		return []*model.VideoRecord{record}, nil
	}

	users := []string{opts.User}
	if opts.User == "" {
		var err error
		users, err = b.store.ListUsers(ctx)
		if err != nil {
			return nil, err
		}
	}

	var records []*model.VideoRecord
	for _, user := range users {
		videos, err := b.store.ListVideos(ctx, user)
		if err != nil {
			slog.Warn("skipping user in quality batch", "user_id", user, "error", err)
			continue
		}
		records = append(records, videos...)
	}
	return records, nil
}

func (b *QualityBatch) handle(ctx context.Context, record *model.VideoRecord, opts BatchOptions) error {
	if !opts.Sync {
		_, err := b.dispatcher.Enqueue(ctx, record.UserID, record.VideoID, opts.Force)
		return err
	}

	job, err := model.NewQualityJob(record.UserID, record.VideoID)
	if err != nil {
		return err
	}
	if err := b.jobs.Create(ctx, job); err != nil {
		return fmt.Errorf("create job: %w", err)
	}

	task := repository.QualityTask{
		JobID:   job.ID,
		UserID:  record.UserID,
		VideoID: record.VideoID,
		Force:   opts.Force,
	}
	if err := b.service.ProcessTask(ctx, task); err != nil {
		// No queue to retry through; close the job out.
		if latest, getErr := b.jobs.GetByID(ctx, job.ID); getErr == nil && latest.Fail(err) == nil {
			_ = b.jobs.Update(ctx, latest)
		}
		return err
	}
	return nil
}
