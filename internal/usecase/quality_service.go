package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/hszk-dev/vidshelf/internal/domain/blobkey"
	"github.com/hszk-dev/vidshelf/internal/domain/model"
	"github.com/hszk-dev/vidshelf/internal/domain/repository"
	"github.com/hszk-dev/vidshelf/internal/infrastructure/metrics"
	"github.com/hszk-dev/vidshelf/internal/transcoder"
)

const (
	// DefaultMaxRetries is the default maximum number of retry attempts before marking as failed.
	DefaultMaxRetries = 3

	// assumedSourceHeight is used when the source cannot be probed.
	assumedSourceHeight = 1080
)

var errMaxRetries = errors.New("max retries exceeded")

// QualityServiceConfig holds configuration for QualityService.
type QualityServiceConfig struct {
	// TempDir is the base directory for temporary files during transcoding.
	TempDir string
	// MaxRetries is the maximum number of retry attempts before marking the job as failed.
	MaxRetries int
	// MaxHeight caps the tallest rendition produced.
	MaxHeight int
}

// DefaultQualityServiceConfig returns the default configuration.
func DefaultQualityServiceConfig() QualityServiceConfig {
	return QualityServiceConfig{
		TempDir:    os.TempDir(),
		MaxRetries: DefaultMaxRetries,
		MaxHeight:  1080,
	}
}

// QualityService renders quality variants for queued videos.
type QualityService interface {
	// ProcessTask handles a quality task from the message queue.
	// Returns nil on success or permanent failure (max retries exceeded, video gone).
	// Returns error for transient failures that should trigger a retry.
	ProcessTask(ctx context.Context, task repository.QualityTask) error
}

type qualityService struct {
	store      RecordStore
	registry   QualityRegistry
	storage    repository.ObjectStorage
	jobs       repository.QualityJobRepository
	transcoder transcoder.Transcoder
	prober     transcoder.Prober

	tempDir    string
	maxRetries int
	maxHeight  int
}

// NewQualityService creates a new QualityService instance.
func NewQualityService(
	store RecordStore,
	registry QualityRegistry,
	storage repository.ObjectStorage,
	jobs repository.QualityJobRepository,
	tc transcoder.Transcoder,
	prober transcoder.Prober,
	cfg QualityServiceConfig,
) QualityService {
	return &qualityService{
		store:      store,
		registry:   registry,
		storage:    storage,
		jobs:       jobs,
		transcoder: tc,
		prober:     prober,
		tempDir:    cfg.TempDir,
		maxRetries: cfg.MaxRetries,
		maxHeight:  cfg.MaxHeight,
	}
}

func (s *qualityService) ProcessTask(ctx context.Context, task repository.QualityTask) error {
	job, err := s.loadJob(ctx, task)
	if err != nil {
		return fmt.Errorf("load job: %w", err)
	}

	if job.Status.IsTerminal() {
		slog.Info("quality job already finished", "job_id", job.ID, "status", job.Status)
		return nil
	}

	// Check if max retries exceeded - mark as failed and return nil (ack the message)
	if task.RetryCount >= s.maxRetries {
		s.failJob(ctx, job, errMaxRetries)
		return nil
	}

	if job.Status == model.JobStatusProcessing {
		// Redelivered after a crash mid-transcode.
		_ = job.TransitionTo(model.JobStatusPending)
	}
	if err := job.TransitionTo(model.JobStatusProcessing); err != nil {
		return fmt.Errorf("start job: %w", err)
	}
	if err := s.jobs.Update(ctx, job); err != nil {
		return fmt.Errorf("update job: %w", err)
	}

	record, err := s.store.GetVideo(ctx, task.UserID, task.VideoID)
	if err != nil {
		if errors.Is(err, repository.ErrVideoNotFound) {
			s.failJob(ctx, job, err)
			return nil
		}
		return s.retryLater(ctx, job, fmt.Errorf("get video: %w", err))
	}

	if record.HasVariants() && !task.Force {
		slog.Info("video already has variants, skipping", "user_id", task.UserID, "video_id", task.VideoID)
		return s.finishJob(ctx, job)
	}

	variants, err := s.renderVariants(ctx, record)
	if err != nil {
		return s.retryLater(ctx, job, err)
	}

	if len(variants) > 0 {
		if _, err := s.registry.RegisterVariants(ctx, record.UserID, record.VideoID, variants); err != nil {
			return s.retryLater(ctx, job, fmt.Errorf("register variants: %w", err))
		}
	}

	return s.finishJob(ctx, job)
}

// loadJob fetches the ledger row for the task, creating one for tasks published without it.
func (s *qualityService) loadJob(ctx context.Context, task repository.QualityTask) (*model.QualityJob, error) {
	job, err := s.jobs.GetByID(ctx, task.JobID)
	if err == nil {
		return job, nil
	}
	if !errors.Is(err, repository.ErrJobNotFound) {
		return nil, err
	}

	job, err = model.NewQualityJob(task.UserID, task.VideoID)
	if err != nil {
		return nil, err
	}
	job.ID = task.JobID
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// renderVariants downloads the original, transcodes every applicable preset and uploads
// the results. Individual preset failures are skipped; it fails only when none succeed.
func (s *qualityService) renderVariants(ctx context.Context, record *model.VideoRecord) (map[string]model.QualityVariant, error) {
	workDir, err := s.createWorkDir(record)
	if err != nil {
		return nil, fmt.Errorf("create work directory: %w", err)
	}
	defer s.cleanup(workDir)

	inputPath := filepath.Join(workDir, "original"+filepath.Ext(record.FilePath))
	if err := downloadFile(ctx, s.storage, record.FilePath, inputPath); err != nil {
		return nil, fmt.Errorf("download original: %w", err)
	}

	outputDir := filepath.Join(workDir, "variants")
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	presets := model.PresetsFor(s.sourceHeight(ctx, inputPath), s.maxHeight)
	if len(presets) == 0 {
		slog.Info("source is below the lowest preset, nothing to render",
			"user_id", record.UserID,
			"video_id", record.VideoID,
		)
		return nil, nil
	}

	variants := make(map[string]model.QualityVariant, len(presets))
	var failures []error
	for _, preset := range presets {
		localPath, err := s.transcoder.TranscodeToPreset(ctx, inputPath, outputDir, preset)
		if err != nil {
			slog.Warn("preset transcode failed",
				"video_id", record.VideoID,
				"quality", preset.Label,
				"error", err,
			)
			failures = append(failures, fmt.Errorf("%s: %w", preset.Label, err))
			continue
		}

		key := blobkey.Variant(record.UserID, record.VideoID, preset.Label)
		if _, err := uploadFile(ctx, s.storage, localPath, key, model.DefaultVideoMimeType); err != nil {
			failures = append(failures, fmt.Errorf("%s: %w", preset.Label, err))
			continue
		}

		variants[preset.Label] = preset.Variant(key)
	}

	if len(variants) == 0 {
		return nil, fmt.Errorf("no variant produced: %w", errors.Join(failures...))
	}

	return variants, nil
}

func (s *qualityService) sourceHeight(ctx context.Context, path string) int {
	if s.prober == nil {
		return assumedSourceHeight
	}
	info, err := s.prober.Probe(ctx, path)
	if err != nil || info.Height <= 0 {
		slog.Warn("probe failed, assuming 1080p source", "path", path, "error", err)
		return assumedSourceHeight
	}
	return info.Height
}

// createWorkDir creates a temporary directory for processing a specific video.
func (s *qualityService) createWorkDir(record *model.VideoRecord) (string, error) {
	base := filepath.Join(s.tempDir, "vidshelf")
	if err := os.MkdirAll(base, 0755); err != nil {
		return "", fmt.Errorf("mkdir: %w", err)
	}
	return os.MkdirTemp(base, record.VideoID+"-")
}

// cleanup removes the temporary working directory.
func (s *qualityService) cleanup(workDir string) {
	_ = os.RemoveAll(workDir)
}

func (s *qualityService) finishJob(ctx context.Context, job *model.QualityJob) error {
	if err := job.TransitionTo(model.JobStatusDone); err != nil {
		return fmt.Errorf("finish job: %w", err)
	}
	if err := s.jobs.Update(ctx, job); err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	metrics.QualityJobsTotal.WithLabelValues(metrics.QualityJobDone).Inc()
	slog.Info("quality job done", "job_id", job.ID, "video_id", job.VideoID)
	return nil
}

// retryLater returns the job to PENDING with the cause recorded and hands cause back
// so the consumer republishes the task.
func (s *qualityService) retryLater(ctx context.Context, job *model.QualityJob, cause error) error {
	job.LastError = cause.Error()
	if err := job.TransitionTo(model.JobStatusPending); err == nil {
		if err := s.jobs.Update(ctx, job); err != nil {
			slog.Error("failed to record job retry", "job_id", job.ID, "error", err)
		}
	}
	return cause
}

func (s *qualityService) failJob(ctx context.Context, job *model.QualityJob, cause error) {
	if err := job.Fail(cause); err != nil {
		slog.Error("failed to mark job as failed", "job_id", job.ID, "status", job.Status, "error", err)
		return
	}
	if err := s.jobs.Update(ctx, job); err != nil {
		// The job stays in its previous state, which is acceptable
		slog.Error("failed to persist failed job", "job_id", job.ID, "error", err)
		return
	}
	metrics.QualityJobsTotal.WithLabelValues(metrics.QualityJobFailed).Inc()
	slog.Warn("quality job failed", "job_id", job.ID, "video_id", job.VideoID, "error", cause)
}
