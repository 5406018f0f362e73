package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hszk-dev/vidshelf/internal/domain/model"
	"github.com/hszk-dev/vidshelf/internal/domain/repository"
)

// QualityOriginal labels the untranscoded upload.
const QualityOriginal = "original"

// QualityURL is the playback URL chosen for a viewer.
type QualityURL struct {
	URL                string   `json:"url"`
	Quality            string   `json:"quality"`
	AvailableQualities []string `json:"available_qualities"`
}

// QualityRegistry tracks which renditions exist for each video.
type QualityRegistry interface {
	// ListQualities resolves a signed URL for the preferred quality, falling back
	// to the highest registered one, or to the original when none are registered.
	// A registered variant whose object has disappeared is an error.
	ListQualities(ctx context.Context, user, videoID, preferred string) (*QualityURL, error)

	// RegisterVariants merges renditions into the record. Existing labels are overwritten.
	RegisterVariants(ctx context.Context, user, videoID string, variants map[string]model.QualityVariant) (*model.VideoRecord, error)

	// JobStatus returns the most recent transcoding job for the video.
	JobStatus(ctx context.Context, user, videoID string) (*model.QualityJob, error)
}

type qualityRegistry struct {
	store  RecordStore
	signer *Signer
	jobs   repository.QualityJobRepository

	urlTTL time.Duration
}

// NewQualityRegistry creates a new QualityRegistry instance. jobs may be nil.
func NewQualityRegistry(
	store RecordStore,
	signer *Signer,
	jobs repository.QualityJobRepository,
	urlTTL time.Duration,
) QualityRegistry {
	if urlTTL <= 0 {
		urlTTL = DefaultMediaURLTTL
	}
	return &qualityRegistry{
		store:  store,
		signer: signer,
		jobs:   jobs,
		urlTTL: urlTTL,
	}
}

func (r *qualityRegistry) ListQualities(ctx context.Context, user, videoID, preferred string) (*QualityURL, error) {
	record, err := r.store.GetVideo(ctx, user, videoID)
	if err != nil {
		return nil, err
	}

	if !record.HasVariants() {
		return r.original(ctx, record)
	}

	available := model.SortedQualities(record.QualityVariants)
	quality := resolveQuality(record, preferred)

	variant := record.QualityVariants[quality]
	if variant.Path == "" {
		slog.Warn("variant has no path, serving original",
			"user_id", user,
			"video_id", videoID,
			"quality", quality,
		)
		result, err := r.original(ctx, record)
		if err != nil {
			return nil, err
		}
		result.AvailableQualities = append([]string{QualityOriginal}, available...)
		return result, nil
	}

	url, err := r.signer.Sign(ctx, variant.Path, r.urlTTL)
	if err != nil {
		if errors.Is(err, repository.ErrObjectNotFound) {
			return nil, fmt.Errorf("%s of %s: %w", quality, videoID, repository.ErrQualityNotFound)
		}
		return nil, err
	}

	return &QualityURL{
		URL:                url,
		Quality:            quality,
		AvailableQualities: available,
	}, nil
}

func (r *qualityRegistry) original(ctx context.Context, record *model.VideoRecord) (*QualityURL, error) {
	url, err := r.signer.Sign(ctx, record.FilePath, r.urlTTL)
	if err != nil {
		return nil, fmt.Errorf("sign original: %w", err)
	}
	return &QualityURL{
		URL:                url,
		Quality:            QualityOriginal,
		AvailableQualities: []string{QualityOriginal},
	}, nil
}

// resolveQuality picks preferred if registered, then the stored marker,
// then the numerically greatest label.
func resolveQuality(record *model.VideoRecord, preferred string) string {
	if _, ok := record.QualityVariants[preferred]; ok && preferred != "" {
		return preferred
	}
	if _, ok := record.QualityVariants[record.HighestQuality]; ok && record.HighestQuality != "" {
		return record.HighestQuality
	}
	return model.HighestQuality(record.QualityVariants)
}

func (r *qualityRegistry) RegisterVariants(ctx context.Context, user, videoID string, variants map[string]model.QualityVariant) (*model.VideoRecord, error) {
	record, err := r.store.GetVideo(ctx, user, videoID)
	if err != nil {
		return nil, err
	}

	if err := record.MergeVariants(variants); err != nil {
		return nil, err
	}

	if err := r.store.SaveVideo(ctx, record); err != nil {
		return nil, err
	}

	slog.Info("quality variants registered",
		"user_id", user,
		"video_id", videoID,
		"qualities", model.SortedQualities(variants),
		"highest_quality", record.HighestQuality,
	)

	return record, nil
}

func (r *qualityRegistry) JobStatus(ctx context.Context, user, videoID string) (*model.QualityJob, error) {
	if r.jobs == nil {
		return nil, repository.ErrJobNotFound
	}
	return r.jobs.GetLatest(ctx, user, videoID)
}
