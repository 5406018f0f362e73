package usecase

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hszk-dev/vidshelf/internal/domain/model"
	"github.com/hszk-dev/vidshelf/internal/infrastructure/cache"
	"github.com/hszk-dev/vidshelf/internal/infrastructure/metrics"
)

// CachedRecordStoreConfig holds configuration for the cached record store.
type CachedRecordStoreConfig struct {
	// CacheTTL is the TTL for cached video records.
	CacheTTL time.Duration
}

// DefaultCachedRecordStoreConfig returns the default configuration.
func DefaultCachedRecordStoreConfig() CachedRecordStoreConfig {
	return CachedRecordStoreConfig{
		CacheTTL: 5 * time.Minute,
	}
}

// cachedRecordStore wraps RecordStore with a read-through video record cache.
// Methods that do not touch a single video record are promoted from the delegate.
type cachedRecordStore struct {
	RecordStore
	cache   cache.RecordCache
	sfGroup singleflight.Group

	cacheTTL time.Duration
}

// NewCachedRecordStore creates a RecordStore that caches GetVideo results.
func NewCachedRecordStore(
	delegate RecordStore,
	recordCache cache.RecordCache,
	cfg CachedRecordStoreConfig,
) RecordStore {
	return &cachedRecordStore{
		RecordStore: delegate,
		cache:       recordCache,
		cacheTTL:    cfg.CacheTTL,
	}
}

// GetVideo uses singleflight to prevent cache stampede on concurrent requests for the same video.
func (s *cachedRecordStore) GetVideo(ctx context.Context, user, videoID string) (*model.VideoRecord, error) {
	key := user + "/" + videoID
	result, err, shared := s.sfGroup.Do(key, func() (any, error) {
		return s.getVideoWithCache(ctx, user, videoID)
	})

	if shared {
		metrics.SingleflightRequestsTotal.WithLabelValues(metrics.SingleflightShared).Inc()
	} else {
		metrics.SingleflightRequestsTotal.WithLabelValues(metrics.SingleflightInitiated).Inc()
	}

	if err != nil {
		return nil, err
	}

	// Callers mutate records in place; hand each one its own copy.
	record := *result.(*model.VideoRecord)
	if record.QualityVariants != nil {
		variants := make(map[string]model.QualityVariant, len(record.QualityVariants))
		for label, v := range record.QualityVariants {
			variants[label] = v
		}
		record.QualityVariants = variants
	}
	return &record, nil
}

// getVideoWithCache implements the cache-aside pattern.
func (s *cachedRecordStore) getVideoWithCache(ctx context.Context, user, videoID string) (*model.VideoRecord, error) {
	record, err := s.cache.Get(ctx, user, videoID)
	if err != nil {
		slog.Warn("cache get failed, falling back to object store",
			"user_id", user,
			"video_id", videoID,
			"error", err,
		)
	}

	if record != nil {
		return record, nil
	}

	record, err = s.RecordStore.GetVideo(ctx, user, videoID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, record, s.cacheTTL); err != nil {
		slog.Warn("failed to cache video record",
			"user_id", user,
			"video_id", videoID,
			"error", err,
		)
	}

	return record, nil
}

func (s *cachedRecordStore) evict(ctx context.Context, user, videoID string) {
	if err := s.cache.Delete(ctx, user, videoID); err != nil {
		slog.Warn("failed to invalidate cached record",
			"user_id", user,
			"video_id", videoID,
			"error", err,
		)
	}
}

// PutVideo evicts the derived ID so a same-day re-upload is not masked by the cache.
func (s *cachedRecordStore) PutVideo(ctx context.Context, input PutVideoInput) (string, error) {
	videoID, err := s.RecordStore.PutVideo(ctx, input)
	if err != nil {
		return "", err
	}
	s.evict(ctx, input.User, videoID)
	return videoID, nil
}

func (s *cachedRecordStore) AttachThumbnail(ctx context.Context, user, videoID, localImagePath string) (*model.VideoRecord, error) {
	defer s.evict(ctx, user, videoID)
	return s.RecordStore.AttachThumbnail(ctx, user, videoID, localImagePath)
}

func (s *cachedRecordStore) SaveVideo(ctx context.Context, record *model.VideoRecord) error {
	defer s.evict(ctx, record.UserID, record.VideoID)
	return s.RecordStore.SaveVideo(ctx, record)
}

func (s *cachedRecordStore) DeleteVideo(ctx context.Context, user, videoID string) error {
	defer s.evict(ctx, user, videoID)
	return s.RecordStore.DeleteVideo(ctx, user, videoID)
}

func (s *cachedRecordStore) RecordView(ctx context.Context, user, videoID string) (*model.VideoRecord, error) {
	defer s.evict(ctx, user, videoID)
	return s.RecordStore.RecordView(ctx, user, videoID)
}

func (s *cachedRecordStore) RecordReaction(ctx context.Context, user, videoID string, reaction Reaction) (*model.VideoRecord, error) {
	defer s.evict(ctx, user, videoID)
	return s.RecordStore.RecordReaction(ctx, user, videoID, reaction)
}
