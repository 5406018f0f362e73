package cache

import (
	"context"
	"time"

	"github.com/hszk-dev/vidshelf/internal/domain/model"
)

// RecordCache defines the interface for caching video records.
// Implementations should handle serialization/deserialization transparently.
type RecordCache interface {
	// Get retrieves a record by owner and video ID.
	// Returns nil, nil on a cache miss.
	Get(ctx context.Context, user, videoID string) (*model.VideoRecord, error)

	// Set stores a record with the specified TTL.
	Set(ctx context.Context, record *model.VideoRecord, ttl time.Duration) error

	// Delete removes a record.
	// Returns nil if the record was not cached.
	Delete(ctx context.Context, user, videoID string) error
}
