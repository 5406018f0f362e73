package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/hszk-dev/vidshelf/internal/domain/repository"
)

const (
	// DefaultMediaURLTTL is the lifetime of signed video and thumbnail URLs.
	DefaultMediaURLTTL = time.Hour
	// DefaultAvatarURLTTL is the lifetime of signed avatar URLs.
	DefaultAvatarURLTTL = 24 * time.Hour
)

// Signer issues time-limited read URLs for stored objects.
type Signer struct {
	storage repository.ObjectStorage
}

// NewSigner creates a Signer backed by the object store's presigning.
func NewSigner(storage repository.ObjectStorage) *Signer {
	return &Signer{storage: storage}
}

// Sign returns a URL granting read access to key for ttl.
// It returns repository.ErrObjectNotFound when the key does not exist.
func (s *Signer) Sign(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if key == "" {
		return "", repository.ErrObjectNotFound
	}

	exists, err := s.storage.Exists(ctx, key)
	if err != nil {
		return "", fmt.Errorf("check object: %w", err)
	}
	if !exists {
		return "", repository.ErrObjectNotFound
	}

	url, err := s.storage.GeneratePresignedDownloadURL(ctx, key, ttl)
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}

	return url, nil
}
