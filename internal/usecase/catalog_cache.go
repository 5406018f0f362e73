package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/hszk-dev/vidshelf/internal/domain/blobkey"
	"github.com/hszk-dev/vidshelf/internal/domain/model"
	"github.com/hszk-dev/vidshelf/internal/domain/repository"
	"github.com/hszk-dev/vidshelf/internal/domain/schema"
	"github.com/hszk-dev/vidshelf/internal/infrastructure/metrics"
)

const rebuildFlightKey = "rebuild"

// ReadOptions controls catalog pagination. Limit <= 0 means no limit.
type ReadOptions struct {
	Limit   int
	Offset  int
	Shuffle bool
}

// CatalogPage is one page of the catalog plus the size of the whole snapshot.
type CatalogPage struct {
	Entries []model.CatalogEntry `json:"videos"`
	Total   int                  `json:"total"`
}

// CatalogCache defines operations on the flat catalog snapshot.
type CatalogCache interface {
	// Rebuild scans every user namespace and persists a fresh snapshot.
	// Unreadable users and records are skipped.
	Rebuild(ctx context.Context) ([]model.CatalogEntry, error)

	// Read returns a page of the snapshot, rebuilding it first if it is missing.
	// A stale snapshot is served as-is.
	Read(ctx context.Context, opts ReadOptions) (*CatalogPage, error)

	// Search filters the snapshot by a case-insensitive substring of title,
	// description, owner handle or display name.
	Search(ctx context.Context, query string, opts ReadOptions) (*CatalogPage, error)

	// Invalidate drops the snapshot so the next Read rebuilds it.
	Invalidate(ctx context.Context) error
}

// CatalogConfig holds configuration for CatalogCache.
type CatalogConfig struct {
	// Freshness is how long a snapshot is considered current.
	Freshness time.Duration
	// Concurrency bounds how many user namespaces are scanned at once.
	Concurrency int
}

// DefaultCatalogConfig returns the default configuration.
func DefaultCatalogConfig() CatalogConfig {
	return CatalogConfig{
		Freshness:   30 * time.Second,
		Concurrency: 8,
	}
}

type catalogCache struct {
	storage   repository.ObjectStorage
	validator *schema.Validator
	sfGroup   singleflight.Group

	freshness   time.Duration
	concurrency int

	now     func() time.Time
	shuffle func(entries []model.CatalogEntry)
}

// NewCatalogCache creates a new CatalogCache instance.
func NewCatalogCache(storage repository.ObjectStorage, validator *schema.Validator, cfg CatalogConfig) CatalogCache {
	return newCatalogCache(storage, validator, cfg)
}

func newCatalogCache(storage repository.ObjectStorage, validator *schema.Validator, cfg CatalogConfig) *catalogCache {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &catalogCache{
		storage:     storage,
		validator:   validator,
		freshness:   cfg.Freshness,
		concurrency: concurrency,
		now:         time.Now,
		shuffle: func(entries []model.CatalogEntry) {
			rand.Shuffle(len(entries), func(i, j int) {
				entries[i], entries[j] = entries[j], entries[i]
			})
		},
	}
}

// ParseLimit converts a query parameter into a page size. Unparseable or
// non-positive input means no limit.
func ParseLimit(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// ParseOffset converts a query parameter into an offset clamped to zero.
func ParseOffset(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func (c *catalogCache) Rebuild(ctx context.Context) ([]model.CatalogEntry, error) {
	start := c.now()

	for _, folder := range []string{"", "cache"} {
		key := blobkey.SystemMarker(folder)
		if err := c.storage.Upload(ctx, key, bytes.NewReader(nil), contentTypeMarker); err != nil {
			slog.Warn("failed to write system marker", "key", key, "error", err)
		}
	}

	prefixes, err := c.storage.ListPrefixes(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list namespaces: %w", err)
	}

	var users []string
	for _, p := range prefixes {
		if blobkey.IsUserPrefix(p) {
			users = append(users, blobkey.UserFromPrefix(p))
		}
	}

	perUser := make([][]model.CatalogEntry, len(users))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, user := range users {
		g.Go(func() error {
			entries, err := c.scanUser(gctx, user)
			if err != nil {
				slog.Warn("skipping user during catalog rebuild", "user_id", user, "error", err)
				metrics.CatalogSkippedTotal.WithLabelValues(metrics.SkipUserList).Inc()
				return nil
			}
			perUser[i] = entries
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	entries := make([]model.CatalogEntry, 0)
	for _, e := range perUser {
		entries = append(entries, e...)
	}
	sortEntries(entries)

	data, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("encode catalog: %w", err)
	}
	if err := c.storage.Upload(ctx, blobkey.CatalogSnapshot, bytes.NewReader(data), contentTypeJSON); err != nil {
		return nil, fmt.Errorf("write catalog: %w", err)
	}

	metrics.CatalogRebuildDuration.Observe(c.now().Sub(start).Seconds())
	metrics.CatalogEntries.Set(float64(len(entries)))
	slog.Info("catalog rebuilt", "users", len(users), "videos", len(entries))

	return entries, nil
}

// scanUser reads and enriches every valid record in one namespace.
func (c *catalogCache) scanUser(ctx context.Context, user string) ([]model.CatalogEntry, error) {
	objects, err := c.storage.List(ctx, blobkey.Prefix(user, blobkey.FolderMetadata), false)
	if err != nil {
		return nil, err
	}

	displayName := model.HandleDisplayName(user)
	var profile model.UserProfile
	if err := readJSON(ctx, c.storage, blobkey.For(user, blobkey.KindProfile, "", ""), &profile); err == nil {
		profile.UserID = user
		displayName = profile.ResolvedDisplayName()
	} else if !errors.Is(err, repository.ErrObjectNotFound) {
		slog.Warn("failed to read profile for catalog", "user_id", user, "error", err)
	}

	var entries []model.CatalogEntry
	for _, obj := range objects {
		if !blobkey.IsMetadataKey(obj.Key) {
			continue
		}

		data, err := readBytes(ctx, c.storage, obj.Key)
		if err != nil {
			slog.Warn("skipping unreadable record", "key", obj.Key, "error", err)
			metrics.CatalogSkippedTotal.WithLabelValues(metrics.SkipRecordRead).Inc()
			continue
		}

		if c.validator != nil {
			if err := c.validator.Validate(schema.VideoRecord, data); err != nil {
				slog.Warn("skipping invalid record", "key", obj.Key, "error", err)
				metrics.CatalogSkippedTotal.WithLabelValues(metrics.SkipRecordInvalid).Inc()
				continue
			}
		}

		var record model.VideoRecord
		if err := json.Unmarshal(data, &record); err != nil {
			slog.Warn("skipping undecodable record", "key", obj.Key, "error", err)
			metrics.CatalogSkippedTotal.WithLabelValues(metrics.SkipRecordInvalid).Inc()
			continue
		}

		entries = append(entries, model.NewCatalogEntry(record, displayName))
	}

	return entries, nil
}

func sortEntries(entries []model.CatalogEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].UploadDate.After(entries[j].UploadDate)
	})
}

func (c *catalogCache) Read(ctx context.Context, opts ReadOptions) (*CatalogPage, error) {
	entries, err := c.load(ctx)
	if err != nil {
		return nil, err
	}

	if opts.Shuffle {
		shuffled := make([]model.CatalogEntry, len(entries))
		copy(shuffled, entries)
		c.shuffle(shuffled)
		entries = shuffled
	}

	return paginate(entries, opts), nil
}

func (c *catalogCache) Search(ctx context.Context, query string, opts ReadOptions) (*CatalogPage, error) {
	entries, err := c.load(ctx)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return paginate(entries, opts), nil
	}

	matches := make([]model.CatalogEntry, 0)
	for _, e := range entries {
		if matchesQuery(e, q) {
			matches = append(matches, e)
		}
	}

	return paginate(matches, opts), nil
}

func matchesQuery(e model.CatalogEntry, q string) bool {
	for _, field := range []string{e.Title, e.Description, e.UserID, e.DisplayName} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// load returns the snapshot, rebuilding it when missing. Concurrent misses share one rebuild.
func (c *catalogCache) load(ctx context.Context) ([]model.CatalogEntry, error) {
	info, err := c.storage.Stat(ctx, blobkey.CatalogSnapshot)
	if err != nil {
		if !errors.Is(err, repository.ErrObjectNotFound) {
			return nil, fmt.Errorf("stat catalog: %w", err)
		}

		metrics.CatalogReadsTotal.WithLabelValues(metrics.CatalogMissing).Inc()
		slog.Info("catalog snapshot missing, rebuilding")

		result, err, _ := c.sfGroup.Do(rebuildFlightKey, func() (any, error) {
			return c.Rebuild(ctx)
		})
		if err != nil {
			return nil, err
		}
		return result.([]model.CatalogEntry), nil
	}

	if age := c.now().Sub(info.LastModified); age > c.freshness {
		metrics.CatalogReadsTotal.WithLabelValues(metrics.CatalogStale).Inc()
		slog.Info("serving stale catalog snapshot", "age", age.String(), "freshness", c.freshness.String())
	} else {
		metrics.CatalogReadsTotal.WithLabelValues(metrics.CatalogFresh).Inc()
	}

	var entries []model.CatalogEntry
	if err := readJSON(ctx, c.storage, blobkey.CatalogSnapshot, &entries); err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return entries, nil
}

// paginate applies offset and limit to an already ordered slice.
func paginate(entries []model.CatalogEntry, opts ReadOptions) *CatalogPage {
	total := len(entries)

	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}

	end := total
	if opts.Limit > 0 && offset+opts.Limit < total {
		end = offset + opts.Limit
	}

	page := make([]model.CatalogEntry, end-offset)
	copy(page, entries[offset:end])

	return &CatalogPage{Entries: page, Total: total}
}

func (c *catalogCache) Invalidate(ctx context.Context) error {
	if err := c.storage.Delete(ctx, blobkey.CatalogSnapshot); err != nil {
		return fmt.Errorf("delete catalog: %w", err)
	}
	return nil
}
