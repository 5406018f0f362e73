// Package app connects the infrastructure clients and builds the services shared
// by the vidshelf binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/hszk-dev/vidshelf/internal/config"
	"github.com/hszk-dev/vidshelf/internal/domain/schema"
	"github.com/hszk-dev/vidshelf/internal/infrastructure/cache"
	"github.com/hszk-dev/vidshelf/internal/infrastructure/postgres"
	"github.com/hszk-dev/vidshelf/internal/infrastructure/queue"
	"github.com/hszk-dev/vidshelf/internal/infrastructure/storage"
	"github.com/hszk-dev/vidshelf/internal/transcoder"
	"github.com/hszk-dev/vidshelf/internal/usecase"
)

// Options selects optional infrastructure.
type Options struct {
	// Queue connects to RabbitMQ. Without it Dispatcher is nil.
	Queue bool
}

// App holds the connected clients and the services built on them.
type App struct {
	Config *config.Config

	Storage  *storage.Client
	Postgres *postgres.Client
	Redis    *redis.Client
	Queue    *queue.Client

	Jobs       *postgres.QualityJobRepository
	Signer     *usecase.Signer
	Prober     transcoder.Prober
	Catalog    usecase.CatalogCache
	Store      usecase.RecordStore
	Registry   usecase.QualityRegistry
	Dispatcher usecase.QualityDispatcher

	closers []func()
}

// New connects to every backing service and wires the usecases. On error,
// anything already opened is closed.
func New(ctx context.Context, cfg *config.Config, opts Options) (_ *App, err error) {
	a := &App{Config: cfg}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.Storage, err = storage.NewClient(ctx, storage.ClientConfig{
		Endpoint:       cfg.MinIO.Endpoint,
		PublicEndpoint: cfg.MinIO.PublicEndpoint,
		AccessKey:      cfg.MinIO.AccessKey,
		SecretKey:      cfg.MinIO.SecretKey,
		Bucket:         cfg.MinIO.Bucket,
		UseSSL:         cfg.MinIO.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MinIO: %w", err)
	}
	slog.Info("connected to MinIO", "bucket", cfg.MinIO.Bucket)

	a.Postgres, err = postgres.NewClient(ctx, postgres.DefaultClientConfig(cfg.Database.DSN()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	a.closers = append(a.closers, a.Postgres.Close)
	if err = a.Postgres.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to migrate PostgreSQL: %w", err)
	}
	slog.Info("connected to PostgreSQL")

	a.Redis = redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	a.closers = append(a.closers, func() { _ = a.Redis.Close() })
	if err = a.Redis.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	slog.Info("connected to Redis", "addr", cfg.Redis.Addr())

	if opts.Queue {
		qcfg := queue.DefaultClientConfig(cfg.RabbitMQ.URL())
		qcfg.Queue = cfg.RabbitMQ.Queue
		qcfg.RoutingKey = cfg.RabbitMQ.Queue
		qcfg.Retry.MaxRedeliveries = cfg.RabbitMQ.MaxRedeliveries
		a.Queue, err = queue.NewClient(ctx, qcfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		a.closers = append(a.closers, func() { _ = a.Queue.Close() })
		slog.Info("connected to RabbitMQ")
	}

	validator, err := schema.NewValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to load record schemas: %w", err)
	}

	a.Jobs = postgres.NewQualityJobRepository(a.Postgres.Pool())
	a.Signer = usecase.NewSigner(a.Storage)
	a.Prober = transcoder.NewFFprobeProber()
	a.Catalog = usecase.NewCatalogCache(a.Storage, validator, usecase.CatalogConfig{
		Freshness:   cfg.Catalog.Freshness,
		Concurrency: cfg.Catalog.Concurrency,
	})

	store := usecase.NewRecordStore(a.Storage, a.Prober, a.Signer, a.Catalog, validator, usecase.RecordStoreConfig{
		DefaultAvatarPath: cfg.Assets.DefaultAvatarPath,
		AvatarURLTTL:      cfg.Signing.AvatarURLTTL,
		StatsTimeout:      usecase.DefaultRecordStoreConfig().StatsTimeout,
	})
	a.Store = usecase.NewCachedRecordStore(store, cache.NewRedisRecordCache(a.Redis), usecase.CachedRecordStoreConfig{
		CacheTTL: cfg.Redis.CacheTTL,
	})
	a.Registry = usecase.NewQualityRegistry(a.Store, a.Signer, a.Jobs, cfg.Signing.MediaURLTTL)
	if a.Queue != nil {
		a.Dispatcher = usecase.NewQualityDispatcher(a.Store, a.Jobs, a.Queue)
	}

	return a, nil
}

// QualityService builds the in-process renderer used by the worker and by
// synchronous batch runs.
func (a *App) QualityService() usecase.QualityService {
	tc := transcoder.NewFFmpegTranscoder(transcoder.FFmpegConfig{
		FFmpegPath:  a.Config.FFmpeg.Path,
		VideoCodec:  a.Config.FFmpeg.VideoCodec,
		VideoPreset: a.Config.FFmpeg.VideoPreset,
		AudioCodec:  a.Config.FFmpeg.AudioCodec,
		MaxHeight:   a.Config.Worker.MaxHeight,
	})
	return usecase.NewQualityService(a.Store, a.Registry, a.Storage, a.Jobs, tc, a.Prober, usecase.QualityServiceConfig{
		TempDir:    a.Config.Worker.TempDir,
		MaxRetries: a.Config.Worker.MaxRetries,
		MaxHeight:  a.Config.Worker.MaxHeight,
	})
}

// QualityBatch builds the backfill runner. Queued runs need Options.Queue.
func (a *App) QualityBatch() *usecase.QualityBatch {
	return usecase.NewQualityBatch(a.Store, a.Jobs, a.Dispatcher, a.QualityService())
}

// Checks returns a ping per connected dependency, keyed by name.
func (a *App) Checks() map[string]func(ctx context.Context) error {
	checks := map[string]func(ctx context.Context) error{
		"storage":  a.Storage.Ping,
		"postgres": a.Postgres.Ping,
		"redis":    func(ctx context.Context) error { return a.Redis.Ping(ctx).Err() },
	}
	if a.Queue != nil {
		checks["queue"] = func(ctx context.Context) error {
			if !a.Queue.Healthy() {
				return errors.New("connection closed")
			}
			return nil
		}
	}
	return checks
}

// Close releases clients in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
