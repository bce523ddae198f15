package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vidshare/backend/internal/auth"
	"github.com/vidshare/backend/internal/catalog"
	"github.com/vidshare/backend/internal/channels"
	"github.com/vidshare/backend/internal/config"
	"github.com/vidshare/backend/internal/db"
	"github.com/vidshare/backend/internal/handlers"
	"github.com/vidshare/backend/internal/history"
	"github.com/vidshare/backend/internal/identity"
	"github.com/vidshare/backend/internal/logging"
	"github.com/vidshare/backend/internal/metrics"
	"github.com/vidshare/backend/internal/middleware"
	"github.com/vidshare/backend/internal/repositories"
	"github.com/vidshare/backend/internal/storage"
	"github.com/vidshare/backend/internal/subscriptions"
	"github.com/vidshare/backend/internal/ttlcache"
	"github.com/vidshare/backend/internal/views"
)

const redisKeyPrefix = "vidshare:views:"

// repositorySet groups the stores behind the domain services so either backend
// can be plugged in.
type repositorySet struct {
	identities    repositories.IdentityRepository
	subscriptions repositories.SubscriptionRepository
	videos        repositories.VideoRepository
	reactions     repositories.ReactionRepository
}

// buildDependencies wires together concrete implementations used by the HTTP
// handlers. pool may be nil in memory mode. The returned cleanup releases
// connections opened here; the pool itself stays owned by the caller.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config) (handlers.Dependencies, func(context.Context) error, error) {
	logger := logging.FromContext(ctx)
	var closers []func() error

	cleanup := func(context.Context) error {
		var firstErr error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}

	var (
		repos  repositorySet
		health handlers.HealthChecker
	)
	switch cfg.StorageBackend {
	case config.StorageBackendMemory:
		mem := repositories.NewMemoryRepositories()
		repos = repositorySet{
			identities:    mem.Identities,
			subscriptions: mem.Subscriptions,
			videos:        mem.Videos,
			reactions:     mem.Reactions,
		}
		logger.Warn("using in-memory storage; data is lost on restart")
	default:
		if pool == nil {
			return handlers.Dependencies{}, nil, fmt.Errorf("storage backend %q requires a database pool", cfg.StorageBackend)
		}
		repos = repositorySet{
			identities:    repositories.NewPostgresIdentityRepository(pool),
			subscriptions: repositories.NewPostgresSubscriptionRepository(pool),
			videos:        repositories.NewPostgresVideoRepository(pool),
			reactions:     repositories.NewPostgresReactionRepository(pool),
		}
		health = pool
	}

	dedup, closeDedup, err := buildDedupCache(cfg.Views)
	if err != nil {
		return handlers.Dependencies{}, nil, err
	}
	if closeDedup != nil {
		closers = append(closers, closeDedup)
	}

	var media identity.MediaStore
	switch {
	case cfg.ObjectStore.Enabled():
		s3Store, err := storage.NewS3Storage(ctx, cfg.ObjectStore)
		if err != nil {
			_ = cleanup(ctx)
			return handlers.Dependencies{}, nil, fmt.Errorf("configure object storage: %w", err)
		}
		media = s3Store
	case cfg.StorageBackend == config.StorageBackendMemory:
		media = storage.NewMemoryStorage("")
	default:
		logger.Warn("no object store configured; media uploads are disabled")
	}

	manager, err := auth.NewManager(auth.Config{
		AccessSecret:  cfg.Tokens.AccessSecret,
		RefreshSecret: cfg.Tokens.RefreshSecret,
		AccessTTL:     cfg.Tokens.AccessTTL,
		RefreshTTL:    cfg.Tokens.RefreshTTL,
	}, repos.identities)
	if err != nil {
		_ = cleanup(ctx)
		return handlers.Dependencies{}, nil, err
	}

	limit := cfg.LoginLimit
	deps := handlers.Dependencies{
		Identities:    identity.NewService(repos.identities, media),
		Sessions:      manager,
		Subscriptions: subscriptions.NewGraph(repos.subscriptions, repos.identities),
		Channels:      channels.NewAggregator(repos.identities, repos.subscriptions),
		History:       history.NewLedger(repos.identities, repos.videos),
		Views:         views.NewService(dedup, repos.videos, views.WithWindow(cfg.Views.DedupWindow)),
		Videos:        catalog.NewService(repos.videos, repos.reactions, media),
		Health:        health,
		Auth:          middleware.NewAuthenticator(manager),
		LoginLimiter:  middleware.NewKeyedRateLimiter(limit.Requests, limit.Window, limit.Burst, 10*time.Minute),
		Metrics:       metrics.NewRegistry(),
		Uploads: handlers.UploadLimits{
			VideoBytes: cfg.Uploads.MaxVideoBytes,
			ImageBytes: cfg.Uploads.MaxImageBytes,
		},
	}

	logger.Info("dependencies ready",
		slog.String("storage", cfg.StorageBackend),
		slog.String("view_dedup", cfg.Views.DedupBackend),
		slog.Bool("media_uploads", media != nil),
	)
	return deps, cleanup, nil
}

func buildDedupCache(cfg config.ViewConfig) (ttlcache.Cache, func() error, error) {
	if cfg.DedupBackend != config.DedupBackendRedis {
		return ttlcache.NewMemoryCache(), nil, nil
	}

	client, err := ttlcache.NewRedisClient(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("configure redis view cache: %w", err)
	}
	return ttlcache.NewRedisCache(client, redisKeyPrefix), client.Close, nil
}
