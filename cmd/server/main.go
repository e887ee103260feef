package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"inkcircle/internal/cache"
	"inkcircle/internal/config"
	"inkcircle/internal/database"
	"inkcircle/internal/fixtures"
	"inkcircle/internal/handler"
	"inkcircle/internal/queue"
	appredis "inkcircle/internal/redis"
	"inkcircle/internal/repository"
	"inkcircle/internal/repository/embedded"
	"inkcircle/internal/service"
	transport "inkcircle/internal/transport/http"
	"inkcircle/internal/transport/http/middleware"
	"inkcircle/internal/worker"
)

// refreshTokenRetention is how long expired refresh tokens are kept for
// reuse detection before they are purged.
const refreshTokenRetention = 7 * 24 * time.Hour

type repositories struct {
	users     repository.UserRepository
	tokens    repository.RefreshTokenRepository
	posts     repository.PostRepository
	comments  repository.CommentRepository
	reactions repository.ReactionRepository
	closer    io.Closer
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func run() error {
	// 1. Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	theme, err := fixtures.Load(cfg.Theme)
	if err != nil {
		return fmt.Errorf("failed to load theme: %w", err)
	}

	// 2. Storage
	repos, err := openStorage(ctx, cfg, theme)
	if err != nil {
		return err
	}
	defer repos.closer.Close()

	posts := repository.WithPostLatency(repos.posts, cfg.SimulatedLatency)
	commentRepo := repository.WithCommentLatency(repos.comments, cfg.SimulatedLatency)

	// 3. Services
	userService := service.NewUserService(repos.users)
	authService := service.NewAuthService(repos.tokens, cfg)
	commentService := service.NewCommentService(commentRepo, posts, userService)

	var publisher queue.Publisher = queue.NopPublisher{}
	var feedCache cache.FeedCache
	var rc *appredis.Client

	if cfg.RedisURL != "" {
		rc, err = appredis.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer rc.Close()

		feedCache = cache.NewFeedCache(rc.Client)
		publisher = queue.NewPublisher(rc.Client)
	} else {
		log.Info("[Main] REDIS_URL not set: feed cache and workers disabled")
	}

	postService := service.NewPostService(posts, repos.reactions, userService, publisher, service.PostServiceConfig{
		Categories: theme.Categories,
		TagCatalog: theme.TagCatalog,
	})
	if rc != nil {
		postService.WithFeedCache(feedCache)

		manager := worker.NewManager(queue.NewConsumer(rc.Client), worker.NewHandler(feedCache, postService), worker.DefaultManagerConfig())
		if err := manager.Start(ctx); err != nil {
			return fmt.Errorf("failed to start workers: %w", err)
		}
		defer manager.Stop()

		if _, err := publisher.Publish(ctx, queue.StreamFeed, queue.NewFeedRebuildEvent()); err != nil {
			log.Warnf("[Main] Failed to request feed rebuild: %v", err)
		}
	}

	if cfg.ObjectStorageEnabled() {
		media, err := service.NewMediaService(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to init media service: %w", err)
		}
		postService.WithCoverUploader(media)
		log.Infof("[Main] Cover uploads go to R2 bucket %s", cfg.R2BucketName)
	}

	if n, err := authService.PurgeExpired(ctx, refreshTokenRetention); err != nil {
		log.Warnf("[Main] Purge expired refresh tokens FAILED: %v", err)
	} else if n > 0 {
		log.Infof("[Main] Purged %d expired refresh tokens", n)
	}

	// 4. HTTP
	authLimiter := middleware.NewRateLimiter(cfg.AuthRateLimit, cfg.AuthRateWindow)
	defer authLimiter.Stop()

	router := transport.NewRouter(transport.RouterConfig{
		AuthHandler:     handler.NewAuthHandler(userService, authService, cfg),
		PostHandler:     handler.NewPostHandler(postService),
		ComposerHandler: handler.NewComposerHandler(postService),
		CommentHandler:  handler.NewCommentHandler(commentService),
		Authenticator:   middleware.NewAuthenticator(cfg.JWTSecret, userService),
		AuthLimiter:     authLimiter,
		AllowedOrigins:  cfg.CorsAllowedOrigins,
	})

	return transport.NewServer(cfg.ServerPort, router).Run(ctx)
}

func openStorage(ctx context.Context, cfg *config.Config, theme *fixtures.Dataset) (*repositories, error) {
	switch cfg.StorageDriver {
	case config.StoragePostgres:
		db, err := database.Connect(cfg)
		if err != nil {
			return nil, err
		}
		if err := database.EnsureSchema(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		return &repositories{
			users:     repository.NewUserRepository(db),
			tokens:    repository.NewRefreshTokenRepository(db),
			posts:     repository.NewPostRepository(db),
			comments:  repository.NewCommentRepository(db),
			reactions: repository.NewReactionRepository(db),
			closer:    db,
		}, nil

	default:
		db, err := embedded.Open(cfg.BadgerPath)
		if err != nil {
			return nil, err
		}
		if seeded, err := embedded.SeededTheme(db); err == nil && seeded != "" && seeded != theme.Theme {
			log.Warnf("[Main] Store at %q was seeded with theme %q, not %q", cfg.BadgerPath, seeded, theme.Theme)
		}
		if err := embedded.Seed(db, theme); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to seed store: %w", err)
		}
		return &repositories{
			users:     embedded.NewUserRepository(db),
			tokens:    embedded.NewRefreshTokenRepository(db),
			posts:     embedded.NewPostRepository(db),
			comments:  embedded.NewCommentRepository(db),
			reactions: embedded.NewReactionRepository(db),
			closer:    db,
		}, nil
	}
}
