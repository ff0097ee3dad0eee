// Package app wires together all dependencies and runs the marketplace service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/ludaNOFX/ludaproj-full/internal/auth"
	"github.com/ludaNOFX/ludaproj-full/internal/cache"
	"github.com/ludaNOFX/ludaproj-full/internal/config"
	"github.com/ludaNOFX/ludaproj-full/internal/domain"
	"github.com/ludaNOFX/ludaproj-full/internal/event"
	handler "github.com/ludaNOFX/ludaproj-full/internal/handler/http"
	"github.com/ludaNOFX/ludaproj-full/internal/media"
	"github.com/ludaNOFX/ludaproj-full/internal/media/storage/disk"
	"github.com/ludaNOFX/ludaproj-full/internal/repository/postgres"
	"github.com/ludaNOFX/ludaproj-full/internal/search"
	"github.com/ludaNOFX/ludaproj-full/internal/search/engine"
	"github.com/ludaNOFX/ludaproj-full/internal/search/engine/elasticsearch"
	"github.com/ludaNOFX/ludaproj-full/internal/service"
	"github.com/ludaNOFX/ludaproj-full/internal/store"
	"github.com/ludaNOFX/ludaproj-full/migrations"
	"github.com/ludaNOFX/ludaproj-full/pkg/database"
	"github.com/ludaNOFX/ludaproj-full/pkg/health"
	pkgkafka "github.com/ludaNOFX/ludaproj-full/pkg/kafka"
	"github.com/ludaNOFX/ludaproj-full/pkg/middleware"
)

// App wires together all dependencies and runs the marketplace service.
type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	pool       *pgxpool.Pool
	redis      *redis.Client
	producer   *pkgkafka.Producer
	httpServer *http.Server
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize PostgreSQL connection pool.
	pgCfg := database.PostgresConfig{
		Host:     cfg.PostgresHost,
		Port:     cfg.PostgresPort,
		User:     cfg.PostgresUser,
		Password: cfg.PostgresPass,
		DBName:   cfg.PostgresDB,
		SSLMode:  cfg.PostgresSSL,
	}

	pool, err := database.NewPostgresPoolWithLogger(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	prometheus.MustRegister(database.NewPoolStatsCollector(pool, "marketplace"))

	// Run database migrations.
	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	// Initialize Redis.
	redisClient, err := database.NewRedisClient(ctx, database.RedisConfig{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis", slog.String("addr", fmt.Sprintf("%s:%d", cfg.RedisHost, cfg.RedisPort)))

	// Initialize Kafka producer.
	kafkaCfg := pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers)
	producer := pkgkafka.NewProducer(kafkaCfg, logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	// Search registry: which fields of each record kind are indexed.
	registry := search.NewRegistry()
	registry.Register(domain.SearchKindUser, []search.Field{
		{Name: "username", Get: func(rec search.Searchable) any { return rec.(*domain.User).Username }},
	})
	registry.Register(domain.SearchKindProduct, []search.Field{
		{Name: "name", Get: func(rec search.Searchable) any { return rec.(*domain.Product).Name }},
	})

	// Optional Elasticsearch engine. Without it the app still serves
	// everything except search results.
	var searchEngine engine.Engine
	if cfg.ElasticsearchURL != "" {
		esEngine, err := elasticsearch.New(cfg.ElasticsearchURL, cfg.SearchIndexPrefix, logger)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("create elasticsearch engine: %w", err)
		}
		for _, kind := range registry.Kinds() {
			if err := esEngine.EnsureKind(ctx, kind); err != nil {
				logger.Warn("failed to ensure search index",
					slog.String("kind", kind),
					slog.String("error", err.Error()),
				)
			}
		}
		searchEngine = esEngine
		logger.Info("elasticsearch engine initialized", slog.String("url", cfg.ElasticsearchURL))
	} else {
		logger.Warn("no elasticsearch url configured, search is disabled")
	}

	syncer := search.NewSynchronizer(searchEngine, registry, logger)
	txManager := store.NewTxManager(pool, syncer)

	// Picture storage.
	fileStore, err := disk.New(cfg.StorageRoot)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("create file store: %w", err)
	}

	// Build the dependency graph.
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTAccessExpiry, cfg.JWTRefreshExpiry)
	userRepo := postgres.NewUserRepository(pool)
	productRepo := postgres.NewProductRepository(pool)
	followRepo := postgres.NewFollowRepository(pool)
	cartRepo := postgres.NewCartRepository(pool)
	pictureRepo := postgres.NewPictureRepository(pool)
	pictureManager := media.NewManager(pictureRepo, fileStore, logger)
	lastSeen := cache.NewLastSeenCache(redisClient)
	eventProducer := event.NewProducer(producer, logger)

	userService := service.NewUserService(userRepo, followRepo, txManager, jwtManager, lastSeen, pictureManager, eventProducer, logger)
	productService := service.NewProductService(productRepo, cartRepo, txManager, pictureManager, eventProducer, logger)
	searchService := service.NewSearchService(syncer, userRepo, productRepo, logger)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.Register("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.Register("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})
	healthHandler.Register("kafka", func(ctx context.Context) error {
		return producer.Ping(ctx)
	})

	// HTTP router.
	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowedOrigins = cfg.CORSAllowedOrigins
	corsConfig.Environment = cfg.Environment
	router := handler.NewRouter(userService, productService, searchService, jwtManager, healthHandler, logger, corsConfig)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:        cfg,
		logger:     logger,
		pool:       pool,
		redis:      redisClient,
		producer:   producer,
		httpServer: httpServer,
	}, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components: the HTTP server drains in-flight
// requests first, then the producer and connection pools close.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if err := a.redis.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.pool.Close()

	if len(errs) > 0 {
		return fmt.Errorf("shutdown completed with %d error(s): %w", len(errs), errors.Join(errs...))
	}

	a.logger.Info("application shut down cleanly")
	return nil
}
