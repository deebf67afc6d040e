package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/matchdayhq/media-service/migrations"
	"github.com/matchdayhq/media-service/pkg/database"
	"github.com/matchdayhq/media-service/pkg/health"
	"github.com/matchdayhq/media-service/pkg/httpclient"
	pkgkafka "github.com/matchdayhq/media-service/pkg/kafka"
	"github.com/matchdayhq/media-service/pkg/middleware"
	"github.com/matchdayhq/media-service/pkg/tracing"

	"github.com/matchdayhq/media-service/internal/config"
	"github.com/matchdayhq/media-service/internal/domain"
	"github.com/matchdayhq/media-service/internal/event"
	handler "github.com/matchdayhq/media-service/internal/handler/http"
	"github.com/matchdayhq/media-service/internal/profile"
	"github.com/matchdayhq/media-service/internal/repository/postgres"
	"github.com/matchdayhq/media-service/internal/service"
	"github.com/matchdayhq/media-service/internal/storage"
	"github.com/matchdayhq/media-service/internal/storage/bucket"
	"github.com/matchdayhq/media-service/internal/storage/largeobject"
	"github.com/matchdayhq/media-service/internal/storage/memory"
)

// App wires together all dependencies and runs the media service.
type App struct {
	cfg             *config.Config
	logger          *slog.Logger
	pool            *pgxpool.Pool
	redis           *redis.Client
	producer        *pkgkafka.Producer
	httpServer      *http.Server
	tracingShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize tracing. Disabled config yields a no-op shutdown.
	tracingShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    "media-service",
		ServiceVersion: cfg.ServiceVersion,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.TracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// Initialize PostgreSQL connection pool.
	pgCfg := database.PostgresConfig{
		Host:            cfg.PostgresHost,
		Port:            cfg.PostgresPort,
		User:            cfg.PostgresUser,
		Password:        cfg.PostgresPass,
		DBName:          cfg.PostgresDB,
		SSLMode:         cfg.PostgresSSL,
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
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

	// Run database migrations.
	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	database.RegisterPoolMetrics(pool, "media")

	// Redis backs the uploader profile cache only; a missing Redis
	// degrades to uncached lookups instead of failing startup.
	redisClient, err := database.NewRedisClient(ctx, database.RedisConfig{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		logger.Warn("redis unavailable, profile cache disabled", slog.String("error", err.Error()))
		redisClient = nil
	}

	// Initialize Kafka producer.
	kafkaCfg := pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers)
	producer := pkgkafka.NewProducer(kafkaCfg, logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.Register("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	if redisClient != nil {
		healthHandler.Register("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}
	healthHandler.Register("kafka", func(ctx context.Context) error {
		return pkgkafka.PingBrokers(ctx, cfg.KafkaBrokers)
	})

	// Object storage backends.
	router, err := buildStorageRouter(cfg, logger, healthHandler)
	if err != nil {
		pool.Close()
		return nil, err
	}

	// Uploader profile enrichment via the user service.
	httpClient := httpclient.New(httpclient.DefaultConfig())
	cbClient := httpclient.NewCircuitBreakerClient(httpClient,
		httpclient.DefaultCircuitBreakerConfig("user-service"), logger)
	profiles := profile.NewClient(cbClient, redisClient, cfg.UserServiceURL, cfg.ProfileCacheTTL, logger)

	// Build the dependency graph.
	repo := postgres.NewMediaRepository(pool)
	eventProducer := event.NewProducer(producer, logger)
	mediaService := service.NewMediaService(repo, router, eventProducer, profiles, logger, cfg.MaxUploadBytes)

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.Environment = cfg.Environment
	if len(cfg.CORSAllowedOrigins) > 0 {
		corsCfg.AllowedOrigins = cfg.CORSAllowedOrigins
	}

	// HTTP router.
	mux := handler.NewRouter(mediaService, healthHandler, logger, handler.RouterConfig{
		CORS:           corsCfg,
		PprofCIDRs:     cfg.PprofAllowedCIDRs,
		MaxUploadBytes: cfg.MaxUploadBytes,
		SharedMaxAge:   cfg.SharedCacheMaxAge,
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:             cfg,
		logger:          logger,
		pool:            pool,
		redis:           redisClient,
		producer:        producer,
		httpServer:      httpServer,
		tracingShutdown: tracingShutdown,
	}, nil
}

// buildStorageRouter connects both object-store backends, registers their
// readiness checks, and assembles the media-type router.
func buildStorageRouter(cfg *config.Config, logger *slog.Logger, healthHandler *health.Handler) (*storage.Router, error) {
	if cfg.UseMemoryStorage {
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = fmt.Sprintf("http://localhost:%d/media", cfg.HTTPPort)
		}
		logger.Warn("using in-memory object storage, uploads will not survive a restart")
		return storage.NewRouter(
			memory.New(domain.ProviderBucket, baseURL),
			memory.New(domain.ProviderLargeObject, baseURL),
		), nil
	}

	bucketStore, err := bucket.New(bucket.Config{
		Endpoint:      cfg.BucketEndpoint,
		AccessKey:     cfg.BucketAccessKey,
		SecretKey:     cfg.BucketSecretKey,
		Bucket:        cfg.BucketName,
		Region:        cfg.BucketRegion,
		UseSSL:        cfg.BucketUseSSL,
		PublicBaseURL: cfg.BucketPublicURL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect bucket store: %w", err)
	}
	logger.Info("bucket store connected",
		slog.String("endpoint", cfg.BucketEndpoint),
		slog.String("bucket", cfg.BucketName),
	)

	largeStore, err := largeobject.New(largeobject.Config{
		Endpoint:      cfg.LargeObjectEndpoint,
		AccessKey:     cfg.LargeObjectAccessKey,
		SecretKey:     cfg.LargeObjectSecretKey,
		Bucket:        cfg.LargeObjectBucket,
		Region:        cfg.LargeObjectRegion,
		UseSSL:        cfg.LargeObjectUseSSL,
		PublicBaseURL: cfg.LargeObjectPublicURL,
		PartSize:      uint64(cfg.LargeObjectPartSizeMB) << 20,
		Concurrency:   uint(cfg.LargeObjectConcurrency),
	})
	if err != nil {
		return nil, fmt.Errorf("connect large-object store: %w", err)
	}
	logger.Info("large-object store connected",
		slog.String("endpoint", cfg.LargeObjectEndpoint),
		slog.String("bucket", cfg.LargeObjectBucket),
	)

	healthHandler.Register("bucket-store", bucketStore.Ping)
	healthHandler.Register("large-object-store", largeStore.Ping)

	return storage.NewRouter(bucketStore, largeStore), nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	// Graceful HTTP server shutdown with a 10-second deadline.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
		}
	}

	if err := a.tracingShutdown(shutdownCtx); err != nil {
		a.logger.Error("tracing shutdown error", slog.String("error", err.Error()))
	}

	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return nil
}
