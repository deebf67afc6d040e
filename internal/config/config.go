package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/matchdayhq/media-service/pkg/config"
)

// Config holds all configuration for the media service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"MEDIA_HTTP_PORT" envDefault:"8080"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"matchday"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"matchday_secret"`
	PostgresDB   string `env:"MEDIA_DB_NAME" envDefault:"matchday_media"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Redis (uploader profile cache)
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"MEDIA_REDIS_DB" envDefault:"0"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// General bucket store (images, audio, documents)
	BucketEndpoint  string `env:"BUCKET_STORE_ENDPOINT" envDefault:"localhost:9000"`
	BucketAccessKey string `env:"BUCKET_STORE_ACCESS_KEY" envDefault:"matchday"`
	BucketSecretKey string `env:"BUCKET_STORE_SECRET_KEY" envDefault:"matchday_secret"`
	BucketName      string `env:"BUCKET_STORE_BUCKET" envDefault:"team-media"`
	BucketRegion    string `env:"BUCKET_STORE_REGION" envDefault:""`
	BucketUseSSL    bool   `env:"BUCKET_STORE_USE_SSL" envDefault:"false"`
	BucketPublicURL string `env:"BUCKET_STORE_PUBLIC_URL" envDefault:""`

	// Large-object store (video)
	LargeObjectEndpoint    string `env:"LARGE_OBJECT_STORE_ENDPOINT" envDefault:"localhost:9002"`
	LargeObjectAccessKey   string `env:"LARGE_OBJECT_STORE_ACCESS_KEY" envDefault:"matchday"`
	LargeObjectSecretKey   string `env:"LARGE_OBJECT_STORE_SECRET_KEY" envDefault:"matchday_secret"`
	LargeObjectBucket      string `env:"LARGE_OBJECT_STORE_BUCKET" envDefault:"team-video"`
	LargeObjectRegion      string `env:"LARGE_OBJECT_STORE_REGION" envDefault:""`
	LargeObjectUseSSL      bool   `env:"LARGE_OBJECT_STORE_USE_SSL" envDefault:"false"`
	LargeObjectPublicURL   string `env:"LARGE_OBJECT_STORE_PUBLIC_URL" envDefault:""`
	LargeObjectPartSizeMB  int    `env:"LARGE_OBJECT_STORE_PART_SIZE_MB" envDefault:"64"`
	LargeObjectConcurrency int    `env:"LARGE_OBJECT_STORE_CONCURRENCY" envDefault:"4"`

	// UseMemoryStorage swaps both backends for in-process stores. Only
	// useful for local development without MinIO running.
	UseMemoryStorage bool   `env:"MEDIA_USE_MEMORY_STORAGE" envDefault:"false"`
	BaseURL          string `env:"MEDIA_BASE_URL" envDefault:""`

	// Upload limits and shared-link caching
	MaxUploadBytes    int64 `env:"MEDIA_MAX_UPLOAD_BYTES" envDefault:"1073741824"`
	SharedCacheMaxAge int   `env:"MEDIA_SHARED_CACHE_MAX_AGE" envDefault:"60"`

	// User service (uploader profile enrichment)
	UserServiceURL  string        `env:"USER_SERVICE_URL" envDefault:"http://localhost:8001"`
	ProfileCacheTTL time.Duration `env:"PROFILE_CACHE_TTL" envDefault:"5m"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"" envSeparator:","`

	// Tracing
	TracingEnabled bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTLPEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
	ServiceVersion string  `env:"SERVICE_VERSION" envDefault:"0.1.0"`

	// pprof is only reachable from these CIDRs; empty means disabled.
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"" envSeparator:","`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load media config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.OTELSampleRate < 0.0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MEDIA_MAX_UPLOAD_BYTES must be positive, got %d", c.MaxUploadBytes)
	}
	return nil
}

// PostgresDSN returns the PostgreSQL connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.PostgresUser, c.PostgresPass, c.PostgresHost, c.PostgresPort, c.PostgresDB, c.PostgresSSL,
	)
}
