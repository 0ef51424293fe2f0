package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Environment names
const (
	Development = "development"
	Test        = "test"
	Production  = "production"
)

const devJWTSecret = "foodgram-dev-secret-change-in-production"

// Config holds all runtime configuration for the server
type Config struct {
	Environment string
	Port        string
	BaseURL     string

	// Database
	DBDriver string
	DBDSN    string

	// Auth
	JWTSecret string
	TokenTTL  time.Duration

	// Pagination
	PageSize    int
	MaxPageSize int

	// Image storage
	StorageBackend string
	MediaRoot      string
	MediaURL       string
	S3Bucket       string
	S3Region       string
	S3PublicURL    string

	// HTTP
	CORSOrigins []string

	// Observability
	LogLevel     string
	LogFormat    string
	OTLPEndpoint string
	ServiceName  string
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, reading configuration from environment")
	}

	ttl, err := time.ParseDuration(getEnv("FOODGRAM_TOKEN_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid FOODGRAM_TOKEN_TTL: %w", err)
	}
	pageSize, err := strconv.Atoi(getEnv("FOODGRAM_PAGE_SIZE", "6"))
	if err != nil {
		return nil, fmt.Errorf("invalid FOODGRAM_PAGE_SIZE: %w", err)
	}
	maxPageSize, err := strconv.Atoi(getEnv("FOODGRAM_MAX_PAGE_SIZE", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid FOODGRAM_MAX_PAGE_SIZE: %w", err)
	}

	dsn := os.Getenv("FOODGRAM_DB_DSN")
	if dsn == "" {
		dsn = getEnv("DATABASE_URL", "foodgram.db")
	}

	cfg := &Config{
		Environment:    getEnv("FOODGRAM_ENV", Development),
		Port:           getEnv("PORT", "8080"),
		BaseURL:        strings.TrimRight(getEnv("FOODGRAM_BASE_URL", "http://localhost:8080"), "/"),
		DBDriver:       getEnv("FOODGRAM_DB_DRIVER", "sqlite"),
		DBDSN:          dsn,
		JWTSecret:      os.Getenv("JWT_SECRET"),
		TokenTTL:       ttl,
		PageSize:       pageSize,
		MaxPageSize:    maxPageSize,
		StorageBackend: getEnv("FOODGRAM_STORAGE", "local"),
		MediaRoot:      getEnv("FOODGRAM_MEDIA_ROOT", "media"),
		MediaURL:       getEnv("FOODGRAM_MEDIA_URL", "/media/"),
		S3Bucket:       os.Getenv("S3_BUCKET_NAME"),
		S3Region:       os.Getenv("AWS_REGION"),
		S3PublicURL:    os.Getenv("S3_PUBLIC_URL"),
		CORSOrigins:    splitList(getEnv("FOODGRAM_CORS_ORIGINS", "http://localhost:3000")),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		OTLPEndpoint:   os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		ServiceName:    getEnv("OTEL_SERVICE_NAME", "foodgram"),
	}

	// Development default for the signing secret; production must set one
	if cfg.JWTSecret == "" && cfg.Environment != Production {
		cfg.JWTSecret = devJWTSecret
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks a configuration for values the server cannot run with
func Validate(cfg *Config) error {
	var errs []error

	switch cfg.Environment {
	case Development, Test, Production:
	default:
		errs = append(errs, fmt.Errorf("unknown environment %q", cfg.Environment))
	}
	if cfg.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if cfg.Environment == Production && cfg.JWTSecret == devJWTSecret {
		errs = append(errs, errors.New("JWT_SECRET must not use the development default in production"))
	}
	switch cfg.DBDriver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("unknown database driver %q", cfg.DBDriver))
	}
	if cfg.DBDSN == "" {
		errs = append(errs, errors.New("database DSN is required"))
	}
	if cfg.PageSize < 1 {
		errs = append(errs, errors.New("page size must be at least 1"))
	}
	if cfg.MaxPageSize < cfg.PageSize {
		errs = append(errs, errors.New("max page size must not be smaller than page size"))
	}
	if cfg.TokenTTL <= 0 {
		errs = append(errs, errors.New("token TTL must be positive"))
	}
	switch cfg.StorageBackend {
	case "local":
		if cfg.MediaRoot == "" {
			errs = append(errs, errors.New("media root is required for local storage"))
		}
	case "s3":
		if cfg.S3Bucket == "" {
			errs = append(errs, errors.New("S3_BUCKET_NAME is required for s3 storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend))
	}

	return errors.Join(errs...)
}

// Addr returns the listen address for the HTTP server
func (c *Config) Addr() string {
	return ":" + c.Port
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
