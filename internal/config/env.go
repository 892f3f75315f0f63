package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type BaseEnv struct {
	Env      string `envconfig:"ENV" default:"local"`
	HTTPHost string `envconfig:"HTTP_HOST" default:""`
	HTTPPort string `envconfig:"HTTP_PORT" default:"3200"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"debug"`
	// APIKey guards /api when set. Leave empty behind a gateway that already
	// authenticates callers.
	APIKey string `envconfig:"API_KEY"`

	// AllowedOrigins is a comma separated CORS origin list.
	AllowedOrigins  []string      `envconfig:"ALLOWED_ORIGINS" default:"*"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

const (
	StorageLocal    = "local"
	StorageS3       = "s3"
	StoragePostgres = "postgres"
)

type StorageEnv struct {
	Type    string `envconfig:"STORAGE_TYPE" default:"local"`
	BaseDir string `envconfig:"STORAGE_BASE_DIR" default:".taskmarket/data"`
	// S3 settings (used when Type == "s3")
	S3Bucket string `envconfig:"S3_BUCKET"`
	S3Prefix string `envconfig:"S3_PREFIX" default:"taskmarket/"`
	S3Region string `envconfig:"S3_REGION" default:"ap-northeast-1"`
	// PostgreSQL settings (used when Type == "postgres")
	DatabaseURL      string `envconfig:"DATABASE_URL"`
	DatabaseMaxConns int32  `envconfig:"DATABASE_MAX_CONNS" default:"10"`
}

type Env struct {
	BaseEnv
	StorageEnv
}

const namespace = "TASKMARKET"

func LoadEnv() (*Env, error) {
	var env Env
	if err := envconfig.Process(namespace, &env); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	if env.ShutdownTimeout <= 0 {
		return nil, fmt.Errorf("%s_SHUTDOWN_TIMEOUT must be positive", namespace)
	}
	if err := env.StorageEnv.validate(); err != nil {
		return nil, err
	}
	return &env, nil
}

func (e *StorageEnv) validate() error {
	switch e.Type {
	case StorageLocal:
	case StorageS3:
		if e.S3Bucket == "" {
			return fmt.Errorf("%s_S3_BUCKET is required for s3 storage", namespace)
		}
	case StoragePostgres:
		if e.DatabaseURL == "" {
			return fmt.Errorf("%s_DATABASE_URL is required for postgres storage", namespace)
		}
	default:
		return fmt.Errorf("unknown storage type %q", e.Type)
	}
	return nil
}

func (e *BaseEnv) IsLocal() bool {
	return e == nil || e.Env == "local"
}

func (e *BaseEnv) SlogLevel() slog.Level {
	if e == nil {
		return slog.LevelDebug
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(e.LogLevel)); err != nil {
		return slog.LevelDebug
	}
	return level
}
