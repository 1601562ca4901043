package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	Postgres  PostgresConfig
	Mongo     MongoConfig
	Auth      AuthConfig
	Storage   StorageConfig
	CORS      CORSConfig
	Log       LogConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port         string        `env:"PORT" env-default:"4000"`
	GinMode      string        `env:"GIN_MODE" env-default:"release"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" env-default:"15s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" env-default:"30s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
}

type StoreConfig struct {
	Driver string `env:"STORE_DRIVER" env-default:"postgres"`
}

type PostgresConfig struct {
	DatabaseURL string `env:"DATABASE_URL"`
	Host        string `env:"PGHOST" env-default:"localhost"`
	Port        string `env:"PGPORT" env-default:"5432"`
	User        string `env:"PGUSER"`
	Password    string `env:"PGPASSWORD"`
	Database    string `env:"PGDATABASE"`
	SSLMode     string `env:"PGSSLMODE" env-default:"disable"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI" env-default:"mongodb://localhost:27017"`
	Database string `env:"MONGO_DATABASE" env-default:"blog"`
}

type AuthConfig struct {
	JWTSecret     string        `env:"JWT_SECRET"`
	JWTAccessTTL  time.Duration `env:"JWT_ACCESS_TTL" env-default:"30m"`
	JWTRefreshTTL time.Duration `env:"JWT_REFRESH_TTL" env-default:"336h"`
	BcryptCost    int           `env:"BCRYPT_COST" env-default:"10"`
}

// StorageConfig describes the S3-compatible bucket images are uploaded to.
// Endpoint is only set for MinIO or other non-AWS backends.
type StorageConfig struct {
	Region        string `env:"AWS_REGION" env-default:"ap-northeast-2"`
	AccessKeyID   string `env:"AWS_ACCESS_KEY_ID"`
	SecretKey     string `env:"AWS_SECRET_KEY"`
	Bucket        string `env:"S3_BUCKET" env-default:"frontyardposts"`
	Endpoint      string `env:"S3_ENDPOINT"`
	PublicURL     string `env:"S3_PUBLIC_URL"`
	MaxUploadSize int64  `env:"UPLOAD_MAX_FILE_SIZE" env-default:"5242880"`
}

type CORSConfig struct {
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS" env-separator:","`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS" env-default:"true"`
}

type LogConfig struct {
	Level string `env:"LOG_LEVEL" env-default:"info"`
}

type RateLimitConfig struct {
	RPS       float64       `env:"AUTH_RATE_LIMIT_RPS" env-default:"5"`
	Burst     int           `env:"AUTH_RATE_LIMIT_BURST" env-default:"10"`
	CacheSize int           `env:"AUTH_RATE_LIMIT_CACHE_SIZE" env-default:"4096"`
	TTL       time.Duration `env:"AUTH_RATE_LIMIT_TTL" env-default:"10m"`
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.Auth.JWTAccessTTL <= 0 || c.Auth.JWTRefreshTTL <= 0 {
		return errors.New("JWT_ACCESS_TTL and JWT_REFRESH_TTL must be positive")
	}
	switch c.Store.Driver {
	case DriverPostgres, DriverMongo, DriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver)
	}
	if c.Storage.MaxUploadSize <= 0 {
		return errors.New("UPLOAD_MAX_FILE_SIZE must be positive")
	}
	return nil
}
