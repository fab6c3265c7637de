package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/gogotex/gogotex/backend/go-realtime/pkg/logger"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	Keycloak  KeycloakConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	MinIO     MinIOConfig
	Migration MigrationConfig
	Cache     CacheConfig
	LogLevel  string
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// MongoDBConfig is optional: with an empty URI the service keeps snapshots in memory.
type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Addr is host:port, or empty when Redis is not configured.
func (r RedisConfig) Addr() string {
	if r.Host == "" {
		return ""
	}
	return r.Host + ":" + r.Port
}

type KeycloakConfig struct {
	URL          string
	Realm        string
	ClientID     string
	ClientSecret string
}

// IssuerURL is the realm issuer used for OIDC discovery.
func (k KeycloakConfig) IssuerURL() string {
	if k.URL == "" || k.Realm == "" {
		return ""
	}
	return k.URL + "/realms/" + k.Realm
}

type JWTConfig struct {
	Secret string
}

type RateLimitConfig struct {
	Enabled  bool
	UseRedis bool
	RPS      float64
	Burst    int
	Window   time.Duration
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

type MigrationConfig struct {
	DocConcurrency        int
	CollectionConcurrency int
	// Archive stores pre-migration document data in MinIO.
	Archive bool
}

type CacheConfig struct {
	TTL time.Duration
}

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load(".env")

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "5002")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_ENVIRONMENT", "development")
	v.SetDefault("MONGODB_DATABASE", "gogotex")
	v.SetDefault("MONGODB_TIMEOUT", 10)
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("RATE_LIMIT_ENABLED", false)
	v.SetDefault("RATE_LIMIT_RPS", 20.0)
	v.SetDefault("RATE_LIMIT_BURST", 40)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)
	v.SetDefault("MINIO_BUCKET", "gogotex-migrations")
	v.SetDefault("MIGRATION_DOC_CONCURRENCY", 8)
	v.SetDefault("MIGRATION_COLLECTION_CONCURRENCY", 2)
	v.SetDefault("MIGRATION_ARCHIVE", false)
	v.SetDefault("CACHE_TTL_SECONDS", 60)
	v.SetDefault("LOG_LEVEL", "info")

	cfg := &Config{
		Server: ServerConfig{
			Port:         v.GetString("SERVER_PORT"),
			Host:         v.GetString("SERVER_HOST"),
			Environment:  v.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		MongoDB: MongoDBConfig{
			URI:      v.GetString("MONGODB_URI"),
			Database: v.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(v.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Keycloak: KeycloakConfig{
			URL:          v.GetString("KEYCLOAK_URL"),
			Realm:        v.GetString("KEYCLOAK_REALM"),
			ClientID:     v.GetString("KEYCLOAK_CLIENT_ID"),
			ClientSecret: v.GetString("KEYCLOAK_CLIENT_SECRET"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("JWT_SECRET"),
		},
		RateLimit: RateLimitConfig{
			Enabled:  v.GetBool("RATE_LIMIT_ENABLED"),
			UseRedis: v.GetBool("RATE_LIMIT_USE_REDIS"),
			RPS:      v.GetFloat64("RATE_LIMIT_RPS"),
			Burst:    v.GetInt("RATE_LIMIT_BURST"),
			Window:   time.Duration(v.GetInt("RATE_LIMIT_WINDOW_SECONDS")) * time.Second,
		},
		MinIO: MinIOConfig{
			Endpoint:  v.GetString("MINIO_ENDPOINT"),
			AccessKey: v.GetString("MINIO_ACCESS_KEY"),
			SecretKey: v.GetString("MINIO_SECRET_KEY"),
			UseSSL:    v.GetBool("MINIO_USE_SSL"),
			Bucket:    v.GetString("MINIO_BUCKET"),
		},
		Migration: MigrationConfig{
			DocConcurrency:        v.GetInt("MIGRATION_DOC_CONCURRENCY"),
			CollectionConcurrency: v.GetInt("MIGRATION_COLLECTION_CONCURRENCY"),
			Archive:               v.GetBool("MIGRATION_ARCHIVE"),
		},
		Cache: CacheConfig{
			TTL: time.Duration(v.GetInt("CACHE_TTL_SECONDS")) * time.Second,
		},
		LogLevel: v.GetString("LOG_LEVEL"),
	}

	if cfg.Migration.DocConcurrency < 1 || cfg.Migration.CollectionConcurrency < 1 {
		return nil, fmt.Errorf("migration concurrency must be positive (docs=%d collections=%d)",
			cfg.Migration.DocConcurrency, cfg.Migration.CollectionConcurrency)
	}
	if cfg.Migration.Archive && cfg.MinIO.Endpoint == "" {
		return nil, fmt.Errorf("MIGRATION_ARCHIVE requires MINIO_ENDPOINT")
	}
	if cfg.RateLimit.UseRedis && cfg.Redis.Host == "" {
		return nil, fmt.Errorf("RATE_LIMIT_USE_REDIS requires REDIS_HOST")
	}
	if cfg.JWT.Secret == "" && cfg.Keycloak.IssuerURL() == "" {
		logger.Warnf("neither JWT_SECRET nor KEYCLOAK_URL/KEYCLOAK_REALM set; tokens are parsed without verification")
	}

	return cfg, nil
}
