package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Store backends selectable through STORE_BACKEND.
const (
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
)

type Config struct {
	Env          string
	Port         int
	APIPrefix    string
	StoreBackend string
	EnableCache  bool

	Database  DatabaseConfig
	Mongo     MongoConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Roadworks RoadworksConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

// MongoConfig points at the document store used when STORE_BACKEND=mongo.
type MongoConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
	Issuer string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// RoadworksConfig tunes closure processing, the public search cache and invalidation workers.
type RoadworksConfig struct {
	OverlapToleranceKm  float64
	CachePrefix         string
	PublicCacheTTL      time.Duration
	PublicLimit         int
	InvalidationWorkers int
	InvalidationTimeout time.Duration
	InvalidationBuffer  int
	InvalidationRetries int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")
	cfg.StoreBackend = strings.ToLower(strings.TrimSpace(v.GetString("STORE_BACKEND")))
	if cfg.StoreBackend != StoreMongo {
		cfg.StoreBackend = StorePostgres
	}
	cfg.EnableCache = v.GetBool("ENABLE_CACHE")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Mongo = MongoConfig{
		URI:      v.GetString("MONGO_URI"),
		Database: v.GetString("MONGO_DATABASE"),
		Timeout:  parseDuration(v.GetString("MONGO_TIMEOUT"), 10*time.Second),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{Secret: v.GetString("JWT_SECRET"), Issuer: strings.TrimSpace(v.GetString("JWT_ISSUER"))}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	publicLimit := v.GetInt("ROADWORKS_PUBLIC_LIMIT")
	if publicLimit <= 0 {
		publicLimit = 50
	}
	if publicLimit > 100 {
		publicLimit = 100
	}
	tolerance := v.GetFloat64("ROADWORKS_OVERLAP_TOLERANCE_KM")
	if tolerance <= 0 {
		tolerance = 0.5
	}
	cfg.Roadworks = RoadworksConfig{
		OverlapToleranceKm:  tolerance,
		CachePrefix:         v.GetString("ROADWORKS_CACHE_PREFIX"),
		PublicCacheTTL:      parseDuration(v.GetString("ROADWORKS_PUBLIC_CACHE_TTL"), 5*time.Minute),
		PublicLimit:         publicLimit,
		InvalidationWorkers: v.GetInt("CACHE_INVALIDATION_WORKERS"),
		InvalidationTimeout: parseDuration(v.GetString("CACHE_INVALIDATION_TIMEOUT"), 5*time.Second),
		InvalidationBuffer:  v.GetInt("CACHE_INVALIDATION_BUFFER"),
		InvalidationRetries: v.GetInt("CACHE_INVALIDATION_RETRIES"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")
	v.SetDefault("STORE_BACKEND", StorePostgres)
	v.SetDefault("ENABLE_CACHE", true)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "roadworks")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DATABASE", "roadworks")
	v.SetDefault("MONGO_TIMEOUT", "10s")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ROADWORKS_OVERLAP_TOLERANCE_KM", 0.5)
	v.SetDefault("ROADWORKS_CACHE_PREFIX", "chatbot-roadworks")
	v.SetDefault("ROADWORKS_PUBLIC_CACHE_TTL", "5m")
	v.SetDefault("ROADWORKS_PUBLIC_LIMIT", 50)
	v.SetDefault("CACHE_INVALIDATION_WORKERS", 1)
	v.SetDefault("CACHE_INVALIDATION_TIMEOUT", "5s")
	v.SetDefault("CACHE_INVALIDATION_BUFFER", 64)
	v.SetDefault("CACHE_INVALIDATION_RETRIES", 1)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
