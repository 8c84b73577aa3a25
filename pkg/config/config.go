package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Reference ReferenceManagerConfig
	Uploads   UploadsConfig
	Exports   ExportsConfig
	Events    EventsConfig
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

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// ReferenceManagerConfig governs the upstream reference-data dependency:
// endpoint, per-call budget, cache TTLs per entity kind, and circuit breaker
// thresholds.
type ReferenceManagerConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
	MaxRetries     int

	AirlineTTL  time.Duration
	StationTTL  time.Duration
	AircraftTTL time.Duration
	LocalTTL    time.Duration

	BreakerFailureRatio float64
	BreakerMinRequests  int
	BreakerCooldown     time.Duration
	BreakerProbes       int
}

// UploadsConfig tunes the CSV batch-ingestion pipeline.
type UploadsConfig struct {
	Workers          int
	QueueSize        int
	ProgressInterval int
	MaxFileSizeBytes int64
}

// ExportsConfig controls schedule export storage & signed downloads.
type ExportsConfig struct {
	Enabled         bool
	StorageDir      string
	SignedURLSecret string
	SignedURLTTL    time.Duration
	Workers         int
	WorkerRetries   int
}

// EventsConfig names the Redis stream/channels used for domain events.
type EventsConfig struct {
	FlightStream     string
	ReferenceChannel string
	ProgressPrefix   string
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
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

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

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{Secret: v.GetString("JWT_SECRET")}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Reference = ReferenceManagerConfig{
		BaseURL:             v.GetString("REFERENCE_MANAGER_URL"),
		RequestTimeout:      parseDuration(v.GetString("REFERENCE_REQUEST_TIMEOUT"), 5*time.Second),
		MaxRetries:          v.GetInt("REFERENCE_MAX_RETRIES"),
		AirlineTTL:          parseDuration(v.GetString("REFERENCE_AIRLINE_TTL"), time.Hour),
		StationTTL:          parseDuration(v.GetString("REFERENCE_STATION_TTL"), 2*time.Hour),
		AircraftTTL:         parseDuration(v.GetString("REFERENCE_AIRCRAFT_TTL"), 30*time.Minute),
		LocalTTL:            parseDuration(v.GetString("REFERENCE_LOCAL_TTL"), 5*time.Minute),
		BreakerFailureRatio: v.GetFloat64("REFERENCE_BREAKER_FAILURE_RATIO"),
		BreakerMinRequests:  v.GetInt("REFERENCE_BREAKER_MIN_REQUESTS"),
		BreakerCooldown:     parseDuration(v.GetString("REFERENCE_BREAKER_COOLDOWN"), 30*time.Second),
		BreakerProbes:       v.GetInt("REFERENCE_BREAKER_PROBES"),
	}

	maxUploadSize := v.GetInt64("UPLOADS_MAX_FILE_SIZE")
	if maxUploadSize <= 0 {
		maxUploadSize = 5 * 1024 * 1024
	}
	cfg.Uploads = UploadsConfig{
		Workers:          v.GetInt("UPLOADS_WORKERS"),
		QueueSize:        v.GetInt("UPLOADS_QUEUE_SIZE"),
		ProgressInterval: v.GetInt("UPLOADS_PROGRESS_INTERVAL"),
		MaxFileSizeBytes: maxUploadSize,
	}

	cfg.Exports = ExportsConfig{
		Enabled:         v.GetBool("ENABLE_EXPORTS"),
		StorageDir:      v.GetString("EXPORTS_STORAGE_DIR"),
		SignedURLSecret: v.GetString("EXPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("EXPORTS_SIGNED_URL_TTL"), 24*time.Hour),
		Workers:         v.GetInt("EXPORTS_WORKERS"),
		WorkerRetries:   v.GetInt("EXPORTS_WORKER_RETRIES"),
	}

	cfg.Events = EventsConfig{
		FlightStream:     v.GetString("EVENTS_FLIGHT_STREAM"),
		ReferenceChannel: v.GetString("EVENTS_REFERENCE_CHANNEL"),
		ProgressPrefix:   v.GetString("EVENTS_PROGRESS_PREFIX"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8081)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "flight_ops")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("REFERENCE_MANAGER_URL", "http://localhost:8080")
	v.SetDefault("REFERENCE_REQUEST_TIMEOUT", "5s")
	v.SetDefault("REFERENCE_MAX_RETRIES", 2)
	v.SetDefault("REFERENCE_AIRLINE_TTL", "1h")
	v.SetDefault("REFERENCE_STATION_TTL", "2h")
	v.SetDefault("REFERENCE_AIRCRAFT_TTL", "30m")
	v.SetDefault("REFERENCE_LOCAL_TTL", "5m")
	v.SetDefault("REFERENCE_BREAKER_FAILURE_RATIO", 0.5)
	v.SetDefault("REFERENCE_BREAKER_MIN_REQUESTS", 5)
	v.SetDefault("REFERENCE_BREAKER_COOLDOWN", "30s")
	v.SetDefault("REFERENCE_BREAKER_PROBES", 1)

	v.SetDefault("UPLOADS_WORKERS", 2)
	v.SetDefault("UPLOADS_QUEUE_SIZE", 16)
	v.SetDefault("UPLOADS_PROGRESS_INTERVAL", 10)
	v.SetDefault("UPLOADS_MAX_FILE_SIZE", 5*1024*1024)

	v.SetDefault("ENABLE_EXPORTS", true)
	v.SetDefault("EXPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("EXPORTS_SIGNED_URL_SECRET", "dev_exports_secret")
	v.SetDefault("EXPORTS_SIGNED_URL_TTL", "24h")
	v.SetDefault("EXPORTS_WORKERS", 1)
	v.SetDefault("EXPORTS_WORKER_RETRIES", 3)

	v.SetDefault("EVENTS_FLIGHT_STREAM", "flight.events")
	v.SetDefault("EVENTS_REFERENCE_CHANNEL", "reference.events")
	v.SetDefault("EVENTS_PROGRESS_PREFIX", "uploads")
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
