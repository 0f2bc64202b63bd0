package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	// Server
	Host string
	Port int

	// Database
	DatabaseURL string

	// Auth tokens
	IngestToken         string
	ModuleCallbackToken string
	DashboardToken      string

	// Module fan-out
	ModuleHealthcheckIntervalSeconds int
	MaxBodyBytes                     int

	// Object store cleanup (TTL). Disabled and dry-run by default.
	ObjectStoreCleanupEnabled         bool
	ObjectStoreCleanupDryRun          bool
	ObjectStoreCleanupIntervalSeconds int
	ObjectStoreTTLDays                int64
	ObjectStoreTTLSecondsOverride     int64 // 0 = unset
	BatchIndexTTLDays                 int64
	BatchIndexTTLSecondsOverride      int64 // 0 = unset

	// S3-compatible object storage. Empty bucket means "use LocalStoreDir".
	S3Bucket    string
	S3Region    string
	S3Endpoint  string // for MinIO / Supabase Storage / R2 / etc.
	S3AccessKey string
	S3SecretKey string

	// Local object storage fallback
	LocalStoreDir string

	// Optional Redis-backed module-row cache for the dispatcher
	RedisURL string

	// CORS
	CORSAllowOrigins  []string
	CORSPermissiveDev bool
}

// Load reads configuration from environment variables. Every knob has a
// default; the service starts even with an empty environment and warns
// about the gaps at startup.
func Load() *Config {
	cfg := &Config{
		Host: getEnv("HOST", "0.0.0.0"),
		Port: getEnvInt("PORT", 3002),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		IngestToken:         os.Getenv("INGEST_TOKEN"),
		ModuleCallbackToken: os.Getenv("MODULE_CALLBACK_TOKEN"),
		DashboardToken:      strings.TrimSpace(os.Getenv("DASHBOARD_TOKEN")),

		ModuleHealthcheckIntervalSeconds: getEnvInt("MODULE_HEALTHCHECK_INTERVAL_SECONDS", 10),
		MaxBodyBytes:                     getEnvInt("MAX_BODY_BYTES", 10*1024*1024),

		ObjectStoreCleanupEnabled:         getEnvBool("OBJECT_STORE_CLEANUP_ENABLED", false),
		ObjectStoreCleanupDryRun:          getEnvBool("OBJECT_STORE_CLEANUP_DRY_RUN", true),
		ObjectStoreCleanupIntervalSeconds: getEnvInt("OBJECT_STORE_CLEANUP_INTERVAL_SECONDS", 3600),

		S3Bucket:    os.Getenv("S3_BUCKET"),
		S3Region:    getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:  os.Getenv("S3_ENDPOINT"),
		S3AccessKey: os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey: os.Getenv("S3_SECRET_KEY"),

		LocalStoreDir: getEnv("LOCAL_STORE_DIR", "./data/object_store"),

		RedisURL: os.Getenv("REDIS_URL"),

		CORSPermissiveDev: getEnvBool("CORS_PERMISSIVE_DEV", false),
	}

	if cfg.ModuleHealthcheckIntervalSeconds < 1 {
		cfg.ModuleHealthcheckIntervalSeconds = 1
	}

	// TTLs: days with an optional seconds override for fine-grained cleanup.
	cfg.ObjectStoreTTLDays = getEnvInt64("OBJECT_STORE_TTL_DAYS", 7)
	if cfg.ObjectStoreTTLDays < 1 {
		cfg.ObjectStoreTTLDays = 1
	}
	cfg.ObjectStoreTTLSecondsOverride = getEnvInt64("OBJECT_STORE_TTL_SECONDS", 0)

	cfg.BatchIndexTTLDays = getEnvInt64("BATCH_INDEX_TTL_DAYS", cfg.ObjectStoreTTLDays)
	if cfg.BatchIndexTTLDays < 1 {
		cfg.BatchIndexTTLDays = 1
	}
	cfg.BatchIndexTTLSecondsOverride = getEnvInt64("BATCH_INDEX_TTL_SECONDS", 0)

	for _, o := range strings.Split(os.Getenv("CORS_ALLOW_ORIGINS"), ",") {
		if trimmed := strings.TrimSpace(o); trimmed != "" {
			cfg.CORSAllowOrigins = append(cfg.CORSAllowOrigins, trimmed)
		}
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return fallback
}

// getEnvBool parses common truthy/falsy spellings case-insensitively.
func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return fallback
	}
}
