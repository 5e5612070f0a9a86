package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr              string
	DatabaseURL       string
	JWTSecret         string
	SessionKey        string
	DataEncryptionKey string
	Environment       string
	LogLevel          string
	TemplatesDir      string
	MigrationsDir     string
	SeedAdminEmail    string
	SeedAdminPassword string
	AllowSelfSignup   bool
	RunMigrations     bool
	RunSeed           bool
	MaxBodyBytes      int64
	MaxUploadBytes    int64
	RateLimitPerMin   int
	SessionTTL        time.Duration
	WizardIdleTTL     time.Duration
	MetricsEnabled    bool

	StorageBackend       string
	StoragePublicBaseURL string
	LocalStorageDir      string
	S3Bucket             string
	S3Region             string
	S3Endpoint           string
	S3AccessKeyID        string
	S3SecretAccessKey    string
	AzureAccount         string
	AzureAccountKey      string
	AzureContainer       string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RoleCacheTTL  time.Duration

	OrphanSweepSchedule string
	OrphanGracePeriod   time.Duration
	OrphanSweepDelete   bool
}

// Load reads the process environment. A .env file in the working directory,
// when present, fills in variables that are not already set.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Addr:              getEnv("APP_ADDR", ":8080"),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		SessionKey:        getEnv("SESSION_KEY", ""),
		DataEncryptionKey: getEnv("DATA_ENCRYPTION_KEY", ""),
		Environment:       getEnv("APP_ENV", "development"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		TemplatesDir:      getEnv("TEMPLATES_DIR", "web/templates"),
		MigrationsDir:     getEnv("MIGRATIONS_DIR", "migrations"),
		SeedAdminEmail:    getEnv("SEED_ADMIN_EMAIL", ""),
		SeedAdminPassword: getEnv("SEED_ADMIN_PASSWORD", ""),
		AllowSelfSignup:   getEnvBool("ALLOW_SELF_SIGNUP", false),
		RunMigrations:     getEnvBool("RUN_MIGRATIONS", true),
		RunSeed:           getEnvBool("RUN_SEED", true),
		MaxBodyBytes:      int64(getEnvInt("MAX_BODY_BYTES", 1048576)),
		MaxUploadBytes:    int64(getEnvInt("MAX_UPLOAD_BYTES", 5*1048576)),
		RateLimitPerMin:   getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		SessionTTL:        getEnvDuration("SESSION_TTL", 8*time.Hour),
		WizardIdleTTL:     getEnvDuration("WIZARD_IDLE_TTL", 30*time.Minute),
		MetricsEnabled:    getEnvBool("METRICS_ENABLED", true),

		StorageBackend:       strings.ToLower(getEnv("STORAGE_BACKEND", "local")),
		StoragePublicBaseURL: getEnv("STORAGE_PUBLIC_BASE_URL", ""),
		LocalStorageDir:      getEnv("LOCAL_STORAGE_DIR", "storage/uploads"),
		S3Bucket:             getEnv("S3_BUCKET", ""),
		S3Region:             getEnv("S3_REGION", "auto"),
		S3Endpoint:           getEnv("S3_ENDPOINT", ""),
		S3AccessKeyID:        getEnv("S3_ACCESS_KEY_ID", ""),
		S3SecretAccessKey:    getEnv("S3_SECRET_ACCESS_KEY", ""),
		AzureAccount:         getEnv("AZURE_BLOB_ACCOUNT", ""),
		AzureAccountKey:      getEnv("AZURE_BLOB_KEY", ""),
		AzureContainer:       getEnv("AZURE_BLOB_CONTAINER", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		RoleCacheTTL:  getEnvDuration("ROLE_CACHE_TTL", 5*time.Minute),

		OrphanSweepSchedule: getEnv("ORPHAN_SWEEP_SCHEDULE", "@every 1h"),
		OrphanGracePeriod:   getEnvDuration("ORPHAN_GRACE_PERIOD", 24*time.Hour),
		OrphanSweepDelete:   getEnvBool("ORPHAN_SWEEP_DELETE", false),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.IsProduction() {
		if strings.TrimSpace(c.JWTSecret) == "" {
			return fmt.Errorf("JWT_SECRET must be set to a strong value in production")
		}
		if len(c.SessionKey) < 32 {
			return fmt.Errorf("SESSION_KEY must be at least 32 bytes in production")
		}
		if c.RunSeed && strings.TrimSpace(c.SeedAdminPassword) == "" {
			return fmt.Errorf("SEED_ADMIN_PASSWORD must be set or RUN_SEED disabled in production")
		}
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.MaxUploadBytes < 1024 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be at least 1024")
	}
	if c.RateLimitPerMin <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	switch c.StorageBackend {
	case "local":
	case "s3":
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET must be set when STORAGE_BACKEND is s3")
		}
	case "azure":
		if c.AzureAccount == "" || c.AzureAccountKey == "" || c.AzureContainer == "" {
			return fmt.Errorf("AZURE_BLOB_ACCOUNT, AZURE_BLOB_KEY and AZURE_BLOB_CONTAINER must be set when STORAGE_BACKEND is azure")
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be one of local, s3, azure")
	}
	return nil
}
