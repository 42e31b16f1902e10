package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int

	// DemoDuration is how long a newly provisioned demo account stays
	// usable before the credential gate starts rejecting it.
	DemoDuration time.Duration

	Identity    IdentityConfig
	Voice       VoiceConfig
	Enforcement EnforcementConfig
}

// IdentityConfig points at the managed identity provider used to resolve
// bearer tokens.
type IdentityConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// VoiceConfig configures the third-party voice-assistant provider client.
type VoiceConfig struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
}

// EnforcementConfig controls the per-account lock used to serialize
// auto-deletion runs. When RedisAddr is empty the lock is disabled and
// enforcement relies on the storage layer's atomic updates alone.
type EnforcementConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	LockTTL       time.Duration
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "voxlane"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "voxlane"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),

		DemoDuration: getenvDuration("DEMO_DURATION", 7*24*time.Hour),

		Identity: IdentityConfig{
			BaseURL: strings.TrimRight(getenv("IDENTITY_BASE_URL", "http://localhost:9999"), "/"),
			APIKey:  strings.TrimSpace(getenv("IDENTITY_API_KEY", "")),
			Timeout: getenvDuration("IDENTITY_TIMEOUT", 10*time.Second),
		},
		Voice: VoiceConfig{
			BaseURL:    strings.TrimRight(getenv("VOICE_API_BASE_URL", "https://api.vapi.ai"), "/"),
			APIKey:     strings.TrimSpace(getenv("VOICE_API_KEY", "")),
			Timeout:    getenvDuration("VOICE_API_TIMEOUT", 30*time.Second),
			MaxRetries: getenvInt("VOICE_API_MAX_RETRIES", 3),
		},
		Enforcement: EnforcementConfig{
			RedisAddr:     strings.TrimSpace(getenv("ENFORCEMENT_REDIS_ADDR", "")),
			RedisPassword: strings.TrimSpace(getenv("ENFORCEMENT_REDIS_PASSWORD", "")),
			RedisDB:       getenvInt("ENFORCEMENT_REDIS_DB", 0),
			LockTTL:       getenvDuration("ENFORCEMENT_LOCK_TTL", 2*time.Minute),
		},
	}
}

// Debug reports whether verbose request logging should be enabled.
func (c Config) Debug() bool {
	switch strings.ToLower(strings.TrimSpace(c.Environment)) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
