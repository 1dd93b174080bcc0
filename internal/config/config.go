package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all agent configuration.
type Config struct {
	// APIBaseURL is the remote exam backend. The original web client carried
	// this as a hardcoded constant that drifted between revisions; here it is
	// configuration and nothing else decides the host.
	APIBaseURL     string
	RequestTimeout time.Duration

	// EndsAtOffset is added to the backend's naive ends_at timestamps before
	// comparing against UTC now. The deployed backend emits local wall-clock
	// time without a zone; 5h30m matches it. Set to 0 once the backend emits
	// proper UTC.
	EndsAtOffset time.Duration

	// StoreBackend selects the session store: "file", "redis" or "memory".
	StoreBackend string
	StoreDir     string
	RedisURL     string

	// Kiosk gateway.
	GatewayPort    string
	GinMode        string
	AllowedOrigins []string
	// SupervisorPINHash is a bcrypt hash; empty disables the unlock endpoint.
	SupervisorPINHash string

	// Proctor uplink. Empty URL disables it.
	ProctorURL       string
	ProctorHeartbeat time.Duration

	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment variables with sensible defaults.
// It loads .env file if present but does not fail if missing.
func Load() *Config {
	_ = godotenv.Load() // Ignore error — .env is optional

	return &Config{
		APIBaseURL:        getEnv("API_BASE_URL", "http://localhost:8000"),
		RequestTimeout:    time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 15)) * time.Second,
		EndsAtOffset:      getEnvDuration("ENDS_AT_OFFSET", 5*time.Hour+30*time.Minute),
		StoreBackend:      getEnv("STORE_BACKEND", "file"),
		StoreDir:          getEnv("STORE_DIR", "./examdesk-state"),
		RedisURL:          getEnv("REDIS_URL", "redis://localhost:6379/0"),
		GatewayPort:       getEnv("GATEWAY_PORT", "7340"),
		GinMode:           getEnv("GIN_MODE", "debug"),
		AllowedOrigins:    parseOrigins(getEnv("ALLOWED_ORIGINS", "")),
		SupervisorPINHash: getEnv("SUPERVISOR_PIN_HASH", ""),
		ProctorURL:        getEnv("PROCTOR_WS_URL", ""),
		ProctorHeartbeat:  getEnvDuration("PROCTOR_HEARTBEAT", 30*time.Second),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "pretty"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

// parseOrigins splits a comma-separated origins string into a trimmed slice.
// Returns nil (allow-all) if the input is empty.
func parseOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
