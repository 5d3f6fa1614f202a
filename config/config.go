package config

import (
	"log"
	"os"
	"strings"
	"time"
)

type Config struct {
	Port           string
	Environment    string
	AllowedOrigins []string
	Redis          RedisConfig
	Backend        BackendConfig
	TURN           TURNConfig
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Enabled reports whether a Redis presence mirror is configured.
func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

type BackendConfig struct {
	// URL is the WebSocket address of the upstream peer-connection
	// backend. Empty disables the bridge.
	URL           string
	RetryInterval time.Duration
	JWTSecret     string
}

type TURNConfig struct {
	URL        string
	Username   string
	Credential string

	// Secret switches the credential endpoint from the static triple to
	// coturn-compatible TURN REST credentials.
	Secret string
	TTL    time.Duration
}

func Load() *Config {
	// Parse allowed origins (comma-separated)
	originsStr := getEnv("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")
	origins := strings.Split(originsStr, ",")

	return &Config{
		Port:           getEnv("PORT", "3000"),
		Environment:    getEnv("ENVIRONMENT", "development"),
		AllowedOrigins: origins,
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", ""),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       0,
		},
		Backend: BackendConfig{
			URL:           getEnv("BACKEND_URL", ""),
			RetryInterval: getDuration("BACKEND_RETRY_INTERVAL", 5*time.Second),
			JWTSecret:     getEnv("BRIDGE_JWT_SECRET", ""),
		},
		TURN: TURNConfig{
			URL:        getEnv("TURN_URL", "turn:127.0.0.1:3478"),
			Username:   getEnv("TURN_USERNAME", "username1"),
			Credential: getEnv("TURN_CREDENTIAL", "key1"),
			Secret:     getEnv("TURN_SECRET", ""),
			TTL:        getDuration("TURN_TTL", 24*time.Hour),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Invalid duration for %s: %q, using %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}
