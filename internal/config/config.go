package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Chat backend
	APIBaseURL     string
	HealthURL      string
	APIToken       string
	TokenFile      string
	RequestTimeout time.Duration
	// Widget presentation
	ModesFile string
	Greeting  bool
	// Web widget host
	Port           string
	AllowedOrigins []string
	// Logging
	LogLevel string
	LogFile  string
	// Warnings collects problems found while loading; the caller logs them
	// once a logger exists.
	Warnings []string
}

func Load() Config {
	_ = godotenv.Load()
	var warnings []string
	cfg := Config{
		APIBaseURL:     strings.TrimRight(getEnvDefault("CHAT_API_BASE_URL", "http://localhost:8000/api/v1"), "/"),
		HealthURL:      getEnvDefault("CHAT_API_HEALTH_URL", "http://localhost:8000/health"),
		APIToken:       os.Getenv("CHAT_API_TOKEN"),
		TokenFile:      getEnvDefault("CHAT_API_TOKEN_FILE", "data/chat_token.json"),
		RequestTimeout: getEnvDurationDefault("CHAT_REQUEST_TIMEOUT", 0, &warnings),
		ModesFile:      os.Getenv("CHAT_MODES_FILE"),
		Greeting:       getEnvBoolDefault("CHAT_GREETING", true),
		Port:           getEnvDefault("WIDGET_PORT", "8090"),
		AllowedOrigins: getEnvListDefault("ALLOWED_ORIGINS", []string{"*"}),
		LogLevel:       getEnvDefault("LOG_LEVEL", "info"),
		LogFile:        os.Getenv("LOG_FILE"),
	}
	cfg.Warnings = warnings
	return cfg
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvListDefault(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			s := strings.TrimSpace(p)
			if s != "" {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return def
}

func getEnvBoolDefault(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

// getEnvDurationDefault accepts Go durations ("30s") or bare seconds ("30").
func getEnvDurationDefault(key string, def time.Duration, warnings *[]string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil && d >= 0 {
		return d
	}
	if d, err := time.ParseDuration(v + "s"); err == nil && d >= 0 {
		return d
	}
	*warnings = append(*warnings, fmt.Sprintf("ignoring invalid %s=%q", key, v))
	return def
}
