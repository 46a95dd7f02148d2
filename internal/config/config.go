package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Config holds the application configuration.
type Config struct {
	ServerPort     int
	APIBaseURL     string        // Upstream REST API serving /users and /posts
	HTTPTimeout    time.Duration // Zero disables the upstream timeout
	AllowedOrigins []string
	ViewIdleTTL    time.Duration // How long a view may wait for its websocket
	SweepSchedule  string        // Cron spec for the idle view reaper
	LogLevel       string
}

// Load loads configuration from environment variables or sets defaults.
func Load() (*Config, error) {
	portStr := getEnv("PORT", "8080")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT %q: %w", portStr, err)
	}

	timeout, err := time.ParseDuration(getEnv("HTTP_TIMEOUT", "15s"))
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	if timeout < 0 {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: must not be negative")
	}

	idle, err := time.ParseDuration(getEnv("VIEW_IDLE_TTL", "2m"))
	if err != nil {
		return nil, fmt.Errorf("invalid VIEW_IDLE_TTL: %w", err)
	}

	schedule := getEnv("VIEW_SWEEP_SCHEDULE", "@every 1m")
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid VIEW_SWEEP_SCHEDULE %q: %w", schedule, err)
	}

	return &Config{
		ServerPort:     port,
		APIBaseURL:     strings.TrimRight(getEnv("API_BASE_URL", "https://jsonplaceholder.typicode.com"), "/"),
		HTTPTimeout:    timeout,
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		ViewIdleTTL:    idle,
		SweepSchedule:  schedule,
		LogLevel:       getEnv("LOG_LEVEL", "info"),
	}, nil
}

// Helper to get an environment variable with a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
