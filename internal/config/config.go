package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort      string
	APIBaseURL      string
	DatabaseURL     string
	ReportsDir      string
	TemplateDir     string
	HTTPTimeout     time.Duration
	PredictDebounce time.Duration
	LogLevel        string
	LogFormat       string
}

// Load reads the optional .env file in the working directory and then the
// process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return FromEnv()
}

func FromEnv() (*Config, error) {
	timeout, err := getDuration("HTTP_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	debounce, err := getDuration("PREDICT_DEBOUNCE", 500*time.Millisecond)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ServerPort:      getEnv("SERVER_PORT", "8080"),
		APIBaseURL:      strings.TrimRight(getEnv("API_BASE_URL", "http://localhost:8000/api"), "/"),
		DatabaseURL:     getEnv("DATABASE_URL", "./budgetbuddy.db"),
		ReportsDir:      getEnv("REPORTS_DIR", "./reports"),
		TemplateDir:     getEnv("TEMPLATE_DIR", "web/templates"),
		HTTPTimeout:     timeout,
		PredictDebounce: debounce,
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "json"),
	}
	if cfg.APIBaseURL == "" {
		return nil, fmt.Errorf("API_BASE_URL is empty")
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d, nil
}
