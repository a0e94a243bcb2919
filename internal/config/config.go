// Package config loads process configuration from the environment. API keys
// and model handles live here and are injected into the components that talk
// to the network; the analysis core never sees them.
package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Gemini  GeminiConfig
	OCR     OCRConfig
	Raster  RasterConfig
	RunDB   RunDBConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port int
}

// StorageConfig selects the blob store backing uploaded statements and
// produced CSVs. When Bucket is set, Google Cloud Storage is used; otherwise
// files land under BaseDir on the local filesystem.
type StorageConfig struct {
	Bucket  string
	BaseDir string
}

type GeminiConfig struct {
	APIKey       string
	Model        string
	MaxAttempts  int
	RequestDelay time.Duration
}

type OCRConfig struct {
	APIKey       string
	Endpoint     string
	MaxAttempts  int
	RequestDelay time.Duration
}

type RasterConfig struct {
	MinDPI    int
	MaxPixels int
}

// RunDBConfig points at the BigQuery dataset recording documents and
// processing runs. Empty ProjectID disables persistence (runs are kept
// in memory only).
type RunDBConfig struct {
	ProjectID string
	Dataset   string
}

type LogConfig struct {
	Level string
}

// Load reads configuration from the environment, consulting a .env file
// when one is present.
func Load() (*Config, error) {
	// Missing .env is fine; explicit environment always wins.
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Storage: StorageConfig{
			Bucket:  getEnv("STORAGE_BUCKET", ""),
			BaseDir: getEnv("STORAGE_DIR", "data"),
		},
		Gemini: GeminiConfig{
			APIKey:       getEnv("GEMINI_API_KEY", ""),
			Model:        getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			MaxAttempts:  getEnvAsInt("GEMINI_MAX_ATTEMPTS", 3),
			RequestDelay: getEnvAsDuration("GEMINI_REQUEST_DELAY", time.Second),
		},
		OCR: OCRConfig{
			APIKey:       getEnv("NVIDIA_API_KEY", ""),
			Endpoint:     getEnv("NVIDIA_ENDPOINT", "https://integrate.api.nvidia.com/v1/chat/completions"),
			MaxAttempts:  getEnvAsInt("NVIDIA_MAX_ATTEMPTS", 3),
			RequestDelay: getEnvAsDuration("NVIDIA_REQUEST_DELAY", 2*time.Second),
		},
		Raster: RasterConfig{
			MinDPI:    getEnvAsInt("RASTER_MIN_DPI", 216),
			MaxPixels: getEnvAsInt("RASTER_MAX_PIXELS", 1_800_000),
		},
		RunDB: RunDBConfig{
			ProjectID: getEnv("BIGQUERY_PROJECT", ""),
			Dataset:   getEnv("BIGQUERY_DATASET", "statements"),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	return cfg, nil
}

// RequirePipeline verifies the keys needed to run the full PDF pipeline.
// Analysis-only commands work without them.
func (c *Config) RequirePipeline() error {
	if c.Gemini.APIKey == "" {
		return errors.New("GEMINI_API_KEY is required")
	}
	if c.OCR.APIKey == "" {
		return errors.New("NVIDIA_API_KEY is required")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}
