package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr                string
	ModelPath           string
	LabelsPath          string
	RuntimeLibrary      string
	ConfidenceThreshold float32
	IoUThreshold        float32
	InputSize           int
	PoolSize            int
	InferenceTimeout    time.Duration
	MaxUploadBytes      int64
	MaxPixels           int64
	StagingDir          string
	Debug               bool
}

// Load reads an optional .env file in the working directory and then the
// process environment. Unset variables fall back to defaults.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read .env: %w", err)
	}

	cfg := &Config{
		Addr:                getEnv("ADDR", "127.0.0.1:8080"),
		ModelPath:           getEnv("MODEL_PATH", filepath.Join("models", "best.onnx")),
		LabelsPath:          getEnv("LABELS_PATH", ""),
		RuntimeLibrary:      getEnv("ONNXRUNTIME_LIB", ""),
		ConfidenceThreshold: getEnvAsFloat32("CONFIDENCE_THRESHOLD", 0.25),
		IoUThreshold:        getEnvAsFloat32("IOU_THRESHOLD", 0.7),
		InputSize:           getEnvAsInt("INPUT_SIZE", 640),
		PoolSize:            getEnvAsInt("POOL_SIZE", 2),
		InferenceTimeout:    getEnvAsDuration("INFERENCE_TIMEOUT", 30*time.Second),
		MaxUploadBytes:      int64(getEnvAsInt("MAX_UPLOAD_MB", 20)) << 20,
		MaxPixels:           int64(getEnvAsInt("MAX_MEGAPIXELS", 40)) * 1_000_000,
		StagingDir:          getEnv("STAGING_DIR", os.TempDir()),
		Debug:               getEnv("DEBUG", "false") == "true",
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("CONFIDENCE_THRESHOLD must be within [0, 1], got %v", c.ConfidenceThreshold)
	}
	if c.IoUThreshold <= 0 || c.IoUThreshold > 1 {
		return fmt.Errorf("IOU_THRESHOLD must be within (0, 1], got %v", c.IoUThreshold)
	}
	if c.InputSize <= 0 || c.InputSize%32 != 0 {
		return fmt.Errorf("INPUT_SIZE must be a positive multiple of 32, got %d", c.InputSize)
	}
	if c.PoolSize <= 0 {
		return fmt.Errorf("POOL_SIZE must be positive, got %d", c.PoolSize)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_MB must be positive")
	}
	if c.MaxPixels <= 0 {
		return fmt.Errorf("MAX_MEGAPIXELS must be positive")
	}
	if c.ModelPath == "" {
		return errors.New("MODEL_PATH must be set")
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
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(f)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
