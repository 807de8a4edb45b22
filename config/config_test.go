package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"ADDR", "MODEL_PATH", "LABELS_PATH", "ONNXRUNTIME_LIB", "CONFIDENCE_THRESHOLD",
		"IOU_THRESHOLD", "INPUT_SIZE", "POOL_SIZE", "INFERENCE_TIMEOUT", "MAX_UPLOAD_MB",
		"STAGING_DIR", "DEBUG", "MAX_MEGAPIXELS",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Addr != "127.0.0.1:8080" {
		t.Errorf("Addr = %q", cfg.Addr)
	}
	if cfg.ConfidenceThreshold != 0.25 {
		t.Errorf("ConfidenceThreshold = %v, want 0.25", cfg.ConfidenceThreshold)
	}
	if cfg.IoUThreshold != 0.7 {
		t.Errorf("IoUThreshold = %v, want 0.7", cfg.IoUThreshold)
	}
	if cfg.InputSize != 640 || cfg.PoolSize != 2 {
		t.Errorf("InputSize, PoolSize = %d, %d", cfg.InputSize, cfg.PoolSize)
	}
	if cfg.InferenceTimeout != 30*time.Second {
		t.Errorf("InferenceTimeout = %v", cfg.InferenceTimeout)
	}
	if cfg.MaxUploadBytes != 20<<20 {
		t.Errorf("MaxUploadBytes = %d", cfg.MaxUploadBytes)
	}
	if cfg.MaxPixels != 40_000_000 {
		t.Errorf("MaxPixels = %d", cfg.MaxPixels)
	}
	if !strings.HasSuffix(cfg.ModelPath, "best.onnx") {
		t.Errorf("ModelPath = %q", cfg.ModelPath)
	}
	if cfg.Debug {
		t.Error("Debug should default to false")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ADDR", ":9090")
	t.Setenv("CONFIDENCE_THRESHOLD", "0.5")
	t.Setenv("INFERENCE_TIMEOUT", "5s")
	t.Setenv("MAX_UPLOAD_MB", "2")
	t.Setenv("DEBUG", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Addr != ":9090" || cfg.ConfidenceThreshold != 0.5 || cfg.InferenceTimeout != 5*time.Second {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.MaxUploadBytes != 2<<20 {
		t.Errorf("MaxUploadBytes = %d", cfg.MaxUploadBytes)
	}
	if !cfg.Debug {
		t.Error("Debug = false, want true")
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			ModelPath:           "best.onnx",
			ConfidenceThreshold: 0.25,
			IoUThreshold:        0.7,
			InputSize:           640,
			PoolSize:            1,
			MaxUploadBytes:      1 << 20,
			MaxPixels:           1_000_000,
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"threshold above one", func(c *Config) { c.ConfidenceThreshold = 1.5 }},
		{"negative threshold", func(c *Config) { c.ConfidenceThreshold = -0.1 }},
		{"zero iou", func(c *Config) { c.IoUThreshold = 0 }},
		{"input size not multiple of 32", func(c *Config) { c.InputSize = 600 }},
		{"no pool", func(c *Config) { c.PoolSize = 0 }},
		{"no model", func(c *Config) { c.ModelPath = "" }},
		{"no pixel budget", func(c *Config) { c.MaxPixels = 0 }},
	}

	base := valid()
	if err := base.Validate(); err != nil {
		t.Fatalf("Validate() on valid config = %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			if err := c.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}
