// Package core holds configuration shared by every thumbgen component.
package core

import (
	"os"
	"strings"
	"time"
)

// Config holds all configuration values.
type Config struct {
	// Generation provider (OpenAI-compatible image API)
	OpenAIAPIKey       string
	OpenAIBaseURL      string
	OpenAIImageModel   string
	OpenAIEnhanceModel string
	ImageSize          string

	Storage StorageConfig

	// RedisURL switches the prompt cache to Redis when set.
	RedisURL string

	Tuning Tuning

	MetricsAddr string
	DevMode     bool
	LogFile     string
}

// StorageConfig selects and configures the durable storage backend.
type StorageConfig struct {
	Backend string // "s3" or "local"

	S3Bucket          string
	S3Region          string
	S3Endpoint        string // custom endpoint for MinIO/R2 style services
	S3Prefix          string
	S3PublicBaseURL   string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3UsePathStyle    bool

	LocalDir           string
	LocalPublicBaseURL string
}

// Tuning carries the concurrency caps, attempt ceilings and timeouts of the
// pipeline. It can be overridden from a YAML file (see LoadTuningFile).
type Tuning struct {
	TextUnitTimeout  time.Duration `yaml:"text_unit_timeout"`
	ImageUnitTimeout time.Duration `yaml:"image_unit_timeout"`
	// TextConcurrency of 0 means every unit of a text batch runs at once.
	TextConcurrency  int `yaml:"text_concurrency"`
	ImageConcurrency int `yaml:"image_concurrency"`

	UploadTimeout        time.Duration `yaml:"upload_timeout"`
	UploadInitialBackoff time.Duration `yaml:"upload_initial_backoff"`
	UploadSingleAttempts int           `yaml:"upload_single_attempts"`
	UploadBatchAttempts  int           `yaml:"upload_batch_attempts"`
	UploadConcurrency    int           `yaml:"upload_concurrency"`

	// BatchTimeout bounds a whole run. Zero disables the aggregate deadline.
	BatchTimeout time.Duration `yaml:"batch_timeout"`

	CacheMaxEntries int           `yaml:"cache_max_entries"`
	CacheTTL        time.Duration `yaml:"cache_ttl"`
}

// DefaultTuning returns the values the pipeline was designed around.
func DefaultTuning() Tuning {
	return Tuning{
		TextUnitTimeout:      30 * time.Second,
		ImageUnitTimeout:     60 * time.Second,
		TextConcurrency:      0,
		ImageConcurrency:     3,
		UploadTimeout:        30 * time.Second,
		UploadInitialBackoff: time.Second,
		UploadSingleAttempts: 2,
		UploadBatchAttempts:  3,
		UploadConcurrency:    3,
		CacheMaxEntries:      100,
		CacheTTL:             60 * time.Minute,
	}
}

// LoadConfig reads configuration from the environment. When
// THUMBGEN_TUNING_FILE is set its values are applied first and individual
// environment variables then take precedence over them.
func LoadConfig() (*Config, error) {
	tuning := DefaultTuning()
	if path := os.Getenv("THUMBGEN_TUNING_FILE"); path != "" {
		var err error
		if tuning, err = LoadTuningFile(path, tuning); err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		OpenAIAPIKey:       GetEnvOrDefault("OPENAI_API_KEY", os.Getenv("OPENAI_KEY")),
		OpenAIBaseURL:      GetEnvOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIImageModel:   GetEnvOrDefault("OPENAI_IMAGE_MODEL", "gpt-image-1"),
		OpenAIEnhanceModel: GetEnvOrDefault("OPENAI_ENHANCE_MODEL", "gpt-4o-mini"),
		ImageSize:          GetEnvOrDefault("IMAGE_SIZE", "1536x1024"),

		Storage: StorageConfig{
			Backend:            strings.ToLower(GetEnvOrDefault("STORAGE_BACKEND", "local")),
			S3Bucket:           os.Getenv("S3_BUCKET"),
			S3Region:           GetEnvOrDefault("S3_REGION", "us-east-1"),
			S3Endpoint:         os.Getenv("S3_ENDPOINT"),
			S3Prefix:           GetEnvOrDefault("S3_PREFIX", "ai-generated-images"),
			S3PublicBaseURL:    os.Getenv("S3_PUBLIC_BASE_URL"),
			S3AccessKeyID:      os.Getenv("S3_ACCESS_KEY_ID"),
			S3SecretAccessKey:  os.Getenv("S3_SECRET_ACCESS_KEY"),
			S3UsePathStyle:     ParseBoolEnv("S3_USE_PATH_STYLE", false),
			LocalDir:           GetEnvOrDefault("LOCAL_STORAGE_DIR", "./data/images"),
			LocalPublicBaseURL: GetEnvOrDefault("LOCAL_PUBLIC_BASE_URL", "file://"),
		},

		RedisURL:    os.Getenv("REDIS_URL"),
		MetricsAddr: os.Getenv("METRICS_ADDR"),
		DevMode:     ParseBoolEnv("DEV_MODE", false),
		LogFile:     GetEnvOrDefault("LOG_FILE", "thumbgen.log"),
	}

	tuning.TextUnitTimeout = ParseSecondsEnv("TEXT_UNIT_TIMEOUT_SECONDS", int(tuning.TextUnitTimeout/time.Second))
	tuning.ImageUnitTimeout = ParseSecondsEnv("IMAGE_UNIT_TIMEOUT_SECONDS", int(tuning.ImageUnitTimeout/time.Second))
	tuning.ImageConcurrency = ParseIntEnv("IMAGE_GEN_CONCURRENCY", tuning.ImageConcurrency)
	tuning.UploadTimeout = ParseSecondsEnv("UPLOAD_TIMEOUT_SECONDS", int(tuning.UploadTimeout/time.Second))
	tuning.UploadSingleAttempts = ParseIntEnv("UPLOAD_SINGLE_ATTEMPTS", tuning.UploadSingleAttempts)
	tuning.UploadBatchAttempts = ParseIntEnv("UPLOAD_BATCH_ATTEMPTS", tuning.UploadBatchAttempts)
	tuning.UploadConcurrency = ParseIntEnv("UPLOAD_CONCURRENCY", tuning.UploadConcurrency)
	tuning.BatchTimeout = ParseSecondsEnv("BATCH_TIMEOUT_SECONDS", int(tuning.BatchTimeout/time.Second))
	tuning.CacheMaxEntries = ParseIntEnv("PROMPT_CACHE_SIZE", tuning.CacheMaxEntries)
	tuning.CacheTTL = ParseMinutesEnv("PROMPT_CACHE_TTL_MINUTES", int(tuning.CacheTTL/time.Minute))
	cfg.Tuning = tuning

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required values and ranges.
func (c *Config) Validate() error {
	if c.OpenAIAPIKey == "" {
		return ErrMissingConfig("OPENAI_API_KEY")
	}

	switch c.Storage.Backend {
	case "s3":
		if c.Storage.S3Bucket == "" {
			return ErrMissingConfig("S3_BUCKET")
		}
	case "local":
		if c.Storage.LocalDir == "" {
			return ErrMissingConfig("LOCAL_STORAGE_DIR")
		}
	default:
		return ErrUnknownBackend(c.Storage.Backend)
	}

	return c.Tuning.Validate()
}

// Validate checks that every knob is usable.
func (t Tuning) Validate() error {
	switch {
	case t.TextUnitTimeout <= 0:
		return ErrInvalidValue("TEXT_UNIT_TIMEOUT_SECONDS", t.TextUnitTimeout, "must be positive")
	case t.ImageUnitTimeout <= 0:
		return ErrInvalidValue("IMAGE_UNIT_TIMEOUT_SECONDS", t.ImageUnitTimeout, "must be positive")
	case t.TextConcurrency < 0:
		return ErrInvalidValue("text_concurrency", t.TextConcurrency, "must be zero (uncapped) or positive")
	case t.ImageConcurrency < 1:
		return ErrInvalidValue("IMAGE_GEN_CONCURRENCY", t.ImageConcurrency, "must be at least 1")
	case t.UploadTimeout <= 0:
		return ErrInvalidValue("UPLOAD_TIMEOUT_SECONDS", t.UploadTimeout, "must be positive")
	case t.UploadInitialBackoff < 0:
		return ErrInvalidValue("upload_initial_backoff", t.UploadInitialBackoff, "must not be negative")
	case t.UploadSingleAttempts < 1:
		return ErrInvalidValue("UPLOAD_SINGLE_ATTEMPTS", t.UploadSingleAttempts, "must be at least 1")
	case t.UploadBatchAttempts < 1:
		return ErrInvalidValue("UPLOAD_BATCH_ATTEMPTS", t.UploadBatchAttempts, "must be at least 1")
	case t.UploadConcurrency < 1:
		return ErrInvalidValue("UPLOAD_CONCURRENCY", t.UploadConcurrency, "must be at least 1")
	case t.BatchTimeout < 0:
		return ErrInvalidValue("BATCH_TIMEOUT_SECONDS", t.BatchTimeout, "must not be negative")
	case t.CacheMaxEntries < 1:
		return ErrInvalidValue("PROMPT_CACHE_SIZE", t.CacheMaxEntries, "must be at least 1")
	case t.CacheTTL <= 0:
		return ErrInvalidValue("PROMPT_CACHE_TTL_MINUTES", t.CacheTTL, "must be positive")
	}
	return nil
}
