package common

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Storage  StorageConfig
	OCR      OCRConfig
	LLM      LLMConfig
	Pipeline PipelineConfig
	Stream   StreamConfig
	Queue    QueueConfig
	Log      LogConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL              string // postgres://... or sqlite://path/to/file.db
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr string
	GRPCAddr string
}

// StorageConfig configures where document locations are resolved from.
// MinIO is only used for s3:// locations and only when Endpoint is set.
type StorageConfig struct {
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioUseSSL    bool
	TempDir        string
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Enabled       bool
	TesseractLang string
	TessdataDir   string
	PageTimeout   time.Duration
	TotalTimeout  time.Duration
	MaxPages      int
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	Provider    string // openai | groq | openrouter
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// PipelineConfig holds the orchestrator's stage budgets.
type PipelineConfig struct {
	PreparationTimeout time.Duration
	AnalysisTimeout    time.Duration
	SimplifyTimeout    time.Duration
	PromptCharBudget   int
	MinTextChars       int
	EnableSimplify     bool
	RetentionDays      int
}

// StreamConfig controls the polling stream reader.
type StreamConfig struct {
	PollInterval time.Duration
	MaxDuration  time.Duration
}

// QueueConfig sizes the worker pool.
type QueueConfig struct {
	Workers    int
	Size       int
	RunTimeout time.Duration
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string // debug | info | warn | error
	Format string // text | json
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			URL:              getEnv("DB_URL", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 5),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
			GRPCAddr: getEnv("GRPC_ADDR", ":9090"),
		},
		Storage: StorageConfig{
			MinioEndpoint:  getEnv("MINIO_ENDPOINT", ""),
			MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
			MinioUseSSL:    getEnvAsBool("MINIO_USE_SSL", false),
			TempDir:        getEnv("STORAGE_TEMP_DIR", os.TempDir()),
		},
		OCR: OCRConfig{
			Enabled:       getEnvAsBool("OCR_ENABLED", true),
			TesseractLang: getEnv("TESSERACT_LANG", "eng+rus+srp+fra"),
			TessdataDir:   getEnv("TESSDATA_PREFIX", ""),
			PageTimeout:   getEnvAsDuration("OCR_PAGE_TIMEOUT", 25*time.Second),
			TotalTimeout:  getEnvAsDuration("OCR_TOTAL_TIMEOUT", 60*time.Second),
			MaxPages:      getEnvAsInt("OCR_MAX_PAGES", 0),
		},
		LLM: LLMConfig{
			Provider:    strings.ToLower(getEnv("LLM_PROVIDER", "openai")),
			Model:       getEnv("LLM_MODEL", ""),
			APIKey:      getEnv("LLM_API_KEY", ""),
			BaseURL:     getEnv("LLM_BASE_URL", ""),
			Temperature: getEnvAsFloat64("LLM_TEMPERATURE", 0.1),
			MaxTokens:   getEnvAsInt("LLM_MAX_TOKENS", 8000),
			Timeout:     getEnvAsDuration("LLM_TIMEOUT", 180*time.Second),
		},
		Pipeline: PipelineConfig{
			PreparationTimeout: getEnvAsDuration("PREPARATION_TIMEOUT", 120*time.Second),
			AnalysisTimeout:    getEnvAsDuration("ANALYSIS_TIMEOUT", 180*time.Second),
			SimplifyTimeout:    getEnvAsDuration("SIMPLIFY_TIMEOUT", 60*time.Second),
			PromptCharBudget:   getEnvAsInt("PROMPT_CHAR_BUDGET", 15000),
			MinTextChars:       getEnvAsInt("MIN_TEXT_CHARS", 100),
			EnableSimplify:     getEnvAsBool("ENABLE_SIMPLIFY", true),
			RetentionDays:      getEnvAsInt("RETENTION_DAYS", 30),
		},
		Stream: StreamConfig{
			PollInterval: getEnvAsDuration("STREAM_POLL_INTERVAL", time.Second),
			MaxDuration:  getEnvAsDuration("STREAM_MAX_DURATION", 10*time.Minute),
		},
		Queue: QueueConfig{
			Workers:    getEnvAsInt("QUEUE_WORKERS", 4),
			Size:       getEnvAsInt("QUEUE_SIZE", 256),
			RunTimeout: getEnvAsDuration("RUN_TIMEOUT", 10*time.Minute),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return NewAppError(CodeConfig, "DB_URL is required", ErrInvalidInput)
	}
	if c.LLM.APIKey == "" {
		return NewAppError(CodeConfig, "LLM_API_KEY is required", ErrInvalidInput)
	}
	switch c.LLM.Provider {
	case "openai", "groq", "openrouter":
	default:
		return NewAppError(CodeConfig, "LLM_PROVIDER must be one of openai, groq, openrouter", ErrInvalidInput)
	}
	if c.Server.HTTPAddr == "" {
		return NewAppError(CodeConfig, "HTTP_ADDR is required", ErrInvalidInput)
	}
	if c.Pipeline.PromptCharBudget <= 0 {
		return NewAppError(CodeConfig, "PROMPT_CHAR_BUDGET must be positive", ErrInvalidInput)
	}
	if c.Stream.PollInterval <= 0 || c.Stream.MaxDuration <= 0 {
		return NewAppError(CodeConfig, "STREAM_POLL_INTERVAL and STREAM_MAX_DURATION must be positive", ErrInvalidInput)
	}
	return nil
}
