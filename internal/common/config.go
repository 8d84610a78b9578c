package common

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Vision    VisionConfig
	Azure     AzureConfig
	OCRSpace  OCRSpaceConfig
	Tesseract TesseractConfig
	Answer    AnswerConfig
	Pipeline  PipelineConfig
	Synthetic SyntheticConfig
	Database  DatabaseConfig
	Server    ServerConfig
	Worker    WorkerConfig
	Log       LogConfig
}

// VisionConfig holds the OpenAI vision provider configuration
type VisionConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
}

// AzureConfig holds the Azure Computer Vision configuration
type AzureConfig struct {
	APIKey   string
	Endpoint string
	Timeout  time.Duration
}

// OCRSpaceConfig holds the OCR.space configuration
type OCRSpaceConfig struct {
	APIKey   string
	URL      string
	Language string
	Timeout  time.Duration
}

// TesseractConfig holds local OCR configuration
type TesseractConfig struct {
	Enabled     bool
	Engine      string // "exec" | "library"
	Binary      string
	Lang        string
	TessdataDir string
	PSM         int
}

// AnswerConfig holds the answer-service (Tavily) configuration
type AnswerConfig struct {
	APIKey      string
	URL         string
	SearchDepth string
	MaxResults  int
	Domains     []string
	Timeout     time.Duration
}

// PipelineConfig holds extraction chain tuning
type PipelineConfig struct {
	AttemptTimeout time.Duration
	MinTextLength  int
	Parallel       bool
	HEICConverter  string // magick | heif-convert | sips | none
	HEICCacheDir   string
}

// SyntheticConfig holds the simulated latency of the synthetic fallback
type SyntheticConfig struct {
	DelayMin        time.Duration
	DelayJitter     time.Duration
	LastResortDelay time.Duration
}

// DatabaseConfig holds scan-history storage configuration
type DatabaseConfig struct {
	URL             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr string
	InboxDir string
}

// WorkerConfig holds async queue configuration
type WorkerConfig struct {
	Workers        int
	QueueSize      int
	ProcessTimeout time.Duration
	Debounce       time.Duration
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string
	Format string
}

// DefaultAnswerDomains is the reference allow-list passed to the answer service.
var DefaultAnswerDomains = []string{
	"stackoverflow.com",
	"python.org",
	"javascript.info",
	"developer.mozilla.org",
	"docs.python.org",
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Vision: VisionConfig{
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			BaseURL:     getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Model:       getEnv("OPENAI_VISION_MODEL", "gpt-4o"),
			MaxTokens:   getEnvAsInt("OPENAI_MAX_TOKENS", 1000),
			Temperature: getEnvAsFloat32("OPENAI_TEMPERATURE", 0.1),
			Timeout:     getEnvAsDuration("OPENAI_TIMEOUT", 45*time.Second),
		},
		Azure: AzureConfig{
			APIKey:   getEnv("AZURE_VISION_API_KEY", ""),
			Endpoint: getEnv("AZURE_VISION_ENDPOINT", ""),
			Timeout:  getEnvAsDuration("AZURE_VISION_TIMEOUT", 30*time.Second),
		},
		OCRSpace: OCRSpaceConfig{
			APIKey:   getEnv("OCR_SPACE_API_KEY", ""),
			URL:      getEnv("OCR_SPACE_URL", "https://api.ocr.space/parse/image"),
			Language: getEnv("OCR_SPACE_LANGUAGE", "eng"),
			Timeout:  getEnvAsDuration("OCR_SPACE_TIMEOUT", 30*time.Second),
		},
		Tesseract: TesseractConfig{
			Enabled:     getEnvAsBool("TESSERACT_ENABLED", false),
			Engine:      getEnv("TESSERACT_ENGINE", "exec"),
			Binary:      getEnv("TESSERACT_BIN", "tesseract"),
			Lang:        getEnv("TESSERACT_LANG", "eng"),
			TessdataDir: getEnv("TESSDATA_PREFIX", ""),
			PSM:         getEnvAsInt("TESSERACT_PSM", 6),
		},
		Answer: AnswerConfig{
			APIKey:      getEnv("TAVILY_API_KEY", ""),
			URL:         getEnv("TAVILY_URL", "https://api.tavily.com/search"),
			SearchDepth: getEnv("TAVILY_SEARCH_DEPTH", "basic"),
			MaxResults:  getEnvAsInt("TAVILY_MAX_RESULTS", 5),
			Domains:     getEnvAsList("TAVILY_DOMAINS", DefaultAnswerDomains),
			Timeout:     getEnvAsDuration("EXPLAIN_TIMEOUT", 20*time.Second),
		},
		Pipeline: PipelineConfig{
			AttemptTimeout: getEnvAsDuration("PIPELINE_ATTEMPT_TIMEOUT", 30*time.Second),
			MinTextLength:  getEnvAsInt("PIPELINE_MIN_TEXT_LEN", 10),
			Parallel:       getEnvAsBool("PIPELINE_PARALLEL", false),
			HEICConverter:  getEnv("HEIC_CONVERTER", "magick"),
			HEICCacheDir:   getEnv("HEIC_CACHE_DIR", ""),
		},
		Synthetic: SyntheticConfig{
			DelayMin:        getEnvAsDuration("SYNTHETIC_DELAY_MIN", 1500*time.Millisecond),
			DelayJitter:     getEnvAsDuration("SYNTHETIC_DELAY_JITTER", time.Second),
			LastResortDelay: getEnvAsDuration("SYNTHETIC_LAST_RESORT_DELAY", time.Second),
		},
		Database: DatabaseConfig{
			URL:             getEnv("DB_URL", ""),
			MaxConns:        getEnvAsInt32("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt32("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
		},
		Server: ServerConfig{
			GRPCAddr: getEnv("GRPC_ADDR", ":8080"),
			InboxDir: getEnv("INBOX_DIR", ""),
		},
		Worker: WorkerConfig{
			Workers:        getEnvAsInt("WORKERS", 2),
			QueueSize:      getEnvAsInt("QUEUE_SIZE", 64),
			ProcessTimeout: getEnvAsDuration("PROCESS_TIMEOUT", 3*time.Minute),
			Debounce:       getEnvAsDuration("INBOX_DEBOUNCE", 500*time.Millisecond),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
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

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
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

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// placeholderMarkers are fragments of the sample values shipped in .env templates.
var placeholderMarkers = []string{"your_", "_here", "api_key_here", "changeme", "<", "xxx"}

// IsPlaceholder reports whether a credential is missing or still a template value
// (e.g. "your_openai_api_key_here", "YOUR_AZURE_API_KEY").
func IsPlaceholder(v string) bool {
	s := strings.ToLower(strings.TrimSpace(v))
	if s == "" {
		return true
	}
	for _, m := range placeholderMarkers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Pipeline.AttemptTimeout <= 0 {
		return NewAppError("CONFIG_ERROR", "PIPELINE_ATTEMPT_TIMEOUT must be positive", ErrInvalidInput)
	}
	if c.Pipeline.MinTextLength < 0 {
		return NewAppError("CONFIG_ERROR", "PIPELINE_MIN_TEXT_LEN must not be negative", ErrInvalidInput)
	}
	if c.Synthetic.DelayMin < 0 || c.Synthetic.DelayJitter < 0 || c.Synthetic.LastResortDelay < 0 {
		return NewAppError("CONFIG_ERROR", "synthetic delays must not be negative", ErrInvalidInput)
	}
	if !IsPlaceholder(c.Azure.APIKey) && strings.TrimSpace(c.Azure.Endpoint) == "" {
		return NewAppError("CONFIG_ERROR", "AZURE_VISION_ENDPOINT is required when AZURE_VISION_API_KEY is set", ErrInvalidInput)
	}
	switch c.Tesseract.Engine {
	case "exec", "library":
	default:
		return NewAppError("CONFIG_ERROR", "TESSERACT_ENGINE must be exec or library", ErrInvalidInput)
	}
	switch c.Pipeline.HEICConverter {
	case "magick", "heif-convert", "sips", "none":
	default:
		return NewAppError("CONFIG_ERROR", "HEIC_CONVERTER must be magick, heif-convert, sips or none", ErrInvalidInput)
	}
	if c.Worker.Workers <= 0 {
		return NewAppError("CONFIG_ERROR", "WORKERS must be positive", ErrInvalidInput)
	}
	return nil
}
