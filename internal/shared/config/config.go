package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	CORSAllowOrigin []string
	DatabaseURL     string

	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string
	S3CacheDir      string
	UploadMaxBytes  int64

	JWTSecret   string
	AllowGuests bool

	OCR        OCRConfig
	Extraction ExtractionConfig
	Worker     WorkerConfig

	RabbitMQURL   string
	RabbitMQQueue string

	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	RateLimitRequests int
	RateLimitWindow   time.Duration

	LLMProvider   string
	LLMModel      string
	OpenAIBaseURL string

	LogLevel  string
	LogFile   string
	LogFormat string
}

// OCRConfig configures the ocrmypdf preprocessing step.
type OCRConfig struct {
	OCRMyPDFPath  string
	UnpaperPath   string
	TesseractPath string
	Language      string
	Force         bool
	Timeout       time.Duration
	ProbeTimeout  time.Duration
}

// ExtractionConfig configures the extraction engine and lifecycle.
type ExtractionConfig struct {
	SettingsFile string
	KeepHistory  bool
}

// WorkerConfig sizes the in-process extraction pool and the broker consumer.
type WorkerConfig struct {
	Concurrency int
	QueueSize   int
	JobTimeout  time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	return Config{
		Port:            getEnv("PORT", "8080"),
		Env:             env,
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		DatabaseURL:     dbURL,

		ObjectStoreType: normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:   getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:       getEnv("AWS_REGION", ""),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Prefix:        getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:     getEnv("SSE_KMS_KEY_ID", ""),
		S3CacheDir:      getEnv("S3_CACHE_DIR", os.TempDir()+"/docextract-cache"),
		UploadMaxBytes:  int64(getInt("UPLOAD_MAX_BYTES", 50*1000*1000)),

		JWTSecret:   getEnv("JWT_SECRET", ""),
		AllowGuests: getBool("ALLOW_GUESTS", env != "production"),

		OCR: OCRConfig{
			OCRMyPDFPath:  getEnv("OCRMYPDF_PATH", "ocrmypdf"),
			UnpaperPath:   getEnv("UNPAPER_PATH", "unpaper"),
			TesseractPath: getEnv("TESSERACT_PATH", ""),
			Language:      getEnv("OCR_LANGUAGE", "eng"),
			Force:         getBool("OCR_FORCE", false),
			Timeout:       getDuration("OCR_TIMEOUT", 10*time.Minute),
			ProbeTimeout:  getDuration("OCR_PROBE_TIMEOUT", 5*time.Second),
		},
		Extraction: ExtractionConfig{
			SettingsFile: getEnv("EXTRACT_SETTINGS_FILE", ""),
			KeepHistory:  getBool("EXTRACTION_KEEP_HISTORY", false),
		},
		Worker: WorkerConfig{
			Concurrency: getInt("WORKER_CONCURRENCY", 4),
			QueueSize:   getInt("WORKER_QUEUE_SIZE", 64),
			JobTimeout:  getDuration("WORKER_JOB_TIMEOUT", 15*time.Minute),
		},

		RabbitMQURL:   getEnv("RABBITMQ_URL", ""),
		RabbitMQQueue: getEnv("RABBITMQ_QUEUE", "document.extractions"),

		RedisAddr:         getEnv("REDIS_ADDR", ""),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisDB:           getInt("REDIS_DB", 0),
		RateLimitRequests: getInt("RATE_LIMIT_REQUESTS", 20),
		RateLimitWindow:   getDuration("RATE_LIMIT_WINDOW", 60*time.Second),

		LLMProvider:   strings.ToLower(getEnv("LLM_PROVIDER", "openai")),
		LLMModel:      getEnv("LLM_MODEL", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFile:   getEnv("LOG_FILE", ""),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("config %s invalid int %q, using %d", key, raw, def)
		return def
	}
	return val
}

func getBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseBool(raw)
	if err != nil {
		log.Printf("config %s invalid bool %q, using %t", key, raw, def)
		return def
	}
	return val
}

// getDuration accepts Go durations ("90s") and bare integers as seconds.
func getDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	val, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("config %s invalid duration %q, using %s", key, raw, def)
		return def
	}
	return val
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}
