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
	CORSAllowOrigin []string
	Env             string

	DatabaseURL   string
	MongoURI      string
	MongoDatabase string
	RedisURL      string
	JobCacheTTL   time.Duration

	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string
	GCSBucket       string
	GCSPrefix       string

	LLMProvider          string
	LLMModel             string
	RecomputeLLMProvider string
	RecomputeLLMModel    string
	OpenAIAPIKey         string
	GeminiAPIKey         string

	OCRServiceURL string
	QueueURL      string

	// DocumentFetchHosts allowlists hosts for http(s) cv URLs.
	DocumentFetchHosts []string

	Pipeline Pipeline
}

// Pipeline holds the scoring pipeline tunables.
type Pipeline struct {
	ChunkSize          int           `yaml:"chunk_size"`
	ShortlistThreshold int           `yaml:"shortlist_threshold"`
	Concurrency        int           `yaml:"concurrency"`
	OracleCallTimeout  time.Duration `yaml:"oracle_call_timeout"`
	SubmissionDeadline time.Duration `yaml:"submission_deadline"`
	OCRZoom            float64       `yaml:"ocr_zoom"`
	OCRLanguages       []string      `yaml:"ocr_languages"`
}

// DefaultPipeline returns the pipeline defaults.
func DefaultPipeline() Pipeline {
	return Pipeline{
		ChunkSize:          20000,
		ShortlistThreshold: 70,
		Concurrency:        4,
		OracleCallTimeout:  60 * time.Second,
		SubmissionDeadline: 5 * time.Minute,
		OCRZoom:            2.0,
		OCRLanguages:       []string{"eng", "mon"},
	}
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")
	mongoURI := os.Getenv("MONGO_URI")

	if env == "production" && dbURL == "" && mongoURI == "" {
		log.Printf("DATABASE_URL or MONGO_URI is required in production")
	}

	pipeline := DefaultPipeline()
	if err := loadPipelineFile(getEnv("PIPELINE_CONFIG_FILE", "configs/pipeline.yaml"), &pipeline); err != nil {
		log.Printf("pipeline config: %v", err)
	}
	applyPipelineEnv(&pipeline)

	return Config{
		Port:                 getEnv("PORT", "8080"),
		CORSAllowOrigin:      splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000")),
		Env:                  env,
		DatabaseURL:          dbURL,
		MongoURI:             mongoURI,
		MongoDatabase:        getEnv("MONGO_DATABASE", "recruit"),
		RedisURL:             getEnv("REDIS_URL", ""),
		JobCacheTTL:          getEnvDuration("JOB_CACHE_TTL", 10*time.Minute),
		ObjectStoreType:      normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:        getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:            getEnv("AWS_REGION", ""),
		S3Bucket:             getEnv("S3_BUCKET", ""),
		S3Prefix:             getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:          getEnv("SSE_KMS_KEY_ID", ""),
		GCSBucket:            getEnv("GCS_BUCKET", ""),
		GCSPrefix:            getEnv("GCS_PREFIX", ""),
		LLMProvider:          normalizeProvider(getEnv("LLM_PROVIDER", "openai")),
		LLMModel:             getEnv("LLM_MODEL", ""),
		RecomputeLLMProvider: normalizeProvider(getEnv("RECOMPUTE_LLM_PROVIDER", "")),
		RecomputeLLMModel:    getEnv("RECOMPUTE_LLM_MODEL", ""),
		OpenAIAPIKey:         getEnv("OPENAI_API_KEY", ""),
		GeminiAPIKey:         getEnv("GEMINI_API_KEY", ""),
		OCRServiceURL:        getEnv("OCR_SERVICE_URL", ""),
		QueueURL:             getEnv("RECRUIT_SQS_QUEUE_URL", ""),
		DocumentFetchHosts:   splitAndTrim(getEnv("DOCUMENT_FETCH_HOSTS", "")),
		Pipeline:             pipeline,
	}
}

func applyPipelineEnv(p *Pipeline) {
	if v, ok := readEnvInt("CHUNK_SIZE"); ok && v > 0 {
		p.ChunkSize = v
	}
	if v, ok := readEnvInt("SHORTLIST_THRESHOLD"); ok {
		if v > 0 && v <= 100 {
			p.ShortlistThreshold = v
		} else {
			log.Printf("config SHORTLIST_THRESHOLD out of range 1-100: %d", v)
		}
	}
	if v, ok := readEnvInt("SCORING_CONCURRENCY"); ok && v > 0 {
		p.Concurrency = v
	}
	if raw := strings.TrimSpace(os.Getenv("ORACLE_CALL_TIMEOUT")); raw != "" {
		p.OracleCallTimeout = getEnvDuration("ORACLE_CALL_TIMEOUT", p.OracleCallTimeout)
	}
	if raw := strings.TrimSpace(os.Getenv("SUBMISSION_DEADLINE")); raw != "" {
		p.SubmissionDeadline = getEnvDuration("SUBMISSION_DEADLINE", p.SubmissionDeadline)
	}
	if raw := strings.TrimSpace(os.Getenv("OCR_ZOOM")); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil && v > 0 {
			p.OCRZoom = v
		}
	}
	if raw := strings.TrimSpace(os.Getenv("OCR_LANGUAGES")); raw != "" {
		p.OCRLanguages = splitAndTrim(strings.ReplaceAll(raw, "+", ","))
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	log.Printf("config %s invalid duration: %q", key, raw)
	return def
}

func readEnvInt(key string) (int, bool) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("config %s invalid int: %v", key, err)
		return 0, false
	}
	return v, true
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
	case "test":
		return "test"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	case "gcs", "gs":
		return "gcs"
	default:
		return "local"
	}
}

func normalizeProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "openai":
		return "openai"
	case "gemini", "google":
		return "gemini"
	case "none", "placeholder", "off":
		return "none"
	default:
		// Unknown names are kept so bootstrap can reject them.
		return strings.ToLower(strings.TrimSpace(raw))
	}
}

// IsDevLike reports whether env allows in-memory fallbacks.
func IsDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local", "test":
		return true
	default:
		return false
	}
}
