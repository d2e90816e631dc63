package config

import (
	"errors"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var ErrMissingRequired = errors.New("missing required configuration")

type Config struct {
	DBHost string `envconfig:"DB_HOST" default:"postgres"`
	DBPort int    `envconfig:"DB_PORT" default:"5432"`
	DBUser string `envconfig:"DB_USER" default:"doublespeak"`
	DBPass string `envconfig:"DB_PASS" default:"password"`
	DBName string `envconfig:"DB_NAME" default:"doublespeak"`

	NSQLookupd string `envconfig:"NSQ_LOOKUPD" default:"nsqlookupd:4161"`
	NSQDHost   string `envconfig:"NSQD_HOST" default:"nsqd:4150"`
	NSQDHTTP   string `envconfig:"NSQD_HTTP" default:"nsqd:4151"`

	EnableAPI           bool   `envconfig:"ENABLE_API" default:"true"`
	EnableIngestWorkers bool   `envconfig:"ENABLE_INGEST_WORKERS" default:"true"`
	MigrationPath       string `envconfig:"MIGRATION_PATH" default:"file://migrations"`

	// Embedder
	GeminiAPIKey string `envconfig:"GEMINI_API_KEY"`
	EmbedModel   string `envconfig:"EMBED_MODEL" default:"gemini-embedding-001"`
	EmbedDim     int    `envconfig:"EMBED_DIM" default:"768"`

	// NLI scorer. The accelerated bundle dir is probed once at startup; when
	// it is unusable the scorer falls back to the hosted reference model.
	NLIBundleDir     string `envconfig:"NLI_BUNDLE_DIR" default:"models/nli_onnx"`
	NLIRuntimeURL    string `envconfig:"NLI_RUNTIME_URL" default:"http://localhost:8501"`
	NLIModel         string `envconfig:"NLI_MODEL" default:"cross-encoder/nli-deberta-v3-xsmall"`
	NLIInferenceURL  string `envconfig:"NLI_INFERENCE_URL" default:"https://api-inference.huggingface.co"`
	NLIAPIKey        string `envconfig:"NLI_API_KEY"`
	NLIPreferBundled bool   `envconfig:"NLI_PREFER_BUNDLED" default:"true"`

	// Ranking
	CandidateLimit int `envconfig:"CANDIDATE_LIMIT" default:"25"`
	DefaultTopK    int `envconfig:"DEFAULT_TOP_K" default:"5"`

	// Scraper politeness
	ScraperUserAgent string  `envconfig:"SCRAPER_USER_AGENT" default:"doublespeak-scraper/1.0"`
	ScraperRPS       float64 `envconfig:"SCRAPER_RPS" default:"1"`
	ScraperBurst     int     `envconfig:"SCRAPER_BURST" default:"2"`
	ScraperCacheTTL  int     `envconfig:"SCRAPER_CACHE_TTL_SECONDS" default:"900"`

	// Media tooling
	FFmpegBinary   string `envconfig:"FFMPEG_BINARY" default:"ffmpeg"`
	FFprobeBinary  string `envconfig:"FFPROBE_BINARY" default:"ffprobe"`
	WhisperXBinary string `envconfig:"WHISPERX_BINARY" default:"whisperx"`
	ClipDir        string `envconfig:"CLIP_DIR" default:"data/clips"`
	TranscriptDir  string `envconfig:"TRANSCRIPT_DIR" default:"data/transcripts"`

	// Server
	ServerPort   int    `envconfig:"SERVER_PORT" default:"8081"`
	QueryLogPath string `envconfig:"QUERY_LOG_PATH" default:"data/logs/query.log"`
	UploadDir    string `envconfig:"UPLOAD_DIR" default:"./uploads"`

	// Resilience
	BootstrapRetryAttempts     int `envconfig:"BOOTSTRAP_RETRY_ATTEMPTS" default:"10"`
	BootstrapRetryDelaySeconds int `envconfig:"BOOTSTRAP_RETRY_DELAY_SECONDS" default:"2"`
}

func Load() (*Config, error) {
	// Env vars may be set in the shell; a missing .env is not an error.
	_ = godotenv.Load(".env")

	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DBHost == "" {
		return fmt.Errorf("%w: DB_HOST", ErrMissingRequired)
	}
	if c.DBUser == "" {
		return fmt.Errorf("%w: DB_USER", ErrMissingRequired)
	}
	if c.DBName == "" {
		return fmt.Errorf("%w: DB_NAME", ErrMissingRequired)
	}
	if c.EmbedDim <= 0 {
		return fmt.Errorf("%w: EMBED_DIM must be positive", ErrMissingRequired)
	}
	if c.CandidateLimit <= 0 {
		return fmt.Errorf("%w: CANDIDATE_LIMIT must be positive", ErrMissingRequired)
	}
	return nil
}

// NSQ topics used by the ingestion pipeline.
const (
	TopicIngestSegment = "ingest.segment"
	TopicScrapeResult  = "scrape.result"
)
