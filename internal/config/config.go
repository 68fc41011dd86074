// Package config loads function configuration from the environment and an optional YAML file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Lllllllleong/duediligenceflow/internal/pdf"
	"github.com/Lllllllleong/duediligenceflow/internal/retry"
	"github.com/spf13/viper"
)

const (
	ProviderVertex = "vertex"
	ProviderOpenAI = "openai"
)

// Config holds every setting of both functions. Keys match the environment variable names.
type Config struct {
	ProjectID         string `mapstructure:"PROJECT_ID"`
	FirestoreDatabase string `mapstructure:"FIRESTORE_DATABASE"`
	VertexAIRegion    string `mapstructure:"VERTEX_AI_REGION"`

	OCRModel            string  `mapstructure:"OCR_MODEL"`
	AnalysisProvider    string  `mapstructure:"ANALYSIS_PROVIDER"`
	AnalysisModel       string  `mapstructure:"ANALYSIS_MODEL"`
	AnalysisTemperature float32 `mapstructure:"ANALYSIS_TEMPERATURE"`
	MaxOutputTokens     int32   `mapstructure:"MAX_OUTPUT_TOKENS"`
	OpenAIAPIKey        string  `mapstructure:"OPENAI_API_KEY"`
	OpenAIModel         string  `mapstructure:"OPENAI_MODEL"`
	OpenAIBaseURL       string  `mapstructure:"OPENAI_BASE_URL"`
	PromptsFile         string  `mapstructure:"PROMPTS_FILE"`

	DocumentsCollection string `mapstructure:"DOCUMENTS_COLLECTION"`
	ReportsCollection   string `mapstructure:"REPORTS_COLLECTION"`
	UsageCollection     string `mapstructure:"USAGE_COLLECTION"`

	AuditBucket string `mapstructure:"AUDIT_BUCKET"`
	AuditPrefix string `mapstructure:"AUDIT_PREFIX"`
	AuditDir    string `mapstructure:"AUDIT_DIR"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	PagesPerChunk     int           `mapstructure:"PAGES_PER_CHUNK"`
	MaxChunksPerBatch int           `mapstructure:"MAX_CHUNKS_PER_BATCH"`
	BatchPause        time.Duration `mapstructure:"BATCH_PAUSE"`
	SizeWarningBytes  int           `mapstructure:"CHUNK_SIZE_WARNING_BYTES"`

	OCRMaxRetries          int           `mapstructure:"OCR_MAX_RETRIES"`
	OCRInitialDelay        time.Duration `mapstructure:"OCR_INITIAL_DELAY"`
	GenerationMaxRetries   int           `mapstructure:"GENERATION_MAX_RETRIES"`
	GenerationInitialDelay time.Duration `mapstructure:"GENERATION_INITIAL_DELAY"`

	ReportTTL         time.Duration `mapstructure:"REPORT_TTL"`
	DailyRequestLimit int           `mapstructure:"DAILY_REQUEST_LIMIT"`

	WorkflowID       string `mapstructure:"WORKFLOW_ID"`
	WorkflowLocation string `mapstructure:"WORKFLOW_LOCATION"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PROJECT_ID", "")
	v.SetDefault("FIRESTORE_DATABASE", "")
	v.SetDefault("VERTEX_AI_REGION", "us-central1")

	v.SetDefault("OCR_MODEL", "gemini-2.5-flash")
	v.SetDefault("ANALYSIS_PROVIDER", ProviderVertex)
	v.SetDefault("ANALYSIS_MODEL", "gemini-2.5-pro")
	v.SetDefault("ANALYSIS_TEMPERATURE", 0.2)
	v.SetDefault("MAX_OUTPUT_TOKENS", 65536)
	v.SetDefault("OPENAI_API_KEY", "")
	v.SetDefault("OPENAI_MODEL", "gpt-4o")
	v.SetDefault("OPENAI_BASE_URL", "")
	v.SetDefault("PROMPTS_FILE", "")

	v.SetDefault("DOCUMENTS_COLLECTION", "documents")
	v.SetDefault("REPORTS_COLLECTION", "due_diligence_reports")
	v.SetDefault("USAGE_COLLECTION", "report_usage")

	v.SetDefault("AUDIT_BUCKET", "")
	v.SetDefault("AUDIT_PREFIX", "audit")
	v.SetDefault("AUDIT_DIR", "")

	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("PAGES_PER_CHUNK", pdf.DefaultPagesPerChunk)
	v.SetDefault("MAX_CHUNKS_PER_BATCH", pdf.DefaultMaxChunksPerBatch)
	v.SetDefault("BATCH_PAUSE", 2*time.Second)
	v.SetDefault("CHUNK_SIZE_WARNING_BYTES", 20<<20)

	v.SetDefault("OCR_MAX_RETRIES", 2)
	v.SetDefault("OCR_INITIAL_DELAY", 2*time.Second)
	v.SetDefault("GENERATION_MAX_RETRIES", 5)
	v.SetDefault("GENERATION_INITIAL_DELAY", 30*time.Second)

	v.SetDefault("REPORT_TTL", 30*24*time.Hour)
	v.SetDefault("DAILY_REQUEST_LIMIT", 100)

	v.SetDefault("WORKFLOW_ID", "")
	v.SetDefault("WORKFLOW_LOCATION", "us-central1")
}

// Load reads defaults, then the YAML file named by CONFIG_FILE if set, then the environment.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path := v.GetString("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	cfg.AnalysisProvider = strings.ToLower(strings.TrimSpace(cfg.AnalysisProvider))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the functions cannot start with.
func (c *Config) Validate() error {
	if c.ProjectID == "" {
		return fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	switch c.AnalysisProvider {
	case ProviderVertex:
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY must be set when ANALYSIS_PROVIDER is %s", ProviderOpenAI)
		}
	default:
		return fmt.Errorf("unknown ANALYSIS_PROVIDER %q", c.AnalysisProvider)
	}
	if c.PagesPerChunk <= 0 || c.MaxChunksPerBatch <= 0 {
		return fmt.Errorf("PAGES_PER_CHUNK and MAX_CHUNKS_PER_BATCH must be positive")
	}
	if c.OCRMaxRetries < 0 || c.GenerationMaxRetries < 0 {
		return fmt.Errorf("retry counts must not be negative")
	}
	if c.ReportTTL <= 0 {
		return fmt.Errorf("REPORT_TTL must be positive")
	}
	return nil
}

func (c *Config) SplitConfig() pdf.SplitConfig {
	return pdf.SplitConfig{PagesPerChunk: c.PagesPerChunk, MaxChunksPerBatch: c.MaxChunksPerBatch}
}

func (c *Config) OCRPolicy() retry.Policy {
	p := retry.OCRPolicy()
	p.MaxRetries = c.OCRMaxRetries
	p.InitialDelay = c.OCRInitialDelay
	return p
}

func (c *Config) GenerationPolicy() retry.Policy {
	p := retry.GenerationPolicy()
	p.MaxRetries = c.GenerationMaxRetries
	p.InitialDelay = c.GenerationInitialDelay
	return p
}
