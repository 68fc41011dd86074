package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PROJECT_ID", "dd-project")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "dd-project", cfg.ProjectID)
	assert.Equal(t, "us-central1", cfg.VertexAIRegion)
	assert.Equal(t, ProviderVertex, cfg.AnalysisProvider)
	assert.Equal(t, 38, cfg.PagesPerChunk)
	assert.Equal(t, 1, cfg.MaxChunksPerBatch)
	assert.Equal(t, 2*time.Second, cfg.BatchPause)
	assert.Equal(t, 720*time.Hour, cfg.ReportTTL)
	assert.Equal(t, 100, cfg.DailyRequestLimit)
	assert.Equal(t, int32(65536), cfg.MaxOutputTokens)

	ocr := cfg.OCRPolicy()
	assert.Equal(t, 2, ocr.MaxRetries)
	assert.Equal(t, 2*time.Second, ocr.InitialDelay)
	gen := cfg.GenerationPolicy()
	assert.Equal(t, 5, gen.MaxRetries)
	assert.Equal(t, 30*time.Second, gen.InitialDelay)
	assert.NotNil(t, gen.ParseHint)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("PROJECT_ID", "dd-project")
	t.Setenv("PAGES_PER_CHUNK", "10")
	t.Setenv("BATCH_PAUSE", "500ms")
	t.Setenv("ANALYSIS_PROVIDER", "OpenAI")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.SplitConfig().PagesPerChunk)
	assert.Equal(t, 500*time.Millisecond, cfg.BatchPause)
	assert.Equal(t, ProviderOpenAI, cfg.AnalysisProvider)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("PROJECT_ID: from-file\nREPORT_TTL: 24h\nREDIS_ADDR: localhost:6379\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.ProjectID)
	assert.Equal(t, 24*time.Hour, cfg.ReportTTL)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
}

func TestLoadValidation(t *testing.T) {
	t.Setenv("PROJECT_ID", "")
	_, err := Load()
	assert.ErrorContains(t, err, "PROJECT_ID")

	t.Setenv("PROJECT_ID", "dd-project")
	t.Setenv("ANALYSIS_PROVIDER", "openai")
	_, err = Load()
	assert.ErrorContains(t, err, "OPENAI_API_KEY")

	t.Setenv("ANALYSIS_PROVIDER", "anthropic")
	_, err = Load()
	assert.ErrorContains(t, err, "unknown ANALYSIS_PROVIDER")
}
