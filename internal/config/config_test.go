package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(NewViper(), "")
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
	assert.Equal(t, "input", cfg.InputFolder)
	assert.Equal(t, "output/challenge1b_output.json", cfg.OutputFile)
	assert.Equal(t, 5, cfg.TopKSections)
	assert.Equal(t, 1, cfg.TopKParagraphsPerSection)
	assert.Equal(t, 2*time.Minute, cfg.Extract.Timeout)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DOCDIGEST_PERSONA", "Food Critic")
	t.Setenv("DOCDIGEST_TOP_K_SECTIONS", "3")
	t.Setenv("DOCDIGEST_EMBEDDING_PROVIDER", "hash")
	t.Setenv("DOCDIGEST_EXTRACT_TIMEOUT", "45s")
	t.Setenv("DOCDIGEST_INPUT_PATTERNS", "*.pdf,*.docx")

	cfg, err := Load(NewViper(), "")
	require.NoError(t, err)
	assert.Equal(t, "Food Critic", cfg.Persona)
	assert.Equal(t, 3, cfg.TopKSections)
	assert.Equal(t, "hash", cfg.Embedding.Provider)
	assert.Equal(t, 45*time.Second, cfg.Extract.Timeout)
	assert.Equal(t, []string{"*.pdf", "*.docx"}, cfg.InputPatterns)
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	yaml := `input_folder: docs
top_k_paragraphs_per_section: 2
embedding:
  provider: tfidf
  batch_size: 8
log:
  level: debug
  format: text
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	t.Setenv("DOCDIGEST_EMBEDDING_BATCH_SIZE", "16")

	cfg, err := Load(NewViper(), path)
	require.NoError(t, err)
	assert.Equal(t, "docs", cfg.InputFolder)
	assert.Equal(t, 2, cfg.TopKParagraphsPerSection)
	assert.Equal(t, "tfidf", cfg.Embedding.Provider)
	assert.Equal(t, 16, cfg.Embedding.BatchSize, "env wins over file")
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "Travel Planner", cfg.Persona, "unset keys keep defaults")
}

func TestLoad_SearchesWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "docdigest.yaml"), []byte("persona: Researcher\n"), 0o644))
	t.Chdir(dir)

	cfg, err := Load(NewViper(), "")
	require.NoError(t, err)
	assert.Equal(t, "Researcher", cfg.Persona)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(NewViper(), filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoad_InvalidValueFails(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DOCDIGEST_TOP_K_SECTIONS", "0")

	_, err := Load(NewViper(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "top_k_sections")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"empty input folder", func(c *Config) { c.InputFolder = " " }, "input_folder"},
		{"empty output", func(c *Config) { c.OutputFile = "" }, "output_file"},
		{"empty model", func(c *Config) { c.EmbeddingModelName = "" }, "embedding_model_name"},
		{"zero paragraphs", func(c *Config) { c.TopKParagraphsPerSection = 0 }, "top_k_paragraphs_per_section"},
		{"unknown provider", func(c *Config) { c.Embedding.Provider = "bert" }, "embedding.provider"},
		{"provider case-insensitive", func(c *Config) { c.Embedding.Provider = "OpenAI" }, ""},
		{"bad pattern", func(c *Config) { c.InputPatterns = []string{"[a-"} }, "input pattern"},
		{"no patterns", func(c *Config) { c.InputPatterns = nil }, "input_patterns"},
		{"zero workers", func(c *Config) { c.Extract.Workers = 0 }, "extract.workers"},
		{"zero timeout", func(c *Config) { c.Extract.Timeout = 0 }, "extract.timeout"},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"negative cache", func(c *Config) { c.Embedding.CacheSize = -1 }, "cache_size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEmbedConfig(t *testing.T) {
	cfg := Default()
	cfg.Embedding.Provider = "OpenAI"
	cfg.Embedding.Endpoint = "http://localhost:1234/v1"

	ec := cfg.EmbedConfig()
	assert.Equal(t, "openai", ec.Provider)
	assert.Equal(t, "all-MiniLM-L6-v2", ec.Model)
	assert.Equal(t, "http://localhost:1234/v1", ec.Endpoint)
	assert.Equal(t, 32, ec.BatchSize)
	assert.Equal(t, 10000, ec.CacheSize)
}
