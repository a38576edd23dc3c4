// Package config loads and validates docdigest settings.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgallion1/docdigest/internal/embed"
	"github.com/gobwas/glob"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. DOCDIGEST_TOP_K_SECTIONS.
const EnvPrefix = "DOCDIGEST"

type Config struct {
	InputFolder              string   `mapstructure:"input_folder" yaml:"input_folder"`
	InputPatterns            []string `mapstructure:"input_patterns" yaml:"input_patterns"`
	OutputFile               string   `mapstructure:"output_file" yaml:"output_file"`
	Persona                  string   `mapstructure:"persona" yaml:"persona"`
	JobToBeDone              string   `mapstructure:"job_to_be_done" yaml:"job_to_be_done"`
	EmbeddingModelName       string   `mapstructure:"embedding_model_name" yaml:"embedding_model_name"`
	TopKSections             int      `mapstructure:"top_k_sections" yaml:"top_k_sections"`
	TopKParagraphsPerSection int      `mapstructure:"top_k_paragraphs_per_section" yaml:"top_k_paragraphs_per_section"`

	Embedding EmbeddingConfig `mapstructure:"embedding" yaml:"embedding"`
	Extract   ExtractConfig   `mapstructure:"extract" yaml:"extract"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
}

type EmbeddingConfig struct {
	Provider   string `mapstructure:"provider" yaml:"provider"`
	Endpoint   string `mapstructure:"endpoint" yaml:"endpoint"`
	APIKey     string `mapstructure:"api_key" yaml:"api_key"`
	BatchSize  int    `mapstructure:"batch_size" yaml:"batch_size"`
	Dimensions int    `mapstructure:"dimensions" yaml:"dimensions"`
	CacheSize  int    `mapstructure:"cache_size" yaml:"cache_size"`
	MaxRetries int    `mapstructure:"max_retries" yaml:"max_retries"`
}

type ExtractConfig struct {
	Workers           int           `mapstructure:"workers" yaml:"workers"`
	Timeout           time.Duration `mapstructure:"timeout" yaml:"timeout"`
	PdftotextFallback bool          `mapstructure:"pdftotext_fallback" yaml:"pdftotext_fallback"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

type ServerConfig struct {
	Port           string `mapstructure:"port" yaml:"port"`
	APIKey         string `mapstructure:"api_key" yaml:"api_key"`
	MaxUploadBytes int64  `mapstructure:"max_upload_bytes" yaml:"max_upload_bytes"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		InputFolder:              "input",
		InputPatterns:            []string{"*.pdf"},
		OutputFile:               "output/challenge1b_output.json",
		Persona:                  "Travel Planner",
		JobToBeDone:              "Plan a trip of 4 days for a group of 10 college friends.",
		EmbeddingModelName:       "all-MiniLM-L6-v2",
		TopKSections:             5,
		TopKParagraphsPerSection: 1,
		Embedding: EmbeddingConfig{
			Provider:   embed.ProviderOllama,
			BatchSize:  32,
			Dimensions: 384,
			CacheSize:  10000,
			MaxRetries: embed.DefaultMaxRetries,
		},
		Extract: ExtractConfig{
			Workers:           4,
			Timeout:           2 * time.Minute,
			PdftotextFallback: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Server: ServerConfig{
			Port:           "8090",
			MaxUploadBytes: 52428800, // 50MB
		},
	}
}

// NewViper returns a viper instance with defaults and DOCDIGEST_* env
// overrides registered. Callers may bind flags on it before Load.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("input_folder", d.InputFolder)
	v.SetDefault("input_patterns", d.InputPatterns)
	v.SetDefault("output_file", d.OutputFile)
	v.SetDefault("persona", d.Persona)
	v.SetDefault("job_to_be_done", d.JobToBeDone)
	v.SetDefault("embedding_model_name", d.EmbeddingModelName)
	v.SetDefault("top_k_sections", d.TopKSections)
	v.SetDefault("top_k_paragraphs_per_section", d.TopKParagraphsPerSection)

	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.endpoint", d.Embedding.Endpoint)
	v.SetDefault("embedding.api_key", d.Embedding.APIKey)
	v.SetDefault("embedding.batch_size", d.Embedding.BatchSize)
	v.SetDefault("embedding.dimensions", d.Embedding.Dimensions)
	v.SetDefault("embedding.cache_size", d.Embedding.CacheSize)
	v.SetDefault("embedding.max_retries", d.Embedding.MaxRetries)

	v.SetDefault("extract.workers", d.Extract.Workers)
	v.SetDefault("extract.timeout", d.Extract.Timeout)
	v.SetDefault("extract.pdftotext_fallback", d.Extract.PdftotextFallback)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.api_key", d.Server.APIKey)
	v.SetDefault("server.max_upload_bytes", d.Server.MaxUploadBytes)
}

// Load reads configuration with priority flags > env > file > defaults.
// An empty file searches for docdigest.yaml in the working directory; a
// missing search result is not an error, a missing explicit file is.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("docdigest")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.InputFolder) == "" {
		errs = append(errs, errors.New("input_folder is required"))
	}
	if strings.TrimSpace(c.OutputFile) == "" {
		errs = append(errs, errors.New("output_file is required"))
	}
	if strings.TrimSpace(c.EmbeddingModelName) == "" {
		errs = append(errs, errors.New("embedding_model_name is required"))
	}
	if c.TopKSections <= 0 {
		errs = append(errs, fmt.Errorf("top_k_sections must be positive, got %d", c.TopKSections))
	}
	if c.TopKParagraphsPerSection <= 0 {
		errs = append(errs, fmt.Errorf("top_k_paragraphs_per_section must be positive, got %d", c.TopKParagraphsPerSection))
	}

	if len(c.InputPatterns) == 0 {
		errs = append(errs, errors.New("input_patterns must not be empty"))
	}
	for _, p := range c.InputPatterns {
		if _, err := glob.Compile(p); err != nil {
			errs = append(errs, fmt.Errorf("input pattern %q: %w", p, err))
		}
	}

	if !isKnownProvider(c.Embedding.Provider) {
		errs = append(errs, fmt.Errorf("embedding.provider must be one of %s, got %q",
			strings.Join(embed.Providers, ", "), c.Embedding.Provider))
	}
	if c.Embedding.BatchSize < 0 {
		errs = append(errs, errors.New("embedding.batch_size must not be negative"))
	}
	if c.Embedding.CacheSize < 0 {
		errs = append(errs, errors.New("embedding.cache_size must not be negative"))
	}
	if c.Embedding.MaxRetries < 0 {
		errs = append(errs, errors.New("embedding.max_retries must not be negative"))
	}

	if c.Extract.Workers <= 0 {
		errs = append(errs, fmt.Errorf("extract.workers must be positive, got %d", c.Extract.Workers))
	}
	if c.Extract.Timeout <= 0 {
		errs = append(errs, errors.New("extract.timeout must be positive"))
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log.format must be json or text, got %q", c.Log.Format))
	}

	if c.Server.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("server.max_upload_bytes must be positive"))
	}

	return errors.Join(errs...)
}

func isKnownProvider(name string) bool {
	for _, p := range embed.Providers {
		if strings.EqualFold(p, name) {
			return true
		}
	}
	return false
}

// SlogLevel parses the configured level name.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// EmbedConfig maps settings onto the provider factory's input.
func (c Config) EmbedConfig() embed.Config {
	return embed.Config{
		Provider:   strings.ToLower(c.Embedding.Provider),
		Model:      c.EmbeddingModelName,
		Endpoint:   c.Embedding.Endpoint,
		APIKey:     c.Embedding.APIKey,
		BatchSize:  c.Embedding.BatchSize,
		Dimensions: c.Embedding.Dimensions,
		CacheSize:  c.Embedding.CacheSize,
		MaxRetries: c.Embedding.MaxRetries,
	}
}
