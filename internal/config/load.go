package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// defaults holds every configuration key, so that AutomaticEnv can resolve
// SCRY_ variables for all of them during Unmarshal.
var defaults = map[string]any{
	"llm.provider":             ProviderGemini,
	"llm.gemini_api_key":       "",
	"llm.openai_api_key":       "",
	"llm.openai_base_url":      "https://api.openai.com/v1",
	"llm.model_name":           "gemini-2.0-flash",
	"llm.outline_model_name":   "",
	"llm.prompt_template_path": "",
	"llm.temperature":          0.3,

	"pipeline.tier":                        TierStandard,
	"pipeline.max_concurrency":             0,
	"pipeline.max_chunk_tokens":            100_000,
	"pipeline.single_pass_threshold":       100_000,
	"pipeline.outline_max_tokens_per_pass": 80_000,
	"pipeline.overlap_tokens":              200,
	"pipeline.match_headings_only":         false,
	"pipeline.verify_facts":                false,
	"pipeline.review_threshold":            50,
	"pipeline.outline_cache_ttl":           "30m",

	"log.level":  "info",
	"log.format": "json",
}

// Load configuration from environment variables and a config.yaml in the
// working directory, if present. Environment variables take precedence over
// values from config files.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile loads configuration like Load, reading the config file at path
// instead of searching the working directory. An explicitly named file
// must exist.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	v.SetEnvPrefix("SCRY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cfg against its struct tags.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}
