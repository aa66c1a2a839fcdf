package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	LLM      LLMConfig      `mapstructure:"llm" validate:"required"`
	Pipeline PipelineConfig `mapstructure:"pipeline" validate:"required"`
	Log      LogConfig      `mapstructure:"log" validate:"required"`
}

// Supported language model providers.
const (
	ProviderGemini  = "gemini"
	ProviderOpenAI  = "openai"
	ProviderOffline = "offline"
)

// LLMConfig contains all LLM integration related settings.
type LLMConfig struct {
	Provider      string `mapstructure:"provider" validate:"required,oneof=gemini openai offline"`
	GeminiAPIKey  string `mapstructure:"gemini_api_key" validate:"required_if=Provider gemini"`
	OpenAIAPIKey  string `mapstructure:"openai_api_key" validate:"required_if=Provider openai"`
	OpenAIBaseURL string `mapstructure:"openai_base_url" validate:"omitempty,url"`

	// ModelName is used for flashcard generation.
	ModelName string `mapstructure:"model_name" validate:"required"`
	// OutlineModelName is used for outline extraction; empty means ModelName.
	OutlineModelName string `mapstructure:"outline_model_name"`

	PromptTemplatePath string  `mapstructure:"prompt_template_path"`
	Temperature        float64 `mapstructure:"temperature" validate:"gte=0,lte=2"`
}

// OutlineModel returns the model used for outline extraction.
func (c LLMConfig) OutlineModel() string {
	if c.OutlineModelName != "" {
		return c.OutlineModelName
	}
	return c.ModelName
}

// PipelineConfig contains chunking, concurrency, and verification settings.
type PipelineConfig struct {
	Tier string `mapstructure:"tier" validate:"required,oneof=free standard pro"`
	// MaxConcurrency overrides the tier's concurrency ceiling when positive.
	MaxConcurrency int `mapstructure:"max_concurrency" validate:"gte=0,lte=64"`

	MaxChunkTokens          int  `mapstructure:"max_chunk_tokens" validate:"required,gte=1000"`
	SinglePassThreshold     int  `mapstructure:"single_pass_threshold" validate:"required,gte=1000"`
	OutlineMaxTokensPerPass int  `mapstructure:"outline_max_tokens_per_pass" validate:"required,gte=1000"`
	OverlapTokens           int  `mapstructure:"overlap_tokens" validate:"gte=0,ltfield=MaxChunkTokens"`
	MatchHeadingsOnly       bool `mapstructure:"match_headings_only"`

	VerifyFacts     bool          `mapstructure:"verify_facts"`
	ReviewThreshold int           `mapstructure:"review_threshold" validate:"gte=0,lte=100"`
	OutlineCacheTTL time.Duration `mapstructure:"outline_cache_ttl" validate:"gte=0"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}
