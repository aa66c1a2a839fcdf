package gemini

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/scry-cards/internal/config"
	"github.com/phrazzld/scry-cards/internal/generation"
)

// validateConfig checks the settings the adapter cannot run without.
func validateConfig(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) error {
	if cfg.GeminiAPIKey == "" {
		logger.ErrorContext(ctx, "Missing Gemini API key", "error", "GeminiAPIKey is empty")
		return fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}

	if cfg.ModelName == "" {
		logger.ErrorContext(ctx, "Missing model name", "error", "ModelName is empty")
		return fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	if cfg.Temperature < 0 || cfg.Temperature > 2 {
		logger.ErrorContext(ctx, "Temperature out of range", "value", cfg.Temperature)
		return fmt.Errorf("%w: temperature must be between 0 and 2, got %v",
			generation.ErrInvalidConfig, cfg.Temperature)
	}

	logger.DebugContext(ctx, "Gemini configuration validated",
		"model", cfg.ModelName,
		"outline_model", cfg.OutlineModel())
	return nil
}
