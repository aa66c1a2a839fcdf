// Package provider selects the language model backend named in configuration.
package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/scry-cards/internal/config"
	"github.com/phrazzld/scry-cards/internal/generation"
	"github.com/phrazzld/scry-cards/internal/platform/gemini"
	"github.com/phrazzld/scry-cards/internal/platform/offline"
	"github.com/phrazzld/scry-cards/internal/platform/openai"
)

// New returns the backend for cfg.Provider. Each backend routes outline
// requests to cfg.OutlineModel() and flashcard requests to cfg.ModelName.
func New(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (generation.Backend, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	switch cfg.Provider {
	case config.ProviderGemini:
		return gemini.NewBackend(ctx, logger, cfg)
	case config.ProviderOpenAI:
		return openai.NewBackend(logger, cfg)
	case config.ProviderOffline:
		logger.WarnContext(ctx, "Using offline backend; cards are extracted heuristically without a language model")
		return offline.New(logger), nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", generation.ErrInvalidConfig, cfg.Provider)
	}
}
