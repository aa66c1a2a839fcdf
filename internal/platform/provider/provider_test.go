package provider_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/phrazzld/scry-cards/internal/config"
	"github.com/phrazzld/scry-cards/internal/generation"
	"github.com/phrazzld/scry-cards/internal/platform/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name     string
		cfg      config.LLMConfig
		wantName string
		wantErr  error
	}{
		{
			name:     "gemini",
			cfg:      config.LLMConfig{Provider: config.ProviderGemini, GeminiAPIKey: "test-key", ModelName: "gemini-2.0-flash"},
			wantName: "gemini",
		},
		{
			name:     "openai",
			cfg:      config.LLMConfig{Provider: config.ProviderOpenAI, OpenAIAPIKey: "test-key", ModelName: "gpt-4o-mini"},
			wantName: "openai",
		},
		{
			name:     "offline",
			cfg:      config.LLMConfig{Provider: config.ProviderOffline},
			wantName: "offline",
		},
		{
			name:    "gemini without key",
			cfg:     config.LLMConfig{Provider: config.ProviderGemini, ModelName: "gemini-2.0-flash"},
			wantErr: generation.ErrInvalidConfig,
		},
		{
			name:    "unknown provider",
			cfg:     config.LLMConfig{Provider: "llamafarm"},
			wantErr: generation.ErrInvalidConfig,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			backend, err := provider.New(context.Background(), tc.cfg, logger)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantName, backend.Name())
		})
	}

	_, err := provider.New(context.Background(), config.LLMConfig{Provider: config.ProviderOffline}, nil)
	assert.Error(t, err)
}
