package gemini

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/phrazzld/scry-cards/internal/config"
	"github.com/phrazzld/scry-cards/internal/generation"
	"github.com/stretchr/testify/assert"
)

func TestValidateConfig(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	valid := config.LLMConfig{
		Provider:     config.ProviderGemini,
		GeminiAPIKey: "test-key",
		ModelName:    "gemini-2.0-flash",
		Temperature:  0.3,
	}

	tests := []struct {
		name    string
		mutate  func(*config.LLMConfig)
		wantErr bool
	}{
		{"valid", func(*config.LLMConfig) {}, false},
		{"missing key", func(c *config.LLMConfig) { c.GeminiAPIKey = "" }, true},
		{"missing model", func(c *config.LLMConfig) { c.ModelName = "" }, true},
		{"temperature too high", func(c *config.LLMConfig) { c.Temperature = 2.5 }, true},
		{"negative temperature", func(c *config.LLMConfig) { c.Temperature = -1 }, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := valid
			tc.mutate(&cfg)
			err := validateConfig(context.Background(), logger, cfg)
			if tc.wantErr {
				assert.ErrorIs(t, err, generation.ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewBackend_RejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := NewBackend(context.Background(), nil, config.LLMConfig{})
	assert.Error(t, err)

	_, err = NewBackend(context.Background(), logger, config.LLMConfig{ModelName: "m"})
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)
}
