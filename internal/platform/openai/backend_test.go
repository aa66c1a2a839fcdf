package openai

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/phrazzld/scry-cards/internal/config"
	"github.com/phrazzld/scry-cards/internal/domain"
	"github.com/phrazzld/scry-cards/internal/generation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func completion(content string) string {
	body, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{{
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	})
	return string(body)
}

func newTestBackend(t *testing.T, handler http.HandlerFunc) *Backend {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	b, err := NewBackend(testLogger(), config.LLMConfig{
		OpenAIAPIKey:     "sk-test1234567890abcdef",
		OpenAIBaseURL:    srv.URL + "/v1/",
		ModelName:        "card-model",
		OutlineModelName: "outline-model",
		Temperature:      0.2,
	}, WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return b
}

func TestNewBackend_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewBackend(nil, config.LLMConfig{OpenAIAPIKey: "k", ModelName: "m"})
	assert.Error(t, err)

	_, err = NewBackend(testLogger(), config.LLMConfig{ModelName: "m"})
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)

	_, err = NewBackend(testLogger(), config.LLMConfig{OpenAIAPIKey: "k"})
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)

	b, err := NewBackend(testLogger(), config.LLMConfig{OpenAIAPIKey: "k", ModelName: "m"})
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL+"/chat/completions", b.endpoint)
	assert.Equal(t, "openai", b.Name())
}

func TestStructuredGenerate_Request(t *testing.T) {
	t.Parallel()

	var got map[string]any
	b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test1234567890abcdef", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, completion(`{"cards":[{"question":"Q","answer":"A","cardType":"qa","imageRef":2}]}`))
	})

	raw, err := b.StructuredGenerate(context.Background(), generation.StructuredRequest{
		Purpose:      generation.PurposeFlashcards,
		SystemPrompt: "system",
		UserContent:  "content",
		Schema:       generation.FlashcardSchema([]domain.CardType{domain.CardTypeQA}, false, 2),
		Images: []domain.ImageRef{
			{URL: "https://example.com/a.png"},
			{URL: "https://example.com/b.png"},
		},
	})
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"cards":[{"question":"Q","answer":"A","cardType":"qa","imageUrl":"https://example.com/b.png"}]}`,
		string(raw))

	assert.Equal(t, "card-model", got["model"])
	assert.InDelta(t, 0.2, got["temperature"], 1e-9)

	messages := got["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	userParts := messages[1].(map[string]any)["content"].([]any)
	require.Len(t, userParts, 5)
	assert.Equal(t, "image_url", userParts[1].(map[string]any)["type"])
	assert.Equal(t, "content", userParts[4].(map[string]any)["text"])

	format := got["response_format"].(map[string]any)
	assert.Equal(t, "json_schema", format["type"])
	js := format["json_schema"].(map[string]any)
	assert.Equal(t, true, js["strict"])
	assert.Equal(t, "flashcards", js["name"])

	card := js["schema"].(map[string]any)["properties"].(map[string]any)["cards"].(map[string]any)["items"].(map[string]any)
	assert.Equal(t, false, card["additionalProperties"])
	assert.Equal(t,
		[]any{"question", "answer", "cardType", "sourceExcerpt", "imageRef"},
		card["required"], "strict mode requires every property")
	imageRef := card["properties"].(map[string]any)["imageRef"].(map[string]any)
	assert.NotContains(t, imageRef, "maximum")
	assert.Contains(t, imageRef["description"], "between 0 and 2")
}

func TestStructuredGenerate_OutlineUsesPlainUserMessage(t *testing.T) {
	t.Parallel()

	var got map[string]any
	b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, completion(`{"topics":[]}`))
	})

	_, err := b.StructuredGenerate(context.Background(), generation.StructuredRequest{
		Purpose:     generation.PurposeOutline,
		UserContent: "content",
		Schema:      generation.OutlineSchema(),
	})
	require.NoError(t, err)
	assert.Equal(t, "outline-model", got["model"])

	messages := got["messages"].([]any)
	require.Len(t, messages, 1)
	assert.Equal(t, "content", messages[0].(map[string]any)["content"])
}

func TestStructuredGenerate_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"slow down"}}`, generation.ErrTransientFailure},
		{"server error", http.StatusBadGateway, `bad gateway`, generation.ErrTransientFailure},
		{"unauthorised", http.StatusUnauthorized, `{"error":{"message":"bad key"}}`, generation.ErrInvalidConfig},
		{"bad request", http.StatusBadRequest, `{"error":{"message":"invalid schema"}}`, generation.ErrInvalidConfig},
		{"no choices", http.StatusOK, `{"choices":[]}`, generation.ErrInvalidResponse},
		{"not JSON envelope", http.StatusOK, `<html>`, generation.ErrInvalidResponse},
		{"not JSON content", http.StatusOK, completion("Sure! Here are cards"), generation.ErrInvalidResponse},
		{"empty content", http.StatusOK, completion(""), generation.ErrInvalidResponse},
		{
			"refusal", http.StatusOK,
			`{"choices":[{"finish_reason":"stop","message":{"refusal":"I can't help with that"}}]}`,
			generation.ErrContentBlocked,
		},
		{
			"content filter", http.StatusOK,
			`{"choices":[{"finish_reason":"content_filter","message":{"content":""}}]}`,
			generation.ErrContentBlocked,
		},
		{
			"truncated", http.StatusOK,
			`{"choices":[{"finish_reason":"length","message":{"content":"{\"cards\":["}}]}`,
			generation.ErrInvalidResponse,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			})
			_, err := b.StructuredGenerate(context.Background(), generation.StructuredRequest{
				Purpose:     generation.PurposeFlashcards,
				UserContent: "content",
			})
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestStructuredGenerate_ErrorBodyRedacted(t *testing.T) {
	t.Parallel()

	b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"Incorrect API key provided: sk-abcdefghijklmnop1234"}}`)
	})

	_, err := b.StructuredGenerate(context.Background(), generation.StructuredRequest{UserContent: "content"})
	require.Error(t, err)
	assert.False(t, strings.Contains(err.Error(), "sk-abcdefghijklmnop1234"))
}

func TestStructuredGenerate_Cancelled(t *testing.T) {
	t.Parallel()

	b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := b.StructuredGenerate(ctx, generation.StructuredRequest{UserContent: "content"})
	assert.ErrorIs(t, err, context.Canceled)
}
