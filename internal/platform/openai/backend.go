// Package openai adapts OpenAI-compatible chat completion APIs to the
// generation.Backend interface using structured outputs.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/phrazzld/scry-cards/internal/config"
	"github.com/phrazzld/scry-cards/internal/generation"
	"github.com/phrazzld/scry-cards/internal/redact"
)

// DefaultBaseURL is the public OpenAI API.
const DefaultBaseURL = "https://api.openai.com/v1"

const (
	// Per-call deadlines are applied by the caller; this only guards against
	// a connection that never completes.
	httpClientTimeout = 10 * time.Minute
	maxErrorBody      = 4 << 10
)

// Backend implements generation.Backend on the chat completions endpoint.
type Backend struct {
	client       *http.Client
	endpoint     string
	apiKey       string
	model        string
	outlineModel string
	temperature  float64
	logger       *slog.Logger
}

var _ generation.Backend = (*Backend)(nil)

// Option configures a Backend.
type Option func(*Backend)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(b *Backend) { b.client = c }
}

// NewBackend creates an OpenAI backend from cfg.
func NewBackend(logger *slog.Logger, cfg config.LLMConfig, opts ...Option) (*Backend, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("%w: openai API key cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	baseURL := cfg.OpenAIBaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	b := &Backend{
		client:       &http.Client{Timeout: httpClientTimeout},
		endpoint:     strings.TrimRight(baseURL, "/") + "/chat/completions",
		apiKey:       cfg.OpenAIAPIKey,
		model:        cfg.ModelName,
		outlineModel: cfg.OutlineModel(),
		temperature:  cfg.Temperature,
		logger:       logger.With("component", "openai_backend"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Name implements generation.Backend.
func (b *Backend) Name() string { return "openai" }

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature"`
	ResponseFormat responseFormat `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type responseFormat struct {
	Type       string     `json:"type"`
	JSONSchema jsonSchema `json:"json_schema"`
}

type jsonSchema struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

type chatResponse struct {
	Choices []struct {
		FinishReason string `json:"finish_reason"`
		Message      struct {
			Content string `json:"content"`
			Refusal string `json:"refusal"`
		} `json:"message"`
	} `json:"choices"`
}

type apiErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// StructuredGenerate implements generation.Backend.
func (b *Backend) StructuredGenerate(
	ctx context.Context,
	req generation.StructuredRequest,
) (json.RawMessage, error) {
	model := b.model
	if req.Purpose == generation.PurposeOutline {
		model = b.outlineModel
	}

	payload, err := json.Marshal(b.buildRequest(model, req))
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to build request: %v", generation.ErrInvalidConfig, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+b.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	b.logger.DebugContext(ctx, "Sending structured request to OpenAI",
		"model", model,
		"purpose", req.Purpose,
		"content_length", len(req.UserContent),
		"images", len(req.Images))

	resp, err := b.client.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		b.logger.ErrorContext(ctx, "OpenAI request failed", "model", model, "error", redact.Error(err))
		return nil, fmt.Errorf("%w: %s", generation.ErrTransientFailure, redact.Error(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		err := statusError(resp)
		b.logger.ErrorContext(ctx, "OpenAI returned an error status",
			"model", model,
			"status", resp.StatusCode,
			"error", err)
		return nil, err
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", generation.ErrInvalidResponse, err)
	}

	content, err := messageContent(parsed)
	if err != nil {
		b.logger.WarnContext(ctx, "OpenAI returned an unusable response",
			"model", model,
			"purpose", req.Purpose,
			"error", err)
		return nil, err
	}
	return generation.ResolveImageRefs(json.RawMessage(content), req.Images, b.logger)
}

func (b *Backend) buildRequest(model string, req generation.StructuredRequest) chatRequest {
	var messages []chatMessage
	if req.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.SystemPrompt})
	}

	if len(req.Images) == 0 {
		messages = append(messages, chatMessage{Role: "user", Content: req.UserContent})
	} else {
		parts := make([]contentPart, 0, 1+2*len(req.Images))
		for i, img := range req.Images {
			label := fmt.Sprintf("Image %d", i+1)
			if img.PageNumber != nil {
				label += fmt.Sprintf(" (page %d)", *img.PageNumber)
			}
			parts = append(parts,
				contentPart{Type: "text", Text: label + ":"},
				contentPart{Type: "image_url", ImageURL: &imageURL{URL: img.URL}})
		}
		parts = append(parts, contentPart{Type: "text", Text: req.UserContent})
		messages = append(messages, chatMessage{Role: "user", Content: parts})
	}

	name := string(req.Purpose)
	if name == "" {
		name = "response"
	}

	return chatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: b.temperature,
		ResponseFormat: responseFormat{
			Type: "json_schema",
			JSONSchema: jsonSchema{
				Name:   name,
				Strict: true,
				Schema: strictSchema(req.Schema),
			},
		},
	}
}

func messageContent(parsed chatResponse) (string, error) {
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response", generation.ErrInvalidResponse)
	}

	choice := parsed.Choices[0]
	if choice.Message.Refusal != "" {
		return "", fmt.Errorf("%w: %s", generation.ErrContentBlocked, choice.Message.Refusal)
	}
	switch choice.FinishReason {
	case "content_filter":
		return "", fmt.Errorf("%w: response removed by content filter", generation.ErrContentBlocked)
	case "length":
		return "", fmt.Errorf("%w: response truncated at the token limit", generation.ErrInvalidResponse)
	}

	content := strings.TrimSpace(choice.Message.Content)
	if content == "" {
		return "", fmt.Errorf("%w: empty message content", generation.ErrInvalidResponse)
	}
	if !json.Valid([]byte(content)) {
		return "", fmt.Errorf("%w: message content is not valid JSON", generation.ErrInvalidResponse)
	}
	return content, nil
}

// statusError maps an HTTP error status onto generation sentinels. Rate
// limits and server errors are retryable; other client errors are not.
func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	msg := strings.TrimSpace(string(body))
	var apiErr apiErrorBody
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
		msg = apiErr.Error.Message
	}
	msg = redact.String(msg)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode == http.StatusRequestTimeout,
		resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("%w: openai status %d: %s", generation.ErrTransientFailure, resp.StatusCode, msg)
	default:
		return fmt.Errorf("%w: openai status %d: %s", generation.ErrInvalidConfig, resp.StatusCode, msg)
	}
}

// strictSchema converts s into the structured outputs dialect: every object
// disallows additional properties and lists all of its properties as
// required. Numeric bounds are moved into the description.
func strictSchema(s *generation.Schema) map[string]any {
	if s == nil {
		return map[string]any{"type": "object", "additionalProperties": false, "properties": map[string]any{}, "required": []string{}}
	}

	out := map[string]any{"type": string(s.Type)}
	desc := s.Description
	if s.Minimum != nil || s.Maximum != nil {
		desc = strings.TrimSpace(desc + " " + boundsNote(s.Minimum, s.Maximum))
	}
	if desc != "" {
		out["description"] = desc
	}
	if len(s.Enum) > 0 {
		out["enum"] = s.Enum
	}
	if s.Items != nil {
		out["items"] = strictSchema(s.Items)
	}

	if s.Type == generation.TypeObject {
		props := make(map[string]any, len(s.Properties))
		required := make([]string, 0, len(s.Properties))
		for _, name := range propertyNames(s) {
			props[name] = strictSchema(s.Properties[name])
			required = append(required, name)
		}
		out["properties"] = props
		out["required"] = required
		out["additionalProperties"] = false
	}
	return out
}

// propertyNames returns the declared order followed by any remaining keys.
func propertyNames(s *generation.Schema) []string {
	names := make([]string, 0, len(s.Properties))
	seen := make(map[string]struct{}, len(s.Properties))
	for _, name := range s.PropertyOrder {
		if _, ok := s.Properties[name]; ok {
			names = append(names, name)
			seen[name] = struct{}{}
		}
	}
	for name := range s.Properties {
		if _, ok := seen[name]; !ok {
			names = append(names, name)
		}
	}
	sort.Strings(names[len(seen):])
	return names
}

func boundsNote(minimum, maximum *float64) string {
	switch {
	case minimum != nil && maximum != nil:
		return fmt.Sprintf("(between %g and %g)", *minimum, *maximum)
	case minimum != nil:
		return fmt.Sprintf("(at least %g)", *minimum)
	default:
		return fmt.Sprintf("(at most %g)", *maximum)
	}
}
