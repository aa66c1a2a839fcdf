package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/url"
	"path"
	"strings"

	"github.com/phrazzld/scry-cards/internal/config"
	"github.com/phrazzld/scry-cards/internal/generation"
	"github.com/phrazzld/scry-cards/internal/redact"
	"google.golang.org/genai"
)

const defaultImageMIMEType = "image/jpeg"

// contentGenerator is the subset of *genai.Models used by the adapter.
type contentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// Backend implements generation.Backend on the Gemini API.
type Backend struct {
	models       contentGenerator
	model        string
	outlineModel string
	temperature  float32
	logger       *slog.Logger
}

var _ generation.Backend = (*Backend)(nil)

// NewBackend creates a Gemini backend from cfg.
func NewBackend(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*Backend, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if err := validateConfig(ctx, logger, cfg); err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v",
			generation.ErrInvalidConfig, redact.Error(err))
	}

	return newBackend(client.Models, logger, cfg), nil
}

func newBackend(models contentGenerator, logger *slog.Logger, cfg config.LLMConfig) *Backend {
	return &Backend{
		models:       models,
		model:        cfg.ModelName,
		outlineModel: cfg.OutlineModel(),
		temperature:  float32(cfg.Temperature),
		logger:       logger.With("component", "gemini_backend"),
	}
}

// Name implements generation.Backend.
func (b *Backend) Name() string { return "gemini" }

// StructuredGenerate implements generation.Backend.
func (b *Backend) StructuredGenerate(
	ctx context.Context,
	req generation.StructuredRequest,
) (json.RawMessage, error) {
	model := b.model
	if req.Purpose == generation.PurposeOutline {
		model = b.outlineModel
	}

	temperature := b.temperature
	genConfig := &genai.GenerateContentConfig{
		Temperature:      &temperature,
		ResponseMIMEType: "application/json",
		ResponseSchema:   toGenAISchema(req.Schema),
	}
	if req.SystemPrompt != "" {
		genConfig.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}

	contents := []*genai.Content{genai.NewContentFromParts(buildParts(req), genai.RoleUser)}

	b.logger.DebugContext(ctx, "Sending structured request to Gemini",
		"model", model,
		"purpose", req.Purpose,
		"content_length", len(req.UserContent),
		"images", len(req.Images))

	resp, err := b.models.GenerateContent(ctx, model, contents, genConfig)
	if err != nil {
		err = classifyError(err)
		b.logger.ErrorContext(ctx, "Gemini request failed",
			"model", model,
			"purpose", req.Purpose,
			"error", redact.Error(err))
		return nil, err
	}

	text, err := responseText(resp)
	if err != nil {
		b.logger.WarnContext(ctx, "Gemini returned an unusable response",
			"model", model,
			"purpose", req.Purpose,
			"error", err)
		return nil, err
	}

	raw := json.RawMessage(text)
	if !json.Valid(raw) {
		return nil, fmt.Errorf("%w: response is not valid JSON", generation.ErrInvalidResponse)
	}
	return generation.ResolveImageRefs(raw, req.Images, b.logger)
}

// buildParts places each image after a numbered label so the model can
// refer to it by its 1-based position.
func buildParts(req generation.StructuredRequest) []*genai.Part {
	parts := make([]*genai.Part, 0, 1+2*len(req.Images))
	for i, img := range req.Images {
		label := fmt.Sprintf("Image %d", i+1)
		if img.PageNumber != nil {
			label += fmt.Sprintf(" (page %d)", *img.PageNumber)
		}
		parts = append(parts,
			genai.NewPartFromText(label+":"),
			genai.NewPartFromURI(img.URL, imageMIMEType(img.URL)))
	}
	return append(parts, genai.NewPartFromText(req.UserContent))
}

func imageMIMEType(rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}
	if t := mime.TypeByExtension(strings.ToLower(path.Ext(p))); strings.HasPrefix(t, "image/") {
		return t
	}
	return defaultImageMIMEType
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("%w: nil response", generation.ErrInvalidResponse)
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("%w: prompt blocked: %s",
			generation.ErrContentBlocked, resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates in response", generation.ErrInvalidResponse)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", fmt.Errorf("%w: response blocked by safety filters", generation.ErrContentBlocked)
	}
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("%w: empty content in response", generation.ErrInvalidResponse)
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("%w: response contains no text", generation.ErrInvalidResponse)
	}
	return text, nil
}

// classifyError maps API errors onto generation sentinels. Authentication
// and permission failures cannot be fixed by retrying.
func classifyError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	if apiErr, ok := asAPIError(err); ok {
		switch apiErr.Code {
		case 401, 403:
			return fmt.Errorf("%w: %s", generation.ErrInvalidConfig, apiErr.Message)
		}
		return fmt.Errorf("%w: gemini API error %d: %s",
			generation.ErrTransientFailure, apiErr.Code, apiErr.Message)
	}
	return fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
}

func asAPIError(err error) (genai.APIError, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return *apiErrPtr, true
	}
	return genai.APIError{}, false
}

func toGenAISchema(s *generation.Schema) *genai.Schema {
	if s == nil {
		return nil
	}

	out := &genai.Schema{
		Type:             genaiType(s.Type),
		Description:      s.Description,
		Required:         s.Required,
		Enum:             s.Enum,
		Minimum:          s.Minimum,
		Maximum:          s.Maximum,
		PropertyOrdering: s.PropertyOrder,
		Items:            toGenAISchema(s.Items),
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = toGenAISchema(prop)
		}
	}
	return out
}

func genaiType(t generation.SchemaType) genai.Type {
	switch t {
	case generation.TypeObject:
		return genai.TypeObject
	case generation.TypeArray:
		return genai.TypeArray
	case generation.TypeInteger:
		return genai.TypeInteger
	case generation.TypeNumber:
		return genai.TypeNumber
	case generation.TypeBoolean:
		return genai.TypeBoolean
	default:
		return genai.TypeString
	}
}
