package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/phrazzld/scry-cards/internal/domain"
)

// GeneratorConfig configures a FlashcardGenerator.
type GeneratorConfig struct {
	// PromptTemplatePath overrides the built-in prompt template when set.
	PromptTemplatePath string

	// VerifyFacts enables the advisory term-overlap verification pass.
	VerifyFacts bool

	// ReviewThreshold is the verification score below which a card is
	// flagged as needing review.
	ReviewThreshold int
}

// FlashcardGenerator implements Generator on top of a structured Backend.
type FlashcardGenerator struct {
	backend  Backend
	logger   *slog.Logger
	tmpl     *template.Template
	verifier *Verifier
}

var _ Generator = (*FlashcardGenerator)(nil)

// NewFlashcardGenerator creates a FlashcardGenerator.
func NewFlashcardGenerator(backend Backend, logger *slog.Logger, cfg GeneratorConfig) (*FlashcardGenerator, error) {
	if backend == nil {
		return nil, fmt.Errorf("%w: backend cannot be nil", ErrInvalidConfig)
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	tmpl, err := loadPromptTemplate(cfg.PromptTemplatePath)
	if err != nil {
		return nil, err
	}

	g := &FlashcardGenerator{
		backend: backend,
		logger:  logger.With("component", "flashcard_generator", "backend", backend.Name()),
		tmpl:    tmpl,
	}
	if cfg.VerifyFacts {
		g.verifier = NewVerifier(cfg.ReviewThreshold)
	}
	return g, nil
}

// responseSchema mirrors FlashcardSchema after image references have been
// resolved by the backend adapter.
type responseSchema struct {
	Cards []cardSchema `json:"cards"`
}

type cardSchema struct {
	Question      string `json:"question"`
	Answer        string `json:"answer"`
	CardType      string `json:"cardType"`
	Subtopic      string `json:"subtopic,omitempty"`
	SourceExcerpt string `json:"sourceExcerpt,omitempty"`
	ImageURL      string `json:"imageUrl,omitempty"`
}

// Generate implements Generator.
func (g *FlashcardGenerator) Generate(
	ctx context.Context,
	content string,
	opts domain.GenerationOptions,
	chunkContext string,
) ([]domain.GeneratedFlashcard, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}

	prompt, err := buildSystemPrompt(g.tmpl, opts, chunkContext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	g.logger.DebugContext(ctx, "Requesting flashcards",
		"chunk_context", chunkContext,
		"content_length", len(content),
		"prompt_length", len(prompt),
		"image_count", len(opts.Images))

	raw, err := g.backend.StructuredGenerate(ctx, StructuredRequest{
		Purpose:      PurposeFlashcards,
		SystemPrompt: prompt,
		UserContent:  content,
		Schema:       FlashcardSchema(opts.CardTypes, opts.CreateSubdecks, len(opts.Images)),
		Images:       opts.Images,
	})
	if err != nil {
		return nil, err
	}

	var resp responseSchema
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse JSON response: %v", ErrInvalidResponse, err)
	}

	cards := g.validateCards(ctx, resp.Cards, opts)
	if g.verifier != nil {
		g.verifier.Apply(cards, content)
	}

	g.logger.DebugContext(ctx, "Parsed flashcard response",
		"chunk_context", chunkContext,
		"returned_cards", len(resp.Cards),
		"valid_cards", len(cards))

	return cards, nil
}

// validateCards coerces the raw response into domain flashcards. Cards
// without a question or answer are skipped; bad card types and image URLs
// are repaired rather than rejected.
func (g *FlashcardGenerator) validateCards(
	ctx context.Context,
	raw []cardSchema,
	opts domain.GenerationOptions,
) []domain.GeneratedFlashcard {
	cards := make([]domain.GeneratedFlashcard, 0, len(raw))
	for i, c := range raw {
		question := strings.TrimSpace(c.Question)
		answer := strings.TrimSpace(c.Answer)
		if question == "" || answer == "" {
			g.logger.WarnContext(ctx, "Skipping card with missing question or answer", "card_index", i)
			continue
		}

		card := domain.GeneratedFlashcard{
			Question:      question,
			Answer:        answer,
			CardType:      domain.ParseCardType(c.CardType),
			SourceExcerpt: strings.TrimSpace(c.SourceExcerpt),
		}

		if opts.CreateSubdecks {
			card.Subtopic = strings.TrimSpace(c.Subtopic)
		}

		if url := strings.TrimSpace(c.ImageURL); url != "" {
			if domain.IsValidImageURL(url) {
				card.ImageURL = url
			} else {
				g.logger.WarnContext(ctx, "Dropping malformed image URL", "card_index", i)
			}
		}

		cards = append(cards, card)
	}
	return cards
}
