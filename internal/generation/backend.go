package generation

import (
	"context"
	"encoding/json"

	"github.com/phrazzld/scry-cards/internal/domain"
)

// Purpose tells a Backend which kind of structured call it is serving.
// Adapters may pick different models or temperatures per purpose.
type Purpose string

// Structured generation purposes.
const (
	PurposeOutline    Purpose = "outline"
	PurposeFlashcards Purpose = "flashcards"
)

// StructuredRequest is a single schema-constrained generation call.
type StructuredRequest struct {
	Purpose      Purpose
	SystemPrompt string
	UserContent  string
	Schema       *Schema

	// Images are attached to the call. Adapters must resolve any image
	// reference in the response to a URL with ResolveImageRefs.
	Images []domain.ImageRef
}

// Backend is the only capability the pipeline requires from an LLM provider.
// Implementations must be safe for concurrent use.
type Backend interface {
	// Name identifies the provider in logs.
	Name() string

	// StructuredGenerate returns JSON that matches req.Schema. Errors should
	// wrap ErrTransientFailure, ErrInvalidResponse or ErrContentBlocked so
	// callers can decide whether to retry.
	StructuredGenerate(ctx context.Context, req StructuredRequest) (json.RawMessage, error)
}

// Generator produces flashcards for one chunk of content.
type Generator interface {
	// Generate creates flashcards for content. chunkContext is a short,
	// human-readable label of where the chunk sits in the document.
	Generate(
		ctx context.Context,
		content string,
		opts domain.GenerationOptions,
		chunkContext string,
	) ([]domain.GeneratedFlashcard, error)
}
