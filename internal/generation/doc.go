// Package generation defines the boundary between the flashcard pipeline and
// external AI/LLM services.
//
// Backend is the single capability the pipeline requires from any provider:
// a schema-constrained structured generation call. Provider adapters (Gemini,
// OpenAI-compatible endpoints, the offline heuristic backend) live under
// internal/platform and translate the provider-neutral Schema into their own
// dialect.
//
// FlashcardGenerator is the unit of work executed once per chunk. It builds a
// prompt from the requested coverage level, card shapes, sub-deck and image
// options, calls the Backend and validates the returned cards.
package generation
