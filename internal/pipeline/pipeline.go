package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-cards/internal/chunking"
	"github.com/phrazzld/scry-cards/internal/domain"
	"github.com/phrazzld/scry-cards/internal/events"
	"github.com/phrazzld/scry-cards/internal/tokenizer"
)

// ErrAllChunksFailed is returned when no chunk of a run produced a result.
var ErrAllChunksFailed = errors.New("all chunks failed to generate flashcards")

// DefaultSinglePassThreshold is the token count up to which a document is
// processed in a single call without outlining.
const DefaultSinglePassThreshold = chunking.DefaultMaxTokens

// Outliner extracts a topic outline. Implementations never fail; they
// return an empty outline instead.
type Outliner interface {
	Extract(ctx context.Context, content string) domain.TopicOutline
}

// Config configures a Pipeline.
type Config struct {
	SinglePassThreshold int
	Chunking            chunking.Options
}

// Deck is the result of a generation run.
type Deck struct {
	RunID      uuid.UUID                   `json:"runId"`
	CreatedAt  time.Time                   `json:"createdAt"`
	Flashcards []domain.GeneratedFlashcard `json:"flashcards"`
	// Subdecks is set only when sub-decks were requested.
	Subdecks     []domain.SubdeckGroup `json:"subdecks,omitempty"`
	Outline      domain.TopicOutline   `json:"outline"`
	ChunkCount   int                   `json:"chunkCount"`
	FailedChunks []int                 `json:"failedChunks,omitempty"`
	EmptyChunks  []int                 `json:"emptyChunks,omitempty"`
}

// Pipeline orchestrates outlining, chunking, and chunk processing.
type Pipeline struct {
	counter   tokenizer.Counter
	outliner  Outliner
	chunker   *chunking.Chunker
	processor *Processor
	threshold int
	logger    *slog.Logger
}

// New creates a Pipeline.
func New(
	counter tokenizer.Counter,
	outliner Outliner,
	processor *Processor,
	cfg Config,
	logger *slog.Logger,
) (*Pipeline, error) {
	if counter == nil {
		return nil, errors.New("token counter cannot be nil")
	}
	if outliner == nil {
		return nil, errors.New("outliner cannot be nil")
	}
	if processor == nil {
		return nil, errors.New("processor cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.SinglePassThreshold <= 0 {
		cfg.SinglePassThreshold = DefaultSinglePassThreshold
	}

	return &Pipeline{
		counter:   counter,
		outliner:  outliner,
		chunker:   chunking.New(counter, cfg.Chunking),
		processor: processor,
		threshold: cfg.SinglePassThreshold,
		logger:    logger.With("component", "pipeline"),
	}, nil
}

// GenerateFlashcards runs the pipeline and returns the generated cards.
func (p *Pipeline) GenerateFlashcards(
	ctx context.Context,
	opts domain.GenerationOptions,
	onProgress events.ProgressFunc,
) ([]domain.GeneratedFlashcard, error) {
	deck, err := p.GenerateDeck(ctx, opts, onProgress)
	if err != nil {
		return nil, err
	}
	return deck.Flashcards, nil
}

// GenerateDeck runs the pipeline and returns the full deck, including
// sub-deck groups when opts.CreateSubdecks is set.
func (p *Pipeline) GenerateDeck(
	ctx context.Context,
	opts domain.GenerationOptions,
	onProgress events.ProgressFunc,
) (*Deck, error) {
	runID := uuid.New()
	log := p.logger.With("run_id", runID.String())
	started := time.Now()

	fail := func(err error) (*Deck, error) {
		log.ErrorContext(ctx, "Flashcard generation failed", "error", err)
		onProgress.Report(ctx, events.Progress{
			Stage:    events.StageError,
			Message:  err.Error(),
			Progress: events.ErrorPercent,
		})
		return nil, err
	}

	if err := opts.Validate(); err != nil {
		return fail(err)
	}

	onProgress.Report(ctx, events.Progress{
		Stage:    events.StageAnalyzing,
		Message:  "Analyzing document",
		Progress: events.AnalyzingPercent,
	})

	tokens := p.counter.CountTokens(opts.Content)
	log.InfoContext(ctx, "Starting flashcard generation",
		"tokens", tokens,
		"granularity", opts.Granularity,
		"card_types", opts.CardTypes,
		"subdecks", opts.CreateSubdecks,
		"image_count", len(opts.Images))

	outline := domain.TopicOutline{Topics: []domain.Topic{}}
	var chunks []domain.SemanticChunk
	if tokens <= p.threshold {
		chunks = []domain.SemanticChunk{{Content: opts.Content, Context: chunking.FullDocumentContext}}
	} else {
		outline = p.outliner.Extract(ctx, opts.Content)
		onProgress.Report(ctx, events.Progress{
			Stage:    events.StageAnalyzing,
			Message:  fmt.Sprintf("Found %d topics", len(outline.Topics)),
			Progress: events.OutlineDonePercent,
		})

		chunks = p.chunker.Chunk(opts.Content, outline)
		onProgress.Report(ctx, events.Progress{
			Stage:      events.StageChunking,
			Message:    fmt.Sprintf("Split document into %d chunks", len(chunks)),
			Progress:   events.ChunkingPercent,
			TotalSteps: events.Int(len(chunks)),
		})
	}

	result, err := p.processor.Process(ctx, chunks, opts, onProgress)
	if err != nil {
		return fail(fmt.Errorf("generation interrupted: %w", err))
	}
	if len(result.FailedChunks) == len(chunks) {
		return fail(fmt.Errorf("%w: %d of %d chunks failed", ErrAllChunksFailed, len(result.FailedChunks), len(chunks)))
	}

	deck := &Deck{
		RunID:        runID,
		CreatedAt:    started.UTC(),
		Flashcards:   result.Flashcards,
		Outline:      outline,
		ChunkCount:   len(chunks),
		FailedChunks: result.FailedChunks,
		EmptyChunks:  result.EmptyChunks,
	}
	if opts.CreateSubdecks {
		deck.Subdecks = GroupBySubtopic(deck.Flashcards)
	}

	log.InfoContext(ctx, "Flashcard generation complete",
		"card_count", len(deck.Flashcards),
		"chunk_count", deck.ChunkCount,
		"failed_chunks", len(deck.FailedChunks),
		"duration", time.Since(started))

	onProgress.Report(ctx, events.Progress{
		Stage:          events.StageComplete,
		Message:        fmt.Sprintf("Generated %d flashcards", len(deck.Flashcards)),
		Progress:       events.CompletePercent,
		CardsGenerated: events.Int(len(deck.Flashcards)),
	})
	return deck, nil
}
