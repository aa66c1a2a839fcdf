package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/phrazzld/scry-cards/internal/config"
	"github.com/phrazzld/scry-cards/internal/domain"
	"github.com/phrazzld/scry-cards/internal/events"
	"github.com/phrazzld/scry-cards/internal/generation"
	"github.com/phrazzld/scry-cards/internal/redact"
	"github.com/phrazzld/scry-cards/internal/resilience"
	"github.com/phrazzld/scry-cards/internal/tokenizer"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Chunk-count thresholds that select the group size.
const (
	smallDocumentChunks  = 5
	mediumDocumentChunks = 15
	mediumConcurrency    = 0.6
)

// GroupSize returns how many chunks run concurrently for a document of n
// chunks under profile. The result is always at least 1.
func GroupSize(profile config.TierProfile, n int) int {
	ceiling := profile.MaxConcurrency
	if ceiling < 1 {
		ceiling = 1
	}

	switch {
	case n < smallDocumentChunks:
		return ceiling
	case n <= mediumDocumentChunks:
		return max(1, int(math.Ceil(mediumConcurrency*float64(ceiling))))
	default:
		return max(1, int(math.Round(float64(ceiling)*profile.LargeDocumentFactor)))
	}
}

// TimeoutFor returns the per-call timeout for a chunk of the given size.
func TimeoutFor(profile config.TierProfile, tokens, imageCount int) time.Duration {
	var timeout time.Duration
	switch {
	case tokens <= profile.SmallChunkTokens:
		timeout = profile.SmallTimeout
	case tokens <= profile.MediumChunkTokens:
		timeout = profile.MediumTimeout
	default:
		timeout = profile.LargeTimeout
	}
	if imageCount > 0 && profile.ImageTimeoutFactor > 0 {
		timeout = time.Duration(float64(timeout) * profile.ImageTimeoutFactor)
	}
	return timeout
}

// Result is the aggregate outcome of processing all chunks.
type Result struct {
	// Flashcards in chunk order.
	Flashcards []domain.GeneratedFlashcard
	// FailedChunks lists chunks whose retries were exhausted.
	FailedChunks []int
	// EmptyChunks lists chunks that succeeded with zero cards.
	EmptyChunks []int
}

// Processor runs the flashcard generator over chunks in sequential groups of
// concurrent calls, each wrapped in a timeout and retried per the tier
// profile.
type Processor struct {
	generator generation.Generator
	counter   tokenizer.Counter
	profile   config.TierProfile
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// NewProcessor creates a Processor.
func NewProcessor(
	gen generation.Generator,
	counter tokenizer.Counter,
	profile config.TierProfile,
	logger *slog.Logger,
) (*Processor, error) {
	if gen == nil {
		return nil, errors.New("generator cannot be nil")
	}
	if counter == nil {
		return nil, errors.New("token counter cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	p := &Processor{
		generator: gen,
		counter:   counter,
		profile:   profile,
		logger:    logger.With("component", "chunk_processor", "tier", profile.Name),
	}
	if profile.RequestsPerSecond > 0 {
		burst := max(1, int(math.Ceil(profile.RequestsPerSecond)))
		p.limiter = rate.NewLimiter(rate.Limit(profile.RequestsPerSecond), burst)
	}
	return p, nil
}

// Process generates flashcards for every chunk. Chunk failures never abort
// the run; they are reported in Result. If ctx is cancelled, no further
// groups are scheduled and the cards gathered so far are returned together
// with ctx.Err().
func (p *Processor) Process(
	ctx context.Context,
	chunks []domain.SemanticChunk,
	opts domain.GenerationOptions,
	progress events.ProgressFunc,
) (Result, error) {
	total := len(chunks)
	result := Result{Flashcards: []domain.GeneratedFlashcard{}}
	if total == 0 {
		return result, nil
	}

	size := GroupSize(p.profile, total)
	p.logger.InfoContext(ctx, "Processing chunks",
		"chunk_count", total,
		"group_size", size,
		"image_count", len(opts.Images))

	for start := 0; start < total; start += size {
		if err := ctx.Err(); err != nil {
			p.logger.WarnContext(ctx, "Chunk processing cancelled",
				"processed_chunks", start,
				"chunk_count", total)
			p.logSummary(ctx, total, result)
			return result, err
		}

		end := min(start+size, total)
		slots := make([][]domain.GeneratedFlashcard, end-start)
		failed := make([]bool, end-start)

		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				cards, err := p.processChunk(ctx, i, total, chunks[i], opts)
				if err != nil {
					failed[i-start] = true
					p.logger.ErrorContext(ctx, "Chunk failed after retries",
						"chunk_index", i,
						"chunk_context", chunks[i].Context,
						"error", redact.Error(err))
					return nil
				}
				slots[i-start] = cards
				return nil
			})
		}
		_ = g.Wait()
		cancelled := ctx.Err()

		for j, cards := range slots {
			switch {
			case failed[j]:
				// Chunks cut short by cancellation are not failures.
				if cancelled == nil {
					result.FailedChunks = append(result.FailedChunks, start+j)
				}
			case len(cards) == 0:
				result.EmptyChunks = append(result.EmptyChunks, start+j)
			default:
				result.Flashcards = append(result.Flashcards, cards...)
			}
		}

		progress.Report(ctx, events.Progress{
			Stage:          events.StageGenerating,
			Message:        fmt.Sprintf("Processed %d of %d chunks", end, total),
			Progress:       events.GeneratingPercent(end, total),
			CurrentStep:    events.Int(end),
			TotalSteps:     events.Int(total),
			CardsGenerated: events.Int(len(result.Flashcards)),
		})

		if cancelled != nil {
			p.logger.WarnContext(ctx, "Chunk processing cancelled",
				"processed_chunks", end,
				"chunk_count", total)
			p.logSummary(ctx, total, result)
			return result, cancelled
		}
	}

	p.logSummary(ctx, total, result)
	return result, nil
}

func (p *Processor) processChunk(
	ctx context.Context,
	index, total int,
	chunk domain.SemanticChunk,
	opts domain.GenerationOptions,
) ([]domain.GeneratedFlashcard, error) {
	tokens := p.counter.CountTokens(chunk.Content)
	timeout := TimeoutFor(p.profile, tokens, len(opts.Images))

	log := p.logger.With("chunk_index", index, "chunk_count", total)
	log.DebugContext(ctx, "Generating flashcards for chunk",
		"chunk_context", chunk.Context,
		"tokens", tokens,
		"timeout", timeout)

	policy := resilience.Policy{
		MaxRetries:    p.profile.MaxChunkRetries,
		Delay:         p.profile.RetryDelay,
		Exponential:   p.profile.ExponentialBackoff,
		JitterPercent: p.profile.JitterPercent,
		IsPermanent:   generation.IsPermanent,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			log.WarnContext(ctx, "Retrying chunk",
				"attempt", attempt,
				"max_attempts", p.profile.MaxChunkRetries+1,
				"delay", delay,
				"error", redact.Error(err))
		},
	}

	var cards []domain.GeneratedFlashcard
	err := resilience.Retry(ctx, policy, func(ctx context.Context) error {
		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				return resilience.Permanent(err)
			}
		}

		var attempt []domain.GeneratedFlashcard
		err := resilience.WithTimeout(ctx, timeout, func(ctx context.Context) error {
			out, err := p.generator.Generate(ctx, chunk.Content, opts, chunk.Context)
			attempt = out
			return err
		})
		if err == nil {
			cards = attempt
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	log.DebugContext(ctx, "Chunk complete", "card_count", len(cards))
	return cards, nil
}

func (p *Processor) logSummary(ctx context.Context, total int, result Result) {
	attrs := []any{
		"chunk_count", total,
		"card_count", len(result.Flashcards),
		"failed_chunks", result.FailedChunks,
		"empty_chunks", result.EmptyChunks,
	}
	if len(result.FailedChunks) > 0 {
		p.logger.WarnContext(ctx, "Chunk processing finished with failures", attrs...)
		return
	}
	p.logger.InfoContext(ctx, "Chunk processing finished", attrs...)
}
