// Package outline extracts a hierarchical topic outline from a document
// using a structured language model backend.
//
// Outlining is best effort: any failure degrades to an empty outline so the
// chunker can fall back to size-based splitting.
package outline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/phrazzld/scry-cards/internal/chunking"
	"github.com/phrazzld/scry-cards/internal/domain"
	"github.com/phrazzld/scry-cards/internal/generation"
	"github.com/phrazzld/scry-cards/internal/redact"
	"github.com/phrazzld/scry-cards/internal/tokenizer"
)

// Defaults for outline extraction.
const (
	DefaultMaxTokensPerPass = 80_000
	DefaultCacheTTL         = 30 * time.Minute
	cacheCleanupInterval    = time.Hour
)

const systemPrompt = `You analyse study material and list its structure.
Return the main topics in the order they appear. Use each topic's title exactly as it is written in the text, and list the subtopics discussed under it, also exactly as written.
Do not invent topics that are not present. If the text has no clear structure, return an empty topics array.`

// Config configures an Outliner.
type Config struct {
	// MaxTokensPerPass bounds the content sent in one outline request.
	MaxTokensPerPass int

	// OverlapTokens is the overlap between consecutive passes.
	OverlapTokens int

	// CacheTTL is how long outlines are cached per document. Zero disables
	// caching.
	CacheTTL time.Duration
}

// DefaultConfig returns the default outline configuration.
func DefaultConfig() Config {
	return Config{
		MaxTokensPerPass: DefaultMaxTokensPerPass,
		OverlapTokens:    chunking.DefaultOverlapTokens,
		CacheTTL:         DefaultCacheTTL,
	}
}

// Outliner extracts topic outlines.
type Outliner struct {
	backend generation.Backend
	counter tokenizer.Counter
	cfg     Config
	cache   *cache.Cache
	logger  *slog.Logger
}

// New creates an Outliner.
func New(backend generation.Backend, counter tokenizer.Counter, cfg Config, logger *slog.Logger) (*Outliner, error) {
	if backend == nil {
		return nil, errors.New("backend cannot be nil")
	}
	if counter == nil {
		return nil, errors.New("token counter cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.MaxTokensPerPass <= 0 {
		cfg.MaxTokensPerPass = DefaultMaxTokensPerPass
	}
	if cfg.OverlapTokens < 0 {
		cfg.OverlapTokens = 0
	}

	o := &Outliner{
		backend: backend,
		counter: counter,
		cfg:     cfg,
		logger:  logger.With("component", "outliner"),
	}
	if cfg.CacheTTL > 0 {
		o.cache = cache.New(cfg.CacheTTL, cacheCleanupInterval)
	}
	return o, nil
}

// Extract returns the topic outline of content. It never fails: passes that
// error or return nothing usable contribute an empty outline.
func (o *Outliner) Extract(ctx context.Context, content string) domain.TopicOutline {
	if strings.TrimSpace(content) == "" {
		return domain.TopicOutline{Topics: []domain.Topic{}}
	}

	key := cacheKey(content)
	if o.cache != nil {
		if cached, ok := o.cache.Get(key); ok {
			o.logger.DebugContext(ctx, "Using cached outline", "cache_key", key[:12])
			return cached.(domain.TopicOutline).Clone()
		}
	}

	var passes []string
	if tokens := o.counter.CountTokens(content); tokens <= o.cfg.MaxTokensPerPass {
		passes = []string{content}
	} else {
		passes = chunking.SplitByTokens(o.counter, content, o.cfg.MaxTokensPerPass, o.cfg.OverlapTokens)
		o.logger.InfoContext(ctx, "Outlining document in multiple passes",
			"total_tokens", tokens,
			"passes", len(passes))
	}

	outlines := make([]domain.TopicOutline, 0, len(passes))
	for i, pass := range passes {
		if ctx.Err() != nil {
			o.logger.WarnContext(ctx, "Outline extraction cancelled", "completed_passes", i)
			break
		}
		outlines = append(outlines, o.extractPass(ctx, pass, i+1, len(passes)))
	}

	result := Merge(outlines...)
	if o.cache != nil && !result.Empty() {
		o.cache.Set(key, result.Clone(), cache.DefaultExpiration)
	}

	o.logger.InfoContext(ctx, "Outline extracted",
		"topics", len(result.Topics),
		"passes", len(passes))

	return result
}

func (o *Outliner) extractPass(ctx context.Context, content string, pass, total int) domain.TopicOutline {
	raw, err := o.backend.StructuredGenerate(ctx, generation.StructuredRequest{
		Purpose:      generation.PurposeOutline,
		SystemPrompt: systemPrompt,
		UserContent:  content,
		Schema:       generation.OutlineSchema(),
	})
	if err != nil {
		o.logger.WarnContext(ctx, "Outline pass failed",
			"pass", pass,
			"total_passes", total,
			"error", redact.Error(err))
		return domain.TopicOutline{}
	}

	outline, err := parseOutline(raw)
	if err != nil {
		o.logger.WarnContext(ctx, "Outline pass returned invalid JSON",
			"pass", pass,
			"total_passes", total,
			"error", err)
		return domain.TopicOutline{}
	}
	if outline.Empty() {
		o.logger.WarnContext(ctx, "Outline pass returned no topics", "pass", pass, "total_passes", total)
	}
	return outline
}

func parseOutline(raw json.RawMessage) (domain.TopicOutline, error) {
	var outline domain.TopicOutline
	if err := json.Unmarshal(raw, &outline); err != nil {
		return domain.TopicOutline{}, fmt.Errorf("%w: %v", generation.ErrInvalidResponse, err)
	}
	return Merge(outline), nil
}

// Merge combines outlines into one. Topics are deduplicated by exact title
// in first-seen order and their subtopics are unioned. Blank titles and
// subtopics are dropped.
func Merge(outlines ...domain.TopicOutline) domain.TopicOutline {
	merged := domain.TopicOutline{Topics: []domain.Topic{}}
	index := make(map[string]int)
	seenSub := make(map[string]map[string]struct{})

	for _, ol := range outlines {
		for _, topic := range ol.Topics {
			title := strings.TrimSpace(topic.Title)
			if title == "" {
				continue
			}

			i, ok := index[title]
			if !ok {
				i = len(merged.Topics)
				index[title] = i
				seenSub[title] = make(map[string]struct{})
				merged.Topics = append(merged.Topics, domain.Topic{Title: title})
			}

			for _, sub := range topic.Subtopics {
				sub = strings.TrimSpace(sub)
				if sub == "" {
					continue
				}
				if _, dup := seenSub[title][sub]; dup {
					continue
				}
				seenSub[title][sub] = struct{}{}
				merged.Topics[i].Subtopics = append(merged.Topics[i].Subtopics, sub)
			}
		}
	}
	return merged
}

func cacheKey(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
