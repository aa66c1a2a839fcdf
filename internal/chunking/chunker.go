package chunking

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/phrazzld/scry-cards/internal/domain"
	"github.com/phrazzld/scry-cards/internal/tokenizer"
)

// DefaultMaxTokens is the default token budget of a semantic chunk.
const DefaultMaxTokens = 100_000

// FullDocumentContext labels a chunk that holds the entire document.
const FullDocumentContext = "Full document"

// Options configures a Chunker.
type Options struct {
	// MaxTokens bounds each chunk. A single line longer than MaxTokens is
	// never split, so the bound is best-effort.
	MaxTokens int

	// OverlapTokens is the budget of the tail copied into the next chunk.
	OverlapTokens int

	// MatchHeadingsOnly restricts topic detection to heading-like lines
	// instead of any line that mentions a topic title.
	MatchHeadingsOnly bool
}

// DefaultOptions returns the pipeline's default chunking options.
func DefaultOptions() Options {
	return Options{
		MaxTokens:     DefaultMaxTokens,
		OverlapTokens: DefaultOverlapTokens,
	}
}

// Chunker splits content into SemanticChunks.
type Chunker struct {
	counter tokenizer.Counter
	opts    Options
}

// New creates a Chunker. Non-positive option values fall back to defaults.
func New(counter tokenizer.Counter, opts Options) *Chunker {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if opts.OverlapTokens < 0 {
		opts.OverlapTokens = DefaultOverlapTokens
	}
	return &Chunker{counter: counter, opts: opts}
}

// ChunkByTopics splits content with default overlap and literal topic matching.
func ChunkByTopics(
	counter tokenizer.Counter,
	content string,
	outline domain.TopicOutline,
	maxTokens int,
) []domain.SemanticChunk {
	opts := DefaultOptions()
	opts.MaxTokens = maxTokens
	return New(counter, opts).Chunk(content, outline)
}

// Chunk splits content into ordered chunks, preferring the topic boundaries
// of outline and falling back to pure size boundaries when it is empty.
func (c *Chunker) Chunk(content string, outline domain.TopicOutline) []domain.SemanticChunk {
	if strings.TrimSpace(content) == "" {
		return nil
	}

	if c.counter.CountTokens(content) <= c.opts.MaxTokens {
		titles := outline.Titles()
		label := FullDocumentContext
		if len(titles) > 0 {
			label = strings.Join(titles, ", ")
		}
		return []domain.SemanticChunk{{Content: content, Topics: titles, Context: label}}
	}

	if outline.Empty() {
		parts := SplitByTokens(c.counter, content, c.opts.MaxTokens, c.opts.OverlapTokens)
		chunks := make([]domain.SemanticChunk, 0, len(parts))
		for i, p := range parts {
			chunks = append(chunks, domain.SemanticChunk{Content: p, Context: partLabel(i)})
		}
		return chunks
	}

	return c.chunkByTopics(content, outline)
}

// topicPattern is a compiled literal match for a topic or subtopic title.
type topicPattern struct {
	topic    string
	subtopic string
	re       *regexp.Regexp
}

func compilePatterns(outline domain.TopicOutline) (topics, subtopics []topicPattern) {
	for _, t := range outline.Topics {
		if strings.TrimSpace(t.Title) == "" {
			continue
		}
		topics = append(topics, topicPattern{
			topic: t.Title,
			re:    regexp.MustCompile(`(?i)` + regexp.QuoteMeta(strings.TrimSpace(t.Title))),
		})
		for _, s := range t.Subtopics {
			if strings.TrimSpace(s) == "" {
				continue
			}
			subtopics = append(subtopics, topicPattern{
				topic:    t.Title,
				subtopic: s,
				re:       regexp.MustCompile(`(?i)` + regexp.QuoteMeta(strings.TrimSpace(s))),
			})
		}
	}
	return topics, subtopics
}

func firstMatch(patterns []topicPattern, line string) (topicPattern, bool) {
	for _, p := range patterns {
		if p.re.MatchString(line) {
			return p, true
		}
	}
	return topicPattern{}, false
}

type topicState struct {
	topic    string
	subtopic string
}

func (c *Chunker) chunkByTopics(content string, outline domain.TopicOutline) []domain.SemanticChunk {
	topicPatterns, subtopicPatterns := compilePatterns(outline)

	var chunks []domain.SemanticChunk
	buf := newLineBuffer(c.counter)
	var current topicState
	var accumulated []string

	closeChunk := func() {
		text := buf.String()
		label := strings.Join(accumulated, ", ")
		if label == "" {
			label = partLabel(len(chunks))
		}
		chunks = append(chunks, domain.SemanticChunk{
			Content: text,
			Topics:  append([]string(nil), accumulated...),
			Context: label,
		})
		buf.reset()
		buf.seed(OverlapText(c.counter, text, c.opts.OverlapTokens))
	}

	for _, line := range strings.Split(content, "\n") {
		lineTokens := c.counter.CountTokens(line)

		if next, ok := c.detectTopic(line, topicPatterns, subtopicPatterns); ok && next != current {
			if buf.fresh > 0 {
				closeChunk()
				accumulated = nil
			}
			current = next
			accumulated = appendUnique(accumulated, next.topic)
		} else if buf.fresh > 0 && buf.tokens+lineTokens > c.opts.MaxTokens {
			closeChunk()
			accumulated = nil
			if current.topic != "" {
				accumulated = appendUnique(accumulated, current.topic)
			}
		}

		buf.add(line, lineTokens)
	}

	if buf.fresh > 0 {
		text := buf.String()
		label := strings.Join(accumulated, ", ")
		if label == "" {
			label = partLabel(len(chunks))
		}
		chunks = append(chunks, domain.SemanticChunk{Content: text, Topics: accumulated, Context: label})
	}

	return chunks
}

// detectTopic returns the topic/subtopic pair a line announces, if any.
func (c *Chunker) detectTopic(line string, topics, subtopics []topicPattern) (topicState, bool) {
	if strings.TrimSpace(line) == "" {
		return topicState{}, false
	}
	if c.opts.MatchHeadingsOnly && !isHeadingLike(line) {
		return topicState{}, false
	}

	tm, topicFound := firstMatch(topics, line)
	sm, subFound := firstMatch(subtopics, line)

	switch {
	case subFound && (!topicFound || sm.topic == tm.topic):
		return topicState{topic: sm.topic, subtopic: sm.subtopic}, true
	case topicFound:
		return topicState{topic: tm.topic}, true
	default:
		return topicState{}, false
	}
}

var numberedHeading = regexp.MustCompile(`^\d+(\.\d+)*[.)]?\s+\S`)

// maxHeadingWords is the longest line still treated as a bare heading.
const maxHeadingWords = 12

func isHeadingLike(line string) bool {
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, "#") || numberedHeading.MatchString(trimmed) {
		return true
	}
	return len(strings.Fields(trimmed)) <= maxHeadingWords && !strings.HasSuffix(trimmed, ".")
}

func appendUnique(list []string, s string) []string {
	if s == "" {
		return list
	}
	for _, existing := range list {
		if existing == s {
			return list
		}
	}
	return append(list, s)
}

func partLabel(i int) string {
	return fmt.Sprintf("Part %d", i+1)
}
