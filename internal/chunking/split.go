package chunking

import (
	"strings"

	"github.com/phrazzld/scry-cards/internal/tokenizer"
)

// lineBuffer accumulates lines and their token counts. fresh counts the lines
// added since the last seed, so a buffer holding only overlap is never closed
// as a chunk of its own.
type lineBuffer struct {
	counter tokenizer.Counter
	lines   []string
	tokens  int
	fresh   int
}

func newLineBuffer(counter tokenizer.Counter) *lineBuffer {
	return &lineBuffer{counter: counter}
}

func (b *lineBuffer) add(line string, tokens int) {
	b.lines = append(b.lines, line)
	b.tokens += tokens
	b.fresh++
}

// seed starts the buffer with overlap text carried over from the previous chunk.
func (b *lineBuffer) seed(overlap string) {
	if overlap == "" {
		return
	}
	for _, line := range strings.Split(overlap, "\n") {
		b.lines = append(b.lines, line)
		b.tokens += b.counter.CountTokens(line)
	}
}

func (b *lineBuffer) reset() {
	b.lines = b.lines[:0:0]
	b.tokens = 0
	b.fresh = 0
}

func (b *lineBuffer) String() string {
	return strings.Join(b.lines, "\n")
}

// SplitByTokens splits content into sequential line-based pieces of at most
// maxTokens each, seeding every piece after the first with an overlap tail of
// the previous one. Lines are never split.
func SplitByTokens(counter tokenizer.Counter, content string, maxTokens, overlapTokens int) []string {
	if strings.TrimSpace(content) == "" {
		return nil
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	var parts []string
	buf := newLineBuffer(counter)
	for _, line := range strings.Split(content, "\n") {
		n := counter.CountTokens(line)
		if buf.fresh > 0 && buf.tokens+n > maxTokens {
			text := buf.String()
			parts = append(parts, text)
			buf.reset()
			buf.seed(OverlapText(counter, text, overlapTokens))
		}
		buf.add(line, n)
	}
	if buf.fresh > 0 {
		parts = append(parts, buf.String())
	}
	return parts
}
