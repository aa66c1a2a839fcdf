// Package tokenizer counts tokens in text spans using a fixed sub-word
// encoding so that every size decision in the pipeline is made on the same
// scale.
package tokenizer

import (
	"log/slog"
	"math"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// Encoding is the encoding used across the whole pipeline.
const Encoding = "cl100k_base"

// CharsPerToken is the fallback ratio for dense technical prose.
const CharsPerToken = 3.5

// Counter counts tokens in a text span.
type Counter interface {
	CountTokens(text string) int
}

// CounterFunc adapts a function to the Counter interface.
type CounterFunc func(text string) int

// CountTokens implements Counter.
func (f CounterFunc) CountTokens(text string) int {
	return f(text)
}

// encoder is the subset of *tiktoken.Tiktoken the tokenizer needs.
type encoder interface {
	Encode(text string, allowedSpecial []string, disallowedSpecial []string) []int
}

var loadEncoding = sync.OnceValues(func() (*tiktoken.Tiktoken, error) {
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	return tiktoken.GetEncoding(Encoding)
})

// Tokenizer is a Counter backed by the tiktoken encoding. When the encoder
// is unavailable or faults, it falls back to Estimate.
type Tokenizer struct {
	enc      encoder
	logger   *slog.Logger
	warnOnce sync.Once
}

// New creates a Tokenizer. Failing to load the encoding is not an error: the
// tokenizer logs a warning and uses the character heuristic instead.
func New(logger *slog.Logger) *Tokenizer {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Tokenizer{logger: logger.With("component", "tokenizer")}

	enc, err := loadEncoding()
	if err != nil {
		t.logger.Warn("token encoding unavailable, using character heuristic",
			"encoding", Encoding,
			"error", err)
		return t
	}
	t.enc = enc
	return t
}

// CountTokens returns the number of tokens in text. It never panics.
func (t *Tokenizer) CountTokens(text string) (n int) {
	if text == "" {
		return 0
	}
	if t == nil || t.enc == nil {
		return Estimate(text)
	}

	defer func() {
		if r := recover(); r != nil {
			t.warnOnce.Do(func() {
				t.logger.Warn("token encoder faulted, falling back to heuristic", "panic", r)
			})
			n = Estimate(text)
		}
	}()

	return len(t.enc.Encode(text, nil, nil))
}

// Estimate approximates the token count of text from its character count.
func Estimate(text string) int {
	if text == "" {
		return 0
	}
	return int(math.Ceil(float64(utf8.RuneCountInString(text)) / CharsPerToken))
}
