package tokenizer

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type panickingEncoder struct{}

func (panickingEncoder) Encode(string, []string, []string) []int {
	panic("corrupt rank table")
}

type fixedEncoder struct{ n int }

func (e fixedEncoder) Encode(string, []string, []string) []int {
	return make([]int, e.n)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEstimate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, Estimate(""))
	assert.Equal(t, 1, Estimate("a"))
	assert.Equal(t, 2, Estimate("abcdefg")) // 7 / 3.5
	assert.Equal(t, 3, Estimate("abcdefgh"))
	// Runes, not bytes.
	assert.Equal(t, 1, Estimate("äöü"))
}

func TestTokenizer_CountTokens(t *testing.T) {
	t.Parallel()

	t.Run("empty text is zero", func(t *testing.T) {
		t.Parallel()
		tok := &Tokenizer{enc: fixedEncoder{n: 42}, logger: discardLogger()}
		assert.Equal(t, 0, tok.CountTokens(""))
	})

	t.Run("uses encoder", func(t *testing.T) {
		t.Parallel()
		tok := &Tokenizer{enc: fixedEncoder{n: 42}, logger: discardLogger()}
		assert.Equal(t, 42, tok.CountTokens("anything"))
	})

	t.Run("encoder panic falls back to heuristic", func(t *testing.T) {
		t.Parallel()
		tok := &Tokenizer{enc: panickingEncoder{}, logger: discardLogger()}
		text := strings.Repeat("x", 35)
		assert.NotPanics(t, func() {
			assert.Equal(t, 10, tok.CountTokens(text))
		})
	})

	t.Run("missing encoder falls back to heuristic", func(t *testing.T) {
		t.Parallel()
		tok := &Tokenizer{logger: discardLogger()}
		assert.Equal(t, Estimate("hello world"), tok.CountTokens("hello world"))
	})

	t.Run("nil tokenizer is usable", func(t *testing.T) {
		t.Parallel()
		var tok *Tokenizer
		assert.Equal(t, Estimate("hello"), tok.CountTokens("hello"))
	})
}

func TestNew(t *testing.T) {
	t.Parallel()

	tok := New(discardLogger())
	short := tok.CountTokens("The mitochondria is the powerhouse of the cell.")
	long := tok.CountTokens(strings.Repeat("The mitochondria is the powerhouse of the cell. ", 20))

	assert.Greater(t, short, 0)
	assert.Greater(t, long, short, "longer text should never count fewer tokens")
}

func TestCounterFunc(t *testing.T) {
	t.Parallel()

	words := CounterFunc(func(s string) int { return len(strings.Fields(s)) })
	assert.Equal(t, 3, words.CountTokens("one two three"))
}
