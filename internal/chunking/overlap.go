// Package chunking splits long content into token-bounded chunks. It prefers
// topic boundaries from a TopicOutline over arbitrary line cuts and carries a
// short overlap across every cut so the next chunk does not start mid-thought.
package chunking

import (
	"strings"

	"github.com/phrazzld/scry-cards/internal/tokenizer"
)

// DefaultOverlapTokens is the overlap budget injected at every cut point.
const DefaultOverlapTokens = 200

// OverlapText returns the trailing lines of text whose combined token count
// stays within targetTokens. The returned string is always a suffix of text.
// It returns "" when no line fits or the text is blank.
func OverlapText(counter tokenizer.Counter, text string, targetTokens int) string {
	if strings.TrimSpace(text) == "" || targetTokens <= 0 {
		return ""
	}

	lines := strings.Split(text, "\n")
	start := len(lines)
	total := 0
	for i := len(lines) - 1; i >= 0; i-- {
		n := counter.CountTokens(lines[i])
		if total+n > targetTokens {
			break
		}
		total += n
		start = i
	}

	if start == len(lines) {
		return ""
	}
	tail := strings.Join(lines[start:], "\n")
	if strings.TrimSpace(tail) == "" {
		return ""
	}
	return tail
}
