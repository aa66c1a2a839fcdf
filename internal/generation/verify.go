package generation

import (
	"math"
	"strings"
	"unicode"

	"github.com/phrazzld/scry-cards/internal/domain"
)

// DefaultReviewThreshold is the score below which a card needs review.
const DefaultReviewThreshold = 50

// minTermLength ignores short words that carry little meaning.
const minTermLength = 4

var stopWords = map[string]struct{}{
	"about": {}, "after": {}, "also": {}, "been": {}, "before": {}, "being": {},
	"between": {}, "both": {}, "could": {}, "does": {}, "each": {}, "from": {},
	"have": {}, "into": {}, "more": {}, "most": {}, "only": {}, "other": {},
	"should": {}, "some": {}, "such": {}, "than": {}, "that": {}, "their": {},
	"them": {}, "then": {}, "there": {}, "these": {}, "they": {}, "this": {},
	"those": {}, "through": {}, "very": {}, "were": {}, "what": {}, "when": {},
	"where": {}, "which": {}, "while": {}, "will": {}, "with": {}, "would": {},
	"your": {},
}

// Verifier scores generated answers against their source chunk using term
// overlap. The score is advisory metadata and never rejects a card.
type Verifier struct {
	threshold int
}

// NewVerifier creates a Verifier. A non-positive threshold uses the default.
func NewVerifier(threshold int) *Verifier {
	if threshold <= 0 || threshold > 100 {
		threshold = DefaultReviewThreshold
	}
	return &Verifier{threshold: threshold}
}

// Score returns the percentage (0-100) of the answer's content terms that
// appear in source. Answers without content terms score 100.
func (v *Verifier) Score(answer, source string) int {
	terms := contentTerms(answer)
	if len(terms) == 0 {
		return 100
	}

	sourceTerms := make(map[string]struct{})
	for _, t := range contentTerms(source) {
		sourceTerms[t] = struct{}{}
	}

	matched := 0
	for _, t := range terms {
		if _, ok := sourceTerms[t]; ok {
			matched++
		}
	}
	return int(math.Round(100 * float64(matched) / float64(len(terms))))
}

// Apply scores every card in place and flags low-overlap cards for review.
func (v *Verifier) Apply(cards []domain.GeneratedFlashcard, source string) {
	for i := range cards {
		score := v.Score(cards[i].Answer, source)
		cards[i].VerificationScore = &score
		cards[i].NeedsReview = score < v.threshold
	}
}

// contentTerms returns the distinct lower-cased words of s that are long
// enough and not stop words, in first-seen order.
func contentTerms(s string) []string {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	seen := make(map[string]struct{}, len(words))
	terms := make([]string, 0, len(words))
	for _, w := range words {
		if len([]rune(w)) < minTermLength {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		terms = append(terms, w)
	}
	return terms
}
