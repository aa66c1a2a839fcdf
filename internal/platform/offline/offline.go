// Package offline implements a deterministic generation.Backend that needs
// no network access. It outlines markdown headings and turns declarative
// sentences into flashcards using simple importance heuristics. It is
// intended for local runs, demos, and tests.
package offline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/phrazzld/scry-cards/internal/domain"
	"github.com/phrazzld/scry-cards/internal/generation"
)

// defaultMinImportance applies when the system prompt carries no threshold.
const defaultMinImportance = 5

var (
	importanceRe = regexp.MustCompile(`importance (\d+) or higher`)
	headingRe    = regexp.MustCompile(`^(#{1,6})\s+(.+?)\s*#*$`)
	definitionRe = regexp.MustCompile(`^(.{2,80}?)\s+(?:is|are|was|were|means|refers to)\s+(.+)$`)
)

// Backend is the offline generation backend.
type Backend struct {
	logger *slog.Logger
}

var _ generation.Backend = (*Backend)(nil)

// New creates an offline Backend.
func New(logger *slog.Logger) *Backend {
	return &Backend{logger: logger.With("component", "offline_backend")}
}

// Name implements generation.Backend.
func (b *Backend) Name() string { return "offline" }

// StructuredGenerate implements generation.Backend.
func (b *Backend) StructuredGenerate(ctx context.Context, req generation.StructuredRequest) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out any
	switch req.Purpose {
	case generation.PurposeOutline:
		out = outlineOf(req.UserContent)
	case generation.PurposeFlashcards:
		out = b.cardsFor(req)
	default:
		return nil, fmt.Errorf("%w: unsupported purpose %q", generation.ErrInvalidConfig, req.Purpose)
	}

	raw, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", generation.ErrInvalidResponse, err)
	}
	return generation.ResolveImageRefs(raw, req.Images, b.logger)
}

// outlineOf treats the shallowest heading level present as topics and
// deeper headings as subtopics of the preceding topic. Deeper headings that
// precede every topic are dropped.
func outlineOf(content string) domain.TopicOutline {
	type heading struct {
		level int
		title string
	}

	var headings []heading
	top := 7
	for _, line := range strings.Split(content, "\n") {
		m := headingRe.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		h := heading{level: len(m[1]), title: strings.TrimSpace(m[2])}
		headings = append(headings, h)
		top = min(top, h.level)
	}

	outline := domain.TopicOutline{Topics: []domain.Topic{}}
	for _, h := range headings {
		switch {
		case h.level == top:
			outline.Topics = append(outline.Topics, domain.Topic{Title: h.title})
		case len(outline.Topics) > 0:
			last := &outline.Topics[len(outline.Topics)-1]
			last.Subtopics = append(last.Subtopics, h.title)
		}
	}
	return outline
}

type card struct {
	Question      string `json:"question"`
	Answer        string `json:"answer"`
	CardType      string `json:"cardType"`
	Subtopic      string `json:"subtopic,omitempty"`
	SourceExcerpt string `json:"sourceExcerpt"`
	ImageRef      *int   `json:"imageRef,omitempty"`
}

type cardsResponse struct {
	Cards []card `json:"cards"`
}

type sentence struct {
	text       string
	heading    string
	importance int
}

func (b *Backend) cardsFor(req generation.StructuredRequest) cardsResponse {
	threshold := minImportance(req.SystemPrompt)
	cardTypes, subdecks, images := schemaOptions(req.Schema)

	resp := cardsResponse{Cards: []card{}}
	for _, s := range sentences(req.UserContent) {
		if s.importance < threshold {
			continue
		}
		ct := cardTypes[len(resp.Cards)%len(cardTypes)]
		c := makeCard(ct, s.text)
		if subdecks {
			c.Subtopic = s.heading
			if c.Subtopic == "" {
				c.Subtopic = "General"
			}
		}
		if images {
			zero := 0
			c.ImageRef = &zero
		}
		resp.Cards = append(resp.Cards, c)
	}

	b.logger.Debug("generated offline cards",
		"min_importance", threshold,
		"card_count", len(resp.Cards))
	return resp
}

func minImportance(prompt string) int {
	m := importanceRe.FindStringSubmatch(prompt)
	if m == nil {
		return defaultMinImportance
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return defaultMinImportance
	}
	return n
}

// schemaOptions recovers the requested card types, whether subtopics are
// wanted, and whether images are attached from the flashcard schema.
func schemaOptions(schema *generation.Schema) (cardTypes []domain.CardType, subdecks, images bool) {
	cardTypes = []domain.CardType{domain.CardTypeQA}
	if schema == nil || schema.Properties["cards"] == nil || schema.Properties["cards"].Items == nil {
		return cardTypes, false, false
	}

	item := schema.Properties["cards"].Items
	if ct := item.Properties["cardType"]; ct != nil && len(ct.Enum) > 0 {
		cardTypes = cardTypes[:0]
		for _, e := range ct.Enum {
			cardTypes = append(cardTypes, domain.ParseCardType(e))
		}
	}
	_, subdecks = item.Properties["subtopic"]
	_, images = item.Properties[generation.ImageRefField]
	return cardTypes, subdecks, images
}

// sentences splits content into sentences tagged with their nearest
// heading and a 1-10 importance score.
func sentences(content string) []sentence {
	var (
		out          []sentence
		heading      string
		paragraphPos int
	)
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			paragraphPos = 0
			continue
		}
		if m := headingRe.FindStringSubmatch(line); m != nil {
			heading = strings.TrimSpace(m[2])
			paragraphPos = 0
			continue
		}
		for _, text := range splitSentences(line) {
			out = append(out, sentence{
				text:       text,
				heading:    heading,
				importance: score(text, paragraphPos),
			})
			paragraphPos++
		}
	}
	return out
}

func splitSentences(line string) []string {
	var (
		out   []string
		start int
	)
	runes := []rune(line)
	for i, r := range runes {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
			out = append(out, s)
		}
		start = i + 1
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		out = append(out, s)
	}
	return out
}

// score rates a sentence: definitions and paragraph openers matter most,
// numbers and longer statements add detail value, and very short fragments
// or questions score lowest.
func score(text string, paragraphPos int) int {
	words := len(strings.Fields(text))
	if words < 3 || strings.HasSuffix(text, "?") {
		return 1
	}

	s := 2
	if definitionRe.MatchString(strings.TrimRight(text, ".!")) {
		s += 4
	}
	if paragraphPos == 0 {
		s += 2
	}
	if strings.IndexFunc(text, unicode.IsDigit) >= 0 {
		s++
	}
	if words >= 8 {
		s++
	}
	return min(s, 10)
}

func makeCard(ct domain.CardType, text string) card {
	body := strings.TrimRight(text, ".!")
	c := card{CardType: string(ct), SourceExcerpt: text}

	term, definition, isDefinition := splitDefinition(body)
	switch {
	case ct == domain.CardTypeCloze:
		key := keyTerm(body)
		c.Question = strings.Replace(text, key, "{{c1::"+key+"}}", 1)
		c.Answer = key
	case isDefinition && ct == domain.CardTypeReverse:
		c.Question = term
		c.Answer = definition
	case isDefinition:
		c.Question = "What is " + term + "?"
		c.Answer = definition
	default:
		c.Question = "What does the material state about " + leadingWords(body, 4) + "?"
		c.Answer = text
	}
	return c
}

func splitDefinition(body string) (term, definition string, ok bool) {
	m := definitionRe.FindStringSubmatch(body)
	if m == nil {
		return "", "", false
	}
	return strings.TrimSpace(m[1]), strings.TrimSpace(m[2]), true
}

// keyTerm returns the longest word of s, the first one on ties.
func keyTerm(s string) string {
	best := ""
	for _, w := range strings.Fields(s) {
		w = strings.TrimFunc(w, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsNumber(r) })
		if len([]rune(w)) > len([]rune(best)) {
			best = w
		}
	}
	return best
}

func leadingWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}
