package generation

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/phrazzld/scry-cards/internal/domain"
)

// CoverageLevel is the textual inclusion policy bound to a granularity value.
type CoverageLevel struct {
	Granularity   int
	Name          string
	MinImportance int
	Policy        string
}

// coverageLevels is indexed by granularity-1. Importance is scored 1-10 by
// the model; only facts at or above MinImportance become cards.
var coverageLevels = []CoverageLevel{
	{1, "Essentials", 9, "Only core definitions and the few facts a reader must know. Skip everything else."},
	{2, "Key concepts", 8, "Core definitions plus the central concepts and their primary relationships."},
	{3, "Main ideas", 7, "All main ideas of the text with their most important supporting facts."},
	{4, "Balanced", 5, "Main ideas and notable supporting details, mechanisms, and named examples."},
	{5, "Detailed", 4, "Most facts, including secondary details, numbers, and exceptions."},
	{6, "Thorough", 2, "Nearly every fact, including minor details and qualifiers."},
	{7, "Exhaustive", 1, "Every testable fact in the text, no matter how minor."},
}

// CoverageFor returns the coverage level for granularity, clamping values
// outside 1-7 to the nearest bound.
func CoverageFor(granularity int) CoverageLevel {
	switch {
	case granularity < domain.MinGranularity:
		granularity = domain.MinGranularity
	case granularity > domain.MaxGranularity:
		granularity = domain.MaxGranularity
	}
	return coverageLevels[granularity-1]
}

var cardTypeInstructions = map[domain.CardType]string{
	domain.CardTypeQA:      `"qa": a direct question on the front and a concise answer on the back.`,
	domain.CardTypeCloze:   `"cloze": a sentence from the material with the key term wrapped as {{c1::term}} in the question; the answer is the hidden term.`,
	domain.CardTypeReverse: `"reverse": a term/definition pair that is studied in both directions; put the term in the question and the definition in the answer.`,
}

const defaultPromptTemplate = `You are an expert educator who turns study material into high quality flashcards.

Score every fact in the material for importance from 1 (trivial) to 10 (essential).
Coverage level: {{.Coverage.Name}} (level {{.Coverage.Granularity}} of 7).
Only create cards for facts with importance {{.Coverage.MinImportance}} or higher.
{{.Coverage.Policy}}

Card types to produce:
{{range .CardTypes}}- {{.}}
{{end}}
Rules:
- Each card tests exactly one fact and must be answerable from the material alone.
- Never invent facts that are not in the material.
- Include a short verbatim sourceExcerpt supporting each answer.
- If nothing in the material meets the coverage level, return an empty cards array.
{{- if .Subdecks}}
- Assign every card a short subtopic name taken from the material's own headings or topics. Reuse the same name for cards on the same subtopic.
{{- end}}
{{- if .Images}}

Reference images are attached in this order:
{{range .Images}}- Image {{.Number}}{{if .Page}} (page {{.Page}}){{end}}
{{end}}For each card choose the single most relevant image by page or content match and return its number as imageRef, or 0 when no image fits.
{{- end}}
{{- if .ChunkContext}}

This material is the section: {{.ChunkContext}}
{{- end}}
{{- if .CustomInstructions}}

Additional instructions from the user:
{{.CustomInstructions}}
{{- end}}`

type promptImage struct {
	Number int
	Page   int
}

type promptData struct {
	Coverage           CoverageLevel
	CardTypes          []string
	Subdecks           bool
	Images             []promptImage
	ChunkContext       string
	CustomInstructions string
}

// loadPromptTemplate parses the template at path, or the built-in template
// when path is empty.
func loadPromptTemplate(path string) (*template.Template, error) {
	text := defaultPromptTemplate
	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read prompt template from %s: %v",
				ErrInvalidConfig, path, err)
		}
		text = string(content)
	}

	tmpl, err := template.New("flashcards").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse prompt template: %v", ErrInvalidConfig, err)
	}
	return tmpl, nil
}

// buildSystemPrompt renders the system prompt for one chunk.
func buildSystemPrompt(tmpl *template.Template, opts domain.GenerationOptions, chunkContext string) (string, error) {
	data := promptData{
		Coverage:           CoverageFor(opts.Granularity),
		Subdecks:           opts.CreateSubdecks,
		ChunkContext:       chunkContext,
		CustomInstructions: strings.TrimSpace(opts.CustomInstructions),
	}
	for _, ct := range opts.CardTypes {
		if instr, ok := cardTypeInstructions[ct]; ok {
			data.CardTypes = append(data.CardTypes, instr)
		}
	}
	for i, img := range opts.Images {
		pi := promptImage{Number: i + 1}
		if img.PageNumber != nil {
			pi.Page = *img.PageNumber
		}
		data.Images = append(data.Images, pi)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}
	return buf.String(), nil
}
