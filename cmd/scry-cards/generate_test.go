package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/phrazzld/scry-cards/internal/domain"
	"github.com/phrazzld/scry-cards/internal/extract"
	"github.com/phrazzld/scry-cards/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const offlineConfig = `
llm:
  provider: offline
  model_name: offline
pipeline:
  tier: pro
log:
  level: error
  format: text
`

const studyNotes = `# Photosynthesis

Photosynthesis is the process by which plants convert light energy into chemical energy.
Chlorophyll is the pigment that absorbs light in the chloroplast.

## Light reactions

The light reactions take place in the thylakoid membranes and produce ATP and NADPH.
`

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestParseImages(t *testing.T) {
	t.Parallel()

	images, err := parseImages([]string{
		"https://example.com/a.png",
		"https://example.com/b.png#3",
		"https://example.com/c.png#section",
		" ",
	})
	require.NoError(t, err)
	require.Len(t, images, 3)

	assert.Equal(t, "https://example.com/a.png", images[0].URL)
	assert.Nil(t, images[0].PageNumber)

	assert.Equal(t, "https://example.com/b.png", images[1].URL)
	require.NotNil(t, images[1].PageNumber)
	assert.Equal(t, 3, *images[1].PageNumber)

	assert.Equal(t, "https://example.com/c.png#section", images[2].URL)
	assert.Nil(t, images[2].PageNumber)

	_, err = parseImages([]string{"https://example.com/a.png#0"})
	assert.ErrorIs(t, err, errUsage)
}

func TestParseCardTypes(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		[]domain.CardType{domain.CardTypeQA, domain.CardTypeCloze, domain.CardTypeReverse},
		parseCardTypes([]string{"QA", "cloze, reverse", ""}))
	assert.Empty(t, parseCardTypes(nil))
}

// The end-to-end tests set the default slog logger, so they do not run in
// parallel and restore it when done.
func keepDefaultLogger(t *testing.T) {
	t.Helper()
	original := slog.Default()
	t.Cleanup(func() { slog.SetDefault(original) })
}

func TestGenerateCommand_WritesDeckToStdout(t *testing.T) {
	keepDefaultLogger(t)
	cfgPath := writeTemp(t, "config.yaml", offlineConfig)
	input := writeTemp(t, "notes.md", studyNotes)

	var stdout bytes.Buffer
	err := newCommand(&stdout).Run(context.Background(), []string{
		"scry-cards", "generate",
		"--config", cfgPath,
		"--input", input,
		"--card-type", "qa",
		"--card-type", "cloze",
		"--granularity", "7",
		"--subdecks",
	})
	require.NoError(t, err)

	var deck pipeline.Deck
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &deck))
	require.NotEmpty(t, deck.Flashcards)
	assert.Equal(t, 1, deck.ChunkCount)
	assert.NotEmpty(t, deck.Subdecks)
	for _, card := range deck.Flashcards {
		assert.Contains(t, []domain.CardType{domain.CardTypeQA, domain.CardTypeCloze}, card.CardType)
	}
}

func TestGenerate_WritesDeckToFile(t *testing.T) {
	keepDefaultLogger(t)
	cfgPath := writeTemp(t, "config.yaml", offlineConfig)
	input := writeTemp(t, "notes.txt", studyNotes)
	output := filepath.Join(t.TempDir(), "deck.json")

	var stdout bytes.Buffer
	err := generate(context.Background(), generateRequest{
		ConfigPath:  cfgPath,
		InputPath:   input,
		OutputPath:  output,
		CardTypes:   []string{"qa"},
		Granularity: 5,
	}, &stdout)
	require.NoError(t, err)
	assert.Zero(t, stdout.Len())

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(data), "\n"))

	var deck pipeline.Deck
	require.NoError(t, json.Unmarshal(data, &deck))
	assert.NotEmpty(t, deck.Flashcards)
	assert.Empty(t, deck.Subdecks)
}

func TestGenerate_Errors(t *testing.T) {
	keepDefaultLogger(t)
	cfgPath := writeTemp(t, "config.yaml", offlineConfig)
	input := writeTemp(t, "notes.md", studyNotes)

	t.Run("empty document", func(t *testing.T) {
		err := generate(context.Background(), generateRequest{
			ConfigPath:  cfgPath,
			InputPath:   writeTemp(t, "blank.md", "\n\n"),
			CardTypes:   []string{"qa"},
			Granularity: 5,
		}, &bytes.Buffer{})
		assert.ErrorIs(t, err, extract.ErrNoText)
	})

	t.Run("invalid granularity", func(t *testing.T) {
		err := generate(context.Background(), generateRequest{
			ConfigPath:  cfgPath,
			InputPath:   input,
			CardTypes:   []string{"qa"},
			Granularity: 11,
		}, &bytes.Buffer{})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("unknown card type", func(t *testing.T) {
		err := generate(context.Background(), generateRequest{
			ConfigPath:  cfgPath,
			InputPath:   input,
			CardTypes:   []string{"essay"},
			Granularity: 5,
		}, &bytes.Buffer{})
		assert.ErrorIs(t, err, domain.ErrInvalidCardType)
	})

	t.Run("missing config file", func(t *testing.T) {
		err := generate(context.Background(), generateRequest{
			ConfigPath:  filepath.Join(t.TempDir(), "missing.yaml"),
			InputPath:   input,
			CardTypes:   []string{"qa"},
			Granularity: 5,
		}, &bytes.Buffer{})
		assert.Error(t, err)
	})
}
