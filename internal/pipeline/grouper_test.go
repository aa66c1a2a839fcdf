package pipeline_test

import (
	"testing"

	"github.com/phrazzld/scry-cards/internal/domain"
	"github.com/phrazzld/scry-cards/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func card(q, subtopic string) domain.GeneratedFlashcard {
	return domain.GeneratedFlashcard{Question: q, Answer: "a", CardType: domain.CardTypeQA, Subtopic: subtopic}
}

func TestGroupBySubtopic(t *testing.T) {
	t.Parallel()

	cards := []domain.GeneratedFlashcard{
		card("1", "Treatment"),
		card("2", "Diagnosis"),
		card("3", "treatment"),
		card("4", ""),
		card("5", "  TREATMENT "),
		card("6", "   "),
	}

	groups := pipeline.GroupBySubtopic(cards)

	require.Len(t, groups, 3)
	assert.Equal(t, "Diagnosis", groups[0].Subtopic)
	assert.Equal(t, "General", groups[1].Subtopic)
	assert.Equal(t, "Treatment", groups[2].Subtopic, "first-seen casing names the group")

	var questions []string
	for _, c := range groups[2].Flashcards {
		questions = append(questions, c.Question)
	}
	assert.Equal(t, []string{"1", "3", "5"}, questions, "cards keep input order")
	assert.Len(t, groups[1].Flashcards, 2)
}

func TestGroupBySubtopic_SortIgnoresCase(t *testing.T) {
	t.Parallel()

	groups := pipeline.GroupBySubtopic([]domain.GeneratedFlashcard{
		card("1", "cherry"),
		card("2", "Banana"),
		card("3", "apple"),
	})

	names := make([]string, 0, len(groups))
	for _, g := range groups {
		names = append(names, g.Subtopic)
	}
	assert.Equal(t, []string{"apple", "Banana", "cherry"}, names)
}

func TestGroupBySubtopic_Idempotent(t *testing.T) {
	t.Parallel()

	cards := []domain.GeneratedFlashcard{
		card("1", "beta"),
		card("2", "Alpha"),
		card("3", "BETA"),
		card("4", "alpha"),
		card("5", ""),
	}

	first := pipeline.GroupBySubtopic(cards)

	var flattened []domain.GeneratedFlashcard
	for _, g := range first {
		flattened = append(flattened, g.Flashcards...)
	}
	second := pipeline.GroupBySubtopic(flattened)

	assert.Equal(t, first, second)
}

func TestGroupBySubtopic_Empty(t *testing.T) {
	t.Parallel()

	groups := pipeline.GroupBySubtopic(nil)
	assert.NotNil(t, groups)
	assert.Empty(t, groups)
}
