package generation

import (
	"testing"

	"github.com/phrazzld/scry-cards/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestVerifier_Score(t *testing.T) {
	t.Parallel()

	v := NewVerifier(0)
	source := "The mitochondria produce ATP through oxidative phosphorylation."

	tests := []struct {
		name   string
		answer string
		want   int
	}{
		{"fully supported", "ATP via oxidative phosphorylation", 100},
		{"half supported", "oxidative glycolysis", 50},
		{"unsupported", "Chloroplasts capture sunlight", 0},
		{"no content terms", "Yes", 100},
		{"case and punctuation", "MITOCHONDRIA!", 100},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, v.Score(tc.answer, source))
		})
	}
}

func TestVerifier_Apply(t *testing.T) {
	t.Parallel()

	v := NewVerifier(60)
	cards := []domain.GeneratedFlashcard{
		{Answer: "oxidative phosphorylation"},
		{Answer: "oxidative glycolysis"},
	}
	v.Apply(cards, "ATP comes from oxidative phosphorylation.")

	assert.Equal(t, 100, *cards[0].VerificationScore)
	assert.False(t, cards[0].NeedsReview)
	assert.Equal(t, 50, *cards[1].VerificationScore)
	assert.True(t, cards[1].NeedsReview)
}

func TestNewVerifier_DefaultThreshold(t *testing.T) {
	t.Parallel()

	assert.Equal(t, DefaultReviewThreshold, NewVerifier(-1).threshold)
	assert.Equal(t, DefaultReviewThreshold, NewVerifier(150).threshold)
	assert.Equal(t, 70, NewVerifier(70).threshold)
}
