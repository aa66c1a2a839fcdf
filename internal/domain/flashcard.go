package domain

import "strings"

// CardType is the shape of a generated flashcard.
type CardType string

// Supported card types.
const (
	CardTypeQA      CardType = "qa"
	CardTypeCloze   CardType = "cloze"
	CardTypeReverse CardType = "reverse"
)

// AllCardTypes lists every supported card type in display order.
var AllCardTypes = []CardType{CardTypeQA, CardTypeCloze, CardTypeReverse}

// Valid reports whether the card type is one of the supported variants.
func (c CardType) Valid() bool {
	switch c {
	case CardTypeQA, CardTypeCloze, CardTypeReverse:
		return true
	default:
		return false
	}
}

// ParseCardType normalizes s into a CardType. Unknown or empty values are
// coerced to CardTypeQA rather than rejected.
func ParseCardType(s string) CardType {
	ct := CardType(strings.ToLower(strings.TrimSpace(s)))
	if ct.Valid() {
		return ct
	}
	return CardTypeQA
}

// GeneratedFlashcard is a single card produced by the pipeline.
type GeneratedFlashcard struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	CardType CardType `json:"cardType"`

	// Subtopic is only populated when sub-deck organization was requested.
	Subtopic string `json:"subtopic,omitempty"`

	// ImageURL is always a resolved, absolute URL when present.
	ImageURL string `json:"imageUrl,omitempty"`

	SourceExcerpt string `json:"sourceExcerpt,omitempty"`

	// VerificationScore (0-100) and NeedsReview are advisory and only set
	// when fact verification ran.
	VerificationScore *int `json:"verificationScore,omitempty"`
	NeedsReview       bool `json:"needsReview,omitempty"`
}

// SubdeckGroup is a named bucket of flashcards sharing a subtopic.
type SubdeckGroup struct {
	Subtopic   string               `json:"subtopic"`
	Flashcards []GeneratedFlashcard `json:"flashcards"`
}
