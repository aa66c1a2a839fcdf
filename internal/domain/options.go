package domain

import (
	"fmt"
	"net/url"
	"strings"
)

// Granularity bounds for GenerationOptions.
const (
	MinGranularity = 1
	MaxGranularity = 7
)

// ImageRef is a reference image supplied alongside the source content.
// PageNumber is nil when the image is not tied to a page.
type ImageRef struct {
	URL        string `json:"url"`
	PageNumber *int   `json:"pageNumber,omitempty"`
}

// GenerationOptions describes a single flashcard generation request.
type GenerationOptions struct {
	Content            string     `json:"content"`
	CardTypes          []CardType `json:"cardTypes"`
	Granularity        int        `json:"granularity"`
	CustomInstructions string     `json:"customInstructions,omitempty"`
	CreateSubdecks     bool       `json:"createSubdecks"`
	Images             []ImageRef `json:"images,omitempty"`
}

// Validate checks the systemic input invariants of a request. Any error
// returned wraps ErrValidation and is fatal for the request.
func (o GenerationOptions) Validate() error {
	if strings.TrimSpace(o.Content) == "" {
		return fmt.Errorf("%w: %w", ErrValidation, ErrEmptyContent)
	}

	if len(o.CardTypes) == 0 {
		return fmt.Errorf("%w: %w", ErrValidation, ErrNoCardTypes)
	}

	for _, ct := range o.CardTypes {
		if !ct.Valid() {
			return fmt.Errorf("%w: %w: %q", ErrValidation, ErrInvalidCardType, ct)
		}
	}

	if o.Granularity < MinGranularity || o.Granularity > MaxGranularity {
		return fmt.Errorf("%w: %w (got %d)", ErrValidation, ErrInvalidGranularity, o.Granularity)
	}

	for i, img := range o.Images {
		if !IsValidImageURL(img.URL) {
			return fmt.Errorf("%w: %w: image %d", ErrValidation, ErrInvalidImageURL, i)
		}
	}

	return nil
}

// HasCardType reports whether the request asks for the given card type.
func (o GenerationOptions) HasCardType(ct CardType) bool {
	for _, c := range o.CardTypes {
		if c == ct {
			return true
		}
	}
	return false
}

// IsValidImageURL reports whether s is an absolute http(s) URL.
func IsValidImageURL(s string) bool {
	u, err := url.ParseRequestURI(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
