// Package domain defines the core business entities and errors.
package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrEmptyContent is returned when required content is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrNoCardTypes is returned when a request asks for no card types at all.
	ErrNoCardTypes = errors.New("at least one card type is required")

	// ErrInvalidCardType is returned when a requested card type is unknown.
	ErrInvalidCardType = errors.New("invalid card type")

	// ErrInvalidGranularity is returned when granularity is outside 1-7.
	ErrInvalidGranularity = errors.New("granularity must be between 1 and 7")

	// ErrInvalidImageURL is returned when a reference image has a malformed URL.
	ErrInvalidImageURL = errors.New("invalid image URL")
)
