// Package gemini adapts Google's Gemini API to the generation.Backend
// interface.
//
// Requests are sent with a JSON response MIME type and a response schema
// translated from generation.Schema, so the model's output is constrained to
// the requested shape. Attached images are passed as URI parts preceded by a
// numbered label that the model uses to reference them.
//
// Errors are translated into the generation package's sentinel errors:
//   - safety blocks become generation.ErrContentBlocked
//   - missing or non-JSON output becomes generation.ErrInvalidResponse
//   - authentication and permission failures become generation.ErrInvalidConfig
//   - everything else, including rate limits, becomes generation.ErrTransientFailure
package gemini
