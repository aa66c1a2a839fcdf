// Package redact removes credentials from strings before they are logged.
// Provider errors frequently echo request URLs and headers, which carry API
// keys in query parameters or bearer tokens.
package redact

import (
	"regexp"
)

// Placeholders substituted for redacted values.
const (
	RedactedCredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	RedactedKeyPlaceholder        = "[REDACTED_KEY]"
	RedactedTokenPlaceholder      = "[REDACTED_TOKEN]"
)

type rule struct {
	pattern     *regexp.Regexp
	replacement string
}

// Rules are applied in order; provider-specific key formats run before the
// generic key=value rule so their placeholders are stable.
var rules = []rule{
	// user:password@ in URLs
	{regexp.MustCompile(`(?i)([a-z][a-z0-9+.-]*://)[^/\s:@]+:[^/\s@]+@`), "${1}" + RedactedCredentialPlaceholder + "@"},
	// Authorization: Bearer <token>
	{regexp.MustCompile(`(?i)(bearer\s+)[A-Za-z0-9_\-.~+/=]{8,}`), "${1}" + RedactedTokenPlaceholder},
	// Google API keys
	{regexp.MustCompile(`AIza[0-9A-Za-z_\-]{20,}`), RedactedKeyPlaceholder},
	// OpenAI-style secret keys
	{regexp.MustCompile(`\bsk-[A-Za-z0-9_\-]{16,}`), RedactedKeyPlaceholder},
	// JWTs
	{regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`), RedactedTokenPlaceholder},
	// key=..., api_key: ..., x-goog-api-key=...
	{
		regexp.MustCompile(`(?i)((?:x-goog-)?api[_-]?key|key|token|secret|password)(['"]?\s*[:=]\s*['"]?)[A-Za-z0-9_\-.~+/]{6,}`),
		"${1}${2}" + RedactedKeyPlaceholder,
	},
}

// String redacts credentials from input.
func String(input string) string {
	if input == "" {
		return input
	}
	for _, r := range rules {
		input = r.pattern.ReplaceAllString(input, r.replacement)
	}
	return input
}

// Error redacts credentials from err.Error(). A nil error yields "".
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}
