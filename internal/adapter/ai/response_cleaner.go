// Package ai holds model-provider plumbing shared by the concrete clients:
// JSON response cleaning and the circuit breaker that guards the provider.
package ai

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	fenceRe         = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")
	trailingCommaRe = regexp.MustCompile(`,(\s*[}\]])`)
)

// ResponseCleaner extracts a JSON object from model output that may carry
// markdown fences, prose around the object, or trailing commas. Quotes
// inside values are never rewritten since answers routinely contain
// apostrophes.
type ResponseCleaner struct{}

// NewResponseCleaner creates a new response cleaner.
func NewResponseCleaner() *ResponseCleaner {
	return &ResponseCleaner{}
}

// CleanJSONResponse returns the best-effort JSON object found in response.
func (rc *ResponseCleaner) CleanJSONResponse(response string) string {
	response = rc.removeMarkdownBlocks(response)
	response = rc.extractJSON(response)
	if rc.IsValidJSON(response) {
		return response
	}
	return trailingCommaRe.ReplaceAllString(response, "$1")
}

func (rc *ResponseCleaner) removeMarkdownBlocks(response string) string {
	if m := fenceRe.FindStringSubmatch(response); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(response)
}

// extractJSON returns the first balanced {...} span, ignoring braces inside strings.
func (rc *ResponseCleaner) extractJSON(response string) string {
	start := strings.Index(response, "{")
	if start == -1 {
		return response
	}
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(response); i++ {
		c := response[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return response[start : i+1]
			}
		}
	}
	return response[start:]
}

// IsValidJSON checks if a string is valid JSON.
func (rc *ResponseCleaner) IsValidJSON(response string) bool {
	return json.Valid([]byte(response))
}

// CleanAndValidateJSON cleans response and fails when no valid JSON remains.
func (rc *ResponseCleaner) CleanAndValidateJSON(response string) (string, error) {
	cleaned := rc.CleanJSONResponse(response)
	if !rc.IsValidJSON(cleaned) {
		return "", &JSONValidationError{
			Original: response,
			Cleaned:  cleaned,
			Message:  "cleaned response is still not valid JSON",
		}
	}
	return cleaned, nil
}

// JSONValidationError represents a JSON validation error.
type JSONValidationError struct {
	Original string
	Cleaned  string
	Message  string
}

func (e *JSONValidationError) Error() string {
	return e.Message
}
