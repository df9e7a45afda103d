package helpers

import "strings"

// IsEmpty checks if a string is empty or contains only whitespace.
func IsEmpty(s string) bool {
	return strings.TrimSpace(s) == ""
}

// DefaultString returns the first non-blank string from the provided options.
//
// Example:
//
//	q := helpers.DefaultString(parsed.CleanQuery, raw) // raw when the model returned ""
func DefaultString(options ...string) string {
	for _, option := range options {
		if !IsEmpty(option) {
			return option
		}
	}
	return ""
}
