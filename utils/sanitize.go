package utils

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var sanitizer = bluemonday.StrictPolicy()

// SanitizeText strips all markup from a plain text field and trims it.
func SanitizeText(input string) string {
	// StrictPolicy escapes entities; titles are stored as plain text
	return strings.TrimSpace(html.UnescapeString(sanitizer.Sanitize(input)))
}
