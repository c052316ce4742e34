package validations

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var spacesRegex *regexp.Regexp = regexp.MustCompile(`\s+`)

var sanitization = bluemonday.StrictPolicy()

// CleanUpText strips markup and collapses whitespace. Anchor text in real
// browser exports occasionally carries stray tags and entities.
func CleanUpText(text string) string {
	return strings.TrimSpace(html.UnescapeString(
		sanitization.Sanitize(
			spacesRegex.ReplaceAllLiteralString(text, " "),
		)))
}
