package utils

import (
	"html"

	"github.com/microcosm-cc/bluemonday"
)

var textPolicy = bluemonday.StrictPolicy()

// SanitizeText strips all markup from free text such as check-in answers.
// The result is plain text: entities escaped by the policy are decoded again.
func SanitizeText(input string) string {
	return html.UnescapeString(textPolicy.Sanitize(input))
}
