package page

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	textPolicy = bluemonday.StrictPolicy()
	htmlPolicy = bluemonday.UGCPolicy()
)

// TextPreview reduces markup to a plain-text snippet of at most n runes.
// Script, style, and title contents are dropped along with all tags.
func TextPreview(raw []byte, n int) string {
	text := textPolicy.Sanitize(string(raw))
	text = html.UnescapeString(text)
	text = strings.Join(strings.Fields(text), " ")

	if n > 0 {
		runes := []rune(text)
		if len(runes) > n {
			text = strings.TrimSpace(string(runes[:n])) + "..."
		}
	}
	return text
}

// SafeHTML sanitizes markup down to user-generated-content rules, keeping
// formatting but stripping scripts and event handlers.
func SafeHTML(raw []byte) []byte {
	return htmlPolicy.SanitizeBytes(raw)
}
