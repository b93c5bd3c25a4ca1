package seo

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

// PlainText strips markup from s and collapses whitespace, for use in
// descriptions sourced from rich text.
func PlainText(s string) string {
	// keep adjacent block elements from running together
	s = strings.ReplaceAll(s, "<", " <")
	out := html.UnescapeString(strictPolicy.Sanitize(s))
	return strings.Join(strings.Fields(out), " ")
}
