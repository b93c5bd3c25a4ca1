package testutil

import (
	"bytes"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

// ParseHTML parses the provided HTML payload into a goquery document for assertions.
func ParseHTML(t testing.TB, body []byte) *goquery.Document {
	t.Helper()

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

// ParseHead parses a head fragment by wrapping it in a document shell.
func ParseHead(t testing.TB, fragment string) *goquery.Document {
	t.Helper()

	var b strings.Builder
	b.WriteString("<!doctype html><html><head>")
	b.WriteString(fragment)
	b.WriteString("</head><body></body></html>")
	return ParseHTML(t, []byte(b.String()))
}

// MetaContent returns the content attribute of the meta tag whose name or
// property equals key.
func MetaContent(doc *goquery.Document, key string) (string, bool) {
	sel := doc.Find(`meta[name="` + key + `"], meta[property="` + key + `"]`).First()
	if sel.Length() == 0 {
		return "", false
	}
	return sel.Attr("content")
}
