package seo

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"sort"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrInvalidTag is returned by Render for tags that cannot be serialized.
var ErrInvalidTag = errors.New("seo: invalid head tag")

// Render serializes tags as HTML, one element per line. Attributes are
// written in sorted order; script bodies are written verbatim.
func Render(tags []HeadTag) (template.HTML, error) {
	var buf bytes.Buffer
	for i, t := range tags {
		n, err := node(t)
		if err != nil {
			return "", err
		}
		if i > 0 {
			buf.WriteByte('\n')
		}
		if err := html.Render(&buf, n); err != nil {
			return "", fmt.Errorf("seo: render %s: %w", t.Tag, err)
		}
	}
	return template.HTML(buf.String()), nil
}

func node(t HeadTag) (*html.Node, error) {
	var a atom.Atom
	switch t.Tag {
	case TagTitle:
		a = atom.Title
	case TagBase:
		a = atom.Base
	case TagMeta:
		a = atom.Meta
	case TagLink:
		a = atom.Link
	case TagScript:
		a = atom.Script
	default:
		return nil, fmt.Errorf("%w: unknown tag %q", ErrInvalidTag, t.Tag)
	}
	void := a == atom.Base || a == atom.Meta || a == atom.Link
	if void && t.Children != "" {
		return nil, fmt.Errorf("%w: <%s> cannot have content", ErrInvalidTag, t.Tag)
	}

	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
	keys := make([]string, 0, len(t.Props))
	for k := range t.Props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		n.Attr = append(n.Attr, html.Attribute{Key: k, Val: t.Props[k]})
	}
	if t.Children != "" {
		n.AppendChild(&html.Node{Type: html.TextNode, Data: t.Children})
	}
	return n, nil
}
