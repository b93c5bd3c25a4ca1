package seo

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"
)

const (
	maxTitleLength       = 120
	maxDescriptionLength = 155
)

// Issue is a non-fatal problem found in an Seo value.
type Issue struct {
	Field   string
	Message string
}

func (i Issue) String() string { return i.Field + ": " + i.Message }

// Validate reports problems that degrade search or social previews. Issues
// never prevent tags from being generated.
func Validate(s Seo) []Issue {
	var issues []Issue
	if n := utf8.RuneCountInString(s.FullTitle()); n > maxTitleLength {
		issues = append(issues, Issue{"title", fmt.Sprintf("title is %d characters, limit is %d", n, maxTitleLength)})
	}
	if s.TitleTemplate != "" && !strings.Contains(s.TitleTemplate, "%s") {
		issues = append(issues, Issue{"titleTemplate", "template has no %s placeholder"})
	}
	if n := utf8.RuneCountInString(s.Description); n > maxDescriptionLength {
		issues = append(issues, Issue{"description", fmt.Sprintf("description is %d characters, limit is %d", n, maxDescriptionLength)})
	}
	if s.URL != "" {
		if u, err := url.Parse(s.URL); err != nil || !u.IsAbs() {
			issues = append(issues, Issue{"url", "canonical url must be absolute"})
		}
	}
	if s.Handle != "" && !strings.HasPrefix(s.Handle, "@") {
		issues = append(issues, Issue{"handle", "handle must start with @"})
	}
	for _, m := range s.Media.Items() {
		switch m.Type {
		case "", MediaImage, MediaVideo, MediaAudio:
		default:
			issues = append(issues, Issue{"media", fmt.Sprintf("unknown media type %q", m.Type)})
		}
	}
	for _, d := range s.LDJSON {
		if !d.Type().Valid() {
			issues = append(issues, Issue{"ldJson", fmt.Sprintf("unsupported schema type %q", d.Type())})
		}
	}
	return issues
}
