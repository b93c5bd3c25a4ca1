// Package seo turns page-level SEO intent into the tags emitted in <head>.
package seo

import "strings"

// TagKey identifies the HTML element a HeadTag renders as.
type TagKey string

const (
	TagTitle  TagKey = "title"
	TagBase   TagKey = "base"
	TagMeta   TagKey = "meta"
	TagLink   TagKey = "link"
	TagScript TagKey = "script"
)

// HeadTag is a single element destined for the document head. Tags sharing a
// non-empty Key collapse into one when collected.
type HeadTag struct {
	Tag      TagKey
	Props    map[string]string
	Children string
	Key      string
}

// SchemaType is the schema.org type of a JSON-LD document.
type SchemaType string

const (
	SchemaProduct      SchemaType = "Product"
	SchemaItemList     SchemaType = "ItemList"
	SchemaOrganization SchemaType = "Organization"
	SchemaWebSite      SchemaType = "WebSite"
	SchemaWebPage      SchemaType = "WebPage"
	SchemaBlogPosting  SchemaType = "BlogPosting"
	SchemaThing        SchemaType = "Thing"
)

// Valid reports whether t is one of the supported schema types.
func (t SchemaType) Valid() bool {
	switch t {
	case SchemaProduct, SchemaItemList, SchemaOrganization, SchemaWebSite,
		SchemaWebPage, SchemaBlogPosting, SchemaThing:
		return true
	}
	return false
}

// MediaType is the Open Graph media kind.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
	MediaAudio MediaType = "audio"
)

// Media describes one Open Graph media object.
type Media struct {
	Type   MediaType
	URL    string
	Height int
	Width  int
	Alt    string
}

// MediaValue holds either a single image URL or a list of typed media.
type MediaValue struct {
	url   string
	items []Media
}

// MediaURL uses u as the page's og:image.
func MediaURL(u string) MediaValue { return MediaValue{url: strings.TrimSpace(u)} }

// MediaList emits og:<type> tags for every item.
func MediaList(items ...Media) MediaValue {
	out := make([]Media, 0, len(items))
	for _, it := range items {
		if strings.TrimSpace(it.URL) == "" {
			continue
		}
		out = append(out, it)
	}
	return MediaValue{items: out}
}

// IsZero reports whether no media was supplied.
func (m MediaValue) IsZero() bool { return m.url == "" && len(m.items) == 0 }

// URL returns the single media URL, if the value was built with MediaURL.
func (m MediaValue) URL() string { return m.url }

// Items returns a copy of the media list.
func (m MediaValue) Items() []Media {
	out := make([]Media, len(m.items))
	copy(out, m.items)
	return out
}

// Alternate is a localized variant of the page.
type Alternate struct {
	Href     string
	Hreflang string
}

// Seo is the declarative SEO description of a page.
type Seo struct {
	Title string
	// TitleTemplate contains a %s placeholder that receives Title.
	TitleTemplate       string
	BypassTitleTemplate bool
	Media               MediaValue
	Description         string
	// URL is the canonical URL of the page.
	URL string
	// Handle is the social handle including the leading @.
	Handle     string
	LDJSON     []JSONLD
	Robots     string
	Alternates []Alternate
}

// ApplyTitleTemplate substitutes title into the first %s of template.
func ApplyTitleTemplate(title, template string) string {
	if title == "" {
		return ""
	}
	if template == "" {
		return title
	}
	return strings.Replace(template, "%s", title, 1)
}

// FullTitle returns the document title after template substitution.
func (s Seo) FullTitle() string {
	if s.BypassTitleTemplate {
		return s.Title
	}
	return ApplyTitleTemplate(s.Title, s.TitleTemplate)
}

// Merge overlays override onto base. Non-empty override fields win; the
// bypass flag always comes from override.
func Merge(base, override Seo) Seo {
	out := base
	if override.Title != "" {
		out.Title = override.Title
	}
	if override.TitleTemplate != "" {
		out.TitleTemplate = override.TitleTemplate
	}
	out.BypassTitleTemplate = override.BypassTitleTemplate
	if !override.Media.IsZero() {
		out.Media = override.Media
	}
	if override.Description != "" {
		out.Description = override.Description
	}
	if override.URL != "" {
		out.URL = override.URL
	}
	if override.Handle != "" {
		out.Handle = override.Handle
	}
	if len(override.LDJSON) > 0 {
		out.LDJSON = override.LDJSON
	}
	if override.Robots != "" {
		out.Robots = override.Robots
	}
	if len(override.Alternates) > 0 {
		out.Alternates = override.Alternates
	}
	return out
}

// MergeAll folds Merge over chain from the root outward.
func MergeAll(chain ...Seo) Seo {
	var out Seo
	for i, s := range chain {
		if i == 0 {
			out = s
			continue
		}
		out = Merge(out, s)
	}
	return out
}
