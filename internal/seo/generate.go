package seo

import (
	"mime"
	"net/url"
	"path"
	"sort"
	"strconv"
	"strings"
)

// Generate builds the head tags for s. Tags are ordered title, base, meta,
// link, script; within a kind they keep insertion order.
func Generate(s Seo) []HeadTag {
	var set tagSet

	if title := s.FullTitle(); title != "" {
		set.add(HeadTag{Tag: TagTitle, Children: title, Key: "title"})
		set.add(property("og:title", title))
		set.add(named("twitter:title", title))
	}

	if desc := strings.TrimSpace(s.Description); desc != "" {
		set.add(named("description", desc))
		set.add(property("og:description", desc))
		set.add(named("twitter:description", desc))
	}

	if u := strings.TrimSpace(s.URL); u != "" {
		set.add(HeadTag{Tag: TagLink, Props: map[string]string{"rel": "canonical", "href": u}, Key: "canonical"})
		set.add(property("og:url", u))
	}

	if h := strings.TrimSpace(s.Handle); h != "" {
		set.add(named("twitter:site", h))
		set.add(named("twitter:creator", h))
	}

	for _, t := range mediaTags(s.Media) {
		set.add(t)
	}

	if r := strings.TrimSpace(s.Robots); r != "" {
		set.add(named("robots", r))
	}

	for _, alt := range s.Alternates {
		if alt.Href == "" || alt.Hreflang == "" {
			continue
		}
		set.add(HeadTag{
			Tag:   TagLink,
			Props: map[string]string{"rel": "alternate", "hreflang": alt.Hreflang, "href": alt.Href},
			Key:   "alternate-" + alt.Hreflang,
		})
	}

	for _, doc := range s.LDJSON {
		if t, ok := ldJSONTag(doc); ok {
			set.add(t)
		}
	}

	return Collect(set.tags)
}

// Collect dedupes tags by key (last value wins, first position kept) and
// orders them by kind.
func Collect(groups ...[]HeadTag) []HeadTag {
	var set tagSet
	for _, g := range groups {
		for _, t := range g {
			set.add(t)
		}
	}
	out := set.tags
	sort.SliceStable(out, func(i, j int) bool {
		return tagRank(out[i].Tag) < tagRank(out[j].Tag)
	})
	return out
}

type tagSet struct {
	tags  []HeadTag
	index map[string]int
}

func (s *tagSet) add(t HeadTag) {
	if t.Key != "" {
		if s.index == nil {
			s.index = map[string]int{}
		}
		if i, ok := s.index[t.Key]; ok {
			s.tags[i] = t
			return
		}
		s.index[t.Key] = len(s.tags)
	}
	s.tags = append(s.tags, t)
}

func tagRank(k TagKey) int {
	switch k {
	case TagTitle:
		return 0
	case TagBase:
		return 1
	case TagMeta:
		return 2
	case TagLink:
		return 3
	case TagScript:
		return 4
	default:
		return 5
	}
}

func named(name, content string) HeadTag {
	return HeadTag{Tag: TagMeta, Props: map[string]string{"name": name, "content": content}, Key: name}
}

func property(prop, content string) HeadTag {
	return HeadTag{Tag: TagMeta, Props: map[string]string{"property": prop, "content": content}, Key: prop}
}

func mediaTags(m MediaValue) []HeadTag {
	if m.IsZero() {
		return nil
	}
	if u := m.URL(); u != "" {
		tags := []HeadTag{property("og:image", u)}
		if isSecure(u) {
			tags = append(tags, property("og:image:secure_url", u))
		}
		tags = append(tags,
			named("twitter:image", u),
			named("twitter:card", "summary_large_image"),
		)
		return tags
	}

	var tags []HeadTag
	for i, it := range m.Items() {
		kind := it.Type
		if kind == "" {
			kind = MediaImage
		}
		prefix := "og:" + string(kind)
		keyed := func(prop, content string) HeadTag {
			t := property(prop, content)
			t.Key = prop + "#" + strconv.Itoa(i)
			return t
		}
		tags = append(tags, keyed(prefix, it.URL), keyed(prefix+":url", it.URL))
		if isSecure(it.URL) {
			tags = append(tags, keyed(prefix+":secure_url", it.URL))
		}
		if mt := inferMIME(it.URL); mt != "" {
			tags = append(tags, keyed(prefix+":type", mt))
		}
		if it.Width > 0 {
			tags = append(tags, keyed(prefix+":width", strconv.Itoa(it.Width)))
		}
		if it.Height > 0 {
			tags = append(tags, keyed(prefix+":height", strconv.Itoa(it.Height)))
		}
		if alt := strings.TrimSpace(it.Alt); alt != "" {
			tags = append(tags, keyed(prefix+":alt", alt))
		}
		if i == 0 && kind == MediaImage {
			tags = append(tags, named("twitter:image", it.URL), named("twitter:card", "summary_large_image"))
		}
	}
	return tags
}

func isSecure(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && strings.EqualFold(u.Scheme, "https")
}

func inferMIME(raw string) string {
	p := raw
	if u, err := url.Parse(raw); err == nil {
		p = u.Path
	}
	ext := strings.ToLower(path.Ext(p))
	if ext == "" {
		return ""
	}
	if mt, ok := knownMIME[ext]; ok {
		return mt
	}
	mt := mime.TypeByExtension(ext)
	if i := strings.IndexByte(mt, ';'); i != -1 {
		mt = strings.TrimSpace(mt[:i])
	}
	return mt
}

// knownMIME pins common media types so output does not depend on the host's
// mime tables.
var knownMIME = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".avif": "image/avif",
	".svg":  "image/svg+xml",
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".mov":  "video/quicktime",
	".mp3":  "audio/mpeg",
	".ogg":  "audio/ogg",
	".wav":  "audio/wav",
}
