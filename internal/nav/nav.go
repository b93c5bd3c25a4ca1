package nav

import (
	"net/url"
	"path"
	"strings"

	"github.com/rstol/hydrogen/internal/storefront"
)

// Item is a rendered menu entry.
type Item struct {
	Href     string
	Label    string
	Active   bool
	External bool
	Children []Item
}

// Crumb represents a breadcrumb entry.
type Crumb struct {
	Href   string
	Label  string
	Active bool
}

// FromMenu renders a storefront menu with active state given the current path.
// A nil menu renders as no items.
func FromMenu(m *storefront.Menu, currentPath string) []Item {
	if m == nil {
		return nil
	}
	return fromItems(m.Items, currentPath)
}

func fromItems(items []storefront.MenuItem, currentPath string) []Item {
	if len(items) == 0 {
		return nil
	}
	out := make([]Item, 0, len(items))
	for _, it := range items {
		external := isExternal(it.URL)
		out = append(out, Item{
			Href:     it.URL,
			Label:    it.Title,
			Active:   !external && isActive(hrefPath(it.URL), currentPath),
			External: external,
			Children: fromItems(it.Items, currentPath),
		})
	}
	return out
}

func isExternal(href string) bool {
	u, err := url.Parse(href)
	return err == nil && u.IsAbs()
}

func hrefPath(href string) string {
	if u, err := url.Parse(href); err == nil {
		return u.Path
	}
	return href
}

func isActive(itemPath, currentPath string) bool {
	if currentPath == "" {
		currentPath = "/"
	}
	if itemPath == "/" {
		return currentPath == "/"
	}
	// match exact or prefix boundary: "/pages" or "/pages/..."
	if currentPath == itemPath {
		return true
	}
	return strings.HasPrefix(currentPath, itemPath+"/")
}

// Breadcrumbs builds breadcrumb entries from the current path.
// Rules:
// - Always start with Home (homeLabel)
// - Segments use a prettified label
// - The final crumb uses lastLabel when provided
func Breadcrumbs(currentPath, homeLabel, lastLabel string) []Crumb {
	if currentPath == "" {
		currentPath = "/"
	}
	crumbs := []Crumb{{Href: "/", Label: homeLabel, Active: currentPath == "/"}}
	if currentPath == "/" {
		return crumbs
	}

	clean := path.Clean(currentPath)
	parts := strings.Split(strings.TrimPrefix(clean, "/"), "/")
	href := ""
	for i, seg := range parts {
		if seg == "" {
			continue
		}
		href = href + "/" + seg
		label := titleFromSegment(seg)
		last := i == len(parts)-1
		if last && lastLabel != "" {
			label = lastLabel
		}
		crumbs = append(crumbs, Crumb{Href: href, Label: label, Active: last})
	}
	return crumbs
}

func titleFromSegment(seg string) string {
	if seg == "" {
		return seg
	}
	// replace hyphens/underscores with spaces and capitalize first letter
	s := strings.ReplaceAll(seg, "-", " ")
	s = strings.ReplaceAll(s, "_", " ")
	r := []rune(s)
	r[0] = toUpper(r[0])
	return string(r)
}

func toUpper(r rune) rune {
	// ASCII only is sufficient for slugs here
	if r >= 'a' && r <= 'z' {
		return r - ('a' - 'A')
	}
	return r
}
