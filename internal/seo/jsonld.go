package seo

import (
	"encoding/json"
	"strings"
)

const schemaContext = "https://schema.org"

// JSONLD is a schema.org document. The "@type" entry selects its SchemaType.
type JSONLD map[string]any

// LD returns a document of type t carrying the schema.org context and fields.
func LD(t SchemaType, fields map[string]any) JSONLD {
	d := JSONLD{
		"@context": schemaContext,
		"@type":    string(t),
	}
	for k, v := range fields {
		if k == "@context" || k == "@type" {
			continue
		}
		d[k] = v
	}
	return d
}

// Type returns the document's schema type.
func (d JSONLD) Type() SchemaType {
	v, _ := d["@type"].(string)
	return SchemaType(v)
}

// ldJSONTag encodes d as an application/ld+json script. Documents with an
// unsupported @type are dropped.
func ldJSONTag(d JSONLD) (HeadTag, bool) {
	t := d.Type()
	if !t.Valid() {
		return HeadTag{}, false
	}
	doc := make(map[string]any, len(d)+1)
	for k, v := range d {
		doc[k] = v
	}
	doc["@context"] = schemaContext
	// json.Marshal escapes <, > and & so the payload cannot close the script element.
	b, err := json.Marshal(doc)
	if err != nil {
		return HeadTag{}, false
	}
	return HeadTag{
		Tag:      TagScript,
		Props:    map[string]string{"type": "application/ld+json"},
		Children: string(b),
		Key:      "ld-json-" + strings.ToLower(string(t)),
	}, true
}

// Organization returns a minimal Organization document.
func Organization(name, url, logoURL string, sameAs ...string) JSONLD {
	m := map[string]any{"name": name}
	if url != "" {
		m["url"] = url
	}
	if logoURL != "" {
		m["logo"] = logoURL
	}
	if len(sameAs) > 0 {
		m["sameAs"] = sameAs
	}
	return LD(SchemaOrganization, m)
}

// WebSite returns a WebSite document with an optional SearchAction.
func WebSite(name, url, searchActionURL string) JSONLD {
	m := map[string]any{"name": name}
	if url != "" {
		m["url"] = url
	}
	if searchActionURL != "" {
		m["potentialAction"] = map[string]any{
			"@type":       "SearchAction",
			"target":      searchActionURL + "{search_term_string}",
			"query-input": "required name=search_term_string",
		}
	}
	return LD(SchemaWebSite, m)
}

// BreadcrumbItem maps name and absolute item URL.
type BreadcrumbItem struct {
	Name string
	Item string
}

// BreadcrumbList builds a schema.org BreadcrumbList for embedding in a WebPage.
func BreadcrumbList(items []BreadcrumbItem) map[string]any {
	el := make([]map[string]any, 0, len(items))
	for i, it := range items {
		el = append(el, map[string]any{
			"@type":    "ListItem",
			"position": i + 1,
			"name":     it.Name,
			"item":     it.Item,
		})
	}
	return map[string]any{
		"@type":           "BreadcrumbList",
		"itemListElement": el,
	}
}

// WebPage returns a WebPage document, embedding breadcrumbs when present.
func WebPage(name, url, description string, crumbs []BreadcrumbItem) JSONLD {
	m := map[string]any{"name": name}
	if url != "" {
		m["url"] = url
	}
	if description != "" {
		m["description"] = description
	}
	if len(crumbs) > 0 {
		m["breadcrumb"] = BreadcrumbList(crumbs)
	}
	return LD(SchemaWebPage, m)
}

// Offer is the price information attached to a Product document.
type Offer struct {
	Price        string
	Currency     string
	Availability string // InStock, OutOfStock, ...
	URL          string
	SKU          string
}

// ProductInfo is the input to Product.
type ProductInfo struct {
	Name        string
	Description string
	URL         string
	Images      []string
	SKU         string
	Brand       string
	Offers      []Offer
}

// Product returns a Product document with brand and offers.
func Product(p ProductInfo) JSONLD {
	m := map[string]any{
		"name":        p.Name,
		"description": p.Description,
	}
	if p.URL != "" {
		m["url"] = p.URL
	}
	switch len(p.Images) {
	case 0:
	case 1:
		m["image"] = p.Images[0]
	default:
		m["image"] = p.Images
	}
	if p.SKU != "" {
		m["sku"] = p.SKU
	}
	if p.Brand != "" {
		m["brand"] = map[string]any{"@type": "Thing", "name": p.Brand}
	}
	if len(p.Offers) > 0 {
		offers := make([]map[string]any, 0, len(p.Offers))
		for _, o := range p.Offers {
			offer := map[string]any{
				"@type":         "Offer",
				"price":         o.Price,
				"priceCurrency": o.Currency,
			}
			if o.Availability != "" {
				offer["availability"] = schemaContext + "/" + o.Availability
			}
			if o.URL != "" {
				offer["url"] = o.URL
			}
			if o.SKU != "" {
				offer["sku"] = o.SKU
			}
			offers = append(offers, offer)
		}
		m["offers"] = offers
	}
	return LD(SchemaProduct, m)
}

// ItemList returns an ItemList of the given absolute URLs.
func ItemList(name string, urls []string) JSONLD {
	el := make([]map[string]any, 0, len(urls))
	for i, u := range urls {
		el = append(el, map[string]any{
			"@type":    "ListItem",
			"position": i + 1,
			"url":      u,
		})
	}
	return LD(SchemaItemList, map[string]any{
		"name":            name,
		"itemListElement": el,
	})
}

// BlogPosting returns a minimal BlogPosting document.
func BlogPosting(headline, url, imageURL, authorName, datePublished string) JSONLD {
	m := map[string]any{"headline": headline}
	if url != "" {
		m["url"] = url
	}
	if imageURL != "" {
		m["image"] = imageURL
	}
	if authorName != "" {
		m["author"] = map[string]any{"@type": "Person", "name": authorName}
	}
	if datePublished != "" {
		m["datePublished"] = datePublished
	}
	return LD(SchemaBlogPosting, m)
}

// Thing returns the most generic schema.org document.
func Thing(name, url string) JSONLD {
	m := map[string]any{"name": name}
	if url != "" {
		m["url"] = url
	}
	return LD(SchemaThing, m)
}
