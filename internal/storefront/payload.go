package storefront

import (
	"fmt"
	"net/url"
	"strings"
)

type layoutPayload struct {
	Shop struct {
		Name          string `json:"name"`
		Description   string `json:"description"`
		PrimaryDomain struct {
			URL string `json:"url"`
		} `json:"primaryDomain"`
		Brand *struct {
			Logo *struct {
				Image *Image `json:"image"`
			} `json:"logo"`
		} `json:"brand"`
	} `json:"shop"`
	HeaderMenu *Menu `json:"headerMenu"`
	FooterMenu *Menu `json:"footerMenu"`
}

func (p layoutPayload) toLayout() Layout {
	l := Layout{
		Shop: Shop{
			Name:        strings.TrimSpace(p.Shop.Name),
			Description: strings.TrimSpace(p.Shop.Description),
			URL:         strings.TrimRight(p.Shop.PrimaryDomain.URL, "/"),
		},
	}
	if p.Shop.Brand != nil && p.Shop.Brand.Logo != nil {
		l.Shop.Logo = p.Shop.Brand.Logo.Image
	}
	l.HeaderMenu = relativeMenu(p.HeaderMenu, l.Shop.URL)
	l.FooterMenu = relativeMenu(p.FooterMenu, l.Shop.URL)
	return l
}

// relativeMenu rewrites menu URLs that point at the shop's own domain into
// site-relative paths so links stay on this storefront.
func relativeMenu(m *Menu, primaryDomain string) *Menu {
	if m == nil {
		return nil
	}
	host := ""
	if u, err := url.Parse(primaryDomain); err == nil {
		host = strings.ToLower(u.Host)
	}
	out := &Menu{ID: m.ID, Items: relativeItems(m.Items, host)}
	return out
}

func relativeItems(items []MenuItem, host string) []MenuItem {
	if len(items) == 0 {
		return nil
	}
	out := make([]MenuItem, 0, len(items))
	for _, it := range items {
		it.URL = relativeURL(it.URL, host)
		it.Items = relativeItems(it.Items, host)
		out = append(out, it)
	}
	return out
}

func relativeURL(raw, host string) string {
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() {
		return raw
	}
	h := strings.ToLower(u.Host)
	if h != host && !strings.HasSuffix(h, ".myshopify.com") {
		return raw
	}
	out := u.EscapedPath()
	if out == "" {
		out = "/"
	}
	if u.RawQuery != "" {
		out += "?" + u.RawQuery
	}
	return out
}

type cartPayload struct {
	ID            string `json:"id"`
	CheckoutURL   string `json:"checkoutUrl"`
	TotalQuantity int    `json:"totalQuantity"`
	Cost          struct {
		SubtotalAmount Money `json:"subtotalAmount"`
		TotalAmount    Money `json:"totalAmount"`
	} `json:"cost"`
	Lines struct {
		Nodes []struct {
			ID          string `json:"id"`
			Quantity    int    `json:"quantity"`
			Merchandise struct {
				ID      string `json:"id"`
				Title   string `json:"title"`
				Price   Money  `json:"price"`
				Image   *Image `json:"image"`
				Product struct {
					Handle string `json:"handle"`
					Title  string `json:"title"`
				} `json:"product"`
			} `json:"merchandise"`
		} `json:"nodes"`
	} `json:"lines"`
}

func (p cartPayload) toCart() Cart {
	c := Cart{
		ID:            p.ID,
		CheckoutURL:   p.CheckoutURL,
		TotalQuantity: p.TotalQuantity,
		Subtotal:      p.Cost.SubtotalAmount,
		Total:         p.Cost.TotalAmount,
	}
	for _, n := range p.Lines.Nodes {
		c.Lines = append(c.Lines, CartLine{
			ID:            n.ID,
			Quantity:      n.Quantity,
			VariantID:     n.Merchandise.ID,
			VariantTitle:  n.Merchandise.Title,
			ProductHandle: n.Merchandise.Product.Handle,
			ProductTitle:  n.Merchandise.Product.Title,
			Price:         n.Merchandise.Price,
			Image:         n.Merchandise.Image,
		})
	}
	return c
}

type cartMutationPayload struct {
	Cart       *cartPayload `json:"cart"`
	UserErrors []struct {
		Field   []string `json:"field"`
		Message string   `json:"message"`
	} `json:"userErrors"`
}

func (p cartMutationPayload) result(op string) (Cart, error) {
	if p.Cart == nil {
		// The backend reports an unknown or expired cart as a cartId user error.
		for _, e := range p.UserErrors {
			if len(e.Field) > 0 && e.Field[len(e.Field)-1] == "cartId" {
				return Cart{}, fmt.Errorf("%s: %s: %w", op, e.Message, ErrNotFound)
			}
		}
	}
	if len(p.UserErrors) > 0 {
		msgs := make([]string, 0, len(p.UserErrors))
		for _, e := range p.UserErrors {
			msgs = append(msgs, e.Message)
		}
		return Cart{}, &GraphQLError{Operation: op, Messages: msgs}
	}
	if p.Cart == nil {
		return Cart{}, ErrNotFound
	}
	return p.Cart.toCart(), nil
}

type productPayload struct {
	ID              string     `json:"id"`
	Handle          string     `json:"handle"`
	Title           string     `json:"title"`
	Vendor          string     `json:"vendor"`
	Description     string     `json:"description"`
	DescriptionHTML string     `json:"descriptionHtml"`
	SEO             ProductSEO `json:"seo"`
	Images          struct {
		Nodes []Image `json:"nodes"`
	} `json:"images"`
	Variants struct {
		Nodes []Variant `json:"nodes"`
	} `json:"variants"`
}

func (p productPayload) toProduct() Product {
	return Product{
		ID:              p.ID,
		Handle:          p.Handle,
		Title:           p.Title,
		Vendor:          p.Vendor,
		Description:     p.Description,
		DescriptionHTML: p.DescriptionHTML,
		SEO:             p.SEO,
		Images:          p.Images.Nodes,
		Variants:        p.Variants.Nodes,
	}
}
