package storefront

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Fixture serves demo shop data from memory for local development and tests.
type Fixture struct {
	mu       sync.RWMutex
	carts    map[string]Cart
	products []fixtureProduct
}

type fixtureProduct struct {
	product Product
	ja      ProductSEO
	jaTitle string
}

// NewFixture returns a fixture populated with the demo catalog.
func NewFixture() *Fixture {
	return &Fixture{
		carts:    map[string]Cart{},
		products: demoProducts(),
	}
}

// Layout returns the demo shop and menus in lang ("ja" or English).
func (f *Fixture) Layout(lang string) Layout {
	if isJapanese(lang) {
		return Layout{
			Shop: Shop{
				Name:        "Hydrogen Demo Store",
				Description: "アルペンカラーのカスタムスノーボードを扱うデモストアです。",
				URL:         "https://hydrogen.example",
				Logo:        &Image{URL: "https://hydrogen.example/assets/favicon.svg", AltText: "Hydrogen"},
			},
			HeaderMenu: &Menu{ID: "gid://shopify/Menu/1", Items: []MenuItem{
				{ID: "gid://shopify/MenuItem/1", Title: "ハイドロジェン", Type: "PRODUCT", URL: "/products/the-hydrogen"},
				{ID: "gid://shopify/MenuItem/2", Title: "フルスタック", Type: "PRODUCT", URL: "/products/the-full-stack"},
				{ID: "gid://shopify/MenuItem/3", Title: "ストアについて", Type: "PAGE", URL: "/pages/about"},
			}},
			FooterMenu: &Menu{ID: "gid://shopify/Menu/2", Items: []MenuItem{
				{ID: "gid://shopify/MenuItem/4", Title: "配送について", Type: "PAGE", URL: "/pages/shipping"},
				{ID: "gid://shopify/MenuItem/5", Title: "カート", Type: "HTTP", URL: "/cart"},
			}},
		}
	}
	return Layout{
		Shop: Shop{
			Name:        "Hydrogen Demo Store",
			Description: "A demo store selling custom snowboards with an alpine color palette.",
			URL:         "https://hydrogen.example",
			Logo:        &Image{URL: "https://hydrogen.example/assets/favicon.svg", AltText: "Hydrogen"},
		},
		HeaderMenu: &Menu{ID: "gid://shopify/Menu/1", Items: []MenuItem{
			{ID: "gid://shopify/MenuItem/1", Title: "The Hydrogen", Type: "PRODUCT", URL: "/products/the-hydrogen"},
			{ID: "gid://shopify/MenuItem/2", Title: "The Full Stack", Type: "PRODUCT", URL: "/products/the-full-stack"},
			{ID: "gid://shopify/MenuItem/3", Title: "About", Type: "PAGE", URL: "/pages/about"},
		}},
		FooterMenu: &Menu{ID: "gid://shopify/Menu/2", Items: []MenuItem{
			{ID: "gid://shopify/MenuItem/4", Title: "Shipping", Type: "PAGE", URL: "/pages/shipping"},
			{ID: "gid://shopify/MenuItem/5", Title: "Cart", Type: "HTTP", URL: "/cart"},
		}},
	}
}

// Countries returns the demo markets.
func (f *Fixture) Countries() []Country {
	return []Country{
		{IsoCode: "CA", Name: "Canada", Currency: Currency{IsoCode: "CAD", Symbol: "$"}},
		{IsoCode: "JP", Name: "Japan", Currency: Currency{IsoCode: "JPY", Symbol: "¥"}},
		{IsoCode: "US", Name: "United States", Currency: Currency{IsoCode: "USD", Symbol: "$"}},
	}
}

// Product looks up a product by handle.
func (f *Fixture) Product(handle, lang string) (Product, error) {
	for _, fp := range f.products {
		if fp.product.Handle != handle {
			continue
		}
		p := fp.product
		if isJapanese(lang) {
			p.Title = fp.jaTitle
			p.SEO = fp.ja
		}
		p.Images = append([]Image(nil), p.Images...)
		p.Variants = append([]Variant(nil), p.Variants...)
		return p, nil
	}
	return Product{}, ErrNotFound
}

// Cart returns a copy of the cart with the given id.
func (f *Fixture) Cart(id string) (Cart, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	c, ok := f.carts[id]
	if !ok {
		return Cart{}, ErrNotFound
	}
	return copyCart(c), nil
}

// CreateCart stores a new cart with lines.
func (f *Fixture) CreateCart(lines []LineInput) (Cart, error) {
	token := uuid.NewString()
	c := Cart{
		ID:          "gid://shopify/Cart/" + token,
		CheckoutURL: "https://hydrogen.example/cart/c/" + token,
		Subtotal:    Money{Amount: "0.0", CurrencyCode: "USD"},
		Total:       Money{Amount: "0.0", CurrencyCode: "USD"},
	}
	c, err := f.addLines(c, lines)
	if err != nil {
		return Cart{}, err
	}
	f.mu.Lock()
	f.carts[c.ID] = c
	f.mu.Unlock()
	return copyCart(c), nil
}

// AddLines merges lines into an existing cart.
func (f *Fixture) AddLines(cartID string, lines []LineInput) (Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.carts[cartID]
	if !ok {
		return Cart{}, ErrNotFound
	}
	c, err := f.addLines(copyCart(c), lines)
	if err != nil {
		return Cart{}, err
	}
	f.carts[cartID] = c
	return copyCart(c), nil
}

func (f *Fixture) addLines(c Cart, lines []LineInput) (Cart, error) {
	for _, in := range lines {
		p, v, ok := f.variant(in.VariantID)
		if !ok {
			return Cart{}, &GraphQLError{
				Operation: "cartLinesAdd",
				Messages:  []string{fmt.Sprintf("The merchandise with id %s does not exist.", in.VariantID)},
			}
		}
		qty := in.Quantity
		if qty <= 0 {
			qty = 1
		}
		merged := false
		for i := range c.Lines {
			if c.Lines[i].VariantID == v.ID {
				c.Lines[i].Quantity += qty
				merged = true
				break
			}
		}
		if !merged {
			var img *Image
			if len(p.Images) > 0 {
				im := p.Images[0]
				img = &im
			}
			c.Lines = append(c.Lines, CartLine{
				ID:            "gid://shopify/CartLine/" + uuid.NewString(),
				Quantity:      qty,
				VariantID:     v.ID,
				VariantTitle:  v.Title,
				ProductHandle: p.Handle,
				ProductTitle:  p.Title,
				Price:         v.Price,
				Image:         img,
			})
		}
	}
	var total float64
	c.TotalQuantity = 0
	currency := c.Subtotal.CurrencyCode
	for _, l := range c.Lines {
		amt, _ := strconv.ParseFloat(l.Price.Amount, 64)
		total += amt * float64(l.Quantity)
		c.TotalQuantity += l.Quantity
		currency = l.Price.CurrencyCode
	}
	c.Subtotal = Money{Amount: formatAmount(total), CurrencyCode: currency}
	c.Total = c.Subtotal
	return c, nil
}

func (f *Fixture) variant(id string) (Product, Variant, bool) {
	for _, fp := range f.products {
		for _, v := range fp.product.Variants {
			if v.ID == id {
				return fp.product, v, true
			}
		}
	}
	return Product{}, Variant{}, false
}

// formatAmount renders v the way the Storefront API does: "600.0", "749.95".
func formatAmount(v float64) string {
	s := strconv.FormatFloat(math.Round(v*100)/100, 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	if strings.HasSuffix(s, ".") {
		s += "0"
	}
	return s
}

func copyCart(c Cart) Cart {
	c.Lines = append([]CartLine(nil), c.Lines...)
	return c
}

func isJapanese(lang string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(lang)), "ja")
}

func demoProducts() []fixtureProduct {
	return []fixtureProduct{
		{
			product: Product{
				ID:              "gid://shopify/Product/6730850828344",
				Handle:          "the-hydrogen",
				Title:           "The Hydrogen",
				Vendor:          "Snowdevil",
				Description:     "A custom snowboard with an alpine color palette.",
				DescriptionHTML: "<p>A custom snowboard with an <strong>alpine</strong> color palette.</p>",
				Images: []Image{
					{URL: "https://cdn.shopify.com/s/files/1/demo/the-hydrogen.jpg", AltText: "A custom snowboard with an alpine color palette.", Width: 400, Height: 400},
					{URL: "https://cdn.shopify.com/s/files/1/demo/the-hydrogen-side.png", AltText: "Side view of The Hydrogen", Width: 800, Height: 600},
				},
				Variants: []Variant{
					{ID: "gid://shopify/ProductVariant/41007289630776", Title: "154cm", SKU: "HYD-154", Available: true, Price: Money{Amount: "600.0", CurrencyCode: "USD"}},
					{ID: "gid://shopify/ProductVariant/41007289663544", Title: "158cm", SKU: "HYD-158", Available: false, Price: Money{Amount: "600.0", CurrencyCode: "USD"}},
				},
			},
			jaTitle: "ハイドロジェン",
			ja:      ProductSEO{Title: "ハイドロジェン スノーボード", Description: "アルペンカラーのカスタムスノーボード。"},
		},
		{
			product: Product{
				ID:              "gid://shopify/Product/6730943823928",
				Handle:          "the-full-stack",
				Title:           "The Full Stack",
				Vendor:          "Snowdevil",
				Description:     "A board for riders who do it all.",
				DescriptionHTML: "<p>A board for riders who do it all.</p>",
				SEO:             ProductSEO{Title: "The Full Stack Snowboard", Description: "All-mountain snowboard for riders who do it all."},
				Images: []Image{
					{URL: "https://cdn.shopify.com/s/files/1/demo/the-full-stack.jpg", AltText: "The Full Stack snowboard", Width: 400, Height: 400},
				},
				Variants: []Variant{
					{ID: "gid://shopify/ProductVariant/41007290744888", Title: "Default Title", SKU: "FS-001", Available: true, Price: Money{Amount: "749.95", CurrencyCode: "USD"}},
				},
			},
			jaTitle: "フルスタック",
			ja:      ProductSEO{Title: "フルスタック スノーボード", Description: "オールマウンテン向けのスノーボード。"},
		},
	}
}
