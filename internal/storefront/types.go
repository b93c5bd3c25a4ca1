package storefront

// Money is a decimal amount in a currency, as returned by the Storefront API.
type Money struct {
	Amount       string `json:"amount"`
	CurrencyCode string `json:"currencyCode"`
}

// Image is a product or brand image.
type Image struct {
	URL     string `json:"url"`
	AltText string `json:"altText,omitempty"`
	Width   int    `json:"width,omitempty"`
	Height  int    `json:"height,omitempty"`
}

// Shop is the shop-level data shown on every page.
type Shop struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Logo        *Image `json:"logo,omitempty"`
}

// MenuItem is one entry of a navigation menu. URLs are shop-relative paths.
type MenuItem struct {
	ID    string     `json:"id"`
	Title string     `json:"title"`
	Type  string     `json:"type"`
	URL   string     `json:"url"`
	Items []MenuItem `json:"items,omitempty"`
}

// Menu is a named navigation menu.
type Menu struct {
	ID    string     `json:"id"`
	Items []MenuItem `json:"items"`
}

// Layout is the data every page shell needs.
type Layout struct {
	Shop       Shop  `json:"shop"`
	HeaderMenu *Menu `json:"headerMenu,omitempty"`
	FooterMenu *Menu `json:"footerMenu,omitempty"`
}

// Currency describes a country's currency.
type Currency struct {
	IsoCode string `json:"isoCode"`
	Symbol  string `json:"symbol"`
}

// Country is a market the shop sells into.
type Country struct {
	IsoCode  string   `json:"isoCode"`
	Name     string   `json:"name"`
	Currency Currency `json:"currency"`
}

// CartLine is a line item of a cart.
type CartLine struct {
	ID            string `json:"id"`
	Quantity      int    `json:"quantity"`
	VariantID     string `json:"variantId"`
	VariantTitle  string `json:"variantTitle"`
	ProductHandle string `json:"productHandle"`
	ProductTitle  string `json:"productTitle"`
	Price         Money  `json:"price"`
	Image         *Image `json:"image,omitempty"`
}

// Cart is a buyer's cart.
type Cart struct {
	ID            string     `json:"id"`
	CheckoutURL   string     `json:"checkoutUrl"`
	TotalQuantity int        `json:"totalQuantity"`
	Subtotal      Money      `json:"subtotal"`
	Total         Money      `json:"total"`
	Lines         []CartLine `json:"lines"`
}

// ProductSEO carries merchant-provided SEO overrides.
type ProductSEO struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Variant is a purchasable variant of a product.
type Variant struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	SKU       string `json:"sku"`
	Available bool   `json:"availableForSale"`
	Price     Money  `json:"price"`
}

// Product is a product detail record.
type Product struct {
	ID              string     `json:"id"`
	Handle          string     `json:"handle"`
	Title           string     `json:"title"`
	Vendor          string     `json:"vendor"`
	Description     string     `json:"description"`
	DescriptionHTML string     `json:"descriptionHtml"`
	SEO             ProductSEO `json:"seo"`
	Images          []Image    `json:"images"`
	Variants        []Variant  `json:"variants"`
}

// SelectedVariant returns the first available variant, else the first variant.
func (p Product) SelectedVariant() (Variant, bool) {
	for _, v := range p.Variants {
		if v.Available {
			return v, true
		}
	}
	if len(p.Variants) > 0 {
		return p.Variants[0], true
	}
	return Variant{}, false
}
