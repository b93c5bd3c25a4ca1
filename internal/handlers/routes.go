package handlers

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rstol/hydrogen/internal/cms"
	"github.com/rstol/hydrogen/internal/format"
	mw "github.com/rstol/hydrogen/internal/middleware"
	"github.com/rstol/hydrogen/internal/nav"
	"github.com/rstol/hydrogen/internal/observability"
	"github.com/rstol/hydrogen/internal/seo"
	"github.com/rstol/hydrogen/internal/storefront"
)

const (
	maxFeatured       = 4
	maxDescription    = 155
	maxLineQuantity   = 99
	productPathPrefix = "/products/"
)

var descriptionPolicy = bluemonday.UGCPolicy()

// ProductCard is a compact product summary.
type ProductCard struct {
	Handle string
	Title  string
	Href   string
	Image  *storefront.Image
	Price  string
}

// HomeData is the view model for the home page.
type HomeData struct {
	Shop     storefront.Shop
	Featured []ProductCard
}

// ProductData is the view model for a product page.
type ProductData struct {
	Product         storefront.Product
	Variant         storefront.Variant
	Price           string
	DescriptionHTML template.HTML
}

// PageData is the view model for a content page.
type PageData struct {
	Page        cms.Page
	Breadcrumbs []nav.Crumb
}

// CartLineView is a cart line with display prices.
type CartLineView struct {
	storefront.CartLine
	Href  string
	Price string
}

// CartData is the view model for the cart page.
type CartData struct {
	Cart     *storefront.Cart
	Lines    []CartLineView
	Subtotal string
}

// HomeRoute renders the landing page. Featured products come from the
// header menu's product links and are fetched concurrently; failures are
// skipped.
func (s *Shell) HomeRoute() Route[HomeData] {
	return Route[HomeData]{
		Name:     "home",
		Template: "home",
		NotFound: NotFoundGeneric,
		Loader: func(ctx context.Context, req *Request) (HomeData, error) {
			data := HomeData{Shop: req.Root.Layout.Shop}
			handles := featuredHandles(req.Root.Layout.HeaderMenu, maxFeatured)
			cards := make([]*ProductCard, len(handles))
			g, gctx := errgroup.WithContext(ctx)
			for i, h := range handles {
				i, h := i, h
				g.Go(func() error {
					p, err := s.Store.Product(gctx, h, req.Lang)
					if err != nil {
						observability.FromContext(ctx).Warn("featured product failed", zap.String("handle", h), zap.Error(err))
						return nil
					}
					cards[i] = productCard(p, req.Lang)
					return nil
				})
			}
			_ = g.Wait()
			for _, c := range cards {
				if c != nil {
					data.Featured = append(data.Featured, *c)
				}
			}
			return data, nil
		},
		SEO: func(req *Request, data HomeData) seo.Seo {
			name := firstNonEmpty(data.Shop.Name, s.Shop.Name)
			home := absoluteURL(s.Shop.PublicBaseURL, "/")
			var logo string
			if data.Shop.Logo != nil {
				logo = data.Shop.Logo.URL
			}
			out := seo.Seo{
				BypassTitleTemplate: true,
				LDJSON: []seo.JSONLD{
					seo.WebSite(name, home, ""),
					seo.Organization(name, home, logo),
				},
			}
			if s.Shop.PublicBaseURL != "" && len(data.Featured) > 0 {
				urls := make([]string, 0, len(data.Featured))
				for _, c := range data.Featured {
					urls = append(urls, absoluteURL(s.Shop.PublicBaseURL, c.Href))
				}
				out.LDJSON = append(out.LDJSON, seo.ItemList(s.t(req.Lang, "home.featured"), urls))
			}
			return out
		},
	}
}

// ProductRoute renders /products/{handle}. ?variant= selects a variant.
func (s *Shell) ProductRoute() Route[ProductData] {
	return Route[ProductData]{
		Name:     "product",
		Template: "product",
		NotFound: NotFoundProduct,
		Loader: func(ctx context.Context, req *Request) (ProductData, error) {
			p, err := s.Store.Product(ctx, chi.URLParam(req.Request, "handle"), req.Lang)
			if err != nil {
				return ProductData{}, err
			}
			variant, ok := selectVariant(p, req.URL.Query().Get("variant"))
			if !ok {
				return ProductData{}, storefront.ErrNotFound
			}
			return ProductData{
				Product:         p,
				Variant:         variant,
				Price:           format.FmtMoney(variant.Price.Amount, variant.Price.CurrencyCode, req.Lang),
				DescriptionHTML: template.HTML(descriptionPolicy.Sanitize(p.DescriptionHTML)),
			}, nil
		},
		SEO: func(req *Request, data ProductData) seo.Seo {
			p := data.Product
			canonical := absoluteURL(s.Shop.PublicBaseURL, productPathPrefix+p.Handle)
			description := truncate(seo.PlainText(firstNonEmpty(p.SEO.Description, p.Description)), maxDescription)

			media := make([]seo.Media, 0, len(p.Images))
			images := make([]string, 0, len(p.Images))
			for _, img := range p.Images {
				media = append(media, seo.Media{
					Type:   seo.MediaImage,
					URL:    img.URL,
					Width:  img.Width,
					Height: img.Height,
					Alt:    firstNonEmpty(img.AltText, p.Title),
				})
				images = append(images, img.URL)
			}

			offers := make([]seo.Offer, 0, len(p.Variants))
			for _, v := range p.Variants {
				availability := "OutOfStock"
				if v.Available {
					availability = "InStock"
				}
				offer := seo.Offer{
					Price:        v.Price.Amount,
					Currency:     v.Price.CurrencyCode,
					Availability: availability,
					SKU:          v.SKU,
				}
				if canonical != "" {
					offer.URL = canonical + "?variant=" + variantNumber(v.ID)
				}
				offers = append(offers, offer)
			}

			return seo.Seo{
				Title:       firstNonEmpty(p.SEO.Title, p.Title),
				Description: description,
				URL:         canonical,
				Media:       seo.MediaList(media...),
				LDJSON: []seo.JSONLD{seo.Product(seo.ProductInfo{
					Name:        p.Title,
					Description: description,
					URL:         canonical,
					Images:      images,
					SKU:         data.Variant.SKU,
					Brand:       p.Vendor,
					Offers:      offers,
				})},
			}
		},
	}
}

// PageRoute renders /pages/{slug} from the content source.
func (s *Shell) PageRoute() Route[PageData] {
	return Route[PageData]{
		Name:     "page",
		Template: "page",
		NotFound: NotFoundPage,
		Loader: func(ctx context.Context, req *Request) (PageData, error) {
			page, err := s.Content.GetContentPage(ctx, chi.URLParam(req.Request, "slug"), req.Lang)
			if err != nil {
				return PageData{}, err
			}
			return PageData{
				Page:        page,
				Breadcrumbs: nav.Breadcrumbs(req.URL.Path, s.t(req.Lang, "nav.home"), page.Title),
			}, nil
		},
		SEO: func(req *Request, data PageData) seo.Seo {
			p := data.Page
			canonical := absoluteURL(s.Shop.PublicBaseURL, req.URL.Path)
			title := firstNonEmpty(p.SEO.Title, p.Title)
			description := truncate(seo.PlainText(firstNonEmpty(p.SEO.Description, p.Summary)), maxDescription)

			var crumbs []seo.BreadcrumbItem
			if s.Shop.PublicBaseURL != "" {
				for _, c := range data.Breadcrumbs {
					crumbs = append(crumbs, seo.BreadcrumbItem{Name: c.Label, Item: absoluteURL(s.Shop.PublicBaseURL, c.Href)})
				}
			}
			out := seo.Seo{
				Title:       title,
				Description: description,
				URL:         canonical,
				Media:       seo.MediaURL(p.SEO.OGImage),
				LDJSON:      []seo.JSONLD{seo.WebPage(title, canonical, description, crumbs)},
			}
			if p.SEO.NoIndex {
				out.Robots = "noindex"
			}
			return out
		},
	}
}

// CartRoute renders the cart from the root loader's deferred cart.
func (s *Shell) CartRoute() Route[CartData] {
	return Route[CartData]{
		Name:     "cart",
		Template: "cart",
		NotFound: NotFoundGeneric,
		Loader: func(_ context.Context, req *Request) (CartData, error) {
			data := CartData{Cart: req.Root.Cart}
			if data.Cart == nil {
				return data, nil
			}
			for _, line := range data.Cart.Lines {
				data.Lines = append(data.Lines, CartLineView{
					CartLine: line,
					Href:     productPathPrefix + line.ProductHandle,
					Price:    format.FmtMoney(line.Price.Amount, line.Price.CurrencyCode, req.Lang),
				})
			}
			data.Subtotal = format.FmtMoney(data.Cart.Subtotal.Amount, data.Cart.Subtotal.CurrencyCode, req.Lang)
			return data, nil
		},
		SEO: func(req *Request, _ CartData) seo.Seo {
			return seo.Seo{
				Title:       s.t(req.Lang, "cart.title"),
				Description: s.t(req.Lang, "cart.description"),
				Robots:      "noindex",
			}
		},
	}
}

// AddToCart handles POST /cart: it adds a line, creating the cart when the
// session has none or the stored cart expired, then redirects to /cart.
func (s *Shell) AddToCart(w http.ResponseWriter, r *http.Request) {
	variantID := strings.TrimSpace(r.PostFormValue("variant_id"))
	quantity := 1
	if raw := strings.TrimSpace(r.PostFormValue("quantity")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxLineQuantity {
			s.ActionError(w, r, Status(http.StatusBadRequest, "invalid quantity"))
			return
		}
		quantity = n
	}
	if variantID == "" {
		s.ActionError(w, r, Status(http.StatusBadRequest, "missing variant"))
		return
	}

	ctx := r.Context()
	sess := mw.GetSession(r)
	lines := []storefront.LineInput{{VariantID: variantID, Quantity: quantity}}

	var (
		cart storefront.Cart
		err  error
	)
	if sess.CartID != "" {
		cart, err = s.Store.AddCartLines(ctx, sess.CartID, lines)
		if errors.Is(err, storefront.ErrNotFound) {
			sess.ClearCart()
		}
	}
	if sess.CartID == "" {
		cart, err = s.Store.CreateCart(ctx, lines)
	}
	var gqlErr *storefront.GraphQLError
	if errors.As(err, &gqlErr) {
		err = Status(http.StatusBadRequest, strings.Join(gqlErr.Messages, "; "))
	}
	if err != nil {
		s.ActionError(w, r, err)
		return
	}
	sess.SetCartID(cart.ID)
	observability.FromContext(ctx).Info("cart updated",
		zap.String("cart_id", cart.ID),
		zap.Int("total_quantity", cart.TotalQuantity),
	)

	if mw.IsHTMX(ctx) {
		w.Header().Set("HX-Redirect", "/cart")
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, "/cart", http.StatusSeeOther)
}

// ActionError renders err through the boundaries after loading root data.
func (s *Shell) ActionError(w http.ResponseWriter, r *http.Request, err error) {
	root, ok := s.loadRoot(w, r)
	if !ok {
		return
	}
	s.Boundary(w, r, root, NotFoundGeneric, err)
}

func featuredHandles(m *storefront.Menu, limit int) []string {
	if m == nil {
		return nil
	}
	var out []string
	for _, it := range m.Items {
		if h, ok := strings.CutPrefix(it.URL, productPathPrefix); ok && h != "" && !strings.Contains(h, "/") {
			out = append(out, h)
			if len(out) == limit {
				break
			}
		}
	}
	return out
}

func productCard(p storefront.Product, lang string) *ProductCard {
	card := &ProductCard{
		Handle: p.Handle,
		Title:  p.Title,
		Href:   productPathPrefix + p.Handle,
	}
	if len(p.Images) > 0 {
		img := p.Images[0]
		card.Image = &img
	}
	if v, ok := p.SelectedVariant(); ok {
		card.Price = format.FmtMoney(v.Price.Amount, v.Price.CurrencyCode, lang)
	}
	return card
}

func selectVariant(p storefront.Product, requested string) (storefront.Variant, bool) {
	if requested != "" {
		for _, v := range p.Variants {
			if v.ID == requested || variantNumber(v.ID) == requested {
				return v, true
			}
		}
	}
	return p.SelectedVariant()
}

// variantNumber returns the trailing numeric id of a storefront gid.
func variantNumber(id string) string {
	if i := strings.LastIndex(id, "/"); i >= 0 {
		return id[i+1:]
	}
	return id
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:limit-1])) + "…"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
