package handlers

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rstol/hydrogen/internal/config"
	"github.com/rstol/hydrogen/internal/i18n"
	"github.com/rstol/hydrogen/internal/observability"
	"github.com/rstol/hydrogen/internal/seo"
	"github.com/rstol/hydrogen/internal/storefront"
)

const tracerName = "github.com/rstol/hydrogen/internal/handlers"

// RootData is what the root loader provides to every page and boundary.
// Countries and Cart are deferred: their failures leave them empty.
type RootData struct {
	Layout    storefront.Layout
	Countries []storefront.Country
	Cart      *storefront.Cart
	// CartMissing reports that the session referenced a cart the storefront
	// no longer knows.
	CartMissing bool
	Lang        string
}

// CartCount returns the cart quantity, zero without a cart.
func (d *RootData) CartCount() int {
	if d == nil || d.Cart == nil {
		return 0
	}
	return d.Cart.TotalQuantity
}

// RootLoader fetches the data shared by every page.
type RootLoader struct {
	Store   Storefront
	Metrics *observability.Metrics
}

// Load awaits the layout and fetches countries and the cart concurrently.
// Only a layout failure is returned.
func (l *RootLoader) Load(ctx context.Context, lang, cartID string) (*RootData, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "root.loader")
	defer span.End()
	span.SetAttributes(attribute.String("lang", lang), attribute.Bool("cart", cartID != ""))

	start := time.Now()
	defer func() {
		if l.Metrics != nil {
			l.Metrics.LoaderDuration.WithLabelValues("root").Observe(time.Since(start).Seconds())
		}
	}()

	logger := observability.FromContext(ctx)
	data := &RootData{Lang: lang}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		layout, err := l.Store.Layout(gctx, lang)
		if err != nil {
			return err
		}
		data.Layout = layout
		return nil
	})
	g.Go(func() error {
		countries, err := l.Store.Countries(gctx)
		if err != nil {
			logger.Warn("deferred countries failed", zap.Error(err))
			return nil
		}
		data.Countries = countries
		return nil
	})
	if cartID != "" {
		g.Go(func() error {
			cart, err := l.Store.Cart(gctx, cartID)
			switch {
			case errors.Is(err, storefront.ErrNotFound):
				data.CartMissing = true
			case err != nil:
				logger.Warn("deferred cart failed", zap.String("cart_id", cartID), zap.Error(err))
			default:
				data.Cart = &cart
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "layout")
		return nil, err
	}
	return data, nil
}

// RootSEO is the application-wide SEO every route overrides. The shop name is
// the title and the template wraps route titles; the bypass flag keeps the
// home page on the bare shop name.
func RootSEO(data *RootData, shop config.ShopConfig, bundle *i18n.Bundle, path string) seo.Seo {
	name := shop.Name
	var description, logo string
	if data != nil {
		if n := strings.TrimSpace(data.Layout.Shop.Name); n != "" {
			name = n
		}
		description = seo.PlainText(data.Layout.Shop.Description)
		if data.Layout.Shop.Logo != nil {
			logo = data.Layout.Shop.Logo.URL
		}
	}
	s := seo.Seo{
		Title:               name,
		TitleTemplate:       "%s | " + name,
		BypassTitleTemplate: true,
		Description:         description,
		URL:                 absoluteURL(shop.PublicBaseURL, path),
		Handle:              handle(shop.TwitterHandle),
	}
	if logo != "" {
		s.Media = seo.MediaURL(logo)
	}
	if bundle != nil && shop.PublicBaseURL != "" {
		for _, lang := range bundle.Supported() {
			s.Alternates = append(s.Alternates, seo.Alternate{
				Href:     absoluteURL(shop.PublicBaseURL, path) + "?hl=" + lang,
				Hreflang: i18n.Hreflang(lang),
			})
		}
	}
	return s
}

// Meta is the root meta export.
func Meta() []seo.HeadTag {
	return []seo.HeadTag{
		{Tag: seo.TagMeta, Props: map[string]string{"charset": "utf-8"}, Key: "charset"},
		{Tag: seo.TagMeta, Props: map[string]string{"name": "viewport", "content": "width=device-width,initial-scale=1"}, Key: "viewport"},
	}
}

// Links is the root links export.
func Links() []seo.HeadTag {
	return []seo.HeadTag{
		{Tag: seo.TagLink, Props: map[string]string{"rel": "stylesheet", "href": "/assets/app.css"}},
		{Tag: seo.TagLink, Props: map[string]string{"rel": "preconnect", "href": "https://cdn.shopify.com"}},
		{Tag: seo.TagLink, Props: map[string]string{"rel": "preconnect", "href": "https://shop.app"}},
		{Tag: seo.TagLink, Props: map[string]string{"rel": "icon", "type": "image/svg+xml", "href": "/assets/favicon.svg"}},
	}
}

func absoluteURL(base, path string) string {
	if base == "" {
		return ""
	}
	if path == "" || path == "/" {
		return base + "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}

func handle(h string) string {
	h = strings.TrimSpace(h)
	if h == "" || strings.HasPrefix(h, "@") {
		return h
	}
	return "@" + h
}
