package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"github.com/rstol/hydrogen/internal/storefront"
	"github.com/rstol/hydrogen/internal/testutil"
)

func TestHomeRendersBareShopTitleAndStructuredData(t *testing.T) {
	env := newTestEnv(t)
	rec := env.get(t, "/")
	require.Equal(t, http.StatusOK, rec.Code)

	doc := testutil.ParseHTML(t, rec.Body.Bytes())
	require.Equal(t, "Hydrogen Demo Store", doc.Find("title").Text())
	canonical, _ := doc.Find(`link[rel="canonical"]`).Attr("href")
	require.Equal(t, "https://hydrogen.example/", canonical)

	var types []string
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var payload map[string]any
		require.NoError(t, json.Unmarshal([]byte(s.Text()), &payload))
		types = append(types, payload["@type"].(string))
	})
	require.ElementsMatch(t, []string{"WebSite", "Organization", "ItemList"}, types)

	home, ok := env.renderer.view.Page.(HomeData)
	require.True(t, ok)
	require.Len(t, home.Featured, 2)
	require.Equal(t, "$600.00", home.Featured[0].Price)
}

func TestHeadOrderSEOThenMetaThenLinks(t *testing.T) {
	env := newTestEnv(t)
	rec := env.get(t, "/")
	require.Equal(t, http.StatusOK, rec.Code)

	head := string(env.renderer.view.Head)
	title := strings.Index(head, "<title>")
	charset := strings.Index(head, `charset="utf-8"`)
	stylesheet := strings.Index(head, `rel="stylesheet"`)
	ldJSON := strings.Index(head, "application/ld+json")
	require.True(t, title >= 0 && ldJSON > title, head)
	require.Greater(t, charset, ldJSON, "meta export follows seo tags")
	require.Greater(t, stylesheet, charset, "links export follows meta export")
}

func TestProductPageTitleTemplateAndProductJSONLD(t *testing.T) {
	env := newTestEnv(t)
	rec := env.get(t, "/products/the-full-stack")
	require.Equal(t, http.StatusOK, rec.Code)

	doc := testutil.ParseHTML(t, rec.Body.Bytes())
	require.Equal(t, "The Full Stack Snowboard | Hydrogen Demo Store", doc.Find("title").Text())
	desc, ok := testutil.MetaContent(doc, "description")
	require.True(t, ok)
	require.Equal(t, "All-mountain snowboard for riders who do it all.", desc)
	img, _ := testutil.MetaContent(doc, "og:image")
	require.Equal(t, "https://cdn.shopify.com/s/files/1/demo/the-full-stack.jpg", img)
	site, _ := testutil.MetaContent(doc, "twitter:site")
	require.Equal(t, "@shopify", site)

	script := doc.Find(`script[type="application/ld+json"]`)
	require.Equal(t, 1, script.Length())
	var product map[string]any
	require.NoError(t, json.Unmarshal([]byte(script.Text()), &product))
	require.Equal(t, "Product", product["@type"])
	require.Equal(t, "https://schema.org", product["@context"])
	require.Equal(t, "https://hydrogen.example/products/the-full-stack", product["url"])
	offers := product["offers"].([]any)
	require.Len(t, offers, 1)
	require.Equal(t, "https://schema.org/InStock", offers[0].(map[string]any)["availability"])

	data := env.renderer.view.Page.(ProductData)
	require.Equal(t, "$749.95", data.Price)
}

func TestProductDescriptionFallsBackAndStripsMarkup(t *testing.T) {
	env := newTestEnv(t)
	rec := env.get(t, "/products/the-hydrogen?variant=41007289663544")
	require.Equal(t, http.StatusOK, rec.Code)

	doc := testutil.ParseHTML(t, rec.Body.Bytes())
	require.Equal(t, "The Hydrogen | Hydrogen Demo Store", doc.Find("title").Text())
	desc, _ := testutil.MetaContent(doc, "og:description")
	require.Equal(t, "A custom snowboard with an alpine color palette.", desc)
	require.Equal(t, "HYD-158", env.renderer.view.Page.(ProductData).Variant.SKU)
}

func TestUnknownProductRendersNotFoundBoundary(t *testing.T) {
	env := newTestEnv(t)
	rec := env.get(t, "/products/does-not-exist")
	require.Equal(t, http.StatusNotFound, rec.Code)

	doc := testutil.ParseHTML(t, rec.Body.Bytes())
	require.Equal(t, "Not found", doc.Find("title").Text())
	robots, _ := testutil.MetaContent(doc, "robots")
	require.Equal(t, "noindex", robots)
	require.Equal(t, "notfound", env.renderer.page)
	page := env.renderer.view.Page.(NotFoundData)
	require.Equal(t, NotFoundProduct, page.Kind)
	require.Contains(t, page.Message, "product")
	require.NotEmpty(t, env.renderer.view.Nav, "boundary keeps the layout")
}

func TestUnmatchedRouteRendersGenericNotFound(t *testing.T) {
	env := newTestEnv(t)
	rec := env.get(t, "/nowhere/at/all")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, NotFoundGeneric, env.renderer.view.Page.(NotFoundData).Kind)
	require.Equal(t, "Not found", env.renderer.view.Title)
}

func TestContentPageSEO(t *testing.T) {
	env := newTestEnv(t)
	rec := env.get(t, "/pages/about")
	require.Equal(t, http.StatusOK, rec.Code)

	doc := testutil.ParseHTML(t, rec.Body.Bytes())
	require.Equal(t, "About the Hydrogen Demo Store | Hydrogen Demo Store", doc.Find("title").Text())
	img, _ := testutil.MetaContent(doc, "og:image")
	require.Equal(t, "https://cdn.shopify.com/static/sample-images/about.jpg", img)

	var page map[string]any
	require.NoError(t, json.Unmarshal([]byte(doc.Find(`script[type="application/ld+json"]`).Text()), &page))
	require.Equal(t, "WebPage", page["@type"])
	crumbs := page["breadcrumb"].(map[string]any)["itemListElement"].([]any)
	require.Len(t, crumbs, 3)

	rec = env.get(t, "/pages/missing")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, NotFoundPage, env.renderer.view.Page.(NotFoundData).Kind)
}

func TestPanicRendersErrorBoundary(t *testing.T) {
	env := newTestEnv(t)
	rec := env.get(t, "/boom")
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	doc := testutil.ParseHTML(t, rec.Body.Bytes())
	require.Equal(t, "Error", doc.Find("title").Text())
	page := env.renderer.view.Page.(ErrorData)
	require.Equal(t, "kaboom", page.Message)
}

func TestErrorBoundaryHidesMessageInProduction(t *testing.T) {
	env := newTestEnv(t)
	env.shell.Production = true
	rec := env.get(t, "/boom")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, env.shell.Bundle.T("en", "error.generic"), env.renderer.view.Page.(ErrorData).Message)
}

func TestLayoutFailureRendersErrorBoundaryWithConfiguredShopName(t *testing.T) {
	env := newTestEnv(t)
	env.store.layoutErr = errors.New("upstream unavailable")
	rec := env.get(t, "/")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "Hydrogen Demo Store", env.renderer.view.ShopName)
	require.Empty(t, env.renderer.view.Nav)
	require.Contains(t, env.renderer.view.Page.(ErrorData).Message, "upstream unavailable")
}

func TestRenderFailureFallsBackToErrorBoundary(t *testing.T) {
	env := newTestEnv(t)
	env.renderer.fail = true
	rec := env.get(t, "/")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "error", env.renderer.page)
}

func TestDeferredCartFailureStillRendersCart(t *testing.T) {
	env := newTestEnv(t)
	cookies := addToCart(t, env, "gid://shopify/ProductVariant/41007289630776", "1")

	env.store.cartErr = errors.New("cart service down")
	rec := env.get(t, "/cart", cookies...)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Nil(t, env.renderer.view.Page.(CartData).Cart)
	require.Zero(t, env.renderer.view.CartCount)
}

func TestAddToCartCreatesCartAndStoresItInSession(t *testing.T) {
	env := newTestEnv(t)
	cookies := addToCart(t, env, "gid://shopify/ProductVariant/41007289630776", "2")

	rec := env.get(t, "/cart", cookies...)
	require.Equal(t, http.StatusOK, rec.Code)
	data := env.renderer.view.Page.(CartData)
	require.NotNil(t, data.Cart)
	require.Len(t, data.Lines, 1)
	require.Equal(t, "$1,200.00", data.Subtotal)
	require.Equal(t, 2, env.renderer.view.CartCount)

	doc := testutil.ParseHTML(t, rec.Body.Bytes())
	require.Equal(t, "Cart | Hydrogen Demo Store", doc.Find("title").Text())
	robots, _ := testutil.MetaContent(doc, "robots")
	require.Equal(t, "noindex", robots)
}

func TestAddToCartRejectsBadInput(t *testing.T) {
	env := newTestEnv(t)
	for _, form := range []url.Values{
		{"variant_id": {"gid://shopify/ProductVariant/41007289630776"}, "quantity": {"0"}},
		{"quantity": {"1"}},
		{"variant_id": {"gid://shopify/ProductVariant/unknown"}},
	} {
		rec := postForm(t, env, form)
		require.Equal(t, http.StatusBadRequest, rec.Code, form.Encode())
		require.Equal(t, "Error", env.renderer.view.Title)
		require.True(t, strings.HasPrefix(env.renderer.view.Page.(ErrorData).Message, "400 "))
	}
}

func TestAddToCartReplacesStaleCart(t *testing.T) {
	env := newTestEnv(t)
	cookies := addToCart(t, env, "gid://shopify/ProductVariant/41007289630776", "1")
	rec := env.get(t, "/cart", cookies...)
	require.Equal(t, http.StatusOK, rec.Code)
	staleID := env.renderer.view.Page.(CartData).Cart.ID

	// the backend no longer knows the session's cart
	env.store.addLinesErr = fmt.Errorf("cartLinesAdd: The specified cart does not exist.: %w", storefront.ErrNotFound)
	rec = postForm(t, env, url.Values{"variant_id": {"gid://shopify/ProductVariant/41007289630776"}, "quantity": {"3"}}, cookies...)
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	require.Equal(t, "/cart", rec.Header().Get("Location"))
	fresh := rec.Result().Cookies()
	require.NotEmpty(t, fresh)

	rec = env.get(t, "/cart", fresh...)
	require.Equal(t, http.StatusOK, rec.Code)
	data := env.renderer.view.Page.(CartData)
	require.NotNil(t, data.Cart)
	require.NotEqual(t, staleID, data.Cart.ID)
	require.Equal(t, 3, env.renderer.view.CartCount)
	require.Len(t, data.Lines, 1)
}

func TestBoundariesUseErrorEnvelopeForHTMXAndJSON(t *testing.T) {
	env := newTestEnv(t)

	form := url.Values{"variant_id": {"gid://shopify/ProductVariant/41007289630776"}, "quantity": {"0"}}
	req := httptest.NewRequest(http.MethodPost, "/cart", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	require.JSONEq(t, `{"error":"bad_request","message":"400 invalid quantity","status":400}`, rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/products/does-not-exist", nil)
	req.Header.Set("Accept", "application/json")
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.JSONEq(t, `{"error":"not_found","message":"We couldn’t find the product you’re looking for.","status":404}`, rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set("HX-Request", "true")
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"error":"internal_server_error","message":"kaboom","status":500}`, rec.Body.String())

	// none of them reached the HTML shell
	require.Empty(t, env.renderer.page)
}

func TestMethodNotAllowedRendersCatchBoundary(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodDelete, "/cart", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	require.Equal(t, "error", env.renderer.page)
	require.Equal(t, "Error", env.renderer.view.Title)
	require.Equal(t, "405 Method Not Allowed", env.renderer.view.Page.(ErrorData).Message)
	require.Equal(t, "Hydrogen Demo Store", env.renderer.view.ShopName)
}

func TestLoaderTimeoutRendersGatewayTimeout(t *testing.T) {
	env := newTestEnv(t)
	env.store.productErr = fmt.Errorf("storefront: product: %w", context.DeadlineExceeded)
	rec := env.get(t, "/products/the-hydrogen")
	require.Equal(t, http.StatusGatewayTimeout, rec.Code)
	require.Equal(t, "504 loader timed out", env.renderer.view.Page.(ErrorData).Message)

	env.store.layoutErr = fmt.Errorf("storefront: layout: %w", context.DeadlineExceeded)
	rec = env.get(t, "/")
	require.Equal(t, http.StatusGatewayTimeout, rec.Code)
	require.Equal(t, "Error", env.renderer.view.Title)
	require.Equal(t, "504 root loader timed out", env.renderer.view.Page.(ErrorData).Message)
}

func TestLocalizedProductPage(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/products/the-hydrogen", nil)
	req.Header.Set("Accept-Language", "ja-JP,ja;q=0.9")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	doc := testutil.ParseHTML(t, rec.Body.Bytes())
	lang, _ := doc.Find("html").Attr("lang")
	require.Equal(t, "ja", lang)
	require.Equal(t, "ハイドロジェン スノーボード | Hydrogen Demo Store", doc.Find("title").Text())
}

func postForm(t *testing.T, env *testEnv, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/cart", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func addToCart(t *testing.T, env *testEnv, variantID, qty string) []*http.Cookie {
	t.Helper()
	rec := postForm(t, env, url.Values{"variant_id": {variantID}, "quantity": {qty}})
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	require.Equal(t, "/cart", rec.Header().Get("Location"))
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies
}
