package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/rstol/hydrogen/internal/cms"
	"github.com/rstol/hydrogen/internal/config"
	"github.com/rstol/hydrogen/internal/i18n"
	mw "github.com/rstol/hydrogen/internal/middleware"
	"github.com/rstol/hydrogen/internal/observability"
	"github.com/rstol/hydrogen/internal/storefront"
)

// flakyStore wraps the fixture client and injects failures.
type flakyStore struct {
	*storefront.Client
	layoutErr    error
	countriesErr error
	cartErr      error
	productErr   error
	addLinesErr  error
}

func (s *flakyStore) Layout(ctx context.Context, lang string) (storefront.Layout, error) {
	if s.layoutErr != nil {
		return storefront.Layout{}, s.layoutErr
	}
	return s.Client.Layout(ctx, lang)
}

func (s *flakyStore) Countries(ctx context.Context) ([]storefront.Country, error) {
	if s.countriesErr != nil {
		return nil, s.countriesErr
	}
	return s.Client.Countries(ctx)
}

func (s *flakyStore) Cart(ctx context.Context, id string) (storefront.Cart, error) {
	if s.cartErr != nil {
		return storefront.Cart{}, s.cartErr
	}
	return s.Client.Cart(ctx, id)
}

func (s *flakyStore) Product(ctx context.Context, handle, lang string) (storefront.Product, error) {
	if s.productErr != nil {
		return storefront.Product{}, s.productErr
	}
	return s.Client.Product(ctx, handle, lang)
}

func (s *flakyStore) AddCartLines(ctx context.Context, cartID string, lines []storefront.LineInput) (storefront.Cart, error) {
	if s.addLinesErr != nil {
		return storefront.Cart{}, s.addLinesErr
	}
	return s.Client.AddCartLines(ctx, cartID, lines)
}

// recordingRenderer writes the head and outlet name so tests can inspect
// the document without the real templates.
type recordingRenderer struct {
	page string
	view *View
	fail bool
}

func (r *recordingRenderer) Render(w io.Writer, page string, view *View) error {
	if r.fail && page != "error" {
		return errors.New("template exploded")
	}
	r.page = page
	r.view = view
	_, err := fmt.Fprintf(w, "<!doctype html><html lang=%q><head>%s</head><body data-page=%q></body></html>", view.Lang, view.Head, page)
	return err
}

type testEnv struct {
	shell    *Shell
	store    *flakyStore
	renderer *recordingRenderer
	router   http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	client, err := storefront.NewClient(storefront.Options{})
	require.NoError(t, err)
	bundle, err := i18n.Load("../../locales", "en", []string{"en", "ja"})
	require.NoError(t, err)

	store := &flakyStore{Client: client}
	renderer := &recordingRenderer{}
	metrics := observability.NewMetrics()
	shell := &Shell{
		Root:     &RootLoader{Store: store, Metrics: metrics},
		Store:    store,
		Content:  cms.NewClient("../../content", "en", 0),
		Bundle:   bundle,
		Shop:     config.ShopConfig{Name: "Hydrogen Demo Store", PublicBaseURL: "https://hydrogen.example", TwitterHandle: "shopify"},
		Renderer: renderer,
		Metrics:  metrics,
	}

	sessions := mw.NewSessionStore("handlers-test", false)
	r := chi.NewRouter()
	r.Use(mw.HTMX)
	r.Use(mw.Session(sessions))
	r.Use(mw.Locale(bundle))
	r.Use(shell.Recoverer)
	r.Get("/", Handle(shell, shell.HomeRoute()))
	r.Get("/products/{handle}", Handle(shell, shell.ProductRoute()))
	r.Get("/pages/{slug}", Handle(shell, shell.PageRoute()))
	r.Get("/cart", Handle(shell, shell.CartRoute()))
	r.Post("/cart", shell.AddToCart)
	r.Get("/boom", func(http.ResponseWriter, *http.Request) { panic("kaboom") })
	r.NotFound(shell.NotFound)
	r.MethodNotAllowed(shell.MethodNotAllowed)

	return &testEnv{shell: shell, store: store, renderer: renderer, router: r}
}

func (e *testEnv) get(t *testing.T, target string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.Header.Set("Accept-Language", "en")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func bodyHas(t *testing.T, rec *httptest.ResponseRecorder, substr string) {
	t.Helper()
	require.True(t, strings.Contains(rec.Body.String(), substr), "expected %q in body: %s", substr, rec.Body.String())
}
