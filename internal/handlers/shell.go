package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rstol/hydrogen/internal/cms"
	"github.com/rstol/hydrogen/internal/config"
	"github.com/rstol/hydrogen/internal/i18n"
	mw "github.com/rstol/hydrogen/internal/middleware"
	"github.com/rstol/hydrogen/internal/nav"
	"github.com/rstol/hydrogen/internal/observability"
	"github.com/rstol/hydrogen/internal/seo"
	"github.com/rstol/hydrogen/internal/storefront"
)

// Renderer executes the shared shell with the named outlet template.
type Renderer interface {
	Render(w io.Writer, page string, view *View) error
}

// View is the data every shell template receives.
type View struct {
	Lang      string
	Head      template.HTML
	Title     string
	ShopName  string
	Path      string
	Nav       []nav.Item
	FooterNav []nav.Item
	Countries []storefront.Country
	CartCount int
	CSRFToken string
	Status    int
	Page      any
	Debug     *Debug
	Analytics Analytics
}

// Debug is the SEO debugger panel shown in dev mode.
type Debug struct {
	Title  string
	Head   string
	Issues []seo.Issue
}

// NotFoundKind selects the not-found message.
type NotFoundKind string

const (
	NotFoundGeneric NotFoundKind = "generic"
	NotFoundProduct NotFoundKind = "product"
	NotFoundPage    NotFoundKind = "page"
)

// NotFoundData is the outlet data of the catch boundary for 404.
type NotFoundData struct {
	Kind    NotFoundKind
	Message string
}

// ErrorData is the outlet data for any other caught status and for the
// error boundary.
type ErrorData struct {
	Status  int
	Heading string
	Message string
}

// Request is what route loaders and SEO callbacks see.
type Request struct {
	*http.Request
	Root *RootData
	Lang string
}

// Route is a page: Loader produces its data, SEO is the route's handle.seo
// and Template names the outlet.
type Route[T any] struct {
	Name     string
	Template string
	NotFound NotFoundKind
	Loader   func(ctx context.Context, req *Request) (T, error)
	SEO      func(req *Request, data T) seo.Seo
}

// Shell composes root data, route data and SEO into the shared document.
type Shell struct {
	Root       *RootLoader
	Store      Storefront
	Content    ContentSource
	Bundle     *i18n.Bundle
	Shop       config.ShopConfig
	Renderer   Renderer
	Metrics    *observability.Metrics
	Analytics  Analytics
	Dev        bool
	Production bool
}

type ctxKey string

const ctxKeyRootHolder ctxKey = "root_holder"

type rootHolder struct {
	data *RootData
}

// Handle turns a route into an HTTP handler.
func Handle[T any](s *Shell, rt Route[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		root, ok := s.loadRoot(w, r)
		if !ok {
			return
		}
		req := &Request{Request: r, Root: root, Lang: root.Lang}

		start := time.Now()
		data, err := rt.Loader(r.Context(), req)
		if s.Metrics != nil {
			s.Metrics.LoaderDuration.WithLabelValues(rt.Name).Observe(time.Since(start).Seconds())
		}
		if err != nil {
			s.Boundary(w, r, root, rt.NotFound, err)
			return
		}

		var routeSEO seo.Seo
		if rt.SEO != nil {
			routeSEO = rt.SEO(req, data)
		} else {
			routeSEO = seo.Seo{BypassTitleTemplate: true}
		}
		s.render(w, r, root, http.StatusOK, rt.Template, data, routeSEO)
	}
}

func (s *Shell) loadRoot(w http.ResponseWriter, r *http.Request) (*RootData, bool) {
	sess := mw.GetSession(r)
	root, err := s.Root.Load(r.Context(), mw.Lang(r), sess.CartID)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			s.CatchBoundary(w, r, nil, http.StatusGatewayTimeout, "root loader timed out", NotFoundGeneric)
			return nil, false
		}
		s.ErrorBoundary(w, r, nil, fmt.Errorf("root loader: %w", err))
		return nil, false
	}
	if root.CartMissing {
		sess.ClearCart()
	}
	if h, ok := r.Context().Value(ctxKeyRootHolder).(*rootHolder); ok {
		h.data = root
	}
	return root, true
}

// Boundary maps a loader error to the catch boundary (caught statuses and
// not-found sentinels) or the error boundary.
func (s *Shell) Boundary(w http.ResponseWriter, r *http.Request, root *RootData, kind NotFoundKind, err error) {
	var se *StatusError
	switch {
	case errors.As(err, &se):
		s.CatchBoundary(w, r, root, se.Status, se.Data, kind)
	case errors.Is(err, storefront.ErrNotFound), errors.Is(err, cms.ErrNotFound):
		s.CatchBoundary(w, r, root, http.StatusNotFound, "", kind)
	case errors.Is(err, context.DeadlineExceeded):
		s.CatchBoundary(w, r, root, http.StatusGatewayTimeout, "loader timed out", kind)
	default:
		s.ErrorBoundary(w, r, root, err)
	}
}

// CatchBoundary renders a caught HTTP status inside the shell.
func (s *Shell) CatchBoundary(w http.ResponseWriter, r *http.Request, root *RootData, status int, data string, kind NotFoundKind) {
	lang := langOf(root, r)
	if status == http.StatusNotFound {
		if kind == "" {
			kind = NotFoundGeneric
		}
		page := NotFoundData{Kind: kind, Message: s.t(lang, "notfound."+string(kind))}
		if mw.WantsJSON(r) {
			mw.WriteError(w, r, status, "not_found", page.Message)
			return
		}
		s.render(w, r, root, status, "notfound", page, boundarySEO(s.t(lang, "notfound.title")))
		return
	}
	page := ErrorData{Status: status, Heading: s.t(lang, "error.heading"), Message: strings.TrimSpace(fmt.Sprintf("%d %s", status, data))}
	if mw.WantsJSON(r) {
		mw.WriteError(w, r, status, errorCode(status), page.Message)
		return
	}
	s.render(w, r, root, status, "error", page, boundarySEO(s.t(lang, "error.title")))
}

// ErrorBoundary renders an uncaught error inside the shell with status 500.
// Production hides the error message.
func (s *Shell) ErrorBoundary(w http.ResponseWriter, r *http.Request, root *RootData, err error) {
	observability.FromContext(r.Context()).Error("page error", zap.Error(err))
	lang := langOf(root, r)
	message := s.t(lang, "error.generic")
	if !s.Production && err != nil {
		message = err.Error()
	}
	if mw.WantsJSON(r) {
		mw.WriteError(w, r, http.StatusInternalServerError, errorCode(http.StatusInternalServerError), message)
		return
	}
	page := ErrorData{Status: http.StatusInternalServerError, Heading: s.t(lang, "error.heading"), Message: message}
	s.render(w, r, root, http.StatusInternalServerError, "error", page, boundarySEO(s.t(lang, "error.title")))
}

// NotFound renders the generic 404 for unmatched routes.
func (s *Shell) NotFound(w http.ResponseWriter, r *http.Request) {
	root, err := s.Root.Load(r.Context(), mw.Lang(r), mw.GetSession(r).CartID)
	if err != nil {
		observability.FromContext(r.Context()).Warn("root loader failed on not found", zap.Error(err))
		root = nil
	}
	s.CatchBoundary(w, r, root, http.StatusNotFound, "", NotFoundGeneric)
}

// MethodNotAllowed renders a 405 for known paths hit with an unsupported method.
func (s *Shell) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	root, err := s.Root.Load(r.Context(), mw.Lang(r), mw.GetSession(r).CartID)
	if err != nil {
		observability.FromContext(r.Context()).Warn("root loader failed on method not allowed", zap.Error(err))
		root = nil
	}
	s.CatchBoundary(w, r, root, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed), NotFoundGeneric)
}

// Recoverer renders panics through the error boundary with whatever root
// data the page had loaded.
func (s *Shell) Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		holder := &rootHolder{}
		r = r.WithContext(context.WithValue(r.Context(), ctxKeyRootHolder, holder))
		mw.Recoverer(func(w http.ResponseWriter, r *http.Request, rec any) {
			err, ok := rec.(error)
			if !ok {
				err = fmt.Errorf("%v", rec)
			}
			s.ErrorBoundary(w, r, holder.data, err)
		})(next).ServeHTTP(w, r)
	})
}

func (s *Shell) render(w http.ResponseWriter, r *http.Request, root *RootData, status int, page string, data any, chain ...seo.Seo) {
	ctx := r.Context()
	logger := observability.FromContext(ctx)
	lang := langOf(root, r)

	merged := seo.MergeAll(append([]seo.Seo{RootSEO(root, s.Shop, s.Bundle, r.URL.Path)}, chain...)...)
	issues := seo.Validate(merged)
	for _, issue := range issues {
		logger.Debug("seo issue", zap.String("field", issue.Field), zap.String("message", issue.Message))
		if s.Metrics != nil {
			s.Metrics.SEOIssues.WithLabelValues(issue.Field).Inc()
		}
	}

	head, err := renderHead(seo.Generate(merged))
	if err != nil {
		logger.Error("render head", zap.Error(err))
	}

	view := &View{
		Lang:      lang,
		Head:      head,
		Title:     merged.FullTitle(),
		ShopName:  s.Shop.Name,
		Path:      r.URL.Path,
		CSRFToken: mw.CSRFToken(r),
		Status:    status,
		Page:      data,
		Analytics: s.Analytics,
	}
	if root != nil {
		if n := strings.TrimSpace(root.Layout.Shop.Name); n != "" {
			view.ShopName = n
		}
		view.Nav = nav.FromMenu(root.Layout.HeaderMenu, r.URL.Path)
		view.FooterNav = nav.FromMenu(root.Layout.FooterMenu, r.URL.Path)
		view.Countries = root.Countries
		view.CartCount = root.CartCount()
	}
	if s.Dev {
		view.Debug = &Debug{Title: view.Title, Head: string(head), Issues: issues}
	}

	var buf bytes.Buffer
	if err := s.Renderer.Render(&buf, page, view); err != nil {
		if page != "error" {
			s.ErrorBoundary(w, r, root, fmt.Errorf("render %s: %w", page, err))
			return
		}
		logger.Error("render error page", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// renderHead serializes SEO tags, then the meta export, then the links export.
func renderHead(tags []seo.HeadTag) (template.HTML, error) {
	var parts []string
	for _, group := range [][]seo.HeadTag{tags, Meta(), Links()} {
		out, err := seo.Render(group)
		if err != nil {
			return "", err
		}
		if out != "" {
			parts = append(parts, string(out))
		}
	}
	return template.HTML(strings.Join(parts, "\n")), nil
}

// errorCode derives the envelope code from the status text,
// e.g. 400 -> "bad_request".
func errorCode(status int) string {
	text := http.StatusText(status)
	if text == "" {
		return "error"
	}
	return strings.ReplaceAll(strings.ToLower(text), " ", "_")
}

func boundarySEO(title string) seo.Seo {
	return seo.Seo{Title: title, BypassTitleTemplate: true, Robots: "noindex"}
}

func langOf(root *RootData, r *http.Request) string {
	if root != nil && root.Lang != "" {
		return root.Lang
	}
	return mw.Lang(r)
}

func (s *Shell) t(lang, key string) string {
	if s.Bundle == nil {
		return key
	}
	return s.Bundle.T(lang, key)
}
