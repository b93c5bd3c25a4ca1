package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/rstol/hydrogen/internal/cms"
	"github.com/rstol/hydrogen/internal/config"
	"github.com/rstol/hydrogen/internal/handlers"
	"github.com/rstol/hydrogen/internal/i18n"
	mw "github.com/rstol/hydrogen/internal/middleware"
	"github.com/rstol/hydrogen/internal/observability"
	"github.com/rstol/hydrogen/internal/storefront"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "web: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("web listening",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.App.Environment),
			zap.Bool("dev", cfg.App.Dev),
			zap.Bool("fixture", a.store.UsesFixture()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// app is the assembled web application.
type app struct {
	router *chi.Mux
	// pages is the middleware chain in front of every HTML page.
	pages chi.Middlewares
	// boundaries serves the not-found and method-not-allowed pages. It
	// skips CSRF so unsafe methods still reach the boundary.
	boundaries chi.Middlewares
	shell   *handlers.Shell
	store   *storefront.Client
	metrics *observability.Metrics
	closers []io.Closer
}

// Close releases external connections.
func (a *app) Close() {
	for _, c := range a.closers {
		_ = c.Close()
	}
}

func newApp(cfg config.Config, logger *zap.Logger) (*app, error) {
	a := &app{metrics: observability.NewMetrics()}

	cache, err := newCache(cfg.Cache, logger)
	if err != nil {
		return nil, err
	}
	if c, ok := cache.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}

	a.store, err = storefront.NewClient(storefront.Options{
		Domain:     cfg.Storefront.Domain,
		Token:      cfg.Storefront.Token,
		APIVersion: cfg.Storefront.APIVersion,
		Timeout:    cfg.Storefront.Timeout,
		Cache:      cache,
		CacheTTL:   cfg.Cache.TTL,
		Metrics:    a.metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("storefront client: %w", err)
	}

	bundle, err := i18n.Load(cfg.App.LocalesDir, cfg.App.DefaultLocale, cfg.App.SupportedLocales)
	if err != nil {
		return nil, fmt.Errorf("load i18n: %w", err)
	}

	rend, err := newRenderer(cfg.App.TemplatesDir, cfg.App.Dev, bundle)
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	a.shell = &handlers.Shell{
		Root:       &handlers.RootLoader{Store: a.store, Metrics: a.metrics},
		Store:      a.store,
		Content:    cms.NewClient(cfg.App.ContentDir, cfg.App.DefaultLocale, cfg.Cache.TTL),
		Bundle:     bundle,
		Shop:       cfg.Shop,
		Renderer:   rend,
		Metrics:    a.metrics,
		Analytics:  handlers.AnalyticsFromConfig(cfg.Analytics),
		Dev:        cfg.App.Dev,
		Production: cfg.App.Production(),
	}

	if cfg.Session.SigningKey == "" {
		logger.Warn("session: using ephemeral signing key; set WEB_SESSION_SIGNING_KEY")
	}
	sessions := mw.NewSessionStore(cfg.Session.SigningKey, cfg.App.Production())

	a.boundaries = chi.Middlewares{
		mw.HTMX,
		mw.Session(sessions),
		mw.Locale(bundle),
		a.shell.Recoverer,
	}
	a.pages = chi.Middlewares{
		mw.HTMX,
		mw.Session(sessions),
		mw.Locale(bundle),
		a.shell.Recoverer,
		mw.CSRF(sessions.Secure()),
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	// If deployed behind a trusted reverse proxy/load balancer, RealIP will use
	// X-Forwarded-For to determine the client IP.
	r.Use(chimw.RealIP)
	r.Use(mw.RequestLogger(logger, a.metrics))
	r.Use(chimw.Recoverer)
	r.Use(mw.Deadline(cfg.Server.RequestTimeout))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "ok")
	})
	r.Handle("/metrics", a.metrics.Handler())
	r.Handle("/assets/*", mw.AssetsWithCache("/assets", filepath.Join(cfg.App.PublicDir, "assets")))

	r.Group(func(r chi.Router) {
		r.Use(a.pages...)
		r.Get("/", handlers.Handle(a.shell, a.shell.HomeRoute()))
		r.Get("/products/{handle}", handlers.Handle(a.shell, a.shell.ProductRoute()))
		r.Get("/pages/{slug}", handlers.Handle(a.shell, a.shell.PageRoute()))
		r.Get("/cart", handlers.Handle(a.shell, a.shell.CartRoute()))
		r.Post("/cart", a.shell.AddToCart)
	})
	r.NotFound(a.boundaries.HandlerFunc(a.shell.NotFound).ServeHTTP)
	r.MethodNotAllowed(a.boundaries.HandlerFunc(a.shell.MethodNotAllowed).ServeHTTP)

	a.router = r
	return a, nil
}

// newCache returns a Redis cache when configured and reachable, else memory.
func newCache(cfg config.CacheConfig, logger *zap.Logger) (storefront.Cache, error) {
	if cfg.RedisURL == "" {
		return storefront.NewMemoryCache(), nil
	}
	rc, err := storefront.NewRedisCache(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rc.Ping(ctx); err != nil {
		logger.Warn("redis unreachable, falling back to memory cache", zap.Error(err))
		_ = rc.Close()
		return storefront.NewMemoryCache(), nil
	}
	return rc, nil
}
