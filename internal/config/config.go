package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultEnvFile         = ".env"
	defaultPort            = "8080"
	defaultReadTimeout     = 15 * time.Second
	defaultWriteTimeout    = 15 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultRequestTimeout  = 30 * time.Second
	defaultEnvironment     = "local"
	defaultTemplatesDir    = "templates"
	defaultPublicDir       = "public"
	defaultLocalesDir      = "locales"
	defaultContentDir      = "content"
	defaultLocale          = "en"
	defaultShopName        = "Hydrogen Demo Store"
	defaultAPIVersion      = "2024-01"
	defaultUpstreamTimeout = 8 * time.Second
	defaultCacheTTL        = 5 * time.Minute
	defaultLogLevel        = "info"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server     ServerConfig
	App        AppConfig
	Session    SessionConfig
	Shop       ShopConfig
	Storefront StorefrontConfig
	Cache      CacheConfig
	Log        LogConfig
	Analytics  AnalyticsConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration
}

// AppConfig locates templates, assets, and locale bundles.
type AppConfig struct {
	Environment      string
	Dev              bool
	TemplatesDir     string
	PublicDir        string
	LocalesDir       string
	ContentDir       string
	DefaultLocale    string
	SupportedLocales []string
}

// Production reports whether the app runs in the prod environment.
func (a AppConfig) Production() bool { return a.Environment == "prod" }

// SessionConfig controls the signed session cookie.
type SessionConfig struct {
	SigningKey string
}

// ShopConfig holds shop-wide SEO defaults.
type ShopConfig struct {
	Name          string
	PublicBaseURL string
	TwitterHandle string
}

// StorefrontConfig points at the commerce backend. An empty Domain serves fixture data.
type StorefrontConfig struct {
	Domain     string
	Token      string
	APIVersion string
	Timeout    time.Duration
}

// CacheConfig controls response caching.
type CacheConfig struct {
	TTL      time.Duration
	RedisURL string
}

// AnalyticsConfig configures client instrumentation tags.
type AnalyticsConfig struct {
	GA4MeasurementID string
	Debug            bool
}

// LogConfig controls logging.
type LogConfig struct {
	Level string
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.LookupEnv, relying only on provided maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the configuration from defaults, .env overrides, environment
// variables, and explicit maps, in increasing order of precedence.
func Load(opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	// Port resolution: prefer WEB_SERVER_PORT, then the platform's PORT.
	port := stringWithDefault(lookup, "PORT", defaultPort)
	port = stringWithDefault(lookup, "WEB_SERVER_PORT", port)

	cfg := Config{
		Server: ServerConfig{
			Port:           port,
			ReadTimeout:    durationWithDefault(lookup, "WEB_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout:   durationWithDefault(lookup, "WEB_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:    durationWithDefault(lookup, "WEB_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
			RequestTimeout: durationWithDefault(lookup, "WEB_REQUEST_TIMEOUT", defaultRequestTimeout),
		},
		App: AppConfig{
			Environment:      strings.ToLower(stringWithDefault(lookup, "WEB_ENV", defaultEnvironment)),
			Dev:              boolWithDefault(lookup, "WEB_DEV", false),
			TemplatesDir:     stringWithDefault(lookup, "WEB_TEMPLATES_DIR", defaultTemplatesDir),
			PublicDir:        stringWithDefault(lookup, "WEB_PUBLIC_DIR", defaultPublicDir),
			LocalesDir:       stringWithDefault(lookup, "WEB_LOCALES_DIR", defaultLocalesDir),
			ContentDir:       stringWithDefault(lookup, "WEB_CONTENT_DIR", defaultContentDir),
			DefaultLocale:    strings.ToLower(stringWithDefault(lookup, "WEB_DEFAULT_LOCALE", defaultLocale)),
			SupportedLocales: csvWithDefault(lookup, "WEB_SUPPORTED_LOCALES"),
		},
		Session: SessionConfig{
			SigningKey: stringWithDefault(lookup, "WEB_SESSION_SIGNING_KEY", ""),
		},
		Shop: ShopConfig{
			Name:          stringWithDefault(lookup, "WEB_SHOP_NAME", defaultShopName),
			PublicBaseURL: strings.TrimRight(stringWithDefault(lookup, "WEB_PUBLIC_BASE_URL", ""), "/"),
			TwitterHandle: stringWithDefault(lookup, "WEB_TWITTER_HANDLE", ""),
		},
		Storefront: StorefrontConfig{
			Domain:     stringWithDefault(lookup, "WEB_STOREFRONT_DOMAIN", ""),
			Token:      stringWithDefault(lookup, "WEB_STOREFRONT_TOKEN", ""),
			APIVersion: stringWithDefault(lookup, "WEB_STOREFRONT_API_VERSION", defaultAPIVersion),
			Timeout:    durationWithDefault(lookup, "WEB_STOREFRONT_TIMEOUT", defaultUpstreamTimeout),
		},
		Cache: CacheConfig{
			TTL:      durationWithDefault(lookup, "WEB_CACHE_TTL", defaultCacheTTL),
			RedisURL: stringWithDefault(lookup, "WEB_REDIS_URL", ""),
		},
		Log: LogConfig{
			Level: stringWithDefault(lookup, "LOG_LEVEL", defaultLogLevel),
		},
		Analytics: AnalyticsConfig{
			GA4MeasurementID: stringWithDefault(lookup, "WEB_GA_MEASUREMENT_ID", ""),
			Debug:            boolWithDefault(lookup, "WEB_ANALYTICS_DEBUG", false),
		},
	}

	if len(cfg.App.SupportedLocales) == 0 {
		cfg.App.SupportedLocales = []string{"en", "ja"}
	}
	for i, l := range cfg.App.SupportedLocales {
		cfg.App.SupportedLocales[i] = strings.ToLower(l)
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}
	if cfg.Server.RequestTimeout <= 0 {
		missing = append(missing, "Server.RequestTimeout")
	}
	if !contains(cfg.App.SupportedLocales, cfg.App.DefaultLocale) {
		missing = append(missing, "App.DefaultLocale")
	}
	if strings.TrimSpace(cfg.Shop.Name) == "" {
		missing = append(missing, "Shop.Name")
	}
	if cfg.Storefront.Domain != "" && cfg.Storefront.Token == "" {
		missing = append(missing, "Storefront.Token")
	}
	if cfg.App.Production() && cfg.Session.SigningKey == "" {
		missing = append(missing, "Session.SigningKey")
	}
	if cfg.Cache.TTL <= 0 {
		missing = append(missing, "Cache.TTL")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	values, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", path, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(value)); err == nil {
			return d
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return fallback
}

func csvWithDefault(lookup func(string) (string, bool), key string) []string {
	value, ok := lookup(key)
	if !ok || strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
