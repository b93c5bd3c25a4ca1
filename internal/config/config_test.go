package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	cfg, err := Load(WithEnvMap(map[string]string{}), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Server.RequestTimeout != 30*time.Second {
		t.Errorf("unexpected request timeout: %s", cfg.Server.RequestTimeout)
	}
	if cfg.App.Environment != "local" {
		t.Errorf("expected local environment, got %s", cfg.App.Environment)
	}
	if cfg.App.DefaultLocale != "en" {
		t.Errorf("expected default locale en, got %s", cfg.App.DefaultLocale)
	}
	if len(cfg.App.SupportedLocales) != 2 {
		t.Errorf("expected default supported locales, got %v", cfg.App.SupportedLocales)
	}
	if cfg.Shop.Name != defaultShopName {
		t.Errorf("expected default shop name, got %s", cfg.Shop.Name)
	}
	if cfg.Storefront.Domain != "" {
		t.Errorf("expected fixture storefront by default, got %s", cfg.Storefront.Domain)
	}
	if cfg.Cache.TTL != defaultCacheTTL {
		t.Errorf("unexpected cache ttl: %s", cfg.Cache.TTL)
	}
}

func TestLoadWithOverrides(t *testing.T) {
	env := map[string]string{
		"PORT":                       "7070",
		"WEB_SERVER_PORT":            "9090",
		"WEB_SERVER_READ_TIMEOUT":    "20s",
		"WEB_ENV":                    "PROD",
		"WEB_DEV":                    "true",
		"WEB_SESSION_SIGNING_KEY":    "k",
		"WEB_DEFAULT_LOCALE":         "JA",
		"WEB_SUPPORTED_LOCALES":      "ja, EN ,",
		"WEB_PUBLIC_BASE_URL":        "https://shop.example/",
		"WEB_STOREFRONT_DOMAIN":      "demo.myshopify.com",
		"WEB_STOREFRONT_TOKEN":       "tok",
		"WEB_STOREFRONT_API_VERSION": "2024-04",
		"WEB_CACHE_TTL":              "1m",
		"WEB_REDIS_URL":              "redis://localhost:6379/0",
		"WEB_GA_MEASUREMENT_ID":      "G-TEST",
	}
	cfg, err := Load(WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("expected WEB_SERVER_PORT to win, got %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 20*time.Second {
		t.Errorf("unexpected read timeout: %s", cfg.Server.ReadTimeout)
	}
	if !cfg.App.Production() || !cfg.App.Dev {
		t.Errorf("expected prod + dev flags, got %+v", cfg.App)
	}
	if cfg.App.DefaultLocale != "ja" {
		t.Errorf("expected ja default locale, got %s", cfg.App.DefaultLocale)
	}
	if got := cfg.App.SupportedLocales; len(got) != 2 || got[0] != "ja" || got[1] != "en" {
		t.Errorf("unexpected supported locales: %v", got)
	}
	if cfg.Shop.PublicBaseURL != "https://shop.example" {
		t.Errorf("expected trailing slash trimmed, got %s", cfg.Shop.PublicBaseURL)
	}
	if cfg.Storefront.APIVersion != "2024-04" || cfg.Cache.RedisURL == "" {
		t.Errorf("unexpected storefront/cache config: %+v %+v", cfg.Storefront, cfg.Cache)
	}
	if cfg.Analytics.GA4MeasurementID != "G-TEST" || cfg.Analytics.Debug {
		t.Errorf("unexpected analytics config: %+v", cfg.Analytics)
	}
}

func TestLoadFallsBackToPlatformPort(t *testing.T) {
	cfg, err := Load(WithEnvMap(map[string]string{"PORT": "7070"}), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Port != "7070" {
		t.Errorf("expected PORT fallback, got %s", cfg.Server.Port)
	}
}

func TestLoadReadsDotEnvWithLowestPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "# comment\nWEB_SHOP_NAME=\"Dotenv Shop\"\nexport WEB_TWITTER_HANDLE=@dotenv\nWEB_SERVER_PORT=1111\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	cfg, err := Load(WithEnvFile(path), WithoutSystemEnv(), WithEnvMap(map[string]string{"WEB_SERVER_PORT": "2222"}))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Shop.Name != "Dotenv Shop" {
		t.Errorf("expected shop name from .env, got %s", cfg.Shop.Name)
	}
	if cfg.Shop.TwitterHandle != "@dotenv" {
		t.Errorf("expected handle from .env, got %s", cfg.Shop.TwitterHandle)
	}
	if cfg.Server.Port != "2222" {
		t.Errorf("expected env map to override .env, got %s", cfg.Server.Port)
	}
}

func TestLoadMissingDotEnvIsIgnored(t *testing.T) {
	_, err := Load(WithEnvFile(filepath.Join(t.TempDir(), "missing.env")), WithoutSystemEnv())
	if err != nil {
		t.Fatalf("expected missing .env to be ignored, got %v", err)
	}
}

func TestLoadValidationErrors(t *testing.T) {
	env := map[string]string{
		"WEB_ENV":               "prod",
		"WEB_DEFAULT_LOCALE":    "fr",
		"WEB_STOREFRONT_DOMAIN": "demo.myshopify.com",
	}
	_, err := Load(WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	want := map[string]bool{"App.DefaultLocale": true, "Storefront.Token": true, "Session.SigningKey": true}
	for _, f := range vErr.Fields() {
		delete(want, f)
	}
	if len(want) != 0 {
		t.Fatalf("missing expected fields %v in %v", want, vErr.Fields())
	}
}
