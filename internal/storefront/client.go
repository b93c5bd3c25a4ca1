package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/rstol/hydrogen/internal/observability"
)

const (
	defaultTimeout    = 8 * time.Second
	defaultAPIVersion = "2024-01"
	defaultCacheTTL   = 5 * time.Minute
	tokenHeader       = "X-Shopify-Storefront-Access-Token"
	headerMenuHandle  = "main-menu"
	footerMenuHandle  = "footer"
	tracerName        = "github.com/rstol/hydrogen/internal/storefront"
)

// ErrNotFound is returned when a product or cart does not exist.
var ErrNotFound = errors.New("storefront: not found")

// GraphQLError reports errors returned in a GraphQL response body.
type GraphQLError struct {
	Operation string
	Messages  []string
}

func (e *GraphQLError) Error() string {
	return fmt.Sprintf("storefront: %s: %s", e.Operation, strings.Join(e.Messages, "; "))
}

// Options configures a Client.
type Options struct {
	// Domain of the shop, e.g. "demo.myshopify.com". Empty serves fixture data.
	Domain     string
	Token      string
	APIVersion string
	Timeout    time.Duration
	Cache      Cache
	CacheTTL   time.Duration
	Metrics    *observability.Metrics
	HTTPClient *http.Client
	Fixture    *Fixture
}

// Client reads shop data from the Storefront GraphQL API, or from an in-memory
// fixture when no domain is configured.
type Client struct {
	endpoint string
	origin   string
	token    string
	http     *http.Client
	cache    Cache
	ttl      time.Duration
	metrics  *observability.Metrics
	fixture  *Fixture
	tracer   trace.Tracer
}

// NewClient constructs a Client.
func NewClient(opts Options) (*Client, error) {
	c := &Client{
		token:   strings.TrimSpace(opts.Token),
		http:    opts.HTTPClient,
		cache:   opts.Cache,
		ttl:     opts.CacheTTL,
		metrics: opts.Metrics,
		tracer:  otel.Tracer(tracerName),
	}
	if c.ttl <= 0 {
		c.ttl = defaultCacheTTL
	}
	if c.http == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		c.http = &http.Client{Timeout: timeout}
	}

	domain := strings.TrimRight(strings.TrimSpace(opts.Domain), "/")
	if domain == "" {
		c.fixture = opts.Fixture
		if c.fixture == nil {
			c.fixture = NewFixture()
		}
		return c, nil
	}
	if !strings.Contains(domain, "://") {
		domain = "https://" + domain
	}
	version := strings.TrimSpace(opts.APIVersion)
	if version == "" {
		version = defaultAPIVersion
	}
	endpoint, err := url.JoinPath(domain, "api", version, "graphql.json")
	if err != nil {
		return nil, fmt.Errorf("storefront: invalid domain %q: %w", opts.Domain, err)
	}
	c.endpoint = endpoint
	c.origin = domain
	return c, nil
}

// UsesFixture reports whether the client serves local fixture data.
func (c *Client) UsesFixture() bool { return c.fixture != nil }

// Layout returns shop info and navigation menus localized to lang.
func (c *Client) Layout(ctx context.Context, lang string) (Layout, error) {
	return cached(ctx, c, "layout:"+lang, func(ctx context.Context) (Layout, error) {
		if c.fixture != nil {
			return observed(c, "layout", c.fixture.Layout(lang), nil)
		}
		var data layoutPayload
		vars := map[string]any{
			"language":         languageCode(lang),
			"headerMenuHandle": headerMenuHandle,
			"footerMenuHandle": footerMenuHandle,
		}
		if err := c.do(ctx, "layout", layoutQuery, vars, &data); err != nil {
			return Layout{}, err
		}
		return data.toLayout(), nil
	})
}

// Countries returns the markets available to buyers.
func (c *Client) Countries(ctx context.Context) ([]Country, error) {
	return cached(ctx, c, "countries", func(ctx context.Context) ([]Country, error) {
		if c.fixture != nil {
			return observed(c, "countries", c.fixture.Countries(), nil)
		}
		var data struct {
			Localization struct {
				AvailableCountries []Country `json:"availableCountries"`
			} `json:"localization"`
		}
		if err := c.do(ctx, "countries", countriesQuery, nil, &data); err != nil {
			return nil, err
		}
		return data.Localization.AvailableCountries, nil
	})
}

// Cart returns the cart with the given id. Carts are never cached.
func (c *Client) Cart(ctx context.Context, id string) (Cart, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Cart{}, ErrNotFound
	}
	if c.fixture != nil {
		cart, err := c.fixture.Cart(id)
		return observed(c, "cart", cart, err)
	}
	var data struct {
		Cart *cartPayload `json:"cart"`
	}
	if err := c.do(ctx, "cart", cartQuery, map[string]any{"cartId": id}, &data); err != nil {
		return Cart{}, err
	}
	if data.Cart == nil {
		c.observe("cart", ErrNotFound)
		return Cart{}, ErrNotFound
	}
	return data.Cart.toCart(), nil
}

// Product returns the product with the given handle, localized to lang.
func (c *Client) Product(ctx context.Context, handle, lang string) (Product, error) {
	handle = strings.ToLower(strings.TrimSpace(handle))
	if handle == "" {
		return Product{}, ErrNotFound
	}
	return cached(ctx, c, "product:"+lang+":"+handle, func(ctx context.Context) (Product, error) {
		if c.fixture != nil {
			p, err := c.fixture.Product(handle, lang)
			return observed(c, "product", p, err)
		}
		var data struct {
			Product *productPayload `json:"product"`
		}
		vars := map[string]any{"handle": handle, "language": languageCode(lang)}
		if err := c.do(ctx, "product", productQuery, vars, &data); err != nil {
			return Product{}, err
		}
		if data.Product == nil {
			c.observe("product", ErrNotFound)
			return Product{}, ErrNotFound
		}
		return data.Product.toProduct(), nil
	})
}

// LineInput adds quantity units of a variant to a cart.
type LineInput struct {
	VariantID string
	Quantity  int
}

// CreateCart creates a cart holding lines.
func (c *Client) CreateCart(ctx context.Context, lines []LineInput) (Cart, error) {
	if c.fixture != nil {
		cart, err := c.fixture.CreateCart(lines)
		return observed(c, "cartCreate", cart, err)
	}
	var data struct {
		CartCreate cartMutationPayload `json:"cartCreate"`
	}
	vars := map[string]any{"input": map[string]any{"lines": lineInputs(lines)}}
	if err := c.do(ctx, "cartCreate", cartCreateMutation, vars, &data); err != nil {
		return Cart{}, err
	}
	return data.CartCreate.result("cartCreate")
}

// AddCartLines adds lines to an existing cart.
func (c *Client) AddCartLines(ctx context.Context, cartID string, lines []LineInput) (Cart, error) {
	if c.fixture != nil {
		cart, err := c.fixture.AddLines(cartID, lines)
		return observed(c, "cartLinesAdd", cart, err)
	}
	var data struct {
		CartLinesAdd cartMutationPayload `json:"cartLinesAdd"`
	}
	vars := map[string]any{"cartId": cartID, "lines": lineInputs(lines)}
	if err := c.do(ctx, "cartLinesAdd", cartLinesAddMutation, vars, &data); err != nil {
		return Cart{}, err
	}
	return data.CartLinesAdd.result("cartLinesAdd")
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (c *Client) do(ctx context.Context, op, query string, vars map[string]any, out any) (err error) {
	ctx, span := c.tracer.Start(ctx, "storefront."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("storefront.operation", op)),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		c.observe(op, err)
	}()

	payload, err := json.Marshal(graphqlRequest{Query: query, Variables: vars})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set(tokenHeader, c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("storefront: %s: %w", op, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("storefront: %s status %d: %s", op, resp.StatusCode, drainError(resp.Body))
	}

	var env graphqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("storefront: %s: decode response: %w", op, err)
	}
	if len(env.Errors) > 0 {
		msgs := make([]string, 0, len(env.Errors))
		for _, e := range env.Errors {
			msgs = append(msgs, e.Message)
		}
		return &GraphQLError{Operation: op, Messages: msgs}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("storefront: %s: decode data: %w", op, err)
	}
	return nil
}

func (c *Client) observe(op string, err error) {
	if c.metrics == nil {
		return
	}
	outcome := "ok"
	switch {
	case errors.Is(err, ErrNotFound):
		outcome = "not_found"
	case err != nil:
		outcome = "error"
	}
	c.metrics.UpstreamRequests.WithLabelValues(op, outcome).Inc()
}

func observed[T any](c *Client, op string, v T, err error) (T, error) {
	c.observe(op, err)
	return v, err
}

func cached[T any](ctx context.Context, c *Client, key string, fetch func(context.Context) (T, error)) (T, error) {
	if c.cache != nil {
		raw, ok, err := c.cache.Get(ctx, key)
		if err != nil {
			observability.FromContext(ctx).Warn("storefront cache read failed", zap.String("key", key), zap.Error(err))
		} else if ok {
			var v T
			if err := json.Unmarshal(raw, &v); err == nil {
				return v, nil
			}
		}
	}
	v, err := fetch(ctx)
	if err != nil {
		return v, err
	}
	if c.cache != nil {
		if raw, err := json.Marshal(v); err == nil {
			if err := c.cache.Set(ctx, key, raw, c.ttl); err != nil {
				observability.FromContext(ctx).Warn("storefront cache write failed", zap.String("key", key), zap.Error(err))
			}
		}
	}
	return v, nil
}

func languageCode(lang string) string {
	lang = strings.TrimSpace(lang)
	if i := strings.IndexAny(lang, "-_"); i != -1 {
		lang = lang[:i]
	}
	return strings.ToUpper(lang)
}

func lineInputs(lines []LineInput) []map[string]any {
	out := make([]map[string]any, 0, len(lines))
	for _, l := range lines {
		q := l.Quantity
		if q <= 0 {
			q = 1
		}
		out = append(out, map[string]any{"merchandiseId": l.VariantID, "quantity": q})
	}
	return out
}

func drainError(r io.Reader) string {
	if r == nil {
		return ""
	}
	b, _ := io.ReadAll(io.LimitReader(r, 256))
	return strings.TrimSpace(string(b))
}
