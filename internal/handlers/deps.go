package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rstol/hydrogen/internal/cms"
	"github.com/rstol/hydrogen/internal/storefront"
)

// Storefront is the subset of the commerce client used by pages.
type Storefront interface {
	Layout(ctx context.Context, lang string) (storefront.Layout, error)
	Countries(ctx context.Context) ([]storefront.Country, error)
	Cart(ctx context.Context, id string) (storefront.Cart, error)
	Product(ctx context.Context, handle, lang string) (storefront.Product, error)
	CreateCart(ctx context.Context, lines []storefront.LineInput) (storefront.Cart, error)
	AddCartLines(ctx context.Context, cartID string, lines []storefront.LineInput) (storefront.Cart, error)
}

// ContentSource serves localized static pages.
type ContentSource interface {
	GetContentPage(ctx context.Context, slug, lang string) (cms.Page, error)
}

// StatusError is a caught HTTP status raised by a loader or action. It is
// rendered by the catch boundary rather than the error boundary.
type StatusError struct {
	Status int
	Data   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%d %s", e.Status, e.Data)
}

// Status builds a caught status error.
func Status(code int, data string) error {
	if data == "" {
		data = http.StatusText(code)
	}
	return &StatusError{Status: code, Data: data}
}
