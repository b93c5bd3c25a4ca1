package middleware

import (
	"context"
	"net/http"
	"time"
)

// Deadline bounds the request context to d. Unlike chi's Timeout it never
// writes a response itself: loaders see context.DeadlineExceeded and the
// page renders its own boundary. A non-positive d disables the bound.
func Deadline(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
