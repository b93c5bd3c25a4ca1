package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDeadlineBoundsContextWithoutWriting(t *testing.T) {
	var hasDeadline bool
	h := Deadline(time.Nanosecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasDeadline = r.Context().Deadline()
		<-r.Context().Done()
		w.WriteHeader(http.StatusGatewayTimeout)
		_, _ = w.Write([]byte("rendered by handler"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.True(t, hasDeadline)
	require.Equal(t, http.StatusGatewayTimeout, rec.Code)
	require.Equal(t, "rendered by handler", rec.Body.String())
}

func TestDeadlineDisabled(t *testing.T) {
	var hasDeadline bool
	h := Deadline(0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasDeadline = r.Context().Deadline()
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.False(t, hasDeadline)
}
