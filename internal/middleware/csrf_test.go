package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func csrfHandler(t *testing.T) (http.Handler, *SessionStore) {
	t.Helper()
	store := NewSessionStore("csrf-key", false)
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return Session(store)(HTMX(CSRF(false)(ok))), store
}

func primeCSRF(t *testing.T, h http.Handler) (session, csrf *http.Cookie) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	cookies := rec.Result().Cookies()
	session = findCookie(cookies, sessionCookieName)
	csrf = findCookie(cookies, csrfCookieName)
	require.NotNil(t, session)
	require.NotNil(t, csrf)
	require.NotEmpty(t, csrf.Value)
	return session, csrf
}

func TestCSRFAcceptsHeaderToken(t *testing.T) {
	h, _ := csrfHandler(t)
	session, csrf := primeCSRF(t, h)

	req := httptest.NewRequest(http.MethodPost, "/cart", nil)
	req.AddCookie(session)
	req.AddCookie(csrf)
	req.Header.Set(csrfHeaderName, csrf.Value)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCSRFAcceptsFormToken(t *testing.T) {
	h, _ := csrfHandler(t)
	session, csrf := primeCSRF(t, h)

	form := url.Values{CSRFFormField: {csrf.Value}, "quantity": {"1"}}
	req := httptest.NewRequest(http.MethodPost, "/cart", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(session)
	req.AddCookie(csrf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCSRFRejectsMissingOrWrongToken(t *testing.T) {
	h, _ := csrfHandler(t)
	session, csrf := primeCSRF(t, h)

	cases := map[string]func(*http.Request){
		"no token": func(r *http.Request) {
			r.AddCookie(session)
			r.AddCookie(csrf)
		},
		"wrong token": func(r *http.Request) {
			r.AddCookie(session)
			r.AddCookie(csrf)
			r.Header.Set(csrfHeaderName, "nope")
		},
		"missing cookie": func(r *http.Request) {
			r.AddCookie(session)
			r.Header.Set(csrfHeaderName, csrf.Value)
		},
	}
	for name, prepare := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/cart", nil)
			prepare(req)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			require.Equal(t, http.StatusForbidden, rec.Code)
		})
	}
}

func TestCSRFErrorEnvelopeForHTMX(t *testing.T) {
	h, _ := csrfHandler(t)
	req := httptest.NewRequest(http.MethodPost, "/cart", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	require.JSONEq(t, `{"error":"csrf_invalid","message":"invalid CSRF token","status":403}`, rec.Body.String())
}
