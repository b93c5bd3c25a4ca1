package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func findCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestSessionMiddlewareLifecycle(t *testing.T) {
	store := NewSessionStore("test-signing-key", false)
	store.now = func() time.Time { return time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC) }

	var ids []string
	handler := Session(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := SessionFromContext(r.Context())
		require.True(t, ok)
		ids = append(ids, sess.ID)
		w.WriteHeader(http.StatusOK)
	}))

	rec1 := httptest.NewRecorder()
	handler.ServeHTTP(rec1, httptest.NewRequest(http.MethodGet, "/", nil))
	cookie := findCookie(rec1.Result().Cookies(), sessionCookieName)
	require.NotNil(t, cookie, "expected session cookie on first response")
	require.True(t, cookie.HttpOnly)
	require.Equal(t, http.SameSiteLaxMode, cookie.SameSite)

	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.AddCookie(cookie)
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req2)
	require.Len(t, ids, 2)
	require.Equal(t, ids[0], ids[1])
	require.Nil(t, findCookie(rec2.Result().Cookies(), sessionCookieName), "unchanged session must not be rewritten")
}

func TestSessionRejectsTamperedCookie(t *testing.T) {
	issuer := NewSessionStore("key-one", false)
	verifier := NewSessionStore("key-two", false)

	rec := httptest.NewRecorder()
	Session(issuer)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		GetSession(r).SetCartID("gid://shopify/Cart/1")
		w.WriteHeader(http.StatusNoContent)
	})).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	cookie := findCookie(rec.Result().Cookies(), sessionCookieName)
	require.NotNil(t, cookie)

	var cartID string
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	Session(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cartID = GetSession(r).CartID
	})).ServeHTTP(httptest.NewRecorder(), req)
	require.Empty(t, cartID)
}

func TestSessionPersistsChangesMadeBeforeRedirect(t *testing.T) {
	store := NewSessionStore("test-signing-key", false)
	handler := Session(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		GetSession(r).SetCartID("cart-42")
		http.Redirect(w, r, "/cart", http.StatusSeeOther)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/cart", nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	cookie := findCookie(rec.Result().Cookies(), sessionCookieName)
	require.NotNil(t, cookie)

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.AddCookie(cookie)
	var got string
	Session(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetSession(r).CartID
	})).ServeHTTP(httptest.NewRecorder(), req)
	require.Equal(t, "cart-42", got)
}

func TestSessionWritesCookieWhenNothingWritten(t *testing.T) {
	store := NewSessionStore("", false)
	rec := httptest.NewRecorder()
	Session(store)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})).
		ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/", nil))
	require.NotNil(t, findCookie(rec.Result().Cookies(), sessionCookieName))
}

func TestGetSessionWithoutMiddleware(t *testing.T) {
	s := GetSession(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotNil(t, s)
	require.Empty(t, s.ID)
}
