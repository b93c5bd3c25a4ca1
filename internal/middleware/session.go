package middleware

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/rstol/hydrogen/internal/observability"
)

const (
	sessionCookieName = "HYDROGEN_SESSION"
	sessionLifetime   = 30 * 24 * time.Hour
)

// SessionData is the signed cookie payload. It carries the storefront cart
// and the visitor's language.
type SessionData struct {
	ID        string    `json:"id"`
	Locale    string    `json:"locale,omitempty"`
	CartID    string    `json:"cart,omitempty"`
	CSRFToken string    `json:"csrf,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	// internal dirty flag; not serialized
	dirty bool
}

// SessionStore signs and verifies session cookies.
type SessionStore struct {
	key    []byte
	secure bool
	now    func() time.Time
}

// NewSessionStore builds a store signing with key. An empty key generates a
// process-ephemeral one, which is only acceptable in development.
func NewSessionStore(key string, secure bool) *SessionStore {
	signKey := []byte(key)
	if len(signKey) == 0 {
		signKey = make([]byte, 32)
		if _, err := rand.Read(signKey); err != nil {
			signKey = []byte("insecure-dev-key-please-set-WEB_SESSION_SIGNING_KEY")
		}
	}
	return &SessionStore{key: signKey, secure: secure, now: time.Now}
}

// Secure reports whether cookies are marked Secure.
func (s *SessionStore) Secure() bool { return s.secure }

// Session loads or initializes a session and stores it in request context.
// The cookie is written just before the first byte of the response when the
// session is new or was modified.
func Session(store *SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sd, fromCookie := store.read(r)
			if sd.ID == "" {
				now := store.now().UTC()
				sd.ID = randID()
				sd.CreatedAt = now
				sd.UpdatedAt = now
				sd.CSRFToken = newCSRFToken()
				sd.dirty = true
			}
			ctx := WithSession(r.Context(), sd)

			rw := NewResponseRecorder(w)
			rw.SetBeforeWrite(func(w http.ResponseWriter) {
				if sd.dirty || !fromCookie {
					store.write(w, sd)
				}
			})
			next.ServeHTTP(rw, r.WithContext(ctx))
			// nothing written yet (e.g. HEAD with empty body)
			if !rw.Written() && (sd.dirty || !fromCookie) {
				store.write(w, sd)
			}
		})
	}
}

// GetSession returns session data from context, or an empty detached session.
func GetSession(r *http.Request) *SessionData {
	if sd, ok := SessionFromContext(r.Context()); ok {
		return sd
	}
	return &SessionData{}
}

// MarkDirty flags the session for writing before the response is sent.
func (s *SessionData) MarkDirty() { s.dirty = true; s.UpdatedAt = time.Now().UTC() }

// SetCartID stores the storefront cart id.
func (s *SessionData) SetCartID(id string) {
	if s.CartID == id {
		return
	}
	s.CartID = id
	s.MarkDirty()
}

// ClearCart drops a cart id the storefront no longer recognizes.
func (s *SessionData) ClearCart() { s.SetCartID("") }

func (s *SessionStore) read(r *http.Request) (*SessionData, bool) {
	c, err := r.Cookie(sessionCookieName)
	if err != nil || c.Value == "" {
		return &SessionData{}, false
	}
	payloadB64, sigB64, ok := strings.Cut(c.Value, ".")
	if !ok {
		return &SessionData{}, false
	}
	payload, err := base64.RawURLEncoding.DecodeString(payloadB64)
	if err != nil {
		return &SessionData{}, false
	}
	sig, err := base64.RawURLEncoding.DecodeString(sigB64)
	if err != nil {
		return &SessionData{}, false
	}
	if !hmac.Equal(sig, s.sign(payload)) {
		observability.FromContext(r.Context()).Debug("session signature mismatch")
		return &SessionData{}, false
	}
	var sd SessionData
	if err := json.Unmarshal(payload, &sd); err != nil {
		return &SessionData{}, false
	}
	return &sd, true
}

func (s *SessionStore) write(w http.ResponseWriter, sd *SessionData) {
	b, _ := json.Marshal(sd)
	val := base64.RawURLEncoding.EncodeToString(b) + "." + base64.RawURLEncoding.EncodeToString(s.sign(b))
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    val,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  s.now().Add(sessionLifetime),
	})
	sd.dirty = false
}

func (s *SessionStore) sign(payload []byte) []byte {
	mac := hmac.New(sha256.New, s.key)
	mac.Write(payload)
	return mac.Sum(nil)
}

func randID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
