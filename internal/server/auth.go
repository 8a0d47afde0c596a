// auth.go - Session guard: HMAC-signed cookie sessions and the
// login/logout handlers.
//
// A session token is "payload.signature" where payload is a base64url
// JSON blob {sub, exp} and the signature is HMAC-SHA256 over the payload.
// No server-side session table: invalidation is cookie expiry, which makes
// logout synchronous and idempotent.
package server

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
)

// AuthConfig holds session-cookie configuration for the HTTP handlers.
type AuthConfig struct {
	SessionSecret string
	SessionTTL    time.Duration
	CookieName    string
}

type sessionPayload struct {
	Sub string `json:"sub"`
	Exp int64  `json:"exp"`
}

func (a AuthConfig) cookieName() string {
	if a.CookieName == "" {
		return "fd_session"
	}
	return a.CookieName
}

func (a AuthConfig) ttl() time.Duration {
	if a.SessionTTL <= 0 {
		return 12 * time.Hour
	}
	return a.SessionTTL
}

func signPayload(secret []byte, msg string) string {
	m := hmac.New(sha256.New, secret)
	_, _ = m.Write([]byte(msg))
	return hex.EncodeToString(m.Sum(nil))
}

// makeToken returns "payload.signature" for the given user id.
func (a AuthConfig) makeToken(sub string) (string, time.Time, error) {
	exp := time.Now().Add(a.ttl())
	b, err := json.Marshal(sessionPayload{Sub: sub, Exp: exp.Unix()})
	if err != nil {
		return "", time.Time{}, err
	}
	payload := base64.RawURLEncoding.EncodeToString(b)
	sig := signPayload([]byte(a.SessionSecret), payload)
	return payload + "." + sig, exp, nil
}

func (a AuthConfig) verifyToken(tok string) (sessionPayload, error) {
	var p sessionPayload
	payload, sig, ok := strings.Cut(tok, ".")
	if !ok {
		return p, errors.New("invalid token format")
	}
	want := signPayload([]byte(a.SessionSecret), payload)
	if !hmac.Equal([]byte(sig), []byte(want)) {
		return p, errors.New("invalid signature")
	}
	b, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return p, err
	}
	if err := json.Unmarshal(b, &p); err != nil {
		return p, err
	}
	if p.Exp <= time.Now().Unix() {
		return p, errors.New("expired")
	}
	return p, nil
}

const currentUserKey ctxKey = "current_user"

// UserFromContext returns the authenticated user id bound by requireAuth.
func UserFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(currentUserKey).(string); ok {
		return s
	}
	return ""
}

// requireAuth resolves the acting identity from the session cookie and
// binds it into the request context. Anonymous requests are redirected to
// the login page before any registry is reached, so no mutation happens.
func (a AuthConfig) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(a.cookieName())
		if err != nil {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		p, err := a.verifyToken(c.Value)
		if err != nil {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		ctx := context.WithValue(r.Context(), currentUserKey, p.Sub)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// loginHandler verifies credentials against the user store and issues the
// session cookie. Unknown email and wrong password are indistinguishable.
func (a AuthConfig) loginHandler(users *UserStore) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email := r.FormValue("email")
		password := r.FormValue("password")

		user, err := users.Verify(r.Context(), email, password)
		if err != nil {
			GetMetrics().RecordLoginAttempt(false)
			writeError(w, r, err)
			return
		}
		GetMetrics().RecordLoginAttempt(true)

		tok, exp, err := a.makeToken(user.ID.String())
		if err != nil {
			writeError(w, r, err)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     a.cookieName(),
			Value:    tok,
			Path:     "/",
			Expires:  exp,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		http.Redirect(w, r, "/", http.StatusSeeOther)
	})
}

// logoutHandler overwrites the session cookie with an expired one.
// Logging out an already-invalid session succeeds the same way.
func (a AuthConfig) logoutHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{
			Name:     a.cookieName(),
			Value:    "",
			Path:     "/",
			Expires:  time.Unix(0, 0),
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		http.Redirect(w, r, "/", http.StatusSeeOther)
	})
}
