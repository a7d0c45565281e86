// internal/auth/session.go
package auth

import (
	"context"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/mja00/banguard/internal/models"
	"github.com/mja00/banguard/internal/session"
)

type ctxKeyAccount struct{}
type ctxKeySession struct{}
type ctxKeyToken struct{}

const (
	CookieSession  = "session"
	CookieRemember = "remember_token"
)

// cookieSecure controls whether the session cookie is marked Secure.
// Default true; main() should override based on config for local dev.
var cookieSecure = true

// SetCookieSecurity allows main.go to configure whether cookies are Secure.
func SetCookieSecurity(secure bool) { cookieSecure = secure }

var sameSiteMode = http.SameSiteLaxMode

// SetCookieSameSite allows configuring SameSite mode: "lax", "none", "strict".
func SetCookieSameSite(mode string) {
	switch mode {
	case "none":
		sameSiteMode = http.SameSiteNoneMode
	case "strict":
		sameSiteMode = http.SameSiteStrictMode
	default:
		sameSiteMode = http.SameSiteLaxMode
	}
}

// SetSessionCookie stores the session server-side and sets an opaque token
// cookie. Returns the token so callers can bind more state to it.
func SetSessionCookie(w http.ResponseWriter, store *session.Store, s models.Session) string {
	token := store.Create(s)
	http.SetCookie(w, &http.Cookie{
		Name:     CookieSession,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   cookieSecure,
		SameSite: sameSiteMode,
		Expires:  s.Expiry,
	})
	return token
}

// ClearSessionCookie expires the session cookie on the client.
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieSession,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   cookieSecure,
		SameSite: sameSiteMode,
	})
}

// SetRememberCookie sets the long-lived persistent login cookie. Only the
// hash of value is ever stored server-side.
func SetRememberCookie(w http.ResponseWriter, value string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieRemember,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   cookieSecure,
		SameSite: sameSiteMode,
		Expires:  expires,
	})
}

func ClearRememberCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieRemember,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   cookieSecure,
		SameSite: sameSiteMode,
	})
}

// ReadSession resolves the session cookie against the store. Returns the
// session and its token, or nil when the request is unauthenticated.
func ReadSession(r *http.Request, store *session.Store) (*models.Session, string) {
	c, err := r.Cookie(CookieSession)
	if err != nil || c.Value == "" {
		return nil, ""
	}
	sess, ok := store.Get(c.Value)
	if !ok {
		return nil, ""
	}
	// Return a copy to avoid mutation of store by callers
	s := sess
	return &s, c.Value
}

func WithSession(ctx context.Context, s *models.Session, token string) context.Context {
	ctx = context.WithValue(ctx, ctxKeySession{}, s)
	return context.WithValue(ctx, ctxKeyToken{}, token)
}

func SessionFromContext(ctx context.Context) (*models.Session, bool) {
	s, ok := ctx.Value(ctxKeySession{}).(*models.Session)
	return s, ok && s != nil
}

// SessionTokenFromContext returns the opaque token the session rode in on.
func SessionTokenFromContext(ctx context.Context) (string, bool) {
	t, ok := ctx.Value(ctxKeyToken{}).(string)
	return t, ok && t != ""
}

func WithAccount(ctx context.Context, a *models.Account) context.Context {
	return context.WithValue(ctx, ctxKeyAccount{}, a)
}

func AccountFromContext(ctx context.Context) (*models.Account, bool) {
	a, ok := ctx.Value(ctxKeyAccount{}).(*models.Account)
	return a, ok && a != nil
}

// clientIP extracts a best-effort client IP from headers or RemoteAddr.
func clientIP(r *http.Request) (netip.Addr, bool) {
	// Try common proxy header first
	if ff := r.Header.Get("X-Forwarded-For"); ff != "" {
		// XFF may be a list: client, proxy1, proxy2
		parts := strings.Split(ff, ",")
		if len(parts) > 0 {
			if ip, err := netip.ParseAddr(strings.TrimSpace(parts[0])); err == nil {
				return ip, true
			}
		}
	}
	// Fallback to X-Real-IP
	if rip := r.Header.Get("X-Real-IP"); rip != "" {
		if ip, err := netip.ParseAddr(strings.TrimSpace(rip)); err == nil {
			return ip, true
		}
	}
	// RemoteAddr may include port
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i > 0 {
		host = host[:i]
	}
	if ip, err := netip.ParseAddr(host); err == nil {
		return ip, true
	}
	return netip.Addr{}, false
}
