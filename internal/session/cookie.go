package session

import (
	"net/http"
	"time"
)

const CookieName = "__Host-session"

// CookieOptions defines how session cookies are issued. Session cookies are
// always HttpOnly; Domain should stay empty for __Host- cookies.
type CookieOptions struct {
	Path     string
	Secure   bool
	SameSite http.SameSite
	Domain   string
}

func (o CookieOptions) write(w http.ResponseWriter, value string, expiresAt time.Time, maxAge int) {
	if o.Path == "" {
		o.Path = "/" // required for __Host-
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     o.Path,
		Domain:   o.Domain,
		Expires:  expiresAt,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: o.SameSite,
	})
}

// SetCookie issues the session cookie to the client.
func SetCookie(w http.ResponseWriter, sessionID string, expiresAt time.Time, opts CookieOptions) {
	opts.write(w, sessionID, expiresAt, 0)
}

// ClearCookie removes the session cookie from the client.
func ClearCookie(w http.ResponseWriter, opts CookieOptions) {
	opts.write(w, "", time.Time{}, -1)
}
