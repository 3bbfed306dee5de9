package middleware

import (
	"net/http"
	"time"

	authsess "github.com/brimhavenlabs/authsess"
)

// SetSessionCookies writes the token pair as two cookies. Both are httpOnly
// with SameSite=Lax; scripts never need to read them and cross-site POSTs
// must not carry them.
func SetSessionCookies(w http.ResponseWriter, cookies authsess.CookieConfig, tokens *authsess.SessionTokens) {
	if tokens == nil {
		return
	}
	http.SetCookie(w, sessionCookie(cookies, cookies.AccessName, tokens.Access, tokens.AccessExpiresAt))
	http.SetCookie(w, sessionCookie(cookies, cookies.RefreshName, tokens.Refresh, tokens.RefreshExpiresAt))
}

// ClearSessionCookies expires both cookies immediately.
func ClearSessionCookies(w http.ResponseWriter, cookies authsess.CookieConfig) {
	for _, name := range []string{cookies.AccessName, cookies.RefreshName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     cookies.Path,
			Domain:   cookies.Domain,
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   cookies.Secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

func sessionCookie(cookies authsess.CookieConfig, name, value string, expires time.Time) *http.Cookie {
	// Max-Age rides alongside Expires so lifetime does not depend on the
	// client's clock being right.
	maxAge := int(time.Until(expires) / time.Second)
	if maxAge < 1 {
		maxAge = 1
	}
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     cookies.Path,
		Domain:   cookies.Domain,
		Expires:  expires,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}
