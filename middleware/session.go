package middleware

import (
	"errors"
	"net/http"
	"strings"

	authsess "github.com/brimhavenlabs/authsess"
)

// Option adjusts how Session handles a request.
type Option func(*sessionOptions)

type sessionOptions struct {
	bearerHeader bool
	onRejected   func(w http.ResponseWriter, r *http.Request, err error)
}

// WithBearerHeader makes Session accept the access token from an
// Authorization: Bearer header as well. The header wins over the cookie;
// the refresh token still travels only by cookie.
func WithBearerHeader() Option {
	return func(o *sessionOptions) {
		o.bearerHeader = true
	}
}

// WithRejectionHandler replaces the default status-code mapping for
// rejected requests. Cookie clearing still happens before the handler is
// called, so the handler only renders the response.
func WithRejectionHandler(h func(w http.ResponseWriter, r *http.Request, err error)) Option {
	return func(o *sessionOptions) {
		o.onRejected = h
	}
}

// Session returns middleware that authenticates every request through the
// engine. On success the Principal rides the request context; retrieve it
// with authsess.PrincipalFromContext. When the engine rotated the refresh
// chain the new pair is set as cookies on the response.
func Session(engine *authsess.Engine, opts ...Option) func(http.Handler) http.Handler {
	var o sessionOptions
	for _, opt := range opts {
		opt(&o)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			cfg := engine.Config()

			access := cookieValue(r, cfg.Cookies.AccessName)
			if o.bearerHeader {
				if bearer, ok := bearerToken(r.Header.Get("Authorization")); ok {
					access = bearer
				}
			}
			refresh := cookieValue(r, cfg.Cookies.RefreshName)

			result, err := engine.Authenticate(r.Context(), access, refresh)
			if err != nil {
				reject(w, r, cfg.Cookies, err, o.onRejected)
				return
			}

			if result.Rotated != nil {
				SetSessionCookies(w, cfg.Cookies, result.Rotated)
			}

			ctx := authsess.WithPrincipal(r.Context(), result.Principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func reject(w http.ResponseWriter, r *http.Request, cookies authsess.CookieConfig, err error, custom func(http.ResponseWriter, *http.Request, error)) {
	// An unreachable store is not a verdict on the credential. Leave the
	// cookies in place so the client can retry once the store is back.
	storeDown := errors.Is(err, authsess.ErrStoreUnavailable)
	if !storeDown {
		ClearSessionCookies(w, cookies)
	}

	if custom != nil {
		custom(w, r, err)
		return
	}

	switch {
	case storeDown:
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
	case errors.Is(err, authsess.ErrTenantUnassigned), errors.Is(err, authsess.ErrAccountInactive):
		http.Error(w, "forbidden", http.StatusForbidden)
	default:
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
