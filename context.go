package authsess

import "context"

type principalContextKey struct{}

// WithPrincipal attaches an authenticated [Principal] to ctx. The session
// middleware calls this after a successful [Engine.Authenticate]; handlers
// read it back with [PrincipalFromContext].
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext returns the authenticated caller, if any.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	return p, ok
}
