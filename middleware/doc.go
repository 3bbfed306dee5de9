// Package middleware adapts the authsess engine to net/http: it moves the
// session cookie pair in and out of requests and maps the error taxonomy to
// status codes.
//
// # Session flow
//
// [Session] reads the access and refresh cookies, calls Engine.Authenticate,
// and attaches the resulting Principal to the request context. When the
// engine rotated the refresh chain, the refreshed pair is written back as
// cookies before the wrapped handler runs.
//
// Rejections map to three responses:
//
//   - credential failures collapse to 401 and both cookies are cleared
//   - ErrTenantUnassigned and ErrAccountInactive map to 403, cookies cleared
//   - ErrStoreUnavailable maps to 503 and the cookies are left alone, since
//     the credential may still be good once the store is back
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It makes no
// authentication decisions of its own and never touches tokens beyond
// carrying them; all verification happens inside the engine.
package middleware
