// Package authsess is a cookie-based session subsystem for multi-tenant
// HTTP services: short-lived JWT access tokens, long-lived encrypted refresh
// tokens rotated on every use, and server-side reuse detection that revokes
// a whole chain the moment a stale token comes back.
//
// The package is designed for concurrent server workloads: Engine methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// authsess is the public surface. It exposes [Engine], [Builder], [Config],
// the error taxonomy, and value types ([Principal], [SessionTokens],
// [UserRecord]). Token formats live in token/, persistence backends in
// revocation/, and HTTP plumbing in middleware/; none of them import this
// package back.
//
// # What this package must NOT do
//
//   - Cache tenant assignments. Tenant context is read from the live
//     [UserDirectory] record on every authenticated request, never from
//     token claims.
//   - Reissue a refresh token whose stored hash does not match. A mismatch
//     is reuse; the chain dies.
//   - Grant access when the revocation store is unreachable. Unverifiable
//     is unauthorized.
//
// # Performance contract
//
// Authenticate with a valid access token costs one signature check plus one
// directory lookup and no store round-trip. The refresh path is allowed one
// store read and one store write.
package authsess
