// Package token mints and verifies the credential pair of the session
// subsystem: HS256-signed JWT access tokens and XChaCha20-Poly1305 sealed
// refresh tokens. One long-lived secret serves both: it signs access tokens
// directly and, hashed to a fixed length, keys the refresh AEAD.
//
// Verification is pure. Neither [Verifier.Access] nor [Verifier.Refresh]
// performs I/O, and a successfully decrypted refresh token is not yet
// trustworthy on its own: callers must check the revocation store before
// acting on it.
package token
