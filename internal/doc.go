// Package internal holds helpers shared by the authsess packages but kept
// out of the public API: refresh chain identity generation and the token
// hashing used by the revocation store.
//
// # What this package must NOT do
//
//   - Export types that appear in the public authsess API.
//   - Hold configuration or state; everything here is a pure function over
//     its inputs plus the process entropy source.
package internal
