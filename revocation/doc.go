// Package revocation persists the server-side half of refresh-token
// rotation: one [Record] per chain, holding the hash of the single token
// generation that is still allowed to rotate.
//
// # Architecture boundaries
//
// This package stores and compares hashes. It never sees token plaintext,
// never decides what a mismatch means, and never talks to the user
// directory. The orchestrator owns those judgments; backends here answer
// exactly three questions: save this record, does this hash match the live
// one, forget this chain.
//
// Three backends ship: Redis for production fleets (native TTL expiry),
// Postgres for deployments that already run one (sweeper cleans up), and an
// in-memory map for tests and single-process demos.
package revocation
