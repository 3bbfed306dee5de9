package revocation

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound means no live record exists for the chain: never stored,
	// already revoked, or expired.
	ErrNotFound = errors.New("revocation record not found")

	// ErrHashMismatch means a record exists for the chain but the presented
	// hash is not the live generation. Callers treat this as token reuse.
	ErrHashMismatch = errors.New("revocation record hash mismatch")

	// ErrUnavailable wraps backend failures. Callers must fail closed.
	ErrUnavailable = errors.New("revocation store unavailable")
)

// Record is the stored state of one refresh chain. TokenHash holds the hex
// SHA-256 digest of the newest minted refresh token; older generations of
// the same chain hash to something else and are caught on Verify.
type Record struct {
	ChainID   string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
}

// Store persists one record per refresh chain.
//
// Save overwrites unconditionally (last writer wins). Verify compares the
// presented hash against the live record and returns nil, [ErrNotFound],
// [ErrHashMismatch] or a wrapped [ErrUnavailable]. Revoke deletes the chain
// and is idempotent: revoking an absent chain is not an error.
type Store interface {
	Save(ctx context.Context, rec Record) error
	Verify(ctx context.Context, userID, chainID, tokenHash string) error
	Revoke(ctx context.Context, userID, chainID string) error
}

// Sweeper is implemented by backends that accumulate expired records and
// need periodic cleanup. Redis expires keys natively and does not implement
// it.
type Sweeper interface {
	// Sweep deletes expired records and reports how many went away.
	Sweep(ctx context.Context) (int64, error)
}

// Pinger is implemented by backends that can report connectivity, for
// health endpoints.
type Pinger interface {
	Ping(ctx context.Context) error
}
