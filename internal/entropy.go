package internal

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/google/uuid"
)

// chainIDAttempts bounds regeneration when the entropy source misbehaves.
const chainIDAttempts = 3

// ErrWeakChainID is returned when the entropy source repeatedly produces
// degenerate chain identities.
var ErrWeakChainID = errors.New("entropy source produced a weak chain id")

// NewChainID returns a random 128-bit refresh chain identity. Degenerate
// output (the nil UUID, or a value that is nearly all zero bytes) is
// regenerated rather than emitted; after chainIDAttempts failures the
// entropy source is considered broken and an error is returned.
func NewChainID() (uuid.UUID, error) {
	for i := 0; i < chainIDAttempts; i++ {
		id, err := uuid.NewRandom()
		if err != nil {
			return uuid.Nil, err
		}
		if !weakChainID(id) {
			return id, nil
		}
	}
	return uuid.Nil, ErrWeakChainID
}

func weakChainID(id uuid.UUID) bool {
	if id == uuid.Nil {
		return true
	}

	// A healthy v4 UUID has a vanishing chance of 12+ zero bytes.
	zeros := 0
	for _, b := range id {
		if b == 0 {
			zeros++
		}
	}
	return zeros >= 12
}

// HashToken computes the revocation-store expectation for one generation of
// a refresh chain: the hex SHA-256 of the minted token value. Hashing the
// sealed value rather than its decoded fields makes every mint distinct, so
// the later writer of a rotation race invalidates the earlier one.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
