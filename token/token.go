package token

import (
	"crypto/cipher"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/chacha20poly1305"
)

var (
	// ErrMalformed means the credential is not even token-shaped: wrong
	// segment count, bad base64, truncated ciphertext.
	ErrMalformed = errors.New("malformed token")

	// ErrInvalid means the credential parsed but failed verification:
	// bad signature, wrong key, failed decryption, rejected claims.
	ErrInvalid = errors.New("invalid token")

	// ErrExpired means the credential verified but its lifetime is over.
	ErrExpired = errors.New("token expired")
)

// Identity is the subject minted into an access token. TenantID is nil for
// platform-wide identities; everything else rides along as claims.
type Identity struct {
	UserID   string
	Email    string
	Role     string
	TenantID *string
}

// Claims is the access-token claim layout. The registered subject carries
// the user id; custom claims use short names to keep tokens small.
type Claims struct {
	Email    string  `json:"eml,omitempty"`
	Role     string  `json:"rol,omitempty"`
	TenantID *string `json:"tnt,omitempty"`
	jwt.RegisteredClaims
}

// Identity reassembles the minted identity from verified claims.
func (c *Claims) Identity() Identity {
	return Identity{
		UserID:   c.Subject,
		Email:    c.Email,
		Role:     c.Role,
		TenantID: c.TenantID,
	}
}

// Config carries everything issuers and verifiers need. Both sides of a
// deployment must agree on Secret, Issuer and Audience or verification
// fails.
//
//	Now: injectable clock, nil means time.Now. Tests freeze it.
type Config struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Issuer     string
	Audience   string
	Leeway     time.Duration
	Now        func() time.Time
}

func (c Config) validate() error {
	if len(c.Secret) == 0 {
		return errors.New("token Secret is required")
	}
	if c.AccessTTL <= 0 {
		return errors.New("token AccessTTL must be > 0")
	}
	if c.RefreshTTL <= 0 {
		return errors.New("token RefreshTTL must be > 0")
	}
	if c.Leeway < 0 || c.Leeway > 2*time.Minute {
		return errors.New("token Leeway must be between 0 and 2m")
	}
	return nil
}

func (c Config) clock() func() time.Time {
	if c.Now != nil {
		return c.Now
	}
	return time.Now
}

// newRefreshAEAD derives the refresh cipher from the shared secret. The
// sha256 digest is exactly the 32 bytes XChaCha20-Poly1305 wants, so any
// secret length maps onto a full-strength key.
func newRefreshAEAD(secret []byte) (cipher.AEAD, error) {
	key := sha256.Sum256(secret)
	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return nil, fmt.Errorf("derive refresh cipher: %w", err)
	}
	return aead, nil
}
