package token

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/brimhavenlabs/authsess/internal"
)

// Issuer mints both halves of a session: short-lived signed access tokens
// and long-lived sealed refresh tokens. It holds no state beyond the derived
// cipher and is safe for concurrent use.
type Issuer struct {
	cfg  Config
	aead cipher.AEAD
	now  func() time.Time
}

func NewIssuer(cfg Config) (*Issuer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	aead, err := newRefreshAEAD(cfg.Secret)
	if err != nil {
		return nil, err
	}
	return &Issuer{cfg: cfg, aead: aead, now: cfg.clock()}, nil
}

// Access mints an HS256-signed access token for id, valid for AccessTTL
// from now. The signing algorithm is fixed; there is no negotiation.
func (i *Issuer) Access(id Identity) (string, error) {
	now := i.now()
	claims := Claims{
		Email:    id.Email,
		Role:     id.Role,
		TenantID: id.TenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			Issuer:    i.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.cfg.AccessTTL)),
		},
	}
	if i.cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{i.cfg.Audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// NewChain opens a fresh refresh chain for userID: new random chain id,
// counter zero, full RefreshTTL. The decoded payload is returned alongside
// the sealed token so callers can persist the chain's revocation record.
func (i *Issuer) NewChain(userID string) (string, RefreshPayload, error) {
	chainID, err := internal.NewChainID()
	if err != nil {
		return "", RefreshPayload{}, fmt.Errorf("new refresh chain: %w", err)
	}
	payload := RefreshPayload{
		UserID:    userID,
		ChainID:   chainID,
		Counter:   0,
		ExpiresAt: i.expiry(),
	}
	sealed, err := i.seal(payload)
	if err != nil {
		return "", RefreshPayload{}, err
	}
	return sealed, payload, nil
}

// Rotate advances a verified payload to its next generation: same chain id,
// counter incremented by exactly one, expiry reset to a full RefreshTTL.
// Rotate never consults storage; callers must run the revocation-store check
// against the presented token before minting its successor.
func (i *Issuer) Rotate(p RefreshPayload) (string, RefreshPayload, error) {
	if p.ChainID == uuid.Nil || p.UserID == "" {
		return "", RefreshPayload{}, ErrInvalid
	}
	next := RefreshPayload{
		UserID:    p.UserID,
		ChainID:   p.ChainID,
		Counter:   p.Counter + 1,
		ExpiresAt: i.expiry(),
	}
	sealed, err := i.seal(next)
	if err != nil {
		return "", RefreshPayload{}, err
	}
	return sealed, next, nil
}

// expiry truncates to whole seconds so the payload survives its wire
// round-trip byte-exact.
func (i *Issuer) expiry() time.Time {
	return i.now().Add(i.cfg.RefreshTTL).Truncate(time.Second)
}

func (i *Issuer) seal(p RefreshPayload) (string, error) {
	plain, err := encodeRefreshPayload(p)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX, chacha20poly1305.NonceSizeX+len(plain)+i.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("refresh nonce: %w", err)
	}
	sealed := i.aead.Seal(nonce, nonce, plain, nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}
