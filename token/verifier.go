package token

import (
	"crypto/cipher"
	"encoding/base64"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/chacha20poly1305"
)

// Verifier checks both token kinds. It performs no I/O: every decision is a
// function of the credential, the configured secret and the clock. A refresh
// token that passes [Verifier.Refresh] is well-formed and authentic but not
// yet trusted; only the revocation store knows whether its generation is
// still the live one.
type Verifier struct {
	cfg  Config
	aead cipher.AEAD
	now  func() time.Time
}

func NewVerifier(cfg Config) (*Verifier, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	aead, err := newRefreshAEAD(cfg.Secret)
	if err != nil {
		return nil, err
	}
	return &Verifier{cfg: cfg, aead: aead, now: cfg.clock()}, nil
}

// Access verifies a signed access token and returns its claims. Only HS256
// is accepted; a token announcing any other algorithm fails as invalid, so
// there is no path to downgrade or key-confusion tricks.
//
// Errors are one of [ErrMalformed], [ErrExpired] or [ErrInvalid].
func (v *Verifier) Access(raw string) (*Claims, error) {
	if raw == "" {
		return nil, ErrMalformed
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.now),
		jwt.WithExpirationRequired(),
	}
	if v.cfg.Leeway > 0 {
		opts = append(opts, jwt.WithLeeway(v.cfg.Leeway))
	}
	if v.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.cfg.Issuer))
	}
	if v.cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(v.cfg.Audience))
	}

	parsed, err := jwt.NewParser(opts...).ParseWithClaims(raw, &Claims{}, func(*jwt.Token) (any, error) {
		return v.cfg.Secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrMalformed
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpired
		default:
			return nil, ErrInvalid
		}
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || claims.Subject == "" {
		return nil, ErrInvalid
	}
	return claims, nil
}

// Refresh opens a sealed refresh token and returns its payload.
//
// On [ErrExpired] the decoded payload is still returned: an expired token is
// authentic, and callers like logout need its chain id to revoke the right
// record. Every other failure returns the zero payload.
func (v *Verifier) Refresh(raw string) (RefreshPayload, error) {
	if raw == "" {
		return RefreshPayload{}, ErrMalformed
	}
	data, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return RefreshPayload{}, ErrMalformed
	}
	if len(data) < chacha20poly1305.NonceSizeX+v.aead.Overhead() {
		return RefreshPayload{}, ErrMalformed
	}

	nonce, box := data[:chacha20poly1305.NonceSizeX], data[chacha20poly1305.NonceSizeX:]
	plain, err := v.aead.Open(nil, nonce, box, nil)
	if err != nil {
		return RefreshPayload{}, ErrInvalid
	}

	payload, err := decodeRefreshPayload(plain)
	if err != nil {
		return RefreshPayload{}, ErrInvalid
	}
	if !payload.ExpiresAt.After(v.now()) {
		return payload, ErrExpired
	}
	return payload, nil
}
