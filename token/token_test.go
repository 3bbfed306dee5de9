package token

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func frozenClock(start time.Time) (now func() time.Time, advance func(time.Duration)) {
	var mu sync.Mutex
	current := start
	now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return current
	}
	advance = func(d time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		current = current.Add(d)
	}
	return now, advance
}

func testConfig(now func() time.Time) Config {
	return Config{
		Secret:     []byte("0123456789abcdef0123456789abcdef"),
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
		Issuer:     "authsess",
		Audience:   "api",
		Leeway:     30 * time.Second,
		Now:        now,
	}
}

func newPair(t *testing.T, cfg Config) (*Issuer, *Verifier) {
	t.Helper()
	iss, err := NewIssuer(cfg)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	ver, err := NewVerifier(cfg)
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	return iss, ver
}

func TestAccessRoundTrip(t *testing.T) {
	now, _ := frozenClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	iss, ver := newPair(t, testConfig(now))

	tenant := "tenant-a"
	id := Identity{UserID: "u1", Email: "u1@example.com", Role: "member", TenantID: &tenant}
	raw, err := iss.Access(id)
	if err != nil {
		t.Fatalf("mint access: %v", err)
	}

	claims, err := ver.Access(raw)
	if err != nil {
		t.Fatalf("verify access: %v", err)
	}
	if claims.Subject != "u1" || claims.Email != "u1@example.com" || claims.Role != "member" {
		t.Fatalf("claims do not match identity: %+v", claims)
	}
	if claims.TenantID == nil || *claims.TenantID != "tenant-a" {
		t.Fatalf("tenant claim lost: %v", claims.TenantID)
	}
	wantExp := now().Add(15 * time.Minute)
	if !claims.ExpiresAt.Time.Equal(wantExp) {
		t.Fatalf("expiry = %v, want %v", claims.ExpiresAt.Time, wantExp)
	}
	got := claims.Identity()
	if got.UserID != id.UserID || got.Email != id.Email || got.Role != id.Role {
		t.Fatalf("identity round-trip mismatch: %+v", got)
	}
}

func TestAccessOmitsNilTenant(t *testing.T) {
	now, _ := frozenClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	iss, ver := newPair(t, testConfig(now))

	raw, err := iss.Access(Identity{UserID: "admin", Role: "platform-admin"})
	if err != nil {
		t.Fatalf("mint access: %v", err)
	}
	claims, err := ver.Access(raw)
	if err != nil {
		t.Fatalf("verify access: %v", err)
	}
	if claims.TenantID != nil {
		t.Fatalf("expected nil tenant claim, got %q", *claims.TenantID)
	}
}

func TestAccessExpiry(t *testing.T) {
	now, advance := frozenClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	iss, ver := newPair(t, testConfig(now))

	raw, err := iss.Access(Identity{UserID: "u1"})
	if err != nil {
		t.Fatalf("mint access: %v", err)
	}

	// Inside the leeway window the token still verifies.
	advance(15*time.Minute + 10*time.Second)
	if _, err := ver.Access(raw); err != nil {
		t.Fatalf("expected token within leeway to verify: %v", err)
	}

	advance(time.Minute)
	if _, err := ver.Access(raw); !errors.Is(err, ErrExpired) {
		t.Fatalf("err = %v, want ErrExpired", err)
	}
}

func TestAccessWrongKey(t *testing.T) {
	now, _ := frozenClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	iss, _ := newPair(t, testConfig(now))

	other := testConfig(now)
	other.Secret = []byte("ffffffffffffffffffffffffffffffff")
	ver, err := NewVerifier(other)
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	raw, err := iss.Access(Identity{UserID: "u1"})
	if err != nil {
		t.Fatalf("mint access: %v", err)
	}
	if _, err := ver.Access(raw); !errors.Is(err, ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
}

func TestAccessRejectsForeignAlgorithm(t *testing.T) {
	now, _ := frozenClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	cfg := testConfig(now)
	_, ver := newPair(t, cfg)

	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "u1",
		Issuer:    cfg.Issuer,
		Audience:  jwt.ClaimStrings{cfg.Audience},
		IssuedAt:  jwt.NewNumericDate(now()),
		ExpiresAt: jwt.NewNumericDate(now().Add(time.Minute)),
	}}
	foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS384, claims).SignedString(cfg.Secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := ver.Access(foreign); !errors.Is(err, ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
}

func TestAccessIssuerAndAudience(t *testing.T) {
	now, _ := frozenClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	_, ver := newPair(t, testConfig(now))

	foreign := testConfig(now)
	foreign.Issuer = "someone-else"
	iss, err := NewIssuer(foreign)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	raw, err := iss.Access(Identity{UserID: "u1"})
	if err != nil {
		t.Fatalf("mint access: %v", err)
	}
	if _, err := ver.Access(raw); !errors.Is(err, ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
}

func TestAccessMalformed(t *testing.T) {
	now, _ := frozenClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	_, ver := newPair(t, testConfig(now))

	for _, raw := range []string{"", "garbage", "a.b", "a.b.c.d"} {
		if _, err := ver.Access(raw); !errors.Is(err, ErrMalformed) {
			t.Fatalf("Access(%q) err = %v, want ErrMalformed", raw, err)
		}
	}
}

func TestNewChainAndRotate(t *testing.T) {
	now, _ := frozenClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	iss, ver := newPair(t, testConfig(now))

	raw, payload, err := iss.NewChain("u1")
	if err != nil {
		t.Fatalf("new chain: %v", err)
	}
	if payload.ChainID == uuid.Nil {
		t.Fatal("new chain has zero chain id")
	}
	if payload.Counter != 0 {
		t.Fatalf("counter = %d, want 0", payload.Counter)
	}
	if payload.UserID != "u1" {
		t.Fatalf("user id = %q, want u1", payload.UserID)
	}
	wantExp := now().Add(7 * 24 * time.Hour).Truncate(time.Second)
	if !payload.ExpiresAt.Equal(wantExp) {
		t.Fatalf("expiry = %v, want %v", payload.ExpiresAt, wantExp)
	}

	decoded, err := ver.Refresh(raw)
	if err != nil {
		t.Fatalf("verify refresh: %v", err)
	}
	if decoded.ChainID != payload.ChainID || decoded.Counter != 0 || decoded.UserID != "u1" {
		t.Fatalf("decoded payload mismatch: %+v", decoded)
	}
	if !decoded.ExpiresAt.Equal(payload.ExpiresAt) {
		t.Fatalf("decoded expiry = %v, want %v", decoded.ExpiresAt, payload.ExpiresAt)
	}

	rotated, next, err := iss.Rotate(decoded)
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if rotated == raw {
		t.Fatal("rotated token equals its predecessor")
	}
	if next.ChainID != payload.ChainID {
		t.Fatalf("rotation changed chain id: %v -> %v", payload.ChainID, next.ChainID)
	}
	if next.Counter != 1 {
		t.Fatalf("counter after rotate = %d, want 1", next.Counter)
	}

	redecoded, err := ver.Refresh(rotated)
	if err != nil {
		t.Fatalf("verify rotated refresh: %v", err)
	}
	if redecoded.Counter != 1 || redecoded.ChainID != payload.ChainID {
		t.Fatalf("rotated payload mismatch: %+v", redecoded)
	}
}

func TestRotateRejectsZeroPayload(t *testing.T) {
	now, _ := frozenClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	iss, _ := newPair(t, testConfig(now))

	if _, _, err := iss.Rotate(RefreshPayload{}); !errors.Is(err, ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
}

func TestRefreshExpiredStillReturnsPayload(t *testing.T) {
	now, advance := frozenClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	iss, ver := newPair(t, testConfig(now))

	raw, payload, err := iss.NewChain("u1")
	if err != nil {
		t.Fatalf("new chain: %v", err)
	}

	advance(7*24*time.Hour + time.Second)
	decoded, err := ver.Refresh(raw)
	if !errors.Is(err, ErrExpired) {
		t.Fatalf("err = %v, want ErrExpired", err)
	}
	if decoded.ChainID != payload.ChainID || decoded.UserID != "u1" {
		t.Fatalf("expired refresh lost its payload: %+v", decoded)
	}
}

func TestRefreshTamperAndWrongKey(t *testing.T) {
	now, _ := frozenClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	iss, ver := newPair(t, testConfig(now))

	raw, _, err := iss.NewChain("u1")
	if err != nil {
		t.Fatalf("new chain: %v", err)
	}

	blob, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		t.Fatalf("decode sealed token: %v", err)
	}
	blob[len(blob)-1] ^= 0x01
	tampered := base64.RawURLEncoding.EncodeToString(blob)
	if _, err := ver.Refresh(tampered); !errors.Is(err, ErrInvalid) {
		t.Fatalf("tampered err = %v, want ErrInvalid", err)
	}

	other := testConfig(now)
	other.Secret = []byte("ffffffffffffffffffffffffffffffff")
	foreign, err := NewVerifier(other)
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	if _, err := foreign.Refresh(raw); !errors.Is(err, ErrInvalid) {
		t.Fatalf("wrong key err = %v, want ErrInvalid", err)
	}
}

func TestRefreshMalformedInputs(t *testing.T) {
	now, _ := frozenClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	_, ver := newPair(t, testConfig(now))

	short := base64.RawURLEncoding.EncodeToString([]byte("too-short"))
	for _, raw := range []string{"", "!!!not-base64!!!", short} {
		if _, err := ver.Refresh(raw); !errors.Is(err, ErrMalformed) {
			t.Fatalf("Refresh(%q) err = %v, want ErrMalformed", raw, err)
		}
	}
}

func TestRefreshPayloadCodecRoundTrip(t *testing.T) {
	for i := 0; i < 100; i++ {
		idBytes := make([]byte, 1+i%40)
		if _, err := rand.Read(idBytes); err != nil {
			t.Fatalf("rand: %v", err)
		}
		p := RefreshPayload{
			UserID:    base64.RawURLEncoding.EncodeToString(idBytes),
			ChainID:   uuid.New(),
			Counter:   uint64(i) * 7919,
			ExpiresAt: time.Unix(int64(1700000000+i*3600), 0),
		}
		encoded, err := encodeRefreshPayload(p)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		decoded, err := decodeRefreshPayload(encoded)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if decoded.UserID != p.UserID || decoded.ChainID != p.ChainID || decoded.Counter != p.Counter {
			t.Fatalf("round-trip mismatch: %+v != %+v", decoded, p)
		}
		if !decoded.ExpiresAt.Equal(p.ExpiresAt) {
			t.Fatalf("expiry mismatch: %v != %v", decoded.ExpiresAt, p.ExpiresAt)
		}
	}
}

func TestRefreshPayloadCodecRejects(t *testing.T) {
	valid, err := encodeRefreshPayload(RefreshPayload{
		UserID:    "u1",
		ChainID:   uuid.New(),
		Counter:   3,
		ExpiresAt: time.Unix(1700000000, 0),
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	if _, err := decodeRefreshPayload(nil); err == nil {
		t.Fatal("expected empty input to fail")
	}
	if _, err := decodeRefreshPayload(valid[:len(valid)-1]); err == nil {
		t.Fatal("expected truncated input to fail")
	}
	if _, err := decodeRefreshPayload(append(append([]byte{}, valid...), 0x00)); err == nil {
		t.Fatal("expected trailing bytes to fail")
	}
	bumped := append([]byte{}, valid...)
	bumped[0] = refreshFormatVersion + 1
	if _, err := decodeRefreshPayload(bumped); err == nil {
		t.Fatal("expected unknown version to fail")
	}
	if _, err := encodeRefreshPayload(RefreshPayload{UserID: strings.Repeat("x", 256), ChainID: uuid.New()}); err == nil {
		t.Fatal("expected oversized user id to fail")
	}
}

func TestConfigValidate(t *testing.T) {
	base := testConfig(nil)
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing secret", func(c *Config) { c.Secret = nil }},
		{"zero access ttl", func(c *Config) { c.AccessTTL = 0 }},
		{"zero refresh ttl", func(c *Config) { c.RefreshTTL = 0 }},
		{"negative leeway", func(c *Config) { c.Leeway = -time.Second }},
		{"huge leeway", func(c *Config) { c.Leeway = 5 * time.Minute }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			if _, err := NewIssuer(cfg); err == nil {
				t.Fatal("expected issuer construction to fail")
			}
			if _, err := NewVerifier(cfg); err == nil {
				t.Fatal("expected verifier construction to fail")
			}
		})
	}
}
