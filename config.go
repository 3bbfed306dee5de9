package authsess

import (
	"errors"
	"time"
)

// Config carries every knob of the session subsystem. Configure once,
// pass to [Builder.WithConfig], and treat as immutable afterwards.
type Config struct {
	// Secret signs access tokens and keys refresh-token encryption. It is
	// the one value that must match across every instance of a deployment.
	Secret []byte

	// AccessTTL bounds how long a compromised access token stays usable.
	AccessTTL time.Duration

	// RefreshTTL bounds the total silence after which a session dies.
	RefreshTTL time.Duration

	// RotateWithin triggers best-effort proactive rotation when a valid
	// access token has less than this much lifetime left and a refresh
	// token rode along. Zero disables proactive rotation.
	RotateWithin time.Duration

	// Issuer and Audience are enforced on access tokens when non-empty.
	Issuer   string
	Audience string

	// Leeway absorbs clock skew between instances, capped at 2 minutes.
	Leeway time.Duration

	Cookies CookieConfig
	Audit   AuditConfig

	// SweepInterval runs the revocation-store sweeper this often, when the
	// configured store needs one. Zero disables the sweeper.
	SweepInterval time.Duration

	// ProductionMode tightens validation: longer secret, secure cookies.
	ProductionMode bool

	// Clock overrides the time source. Nil means time.Now. Tests freeze it.
	Clock func() time.Time
}

/*
====================================
COOKIE CONFIG
====================================
*/

// CookieConfig names and scopes the two session cookies. Both are always
// httpOnly with SameSite=Lax; those are not configurable.
type CookieConfig struct {
	AccessName  string
	RefreshName string
	Path        string
	Domain      string

	// Secure marks the cookies TLS-only. Required in production mode.
	Secure bool
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int

	// DropIfFull sheds events instead of blocking the request path when
	// the buffer is saturated.
	DropIfFull bool
}

// DefaultConfig returns the baseline configuration: 15 minute access
// tokens, 7 day refresh chains, proactive rotation inside the final
// 2 minutes. Secret must still be supplied.
func DefaultConfig() Config {
	return Config{
		AccessTTL:    15 * time.Minute,
		RefreshTTL:   7 * 24 * time.Hour,
		RotateWithin: 2 * time.Minute,
		Leeway:       30 * time.Second,
		Cookies: CookieConfig{
			AccessName:  "authsess_access",
			RefreshName: "authsess_refresh",
			Path:        "/",
			Secure:      true,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		SweepInterval: 0,
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Secret = cloneBytes(cfg.Secret)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks internal consistency. [Builder.Build] calls it; direct
// callers constructing a Config by hand should too.
func (c *Config) Validate() error {
	if len(c.Secret) == 0 {
		return errors.New("Secret is required")
	}
	if len(c.Secret) < 16 {
		return errors.New("Secret must be at least 16 bytes")
	}

	if c.AccessTTL <= 0 {
		return errors.New("AccessTTL must be > 0")
	}
	if c.RefreshTTL <= 0 {
		return errors.New("RefreshTTL must be > 0")
	}
	if c.RefreshTTL < c.AccessTTL {
		return errors.New("RefreshTTL must be >= AccessTTL")
	}

	if c.RotateWithin < 0 {
		return errors.New("RotateWithin must be >= 0")
	}
	if c.RotateWithin >= c.AccessTTL {
		return errors.New("RotateWithin must be < AccessTTL")
	}

	if c.Leeway < 0 || c.Leeway > 2*time.Minute {
		return errors.New("Leeway must be between 0 and 2m")
	}

	if c.Cookies.AccessName == "" {
		return errors.New("Cookies AccessName is required")
	}
	if c.Cookies.RefreshName == "" {
		return errors.New("Cookies RefreshName is required")
	}
	if c.Cookies.AccessName == c.Cookies.RefreshName {
		return errors.New("Cookies AccessName and RefreshName must differ")
	}
	if c.Cookies.Path == "" {
		return errors.New("Cookies Path is required")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	if c.SweepInterval < 0 {
		return errors.New("SweepInterval must be >= 0")
	}

	if c.ProductionMode {
		if len(c.Secret) < 32 {
			return errors.New("ProductionMode requires Secret of at least 32 bytes")
		}
		if !c.Cookies.Secure {
			return errors.New("ProductionMode requires Cookies Secure")
		}
	}

	return nil
}

func (c *Config) clock() func() time.Time {
	if c.Clock != nil {
		return c.Clock
	}
	return time.Now
}
