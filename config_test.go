package authsess

import (
	"testing"
	"time"
)

func validTestConfig() Config {
	cfg := DefaultConfig()
	cfg.Secret = []byte("0123456789abcdef0123456789abcdef")
	return cfg
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default with secret", func(c *Config) {}, false},
		{"missing secret", func(c *Config) { c.Secret = nil }, true},
		{"short secret", func(c *Config) { c.Secret = []byte("too-short") }, true},
		{"sixteen byte secret ok", func(c *Config) { c.Secret = []byte("0123456789abcdef") }, false},
		{"zero access ttl", func(c *Config) { c.AccessTTL = 0 }, true},
		{"negative access ttl", func(c *Config) { c.AccessTTL = -time.Minute }, true},
		{"zero refresh ttl", func(c *Config) { c.RefreshTTL = 0 }, true},
		{"refresh shorter than access", func(c *Config) { c.RefreshTTL = time.Minute }, true},
		{"negative rotate window", func(c *Config) { c.RotateWithin = -time.Second }, true},
		{"rotate window equals access ttl", func(c *Config) { c.RotateWithin = c.AccessTTL }, true},
		{"zero rotate window ok", func(c *Config) { c.RotateWithin = 0 }, false},
		{"negative leeway", func(c *Config) { c.Leeway = -time.Second }, true},
		{"excessive leeway", func(c *Config) { c.Leeway = 3 * time.Minute }, true},
		{"empty access cookie name", func(c *Config) { c.Cookies.AccessName = "" }, true},
		{"empty refresh cookie name", func(c *Config) { c.Cookies.RefreshName = "" }, true},
		{"identical cookie names", func(c *Config) {
			c.Cookies.AccessName = "tok"
			c.Cookies.RefreshName = "tok"
		}, true},
		{"empty cookie path", func(c *Config) { c.Cookies.Path = "" }, true},
		{"audit enabled zero buffer", func(c *Config) {
			c.Audit.Enabled = true
			c.Audit.BufferSize = 0
		}, true},
		{"audit disabled zero buffer ok", func(c *Config) {
			c.Audit.Enabled = false
			c.Audit.BufferSize = 0
		}, false},
		{"negative sweep interval", func(c *Config) { c.SweepInterval = -time.Minute }, true},
		{"production short secret", func(c *Config) {
			c.ProductionMode = true
			c.Secret = []byte("0123456789abcdef")
		}, true},
		{"production insecure cookies", func(c *Config) {
			c.ProductionMode = true
			c.Cookies.Secure = false
		}, true},
		{"production well formed", func(c *Config) { c.ProductionMode = true }, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validTestConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestCloneConfigIsolatesSecret(t *testing.T) {
	cfg := validTestConfig()
	clone := cloneConfig(cfg)

	cfg.Secret[0] ^= 0xFF
	if clone.Secret[0] == cfg.Secret[0] {
		t.Fatal("clone must not share the secret backing array")
	}
}

func TestEngineConfigReturnsCopy(t *testing.T) {
	fx := newTestEngine(t)

	cfg := fx.engine.Config()
	cfg.Secret[0] ^= 0xFF
	cfg.Cookies.AccessName = "mangled"

	again := fx.engine.Config()
	if again.Cookies.AccessName == "mangled" {
		t.Fatal("Config must return an isolated copy")
	}
	if again.Secret[0] == cfg.Secret[0] {
		t.Fatal("Config must not expose the live secret")
	}
}

func TestDefaultConfigIsUsableWithSecret(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Secret = []byte("0123456789abcdef0123456789abcdef")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config with a secret should validate: %v", err)
	}
	if cfg.Cookies.AccessName == cfg.Cookies.RefreshName {
		t.Fatal("default cookie names must differ")
	}
}
