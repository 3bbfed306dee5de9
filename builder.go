package authsess

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/brimhavenlabs/authsess/revocation"
	"github.com/brimhavenlabs/authsess/token"
)

// Builder assembles an Engine. A builder is single-use: Build consumes it.
//
//	engine, err := authsess.New().
//		WithConfig(cfg).
//		WithStore(store).
//		WithDirectory(directory).
//		Build()
type Builder struct {
	config    Config
	store     revocation.Store
	directory UserDirectory
	logger    *slog.Logger
	auditSink AuditSink
	built     bool
}

// New returns a builder preloaded with DefaultConfig.
func New() *Builder {
	return &Builder{config: DefaultConfig()}
}

// WithConfig replaces the entire configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStore sets the revocation store. Required.
func (b *Builder) WithStore(store revocation.Store) *Builder {
	b.store = store
	return b
}

// WithDirectory sets the user directory consulted on every request. Required.
func (b *Builder) WithDirectory(directory UserDirectory) *Builder {
	b.directory = directory
	return b
}

// WithLogger sets the structured logger. Defaults to slog.Default.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink sets the destination for audit events. Only consulted when
// Config.Audit.Enabled is true; defaults to a no-op sink.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// Build validates the configuration, wires the token issuer and verifier,
// and starts the background workers. Callers own the returned Engine and
// should Close it on shutdown.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("authsess: builder already used, create a new one")
	}
	b.built = true

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("authsess: invalid config: %w", err)
	}
	if b.store == nil {
		return nil, errors.New("authsess: revocation store is required")
	}
	if b.directory == nil {
		return nil, errors.New("authsess: user directory is required")
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	tokenCfg := token.Config{
		Secret:     cfg.Secret,
		AccessTTL:  cfg.AccessTTL,
		RefreshTTL: cfg.RefreshTTL,
		Issuer:     cfg.Issuer,
		Audience:   cfg.Audience,
		Leeway:     cfg.Leeway,
		Now:        cfg.clock(),
	}
	issuer, err := token.NewIssuer(tokenCfg)
	if err != nil {
		return nil, fmt.Errorf("authsess: %w", err)
	}
	verifier, err := token.NewVerifier(tokenCfg)
	if err != nil {
		return nil, fmt.Errorf("authsess: %w", err)
	}

	e := &Engine{
		config:    cfg,
		store:     b.store,
		directory: b.directory,
		issuer:    issuer,
		verifier:  verifier,
		logger:    logger,
		audit:     newAuditDispatcher(cfg.Audit, b.auditSink),
		now:       cfg.clock(),
	}

	if cfg.SweepInterval > 0 {
		if sweeper, ok := b.store.(revocation.Sweeper); ok {
			e.startSweeper(sweeper)
		}
	}

	return e, nil
}
