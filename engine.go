package authsess

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/brimhavenlabs/authsess/internal"
	"github.com/brimhavenlabs/authsess/observability"
	"github.com/brimhavenlabs/authsess/revocation"
	"github.com/brimhavenlabs/authsess/token"
)

const sweepTimeout = 30 * time.Second

// Engine is the session orchestrator. Build one through [Builder] and share
// it across goroutines; all fields are set before first use and never
// mutated afterwards.
type Engine struct {
	config    Config
	store     revocation.Store
	directory UserDirectory
	issuer    *token.Issuer
	verifier  *token.Verifier
	logger    *slog.Logger
	audit     *auditDispatcher
	now       func() time.Time

	sweepStop chan struct{}
	sweepDone chan struct{}
	closeOnce sync.Once
}

// StartSession opens a new session for a user the caller has already
// authenticated by other means (password check, SSO callback). It mints a
// fresh refresh chain, persists its revocation record, and returns both
// tokens. The user must be active and tenant-resolvable.
func (e *Engine) StartSession(ctx context.Context, userID string) (*SessionTokens, error) {
	rec, tenant, err := e.resolveUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	refresh, payload, err := e.issuer.NewChain(rec.ID)
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}

	record := revocation.Record{
		ChainID:   payload.ChainID.String(),
		UserID:    rec.ID,
		TokenHash: internal.HashToken(refresh),
		ExpiresAt: payload.ExpiresAt,
	}
	if err := e.store.Save(ctx, record); err != nil {
		observability.StoreErrorsTotal.WithLabelValues("save").Inc()
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	access, err := e.issuer.Access(e.identityFor(rec))
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}

	e.emitAudit(ctx, AuditEvent{
		EventType: EventSessionStarted,
		UserID:    rec.ID,
		TenantID:  tenant.TenantID,
		ChainID:   record.ChainID,
		Success:   true,
	})
	e.logger.Debug("session started", "user_id", rec.ID, "chain_id", record.ChainID)

	return &SessionTokens{
		Access:           access,
		AccessExpiresAt:  e.now().Add(e.config.AccessTTL),
		Refresh:          refresh,
		RefreshExpiresAt: payload.ExpiresAt,
	}, nil
}

// Authenticate decides one request. It tries the access token first; a
// valid one costs no store round-trip. An expired or missing access token
// falls through to the refresh path, which rotates the chain. Either way
// the tenant context comes from the live directory record, so membership
// changes and deactivations bite immediately.
//
// When a valid access token is close to expiry (inside RotateWithin) and a
// refresh token was presented, Authenticate rotates proactively. That
// rotation is best effort: its failure is logged and counted but never
// fails a request the access token already authorized.
func (e *Engine) Authenticate(ctx context.Context, accessToken, refreshToken string) (*Result, error) {
	start := time.Now()
	defer func() {
		observability.AuthenticationDuration.Observe(time.Since(start).Seconds())
	}()

	if accessToken == "" && refreshToken == "" {
		observability.AuthenticationsTotal.WithLabelValues(observability.OutcomeUnauthorized).Inc()
		return nil, ErrMalformed
	}

	var accessErr error
	if accessToken != "" {
		claims, err := e.verifier.Access(accessToken)
		if err == nil {
			result, rerr := e.authenticateWithClaims(ctx, claims, refreshToken)
			if rerr != nil {
				observability.AuthenticationsTotal.WithLabelValues(outcomeFor(rerr)).Inc()
				return nil, rerr
			}
			observability.AuthenticationsTotal.WithLabelValues(observability.OutcomeAccessValid).Inc()
			return result, nil
		}
		accessErr = err
	}

	if refreshToken == "" {
		err := mapTokenErr(accessErr)
		observability.AuthenticationsTotal.WithLabelValues(outcomeFor(err)).Inc()
		return nil, err
	}

	tokens, principal, err := e.refreshSession(ctx, refreshToken)
	if err != nil {
		observability.AuthenticationsTotal.WithLabelValues(outcomeFor(err)).Inc()
		return nil, err
	}

	observability.AuthenticationsTotal.WithLabelValues(observability.OutcomeRefreshed).Inc()
	return &Result{Principal: *principal, Rotated: tokens}, nil
}

// authenticateWithClaims handles the valid-access-token path: live
// directory check, then optional proactive rotation.
func (e *Engine) authenticateWithClaims(ctx context.Context, claims *token.Claims, refreshToken string) (*Result, error) {
	rec, tenant, err := e.resolveUser(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}

	result := &Result{Principal: Principal{
		Identity: Identity{UserID: rec.ID, Email: rec.Email, Role: rec.Role},
		Tenant:   tenant,
	}}

	if refreshToken == "" || e.config.RotateWithin <= 0 || claims.ExpiresAt == nil {
		return result, nil
	}
	if remaining := claims.ExpiresAt.Time.Sub(e.now()); remaining >= e.config.RotateWithin {
		return result, nil
	}

	tokens, _, err := e.refreshSession(ctx, refreshToken)
	if err != nil {
		observability.ProactiveRotationsTotal.WithLabelValues(observability.ResultFailed).Inc()
		e.logger.Warn("proactive rotation failed", "user_id", rec.ID, "error", err)
		e.emitAudit(ctx, AuditEvent{
			EventType: EventProactiveRotation,
			UserID:    rec.ID,
			TenantID:  tenant.TenantID,
			Success:   false,
			Error:     err.Error(),
		})
		return result, nil
	}

	observability.ProactiveRotationsTotal.WithLabelValues(observability.ResultRotated).Inc()
	result.Rotated = tokens
	return result, nil
}

// Refresh rotates a refresh token into a fresh credential pair without an
// accompanying access token. This is the explicit refresh endpoint.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*SessionTokens, error) {
	tokens, _, err := e.refreshSession(ctx, refreshToken)
	return tokens, err
}

// Logout revokes the refresh chain behind the presented token. Expired
// tokens still locate their chain; garbage that names no chain is a no-op,
// since there is nothing left to revoke.
func (e *Engine) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	payload, err := e.verifier.Refresh(refreshToken)
	if err != nil && !errors.Is(err, token.ErrExpired) {
		return nil
	}

	chainID := payload.ChainID.String()
	if err := e.store.Revoke(ctx, payload.UserID, chainID); err != nil {
		if errors.Is(err, revocation.ErrNotFound) {
			return nil
		}
		observability.StoreErrorsTotal.WithLabelValues("revoke").Inc()
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.emitAudit(ctx, AuditEvent{
		EventType: EventSessionRevoked,
		UserID:    payload.UserID,
		ChainID:   chainID,
		Success:   true,
	})
	e.logger.Debug("session revoked", "user_id", payload.UserID, "chain_id", chainID)
	return nil
}

// Close stops the background sweeper and drains the audit dispatcher.
// Safe to call twice.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.closeOnce.Do(func() {
		if e.sweepStop != nil {
			close(e.sweepStop)
			<-e.sweepDone
		}
		e.audit.Close()
	})
}

// AuditDropped reports how many audit events were shed since startup.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// Config returns a copy of the active configuration. The middleware reads
// cookie names and TTLs from it.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

func (e *Engine) identityFor(rec UserRecord) token.Identity {
	return token.Identity{
		UserID:   rec.ID,
		Email:    rec.Email,
		Role:     rec.Role,
		TenantID: rec.TenantID,
	}
}

func (e *Engine) emitAudit(ctx context.Context, event AuditEvent) {
	if e.audit == nil {
		return
	}
	event.Timestamp = e.now()
	e.audit.Emit(ctx, event)
}

func mapTokenErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, token.ErrMalformed):
		return ErrMalformed
	case errors.Is(err, token.ErrExpired):
		return ErrExpired
	default:
		return ErrInvalidToken
	}
}

func outcomeFor(err error) string {
	switch {
	case errors.Is(err, ErrStoreUnavailable):
		return observability.OutcomeStoreUnavailable
	case errors.Is(err, ErrTenantUnassigned), errors.Is(err, ErrAccountInactive):
		return observability.OutcomeForbidden
	default:
		return observability.OutcomeUnauthorized
	}
}

// startSweeper runs periodic cleanup for stores that accumulate expired
// records. Sweep failures are logged and retried at the next tick; they
// never affect request handling.
func (e *Engine) startSweeper(sweeper revocation.Sweeper) {
	e.sweepStop = make(chan struct{})
	e.sweepDone = make(chan struct{})

	go func() {
		defer close(e.sweepDone)

		ticker := time.NewTicker(e.config.SweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
				swept, err := sweeper.Sweep(ctx)
				cancel()
				if err != nil {
					observability.StoreErrorsTotal.WithLabelValues("sweep").Inc()
					e.logger.Warn("revocation sweep failed", "error", err)
					continue
				}
				if swept > 0 {
					observability.SweptRecordsTotal.Add(float64(swept))
					e.logger.Debug("revocation sweep completed", "removed", swept)
				}
			case <-e.sweepStop:
				return
			}
		}
	}()
}
