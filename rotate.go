package authsess

import (
	"context"
	"errors"
	"fmt"

	"github.com/brimhavenlabs/authsess/internal"
	"github.com/brimhavenlabs/authsess/observability"
	"github.com/brimhavenlabs/authsess/revocation"
	"github.com/brimhavenlabs/authsess/token"
)

// refreshSession is the single rotation path. Every refresh, explicit or
// proactive, runs through here.
//
// The store comparison is what makes rotation safe: the record holds the
// hash of the most recently minted token for the chain. A presented token
// that decrypts fine but hashes to something else is an older generation,
// which means it was already spent. That is the replay signal, and the
// response is to kill the whole chain rather than reissue anything.
func (e *Engine) refreshSession(ctx context.Context, refreshToken string) (*SessionTokens, *Principal, error) {
	payload, err := e.verifier.Refresh(refreshToken)
	if err != nil {
		switch {
		case errors.Is(err, token.ErrExpired):
			return nil, nil, ErrExpired
		case errors.Is(err, token.ErrMalformed):
			return nil, nil, ErrMalformed
		default:
			return nil, nil, ErrInvalidToken
		}
	}

	chainID := payload.ChainID.String()
	presentedHash := internal.HashToken(refreshToken)

	if err := e.store.Verify(ctx, payload.UserID, chainID, presentedHash); err != nil {
		switch {
		case errors.Is(err, revocation.ErrHashMismatch):
			e.revokeChain(ctx, payload.UserID, chainID)
			observability.RotationsTotal.WithLabelValues(observability.ResultReuseDetected).Inc()
			e.emitAudit(ctx, AuditEvent{
				EventType: EventReuseDetected,
				UserID:    payload.UserID,
				ChainID:   chainID,
				Success:   false,
				Error:     "stale refresh token presented",
			})
			e.logger.Warn("refresh token reuse detected, chain revoked",
				"user_id", payload.UserID, "chain_id", chainID)
			return nil, nil, ErrRevokedOrReuse
		case errors.Is(err, revocation.ErrNotFound):
			return nil, nil, ErrRevokedOrReuse
		default:
			observability.StoreErrorsTotal.WithLabelValues("verify").Inc()
			observability.RotationsTotal.WithLabelValues(observability.ResultFailed).Inc()
			return nil, nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}

	rec, tenant, err := e.resolveUser(ctx, payload.UserID)
	if err != nil {
		return nil, nil, err
	}

	newRefresh, newPayload, err := e.issuer.Rotate(payload)
	if err != nil {
		observability.RotationsTotal.WithLabelValues(observability.ResultFailed).Inc()
		return nil, nil, fmt.Errorf("rotate refresh token: %w", err)
	}

	record := revocation.Record{
		ChainID:   chainID,
		UserID:    rec.ID,
		TokenHash: internal.HashToken(newRefresh),
		ExpiresAt: newPayload.ExpiresAt,
	}
	if err := e.store.Save(ctx, record); err != nil {
		observability.StoreErrorsTotal.WithLabelValues("save").Inc()
		observability.RotationsTotal.WithLabelValues(observability.ResultFailed).Inc()
		return nil, nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	access, err := e.issuer.Access(e.identityFor(rec))
	if err != nil {
		observability.RotationsTotal.WithLabelValues(observability.ResultFailed).Inc()
		return nil, nil, fmt.Errorf("issue access token: %w", err)
	}

	observability.RotationsTotal.WithLabelValues(observability.ResultRotated).Inc()
	e.emitAudit(ctx, AuditEvent{
		EventType: EventSessionRefreshed,
		UserID:    rec.ID,
		TenantID:  tenant.TenantID,
		ChainID:   chainID,
		Success:   true,
	})

	tokens := &SessionTokens{
		Access:           access,
		AccessExpiresAt:  e.now().Add(e.config.AccessTTL),
		Refresh:          newRefresh,
		RefreshExpiresAt: newPayload.ExpiresAt,
	}
	principal := &Principal{
		Identity: Identity{UserID: rec.ID, Email: rec.Email, Role: rec.Role},
		Tenant:   tenant,
	}
	return tokens, principal, nil
}

// revokeChain is the best-effort kill used on reuse detection. If the store
// is down the chain record outlives this attempt, but the attacker still
// holds a stale hash, so every later presentation trips the same detection.
func (e *Engine) revokeChain(ctx context.Context, userID, chainID string) {
	if err := e.store.Revoke(ctx, userID, chainID); err != nil && !errors.Is(err, revocation.ErrNotFound) {
		observability.StoreErrorsTotal.WithLabelValues("revoke").Inc()
		e.logger.Error("failed to revoke chain after reuse detection",
			"user_id", userID, "chain_id", chainID, "error", err)
	}
}
