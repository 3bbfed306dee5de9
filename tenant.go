package authsess

import (
	"context"
	"errors"
	"fmt"
)

// RolePlatformAdmin marks accounts that operate across tenants. It is the
// only role allowed to have no tenant assignment.
const RolePlatformAdmin = "platform-admin"

// TenantNone is the tenant id carried by platform-wide principals.
const TenantNone = "none"

// resolveUser loads the live directory record and derives the tenant
// context for this request. It runs on every authenticated call: tenant
// membership and account status take effect immediately, not at next token
// issuance.
func (e *Engine) resolveUser(ctx context.Context, userID string) (UserRecord, TenantContext, error) {
	rec, err := e.directory.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// A vanished account and a disabled one look the same to the
			// caller: the token names nobody who may act.
			return UserRecord{}, TenantContext{}, ErrAccountInactive
		}
		return UserRecord{}, TenantContext{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if !rec.Active {
		return rec, TenantContext{}, ErrAccountInactive
	}

	if rec.Role == RolePlatformAdmin {
		return rec, TenantContext{TenantID: TenantNone, Role: rec.Role, PlatformWide: true}, nil
	}

	if rec.TenantID == nil || *rec.TenantID == "" {
		e.emitAudit(ctx, AuditEvent{
			EventType: EventTenantRejected,
			UserID:    rec.ID,
			Success:   false,
			Error:     ErrTenantUnassigned.Error(),
		})
		return rec, TenantContext{}, ErrTenantUnassigned
	}

	return rec, TenantContext{TenantID: *rec.TenantID, Role: rec.Role}, nil
}
