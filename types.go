package authsess

import (
	"context"
	"time"
)

// UserRecord is the live account state returned by a [UserDirectory].
// TenantID is nil when the user belongs to no tenant, which is legal only
// for platform administrators.
type UserRecord struct {
	ID       string
	Email    string
	Role     string
	TenantID *string
	Active   bool
}

// UserDirectory is the interface callers implement to connect authsess to
// their user database. It is consulted on every authenticated request, so
// implementations should be cheap; authsess never caches what it returns.
//
// UserByID returns [ErrUserNotFound] for an unknown id. Any other error is
// treated as a directory outage and fails the request closed.
type UserDirectory interface {
	UserByID(ctx context.Context, userID string) (UserRecord, error)
}

// TenantContext is the tenant decision attached to every authenticated
// request. For platform administrators TenantID is [TenantNone] and
// PlatformWide is true.
type TenantContext struct {
	TenantID     string
	Role         string
	PlatformWide bool
}

// Identity is who the credential says the caller is.
type Identity struct {
	UserID string
	Email  string
	Role   string
}

// Principal is an authenticated caller: token identity plus the tenant
// context resolved from the live directory record.
type Principal struct {
	Identity Identity
	Tenant   TenantContext
}

// SessionTokens is one matched credential pair with its expiry times.
type SessionTokens struct {
	Access           string
	AccessExpiresAt  time.Time
	Refresh          string
	RefreshExpiresAt time.Time
}

// Result is returned by [Engine.Authenticate]. Rotated is non-nil when the
// request produced fresh tokens that the transport must hand back to the
// client; it is nil when the presented access token was simply valid.
type Result struct {
	Principal Principal
	Rotated   *SessionTokens
}
