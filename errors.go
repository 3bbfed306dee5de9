package authsess

import "errors"

var (
	// ErrMalformed means no usable credential was presented.
	ErrMalformed = errors.New("malformed credential")
	// ErrInvalidToken means a credential was presented but failed
	// cryptographic verification.
	ErrInvalidToken = errors.New("invalid credential")
	// ErrExpired means the credential verified but its lifetime is over and
	// no refresh path remains.
	ErrExpired = errors.New("expired credential")
	// ErrRevokedOrReuse means the refresh chain is dead: logged out,
	// administratively revoked, or killed by reuse detection.
	ErrRevokedOrReuse = errors.New("credential revoked or reused")
	// ErrTenantUnassigned means the account is active but belongs to no
	// tenant, so no tenant-scoped request can proceed.
	ErrTenantUnassigned = errors.New("no tenant assigned")
	// ErrAccountInactive means the account is disabled or gone.
	ErrAccountInactive = errors.New("account inactive")
	// ErrStoreUnavailable means the revocation store could not answer.
	// Callers fail closed and may retry.
	ErrStoreUnavailable = errors.New("revocation store unavailable")
	// ErrUserNotFound is the sentinel a [UserDirectory] returns for an
	// unknown user id.
	ErrUserNotFound = errors.New("user not found")
)

// IsAuthFailure reports whether err is one of the credential failures that
// an HTTP boundary must collapse into a single generic unauthorized
// response. Distinguishing them to a client would tell an attacker which
// stage of verification a forged token reached.
func IsAuthFailure(err error) bool {
	return errors.Is(err, ErrMalformed) ||
		errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrExpired) ||
		errors.Is(err, ErrRevokedOrReuse)
}
