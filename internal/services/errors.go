package services

import (
	"errors"
	"fmt"

	"github.com/SAP-F-2025/identity-service/internal/repositories"
)

// PendingApprovalMessage is the stable, user-facing text rendered when a
// teacher account has not been approved yet. It is carried on the session
// snapshot so it survives the forced sign-out that follows rejection.
const PendingApprovalMessage = "Your account is awaiting administrator approval. You will be able to sign in once an administrator reviews your registration."

// Adapter-boundary errors re-exported so callers depend on one taxonomy.
var (
	ErrInvalidCredentials     = repositories.ErrInvalidCredentials
	ErrEmailInUse             = repositories.ErrEmailInUse
	ErrWeakCredential         = repositories.ErrWeakCredential
	ErrReauthenticationFailed = repositories.ErrReauthenticationFailed
)

// Session-layer errors.
var (
	// ErrPendingApproval distinguishes an unapproved teacher from a wrong
	// password so callers can render approval-specific guidance.
	ErrPendingApproval = errors.New("account pending administrator approval")

	// ErrProfileNotFound means the principal authenticated but no profile
	// record exists. Kept distinguishable from ErrStoreUnavailable so
	// "never registered" and "store down" are separate outcomes.
	ErrProfileNotFound = errors.New("no profile exists for this principal")

	// ErrStoreUnavailable covers document-store failures during resolution.
	ErrStoreUnavailable = errors.New("profile store unavailable")

	// ErrNoActivePrincipal is returned by operations that require a signed-in
	// principal.
	ErrNoActivePrincipal = errors.New("no active principal")
)

// storeFailure wraps an adapter error so errors.Is(err, ErrStoreUnavailable)
// holds while the underlying cause stays visible in logs.
func storeFailure(err error) error {
	return fmt.Errorf("%w: %s", ErrStoreUnavailable, err)
}
