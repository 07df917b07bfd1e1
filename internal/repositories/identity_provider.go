package repositories

import (
	"context"

	"github.com/SAP-F-2025/identity-service/internal/models"
)

// MinPasswordLength mirrors the identity provider's minimum-strength check so
// obviously weak credentials fail before a round trip.
const MinPasswordLength = 6

// PrincipalEvent is one emission of the principal-change stream. A nil
// Principal means signed out.
type PrincipalEvent struct {
	Principal *models.Principal
}

// IdentityProvider is the external identity capability. It owns credentials
// and the current principal; application-level authorization lives on the
// Profile, not here.
type IdentityProvider interface {
	// Authenticate verifies credentials and makes the principal current.
	// Fails with ErrInvalidCredentials.
	Authenticate(ctx context.Context, email, password string) (*models.Principal, error)

	// CreateIdentity registers a credential with the provider. Fails with
	// ErrEmailInUse or ErrWeakCredential. Does not sign the principal in.
	CreateIdentity(ctx context.Context, email, password, displayName string) (*models.Principal, error)

	// SignOut clears the current principal and emits a nil principal event.
	SignOut(ctx context.Context) error

	// DeleteIdentity removes a credential. Best-effort cleanup; callers
	// swallow failures.
	DeleteIdentity(ctx context.Context, principal *models.Principal) error

	// Reauthenticate proves possession of the current credential. Required
	// before sensitive mutations. Fails with ErrReauthenticationFailed.
	Reauthenticate(ctx context.Context, principal *models.Principal, currentPassword string) error

	// UpdateCredential replaces the principal's password. Fails with
	// ErrWeakCredential.
	UpdateCredential(ctx context.Context, principal *models.Principal, newPassword string) error

	SendPasswordReset(ctx context.Context, email string) error

	// PrincipalChanges subscribes to the principal-change stream. The stream
	// fires once with the current state on subscription, then on every
	// change. The returned cancel func ends the subscription.
	PrincipalChanges(ctx context.Context) (<-chan PrincipalEvent, func(), error)

	// Current returns the signed-in principal, or nil.
	Current() *models.Principal
}
