package services

import (
	"context"
	"io"

	"github.com/SAP-F-2025/identity-service/internal/models"
	"github.com/SAP-F-2025/identity-service/internal/validator"
)

// ===== REQUEST/RESPONSE DTOs =====

// Use business validator types
type RegisterRequest = validator.RegisterRequest
type UpdateProfileRequest = validator.ProfileUpdateRequest
type ChildRequest = validator.ChildRequest
type SchoolUpsertRequest = validator.SchoolUpsertRequest

// RegistrationResult reports the outcome of a completed registration.
type RegistrationResult struct {
	ProfileID       string      `json:"profile_id"`
	Role            models.Role `json:"role"`
	PendingApproval bool        `json:"pending_approval"`
}

// ===== SESSION STATE =====

type SessionState string

const (
	// StateInitializing is entered once at process start, before the first
	// principal-change event or the startup timeout settles the session.
	StateInitializing SessionState = "initializing"

	StateUnauthenticated  SessionState = "unauthenticated"
	StateResolvingProfile SessionState = "resolving_profile"
	StateAuthenticated    SessionState = "authenticated"

	// StateApprovalRejected is transient: it is published once for an
	// unapproved teacher and immediately followed by StateUnauthenticated.
	StateApprovalRejected SessionState = "approval_rejected"
)

// SessionSnapshot is the immutable view of the session published to
// observers. Profile is a private copy, detached from the store and cache
// records. Notice carries the user-facing rejection message through the
// forced sign-out that follows an approval rejection; Cause records why a
// resolution fell back to unauthenticated.
type SessionSnapshot struct {
	State     SessionState
	Principal *models.Principal
	Profile   *models.Profile
	Notice    string
	Cause     error
}

// ===== SERVICE INTERFACES =====

// SessionManager owns the single source of truth for "who is the current
// principal and what is their resolved, access-checked profile". It is the
// sole writer of session state and the profile cache; consumers observe
// snapshots and never talk to the adapters directly.
type SessionManager interface {
	// Start subscribes to the principal-change stream and arms the startup
	// timeout. Must be called exactly once.
	Start(ctx context.Context) error

	// Snapshot returns the current session state.
	Snapshot() SessionSnapshot

	// Subscribe registers an observer. The cancel func removes it. No
	// snapshot is delivered after Close returns.
	Subscribe() (<-chan SessionSnapshot, func())

	// Login authenticates explicitly and resolves the profile synchronously.
	// Fails with ErrInvalidCredentials, ErrPendingApproval,
	// ErrProfileNotFound or ErrStoreUnavailable.
	Login(ctx context.Context, email, password string) (*models.Profile, error)

	// Logout signs out at the identity provider and clears cached state.
	Logout(ctx context.Context) error

	Close() error
}

// BootstrapService idempotently provisions the reserved administrator
// identity and the baseline reference data.
type BootstrapService interface {
	EnsureAdminProfile(ctx context.Context, principal *models.Principal) (*models.Profile, error)
	EnsureReferenceData(ctx context.Context) error
}

// RegistrationService creates teacher and parent accounts. The order of
// operations is load-bearing; see Register.
type RegistrationService interface {
	Register(ctx context.Context, req *RegisterRequest) (*RegistrationResult, error)
}

// AccountService provides credential-change operations for the signed-in
// principal.
type AccountService interface {
	// ChangePassword reauthenticates with the current credential before
	// applying the new one. Fails with ErrNoActivePrincipal,
	// ErrReauthenticationFailed or ErrWeakCredential.
	ChangePassword(ctx context.Context, currentPassword, newPassword string) error

	RequestPasswordReset(ctx context.Context, email string) error
}

// ProfileService provides profile reads, self-service updates and the
// administrator approval flip.
type ProfileService interface {
	GetByID(ctx context.Context, id string) (*models.Profile, error)

	// Update writes mutable fields only; id, email and role are immutable.
	Update(ctx context.Context, id string, req *UpdateProfileRequest) (*models.Profile, error)

	ListTeachers(ctx context.Context, approved *bool, page, size int) ([]*models.Profile, int64, error)

	// Approve flips the teacher approval flag and invalidates the teacher's
	// cached session snapshot.
	Approve(ctx context.Context, teacherID string) (*models.Profile, error)
}

// RosterService covers the boundary-adjacent directory features: the school
// directory and child records, plus spreadsheet import/export.
type RosterService interface {
	ListSchools(ctx context.Context) ([]*models.School, error)
	UpsertSchool(ctx context.Context, req *SchoolUpsertRequest) (*models.School, error)
	ImportSchools(ctx context.Context, r io.Reader) (int, error)

	ExportTeacherRoster(ctx context.Context) ([]byte, error)

	CreateChild(ctx context.Context, parentID string, req *ChildRequest) (*models.Child, error)
	GetChild(ctx context.Context, id string) (*models.Child, error)
	ListChildren(ctx context.Context, parentID string) ([]*models.Child, error)
	UpdateChild(ctx context.Context, id string, req *ChildRequest) (*models.Child, error)
	DeleteChild(ctx context.Context, id string) error
}

// ServiceManager wires and owns all services.
type ServiceManager interface {
	Initialize(ctx context.Context) error
	Shutdown(ctx context.Context) error
	HealthCheck(ctx context.Context) error

	Session() SessionManager
	Bootstrap() BootstrapService
	Registration() RegistrationService
	Account() AccountService
	Profile() ProfileService
	Roster() RosterService
}
