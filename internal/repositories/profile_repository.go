package repositories

import (
	"context"

	"github.com/SAP-F-2025/identity-service/internal/models"
)

// ProfileFilters defines filters for profile list queries.
type ProfileFilters struct {
	Role     *models.Role
	Approved *bool // teacher approval state; ignored for other roles
	Query    string
	Limit    int
	Offset   int
}

// ProfileRepository is the document-store view of profiles. Reads are keyed
// by principal id; writes happen on registration, self-service update and
// the administrator approval flip.
type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*models.Profile, error)
	GetByEmail(ctx context.Context, email string) (*models.Profile, error)

	Create(ctx context.Context, profile *models.Profile) error

	// Update merges mutable fields into an existing profile. Role and id are
	// immutable and never written by this method.
	Update(ctx context.Context, profile *models.Profile) error

	// SetApproved flips the teacher approval flag. No-op error for profiles
	// that are not teachers.
	SetApproved(ctx context.Context, id string, approved bool) error

	List(ctx context.Context, filters ProfileFilters) ([]*models.Profile, int64, error)

	ExistsByEmail(ctx context.Context, email string) (bool, error)
}
