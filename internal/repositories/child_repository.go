package repositories

import (
	"context"

	"github.com/SAP-F-2025/identity-service/internal/models"
)

// ChildRepository manages child records owned by parent profiles. ListByParent
// is the keyed-query path used when a parent session loads its children.
type ChildRepository interface {
	GetByID(ctx context.Context, id string) (*models.Child, error)
	ListByParent(ctx context.Context, parentID string) ([]*models.Child, error)

	Create(ctx context.Context, child *models.Child) error
	Update(ctx context.Context, child *models.Child) error
	Delete(ctx context.Context, id string) error
}
