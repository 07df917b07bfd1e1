package repositories

import (
	"context"

	"github.com/SAP-F-2025/identity-service/internal/models"
)

// SchoolRepository manages the school reference-data directory.
type SchoolRepository interface {
	ListAll(ctx context.Context) ([]*models.School, error)
	Count(ctx context.Context) (int64, error)

	// Upsert inserts or updates a school by name.
	Upsert(ctx context.Context, school *models.School) error

	// BulkCreate inserts the seed set in one pass. Used by bootstrap when the
	// directory is empty.
	BulkCreate(ctx context.Context, schools []*models.School) error
}
