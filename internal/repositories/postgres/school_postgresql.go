package postgres

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SAP-F-2025/identity-service/internal/models"
	"github.com/SAP-F-2025/identity-service/internal/repositories"
)

type schoolRepository struct {
	db *gorm.DB
}

func NewSchoolRepository(db *gorm.DB) repositories.SchoolRepository {
	return &schoolRepository{db: db}
}

func (r *schoolRepository) ListAll(ctx context.Context) ([]*models.School, error) {
	var schools []*models.School

	if err := r.db.WithContext(ctx).Order("name ASC").Find(&schools).Error; err != nil {
		return nil, handleDBError(err, "list schools")
	}

	return schools, nil
}

func (r *schoolRepository) Count(ctx context.Context) (int64, error) {
	var count int64

	if err := r.db.WithContext(ctx).Model(&models.School{}).Count(&count).Error; err != nil {
		return 0, handleDBError(err, "count schools")
	}

	return count, nil
}

func (r *schoolRepository) Upsert(ctx context.Context, school *models.School) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"district", "updated_at"}),
		}).
		Create(school).Error
	if err != nil {
		return handleDBError(err, "upsert school")
	}

	return nil
}

func (r *schoolRepository) BulkCreate(ctx context.Context, schools []*models.School) error {
	if len(schools) == 0 {
		return nil
	}

	if err := r.db.WithContext(ctx).CreateInBatches(schools, 100).Error; err != nil {
		return handleDBError(err, "bulk create schools")
	}

	return nil
}
