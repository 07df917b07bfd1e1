package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/identity-service/internal/models"
	"github.com/SAP-F-2025/identity-service/internal/repositories"
)

type childRepository struct {
	db *gorm.DB
}

func NewChildRepository(db *gorm.DB) repositories.ChildRepository {
	return &childRepository{db: db}
}

func (r *childRepository) GetByID(ctx context.Context, id string) (*models.Child, error) {
	var child models.Child

	if err := r.db.WithContext(ctx).First(&child, "id = ?", id).Error; err != nil {
		return nil, handleDBError(err, "get child by id")
	}

	return &child, nil
}

func (r *childRepository) ListByParent(ctx context.Context, parentID string) ([]*models.Child, error) {
	var children []*models.Child

	if err := r.db.WithContext(ctx).
		Where("parent_id = ?", parentID).
		Order("created_at ASC").
		Find(&children).Error; err != nil {
		return nil, handleDBError(err, "list children by parent")
	}

	return children, nil
}

func (r *childRepository) Create(ctx context.Context, child *models.Child) error {
	if err := r.db.WithContext(ctx).Create(child).Error; err != nil {
		return handleDBError(err, "create child")
	}
	return nil
}

func (r *childRepository) Update(ctx context.Context, child *models.Child) error {
	result := r.db.WithContext(ctx).
		Model(&models.Child{}).
		Where("id = ?", child.ID).
		Updates(map[string]interface{}{
			"first_name":    child.FirstName,
			"last_name":     child.LastName,
			"birth_date":    child.BirthDate,
			"medical_notes": child.MedicalNotes,
		})
	if result.Error != nil {
		return handleDBError(result.Error, "update child")
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}

	return nil
}

func (r *childRepository) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Delete(&models.Child{}, "id = ?", id).Error; err != nil {
		return handleDBError(err, "delete child")
	}
	return nil
}
