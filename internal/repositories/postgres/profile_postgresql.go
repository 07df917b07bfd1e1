package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/identity-service/internal/models"
	"github.com/SAP-F-2025/identity-service/internal/repositories"
)

type profileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) repositories.ProfileRepository {
	return &profileRepository{db: db}
}

// ===== BASIC READ OPERATIONS =====

func (r *profileRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	var profile models.Profile

	if err := r.db.WithContext(ctx).First(&profile, "id = ?", id).Error; err != nil {
		return nil, handleDBError(err, "get profile by id")
	}

	return normalizeProfile(&profile), nil
}

func (r *profileRepository) GetByEmail(ctx context.Context, email string) (*models.Profile, error) {
	var profile models.Profile

	if err := r.db.WithContext(ctx).First(&profile, "email = ?", email).Error; err != nil {
		return nil, handleDBError(err, "get profile by email")
	}

	return normalizeProfile(&profile), nil
}

// ===== WRITE OPERATIONS =====

func (r *profileRepository) Create(ctx context.Context, profile *models.Profile) error {
	if err := r.db.WithContext(ctx).Create(profile).Error; err != nil {
		return handleDBError(err, "create profile")
	}
	return nil
}

func (r *profileRepository) Update(ctx context.Context, profile *models.Profile) error {
	// Role and id are immutable; only mutable columns are written.
	updates := map[string]interface{}{
		"first_name":   profile.FirstName,
		"last_name":    profile.LastName,
		"phone_number": profile.PhoneNumber,
		"address":      profile.Address,
	}
	if profile.Role == models.RoleTeacher && profile.Teacher != nil {
		updates["years_of_experience"] = profile.Teacher.YearsOfExperience
		updates["current_school"] = profile.Teacher.CurrentSchool
		updates["proof_document"] = profile.Teacher.ProofDocument
	}

	result := r.db.WithContext(ctx).
		Model(&models.Profile{}).
		Where("id = ?", profile.ID).
		Updates(updates)
	if result.Error != nil {
		return handleDBError(result.Error, "update profile")
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}

	return nil
}

func (r *profileRepository) SetApproved(ctx context.Context, id string, approved bool) error {
	result := r.db.WithContext(ctx).
		Model(&models.Profile{}).
		Where("id = ? AND role = ?", id, models.RoleTeacher).
		Update("approved", approved)
	if result.Error != nil {
		return handleDBError(result.Error, "set profile approval")
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("set profile approval: no teacher profile with id %s: %w", id, repositories.ErrNotFound)
	}

	return nil
}

// ===== LIST OPERATIONS =====

func (r *profileRepository) List(ctx context.Context, filters repositories.ProfileFilters) ([]*models.Profile, int64, error) {
	if filters.Limit <= 0 {
		filters.Limit = 10
	}
	if filters.Limit > 100 {
		filters.Limit = 100
	}

	var profiles []*models.Profile
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Profile{})
	query = r.applyFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, handleDBError(err, "count profiles")
	}

	if err := query.
		Order("created_at DESC").
		Limit(filters.Limit).
		Offset(filters.Offset).
		Find(&profiles).Error; err != nil {
		return nil, 0, handleDBError(err, "list profiles")
	}

	for _, p := range profiles {
		normalizeProfile(p)
	}

	return profiles, total, nil
}

func (r *profileRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Profile{}).
		Where("email = ?", email).
		Count(&count).Error; err != nil {
		return false, handleDBError(err, "check profile existence by email")
	}

	return count > 0, nil
}

func (r *profileRepository) applyFilters(query *gorm.DB, filters repositories.ProfileFilters) *gorm.DB {
	if filters.Role != nil {
		query = query.Where("role = ?", *filters.Role)
	}
	if filters.Approved != nil {
		query = query.Where("role = ? AND approved = ?", models.RoleTeacher, *filters.Approved)
	}
	if filters.Query != "" {
		like := "%" + filters.Query + "%"
		query = query.Where("email ILIKE ? OR first_name ILIKE ? OR last_name ILIKE ?", like, like, like)
	}
	return query
}

// normalizeProfile drops the embedded teacher columns for non-teacher roles
// so the tagged-variant contract (Teacher nil unless role=teacher) holds for
// records read back from the store.
func normalizeProfile(p *models.Profile) *models.Profile {
	if p.Role != models.RoleTeacher {
		p.Teacher = nil
	} else if p.Teacher == nil {
		p.Teacher = &models.TeacherInfo{}
	}
	return p
}
