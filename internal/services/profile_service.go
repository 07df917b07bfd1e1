package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/SAP-F-2025/identity-service/internal/cache"
	"github.com/SAP-F-2025/identity-service/internal/events"
	"github.com/SAP-F-2025/identity-service/internal/models"
	"github.com/SAP-F-2025/identity-service/internal/repositories"
	"github.com/SAP-F-2025/identity-service/internal/validator"
)

type profileService struct {
	repo      repositories.Repository
	cache     *cache.ProfileCache
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *validator.Validator
}

func NewProfileService(
	repo repositories.Repository,
	profileCache *cache.ProfileCache,
	publisher events.EventPublisher,
	logger *slog.Logger,
	v *validator.Validator,
) ProfileService {
	return &profileService{
		repo:      repo,
		cache:     profileCache,
		publisher: publisher,
		logger:    logger,
		validator: v,
	}
}

func (s *profileService) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	profile, err := s.repo.Profile().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, storeFailure(err)
	}

	return profile, nil
}

func (s *profileService) Update(ctx context.Context, id string, req *UpdateProfileRequest) (*models.Profile, error) {
	profile, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if errs := s.validator.GetBusinessValidator().ValidateProfileUpdate(req, profile); len(errs) > 0 {
		return nil, errs
	}

	applyProfileUpdate(profile, req)

	if err := s.repo.Profile().Update(ctx, profile); err != nil {
		return nil, storeFailure(err)
	}

	// Keep the cached snapshot in step with the store.
	if err := s.cache.Save(ctx, profile); err != nil {
		s.logger.Error("failed to refresh cached profile snapshot", "error", err)
	}

	return profile, nil
}

func (s *profileService) ListTeachers(ctx context.Context, approved *bool, page, size int) ([]*models.Profile, int64, error) {
	role := models.RoleTeacher
	filters := repositories.ProfileFilters{
		Role:     &role,
		Approved: approved,
		Limit:    size,
		Offset:   (page - 1) * size,
	}
	if filters.Offset < 0 {
		filters.Offset = 0
	}

	profiles, total, err := s.repo.Profile().List(ctx, filters)
	if err != nil {
		return nil, 0, storeFailure(err)
	}

	return profiles, total, nil
}

// Approve flips the teacher's approval flag. The cached snapshot for that
// teacher is cleared, not refreshed: the next resolution re-reads the store
// and passes the gate with fresh data.
func (s *profileService) Approve(ctx context.Context, teacherID string) (*models.Profile, error) {
	if err := s.repo.Profile().SetApproved(ctx, teacherID, true); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, storeFailure(err)
	}

	if err := s.cache.Clear(ctx, teacherID); err != nil {
		s.logger.Error("failed to clear cached snapshot after approval", "error", err)
	}

	profile, err := s.GetByID(ctx, teacherID)
	if err != nil {
		return nil, err
	}

	event := events.NewEvent(events.TypeTeacherApproved, profile.ID, profile.Email)
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish approval event", "error", err)
	}

	s.logger.Info("teacher approved", "profile_id", teacherID)

	return profile, nil
}

func applyProfileUpdate(profile *models.Profile, req *UpdateProfileRequest) {
	if req.FirstName != nil {
		profile.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		profile.LastName = *req.LastName
	}
	if req.PhoneNumber != nil {
		profile.PhoneNumber = req.PhoneNumber
	}
	if req.Address != nil {
		profile.Address = req.Address
	}

	if profile.Role == models.RoleTeacher && profile.Teacher != nil {
		if req.YearsOfExperience != nil {
			profile.Teacher.YearsOfExperience = req.YearsOfExperience
		}
		if req.CurrentSchool != nil {
			profile.Teacher.CurrentSchool = req.CurrentSchool
		}
		if len(req.ProofDocument) > 0 {
			profile.Teacher.ProofDocument = []byte(req.ProofDocument)
		}
	}
}
