package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/identity-service/internal/models"
	"github.com/SAP-F-2025/identity-service/internal/repositories"
)

type bootstrapService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewBootstrapService(repo repositories.Repository, logger *slog.Logger) BootstrapService {
	return &bootstrapService{
		repo:   repo,
		logger: logger,
	}
}

// EnsureAdminProfile returns the administrator profile, synthesizing it on
// first login. An existing profile is returned unchanged; this must be safe
// to call on every admin login.
func (s *bootstrapService) EnsureAdminProfile(ctx context.Context, principal *models.Principal) (*models.Profile, error) {
	existing, err := s.repo.Profile().GetByID(ctx, principal.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up admin profile: %w", err)
	}

	profile := &models.Profile{
		ID:        principal.ID,
		Email:     principal.Email,
		Role:      models.RoleAdmin,
		FirstName: "System",
		LastName:  "Administrator",
	}

	if err := s.repo.Profile().Create(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to synthesize admin profile: %w", err)
	}

	s.logger.Info("admin profile synthesized", "principal_id", principal.ID)

	return profile, nil
}

// EnsureReferenceData seeds the school directory when it is empty. A
// non-empty directory is left untouched: zero writes on repeat calls.
func (s *bootstrapService) EnsureReferenceData(ctx context.Context) error {
	count, err := s.repo.School().Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count schools: %w", err)
	}
	if count > 0 {
		return nil
	}

	if err := s.repo.School().BulkCreate(ctx, seedSchools()); err != nil {
		return fmt.Errorf("failed to seed school directory: %w", err)
	}

	s.logger.Info("school directory seeded", "count", len(seedSchools()))

	return nil
}

// seedSchools is the fixed reference-data seed set.
func seedSchools() []*models.School {
	return []*models.School{
		{Name: "Hoa Mai Kindergarten", District: "District 1"},
		{Name: "Sao Sang Kindergarten", District: "District 3"},
		{Name: "Binh Minh Kindergarten", District: "District 7"},
		{Name: "Tuoi Tho Kindergarten", District: "Thu Duc"},
		{Name: "Anh Duong Kindergarten", District: "Binh Thanh"},
		{Name: "Hoa Sen Kindergarten", District: "Go Vap"},
	}
}
