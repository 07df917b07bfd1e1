package services

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/datatypes"

	"github.com/SAP-F-2025/identity-service/internal/events"
	"github.com/SAP-F-2025/identity-service/internal/models"
	"github.com/SAP-F-2025/identity-service/internal/repositories"
	"github.com/SAP-F-2025/identity-service/internal/validator"
)

type registrationService struct {
	repo      repositories.Repository
	identity  repositories.IdentityProvider
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *validator.Validator
}

func NewRegistrationService(
	repo repositories.Repository,
	identity repositories.IdentityProvider,
	publisher events.EventPublisher,
	logger *slog.Logger,
	v *validator.Validator,
) RegistrationService {
	return &registrationService{
		repo:      repo,
		identity:  identity,
		publisher: publisher,
		logger:    logger,
		validator: v,
	}
}

// Register runs the ordered registration flow:
//  1. create the identity-provider credential
//  2. write the profile document
//  3. teacher only: best-effort proof-document write (never escalated)
//  4. force sign-out so a fresh teacher cannot self-authorize
//
// If step 2 fails, the credential from step 1 is deleted (best-effort) so no
// orphaned credential exists without a profile.
func (s *registrationService) Register(ctx context.Context, req *RegisterRequest) (*RegistrationResult, error) {
	if errs := s.validator.GetBusinessValidator().ValidateRegistration(req); len(errs) > 0 {
		return nil, errs
	}

	s.logger.Info("registering account", "email", req.Email, "role", req.Role)

	principal, err := s.identity.CreateIdentity(ctx, req.Email, req.Password, req.FirstName+" "+req.LastName)
	if err != nil {
		return nil, fmt.Errorf("failed to create identity: %w", err)
	}

	profile := s.buildProfile(principal, req)
	if err := s.repo.Profile().Create(ctx, profile); err != nil {
		// No profile may exist without a credential and vice versa; undo
		// step 1. Cleanup failure is swallowed, the registration error wins.
		if delErr := s.identity.DeleteIdentity(ctx, principal); delErr != nil {
			s.logger.Error("failed to clean up orphaned credential", "principal_id", principal.ID, "error", delErr)
		}
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	if profile.Role == models.RoleTeacher && len(req.ProofDocument) > 0 {
		s.attachProof(ctx, profile, req.ProofDocument)
	}

	if err := s.identity.SignOut(ctx); err != nil {
		s.logger.Error("post-registration sign-out failed", "error", err)
	}

	s.publishEvent(ctx, events.NewEvent(events.TypeUserRegistered, profile.ID, profile.Email))

	return &RegistrationResult{
		ProfileID:       profile.ID,
		Role:            profile.Role,
		PendingApproval: profile.Role == models.RoleTeacher,
	}, nil
}

func (s *registrationService) buildProfile(principal *models.Principal, req *RegisterRequest) *models.Profile {
	profile := &models.Profile{
		ID:          principal.ID,
		Email:       req.Email,
		Role:        req.Role,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
		Address:     req.Address,
	}

	if req.Role == models.RoleTeacher {
		// Teachers start quarantined until an administrator approves them.
		profile.Teacher = &models.TeacherInfo{
			YearsOfExperience: req.YearsOfExperience,
			CurrentSchool:     req.CurrentSchool,
			Approved:          false,
		}
	}

	return profile
}

// attachProof writes the proof document after the profile exists. A failure
// is logged and swallowed: proof is never allowed to block registration.
func (s *registrationService) attachProof(ctx context.Context, profile *models.Profile, proof []byte) {
	profile.Teacher.ProofDocument = datatypes.JSON(proof)

	if err := s.repo.Profile().Update(ctx, profile); err != nil {
		s.logger.Error("failed to attach proof document", "profile_id", profile.ID, "error", err)
		profile.Teacher.ProofDocument = nil
	}
}

func (s *registrationService) publishEvent(ctx context.Context, event *events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish identity event", "event_type", event.Type, "error", err)
	}
}
