package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/SAP-F-2025/identity-service/internal/events"
	"github.com/SAP-F-2025/identity-service/internal/models"
	"github.com/SAP-F-2025/identity-service/internal/repositories"
	"github.com/SAP-F-2025/identity-service/internal/validator"
)

type registrationFixture struct {
	identity  *fakeIdentity
	repo      *fakeRepository
	publisher *events.MockEventPublisher
	service   RegistrationService
}

func newRegistrationFixture(t *testing.T) *registrationFixture {
	t.Helper()

	logger := newTestLogger()
	v := validator.New()
	v.GetBusinessValidator().SetReservedAdminEmail("admin@sapkids.edu.vn")

	f := &registrationFixture{
		identity:  newFakeIdentity(),
		repo:      newFakeRepository(),
		publisher: events.NewMockEventPublisher(logger),
	}
	f.service = NewRegistrationService(f.repo, f.identity, f.publisher, logger, v)

	return f
}

func teacherRequest(email string) *RegisterRequest {
	school := "Hoa Mai Kindergarten"
	years := 4
	return &RegisterRequest{
		Email:             email,
		Password:          "teacher-secret",
		Role:              models.RoleTeacher,
		FirstName:         "Minh",
		LastName:          "Tran",
		YearsOfExperience: &years,
		CurrentSchool:     &school,
		ProofDocument:     json.RawMessage(`{"certificate":"ecec-2024"}`),
	}
}

func parentRequest(email string) *RegisterRequest {
	return &RegisterRequest{
		Email:     email,
		Password:  "parent-secret",
		Role:      models.RoleParent,
		FirstName: "Lan",
		LastName:  "Nguyen",
	}
}

func TestRegistrationService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("TeacherStartsQuarantined", func(t *testing.T) {
		f := newRegistrationFixture(t)

		result, err := f.service.Register(ctx, teacherRequest("minh@example.com"))
		if err != nil {
			t.Fatalf("Register failed: %v", err)
		}
		if !result.PendingApproval {
			t.Error("teacher registration must report pending approval")
		}

		profile, err := f.repo.profiles.GetByID(ctx, result.ProfileID)
		if err != nil {
			t.Fatalf("profile not written: %v", err)
		}
		if profile.Teacher == nil || profile.Teacher.Approved {
			t.Errorf("teacher must start unapproved, got %+v", profile.Teacher)
		}
		if len(profile.Teacher.ProofDocument) == 0 {
			t.Error("proof document not attached")
		}

		// Registration never leaves a live session behind.
		if f.identity.Current() != nil {
			t.Error("expected forced sign-out after registration")
		}
		if !hasEvent(f.publisher.GetPublishedEvents(), events.TypeUserRegistered) {
			t.Error("expected a user-registered event")
		}
	})

	t.Run("ParentIsImmediatelyUsable", func(t *testing.T) {
		f := newRegistrationFixture(t)

		result, err := f.service.Register(ctx, parentRequest("lan@example.com"))
		if err != nil {
			t.Fatalf("Register failed: %v", err)
		}
		if result.PendingApproval {
			t.Error("parent registration must not be gated on approval")
		}

		profile, _ := f.repo.profiles.GetByID(ctx, result.ProfileID)
		if profile.Teacher != nil {
			t.Errorf("parent profile carries teacher fields: %+v", profile.Teacher)
		}
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		f := newRegistrationFixture(t)

		if _, err := f.service.Register(ctx, parentRequest("dup@example.com")); err != nil {
			t.Fatalf("first registration failed: %v", err)
		}
		_, err := f.service.Register(ctx, parentRequest("dup@example.com"))
		if !errors.Is(err, repositories.ErrEmailInUse) {
			t.Fatalf("expected ErrEmailInUse, got %v", err)
		}
	})

	t.Run("ReservedAdminEmail", func(t *testing.T) {
		f := newRegistrationFixture(t)

		if _, err := f.service.Register(ctx, parentRequest("admin@sapkids.edu.vn")); err == nil {
			t.Fatal("expected reserved-email registration to fail")
		}
		if f.identity.hasCredential("admin@sapkids.edu.vn") {
			t.Error("reserved-email registration must not reach the provider")
		}
	})

	t.Run("ProfileWriteFailureCleansUpCredential", func(t *testing.T) {
		f := newRegistrationFixture(t)
		f.repo.profiles.createErr = errors.New("connection refused")

		_, err := f.service.Register(ctx, parentRequest("orphan@example.com"))
		if err == nil {
			t.Fatal("expected registration to fail")
		}

		// No credential may exist without a profile.
		if f.identity.hasCredential("orphan@example.com") {
			t.Error("orphaned credential left at the provider")
		}
	})

	t.Run("ProofWriteFailureNeverBlocks", func(t *testing.T) {
		f := newRegistrationFixture(t)
		f.repo.profiles.updateErr = errors.New("jsonb write failed")

		result, err := f.service.Register(ctx, teacherRequest("proof@example.com"))
		if err != nil {
			t.Fatalf("registration must survive a proof write failure: %v", err)
		}

		profile, _ := f.repo.profiles.GetByID(ctx, result.ProfileID)
		if len(profile.Teacher.ProofDocument) != 0 {
			t.Errorf("proof document unexpectedly persisted: %s", profile.Teacher.ProofDocument)
		}
	})

	t.Run("WeakPassword", func(t *testing.T) {
		f := newRegistrationFixture(t)

		req := parentRequest("weak@example.com")
		req.Password = "abc"
		if _, err := f.service.Register(ctx, req); err == nil {
			t.Fatal("expected weak password to be rejected")
		}
	})
}
