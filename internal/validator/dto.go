package validator

import (
	"encoding/json"
	"time"

	"github.com/SAP-F-2025/identity-service/internal/models"
)

// RegisterRequest is the registration payload for teacher and parent
// accounts. The administrator identity is never registered; it is synthesized
// on first login.
type RegisterRequest struct {
	Email     string      `json:"email" validate:"required,email,max=255"`
	Password  string      `json:"password" validate:"required,min=6,max=128"`
	Role      models.Role `json:"role" validate:"required,oneof=teacher parent"`
	FirstName string      `json:"first_name" validate:"required,max=100"`
	LastName  string      `json:"last_name" validate:"required,max=100"`

	PhoneNumber *string `json:"phone_number" validate:"omitempty,max=30"`
	Address     *string `json:"address" validate:"omitempty,max=500"`

	// Teacher-only fields.
	YearsOfExperience *int    `json:"years_of_experience" validate:"omitempty,min=0,max=60"`
	CurrentSchool     *string `json:"current_school" validate:"omitempty,max=200"`

	// ProofDocument is an opaque encoded blob reference. Best-effort: its
	// absence or a failed write never blocks registration.
	ProofDocument json.RawMessage `json:"proof_document,omitempty"`
}

// ProfileUpdateRequest carries the self-service mutable fields. Id, email and
// role are immutable and deliberately absent.
type ProfileUpdateRequest struct {
	FirstName *string `json:"first_name" validate:"omitempty,max=100"`
	LastName  *string `json:"last_name" validate:"omitempty,max=100"`

	PhoneNumber *string `json:"phone_number" validate:"omitempty,max=30"`
	Address     *string `json:"address" validate:"omitempty,max=500"`

	YearsOfExperience *int    `json:"years_of_experience" validate:"omitempty,min=0,max=60"`
	CurrentSchool     *string `json:"current_school" validate:"omitempty,max=200"`

	ProofDocument json.RawMessage `json:"proof_document,omitempty"`
}

// ChildRequest creates or updates a child record.
type ChildRequest struct {
	FirstName string    `json:"first_name" validate:"required,max=100"`
	LastName  string    `json:"last_name" validate:"omitempty,max=100"`
	BirthDate time.Time `json:"birth_date" validate:"required"`

	MedicalNotes json.RawMessage `json:"medical_notes,omitempty"`
}

// SchoolUpsertRequest inserts or updates a school directory entry.
type SchoolUpsertRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	District string `json:"district" validate:"omitempty,max=100"`
}

// LoginRequest is the explicit credential submission.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ChangePasswordRequest carries a credential change.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6,max=128"`
}

// PasswordResetRequest asks the provider to send a reset mail.
type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}
