package validator

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/SAP-F-2025/identity-service/internal/models"
)

// BusinessValidator handles business rule validation
type BusinessValidator struct {
	validate *validator.Validate

	// reservedAdminEmail may never be registered through the public flow.
	reservedAdminEmail string
}

// NewBusinessValidator creates a new business validator
func NewBusinessValidator() *BusinessValidator {
	return &BusinessValidator{validate: validator.New()}
}

// SetReservedAdminEmail registers the reserved administrator identity so
// registration attempts against it are rejected up front.
func (bv *BusinessValidator) SetReservedAdminEmail(email string) {
	bv.reservedAdminEmail = email
}

// Validate validates business rules for any struct
func (bv *BusinessValidator) Validate(s interface{}) ValidationErrors {
	err := bv.validate.Struct(s)
	if err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			return ToValidationErrors(verrs)
		}
		return ValidationErrors{{Field: "", Message: err.Error(), Rule: "struct"}}
	}
	return nil
}

// ValidateRegistration validates registration business rules.
func (bv *BusinessValidator) ValidateRegistration(req *RegisterRequest) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)

	if bv.reservedAdminEmail != "" && strings.EqualFold(req.Email, bv.reservedAdminEmail) {
		errors = append(errors, ValidationError{
			Field:   "email",
			Message: "this address is reserved",
			Rule:    "reserved_email",
		})
	}

	if req.Role == models.RoleTeacher && (req.CurrentSchool == nil || *req.CurrentSchool == "") {
		errors = append(errors, ValidationError{
			Field:   "current_school",
			Message: "teachers must name their current school",
			Rule:    "business_logic",
		})
	}

	if req.Role != models.RoleTeacher {
		if req.YearsOfExperience != nil || req.CurrentSchool != nil || len(req.ProofDocument) > 0 {
			errors = append(errors, ValidationError{
				Field:   "role",
				Message: "teacher-only fields supplied for a non-teacher registration",
				Rule:    "business_logic",
			})
		}
	}

	return errors
}

// ValidateProfileUpdate validates self-service update rules against the
// profile being updated.
func (bv *BusinessValidator) ValidateProfileUpdate(req *ProfileUpdateRequest, existing *models.Profile) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)

	if existing.Role != models.RoleTeacher {
		if req.YearsOfExperience != nil || req.CurrentSchool != nil || len(req.ProofDocument) > 0 {
			errors = append(errors, ValidationError{
				Field:   "role",
				Message: "teacher-only fields supplied for a non-teacher profile",
				Rule:    "business_logic",
			})
		}
	}

	return errors
}
