package models

import (
	"time"

	"gorm.io/datatypes"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleParent  Role = "parent"
)

// ValidRole reports whether r is one of the roles the platform knows about.
func ValidRole(r Role) bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleParent:
		return true
	}
	return false
}

// Principal is the identity handle issued by the identity provider. It carries
// no application-level role or permissions; those live on the Profile.
type Principal struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// TeacherInfo groups the fields that only exist for teacher profiles.
// Profiles with any other role carry a nil TeacherInfo.
type TeacherInfo struct {
	YearsOfExperience *int           `json:"years_of_experience,omitempty" gorm:"column:years_of_experience"`
	CurrentSchool     *string        `json:"current_school,omitempty" gorm:"size:200"`
	Approved          bool           `json:"approved" gorm:"default:false"`
	ProofDocument     datatypes.JSON `json:"proof_document,omitempty" gorm:"type:jsonb"`
}

type Profile struct {
	ID        string `json:"id" gorm:"primaryKey;size:255"`
	Email     string `json:"email" gorm:"uniqueIndex;not null;size:255"`
	Role      Role   `json:"role" gorm:"not null;size:20"`
	FirstName string `json:"first_name" gorm:"size:100"`
	LastName  string `json:"last_name" gorm:"size:100"`

	PhoneNumber *string `json:"phone_number,omitempty" gorm:"size:30"`
	Address     *string `json:"address,omitempty" gorm:"size:500"`

	// Teacher groups teacher-only fields; nil unless Role == RoleTeacher.
	Teacher *TeacherInfo `json:"teacher,omitempty" gorm:"embedded"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Profile) TableName() string {
	return "profiles"
}

// IsApproved reports whether the profile may hold an authorized session.
// Admin and parent profiles are always approved; teachers carry an explicit
// approval flag set by an administrator.
func (p *Profile) IsApproved() bool {
	if p.Role != RoleTeacher {
		return true
	}
	return p.Teacher != nil && p.Teacher.Approved
}

// Clone returns a deep copy. Published session snapshots carry clones so
// observers never alias the stored record.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}

	out := *p
	if p.PhoneNumber != nil {
		v := *p.PhoneNumber
		out.PhoneNumber = &v
	}
	if p.Address != nil {
		v := *p.Address
		out.Address = &v
	}
	if p.Teacher != nil {
		teacher := *p.Teacher
		if p.Teacher.YearsOfExperience != nil {
			v := *p.Teacher.YearsOfExperience
			teacher.YearsOfExperience = &v
		}
		if p.Teacher.CurrentSchool != nil {
			v := *p.Teacher.CurrentSchool
			teacher.CurrentSchool = &v
		}
		if p.Teacher.ProofDocument != nil {
			teacher.ProofDocument = append(datatypes.JSON(nil), p.Teacher.ProofDocument...)
		}
		out.Teacher = &teacher
	}

	return &out
}

func (p *Profile) FullName() string {
	if p.FirstName == "" {
		return p.LastName
	}
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}
