package models

import (
	"time"

	"gorm.io/datatypes"
)

// Child is a student record owned by a parent profile.
type Child struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	ParentID  string    `json:"parent_id" gorm:"index;not null;size:255"`
	FirstName string    `json:"first_name" gorm:"not null;size:100"`
	LastName  string    `json:"last_name" gorm:"size:100"`
	BirthDate time.Time `json:"birth_date"`

	// MedicalNotes is a free-form document (allergies, emergency contacts).
	MedicalNotes datatypes.JSON `json:"medical_notes,omitempty" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Child) TableName() string {
	return "children"
}
