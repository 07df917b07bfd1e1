package models

import "time"

// School is a reference-data entry in the school directory. The directory is
// seeded once by the bootstrap provisioner and maintained by administrators.
type School struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	Name     string `json:"name" gorm:"uniqueIndex;not null;size:200"`
	District string `json:"district" gorm:"size:100"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (School) TableName() string {
	return "schools"
}
