package models

import (
	"time"

	"gorm.io/gorm"
)

type Response struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	FormID      uint           `json:"form_id" gorm:"not null;index"`
	Email       string         `json:"email,omitempty"` // recorded only when the form collects emails
	SubmittedAt time.Time      `json:"submitted_at"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	Form    Form           `json:"form,omitempty"`
	Answers []Answer       `json:"answers,omitempty" gorm:"foreignKey:ResponseID"`
	Files   []FileMetadata `json:"files,omitempty" gorm:"foreignKey:ResponseID"`
}
