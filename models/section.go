package models

import (
	"time"

	"gorm.io/gorm"
)

type Section struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	FormID      uint           `json:"form_id" gorm:"not null;index"`
	Title       string         `json:"title" gorm:"not null"`
	Description string         `json:"description"`
	OrderIndex  int            `json:"order_index" gorm:"not null"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	Form      Form       `json:"form,omitempty"`
	Questions []Question `json:"questions,omitempty" gorm:"foreignKey:SectionID"`
}
