package models

import (
	"time"

	"gorm.io/gorm"
)

type Answer struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	ResponseID uint   `json:"response_id" gorm:"not null;index"`
	QuestionID uint   `json:"question_id" gorm:"not null"` // soft reference, survives question deletion
	Value      string `json:"value" gorm:"type:text"`      // JSON-encoded array for checkbox answers

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	Response Response `json:"response,omitempty"`
}
