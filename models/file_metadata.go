package models

import (
	"time"

	"gorm.io/gorm"
)

// FileMetadata records one stored upload. Respondent uploads arrive before
// the response exists, so they carry a TempID until Submit claims them.
type FileMetadata struct {
	ID               uint   `json:"id" gorm:"primaryKey"`
	OriginalFilename string `json:"original_filename" gorm:"not null"`
	StoredFilename   string `json:"stored_filename" gorm:"uniqueIndex;not null"`
	ContentType      string `json:"content_type"`
	Size             int64  `json:"size" gorm:"not null"`
	QuestionID       uint   `json:"question_id" gorm:"index"`
	ResponseID       *uint  `json:"response_id" gorm:"index"`
	TempID           string `json:"temp_id,omitempty" gorm:"index"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	Response *Response `json:"response,omitempty"`
}
