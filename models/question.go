package models

import (
	"time"

	"gorm.io/gorm"
)

// Question types understood by the builder and the response validator.
const (
	TypeShortText      = "short_text"
	TypeLongText       = "long_text"
	TypeMultipleChoice = "multiple_choice"
	TypeCheckbox       = "checkbox"
	TypeDropdown       = "dropdown"
	TypeLinearScale    = "linear_scale"
	TypeDate           = "date"
	TypeTime           = "time"
	TypeFileUpload     = "file_upload"
)

type Question struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	FormID      uint   `json:"form_id" gorm:"not null;index"`
	SectionID   *uint  `json:"section_id" gorm:"index"` // nil = form-root question
	Type        string `json:"type" gorm:"not null"`
	Title       string `json:"title" gorm:"not null"`
	Description string `json:"description"`
	Required    bool   `json:"required" gorm:"not null;default:false"`
	OrderIndex  int    `json:"order_index" gorm:"not null"` // zero-based within sibling scope
	Config      string `json:"config" gorm:"type:text"`     // JSON: options, scale bounds, file limits

	// Design-time attachment, at most one per question.
	AttachmentFilename    string `json:"attachment_filename,omitempty"`
	AttachmentStoredName  string `json:"-"`
	AttachmentContentType string `json:"attachment_content_type,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	Form    Form     `json:"form,omitempty"`
	Section *Section `json:"section,omitempty"`
}
