package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

type Form struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	UserID      uint           `json:"user_id" gorm:"not null"`
	Title       string         `json:"title" gorm:"not null"`
	Description string         `json:"description"`
	Settings    string         `json:"-" gorm:"type:text"` // JSON blob, see FormSettings
	StartAt     *time.Time     `json:"start_at"`
	EndAt       *time.Time     `json:"end_at"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	User      User       `json:"user,omitempty"`
	Sections  []Section  `json:"sections,omitempty" gorm:"foreignKey:FormID"`
	Questions []Question `json:"questions,omitempty" gorm:"foreignKey:FormID"`
	Responses []Response `json:"responses,omitempty" gorm:"foreignKey:FormID"`
}

// FormSettings is the decoded shape of the Settings column.
type FormSettings struct {
	CollectEmail           bool   `json:"collect_email"`
	ConfirmationMessage    string `json:"confirmation_message,omitempty"`
	AllowMultipleResponses bool   `json:"allow_multiple_responses"`
}

func (f *Form) DecodedSettings() FormSettings {
	var s FormSettings
	if f.Settings != "" {
		// Malformed settings fall back to zero values rather than failing reads.
		_ = json.Unmarshal([]byte(f.Settings), &s)
	}
	return s
}

func (f *Form) SetSettings(s FormSettings) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	f.Settings = string(data)
	return nil
}

// AcceptsResponsesAt reports whether t falls inside the form's response
// window. A nil bound is open-ended on that side.
func (f *Form) AcceptsResponsesAt(t time.Time) bool {
	if f.StartAt != nil && t.Before(*f.StartAt) {
		return false
	}
	if f.EndAt != nil && t.After(*f.EndAt) {
		return false
	}
	return true
}
