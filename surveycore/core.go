// Package surveycore holds the framework-agnostic response logic shared by
// the builder and responder surfaces: empty-response initialization,
// question config parsing, and submission validation. It performs no I/O;
// hosts drive persistence and transport themselves.
package surveycore

import (
	"encoding/json"
	"sort"

	"formforge/models"
)

var supportedTypes = map[string]bool{
	models.TypeShortText:      true,
	models.TypeLongText:       true,
	models.TypeMultipleChoice: true,
	models.TypeCheckbox:       true,
	models.TypeDropdown:       true,
	models.TypeLinearScale:    true,
	models.TypeDate:           true,
	models.TypeTime:           true,
	models.TypeFileUpload:     true,
}

// SupportedType reports whether t is a question type this system understands.
func SupportedType(t string) bool {
	return supportedTypes[t]
}

// QuestionConfig is the decoded shape of Question.Config.
type QuestionConfig struct {
	Options             []string `json:"options,omitempty"`
	MinScale            int      `json:"min_scale,omitempty"`
	MaxScale            int      `json:"max_scale,omitempty"`
	MinScaleLabel       string   `json:"min_scale_label,omitempty"`
	MaxScaleLabel       string   `json:"max_scale_label,omitempty"`
	MinLength           int      `json:"min_length,omitempty"`
	MaxLength           int      `json:"max_length,omitempty"`
	MinSelections       int      `json:"min_selections,omitempty"`
	MaxSelections       int      `json:"max_selections,omitempty"`
	MaxFiles            int      `json:"max_files,omitempty"`
	MaxFileSizeBytes    int64    `json:"max_file_size_bytes,omitempty"`
	AllowedContentTypes []string `json:"allowed_content_types,omitempty"`
}

// ParseConfig decodes a question's JSON config column. An empty column
// yields the zero config.
func ParseConfig(raw string) (QuestionConfig, error) {
	var cfg QuestionConfig
	if raw == "" {
		return cfg, nil
	}
	err := json.Unmarshal([]byte(raw), &cfg)
	return cfg, err
}

// PendingFile describes a file selected by the respondent but not yet
// uploaded.
type PendingFile struct {
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// UploadedFile describes a file already stored server-side, identified by
// the temp id handed out at upload time.
type UploadedFile struct {
	TempID           string `json:"temp_id"`
	OriginalFilename string `json:"original_filename"`
	StoredFilename   string `json:"stored_filename,omitempty"`
	ContentType      string `json:"content_type"`
	Size             int64  `json:"size"`
}

// FileAnswer is the answer slot for file_upload questions.
type FileAnswer struct {
	Files            []PendingFile  `json:"files"`
	UploadedMetadata []UploadedFile `json:"uploadedMetadata"`
}

// AllQuestions flattens a form's questions: root-level questions first, then
// each section's questions in section order. Everything is re-sorted by
// order index here rather than trusting stored contiguity.
func AllQuestions(form *models.Form) []models.Question {
	questions := make([]models.Question, 0, len(form.Questions))
	for _, q := range form.Questions {
		if q.SectionID == nil {
			questions = append(questions, q)
		}
	}
	sort.SliceStable(questions, func(i, j int) bool {
		return questions[i].OrderIndex < questions[j].OrderIndex
	})

	sections := make([]models.Section, len(form.Sections))
	copy(sections, form.Sections)
	sort.SliceStable(sections, func(i, j int) bool {
		return sections[i].OrderIndex < sections[j].OrderIndex
	})
	for _, s := range sections {
		inSection := make([]models.Question, 0, len(s.Questions))
		inSection = append(inSection, s.Questions...)
		if len(inSection) == 0 {
			// Some loaders only preload form.Questions.
			for _, q := range form.Questions {
				if q.SectionID != nil && *q.SectionID == s.ID {
					inSection = append(inSection, q)
				}
			}
		}
		sort.SliceStable(inSection, func(i, j int) bool {
			return inSection[i].OrderIndex < inSection[j].OrderIndex
		})
		questions = append(questions, inSection...)
	}
	return questions
}
