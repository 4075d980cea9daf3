package surveycore

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"formforge/models"
)

// EmptyResponse builds the initial answer slot for every question of a
// form: "" for text-like types, an empty selection list for checkboxes,
// and an empty FileAnswer for file uploads.
func EmptyResponse(form *models.Form) map[uint]any {
	values := make(map[uint]any)
	for _, q := range AllQuestions(form) {
		switch q.Type {
		case models.TypeCheckbox:
			values[q.ID] = []string{}
		case models.TypeFileUpload:
			values[q.ID] = FileAnswer{
				Files:            []PendingFile{},
				UploadedMetadata: []UploadedFile{},
			}
		default:
			values[q.ID] = ""
		}
	}
	return values
}

// Result is the outcome of validating a full response.
type Result struct {
	Valid  bool              `json:"valid"`
	Errors map[uint][]string `json:"errors"`
}

// ValidateResponse checks values against the form definition. It is pure:
// identical inputs produce identical results, and neither argument is
// mutated.
func ValidateResponse(form *models.Form, values map[uint]any) Result {
	result := Result{Valid: true, Errors: make(map[uint][]string)}
	for _, q := range AllQuestions(form) {
		value, present := values[q.ID]
		for _, msg := range validateAnswer(q, value, present) {
			result.Errors[q.ID] = append(result.Errors[q.ID], msg)
		}
	}
	result.Valid = len(result.Errors) == 0
	return result
}

func validateAnswer(q models.Question, value any, present bool) (errs []string) {
	cfg, err := ParseConfig(q.Config)
	if err != nil {
		// A broken config must not make a question unanswerable.
		cfg = QuestionConfig{}
	}

	switch q.Type {
	case models.TypeShortText, models.TypeLongText:
		text, _ := value.(string)
		if strings.TrimSpace(text) == "" {
			if q.Required {
				errs = append(errs, "answer is required")
			}
			return
		}
		if cfg.MinLength > 0 && len(text) < cfg.MinLength {
			errs = append(errs, fmt.Sprintf("answer must be at least %d characters", cfg.MinLength))
		}
		if cfg.MaxLength > 0 && len(text) > cfg.MaxLength {
			errs = append(errs, fmt.Sprintf("answer must be at most %d characters", cfg.MaxLength))
		}

	case models.TypeMultipleChoice, models.TypeDropdown:
		choice, _ := value.(string)
		if choice == "" {
			if q.Required {
				errs = append(errs, "a selection is required")
			}
			return
		}
		if len(cfg.Options) > 0 && !containsOption(cfg.Options, choice) {
			errs = append(errs, "selection is not one of the available options")
		}

	case models.TypeCheckbox:
		selected := toStringSlice(value)
		if len(selected) == 0 {
			if q.Required {
				errs = append(errs, "at least one selection is required")
			}
			return
		}
		for _, choice := range selected {
			if len(cfg.Options) > 0 && !containsOption(cfg.Options, choice) {
				errs = append(errs, fmt.Sprintf("%q is not one of the available options", choice))
			}
		}
		if cfg.MinSelections > 0 && len(selected) < cfg.MinSelections {
			errs = append(errs, fmt.Sprintf("select at least %d options", cfg.MinSelections))
		}
		if cfg.MaxSelections > 0 && len(selected) > cfg.MaxSelections {
			errs = append(errs, fmt.Sprintf("select at most %d options", cfg.MaxSelections))
		}

	case models.TypeLinearScale:
		raw, _ := value.(string)
		if raw == "" {
			if q.Required {
				errs = append(errs, "a rating is required")
			}
			return
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, "rating must be a number")
			return
		}
		if cfg.MaxScale > cfg.MinScale && (n < cfg.MinScale || n > cfg.MaxScale) {
			errs = append(errs, fmt.Sprintf("rating must be between %d and %d", cfg.MinScale, cfg.MaxScale))
		}

	case models.TypeDate:
		raw, _ := value.(string)
		if raw == "" {
			if q.Required {
				errs = append(errs, "a date is required")
			}
			return
		}
		if _, err := time.Parse("2006-01-02", raw); err != nil {
			errs = append(errs, "date must use the YYYY-MM-DD format")
		}

	case models.TypeTime:
		raw, _ := value.(string)
		if raw == "" {
			if q.Required {
				errs = append(errs, "a time is required")
			}
			return
		}
		if _, err := time.Parse("15:04", raw); err != nil {
			errs = append(errs, "time must use the HH:MM format")
		}

	case models.TypeFileUpload:
		answer, ok := value.(FileAnswer)
		if !ok || (len(answer.Files) == 0 && len(answer.UploadedMetadata) == 0) {
			if q.Required {
				errs = append(errs, "a file is required")
			}
			return
		}
		total := len(answer.Files) + len(answer.UploadedMetadata)
		if cfg.MaxFiles > 0 && total > cfg.MaxFiles {
			errs = append(errs, fmt.Sprintf("at most %d files allowed", cfg.MaxFiles))
		}
		for _, f := range answer.Files {
			errs = append(errs, checkFileRules(cfg, f.Name, f.Size, f.ContentType)...)
		}
		for _, f := range answer.UploadedMetadata {
			errs = append(errs, checkFileRules(cfg, f.OriginalFilename, f.Size, f.ContentType)...)
		}

	default:
		if present {
			errs = append(errs, fmt.Sprintf("unsupported question type %q", q.Type))
		}
	}
	return
}

func checkFileRules(cfg QuestionConfig, name string, size int64, contentType string) (errs []string) {
	if cfg.MaxFileSizeBytes > 0 && size > cfg.MaxFileSizeBytes {
		errs = append(errs, fmt.Sprintf("%s exceeds the %d byte size limit", name, cfg.MaxFileSizeBytes))
	}
	if len(cfg.AllowedContentTypes) > 0 && !containsOption(cfg.AllowedContentTypes, contentType) {
		errs = append(errs, fmt.Sprintf("%s has a disallowed content type", name))
	}
	return
}

func containsOption(options []string, value string) bool {
	for _, opt := range options {
		if opt == value {
			return true
		}
	}
	return false
}

func toStringSlice(value any) []string {
	switch v := value.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
