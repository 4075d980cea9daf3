package services

import (
	"encoding/json"
	"errors"
	"time"

	"formforge/models"
	"formforge/surveycore"

	"gorm.io/gorm"
)

// ResponseBroadcaster receives submission events for live monitoring.
type ResponseBroadcaster interface {
	BroadcastToForm(formID uint, event string, payload any)
}

type ResponseService struct {
	db  *gorm.DB
	hub ResponseBroadcaster
}

func NewResponseService(db *gorm.DB, hub ResponseBroadcaster) *ResponseService {
	return &ResponseService{
		db:  db,
		hub: hub,
	}
}

type AnswerInput struct {
	QuestionID  uint     `json:"question_id" binding:"required"`
	Value       string   `json:"value"`
	Values      []string `json:"values"`        // checkbox selections
	FileTempIDs []string `json:"file_temp_ids"` // temp ids of pre-submitted uploads
}

type SubmitResponseRequest struct {
	Email   string        `json:"email"`
	Answers []AnswerInput `json:"answers"`
}

// Submit validates and persists one respondent's submission. The response
// window is checked first, then the answers are validated against the form
// definition; only then are rows written.
func (s *ResponseService) Submit(formID uint, req *SubmitResponseRequest) (*models.Response, error) {
	var form models.Form
	err := s.db.
		Preload("Sections", func(db *gorm.DB) *gorm.DB {
			return db.Order("sections.order_index")
		}).
		Preload("Sections.Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("questions.order_index")
		}).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Where("questions.section_id IS NULL").Order("questions.order_index")
		}).
		First(&form, formID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	now := time.Now()
	if !form.AcceptsResponsesAt(now) {
		return nil, ErrResponsePeriod
	}

	inputs := make(map[uint]AnswerInput, len(req.Answers))
	for _, in := range req.Answers {
		inputs[in.QuestionID] = in
	}

	questions := surveycore.AllQuestions(&form)
	values, uploads, err := s.buildValues(questions, inputs)
	if err != nil {
		return nil, err
	}

	if result := surveycore.ValidateResponse(&form, values); !result.Valid {
		return nil, &SubmissionValidationError{Result: result}
	}

	// Start transaction
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	response := models.Response{
		FormID:      formID,
		SubmittedAt: now,
	}
	if form.DecodedSettings().CollectEmail {
		response.Email = req.Email
	}
	if err := tx.Create(&response).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	for _, q := range questions {
		in, ok := inputs[q.ID]
		if !ok {
			continue
		}
		value, err := encodeAnswerValue(q, in)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		answer := models.Answer{
			ResponseID: response.ID,
			QuestionID: q.ID,
			Value:      value,
		}
		if err := tx.Create(&answer).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	// Claim pre-submitted uploads for this response.
	for questionID, tempIDs := range uploads {
		if len(tempIDs) == 0 {
			continue
		}
		err := tx.Model(&models.FileMetadata{}).
			Where("temp_id IN ? AND response_id IS NULL", tempIDs).
			Updates(map[string]any{
				"response_id": response.ID,
				"question_id": questionID,
				"temp_id":     "",
			}).Error
		if err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	if s.hub != nil {
		s.hub.BroadcastToForm(formID, "response_submitted", map[string]any{
			"response_id":  response.ID,
			"submitted_at": response.SubmittedAt,
			"answer_count": len(req.Answers),
		})
	}

	return s.getResponse(formID, response.ID)
}

// buildValues resolves the raw answer inputs into the value shapes the
// validator understands, looking up pre-submitted file metadata by temp id.
func (s *ResponseService) buildValues(questions []models.Question, inputs map[uint]AnswerInput) (map[uint]any, map[uint][]string, error) {
	values := make(map[uint]any, len(inputs))
	uploads := make(map[uint][]string)

	for _, q := range questions {
		in, ok := inputs[q.ID]
		if !ok {
			continue
		}
		switch q.Type {
		case models.TypeCheckbox:
			selected := in.Values
			if selected == nil && in.Value != "" {
				// Multi-select values may arrive JSON-encoded in the string column shape.
				if err := json.Unmarshal([]byte(in.Value), &selected); err != nil {
					selected = nil
				}
			}
			if selected == nil {
				selected = []string{}
			}
			values[q.ID] = selected

		case models.TypeFileUpload:
			answer := surveycore.FileAnswer{
				Files:            []surveycore.PendingFile{},
				UploadedMetadata: []surveycore.UploadedFile{},
			}
			if len(in.FileTempIDs) > 0 {
				var files []models.FileMetadata
				err := s.db.Where("temp_id IN ? AND response_id IS NULL", in.FileTempIDs).Find(&files).Error
				if err != nil {
					return nil, nil, err
				}
				for _, f := range files {
					answer.UploadedMetadata = append(answer.UploadedMetadata, surveycore.UploadedFile{
						TempID:           f.TempID,
						OriginalFilename: f.OriginalFilename,
						StoredFilename:   f.StoredFilename,
						ContentType:      f.ContentType,
						Size:             f.Size,
					})
				}
				uploads[q.ID] = in.FileTempIDs
			}
			values[q.ID] = answer

		default:
			values[q.ID] = in.Value
		}
	}
	return values, uploads, nil
}

// encodeAnswerValue renders the stored string form of an answer. Checkbox
// selections are stored as a JSON-encoded array.
func encodeAnswerValue(q models.Question, in AnswerInput) (string, error) {
	switch q.Type {
	case models.TypeCheckbox:
		selected := in.Values
		if selected == nil && in.Value != "" {
			// Parse and re-encode so the column never holds anything but a
			// JSON array, even when the client sent garbage.
			if err := json.Unmarshal([]byte(in.Value), &selected); err != nil {
				selected = nil
			}
		}
		if selected == nil {
			selected = []string{}
		}
		data, err := json.Marshal(selected)
		if err != nil {
			return "", err
		}
		return string(data), nil
	case models.TypeFileUpload:
		data, err := json.Marshal(in.FileTempIDs)
		if err != nil {
			return "", err
		}
		return string(data), nil
	default:
		return in.Value, nil
	}
}

func (s *ResponseService) ownedForm(formID, userID uint) error {
	var form models.Form
	err := s.db.Select("id").Where("id = ? AND user_id = ?", formID, userID).First(&form).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *ResponseService) GetResponses(formID, userID uint) ([]models.Response, error) {
	if err := s.ownedForm(formID, userID); err != nil {
		return nil, err
	}
	var responses []models.Response
	err := s.db.Where("form_id = ?", formID).
		Preload("Answers").
		Preload("Files").
		Order("submitted_at DESC").
		Find(&responses).Error
	return responses, err
}

func (s *ResponseService) GetResponse(formID, responseID, userID uint) (*models.Response, error) {
	if err := s.ownedForm(formID, userID); err != nil {
		return nil, err
	}
	return s.getResponse(formID, responseID)
}

func (s *ResponseService) getResponse(formID, responseID uint) (*models.Response, error) {
	var response models.Response
	err := s.db.Where("id = ? AND form_id = ?", responseID, formID).
		Preload("Answers").
		Preload("Files").
		First(&response).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}
	return &response, nil
}
