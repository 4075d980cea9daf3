package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"formforge/models"
	"formforge/storage"
	"formforge/surveycore"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const publicFormCacheTTL = 5 * time.Minute

type FormService struct {
	db    *gorm.DB
	redis *redis.Client
	store storage.FileStore
}

func NewFormService(db *gorm.DB, redis *redis.Client, store storage.FileStore) *FormService {
	return &FormService{
		db:    db,
		redis: redis,
		store: store,
	}
}

type QuestionPayload struct {
	Type        string                    `json:"type" binding:"required"`
	Title       string                    `json:"title" binding:"required"`
	Description string                    `json:"description"`
	Required    bool                      `json:"required"`
	Config      surveycore.QuestionConfig `json:"config"`
}

type SectionPayload struct {
	Title       string            `json:"title" binding:"required"`
	Description string            `json:"description"`
	Questions   []QuestionPayload `json:"questions"`
}

type CreateFormRequest struct {
	Title       string              `json:"title" binding:"required"`
	Description string              `json:"description"`
	Settings    models.FormSettings `json:"settings"`
	StartAt     *time.Time          `json:"start_at"`
	EndAt       *time.Time          `json:"end_at"`
	Sections    []SectionPayload    `json:"sections"`
	Questions   []QuestionPayload   `json:"questions"` // form-root questions
}

type UpdateFormRequest struct {
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Settings    *models.FormSettings `json:"settings"`
	StartAt     *time.Time           `json:"start_at"`
	EndAt       *time.Time           `json:"end_at"`
	// Omitted window bounds are kept; clearing one is an explicit request.
	ClearStartAt bool              `json:"clear_start_at"`
	ClearEndAt   bool              `json:"clear_end_at"`
	Sections     []SectionPayload  `json:"sections"`
	Questions    []QuestionPayload `json:"questions"`
}

func (s *FormService) CreateForm(userID uint, req *CreateFormRequest) (*models.Form, error) {
	for _, q := range req.Questions {
		if !surveycore.SupportedType(q.Type) {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedQuestionType, q.Type)
		}
	}
	for _, sec := range req.Sections {
		for _, q := range sec.Questions {
			if !surveycore.SupportedType(q.Type) {
				return nil, fmt.Errorf("%w: %s", ErrUnsupportedQuestionType, q.Type)
			}
		}
	}

	// Start transaction
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	form := models.Form{
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		StartAt:     req.StartAt,
		EndAt:       req.EndAt,
	}
	if err := form.SetSettings(req.Settings); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Create(&form).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := createChildren(tx, form.ID, req.Sections, req.Questions); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return s.GetForm(form.ID, userID)
}

// createChildren persists a form's sections and questions, assigning
// zero-based order indices from payload position.
func createChildren(tx *gorm.DB, formID uint, sections []SectionPayload, rootQuestions []QuestionPayload) error {
	for i, qReq := range rootQuestions {
		if err := createQuestionRow(tx, formID, nil, i, qReq); err != nil {
			return err
		}
	}

	for i, secReq := range sections {
		section := models.Section{
			FormID:      formID,
			Title:       secReq.Title,
			Description: secReq.Description,
			OrderIndex:  i,
		}
		if err := tx.Create(&section).Error; err != nil {
			return err
		}
		for j, qReq := range secReq.Questions {
			if err := createQuestionRow(tx, formID, &section.ID, j, qReq); err != nil {
				return err
			}
		}
	}
	return nil
}

func createQuestionRow(tx *gorm.DB, formID uint, sectionID *uint, orderIndex int, req QuestionPayload) error {
	config, err := json.Marshal(req.Config)
	if err != nil {
		return err
	}
	question := models.Question{
		FormID:      formID,
		SectionID:   sectionID,
		Type:        req.Type,
		Title:       req.Title,
		Description: req.Description,
		Required:    req.Required,
		OrderIndex:  orderIndex,
		Config:      string(config),
	}
	return tx.Create(&question).Error
}

func (s *FormService) GetUserForms(userID uint) ([]models.Form, error) {
	var forms []models.Form
	err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&forms).Error
	return forms, err
}

func (s *FormService) GetForm(formID uint, userID uint) (*models.Form, error) {
	var form models.Form
	err := s.db.Where("id = ? AND user_id = ?", formID, userID).
		Preload("Sections", func(db *gorm.DB) *gorm.DB {
			return db.Order("sections.order_index")
		}).
		Preload("Sections.Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("questions.order_index")
		}).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Where("questions.section_id IS NULL").Order("questions.order_index")
		}).
		First(&form).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &form, nil
}

func (s *FormService) UpdateForm(formID uint, userID uint, req *UpdateFormRequest) (*models.Form, error) {
	form, err := s.GetForm(formID, userID)
	if err != nil {
		return nil, err
	}

	replaceChildren := req.Sections != nil || req.Questions != nil
	if replaceChildren {
		for _, q := range req.Questions {
			if !surveycore.SupportedType(q.Type) {
				return nil, fmt.Errorf("%w: %s", ErrUnsupportedQuestionType, q.Type)
			}
		}
		for _, sec := range req.Sections {
			for _, q := range sec.Questions {
				if !surveycore.SupportedType(q.Type) {
					return nil, fmt.Errorf("%w: %s", ErrUnsupportedQuestionType, q.Type)
				}
			}
		}
	}

	// Start transaction
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if req.Title != "" {
		form.Title = req.Title
	}
	if req.Description != "" {
		form.Description = req.Description
	}
	if req.Settings != nil {
		if err := form.SetSettings(*req.Settings); err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	if req.StartAt != nil {
		form.StartAt = req.StartAt
	}
	if req.EndAt != nil {
		form.EndAt = req.EndAt
	}
	if req.ClearStartAt {
		form.StartAt = nil
	}
	if req.ClearEndAt {
		form.EndAt = nil
	}

	// Detach preloaded children before Save so GORM does not upsert them.
	form.Sections = nil
	form.Questions = nil

	if err := tx.Save(form).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	// Forms are edited as a whole unit: replace all children rather than
	// diffing against the stored tree.
	if replaceChildren {
		if err := tx.Where("form_id = ?", formID).Delete(&models.Question{}).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		if err := tx.Where("form_id = ?", formID).Delete(&models.Section{}).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		if err := createChildren(tx, formID, req.Sections, req.Questions); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	invalidatePublicForm(s.redis, formID)

	return s.GetForm(formID, userID)
}

func (s *FormService) DeleteForm(formID uint, userID uint) error {
	if _, err := s.GetForm(formID, userID); err != nil {
		return err
	}

	// Best-effort disk cleanup before the rows disappear. Failures are
	// logged and swallowed so the delete itself still goes through.
	var questions []models.Question
	if err := s.db.Where("form_id = ? AND attachment_stored_name <> ''", formID).Find(&questions).Error; err == nil {
		for _, q := range questions {
			if err := s.store.Delete(q.AttachmentStoredName); err != nil && !errors.Is(err, storage.ErrFileNotFound) {
				log.Printf("Failed to remove attachment %s for question %d: %v", q.AttachmentStoredName, q.ID, err)
			}
		}
	}
	var files []models.FileMetadata
	err := s.db.
		Where("response_id IN (SELECT id FROM responses WHERE form_id = ?)", formID).
		Or("question_id IN (SELECT id FROM questions WHERE form_id = ?)", formID).
		Find(&files).Error
	if err == nil {
		for _, f := range files {
			if err := s.store.Delete(f.StoredFilename); err != nil && !errors.Is(err, storage.ErrFileNotFound) {
				log.Printf("Failed to remove uploaded file %s: %v", f.StoredFilename, err)
			}
		}
	}

	// Start transaction
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	// FK-safe cascade: leaves first.
	steps := []func() error{
		func() error {
			return tx.
				Where("response_id IN (SELECT id FROM responses WHERE form_id = ?)", formID).
				Or("question_id IN (SELECT id FROM questions WHERE form_id = ?)", formID).
				Delete(&models.FileMetadata{}).Error
		},
		func() error {
			return tx.Where("response_id IN (SELECT id FROM responses WHERE form_id = ?)", formID).
				Delete(&models.Answer{}).Error
		},
		func() error { return tx.Where("form_id = ?", formID).Delete(&models.Response{}).Error },
		func() error { return tx.Where("form_id = ?", formID).Delete(&models.Question{}).Error },
		func() error { return tx.Where("form_id = ?", formID).Delete(&models.Section{}).Error },
		func() error { return tx.Delete(&models.Form{}, formID).Error },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			tx.Rollback()
			return err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return err
	}

	invalidatePublicForm(s.redis, formID)
	return nil
}

// PublicForm is the respondent-facing projection: owner identity and
// non-respondent settings are redacted.
type PublicForm struct {
	ID                  uint             `json:"id"`
	Title               string           `json:"title"`
	Description         string           `json:"description"`
	CollectEmail        bool             `json:"collect_email"`
	ConfirmationMessage string           `json:"confirmation_message,omitempty"`
	StartAt             *time.Time       `json:"start_at,omitempty"`
	EndAt               *time.Time       `json:"end_at,omitempty"`
	AcceptingResponses  bool             `json:"accepting_responses"`
	Questions           []PublicQuestion `json:"questions"`
	Sections            []PublicSection  `json:"sections"`
}

type PublicSection struct {
	ID          uint             `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	OrderIndex  int              `json:"order_index"`
	Questions   []PublicQuestion `json:"questions"`
}

type PublicQuestion struct {
	ID            uint                      `json:"id"`
	Type          string                    `json:"type"`
	Title         string                    `json:"title"`
	Description   string                    `json:"description"`
	Required      bool                      `json:"required"`
	OrderIndex    int                       `json:"order_index"`
	Config        surveycore.QuestionConfig `json:"config"`
	HasAttachment bool                      `json:"has_attachment"`
}

func (s *FormService) GetPublicForm(formID uint) (*PublicForm, error) {
	if cached := s.getCachedPublicForm(formID); cached != nil {
		return cached, nil
	}

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

	settings := form.DecodedSettings()
	public := &PublicForm{
		ID:                  form.ID,
		Title:               form.Title,
		Description:         form.Description,
		CollectEmail:        settings.CollectEmail,
		ConfirmationMessage: settings.ConfirmationMessage,
		StartAt:             form.StartAt,
		EndAt:               form.EndAt,
		AcceptingResponses:  form.AcceptsResponsesAt(time.Now()),
		Questions:           publicQuestions(form.Questions),
	}
	for _, section := range form.Sections {
		public.Sections = append(public.Sections, PublicSection{
			ID:          section.ID,
			Title:       section.Title,
			Description: section.Description,
			OrderIndex:  section.OrderIndex,
			Questions:   publicQuestions(section.Questions),
		})
	}

	s.cachePublicForm(formID, public)
	return public, nil
}

func publicQuestions(questions []models.Question) []PublicQuestion {
	out := make([]PublicQuestion, 0, len(questions))
	for _, q := range questions {
		config, err := surveycore.ParseConfig(q.Config)
		if err != nil {
			config = surveycore.QuestionConfig{}
		}
		out = append(out, PublicQuestion{
			ID:            q.ID,
			Type:          q.Type,
			Title:         q.Title,
			Description:   q.Description,
			Required:      q.Required,
			OrderIndex:    q.OrderIndex,
			Config:        config,
			HasAttachment: q.AttachmentStoredName != "",
		})
	}
	return out
}

func publicFormCacheKey(formID uint) string {
	return fmt.Sprintf("form:public:%d", formID)
}

func (s *FormService) cachePublicForm(formID uint, form *PublicForm) {
	if s.redis == nil {
		return
	}
	data, err := json.Marshal(form)
	if err != nil {
		return
	}
	if err := s.redis.Set(context.Background(), publicFormCacheKey(formID), data, publicFormCacheTTL).Err(); err != nil {
		log.Printf("Failed to cache public form %d in Redis: %v", formID, err)
	}
}

func (s *FormService) getCachedPublicForm(formID uint) *PublicForm {
	if s.redis == nil {
		return nil
	}
	data, err := s.redis.Get(context.Background(), publicFormCacheKey(formID)).Result()
	if err != nil {
		if err != redis.Nil {
			log.Printf("Failed to read public form %d from Redis: %v", formID, err)
		}
		return nil
	}
	var form PublicForm
	if err := json.Unmarshal([]byte(data), &form); err != nil {
		return nil
	}
	return &form
}

func invalidatePublicForm(rdb *redis.Client, formID uint) {
	if rdb == nil {
		return
	}
	if err := rdb.Del(context.Background(), publicFormCacheKey(formID)).Err(); err != nil {
		log.Printf("Failed to invalidate public form %d cache: %v", formID, err)
	}
}
