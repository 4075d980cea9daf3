package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"

	"formforge/models"
	"formforge/storage"
	"formforge/surveycore"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type QuestionService struct {
	db    *gorm.DB
	redis *redis.Client
	store storage.FileStore
}

func NewQuestionService(db *gorm.DB, redis *redis.Client, store storage.FileStore) *QuestionService {
	return &QuestionService{
		db:    db,
		redis: redis,
		store: store,
	}
}

type CreateQuestionRequest struct {
	SectionID   *uint                     `json:"section_id"`
	Type        string                    `json:"type" binding:"required"`
	Title       string                    `json:"title" binding:"required"`
	Description string                    `json:"description"`
	Required    bool                      `json:"required"`
	Config      surveycore.QuestionConfig `json:"config"`
}

type UpdateQuestionRequest struct {
	Type        string                     `json:"type"`
	Title       string                     `json:"title"`
	Description string                     `json:"description"`
	Required    *bool                      `json:"required"`
	Config      *surveycore.QuestionConfig `json:"config"`
}

type ReorderItem struct {
	QuestionID uint  `json:"question_id" binding:"required"`
	OrderIndex int   `json:"order_index"`
	SectionID  *uint `json:"section_id"` // nil moves the question to form-root
}

type ReorderRequest struct {
	Items []ReorderItem `json:"items" binding:"required,min=1"`
}

func (s *QuestionService) ownedForm(formID, userID uint) error {
	var form models.Form
	err := s.db.Select("id").Where("id = ? AND user_id = ?", formID, userID).First(&form).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// CreateQuestion appends at the end of its sibling scope: the new question's
// order index is the current sibling count.
func (s *QuestionService) CreateQuestion(formID, userID uint, req *CreateQuestionRequest) (*models.Question, error) {
	if err := s.ownedForm(formID, userID); err != nil {
		return nil, err
	}
	if !surveycore.SupportedType(req.Type) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedQuestionType, req.Type)
	}
	if req.SectionID != nil {
		var section models.Section
		err := s.db.Where("id = ? AND form_id = ?", *req.SectionID, formID).First(&section).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		} else if err != nil {
			return nil, err
		}
	}

	config, err := json.Marshal(req.Config)
	if err != nil {
		return nil, err
	}

	var siblingCount int64
	if err := siblingScope(s.db, formID, req.SectionID).Count(&siblingCount).Error; err != nil {
		return nil, err
	}

	question := models.Question{
		FormID:      formID,
		SectionID:   req.SectionID,
		Type:        req.Type,
		Title:       req.Title,
		Description: req.Description,
		Required:    req.Required,
		OrderIndex:  int(siblingCount),
		Config:      string(config),
	}
	if err := s.db.Create(&question).Error; err != nil {
		return nil, err
	}

	invalidatePublicForm(s.redis, formID)
	return &question, nil
}

// siblingScope narrows a question query to one ordering scope: the form
// root when sectionID is nil, otherwise a single section. Getting this
// wrong silently desynchronizes indices across scopes.
func siblingScope(db *gorm.DB, formID uint, sectionID *uint) *gorm.DB {
	scope := db.Model(&models.Question{}).Where("form_id = ?", formID)
	if sectionID == nil {
		return scope.Where("section_id IS NULL")
	}
	return scope.Where("section_id = ?", *sectionID)
}

func (s *QuestionService) GetQuestions(formID, userID uint) ([]models.Question, error) {
	if err := s.ownedForm(formID, userID); err != nil {
		return nil, err
	}
	var questions []models.Question
	err := s.db.Where("form_id = ?", formID).
		Order("section_id NULLS FIRST").
		Order("order_index").
		Find(&questions).Error
	return questions, err
}

func (s *QuestionService) getQuestion(formID, questionID uint) (*models.Question, error) {
	var question models.Question
	err := s.db.Where("id = ? AND form_id = ?", questionID, formID).First(&question).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}
	return &question, nil
}

func (s *QuestionService) UpdateQuestion(formID, questionID, userID uint, req *UpdateQuestionRequest) (*models.Question, error) {
	if err := s.ownedForm(formID, userID); err != nil {
		return nil, err
	}
	question, err := s.getQuestion(formID, questionID)
	if err != nil {
		return nil, err
	}

	if req.Type != "" {
		if !surveycore.SupportedType(req.Type) {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedQuestionType, req.Type)
		}
		question.Type = req.Type
	}
	if req.Title != "" {
		question.Title = req.Title
	}
	if req.Description != "" {
		question.Description = req.Description
	}
	if req.Required != nil {
		question.Required = *req.Required
	}
	if req.Config != nil {
		config, err := json.Marshal(*req.Config)
		if err != nil {
			return nil, err
		}
		question.Config = string(config)
	}

	if err := s.db.Save(question).Error; err != nil {
		return nil, err
	}

	invalidatePublicForm(s.redis, formID)
	return question, nil
}

// DeleteQuestion removes the question and closes the gap it leaves: every
// sibling with a strictly greater order index is decremented by one.
func (s *QuestionService) DeleteQuestion(formID, questionID, userID uint) error {
	if err := s.ownedForm(formID, userID); err != nil {
		return err
	}
	question, err := s.getQuestion(formID, questionID)
	if err != nil {
		return err
	}

	if question.AttachmentStoredName != "" {
		if err := s.store.Delete(question.AttachmentStoredName); err != nil && !errors.Is(err, storage.ErrFileNotFound) {
			log.Printf("Failed to remove attachment %s for question %d: %v", question.AttachmentStoredName, question.ID, err)
		}
	}

	// Start transaction
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Delete(&models.Question{}, question.ID).Error; err != nil {
		tx.Rollback()
		return err
	}
	err = siblingScope(tx, formID, question.SectionID).
		Where("order_index > ?", question.OrderIndex).
		UpdateColumn("order_index", gorm.Expr("order_index - 1")).Error
	if err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return err
	}

	invalidatePublicForm(s.redis, formID)
	return nil
}

// Reorder applies a batch of (question, new index, new section) moves. All
// referenced questions and sections are loaded up front and must belong to
// the form; the mutations are persisted in one transaction.
func (s *QuestionService) Reorder(formID, userID uint, req *ReorderRequest) error {
	if err := s.ownedForm(formID, userID); err != nil {
		return err
	}

	ids := make([]uint, 0, len(req.Items))
	sectionIDs := make([]uint, 0)
	for _, item := range req.Items {
		ids = append(ids, item.QuestionID)
		if item.SectionID != nil {
			sectionIDs = append(sectionIDs, *item.SectionID)
		}
	}

	var questions []models.Question
	if err := s.db.Where("form_id = ? AND id IN ?", formID, ids).Find(&questions).Error; err != nil {
		return err
	}
	if len(questions) != len(req.Items) {
		return fmt.Errorf("%w: one or more questions do not belong to form %d", ErrNotFound, formID)
	}
	if len(sectionIDs) > 0 {
		var count int64
		if err := s.db.Model(&models.Section{}).Where("form_id = ? AND id IN ?", formID, sectionIDs).Count(&count).Error; err != nil {
			return err
		}
		seen := make(map[uint]bool)
		distinct := 0
		for _, id := range sectionIDs {
			if !seen[id] {
				seen[id] = true
				distinct++
			}
		}
		if int(count) != distinct {
			return fmt.Errorf("%w: one or more sections do not belong to form %d", ErrNotFound, formID)
		}
	}

	byID := make(map[uint]*models.Question, len(questions))
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
	}

	// Start transaction
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	for _, item := range req.Items {
		question := byID[item.QuestionID]
		question.OrderIndex = item.OrderIndex
		question.SectionID = item.SectionID
		err := tx.Model(&models.Question{}).Where("id = ?", question.ID).
			Updates(map[string]any{
				"order_index": item.OrderIndex,
				"section_id":  item.SectionID,
			}).Error
		if err != nil {
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

// UploadAttachment stores a design-time attachment on the question,
// replacing any previous one.
func (s *QuestionService) UploadAttachment(formID, questionID, userID uint, header *multipart.FileHeader) (*models.Question, error) {
	if err := s.ownedForm(formID, userID); err != nil {
		return nil, err
	}
	question, err := s.getQuestion(formID, questionID)
	if err != nil {
		return nil, err
	}

	storedName, err := s.store.Save(header)
	if err != nil {
		return nil, err
	}

	if question.AttachmentStoredName != "" {
		if err := s.store.Delete(question.AttachmentStoredName); err != nil && !errors.Is(err, storage.ErrFileNotFound) {
			log.Printf("Failed to remove previous attachment %s: %v", question.AttachmentStoredName, err)
		}
	}

	question.AttachmentFilename = header.Filename
	question.AttachmentStoredName = storedName
	question.AttachmentContentType = header.Header.Get("Content-Type")
	if err := s.db.Save(question).Error; err != nil {
		return nil, err
	}

	invalidatePublicForm(s.redis, formID)
	return question, nil
}

// OpenAttachment returns the attachment content along with its original
// filename and content type.
func (s *QuestionService) OpenAttachment(formID, questionID uint) (io.ReadCloser, *models.Question, error) {
	question, err := s.getQuestion(formID, questionID)
	if err != nil {
		return nil, nil, err
	}
	if question.AttachmentStoredName == "" {
		return nil, nil, ErrNotFound
	}
	reader, err := s.store.Open(question.AttachmentStoredName)
	if err != nil {
		if errors.Is(err, storage.ErrFileNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	return reader, question, nil
}

func (s *QuestionService) DeleteAttachment(formID, questionID, userID uint) error {
	if err := s.ownedForm(formID, userID); err != nil {
		return err
	}
	question, err := s.getQuestion(formID, questionID)
	if err != nil {
		return err
	}
	if question.AttachmentStoredName == "" {
		return ErrNotFound
	}

	if err := s.store.Delete(question.AttachmentStoredName); err != nil && !errors.Is(err, storage.ErrFileNotFound) {
		return err
	}

	question.AttachmentFilename = ""
	question.AttachmentStoredName = ""
	question.AttachmentContentType = ""
	if err := s.db.Save(question).Error; err != nil {
		return err
	}

	invalidatePublicForm(s.redis, formID)
	return nil
}
