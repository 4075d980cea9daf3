package services

import (
	"errors"
	"log"

	"formforge/models"
	"formforge/storage"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type SectionService struct {
	db    *gorm.DB
	redis *redis.Client
	store storage.FileStore
}

func NewSectionService(db *gorm.DB, redis *redis.Client, store storage.FileStore) *SectionService {
	return &SectionService{
		db:    db,
		redis: redis,
		store: store,
	}
}

type CreateSectionRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

type UpdateSectionRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (s *SectionService) ownedForm(formID, userID uint) error {
	var form models.Form
	err := s.db.Select("id").Where("id = ? AND user_id = ?", formID, userID).First(&form).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// CreateSection appends the new section after the form's existing ones.
func (s *SectionService) CreateSection(formID, userID uint, req *CreateSectionRequest) (*models.Section, error) {
	if err := s.ownedForm(formID, userID); err != nil {
		return nil, err
	}

	var count int64
	if err := s.db.Model(&models.Section{}).Where("form_id = ?", formID).Count(&count).Error; err != nil {
		return nil, err
	}

	section := models.Section{
		FormID:      formID,
		Title:       req.Title,
		Description: req.Description,
		OrderIndex:  int(count),
	}
	if err := s.db.Create(&section).Error; err != nil {
		return nil, err
	}

	invalidatePublicForm(s.redis, formID)
	return &section, nil
}

func (s *SectionService) GetSections(formID, userID uint) ([]models.Section, error) {
	if err := s.ownedForm(formID, userID); err != nil {
		return nil, err
	}
	var sections []models.Section
	err := s.db.Where("form_id = ?", formID).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("questions.order_index")
		}).
		Order("order_index").
		Find(&sections).Error
	return sections, err
}

func (s *SectionService) getSection(formID, sectionID uint) (*models.Section, error) {
	var section models.Section
	err := s.db.Where("id = ? AND form_id = ?", sectionID, formID).First(&section).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}
	return &section, nil
}

func (s *SectionService) UpdateSection(formID, sectionID, userID uint, req *UpdateSectionRequest) (*models.Section, error) {
	if err := s.ownedForm(formID, userID); err != nil {
		return nil, err
	}
	section, err := s.getSection(formID, sectionID)
	if err != nil {
		return nil, err
	}

	if req.Title != "" {
		section.Title = req.Title
	}
	if req.Description != "" {
		section.Description = req.Description
	}
	if err := s.db.Save(section).Error; err != nil {
		return nil, err
	}

	invalidatePublicForm(s.redis, formID)
	return section, nil
}

// DeleteSection removes the section together with the questions it owns and
// closes the order gap among the remaining sections.
func (s *SectionService) DeleteSection(formID, sectionID, userID uint) error {
	if err := s.ownedForm(formID, userID); err != nil {
		return err
	}
	section, err := s.getSection(formID, sectionID)
	if err != nil {
		return err
	}

	var questions []models.Question
	if err := s.db.Where("section_id = ? AND attachment_stored_name <> ''", sectionID).Find(&questions).Error; err == nil {
		for _, q := range questions {
			if err := s.store.Delete(q.AttachmentStoredName); err != nil && !errors.Is(err, storage.ErrFileNotFound) {
				log.Printf("Failed to remove attachment %s for question %d: %v", q.AttachmentStoredName, q.ID, err)
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

	if err := tx.Where("section_id = ?", sectionID).Delete(&models.Question{}).Error; err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Delete(&models.Section{}, sectionID).Error; err != nil {
		tx.Rollback()
		return err
	}
	err = tx.Model(&models.Section{}).
		Where("form_id = ? AND order_index > ?", formID, section.OrderIndex).
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
