package services

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"io"
	"mime/multipart"

	"formforge/models"
	"formforge/storage"
	"formforge/surveycore"

	"gorm.io/gorm"
)

type FileService struct {
	db    *gorm.DB
	store storage.FileStore
}

func NewFileService(db *gorm.DB, store storage.FileStore) *FileService {
	return &FileService{
		db:    db,
		store: store,
	}
}

// UploadTemp stores a respondent file before its response exists. The
// returned metadata carries a temp id the client echoes back on submit.
func (s *FileService) UploadTemp(questionID uint, header *multipart.FileHeader) (*models.FileMetadata, error) {
	var question models.Question
	err := s.db.First(&question, questionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}
	if question.Type != models.TypeFileUpload {
		return nil, storage.ErrFileRejected
	}

	// Per-question size cap on top of the store-wide one.
	cfg, err := surveycore.ParseConfig(question.Config)
	if err == nil && cfg.MaxFileSizeBytes > 0 && header.Size > cfg.MaxFileSizeBytes {
		return nil, storage.ErrFileRejected
	}

	storedName, err := s.store.Save(header)
	if err != nil {
		return nil, err
	}

	meta := models.FileMetadata{
		OriginalFilename: header.Filename,
		StoredFilename:   storedName,
		ContentType:      header.Header.Get("Content-Type"),
		Size:             header.Size,
		QuestionID:       questionID,
		TempID:           generateTempID(),
	}
	if err := s.db.Create(&meta).Error; err != nil {
		// Orphaned disk file, best effort to undo.
		s.store.Delete(storedName)
		return nil, err
	}
	return &meta, nil
}

// Open returns the content of a stored file together with its metadata.
func (s *FileService) Open(storedName string) (io.ReadCloser, *models.FileMetadata, error) {
	meta, err := s.findByStoredName(storedName)
	if err != nil {
		return nil, nil, err
	}
	reader, err := s.store.Open(meta.StoredFilename)
	if err != nil {
		if errors.Is(err, storage.ErrFileNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	return reader, meta, nil
}

// DeleteTemp removes an upload that no response has claimed yet.
func (s *FileService) DeleteTemp(storedName string) error {
	meta, err := s.findByStoredName(storedName)
	if err != nil {
		return err
	}
	if meta.ResponseID != nil {
		// Claimed files belong to their response and go away with it.
		return ErrNotFound
	}

	if err := s.store.Delete(meta.StoredFilename); err != nil && !errors.Is(err, storage.ErrFileNotFound) {
		return err
	}
	return s.db.Delete(&models.FileMetadata{}, meta.ID).Error
}

// GetResponseFiles lists the uploads attached to one response, for the
// owner of the response's form.
func (s *FileService) GetResponseFiles(responseID, userID uint) ([]models.FileMetadata, error) {
	var response models.Response
	err := s.db.First(&response, responseID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}
	var form models.Form
	err = s.db.Select("id").Where("id = ? AND user_id = ?", response.FormID, userID).First(&form).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}

	var files []models.FileMetadata
	err = s.db.Where("response_id = ?", responseID).Order("created_at").Find(&files).Error
	return files, err
}

func (s *FileService) findByStoredName(storedName string) (*models.FileMetadata, error) {
	var meta models.FileMetadata
	err := s.db.Where("stored_filename = ?", storedName).First(&meta).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}
	return &meta, nil
}

func generateTempID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return hex.EncodeToString(b)
}
