package services

import (
	"errors"
	"log"

	"formforge/models"
	"formforge/storage"

	"gorm.io/gorm"
)

type AdminService struct {
	db    *gorm.DB
	store storage.FileStore
}

func NewAdminService(db *gorm.DB, store storage.FileStore) *AdminService {
	return &AdminService{
		db:    db,
		store: store,
	}
}

// Reset wipes all survey data in foreign-key-safe order. Development only;
// the route is registered only when the dev reset flag is set.
func (s *AdminService) Reset() error {
	var files []models.FileMetadata
	if err := s.db.Find(&files).Error; err == nil {
		for _, f := range files {
			if err := s.store.Delete(f.StoredFilename); err != nil && !errors.Is(err, storage.ErrFileNotFound) {
				log.Printf("Failed to remove file %s during reset: %v", f.StoredFilename, err)
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

	tables := []any{
		&models.FileMetadata{},
		&models.Answer{},
		&models.Response{},
		&models.Question{},
		&models.Section{},
		&models.Form{},
	}
	for _, table := range tables {
		err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped().Delete(table).Error
		if err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit().Error
}
