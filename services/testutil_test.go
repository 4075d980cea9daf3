package services

import (
	"path/filepath"
	"testing"

	"formforge/models"
	"formforge/storage"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Form{},
		&models.Section{},
		&models.Question{},
		&models.Response{},
		&models.Answer{},
		&models.FileMetadata{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func setupTestStore(t *testing.T) *storage.DiskStore {
	t.Helper()

	store, err := storage.NewDiskStore(t.TempDir(), 1<<20)
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	return store
}

func seedUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()

	user := models.User{Email: "owner@example.com", Name: "Owner", PasswordHash: "x"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return &user
}

// orderIndices returns the order indices of the surviving questions in one
// sibling scope, sorted ascending.
func orderIndices(t *testing.T, db *gorm.DB, formID uint, sectionID *uint) []int {
	t.Helper()

	query := db.Model(&models.Question{}).Where("form_id = ?", formID)
	if sectionID == nil {
		query = query.Where("section_id IS NULL")
	} else {
		query = query.Where("section_id = ?", *sectionID)
	}

	var indices []int
	if err := query.Order("order_index").Pluck("order_index", &indices).Error; err != nil {
		t.Fatalf("failed to read order indices: %v", err)
	}
	return indices
}

func assertContiguous(t *testing.T, indices []int) {
	t.Helper()

	for i, idx := range indices {
		if idx != i {
			t.Fatalf("order indices not contiguous zero-based: %v", indices)
		}
	}
}
