package services

import (
	"testing"
	"time"

	"formforge/models"
)

func TestResetWipesAllSurveyData(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db)
	form := seedForm(t, db, user.ID)

	section := models.Section{FormID: form.ID, Title: "S", OrderIndex: 0}
	if err := db.Create(&section).Error; err != nil {
		t.Fatal(err)
	}
	question := models.Question{FormID: form.ID, Type: models.TypeShortText, Title: "Q", OrderIndex: 0}
	if err := db.Create(&question).Error; err != nil {
		t.Fatal(err)
	}
	response := models.Response{FormID: form.ID, SubmittedAt: time.Now()}
	if err := db.Create(&response).Error; err != nil {
		t.Fatal(err)
	}
	answer := models.Answer{ResponseID: response.ID, QuestionID: question.ID, Value: "x"}
	if err := db.Create(&answer).Error; err != nil {
		t.Fatal(err)
	}
	meta := models.FileMetadata{OriginalFilename: "a.txt", StoredFilename: "a_1_ff.txt", ResponseID: &response.ID, QuestionID: question.ID}
	if err := db.Create(&meta).Error; err != nil {
		t.Fatal(err)
	}

	svc := NewAdminService(db, setupTestStore(t))
	if err := svc.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	tables := map[string]any{
		"forms":         &models.Form{},
		"sections":      &models.Section{},
		"questions":     &models.Question{},
		"responses":     &models.Response{},
		"answers":       &models.Answer{},
		"file_metadata": &models.FileMetadata{},
	}
	for name, model := range tables {
		var count int64
		if err := db.Unscoped().Model(model).Count(&count).Error; err != nil {
			t.Fatalf("count %s: %v", name, err)
		}
		if count != 0 {
			t.Errorf("%s rows after reset = %d, want 0", name, count)
		}
	}

	// Users survive the reset.
	var users int64
	if err := db.Model(&models.User{}).Count(&users).Error; err != nil {
		t.Fatal(err)
	}
	if users != 1 {
		t.Errorf("users after reset = %d, want 1", users)
	}
}
