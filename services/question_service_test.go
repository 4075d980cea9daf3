package services

import (
	"errors"
	"testing"

	"formforge/models"

	"gorm.io/gorm"
)

func seedForm(t *testing.T, db *gorm.DB, userID uint) *models.Form {
	t.Helper()
	form := models.Form{UserID: userID, Title: "Test Form"}
	if err := db.Create(&form).Error; err != nil {
		t.Fatalf("seed form: %v", err)
	}
	return &form
}

func TestCreateQuestionAppendsPerScope(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db)
	form := seedForm(t, db, user.ID)
	svc := NewQuestionService(db, nil, setupTestStore(t))

	section := models.Section{FormID: form.ID, Title: "S", OrderIndex: 0}
	if err := db.Create(&section).Error; err != nil {
		t.Fatalf("seed section: %v", err)
	}

	for i := 0; i < 3; i++ {
		q, err := svc.CreateQuestion(form.ID, user.ID, &CreateQuestionRequest{
			Type: models.TypeShortText, Title: "Root",
		})
		if err != nil {
			t.Fatalf("CreateQuestion root %d: %v", i, err)
		}
		if q.OrderIndex != i {
			t.Errorf("root question %d got order index %d", i, q.OrderIndex)
		}
	}

	// Section scope counts independently of the root scope.
	for i := 0; i < 2; i++ {
		q, err := svc.CreateQuestion(form.ID, user.ID, &CreateQuestionRequest{
			SectionID: &section.ID, Type: models.TypeShortText, Title: "Nested",
		})
		if err != nil {
			t.Fatalf("CreateQuestion nested %d: %v", i, err)
		}
		if q.OrderIndex != i {
			t.Errorf("nested question %d got order index %d", i, q.OrderIndex)
		}
	}
}

func TestDeleteQuestionClosesGap(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db)
	form := seedForm(t, db, user.ID)
	svc := NewQuestionService(db, nil, setupTestStore(t))

	var ids []uint
	for i := 0; i < 2; i++ {
		q, err := svc.CreateQuestion(form.ID, user.ID, &CreateQuestionRequest{
			Type: models.TypeShortText, Title: "Q",
		})
		if err != nil {
			t.Fatalf("CreateQuestion: %v", err)
		}
		ids = append(ids, q.ID)
	}

	// Deleting the first of (0, 1) must leave the survivor at index 0.
	if err := svc.DeleteQuestion(form.ID, ids[0], user.ID); err != nil {
		t.Fatalf("DeleteQuestion: %v", err)
	}

	var survivor models.Question
	if err := db.First(&survivor, ids[1]).Error; err != nil {
		t.Fatalf("load survivor: %v", err)
	}
	if survivor.OrderIndex != 0 {
		t.Errorf("survivor order index = %d, want 0", survivor.OrderIndex)
	}
}

func TestOrderContiguityUnderChurn(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db)
	form := seedForm(t, db, user.ID)
	svc := NewQuestionService(db, nil, setupTestStore(t))

	var ids []uint
	create := func() {
		q, err := svc.CreateQuestion(form.ID, user.ID, &CreateQuestionRequest{
			Type: models.TypeShortText, Title: "Q",
		})
		if err != nil {
			t.Fatalf("CreateQuestion: %v", err)
		}
		ids = append(ids, q.ID)
	}
	remove := func(pos int) {
		if err := svc.DeleteQuestion(form.ID, ids[pos], user.ID); err != nil {
			t.Fatalf("DeleteQuestion: %v", err)
		}
		ids = append(ids[:pos], ids[pos+1:]...)
	}

	create()
	create()
	create()
	remove(1)
	create()
	remove(0)
	remove(1)
	create()

	assertContiguous(t, orderIndices(t, db, form.ID, nil))
}

func TestDeleteQuestionScopedDecrement(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db)
	form := seedForm(t, db, user.ID)
	svc := NewQuestionService(db, nil, setupTestStore(t))

	section := models.Section{FormID: form.ID, Title: "S", OrderIndex: 0}
	if err := db.Create(&section).Error; err != nil {
		t.Fatalf("seed section: %v", err)
	}

	var rootIDs []uint
	for i := 0; i < 2; i++ {
		q, _ := svc.CreateQuestion(form.ID, user.ID, &CreateQuestionRequest{Type: models.TypeShortText, Title: "R"})
		rootIDs = append(rootIDs, q.ID)
	}
	for i := 0; i < 2; i++ {
		if _, err := svc.CreateQuestion(form.ID, user.ID, &CreateQuestionRequest{
			SectionID: &section.ID, Type: models.TypeShortText, Title: "N",
		}); err != nil {
			t.Fatalf("CreateQuestion nested: %v", err)
		}
	}

	// Removing a root question must not disturb the section scope.
	if err := svc.DeleteQuestion(form.ID, rootIDs[0], user.ID); err != nil {
		t.Fatalf("DeleteQuestion: %v", err)
	}

	assertContiguous(t, orderIndices(t, db, form.ID, nil))
	assertContiguous(t, orderIndices(t, db, form.ID, &section.ID))
	if got := len(orderIndices(t, db, form.ID, &section.ID)); got != 2 {
		t.Errorf("section questions = %d, want 2", got)
	}
}

func TestReorderMovesAcrossScopes(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db)
	form := seedForm(t, db, user.ID)
	svc := NewQuestionService(db, nil, setupTestStore(t))

	section := models.Section{FormID: form.ID, Title: "S", OrderIndex: 0}
	if err := db.Create(&section).Error; err != nil {
		t.Fatalf("seed section: %v", err)
	}

	var ids []uint
	for i := 0; i < 3; i++ {
		q, err := svc.CreateQuestion(form.ID, user.ID, &CreateQuestionRequest{Type: models.TypeShortText, Title: "Q"})
		if err != nil {
			t.Fatalf("CreateQuestion: %v", err)
		}
		ids = append(ids, q.ID)
	}

	err := svc.Reorder(form.ID, user.ID, &ReorderRequest{Items: []ReorderItem{
		{QuestionID: ids[0], OrderIndex: 1},
		{QuestionID: ids[1], OrderIndex: 0},
		{QuestionID: ids[2], OrderIndex: 0, SectionID: &section.ID},
	}})
	if err != nil {
		t.Fatalf("Reorder: %v", err)
	}

	var moved models.Question
	if err := db.First(&moved, ids[2]).Error; err != nil {
		t.Fatalf("load moved question: %v", err)
	}
	if moved.SectionID == nil || *moved.SectionID != section.ID {
		t.Errorf("question %d not re-parented: %+v", ids[2], moved)
	}
	if moved.OrderIndex != 0 {
		t.Errorf("moved question order index = %d, want 0", moved.OrderIndex)
	}

	root := orderIndices(t, db, form.ID, nil)
	assertContiguous(t, root)
	if len(root) != 2 {
		t.Errorf("root questions = %d, want 2", len(root))
	}
}

func TestReorderRejectsForeignQuestion(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db)
	form := seedForm(t, db, user.ID)
	otherForm := seedForm(t, db, user.ID)
	svc := NewQuestionService(db, nil, setupTestStore(t))

	foreign, err := svc.CreateQuestion(otherForm.ID, user.ID, &CreateQuestionRequest{
		Type: models.TypeShortText, Title: "Elsewhere",
	})
	if err != nil {
		t.Fatalf("CreateQuestion: %v", err)
	}

	err = svc.Reorder(form.ID, user.ID, &ReorderRequest{Items: []ReorderItem{
		{QuestionID: foreign.ID, OrderIndex: 0},
	}})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Reorder with foreign question = %v, want ErrNotFound", err)
	}
}

func TestCreateQuestionUnsupportedType(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db)
	form := seedForm(t, db, user.ID)
	svc := NewQuestionService(db, nil, setupTestStore(t))

	_, err := svc.CreateQuestion(form.ID, user.ID, &CreateQuestionRequest{Type: "matrix", Title: "Grid"})
	if !errors.Is(err, ErrUnsupportedQuestionType) {
		t.Errorf("err = %v, want ErrUnsupportedQuestionType", err)
	}
}
