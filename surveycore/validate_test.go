package surveycore

import (
	"reflect"
	"testing"

	"formforge/models"
)

func sampleForm() *models.Form {
	sectionID := uint(10)
	return &models.Form{
		ID:    1,
		Title: "Feedback",
		Questions: []models.Question{
			{ID: 1, FormID: 1, Type: models.TypeShortText, Title: "Name", Required: true, OrderIndex: 0},
			{ID: 2, FormID: 1, Type: models.TypeCheckbox, Title: "Topics", OrderIndex: 1,
				Config: `{"options":["go","sql","http"],"max_selections":2}`},
			{ID: 3, FormID: 1, Type: models.TypeFileUpload, Title: "Resume", OrderIndex: 2,
				Config: `{"max_files":1,"max_file_size_bytes":1024}`},
		},
		Sections: []models.Section{
			{ID: sectionID, FormID: 1, Title: "Details", OrderIndex: 0, Questions: []models.Question{
				{ID: 4, FormID: 1, SectionID: &sectionID, Type: models.TypeLinearScale, Title: "Rating", Required: true, OrderIndex: 0,
					Config: `{"min_scale":1,"max_scale":5}`},
				{ID: 5, FormID: 1, SectionID: &sectionID, Type: models.TypeMultipleChoice, Title: "Referral", OrderIndex: 1,
					Config: `{"options":["friend","search","other"]}`},
			}},
		},
	}
}

func TestSupportedType(t *testing.T) {
	for _, typ := range []string{
		models.TypeShortText, models.TypeLongText, models.TypeMultipleChoice,
		models.TypeCheckbox, models.TypeDropdown, models.TypeLinearScale,
		models.TypeDate, models.TypeTime, models.TypeFileUpload,
	} {
		if !SupportedType(typ) {
			t.Errorf("SupportedType(%q) = false, want true", typ)
		}
	}
	if SupportedType("matrix") {
		t.Error("SupportedType(\"matrix\") = true, want false")
	}
	if SupportedType("") {
		t.Error("SupportedType(\"\") = true, want false")
	}
}

func TestAllQuestionsOrdering(t *testing.T) {
	form := sampleForm()
	// Scramble stored order to check the defensive re-sort.
	form.Questions[0], form.Questions[2] = form.Questions[2], form.Questions[0]
	form.Sections[0].Questions[0], form.Sections[0].Questions[1] =
		form.Sections[0].Questions[1], form.Sections[0].Questions[0]

	questions := AllQuestions(form)
	got := make([]uint, len(questions))
	for i, q := range questions {
		got[i] = q.ID
	}
	want := []uint{1, 2, 3, 4, 5}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("AllQuestions order = %v, want %v", got, want)
	}
}

func TestEmptyResponseSlots(t *testing.T) {
	form := sampleForm()
	values := EmptyResponse(form)

	if len(values) != 5 {
		t.Fatalf("EmptyResponse returned %d slots, want 5", len(values))
	}
	if v, ok := values[1].(string); !ok || v != "" {
		t.Errorf("short_text slot = %#v, want \"\"", values[1])
	}
	if v, ok := values[2].([]string); !ok || len(v) != 0 {
		t.Errorf("checkbox slot = %#v, want empty []string", values[2])
	}
	fa, ok := values[3].(FileAnswer)
	if !ok {
		t.Fatalf("file_upload slot = %#v, want FileAnswer", values[3])
	}
	if fa.Files == nil || len(fa.Files) != 0 {
		t.Errorf("FileAnswer.Files = %#v, want empty slice", fa.Files)
	}
	if fa.UploadedMetadata == nil || len(fa.UploadedMetadata) != 0 {
		t.Errorf("FileAnswer.UploadedMetadata = %#v, want empty slice", fa.UploadedMetadata)
	}
	if v, ok := values[4].(string); !ok || v != "" {
		t.Errorf("linear_scale slot = %#v, want \"\"", values[4])
	}
}

func TestValidateResponseRequired(t *testing.T) {
	form := sampleForm()
	values := EmptyResponse(form)

	result := ValidateResponse(form, values)
	if result.Valid {
		t.Fatal("empty response validated against required questions")
	}
	if _, ok := result.Errors[1]; !ok {
		t.Error("expected error for required short_text question 1")
	}
	if _, ok := result.Errors[4]; !ok {
		t.Error("expected error for required linear_scale question 4")
	}
	if _, ok := result.Errors[2]; ok {
		t.Error("unexpected error for optional checkbox question 2")
	}
}

func TestValidateResponseRules(t *testing.T) {
	form := sampleForm()

	tests := []struct {
		name       string
		values     map[uint]any
		questionID uint
		wantError  bool
	}{
		{"valid full response", map[uint]any{
			1: "Ada", 2: []string{"go"}, 4: "3", 5: "friend",
		}, 0, false},
		{"unknown checkbox option", map[uint]any{
			1: "Ada", 2: []string{"cobol"}, 4: "3",
		}, 2, true},
		{"too many selections", map[uint]any{
			1: "Ada", 2: []string{"go", "sql", "http"}, 4: "3",
		}, 2, true},
		{"scale out of range", map[uint]any{
			1: "Ada", 4: "9",
		}, 4, true},
		{"scale not a number", map[uint]any{
			1: "Ada", 4: "lots",
		}, 4, true},
		{"choice not in options", map[uint]any{
			1: "Ada", 4: "3", 5: "billboard",
		}, 5, true},
		{"file too large", map[uint]any{
			1: "Ada", 4: "3",
			3: FileAnswer{UploadedMetadata: []UploadedFile{{OriginalFilename: "cv.pdf", Size: 4096}}},
		}, 3, true},
		{"too many files", map[uint]any{
			1: "Ada", 4: "3",
			3: FileAnswer{UploadedMetadata: []UploadedFile{
				{OriginalFilename: "a.pdf", Size: 10},
				{OriginalFilename: "b.pdf", Size: 10},
			}},
		}, 3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateResponse(form, tt.values)
			if tt.wantError {
				if result.Valid {
					t.Fatal("response validated, want failure")
				}
				if _, ok := result.Errors[tt.questionID]; !ok {
					t.Errorf("no error recorded for question %d: %v", tt.questionID, result.Errors)
				}
			} else if !result.Valid {
				t.Fatalf("response rejected: %v", result.Errors)
			}
		})
	}
}

func TestValidateResponseDateTimeFormats(t *testing.T) {
	form := &models.Form{ID: 2, Questions: []models.Question{
		{ID: 7, Type: models.TypeDate, OrderIndex: 0},
		{ID: 8, Type: models.TypeTime, OrderIndex: 1},
	}}

	result := ValidateResponse(form, map[uint]any{7: "2026-02-30x", 8: "25:99"})
	if result.Valid {
		t.Fatal("malformed date/time validated")
	}
	if len(result.Errors[7]) == 0 || len(result.Errors[8]) == 0 {
		t.Errorf("expected format errors for both questions, got %v", result.Errors)
	}

	result = ValidateResponse(form, map[uint]any{7: "2026-02-28", 8: "09:30"})
	if !result.Valid {
		t.Fatalf("well-formed date/time rejected: %v", result.Errors)
	}
}

func TestValidateResponseIdempotent(t *testing.T) {
	form := sampleForm()
	values := map[uint]any{
		1: "", 2: []string{"go", "sql", "http"}, 4: "9",
	}

	first := ValidateResponse(form, values)
	second := ValidateResponse(form, values)

	if first.Valid != second.Valid {
		t.Errorf("validity differs between runs: %v vs %v", first.Valid, second.Valid)
	}
	if !reflect.DeepEqual(first.Errors, second.Errors) {
		t.Errorf("error structures differ between runs:\n%v\n%v", first.Errors, second.Errors)
	}
}

func TestParseConfigEmpty(t *testing.T) {
	cfg, err := ParseConfig("")
	if err != nil {
		t.Fatalf("ParseConfig(\"\") error: %v", err)
	}
	if len(cfg.Options) != 0 || cfg.MaxScale != 0 {
		t.Errorf("ParseConfig(\"\") = %#v, want zero config", cfg)
	}

	if _, err := ParseConfig("{broken"); err == nil {
		t.Error("ParseConfig accepted malformed JSON")
	}
}
