package services

import (
	"errors"
	"fmt"

	"formforge/surveycore"
)

var (
	ErrNotFound                = errors.New("resource not found")
	ErrResponsePeriod          = errors.New("form is not accepting responses at this time")
	ErrUnsupportedQuestionType = errors.New("unsupported question type")
)

// SubmissionValidationError carries the per-question failures of a rejected
// submission so the handler can return them in the error body.
type SubmissionValidationError struct {
	Result surveycore.Result
}

func (e *SubmissionValidationError) Error() string {
	return fmt.Sprintf("submission failed validation for %d questions", len(e.Result.Errors))
}
