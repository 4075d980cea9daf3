package handlers

import (
	"errors"
	"net/http"

	"formforge/services"
	"formforge/storage"

	"github.com/gin-gonic/gin"
)

// respondError is the single place service errors become HTTP statuses.
func respondError(c *gin.Context, err error) {
	var validation *services.SubmissionValidationError
	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "Submission failed validation",
			"errors": validation.Result.Errors,
		})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Resource not found"})
	case errors.Is(err, services.ErrResponsePeriod):
		c.JSON(http.StatusForbidden, gin.H{"error": "Form is not accepting responses at this time"})
	case errors.Is(err, services.ErrUnsupportedQuestionType):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, storage.ErrFileRejected):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, storage.ErrFileNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
	case errors.Is(err, services.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
