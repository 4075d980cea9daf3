package handlers

import (
	"io"
	"net/http"
	"strconv"

	"formforge/services"

	"github.com/gin-gonic/gin"
)

type FileHandler struct {
	fileService *services.FileService
}

func NewFileHandler(fileService *services.FileService) *FileHandler {
	return &FileHandler{
		fileService: fileService,
	}
}

// UploadTemp stores a respondent upload ahead of submission. The question
// id arrives as a form field alongside the file.
func (h *FileHandler) UploadTemp(c *gin.Context) {
	questionID, err := strconv.ParseUint(c.PostForm("question_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid question ID"})
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing file field"})
		return
	}

	meta, err := h.fileService.UploadTemp(uint(questionID), header)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, meta)
}

func (h *FileHandler) Download(c *gin.Context) {
	storedName := c.Param("storedName")

	reader, meta, err := h.fileService.Open(storedName)
	if err != nil {
		respondError(c, err)
		return
	}
	defer reader.Close()

	contentType := meta.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Disposition", `attachment; filename="`+meta.OriginalFilename+`"`)
	c.Header("Content-Type", contentType)
	c.Status(http.StatusOK)
	io.Copy(c.Writer, reader)
}

func (h *FileHandler) DeleteTemp(c *gin.Context) {
	storedName := c.Param("storedName")

	if err := h.fileService.DeleteTemp(storedName); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *FileHandler) GetResponseFiles(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	responseID, err := strconv.ParseUint(c.Param("rid"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid response ID"})
		return
	}

	files, err := h.fileService.GetResponseFiles(uint(responseID), userID.(uint))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, files)
}
