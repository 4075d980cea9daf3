package routes

import (
	"net/http"
	"strconv"

	"formforge/config"
	"formforge/handlers"
	"formforge/middleware"
	"formforge/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

func SetupRoutes(
	router *gin.Engine,
	authHandler *handlers.AuthHandler,
	formHandler *handlers.FormHandler,
	questionHandler *handlers.QuestionHandler,
	sectionHandler *handlers.SectionHandler,
	responseHandler *handlers.ResponseHandler,
	fileHandler *handlers.FileHandler,
	adminHandler *handlers.AdminHandler,
	hub *services.Hub,
	authService *services.AuthService,
	formService *services.FormService,
	cfg *config.Config,
) {
	// API routes
	api := router.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
		}

		// Public respondent routes
		api.GET("/forms/:id/public", formHandler.GetPublicForm)
		api.POST("/forms/:id/responses", responseHandler.Submit)
		api.POST("/files", fileHandler.UploadTemp)
		api.GET("/files/:storedName", fileHandler.Download)
		api.DELETE("/files/:storedName", fileHandler.DeleteTemp)
		api.GET("/forms/:id/questions/:qid/attachment", questionHandler.DownloadAttachment)

		// Protected routes
		protected := api.Group("/")
		protected.Use(middleware.AuthMiddleware(cfg.JWTSecret))
		{
			protected.GET("/auth/profile", authHandler.GetProfile)

			// Form routes
			forms := protected.Group("/forms")
			{
				forms.GET("", formHandler.GetUserForms)
				forms.POST("", formHandler.CreateForm)
				forms.GET("/:id", formHandler.GetForm)
				forms.PUT("/:id", formHandler.UpdateForm)
				forms.DELETE("/:id", formHandler.DeleteForm)

				// Question routes
				forms.POST("/:id/questions", questionHandler.CreateQuestion)
				forms.GET("/:id/questions", questionHandler.GetQuestions)
				forms.PUT("/:id/questions/reorder", questionHandler.Reorder)
				forms.PUT("/:id/questions/:qid", questionHandler.UpdateQuestion)
				forms.DELETE("/:id/questions/:qid", questionHandler.DeleteQuestion)
				forms.POST("/:id/questions/:qid/attachment", questionHandler.UploadAttachment)
				forms.DELETE("/:id/questions/:qid/attachment", questionHandler.DeleteAttachment)

				// Section routes
				forms.POST("/:id/sections", sectionHandler.CreateSection)
				forms.GET("/:id/sections", sectionHandler.GetSections)
				forms.PUT("/:id/sections/:sid", sectionHandler.UpdateSection)
				forms.DELETE("/:id/sections/:sid", sectionHandler.DeleteSection)

				// Response review routes
				forms.GET("/:id/responses", responseHandler.GetResponses)
				forms.GET("/:id/responses/:rid", responseHandler.GetResponse)
			}

			protected.GET("/responses/:rid/files", fileHandler.GetResponseFiles)

			if cfg.EnableDevReset {
				protected.DELETE("/admin/reset", adminHandler.Reset)
			}
		}
	}

	// WebSocket endpoint for live response monitoring by the form owner
	router.GET("/ws/forms/:id", func(c *gin.Context) {
		formID, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid form ID"})
			return
		}

		userID, err := authService.ParseToken(c.Query("token"))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		// Only the form owner may watch its response stream.
		if _, err := formService.GetForm(uint(formID), userID); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Form not found"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upgrade connection"})
			return
		}

		hub.RegisterClient(conn, uint(formID), userID)
	})

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
