package main

import (
	"log"

	"formforge/config"
	"formforge/handlers"
	"formforge/middleware"
	"formforge/models"
	"formforge/routes"
	"formforge/services"
	"formforge/storage"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate database models
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
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize Redis
	redisClient := config.InitRedis(cfg)

	// Initialize file store
	store, err := storage.NewDiskStore(cfg.UploadsDir, cfg.MaxUploadBytes)
	if err != nil {
		log.Fatal("Failed to initialize file store:", err)
	}

	// Initialize WebSocket hub
	hub := services.NewHub()
	go hub.Run()

	// Initialize services
	authService := services.NewAuthService(db, cfg.JWTSecret, cfg.TokenTTL)
	formService := services.NewFormService(db, redisClient, store)
	questionService := services.NewQuestionService(db, redisClient, store)
	sectionService := services.NewSectionService(db, redisClient, store)
	responseService := services.NewResponseService(db, hub)
	fileService := services.NewFileService(db, store)
	adminService := services.NewAdminService(db, store)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	formHandler := handlers.NewFormHandler(formService)
	questionHandler := handlers.NewQuestionHandler(questionService)
	sectionHandler := handlers.NewSectionHandler(sectionService)
	responseHandler := handlers.NewResponseHandler(responseService)
	fileHandler := handlers.NewFileHandler(fileService)
	adminHandler := handlers.NewAdminHandler(adminService)

	// Setup Gin router
	router := gin.Default()

	// Add CORS middleware
	router.Use(middleware.CORS())

	// Setup routes
	routes.SetupRoutes(router, authHandler, formHandler, questionHandler,
		sectionHandler, responseHandler, fileHandler, adminHandler,
		hub, authService, formService, cfg)

	// Start server
	log.Printf("Server starting on %s", cfg.ListenAddr())
	if err := router.Run(cfg.ListenAddr()); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
