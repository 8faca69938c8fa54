package main

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"rainforest/backend/authz"
	"rainforest/backend/config"
	"rainforest/backend/middleware"
	"rainforest/backend/notify"
	"rainforest/backend/routes"
	"rainforest/backend/utils"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	// Initialize database
	db, err := utils.InitDB(cfg)
	if err != nil {
		log.Fatalf("Error initializing database: %v", err)
	}

	// Initialize logger
	logger := utils.InitLogger()

	// Notification fan-out and the due-date reminder sweep
	engine := authz.NewEngine(db)
	dispatcher := notify.NewDispatcher(db, engine, logger)
	reminder := notify.NewReminder(db, dispatcher, logger, cfg.DueSoonDays)
	if err := reminder.Start(cfg.ReminderCron); err != nil {
		log.Fatalf("Error starting reminder scheduler: %v", err)
	}
	defer reminder.Stop()

	// Create Fiber app
	app := fiber.New()

	// Middleware
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(middleware.LoggingMiddleware(logger))

	// Static serving of uploaded files
	app.Static("/uploads", cfg.UploadDir)

	// Setup routes
	routes.SetupRoutes(app, db, cfg, logger, dispatcher)

	// Start server
	log.Fatal(app.Listen(":" + cfg.ServerPort))
}
