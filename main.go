package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"hortti/internal/config"
	"hortti/internal/handlers"
	"hortti/internal/middleware"
	"hortti/internal/models"
	"hortti/internal/repositories"
	"hortti/internal/services"
	"hortti/internal/storage"
	"hortti/pkg/events"
)

func main() {
	cfg := config.Load()

	// --- Database ---
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Product{}); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// --- Object store ---
	store, err := storage.NewS3Storage(cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to initialize object storage: %v", err)
	}
	bootstrapCtx, cancelBootstrap := context.WithTimeout(context.Background(), 30*time.Second)
	if err := store.Bootstrap(bootstrapCtx); err != nil {
		cancelBootstrap()
		log.Fatalf("Failed to prepare storage bucket: %v", err)
	}
	cancelBootstrap()

	// --- Event publisher (optional) ---
	var publisher services.EventPublisher
	if cfg.RabbitMQURL != "" {
		p, err := events.NewPublisher(events.Config{URL: cfg.RabbitMQURL})
		if err != nil {
			log.Printf("Warning: catalog events disabled: %v", err)
		} else {
			defer p.Close()
			publisher = p

			// --- Start catalog event consumer ---
			go func() {
				log.Println("Starting catalog event consumer...")
				if err := p.ConsumeProductEvents(events.LogProductEvent); err != nil {
					log.Printf("Failed to start catalog event consumer: %v", err)
				}
			}()
		}
	}

	app := buildApp(db, store, publisher, cfg)

	// --- Start HTTP server ---
	log.Printf("Starting server on %s", cfg.AppPort)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(cfg.AppPort); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
	log.Println("Server gracefully stopped")
}

// buildApp wires repositories, services and handlers into a Fiber app.
// Split out of main so tests can assemble the same app on test doubles.
func buildApp(db *gorm.DB, store storage.ObjectStorage, publisher services.EventPublisher, cfg *config.Config) *fiber.App {
	// --- Repositories ---
	userRepo := repositories.NewGORMUserRepository(db)
	productRepo := repositories.NewGORMProductRepository(db)

	// --- Services ---
	authService := services.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTExpiresIn)
	userService := services.NewUserService(userRepo)
	productService := services.NewProductService(productRepo, store, publisher)

	// --- Handlers ---
	authHandler := handlers.NewAuthHandler(authService, userService)
	productHandler := handlers.NewProductHandler(productService)

	app := fiber.New()
	app.Use(logger.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	authRequired := middleware.AuthRequired(authService)
	authHandler.RegisterRoutes(app, authRequired)

	protected := app.Group("", authRequired)
	productHandler.RegisterRoutes(protected)

	return app
}
