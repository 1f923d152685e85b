package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"catalog/internal/handlers"
	"catalog/internal/models"
	"catalog/internal/repositories"
	"catalog/internal/services"
	"catalog/pkg/blobstore"
	"catalog/pkg/rabbitmq"
)

// Config holds the process configuration, loaded from environment
// variables. RabbitMQURL is optional; when empty, purchase events are
// not published.
type Config struct {
	AppPort       string `validate:"required"`
	DatabaseDSN   string `validate:"required"`
	UploadDir     string `validate:"required"`
	UploadBaseURL string `validate:"required,url"`
	RabbitMQURL   string
}

// loadConfig reads the configuration via Viper and validates it.
// Secrets (database credentials, broker credentials) are supplied
// through the environment only, never hardcoded.
func loadConfig() (*Config, error) {
	viper.SetDefault("APP_PORT", ":8080")
	viper.SetDefault("DATABASE_DSN", "host=localhost user=postgres password=postgres dbname=catalog port=5432 sslmode=disable")
	viper.SetDefault("UPLOAD_DIR", "./uploads")
	viper.SetDefault("UPLOAD_BASE_URL", "http://localhost:8080/uploads")
	viper.AutomaticEnv() // Load environment variables

	cfg := &Config{
		AppPort:       viper.GetString("APP_PORT"),
		DatabaseDSN:   viper.GetString("DATABASE_DSN"),
		UploadDir:     viper.GetString("UPLOAD_DIR"),
		UploadBaseURL: viper.GetString("UPLOAD_BASE_URL"),
		RabbitMQURL:   viper.GetString("RABBITMQ_URL"),
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	// --- Configuration ---
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// --- Initialize Database ---
	// The connection is established once here and shared by all request
	// handlers through the repository.
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := db.AutoMigrate(&models.Product{}); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// --- Initialize Blob Store ---
	blobs, err := blobstore.NewDiskStore(cfg.UploadDir, cfg.UploadBaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize blob store: %v", err)
	}

	// --- Initialize RabbitMQ Client (optional) ---
	var mqClient *rabbitmq.Client
	if cfg.RabbitMQURL != "" {
		mqClient, err = rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL})
		if err != nil {
			log.Fatalf("Failed to initialize RabbitMQ client: %v", err)
		}
		defer mqClient.Close()
	} else {
		log.Println("RABBITMQ_URL not set; purchase events will not be published")
	}

	// --- Initialize Repositories ---
	productRepo := repositories.NewGORMProductRepository(db)

	// --- Initialize Services ---
	productService := services.NewProductService(productRepo, mqClient)

	// --- Initialize Handlers ---
	productHandler := handlers.NewProductHandler(productService, blobs)

	// --- Initialize Fiber App ---
	app := fiber.New()

	// --- Middleware ---
	app.Use(logger.New()) // Request logger

	// Serve stored images so their locator URLs resolve.
	app.Static("/uploads", cfg.UploadDir)

	// --- API Routes ---
	productHandler.RegisterRoutes(app)

	// --- Health Check Endpoint ---
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// --- Start HTTP Server ---
	log.Printf("Starting server on port %s", cfg.AppPort)

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(cfg.AppPort); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Printf("Error during Fiber shutdown: %v", err)
	}

	log.Println("Server gracefully stopped")
}
