package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/moodlog/emotion-journal/internal/analysis"
	"github.com/moodlog/emotion-journal/internal/api"
	"github.com/moodlog/emotion-journal/internal/archive"
	"github.com/moodlog/emotion-journal/internal/community"
	"github.com/moodlog/emotion-journal/internal/config"
	"github.com/moodlog/emotion-journal/internal/digest"
	"github.com/moodlog/emotion-journal/internal/inference"
	"github.com/moodlog/emotion-journal/internal/notifications"
	"github.com/moodlog/emotion-journal/internal/redact"
	"github.com/moodlog/emotion-journal/internal/scheduler"
	"github.com/moodlog/emotion-journal/internal/storage"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set up logging
	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.Info("Starting emotion journal")

	store, err := storage.NewSQLiteStorage(cfg.DatabasePath)
	if err != nil {
		logrus.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()

	redactor, err := newRedactor(cfg)
	if err != nil {
		logrus.Fatalf("Failed to load redaction terms: %v", err)
	}

	gateway := inference.NewGateway(inference.Config{
		BaseURL:  cfg.InferenceBaseURL,
		Primary:  inference.Backend{Name: "primary", Model: cfg.PrimaryModel, APIKey: cfg.PrimaryAPIKey},
		Fallback: inference.Backend{Name: "fallback", Model: cfg.FallbackModel, APIKey: cfg.FallbackAPIKey},
		Timeout:  cfg.InferenceTimeout,
		Referer:  cfg.AppReferer,
		Title:    cfg.AppTitle,
	})

	analysisService := analysis.NewService(gateway, store)
	communityService := community.NewService(store, redactor)

	digestArchive, err := newArchive(cfg)
	if err != nil {
		logrus.Fatalf("Failed to initialize digest archive: %v", err)
	}

	var notifier notifications.NotificationInterface
	if notificationService := notifications.NewService(cfg); notificationService.Enabled() {
		notifier = notificationService
	}

	digestService := digest.NewService(store, digestArchive, notifier)

	// Initialize scheduler
	schedulerService := scheduler.NewService(cfg, digestService)
	if err := schedulerService.Start(); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}
	defer schedulerService.Stop()

	apiServer := api.NewServer(analysisService, communityService, digestService)

	server := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Port),
		Handler:     apiServer.Router(cfg.CORSOrigins),
		ReadTimeout: 15 * time.Second,
		// An analysis may wait on both models in turn
		WriteTimeout: 2*cfg.InferenceTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start HTTP server in a goroutine
	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}

func newRedactor(cfg *config.Config) (*redact.Redactor, error) {
	if cfg.RedactionTermsFile == "" {
		return redact.New(redact.DefaultTerms), nil
	}

	terms, err := redact.LoadTerms(cfg.RedactionTermsFile)
	if err != nil {
		return nil, err
	}
	logrus.Infof("Loaded %d redaction terms from %s", len(terms), cfg.RedactionTermsFile)
	return redact.New(terms), nil
}

// newArchive prefers Azure Blob Storage, then a local directory. A nil
// archive disables digest archiving.
func newArchive(cfg *config.Config) (archive.ArchiveInterface, error) {
	switch {
	case cfg.StorageAccount != "":
		return archive.NewAzureArchive(cfg.StorageAccount, cfg.StorageContainer)
	case cfg.ArchiveDir != "":
		return archive.NewFileArchive(cfg.ArchiveDir)
	default:
		return nil, nil
	}
}
