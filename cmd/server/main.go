package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"picboard/docs"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"picboard/internal/auth"
	"picboard/internal/cache"
	"picboard/internal/config"
	"picboard/internal/db"
	"picboard/internal/handler"
	"picboard/internal/model"
	"picboard/internal/moderation"
	"picboard/internal/oauth"
	"picboard/internal/repository"
	"picboard/internal/router"
	"picboard/internal/service"
	"picboard/internal/session"
	"picboard/internal/storage"
)

// @title Picboard API
// @version 1.0
// @description Image gallery with local and external login, moderated uploads, and a partitioned community feed.
// @host localhost:8080
// @BasePath /
// @schemes http
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if cfg.SwaggerHost != "" {
		docs.SwaggerInfo.Host = cfg.SwaggerHost
	}

	e := echo.New()
	e.Use(middleware.RequestID())

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("database init: %v", err)
	}

	// Drop tables if RESET_DB environment variable is set
	if os.Getenv("RESET_DB") == "true" {
		log.Println("RESET_DB=true detected, dropping all tables...")
		tables := []interface{}{
			&model.Image{},
			&model.ExternalLogin{},
			&model.User{},
		}
		for _, table := range tables {
			if err := gormDB.Migrator().DropTable(table); err != nil {
				log.Printf("Warning: Failed to drop table (may not exist): %v", err)
			}
		}
		log.Println("Tables dropped")
	}

	// Run migrations for all models
	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.ExternalLogin{},
		&model.Image{},
	); err != nil {
		log.Fatalf("auto-migrate: %v", err)
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)

	blobStore, err := storage.NewMinioStore(storage.Options{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		Bucket:    cfg.MinioBucket,
		UseSSL:    cfg.MinioUseSSL,
	})
	if err != nil {
		log.Fatalf("object storage init: %v", err)
	}
	if err := blobStore.EnsureBucket(context.Background()); err != nil {
		log.Fatalf("ensure bucket: %v", err)
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(gormDB)
	imageRepo := repository.NewImageRepository(gormDB)

	// Initialize session components
	jwtService := auth.NewJWTService(cfg.SessionSecret)
	sessionStore := auth.NewSessionStore(cacheClient)
	sessions := auth.NewManager(jwtService, sessionStore)
	browser := session.NewStore(cacheClient)

	// Initialize external collaborators
	providers := oauth.NewRegistry(oauth.Options{
		CallbackURL:        cfg.BaseURL + "/account/external/callback",
		GoogleClientID:     cfg.GoogleClientID,
		GoogleClientSecret: cfg.GoogleClientSecret,
		GitHubClientID:     cfg.GitHubClientID,
		GitHubClientSecret: cfg.GitHubClientSecret,
	})
	moderationClient := moderation.NewClient(cfg.ModerationBaseURL)

	// Initialize services
	accountService := service.NewAccountService(userRepo, cfg.LockoutWindow)
	imageService := service.NewImageService(imageRepo, moderationClient, blobStore)

	// Initialize handlers
	accountHandler := handler.NewAccountHandler(accountService, sessions, browser, providers)
	imageHandler := handler.NewImageHandler(imageService)

	// Register routes
	router.Register(e, sessions, browser, accountHandler, imageHandler)

	addr := ":" + cfg.ServerPort
	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server start: %v", err)
	}
}
