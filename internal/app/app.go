package app

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/cradoe/timint/internal/badge"
	"github.com/cradoe/timint/internal/cache"
	"github.com/cradoe/timint/internal/config"
	"github.com/cradoe/timint/internal/env"
	"github.com/cradoe/timint/internal/errHandler"
	"github.com/cradoe/timint/internal/file"
	"github.com/cradoe/timint/internal/helper"
	"github.com/cradoe/timint/internal/ledger"
	"github.com/cradoe/timint/internal/lifecycle"
	"github.com/cradoe/timint/internal/repository"
	"github.com/cradoe/timint/internal/smtp"
	"github.com/cradoe/timint/internal/stream"
	"github.com/joho/godotenv"
)

// Essential services and resources are exposed to the application
// this makes it possible for methods to have access to these items and when they need them
type Application struct {
	Config       config.Config
	DB           repository.Database
	Logger       *slog.Logger
	Mailer       *smtp.Mailer
	WG           sync.WaitGroup
	errorHandler *errHandler.ErrorHandler
	helper       *helper.HelperRepository
	Kafka        *stream.KafkaStream
	FileUploader *file.FileUploader
	Cache        *cache.Cache
	Badge        *badge.Badge
	Lifecycle    *lifecycle.Lifecycle
}

func NewApplication(logger *slog.Logger) (*Application, error) {
	if err := godotenv.Load(); err != nil {
		logger.Error("Error loading .env file", "error", err)
	}

	var cfg config.Config

	// config values are loaded from the .env file
	// Default values are provided for these items and these should  strictly be values for development mode only
	// make sure no production-level value is exposed as default value here
	cfg.BaseURL = env.GetString("BASE_URL", "http://localhost:4444")
	cfg.HttpPort = env.GetInt("HTTP_PORT", 4444)

	cfg.Db.Dsn = env.GetString("DB_DSN", "user:pass@localhost:5432/db")
	cfg.Db.Automigrate = env.GetBool("DB_AUTOMIGRATE", true)

	cfg.Jwt.SecretKey = env.GetString("JWT_SECRET_KEY", "ajf5nx3qmp6zquevllxocxqvyz42ypuo")
	cfg.Badge.SecretKey = env.GetString("BADGE_SECRET_KEY", "pei3einoh0Beem6uM6Ungohn2heiv5la")

	cfg.Admin.Username = env.GetString("ADMIN_USERNAME", "admin")
	cfg.Admin.HashedPassword = env.GetString("ADMIN_HASHED_PASSWORD", "")

	// server errors won't be sent via email if the NOTIFICATIONS_EMAIL wasn't set in the .env file
	cfg.Notifications.Email = env.GetString("NOTIFICATIONS_EMAIL", "")

	cfg.Smtp.Host = env.GetString("SMTP_HOST", "example.smtp.host")
	cfg.Smtp.Port = env.GetInt("SMTP_PORT", 25)
	cfg.Smtp.Username = env.GetString("SMTP_USERNAME", "example_username")
	cfg.Smtp.Password = env.GetString("SMTP_PASSWORD", "pa55word")
	cfg.Smtp.From = env.GetString("SMTP_FROM", "TiMint <no_reply@timint.example.org>")

	cfg.FileUploader.ApiKey = env.GetString("CLOUDINARY_API_KEY", "")
	cfg.FileUploader.CloudName = env.GetString("CLOUDINARY_CLOUD_NAME", "")
	cfg.FileUploader.ApiSecret = env.GetString("CLOUDINARY_API_SECRET", "")

	cfg.Ledger.Endpoint = env.GetString("PINATA_ENDPOINT", ledger.DefaultEndpoint)
	cfg.Ledger.Jwt = env.GetString("PINATA_JWT", "")
	cfg.Ledger.SigningKey = env.GetString("REGISTRATION_SIGNING_KEY", "xahTh2iegh1vaithuPhaiseeQuoh1aez")

	cfg.RedisServer = env.GetString("REDIS_SERVER", "localhost:6379")
	cfg.KafkaServers = env.GetString("KAFKA_SERVERS", "localhost:9092")

	db, err := repository.New(cfg.Db.Dsn, cfg.Db.Automigrate)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	mailer, err := smtp.NewMailer(cfg.Smtp.Host, cfg.Smtp.Port, cfg.Smtp.Username, cfg.Smtp.Password, cfg.Smtp.From)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize mailer: %w", err)
	}

	errorHandler := errHandler.New(cfg.BaseURL, cfg.Notifications.Email, mailer, logger)

	app := &Application{
		Config:       cfg,
		DB:           db,
		Logger:       logger,
		Mailer:       mailer,
		errorHandler: errorHandler,
	}

	app.helper = helper.New(&app.Config.BaseURL, &app.WG, errorHandler)

	app.Kafka = stream.New(cfg.KafkaServers)
	app.FileUploader = file.New(cfg.FileUploader.CloudName, cfg.FileUploader.ApiKey, cfg.FileUploader.ApiSecret)
	app.Cache = cache.New(cfg.RedisServer, 0)
	app.Badge = badge.New(cfg.Badge.SecretKey)

	app.Lifecycle = lifecycle.New(&lifecycle.Lifecycle{
		ApplicantRepo: db.Applicant(),
		ClaimRepo:     db.Claim(),
		TokenRepo:     db.GuardianToken(),
		DocumentRepo:  db.KycDocument(),
		AuditRepo:     db.Audit(),
		Blobs:         app.FileUploader,
		Ledger:        ledger.NewPinata(cfg.Ledger.Endpoint, cfg.Ledger.Jwt),
		Events:        stream.NewRegistrationEvents(app.Kafka),
		SigningKey:    cfg.Ledger.SigningKey,
	})

	return app, nil
}
