package app

import (
	"net/http"

	"github.com/cradoe/timint/internal/handler"
	"github.com/cradoe/timint/internal/middleware"
)

func (app *Application) routes() http.Handler {
	mux := http.NewServeMux()

	middlewareRepo := middleware.New(app.errorHandler, app.Logger, app.DB.Applicant(), &app.Config)

	healthHandler := handler.NewHealthCheckHandler(app.errorHandler)

	applicantHandler := handler.NewApplicantHandler(&handler.ApplicantHandler{
		Lifecycle:     app.Lifecycle,
		ApplicantRepo: app.DB.Applicant(),
		TokenRepo:     app.DB.GuardianToken(),
		Mailer:        app.Mailer,
		Helper:        app.helper,
		ErrHandler:    app.errorHandler,
		Config:        &app.Config,
	})

	authHandler := handler.NewAuthHandler(&handler.AuthHandler{
		ApplicantRepo: app.DB.Applicant(),
		ErrHandler:    app.errorHandler,
		Config:        &app.Config,
	})

	guardianHandler := handler.NewGuardianHandler(&handler.GuardianHandler{
		Lifecycle:  app.Lifecycle,
		ErrHandler: app.errorHandler,
	})

	documentHandler := handler.NewDocumentHandler(&handler.DocumentHandler{
		Lifecycle:  app.Lifecycle,
		ErrHandler: app.errorHandler,
	})

	adminHandler := handler.NewAdminHandler(&handler.AdminHandler{
		Lifecycle:     app.Lifecycle,
		ApplicantRepo: app.DB.Applicant(),
		ClaimRepo:     app.DB.Claim(),
		DocumentRepo:  app.DB.KycDocument(),
		Blobs:         app.FileUploader,
		ErrHandler:    app.errorHandler,
	})

	badgeHandler := handler.NewBadgeHandler(&handler.BadgeHandler{
		Badge:      app.Badge,
		ClaimRepo:  app.DB.Claim(),
		Cache:      app.Cache,
		ErrHandler: app.errorHandler,
		Config:     &app.Config,
	})

	mux.HandleFunc("GET /health", healthHandler.HandleHealthCheck)

	mux.HandleFunc("POST /applicants", applicantHandler.HandleApplicantRegister)
	mux.HandleFunc("POST /auth/login", authHandler.HandleAuthLogin)

	mux.HandleFunc("GET /guardian/verify/{token}", guardianHandler.HandleGuardianResolve)
	mux.HandleFunc("POST /guardian/verify/{token}", guardianHandler.HandleGuardianDecision)

	mux.HandleFunc("POST /applicants/{id}/documents", documentHandler.HandleDocumentUpload)

	mux.Handle("GET /admin/kyc-review", middlewareRepo.RequireAdminBasicAuth(http.HandlerFunc(adminHandler.HandleKycReviewList)))
	mux.Handle("POST /admin/kyc-review", middlewareRepo.RequireAdminBasicAuth(http.HandlerFunc(adminHandler.HandleKycDecision)))

	mux.Handle("POST /badge/token", middlewareRepo.RequireAuthenticatedApplicant(http.HandlerFunc(badgeHandler.HandleBadgeGenerate)))
	mux.HandleFunc("POST /badge/verify", badgeHandler.HandleBadgeVerify)

	return middlewareRepo.LogAccess(middlewareRepo.RecoverPanic(middlewareRepo.Authenticate(mux)))
}
