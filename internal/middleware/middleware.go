package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cradoe/timint/internal/config"
	"github.com/cradoe/timint/internal/context"
	"github.com/cradoe/timint/internal/errHandler"
	"github.com/cradoe/timint/internal/repository"
	"github.com/cradoe/timint/internal/response"

	"github.com/cradoe/gopass"
	"github.com/pascaldekloe/jwt"
	"github.com/tomasen/realip"
)

type Middleware struct {
	errHandler    *errHandler.ErrorHandler
	logger        *slog.Logger
	ApplicantRepo repository.ApplicantRepository
	config        *config.Config
}

func New(errHandler *errHandler.ErrorHandler, logger *slog.Logger, applicantRepo repository.ApplicantRepository, config *config.Config) *Middleware {
	return &Middleware{
		errHandler:    errHandler,
		logger:        logger,
		ApplicantRepo: applicantRepo,
		config:        config,
	}
}

func (mid *Middleware) RecoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			err := recover()
			if err != nil {
				mid.errHandler.ServerError(w, r, fmt.Errorf("%s", err))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

func (mid *Middleware) LogAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mw := response.NewMetricsResponseWriter(w)
		next.ServeHTTP(mw, r)

		var (
			ip     = realip.FromRequest(r)
			method = r.Method
			url    = r.URL.String()
			proto  = r.Proto
		)

		userAttrs := slog.Group("user", "ip", ip)
		requestAttrs := slog.Group("request", "method", method, "url", url, "proto", proto)
		responseAttrs := slog.Group("response", "status", mw.StatusCode, "size", mw.BytesCount)

		mid.logger.Info("access", userAttrs, requestAttrs, responseAttrs)
	})
}

func (mid *Middleware) Authenticate(next http.Handler) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Authorization")

		authorizationHeader := r.Header.Get("Authorization")

		if authorizationHeader != "" {
			headerParts := strings.Split(authorizationHeader, " ")

			if len(headerParts) == 2 && headerParts[0] == "Bearer" {
				token := headerParts[1]

				claims, err := jwt.HMACCheck([]byte(token), []byte(mid.config.Jwt.SecretKey))
				if err != nil {
					mid.errHandler.InvalidAuthenticationToken(w, r)
					return
				}

				if !claims.Valid(time.Now()) {
					mid.errHandler.InvalidAuthenticationToken(w, r)
					return
				}

				if claims.Issuer != mid.config.BaseURL {
					mid.errHandler.InvalidAuthenticationToken(w, r)
					return
				}

				if !claims.AcceptAudience(mid.config.BaseURL) {
					mid.errHandler.InvalidAuthenticationToken(w, r)
					return
				}

				applicantID := claims.Subject

				applicant, found, err := mid.ApplicantRepo.GetOne(applicantID)
				if err != nil {
					mid.errHandler.ServerError(w, r, err)
					return
				}

				if found {
					r = context.ContextSetAuthenticatedApplicant(r, applicant)
				}
			}
		}

		next.ServeHTTP(w, r)
	})
}

func (mid *Middleware) RequireAuthenticatedApplicant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authenticatedApplicant := context.ContextGetAuthenticatedApplicant(r)

		if authenticatedApplicant == nil {
			mid.errHandler.AuthenticationRequired(w, r)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequireAdminBasicAuth guards the review endpoints. Admin accounts are not
// rows in the database; there is a single reviewer identity configured via
// environment, the same way the SMTP credentials are.
func (mid *Middleware) RequireAdminBasicAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok {
			mid.errHandler.BasicAuthenticationRequired(w, r)
			return
		}

		if username != mid.config.Admin.Username {
			mid.errHandler.BasicAuthenticationRequired(w, r)
			return
		}

		matches, err := gopass.ComparePasswordAndHash(password, mid.config.Admin.HashedPassword)
		if err != nil || !matches {
			mid.errHandler.BasicAuthenticationRequired(w, r)
			return
		}

		next.ServeHTTP(w, r)
	})
}
