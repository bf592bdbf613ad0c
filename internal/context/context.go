package context

import (
	"context"
	"net/http"

	"github.com/cradoe/timint/internal/models"
)

type contextKey string

const (
	authenticatedApplicantContextKey = contextKey("authenticatedApplicant")
)

func ContextSetAuthenticatedApplicant(r *http.Request, applicant *models.Applicant) *http.Request {
	ctx := context.WithValue(r.Context(), authenticatedApplicantContextKey, applicant)
	return r.WithContext(ctx)
}

func ContextGetAuthenticatedApplicant(r *http.Request) *models.Applicant {
	applicant, ok := r.Context().Value(authenticatedApplicantContextKey).(*models.Applicant)
	if !ok {
		return nil
	}

	return applicant
}
