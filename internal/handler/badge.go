package handler

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/cradoe/timint/internal/badge"
	"github.com/cradoe/timint/internal/cache"
	"github.com/cradoe/timint/internal/config"
	"github.com/cradoe/timint/internal/context"
	"github.com/cradoe/timint/internal/errHandler"
	"github.com/cradoe/timint/internal/repository"
	"github.com/cradoe/timint/internal/request"
	"github.com/cradoe/timint/internal/response"
	"github.com/cradoe/timint/internal/validator"
)

// registeredClaimCacheTTL bounds how stale a badge verification can be after
// a claim changes underneath it.
const registeredClaimCacheTTL = 10 * time.Minute

type BadgeHandler struct {
	Badge      *badge.Badge
	ClaimRepo  repository.ClaimRepository
	Cache      *cache.Cache
	ErrHandler *errHandler.ErrorHandler
	Config     *config.Config
}

func NewBadgeHandler(handler *BadgeHandler) *BadgeHandler {
	return &BadgeHandler{
		Badge:      handler.Badge,
		ClaimRepo:  handler.ClaimRepo,
		Cache:      handler.Cache,
		ErrHandler: handler.ErrHandler,
		Config:     handler.Config,
	}
}

// HandleBadgeGenerate issues a domain-locked badge token for the
// authenticated applicant's registered claim.
func (h *BadgeHandler) HandleBadgeGenerate(w http.ResponseWriter, r *http.Request) {
	applicant := context.ContextGetAuthenticatedApplicant(r)

	var input struct {
		Domain    string              `json:"domain"`
		Validator validator.Validator `json:"-"`
	}

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.ErrHandler.BadRequest(w, r, err)
		return
	}

	input.Validator.Check(validator.NotBlank(input.Domain), "Domain is required")
	input.Validator.Check(validator.Matches(input.Domain, validator.RgxDomain), "Must be a valid domain name, without scheme or path")

	if input.Validator.HasErrors() {
		h.ErrHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	claim, found, err := h.ClaimRepo.GetByApplicant(applicant.ID)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}
	if !found {
		h.ErrHandler.NotFound(w, r)
		return
	}

	if !claim.Registered {
		h.ErrHandler.Conflict(w, r, "Claim is not registered yet; badges are only issued after approval")
		return
	}

	badgeToken, err := h.Badge.Generate(claim.ID, applicant.ID, input.Domain)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	data := map[string]string{
		"badge_token":   badgeToken,
		"expires_at":    time.Now().Add(badge.TokenTTL).Format(time.RFC3339),
		"embed_snippet": fmt.Sprintf(`<script src="%s/badge.js" data-timint-token="%s" async></script>`, h.Config.BaseURL, badgeToken),
	}

	message := "Badge token generated"

	err = response.JSONOkResponse(w, data, message, nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

type BadgeVerifyResponseData struct {
	Verified    bool   `json:"verified"`
	Reason      string `json:"reason,omitempty"`
	CompanyName string `json:"company_name,omitempty"`
	Domain      string `json:"domain,omitempty"`
}

// HandleBadgeVerify is what the embedded badge script calls from third-party
// sites. A failed check is a normal 200 with verified=false; only infra
// problems surface as errors.
func (h *BadgeHandler) HandleBadgeVerify(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Token     string              `json:"token"`
		Validator validator.Validator `json:"-"`
	}

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.ErrHandler.BadRequest(w, r, err)
		return
	}

	input.Validator.Check(validator.NotBlank(input.Token), "Token is required")

	if input.Validator.HasErrors() {
		h.ErrHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	payload, err := h.Badge.VerifyForReferer(input.Token, r.Header.Get("Referer"))
	if err != nil {
		switch {
		case errors.Is(err, badge.ErrInvalidToken),
			errors.Is(err, badge.ErrDomainMismatch),
			errors.Is(err, badge.ErrBadReferer):
			h.respondVerification(w, r, &BadgeVerifyResponseData{Verified: false, Reason: err.Error()})
		default:
			h.ErrHandler.ServerError(w, r, err)
		}
		return
	}

	companyName, found, err := h.registeredCompanyName(payload.ClaimID)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}
	if !found {
		h.respondVerification(w, r, &BadgeVerifyResponseData{Verified: false, Reason: "claim is not registered"})
		return
	}

	h.respondVerification(w, r, &BadgeVerifyResponseData{
		Verified:    true,
		CompanyName: companyName,
		Domain:      payload.Domain,
	})
}

// registeredCompanyName resolves a claim's name with a short cache in front
// of the database. Only registered claims are cached, so a hit is proof of
// registration.
func (h *BadgeHandler) registeredCompanyName(claimID string) (string, bool, error) {
	cacheKey := "badge:claim:" + claimID

	if h.Cache != nil {
		cached, found, err := h.Cache.Get(cacheKey)
		if err == nil && found {
			return cached, true, nil
		}
	}

	claim, found, err := h.ClaimRepo.GetOne(claimID)
	if err != nil {
		return "", false, err
	}
	if !found || !claim.Registered {
		return "", false, nil
	}

	if h.Cache != nil {
		// cache failures never fail a verification
		if err := h.Cache.Set(cacheKey, claim.CompanyName, registeredClaimCacheTTL); err != nil {
			log.Printf("Error caching registered claim %s: %v", claimID, err)
		}
	}

	return claim.CompanyName, true, nil
}

func (h *BadgeHandler) respondVerification(w http.ResponseWriter, r *http.Request, data *BadgeVerifyResponseData) {
	message := "Badge verification completed"

	err := response.JSONOkResponse(w, data, message, nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}
