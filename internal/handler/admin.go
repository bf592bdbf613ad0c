package handler

import (
	"log"
	"net/http"
	"time"

	"github.com/cradoe/timint/internal/errHandler"
	"github.com/cradoe/timint/internal/lifecycle"
	"github.com/cradoe/timint/internal/repository"
	"github.com/cradoe/timint/internal/request"
	"github.com/cradoe/timint/internal/response"
	"github.com/cradoe/timint/internal/validator"
)

const (
	adminActionApprove = "approve"
	adminActionReject  = "reject"
)

// signedURLTTLSeconds is how long review-screen document links stay usable.
const signedURLTTLSeconds = 3600

type AdminHandler struct {
	Lifecycle     *lifecycle.Lifecycle
	ApplicantRepo repository.ApplicantRepository
	ClaimRepo     repository.ClaimRepository
	DocumentRepo  repository.KycDocumentRepository
	Blobs         lifecycle.BlobStore
	ErrHandler    *errHandler.ErrorHandler
}

func NewAdminHandler(handler *AdminHandler) *AdminHandler {
	return &AdminHandler{
		Lifecycle:     handler.Lifecycle,
		ApplicantRepo: handler.ApplicantRepo,
		ClaimRepo:     handler.ClaimRepo,
		DocumentRepo:  handler.DocumentRepo,
		Blobs:         handler.Blobs,
		ErrHandler:    handler.ErrHandler,
	}
}

type KycReviewResponseData struct {
	ApplicantID   string `json:"applicant_id"`
	Name          string `json:"name"`
	Age           int    `json:"age"`
	Email         string `json:"email"`
	GuardianName  string `json:"guardian_name"`
	GuardianEmail string `json:"guardian_email"`
	CompanyName   string `json:"company_name"`
	Description   string `json:"description"`
	SelfieURL     string `json:"selfie_url"`
	DocumentURL   string `json:"document_url"`
	SubmittedAt   string `json:"submitted_at"`
}

// HandleKycReviewList shows everything waiting on an admin decision,
// with short-lived signed links to the stored document images.
func (h *AdminHandler) HandleKycReviewList(w http.ResponseWriter, r *http.Request) {
	applicants, err := h.ApplicantRepo.GetAllByStatus(repository.ApplicantStatusUnderReview)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	if len(applicants) == 0 {
		message := "No applications awaiting review"
		err = response.JSONOkResponse(w, []KycReviewResponseData{}, message, nil)
		if err != nil {
			h.ErrHandler.ServerError(w, r, err)
		}
		return
	}

	data := make([]*KycReviewResponseData, 0, len(applicants))
	for i := range applicants {
		applicant := &applicants[i]

		item := &KycReviewResponseData{
			ApplicantID:   applicant.ID,
			Name:          applicant.Name,
			Age:           applicant.Age,
			Email:         applicant.Email,
			GuardianName:  applicant.GuardianName,
			GuardianEmail: applicant.GuardianEmail,
		}

		claim, found, err := h.ClaimRepo.GetByApplicant(applicant.ID)
		if err != nil {
			h.ErrHandler.ServerError(w, r, err)
			return
		}
		if found {
			item.CompanyName = claim.CompanyName
			item.Description = claim.Description.String
		}

		doc, found, err := h.DocumentRepo.GetByApplicant(applicant.ID)
		if err != nil {
			h.ErrHandler.ServerError(w, r, err)
			return
		}
		if found {
			item.SubmittedAt = doc.CreatedAt.Format(time.RFC3339)

			selfieURL, err := h.Blobs.SignedURL(doc.SelfieRef, signedURLTTLSeconds)
			if err != nil {
				log.Printf("Error signing selfie URL for %s: %v", applicant.ID, err)
			} else {
				item.SelfieURL = selfieURL
			}

			documentURL, err := h.Blobs.SignedURL(doc.DocumentRef, signedURLTTLSeconds)
			if err != nil {
				log.Printf("Error signing document URL for %s: %v", applicant.ID, err)
			} else {
				item.DocumentURL = documentURL
			}
		}

		data = append(data, item)
	}

	message := "Data retrieved successfully"

	err = response.JSONOkResponse(w, data, message, nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

func (h *AdminHandler) HandleKycDecision(w http.ResponseWriter, r *http.Request) {
	var input struct {
		ApplicantID string              `json:"applicant_id"`
		Action      string              `json:"action"`
		Validator   validator.Validator `json:"-"`
	}

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.ErrHandler.BadRequest(w, r, err)
		return
	}

	input.Validator.Check(validator.NotBlank(input.ApplicantID), "Applicant id is required")
	input.Validator.Check(validator.NotBlank(input.Action), "Action is required")
	input.Validator.Check(input.Action == adminActionApprove || input.Action == adminActionReject, "Action must be either approve or reject")

	if input.Validator.HasErrors() {
		h.ErrHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	if input.Action == adminActionReject {
		err := h.Lifecycle.AdminReject(input.ApplicantID)
		if err != nil {
			handleLifecycleError(h.ErrHandler, w, r, err)
			return
		}

		message := "Application rejected"

		err = response.JSONOkResponse(w, nil, message, nil)
		if err != nil {
			h.ErrHandler.ServerError(w, r, err)
		}
		return
	}

	result, err := h.Lifecycle.AdminApprove(r.Context(), input.ApplicantID)
	if err != nil {
		handleLifecycleError(h.ErrHandler, w, r, err)
		return
	}

	data := map[string]string{
		"ownership_token":     result.OwnershipToken,
		"external_record_ref": result.ExternalRecordRef,
		"registration_id":     result.RegistrationID,
	}

	message := "Application approved and claim registered"

	err = response.JSONOkResponse(w, data, message, nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}
