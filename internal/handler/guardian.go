package handler

import (
	"net/http"
	"time"

	"github.com/cradoe/timint/internal/errHandler"
	"github.com/cradoe/timint/internal/lifecycle"
	"github.com/cradoe/timint/internal/request"
	"github.com/cradoe/timint/internal/response"
	"github.com/cradoe/timint/internal/validator"
)

const (
	guardianActionApprove = "approve"
	guardianActionReject  = "reject"
)

type GuardianHandler struct {
	Lifecycle  *lifecycle.Lifecycle
	ErrHandler *errHandler.ErrorHandler
}

func NewGuardianHandler(handler *GuardianHandler) *GuardianHandler {
	return &GuardianHandler{
		Lifecycle:  handler.Lifecycle,
		ErrHandler: handler.ErrHandler,
	}
}

type GuardianResolveResponseData struct {
	ApplicantID  string `json:"applicant_id"`
	Name         string `json:"name"`
	Age          int    `json:"age"`
	GuardianName string `json:"guardian_name"`
	Status       string `json:"status"`
	CompanyName  string `json:"company_name"`
	Description  string `json:"description"`
	AppliedAt    string `json:"applied_at"`
}

// The guardian follows the emailed link before deciding; this shows them who
// is asking and for what. Looking the token up changes nothing.
func (h *GuardianHandler) HandleGuardianResolve(w http.ResponseWriter, r *http.Request) {
	tokenValue := r.PathValue("token")

	applicant, claim, err := h.Lifecycle.ResolveGuardianToken(tokenValue)
	if err != nil {
		handleLifecycleError(h.ErrHandler, w, r, err)
		return
	}

	data := &GuardianResolveResponseData{
		ApplicantID:  applicant.ID,
		Name:         applicant.Name,
		Age:          applicant.Age,
		GuardianName: applicant.GuardianName,
		Status:       applicant.Status,
		CompanyName:  claim.CompanyName,
		Description:  claim.Description.String,
		AppliedAt:    applicant.CreatedAt.Format(time.RFC3339),
	}

	message := "Data retrieved successfully"

	err = response.JSONOkResponse(w, data, message, nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

func (h *GuardianHandler) HandleGuardianDecision(w http.ResponseWriter, r *http.Request) {
	tokenValue := r.PathValue("token")

	var input struct {
		Action    string              `json:"action"`
		Validator validator.Validator `json:"-"`
	}

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.ErrHandler.BadRequest(w, r, err)
		return
	}

	input.Validator.Check(validator.NotBlank(input.Action), "Action is required")
	input.Validator.Check(input.Action == guardianActionApprove || input.Action == guardianActionReject, "Action must be either approve or reject")

	if input.Validator.HasErrors() {
		h.ErrHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	if input.Action == guardianActionReject {
		err := h.Lifecycle.GuardianReject(tokenValue)
		if err != nil {
			handleLifecycleError(h.ErrHandler, w, r, err)
			return
		}

		message := "Registration rejected and removed"

		err = response.JSONOkResponse(w, nil, message, nil)
		if err != nil {
			h.ErrHandler.ServerError(w, r, err)
		}
		return
	}

	applicant, err := h.Lifecycle.GuardianApprove(tokenValue)
	if err != nil {
		handleLifecycleError(h.ErrHandler, w, r, err)
		return
	}

	data := map[string]string{
		"applicant_id": applicant.ID,
		"status":       applicant.Status,
	}

	message := "Registration approved. The applicant can now submit their documents."

	err = response.JSONOkResponse(w, data, message, nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}
