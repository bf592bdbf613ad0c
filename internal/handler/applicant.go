package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/cradoe/timint/internal/config"
	"github.com/cradoe/timint/internal/errHandler"
	"github.com/cradoe/timint/internal/helper"
	"github.com/cradoe/timint/internal/lifecycle"
	"github.com/cradoe/timint/internal/repository"
	"github.com/cradoe/timint/internal/request"
	"github.com/cradoe/timint/internal/response"
	"github.com/cradoe/timint/internal/smtp"
	"github.com/cradoe/timint/internal/validator"

	"github.com/cradoe/gopass"
)

type ApplicantHandler struct {
	Lifecycle     *lifecycle.Lifecycle
	ApplicantRepo repository.ApplicantRepository
	TokenRepo     repository.GuardianTokenRepository
	Mailer        smtp.MailerInterface
	Helper        *helper.HelperRepository
	ErrHandler    *errHandler.ErrorHandler
	Config        *config.Config
}

func NewApplicantHandler(handler *ApplicantHandler) *ApplicantHandler {
	return &ApplicantHandler{
		Lifecycle:     handler.Lifecycle,
		ApplicantRepo: handler.ApplicantRepo,
		TokenRepo:     handler.TokenRepo,
		Mailer:        handler.Mailer,
		Helper:        handler.Helper,
		ErrHandler:    handler.ErrHandler,
		Config:        handler.Config,
	}
}

// Registration creates the applicant, its startup-name claim and the guardian
// verification token, then emails the guardian their link in the background.
// The applicant starts out pending_guardian and can do nothing else until the
// guardian approves.
func (h *ApplicantHandler) HandleApplicantRegister(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name          string              `json:"name"`
		Age           int                 `json:"age"`
		Email         string              `json:"email"`
		Password      string              `json:"password"`
		PhoneNumber   string              `json:"phone_number"`
		Address       string              `json:"address"`
		GuardianName  string              `json:"guardian_name"`
		GuardianEmail string              `json:"guardian_email"`
		CompanyName   string              `json:"company_name"`
		Description   string              `json:"description"`
		Validator     validator.Validator `json:"-"`
	}

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.ErrHandler.BadRequest(w, r, err)
		return
	}

	// we need to validate the password to make sure it meets the minimum requirements
	// the Validate function returns a slice of errors if the password does not meet the requirements
	_, errs := gopass.Validate(input.Password)

	if errs != nil {
		h.ErrHandler.FailedValidation(w, r, errs)
		return
	}

	found, err := h.ApplicantRepo.CheckIfEmailExist(input.Email)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	input.Validator.Check(validator.NotBlank(input.Name), "Name is required")
	input.Validator.Check(validator.Between(len(input.Name), 2, 100), "Name must be between 2 and 100 characters")

	input.Validator.Check(input.Age >= 13 && input.Age <= 17, "Founder must be between 13 and 17 years old")

	input.Validator.Check(validator.NotBlank(input.Email), "Email is required")
	input.Validator.Check(validator.IsEmail(input.Email), "Must be a valid email address")

	// we want to make sure no two applicants share an email
	input.Validator.Check(!found, "Email is already in use")

	input.Validator.Check(validator.NotBlank(input.PhoneNumber), "Phone number is required")
	input.Validator.Check(validator.Matches(input.PhoneNumber, validator.RgxPhoneNumber), "Phone number must be in international format")

	input.Validator.Check(validator.NotBlank(input.Address), "Address is required")
	input.Validator.Check(validator.Between(len(input.Address), 10, 500), "Address must be between 10 and 500 characters")

	input.Validator.Check(validator.NotBlank(input.GuardianName), "Guardian name is required")
	input.Validator.Check(validator.Between(len(input.GuardianName), 2, 100), "Guardian name must be between 2 and 100 characters")

	input.Validator.Check(validator.NotBlank(input.GuardianEmail), "Guardian email is required")
	input.Validator.Check(validator.IsEmail(input.GuardianEmail), "Guardian email must be a valid email address")

	input.Validator.Check(validator.NotBlank(input.CompanyName), "Startup name is required")
	input.Validator.Check(validator.Between(len(input.CompanyName), 2, 100), "Startup name must be between 2 and 100 characters")

	input.Validator.Check(len(input.Description) <= 1000, "Description must not be more than 1000 characters")

	if input.Validator.HasErrors() {
		h.ErrHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	hashedPassword, err := gopass.Hash(input.Password)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	result, err := h.Lifecycle.Submit(&lifecycle.Submission{
		Name:           input.Name,
		Age:            input.Age,
		Email:          input.Email,
		HashedPassword: hashedPassword,
		PhoneNumber:    input.PhoneNumber,
		Address:        input.Address,
		GuardianName:   input.GuardianName,
		GuardianEmail:  input.GuardianEmail,
		CompanyName:    input.CompanyName,
		Description:    input.Description,
	})
	if err != nil {
		if errors.Is(err, lifecycle.ErrInvalidAge) {
			h.ErrHandler.FailedValidation(w, r, []string{"Founder must be between 13 and 17 years old"})
			return
		}
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	guardianEmail := input.GuardianEmail
	verificationURL := h.Config.BaseURL + "/guardian/verify/" + result.GuardianToken

	h.Helper.BackgroundTask(r, func() error {
		emailData := h.Helper.NewEmailData()
		emailData["GuardianName"] = input.GuardianName
		emailData["TeenName"] = input.Name
		emailData["TeenAge"] = input.Age
		emailData["StartupName"] = input.CompanyName
		emailData["VerificationURL"] = verificationURL

		err := h.Mailer.Send(guardianEmail, emailData, "guardian-verification.tmpl")
		if err != nil {
			log.Printf("Error sending guardian verification email: %v", err)
			return err
		}

		// flagged so support can tell "never sent" from "sent and ignored"
		err = h.TokenRepo.MarkEmailSent(result.TokenID)
		if err != nil {
			log.Printf("Error marking guardian email as sent: %v", err)
			return err
		}

		return nil
	})

	data := map[string]string{
		"applicant_id": result.ApplicantID,
		"claim_id":     result.ClaimID,
	}

	message := "Registration received. We have emailed your guardian a verification link."

	err = response.JSONCreatedResponse(w, data, message)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}
