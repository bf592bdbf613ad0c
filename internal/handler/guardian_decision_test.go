package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cradoe/timint/internal/lifecycle"
	"github.com/cradoe/timint/internal/models"
	"github.com/cradoe/timint/internal/repository"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockGuardianTokenRepo struct {
	mock.Mock
}

func (m *MockGuardianTokenRepo) Insert(token *models.GuardianToken) (string, error) {
	return "", nil
}

func (m *MockGuardianTokenRepo) GetByValue(value string) (*models.GuardianToken, bool, error) {
	args := m.Called(value)
	return args.Get(0).(*models.GuardianToken), args.Bool(1), args.Error(2)
}

func (m *MockGuardianTokenRepo) Consume(value string) error {
	return nil
}

func (m *MockGuardianTokenRepo) MarkEmailSent(id string) error {
	return nil
}

type MockGuardianApplicantRepo struct {
	mock.Mock
}

func (m *MockGuardianApplicantRepo) Insert(applicant *models.Applicant) (string, error) {
	return "", nil
}

func (m *MockGuardianApplicantRepo) GetOne(id string) (*models.Applicant, bool, error) {
	args := m.Called(id)
	return args.Get(0).(*models.Applicant), args.Bool(1), args.Error(2)
}

func (m *MockGuardianApplicantRepo) GetByEmail(email string) (*models.Applicant, bool, error) {
	return nil, false, nil
}

func (m *MockGuardianApplicantRepo) GetAllByStatus(status string) ([]models.Applicant, error) {
	return nil, nil
}

func (m *MockGuardianApplicantRepo) CheckIfEmailExist(email string) (bool, error) {
	return false, nil
}

func (m *MockGuardianApplicantRepo) TransitionStatus(id, from, to string) (bool, error) {
	args := m.Called(id, from, to)
	return args.Bool(0), args.Error(1)
}

func (m *MockGuardianApplicantRepo) Delete(id string) (bool, error) {
	args := m.Called(id)
	return args.Bool(0), args.Error(1)
}

type MockGuardianClaimRepo struct {
	mock.Mock
}

func (m *MockGuardianClaimRepo) Insert(claim *models.Claim) (string, error) {
	return "", nil
}

func (m *MockGuardianClaimRepo) GetOne(id string) (*models.Claim, bool, error) {
	return nil, false, nil
}

func (m *MockGuardianClaimRepo) GetByApplicant(applicantID string) (*models.Claim, bool, error) {
	args := m.Called(applicantID)
	return args.Get(0).(*models.Claim), args.Bool(1), args.Error(2)
}

func (m *MockGuardianClaimRepo) MarkRegistered(applicantID, externalRecordRef, ownershipToken string) error {
	return nil
}

// emptyDocumentRepo reports no stored document pair, the usual case at the
// guardian stage.
type emptyDocumentRepo struct{}

func (emptyDocumentRepo) Insert(doc *models.KycDocument) (string, error) {
	return "", nil
}

func (emptyDocumentRepo) GetByApplicant(applicantID string) (*models.KycDocument, bool, error) {
	return nil, false, nil
}

func (emptyDocumentRepo) DeleteByApplicant(applicantID string) error {
	return nil
}

func newGuardianHandler(tokenRepo *MockGuardianTokenRepo, applicantRepo *MockGuardianApplicantRepo, claimRepo *MockGuardianClaimRepo) *GuardianHandler {
	return NewGuardianHandler(&GuardianHandler{
		Lifecycle: lifecycle.New(&lifecycle.Lifecycle{
			ApplicantRepo: applicantRepo,
			ClaimRepo:     claimRepo,
			TokenRepo:     tokenRepo,
			DocumentRepo:  emptyDocumentRepo{},
		}),
		ErrHandler: newTestErrorHandler(),
	})
}

func postGuardianDecision(t *testing.T, guardianHandler *GuardianHandler, tokenValue, action string) *httptest.ResponseRecorder {
	t.Helper()

	requestBody, _ := json.Marshal(map[string]string{"action": action})

	req, err := http.NewRequest("POST", "/guardian/verify/"+tokenValue, bytes.NewBuffer(requestBody))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.SetPathValue("token", tokenValue)

	rr := httptest.NewRecorder()
	guardianHandler.HandleGuardianDecision(rr, req)
	return rr
}

func pendingGuardianApplicant() *models.Applicant {
	return &models.Applicant{
		ID:           "applicant-1",
		Name:         "Taylor Founder",
		GuardianName: "Jane Guardian",
		Status:       repository.ApplicantStatusPendingGuardian,
	}
}

func liveGuardianToken(value string) *models.GuardianToken {
	return &models.GuardianToken{
		ID:          "token-1",
		ApplicantID: "applicant-1",
		Token:       value,
		ExpiresAt:   time.Now().Add(time.Hour),
	}
}

func TestHandleGuardianDecision_InvalidAction(t *testing.T) {
	guardianHandler := newGuardianHandler(new(MockGuardianTokenRepo), new(MockGuardianApplicantRepo), new(MockGuardianClaimRepo))

	rr := postGuardianDecision(t, guardianHandler, "some-token", "maybe")

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	require.Contains(t, rr.Body.String(), "Action must be either approve or reject")
}

func TestHandleGuardianDecision_UnknownToken(t *testing.T) {
	mockTokenRepo := new(MockGuardianTokenRepo)
	mockTokenRepo.On("GetByValue", "no-such-token").Return((*models.GuardianToken)(nil), false, nil)

	guardianHandler := newGuardianHandler(mockTokenRepo, new(MockGuardianApplicantRepo), new(MockGuardianClaimRepo))

	rr := postGuardianDecision(t, guardianHandler, "no-such-token", "approve")

	require.Equal(t, http.StatusNotFound, rr.Code)

	mockTokenRepo.AssertExpectations(t)
}

func TestHandleGuardianDecision_ExpiredToken(t *testing.T) {
	expired := liveGuardianToken("expired-token")
	expired.ExpiresAt = time.Now().Add(-time.Minute)

	mockTokenRepo := new(MockGuardianTokenRepo)
	mockTokenRepo.On("GetByValue", "expired-token").Return(expired, true, nil)

	guardianHandler := newGuardianHandler(mockTokenRepo, new(MockGuardianApplicantRepo), new(MockGuardianClaimRepo))

	rr := postGuardianDecision(t, guardianHandler, "expired-token", "approve")

	require.Equal(t, http.StatusGone, rr.Code)
	require.Contains(t, rr.Body.String(), "expired")

	mockTokenRepo.AssertExpectations(t)
}

func TestHandleGuardianDecision_ConsumedToken(t *testing.T) {
	consumed := liveGuardianToken("consumed-token")
	consumed.Consumed = true

	mockTokenRepo := new(MockGuardianTokenRepo)
	mockTokenRepo.On("GetByValue", "consumed-token").Return(consumed, true, nil)

	guardianHandler := newGuardianHandler(mockTokenRepo, new(MockGuardianApplicantRepo), new(MockGuardianClaimRepo))

	rr := postGuardianDecision(t, guardianHandler, "consumed-token", "approve")

	require.Equal(t, http.StatusConflict, rr.Code)

	mockTokenRepo.AssertExpectations(t)
}

func TestHandleGuardianDecision_Approve(t *testing.T) {
	mockTokenRepo := new(MockGuardianTokenRepo)
	mockTokenRepo.On("GetByValue", "live-token").Return(liveGuardianToken("live-token"), true, nil)

	mockApplicantRepo := new(MockGuardianApplicantRepo)
	mockApplicantRepo.On("GetOne", "applicant-1").Return(pendingGuardianApplicant(), true, nil)
	mockApplicantRepo.On("TransitionStatus", "applicant-1",
		repository.ApplicantStatusPendingGuardian,
		repository.ApplicantStatusPendingDocuments,
	).Return(true, nil)

	mockClaimRepo := new(MockGuardianClaimRepo)
	mockClaimRepo.On("GetByApplicant", "applicant-1").Return(&models.Claim{
		ID:          "claim-1",
		ApplicantID: "applicant-1",
		CompanyName: "Acme Teens",
	}, true, nil)

	guardianHandler := newGuardianHandler(mockTokenRepo, mockApplicantRepo, mockClaimRepo)

	rr := postGuardianDecision(t, guardianHandler, "live-token", "approve")

	require.Equal(t, http.StatusOK, rr.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))

	data, ok := response["data"].(map[string]interface{})
	require.True(t, ok, "Expected response['data'] to be a map")
	require.Equal(t, "applicant-1", data["applicant_id"])
	require.Equal(t, repository.ApplicantStatusPendingDocuments, data["status"])

	mockTokenRepo.AssertExpectations(t)
	mockApplicantRepo.AssertExpectations(t)
	mockClaimRepo.AssertExpectations(t)
}

func TestHandleGuardianDecision_Reject(t *testing.T) {
	mockTokenRepo := new(MockGuardianTokenRepo)
	mockTokenRepo.On("GetByValue", "live-token").Return(liveGuardianToken("live-token"), true, nil)

	mockApplicantRepo := new(MockGuardianApplicantRepo)
	mockApplicantRepo.On("GetOne", "applicant-1").Return(pendingGuardianApplicant(), true, nil)
	mockApplicantRepo.On("Delete", "applicant-1").Return(true, nil)

	mockClaimRepo := new(MockGuardianClaimRepo)
	mockClaimRepo.On("GetByApplicant", "applicant-1").Return(&models.Claim{
		ID:          "claim-1",
		ApplicantID: "applicant-1",
		CompanyName: "Acme Teens",
	}, true, nil)

	guardianHandler := newGuardianHandler(mockTokenRepo, mockApplicantRepo, mockClaimRepo)

	rr := postGuardianDecision(t, guardianHandler, "live-token", "reject")

	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "rejected")

	mockTokenRepo.AssertExpectations(t)
	mockApplicantRepo.AssertExpectations(t)
	mockClaimRepo.AssertExpectations(t)
}
