package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cradoe/timint/internal/models"
	"github.com/cradoe/timint/internal/repository"
	"github.com/cradoe/timint/internal/token"
	"github.com/stretchr/testify/require"
)

// fakeStore is a mutex-guarded in-memory stand-in for the postgres
// repositories. TransitionStatus keeps the compare-and-set semantics, so the
// race tests below exercise the same single-winner guarantee.
type fakeStore struct {
	mu         sync.Mutex
	applicants map[string]*models.Applicant
	claims     map[string]*models.Claim
	tokens     map[string]*models.GuardianToken
	documents  map[string]*models.KycDocument
	audits     []models.AuditLog
	nextID     int

	failClaimInsert    bool
	failDocumentInsert bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		applicants: make(map[string]*models.Applicant),
		claims:     make(map[string]*models.Claim),
		tokens:     make(map[string]*models.GuardianToken),
		documents:  make(map[string]*models.KycDocument),
	}
}

func (s *fakeStore) id(prefix string) string {
	s.nextID++
	return fmt.Sprintf("%s-%d", prefix, s.nextID)
}

type fakeApplicantRepo struct{ store *fakeStore }

func (r *fakeApplicantRepo) Insert(applicant *models.Applicant) (string, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *applicant
	clone.ID = s.id("applicant")
	clone.Status = repository.ApplicantStatusPendingGuardian
	clone.CreatedAt = time.Now()
	s.applicants[clone.ID] = &clone

	return clone.ID, nil
}

func (r *fakeApplicantRepo) GetOne(id string) (*models.Applicant, bool, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	applicant, ok := s.applicants[id]
	if !ok {
		return nil, false, nil
	}

	clone := *applicant
	return &clone, true, nil
}

func (r *fakeApplicantRepo) GetByEmail(email string) (*models.Applicant, bool, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, applicant := range s.applicants {
		if applicant.Email == email {
			clone := *applicant
			return &clone, true, nil
		}
	}

	return nil, false, nil
}

func (r *fakeApplicantRepo) GetAllByStatus(status string) ([]models.Applicant, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Applicant
	for _, applicant := range s.applicants {
		if applicant.Status == status {
			out = append(out, *applicant)
		}
	}

	return out, nil
}

func (r *fakeApplicantRepo) CheckIfEmailExist(email string) (bool, error) {
	_, found, err := r.GetByEmail(email)
	return found, err
}

func (r *fakeApplicantRepo) TransitionStatus(id, from, to string) (bool, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	applicant, ok := s.applicants[id]
	if !ok || applicant.Status != from {
		return false, nil
	}

	applicant.Status = to
	if to == repository.ApplicantStatusVerified {
		applicant.VerifiedAt.Time = time.Now()
		applicant.VerifiedAt.Valid = true
	}

	return true, nil
}

func (r *fakeApplicantRepo) Delete(id string) (bool, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.applicants[id]; !ok {
		return false, nil
	}

	delete(s.applicants, id)

	// cascade like the schema does
	for claimID, claim := range s.claims {
		if claim.ApplicantID == id {
			delete(s.claims, claimID)
		}
	}
	for value, guardianToken := range s.tokens {
		if guardianToken.ApplicantID == id {
			delete(s.tokens, value)
		}
	}
	delete(s.documents, id)

	return true, nil
}

type fakeClaimRepo struct{ store *fakeStore }

func (r *fakeClaimRepo) Insert(claim *models.Claim) (string, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failClaimInsert {
		return "", fmt.Errorf("claim insert refused")
	}

	clone := *claim
	clone.ID = s.id("claim")
	clone.CreatedAt = time.Now()
	s.claims[clone.ID] = &clone

	return clone.ID, nil
}

func (r *fakeClaimRepo) GetOne(id string) (*models.Claim, bool, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	claim, ok := s.claims[id]
	if !ok {
		return nil, false, nil
	}

	clone := *claim
	return &clone, true, nil
}

func (r *fakeClaimRepo) GetByApplicant(applicantID string) (*models.Claim, bool, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, claim := range s.claims {
		if claim.ApplicantID == applicantID {
			clone := *claim
			return &clone, true, nil
		}
	}

	return nil, false, nil
}

func (r *fakeClaimRepo) MarkRegistered(applicantID, externalRecordRef, ownershipToken string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, claim := range s.claims {
		if claim.ApplicantID == applicantID {
			claim.Registered = true
			claim.ExternalRecordRef.String = externalRecordRef
			claim.ExternalRecordRef.Valid = true
			claim.OwnershipToken.String = ownershipToken
			claim.OwnershipToken.Valid = true
			return nil
		}
	}

	return fmt.Errorf("no claim for applicant %s", applicantID)
}

type fakeTokenRepo struct{ store *fakeStore }

func (r *fakeTokenRepo) Insert(guardianToken *models.GuardianToken) (string, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *guardianToken
	clone.ID = s.id("token")
	clone.IssuedAt = time.Now()
	s.tokens[clone.Token] = &clone

	return clone.ID, nil
}

func (r *fakeTokenRepo) GetByValue(value string) (*models.GuardianToken, bool, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	guardianToken, ok := s.tokens[value]
	if !ok {
		return nil, false, nil
	}

	clone := *guardianToken
	return &clone, true, nil
}

func (r *fakeTokenRepo) Consume(value string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if guardianToken, ok := s.tokens[value]; ok {
		guardianToken.Consumed = true
	}

	return nil
}

func (r *fakeTokenRepo) MarkEmailSent(id string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, guardianToken := range s.tokens {
		if guardianToken.ID == id {
			guardianToken.EmailSent = true
		}
	}

	return nil
}

type fakeDocumentRepo struct{ store *fakeStore }

func (r *fakeDocumentRepo) Insert(doc *models.KycDocument) (string, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failDocumentInsert {
		return "", fmt.Errorf("document insert refused")
	}

	clone := *doc
	clone.ID = s.id("document")
	clone.CreatedAt = time.Now()
	s.documents[clone.ApplicantID] = &clone

	return clone.ID, nil
}

func (r *fakeDocumentRepo) GetByApplicant(applicantID string) (*models.KycDocument, bool, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[applicantID]
	if !ok {
		return nil, false, nil
	}

	clone := *doc
	return &clone, true, nil
}

func (r *fakeDocumentRepo) DeleteByApplicant(applicantID string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.documents, applicantID)
	return nil
}

type fakeAuditRepo struct{ store *fakeStore }

func (r *fakeAuditRepo) Insert(log *models.AuditLog) (*models.AuditLog, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *log
	clone.ID = s.id("audit")
	clone.CreatedAt = time.Now()
	s.audits = append(s.audits, clone)

	return &clone, nil
}

func (r *fakeAuditRepo) GetAllByApplicant(applicantID string) ([]models.AuditLog, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.AuditLog
	for _, log := range s.audits {
		if log.ApplicantID == applicantID {
			out = append(out, log)
		}
	}

	return out, nil
}

// fakeBlobs records uploads and deletes. failUploadAt makes the n-th upload
// fail, counting from 1.
type fakeBlobs struct {
	mu           sync.Mutex
	uploads      int
	stored       map[string]bool
	deleted      []string
	failUploadAt int
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{stored: make(map[string]bool)}
}

func (b *fakeBlobs) Upload(fileName string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.uploads++
	if b.failUploadAt != 0 && b.uploads == b.failUploadAt {
		return "", fmt.Errorf("upload refused")
	}

	ref := fmt.Sprintf("blob-%d", b.uploads)
	b.stored[ref] = true
	return ref, nil
}

func (b *fakeBlobs) Delete(reference string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	// deleting an absent blob succeeds, like the real store
	delete(b.stored, reference)
	b.deleted = append(b.deleted, reference)
	return nil
}

func (b *fakeBlobs) SignedURL(reference string, ttlSeconds int) (string, error) {
	return "https://blobs.example.com/" + reference, nil
}

func (b *fakeBlobs) storedCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.stored)
}

// fakeLedger notes whether the applicant's document record still existed at
// submit time; the approval sequence promises it never does.
type fakeLedger struct {
	store *fakeStore

	mu                 sync.Mutex
	calls              int
	failNext           bool
	sawDocumentPresent bool
	lastRecord         *RegistrationRecord
}

func (l *fakeLedger) Submit(ctx context.Context, record *RegistrationRecord) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.calls++
	l.lastRecord = record

	l.store.mu.Lock()
	if _, ok := l.store.documents[record.ApplicantID]; ok {
		l.sawDocumentPresent = true
	}
	l.store.mu.Unlock()

	if l.failNext {
		l.failNext = false
		return "", fmt.Errorf("pinning service unavailable")
	}

	return fmt.Sprintf("QmPinnedRecord%d", l.calls), nil
}

type fakeEvents struct {
	mu     sync.Mutex
	events []*RegistrationEvent
}

func (e *fakeEvents) RegistrationCompleted(event *RegistrationEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.events = append(e.events, event)
	return nil
}

type fixture struct {
	lifecycle *Lifecycle
	store     *fakeStore
	blobs     *fakeBlobs
	ledger    *fakeLedger
	events    *fakeEvents
}

func newFixture() *fixture {
	store := newFakeStore()
	blobs := newFakeBlobs()
	ledger := &fakeLedger{store: store}
	events := &fakeEvents{}

	l := New(&Lifecycle{
		ApplicantRepo: &fakeApplicantRepo{store: store},
		ClaimRepo:     &fakeClaimRepo{store: store},
		TokenRepo:     &fakeTokenRepo{store: store},
		DocumentRepo:  &fakeDocumentRepo{store: store},
		AuditRepo:     &fakeAuditRepo{store: store},
		Blobs:         blobs,
		Ledger:        ledger,
		Events:        events,
		SigningKey:    "test_signing_key",
	})

	return &fixture{lifecycle: l, store: store, blobs: blobs, ledger: ledger, events: events}
}

func testSubmission() *Submission {
	return &Submission{
		Name:           "Taylor Founder",
		Age:            15,
		Email:          "taylor@example.com",
		HashedPassword: "hashed",
		PhoneNumber:    "+12345678901",
		Address:        "1 Example Street, Example City",
		GuardianName:   "Jane Guardian",
		GuardianEmail:  "jane@example.com",
		CompanyName:    "Acme Teens",
		Description:    "A startup",
	}
}

func (f *fixture) submit(t *testing.T) *SubmissionResult {
	t.Helper()

	result, err := f.lifecycle.Submit(testSubmission())
	require.NoError(t, err)
	return result
}

// submitUnderReview walks a fresh applicant all the way to under_review.
func (f *fixture) submitUnderReview(t *testing.T) *SubmissionResult {
	t.Helper()

	result := f.submit(t)

	_, err := f.lifecycle.GuardianApprove(result.GuardianToken)
	require.NoError(t, err)

	err = f.lifecycle.SubmitDocuments(result.ApplicantID, "selfie.jpg", "passport.png")
	require.NoError(t, err)

	return result
}

func (f *fixture) applicantStatus(t *testing.T, id string) string {
	t.Helper()

	applicant, found, err := f.lifecycle.ApplicantRepo.GetOne(id)
	require.NoError(t, err)
	require.True(t, found)
	return applicant.Status
}

func TestSubmit_AgeBounds(t *testing.T) {
	f := newFixture()

	for _, age := range []int{12, 18, 0, -1} {
		sub := testSubmission()
		sub.Age = age

		_, err := f.lifecycle.Submit(sub)
		require.ErrorIs(t, err, ErrInvalidAge, "age %d", age)
	}

	for _, age := range []int{13, 17} {
		sub := testSubmission()
		sub.Age = age
		sub.Email = fmt.Sprintf("age%d@example.com", age)

		_, err := f.lifecycle.Submit(sub)
		require.NoError(t, err, "age %d", age)
	}
}

func TestSubmit_CreatesApplicantClaimAndToken(t *testing.T) {
	f := newFixture()

	result := f.submit(t)

	require.Equal(t, repository.ApplicantStatusPendingGuardian, f.applicantStatus(t, result.ApplicantID))

	claim, found, err := f.lifecycle.ClaimRepo.GetByApplicant(result.ApplicantID)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "Acme Teens", claim.CompanyName)
	require.False(t, claim.Registered)

	// 32 random bytes, hex encoded
	require.Len(t, result.GuardianToken, 64)
	require.WithinDuration(t, time.Now().Add(GuardianTokenTTL), result.ExpiresAt, time.Minute)

	guardianToken, found, err := f.lifecycle.TokenRepo.GetByValue(result.GuardianToken)
	require.NoError(t, err)
	require.True(t, found)
	require.False(t, guardianToken.Consumed)
}

func TestSubmit_CompensatesOnClaimFailure(t *testing.T) {
	f := newFixture()
	f.store.failClaimInsert = true

	_, err := f.lifecycle.Submit(testSubmission())
	require.Error(t, err)

	// the applicant row must not survive the failed submission
	_, found, err := f.lifecycle.ApplicantRepo.GetByEmail("taylor@example.com")
	require.NoError(t, err)
	require.False(t, found)
}

func TestResolveGuardianToken(t *testing.T) {
	f := newFixture()
	result := f.submit(t)

	t.Run("unknown token", func(t *testing.T) {
		_, _, err := f.lifecycle.ResolveGuardianToken("no-such-token")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("valid token", func(t *testing.T) {
		applicant, claim, err := f.lifecycle.ResolveGuardianToken(result.GuardianToken)
		require.NoError(t, err)
		require.Equal(t, result.ApplicantID, applicant.ID)
		require.Equal(t, "Acme Teens", claim.CompanyName)
	})

	t.Run("expired token", func(t *testing.T) {
		f.store.mu.Lock()
		f.store.tokens[result.GuardianToken].ExpiresAt = time.Now().Add(-time.Minute)
		f.store.mu.Unlock()

		_, _, err := f.lifecycle.ResolveGuardianToken(result.GuardianToken)
		require.ErrorIs(t, err, ErrExpired)

		f.store.mu.Lock()
		f.store.tokens[result.GuardianToken].ExpiresAt = time.Now().Add(time.Hour)
		f.store.mu.Unlock()
	})

	t.Run("consumed token", func(t *testing.T) {
		require.NoError(t, f.lifecycle.TokenRepo.Consume(result.GuardianToken))

		_, _, err := f.lifecycle.ResolveGuardianToken(result.GuardianToken)
		require.ErrorIs(t, err, ErrAlreadyUsed)

		f.store.mu.Lock()
		f.store.tokens[result.GuardianToken].Consumed = false
		f.store.mu.Unlock()
	})

	t.Run("applicant deleted behind the token", func(t *testing.T) {
		f.store.mu.Lock()
		guardianToken := *f.store.tokens[result.GuardianToken]
		guardianToken.ApplicantID = "applicant-gone"
		guardianToken.Token = "orphaned-token"
		f.store.tokens["orphaned-token"] = &guardianToken
		f.store.mu.Unlock()

		_, _, err := f.lifecycle.ResolveGuardianToken("orphaned-token")
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestGuardianApprove_Idempotent(t *testing.T) {
	f := newFixture()
	result := f.submit(t)

	applicant, err := f.lifecycle.GuardianApprove(result.GuardianToken)
	require.NoError(t, err)
	require.Equal(t, repository.ApplicantStatusPendingDocuments, applicant.Status)

	// the token is deliberately left usable for the document-upload window
	guardianToken, found, err := f.lifecycle.TokenRepo.GetByValue(result.GuardianToken)
	require.NoError(t, err)
	require.True(t, found)
	require.False(t, guardianToken.Consumed)

	audits, err := f.lifecycle.AuditRepo.GetAllByApplicant(result.ApplicantID)
	require.NoError(t, err)
	require.Len(t, audits, 1)

	// approving again changes nothing and is not an error
	applicant, err = f.lifecycle.GuardianApprove(result.GuardianToken)
	require.NoError(t, err)
	require.Equal(t, repository.ApplicantStatusPendingDocuments, applicant.Status)

	audits, err = f.lifecycle.AuditRepo.GetAllByApplicant(result.ApplicantID)
	require.NoError(t, err)
	require.Len(t, audits, 1)
}

func TestGuardianApprove_TerminalState(t *testing.T) {
	f := newFixture()
	result := f.submitUnderReview(t)

	require.NoError(t, f.lifecycle.AdminReject(result.ApplicantID))

	_, err := f.lifecycle.GuardianApprove(result.GuardianToken)
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestGuardianReject_DeletesApplicant(t *testing.T) {
	f := newFixture()
	result := f.submit(t)

	require.NoError(t, f.lifecycle.GuardianReject(result.GuardianToken))

	_, found, err := f.lifecycle.ApplicantRepo.GetOne(result.ApplicantID)
	require.NoError(t, err)
	require.False(t, found)

	_, found, err = f.lifecycle.ClaimRepo.GetByApplicant(result.ApplicantID)
	require.NoError(t, err)
	require.False(t, found)

	// the cascade took the token with it, so a second reject has no target
	err = f.lifecycle.GuardianReject(result.GuardianToken)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGuardianReject_AfterUploadPurgesBlobs(t *testing.T) {
	f := newFixture()
	result := f.submitUnderReview(t)

	require.Equal(t, 2, f.blobs.storedCount())

	require.NoError(t, f.lifecycle.GuardianReject(result.GuardianToken))

	// no identity image may survive the rejection
	require.Equal(t, 0, f.blobs.storedCount())

	_, found, err := f.lifecycle.ApplicantRepo.GetOne(result.ApplicantID)
	require.NoError(t, err)
	require.False(t, found)
}

func TestGuardianReject_TerminalState(t *testing.T) {
	f := newFixture()
	result := f.submitUnderReview(t)

	_, err := f.lifecycle.AdminApprove(context.Background(), result.ApplicantID)
	require.NoError(t, err)

	// a replayed link cannot tear down a verified registration
	require.ErrorIs(t, f.lifecycle.GuardianReject(result.GuardianToken), ErrInvalidState)

	require.Equal(t, repository.ApplicantStatusVerified, f.applicantStatus(t, result.ApplicantID))

	claim, found, err := f.lifecycle.ClaimRepo.GetByApplicant(result.ApplicantID)
	require.NoError(t, err)
	require.True(t, found)
	require.True(t, claim.Registered)
}

func TestSubmitDocuments_RequiresGuardianApproval(t *testing.T) {
	f := newFixture()
	result := f.submit(t)

	err := f.lifecycle.SubmitDocuments(result.ApplicantID, "selfie.jpg", "passport.png")
	require.ErrorIs(t, err, ErrInvalidState)

	// nothing was uploaded for the refused submission
	require.Equal(t, 0, f.blobs.uploads)
}

func TestSubmitDocuments_UnknownApplicant(t *testing.T) {
	f := newFixture()

	err := f.lifecycle.SubmitDocuments("applicant-unknown", "selfie.jpg", "passport.png")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSubmitDocuments_MovesUnderReview(t *testing.T) {
	f := newFixture()
	result := f.submit(t)

	_, err := f.lifecycle.GuardianApprove(result.GuardianToken)
	require.NoError(t, err)

	err = f.lifecycle.SubmitDocuments(result.ApplicantID, "selfie.jpg", "passport.png")
	require.NoError(t, err)

	require.Equal(t, repository.ApplicantStatusUnderReview, f.applicantStatus(t, result.ApplicantID))

	doc, found, err := f.lifecycle.DocumentRepo.GetByApplicant(result.ApplicantID)
	require.NoError(t, err)
	require.True(t, found)
	require.NotEmpty(t, doc.SelfieRef)
	require.NotEmpty(t, doc.DocumentRef)

	// uploading again once review started is refused
	err = f.lifecycle.SubmitDocuments(result.ApplicantID, "selfie.jpg", "passport.png")
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestSubmitDocuments_CompensatesFailedSecondUpload(t *testing.T) {
	f := newFixture()
	result := f.submit(t)

	_, err := f.lifecycle.GuardianApprove(result.GuardianToken)
	require.NoError(t, err)

	f.blobs.failUploadAt = 2

	err = f.lifecycle.SubmitDocuments(result.ApplicantID, "selfie.jpg", "passport.png")
	require.Error(t, err)

	// the orphaned selfie was removed and no record was written
	require.Equal(t, 0, f.blobs.storedCount())

	_, found, err := f.lifecycle.DocumentRepo.GetByApplicant(result.ApplicantID)
	require.NoError(t, err)
	require.False(t, found)

	require.Equal(t, repository.ApplicantStatusPendingDocuments, f.applicantStatus(t, result.ApplicantID))
}

func TestSubmitDocuments_CompensatesFailedRecordInsert(t *testing.T) {
	f := newFixture()
	result := f.submit(t)

	_, err := f.lifecycle.GuardianApprove(result.GuardianToken)
	require.NoError(t, err)

	f.store.failDocumentInsert = true

	err = f.lifecycle.SubmitDocuments(result.ApplicantID, "selfie.jpg", "passport.png")
	require.Error(t, err)

	require.Equal(t, 0, f.blobs.storedCount())
	require.Equal(t, repository.ApplicantStatusPendingDocuments, f.applicantStatus(t, result.ApplicantID))
}

func TestAdminApprove_FullSequence(t *testing.T) {
	f := newFixture()
	result := f.submitUnderReview(t)

	approval, err := f.lifecycle.AdminApprove(context.Background(), result.ApplicantID)
	require.NoError(t, err)

	// documents were purged before the ledger ever saw the record
	require.False(t, f.ledger.sawDocumentPresent)
	require.Equal(t, 0, f.blobs.storedCount())

	_, found, err := f.lifecycle.DocumentRepo.GetByApplicant(result.ApplicantID)
	require.NoError(t, err)
	require.False(t, found)

	require.Equal(t, repository.ApplicantStatusVerified, f.applicantStatus(t, result.ApplicantID))

	claim, found, err := f.lifecycle.ClaimRepo.GetByApplicant(result.ApplicantID)
	require.NoError(t, err)
	require.True(t, found)
	require.True(t, claim.Registered)
	require.Equal(t, approval.ExternalRecordRef, claim.ExternalRecordRef.String)
	require.Equal(t, approval.OwnershipToken, claim.OwnershipToken.String)

	require.True(t, token.IsValidOwnershipToken(approval.OwnershipToken))
	require.Equal(t, "TMT-CLAIM-2", approval.RegistrationID)

	// the pinned record carries a verifiable signature
	record := f.ledger.lastRecord
	require.NotNil(t, record)
	require.True(t, token.VerifyRegistrationSignature("test_signing_key",
		record.CompanyName, record.ApplicantID, record.Guardian, record.Timestamp, record.Signature))

	// the completion event went out
	require.Len(t, f.events.events, 1)
	require.Equal(t, approval.OwnershipToken, f.events.events[0].OwnershipToken)
}

func TestAdminApprove_LedgerFailureIsRetryable(t *testing.T) {
	f := newFixture()
	result := f.submitUnderReview(t)

	f.ledger.failNext = true

	_, err := f.lifecycle.AdminApprove(context.Background(), result.ApplicantID)
	require.Error(t, err)

	// documents are gone for good, but the state stays retryable
	require.Equal(t, 0, f.blobs.storedCount())
	require.Equal(t, repository.ApplicantStatusUnderReview, f.applicantStatus(t, result.ApplicantID))
	require.Empty(t, f.events.events)

	approval, err := f.lifecycle.AdminApprove(context.Background(), result.ApplicantID)
	require.NoError(t, err)
	require.True(t, token.IsValidOwnershipToken(approval.OwnershipToken))
	require.Equal(t, repository.ApplicantStatusVerified, f.applicantStatus(t, result.ApplicantID))
}

func TestAdminApprove_RequiresUnderReview(t *testing.T) {
	f := newFixture()
	result := f.submit(t)

	_, err := f.lifecycle.AdminApprove(context.Background(), result.ApplicantID)
	require.ErrorIs(t, err, ErrInvalidState)

	_, err = f.lifecycle.AdminApprove(context.Background(), "applicant-unknown")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAdminApprove_SingleWinner(t *testing.T) {
	f := newFixture()
	result := f.submitUnderReview(t)

	var wg sync.WaitGroup
	errs := make([]error, 2)

	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.lifecycle.AdminApprove(context.Background(), result.ApplicantID)
		}(i)
	}
	wg.Wait()

	var wins, losses int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		default:
			losses++
		}
	}

	require.Equal(t, 1, wins)
	require.Equal(t, 1, losses)

	// exactly one registration event for the one winning approval
	require.Len(t, f.events.events, 1)
}

func TestAdminReject_KeepsRows(t *testing.T) {
	f := newFixture()
	result := f.submitUnderReview(t)

	require.NoError(t, f.lifecycle.AdminReject(result.ApplicantID))

	require.Equal(t, repository.ApplicantStatusRejected, f.applicantStatus(t, result.ApplicantID))
	require.Equal(t, 0, f.blobs.storedCount())

	_, found, err := f.lifecycle.DocumentRepo.GetByApplicant(result.ApplicantID)
	require.NoError(t, err)
	require.False(t, found)

	// unlike a guardian rejection, applicant and claim survive
	_, found, err = f.lifecycle.ClaimRepo.GetByApplicant(result.ApplicantID)
	require.NoError(t, err)
	require.True(t, found)

	// a rejected application cannot be decided again
	require.ErrorIs(t, f.lifecycle.AdminReject(result.ApplicantID), ErrInvalidState)

	_, err = f.lifecycle.AdminApprove(context.Background(), result.ApplicantID)
	require.ErrorIs(t, err, ErrInvalidState)
}
