// Package lifecycle owns the guardian-verification and KYC state of an
// applicant and its claim. Every status change in the system goes through
// one of the operations here; HTTP handlers only validate input and map
// errors.
//
// The applicant status is a single enum:
//
//	pending_guardian -> pending_documents -> under_review -> verified
//	                                                      -> rejected
//
// with guardian-stage rejection deleting the applicant outright instead of
// parking it in a status.
package lifecycle

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"time"

	"github.com/cradoe/timint/internal/models"
	"github.com/cradoe/timint/internal/repository"
	"github.com/cradoe/timint/internal/token"
)

// GuardianTokenTTL is how long the guardian's emailed link stays valid.
const GuardianTokenTTL = 24 * time.Hour

const (
	AuditGuardianApprovedDescription   = "Guardian approved the registration"
	AuditGuardianRejectedDescription   = "Guardian rejected the registration; applicant removed"
	AuditDocumentsSubmittedDescription = "KYC documents submitted; review pending"
	AuditKycApprovedDescription        = "KYC approved; claim registered"
	AuditKycRejectedDescription        = "KYC rejected; documents purged"
)

type Lifecycle struct {
	ApplicantRepo repository.ApplicantRepository
	ClaimRepo     repository.ClaimRepository
	TokenRepo     repository.GuardianTokenRepository
	DocumentRepo  repository.KycDocumentRepository
	AuditRepo     repository.AuditRepository

	Blobs  BlobStore
	Ledger Ledger
	Events Events

	SigningKey string
}

func New(l *Lifecycle) *Lifecycle {
	return &Lifecycle{
		ApplicantRepo: l.ApplicantRepo,
		ClaimRepo:     l.ClaimRepo,
		TokenRepo:     l.TokenRepo,
		DocumentRepo:  l.DocumentRepo,
		AuditRepo:     l.AuditRepo,
		Blobs:         l.Blobs,
		Ledger:        l.Ledger,
		Events:        l.Events,
		SigningKey:    l.SigningKey,
	}
}

type Submission struct {
	Name           string
	Age            int
	Email          string
	HashedPassword string
	PhoneNumber    string
	Address        string
	GuardianName   string
	GuardianEmail  string
	CompanyName    string
	Description    string
}

type SubmissionResult struct {
	ApplicantID   string
	ClaimID       string
	TokenID       string
	GuardianToken string
	ExpiresAt     time.Time
}

// Submit creates the applicant, its claim and the guardian token. The data
// store gives us no multi-table transaction, so a failed later step deletes
// what the earlier steps created before the error is surfaced; the caller
// never observes a half-created registration.
func (l *Lifecycle) Submit(sub *Submission) (*SubmissionResult, error) {
	if sub.Age < 13 || sub.Age > 17 {
		return nil, ErrInvalidAge
	}

	applicant := &models.Applicant{
		Name:           sub.Name,
		Age:            sub.Age,
		Email:          sub.Email,
		HashedPassword: sub.HashedPassword,
		PhoneNumber:    sub.PhoneNumber,
		Address:        sub.Address,
		GuardianName:   sub.GuardianName,
		GuardianEmail:  sub.GuardianEmail,
	}

	applicantID, err := l.ApplicantRepo.Insert(applicant)
	if err != nil {
		return nil, fmt.Errorf("insert applicant: %w", err)
	}

	claim := &models.Claim{
		ApplicantID: applicantID,
		CompanyName: sub.CompanyName,
	}
	if sub.Description != "" {
		claim.Description.String = sub.Description
		claim.Description.Valid = true
	}

	claimID, err := l.ClaimRepo.Insert(claim)
	if err != nil {
		l.compensateSubmission(applicantID)
		return nil, fmt.Errorf("insert claim: %w", err)
	}

	value, err := randomTokenValue()
	if err != nil {
		l.compensateSubmission(applicantID)
		return nil, err
	}

	guardianToken := &models.GuardianToken{
		ApplicantID: applicantID,
		Token:       value,
		ExpiresAt:   time.Now().Add(GuardianTokenTTL),
	}

	tokenID, err := l.TokenRepo.Insert(guardianToken)
	if err != nil {
		l.compensateSubmission(applicantID)
		return nil, fmt.Errorf("insert guardian token: %w", err)
	}

	return &SubmissionResult{
		ApplicantID:   applicantID,
		ClaimID:       claimID,
		TokenID:       tokenID,
		GuardianToken: value,
		ExpiresAt:     guardianToken.ExpiresAt,
	}, nil
}

// compensateSubmission deletes a partially-created registration. Claims and
// tokens cascade with the applicant row.
func (l *Lifecycle) compensateSubmission(applicantID string) {
	if _, err := l.ApplicantRepo.Delete(applicantID); err != nil {
		log.Printf("Error rolling back applicant %s after failed submission: %v", applicantID, err)
	}
}

// ResolveGuardianToken looks up a guardian link. It is a pure read: no flag
// is touched, whatever the outcome.
func (l *Lifecycle) ResolveGuardianToken(value string) (*models.Applicant, *models.Claim, error) {
	guardianToken, found, err := l.TokenRepo.GetByValue(value)
	if err != nil {
		return nil, nil, err
	}
	if !found {
		return nil, nil, ErrNotFound
	}

	if !time.Now().Before(guardianToken.ExpiresAt) {
		return nil, nil, ErrExpired
	}

	if guardianToken.Consumed {
		return nil, nil, ErrAlreadyUsed
	}

	applicant, found, err := l.ApplicantRepo.GetOne(guardianToken.ApplicantID)
	if err != nil {
		return nil, nil, err
	}
	if !found {
		// The applicant behind the token was deleted (guardian rejection);
		// the token is as good as nonexistent.
		return nil, nil, ErrNotFound
	}

	claim, found, err := l.ClaimRepo.GetByApplicant(applicant.ID)
	if err != nil {
		return nil, nil, err
	}
	if !found {
		return nil, nil, ErrNotFound
	}

	return applicant, claim, nil
}

// GuardianApprove records the guardian's consent. The token is deliberately
// left unconsumed so the same link carries the guardian through document
// upload within its 24h window. Repeating the approval is a harmless no-op.
func (l *Lifecycle) GuardianApprove(value string) (*models.Applicant, error) {
	applicant, _, err := l.ResolveGuardianToken(value)
	if err != nil {
		return nil, err
	}

	switch applicant.Status {
	case repository.ApplicantStatusPendingGuardian:
		swapped, err := l.ApplicantRepo.TransitionStatus(applicant.ID,
			repository.ApplicantStatusPendingGuardian,
			repository.ApplicantStatusPendingDocuments,
		)
		if err != nil {
			return nil, err
		}
		if swapped {
			applicant.Status = repository.ApplicantStatusPendingDocuments
			l.audit(applicant.ID, repository.AuditLogApplicantEntity, applicant.ID, AuditGuardianApprovedDescription)
		}
		return applicant, nil

	case repository.ApplicantStatusPendingDocuments, repository.ApplicantStatusUnderReview:
		// Already approved earlier via this same link.
		return applicant, nil

	default:
		return nil, ErrInvalidState
	}
}

// GuardianReject removes the applicant and everything hanging off it. A
// second reject finds no token target and reports NotFound instead of
// failing on missing rows. Once an admin decision has landed the guardian's
// link no longer carries any authority.
func (l *Lifecycle) GuardianReject(value string) error {
	applicant, _, err := l.ResolveGuardianToken(value)
	if err != nil {
		return err
	}

	switch applicant.Status {
	case repository.ApplicantStatusVerified, repository.ApplicantStatusRejected:
		return ErrInvalidState
	}

	// Uploaded identity images must not outlive the applicant. The row
	// cascade cannot reach the blobs, so purge them first.
	if err := l.purgeDocuments(applicant.ID); err != nil {
		return err
	}

	if _, err := l.ApplicantRepo.Delete(applicant.ID); err != nil {
		return fmt.Errorf("delete applicant: %w", err)
	}

	l.audit(applicant.ID, repository.AuditLogApplicantEntity, applicant.ID, AuditGuardianRejectedDescription)

	return nil
}

// SubmitDocuments stores the selfie/identity-document pair and moves the
// applicant under review. Uploads that cannot be fully recorded are undone
// blob by blob; we never leave an orphaned image behind.
func (l *Lifecycle) SubmitDocuments(applicantID, selfieFile, documentFile string) error {
	applicant, found, err := l.ApplicantRepo.GetOne(applicantID)
	if err != nil {
		return err
	}
	if !found {
		return ErrNotFound
	}

	// No upload is accepted without guardian approval, and none after review
	// has already started.
	if applicant.Status != repository.ApplicantStatusPendingDocuments {
		return ErrInvalidState
	}

	selfieRef, err := l.Blobs.Upload(selfieFile)
	if err != nil {
		return fmt.Errorf("upload selfie: %w", err)
	}

	documentRef, err := l.Blobs.Upload(documentFile)
	if err != nil {
		if delErr := l.Blobs.Delete(selfieRef); delErr != nil {
			log.Printf("Error deleting orphaned selfie %s: %v", selfieRef, delErr)
		}
		return fmt.Errorf("upload document: %w", err)
	}

	doc := &models.KycDocument{
		ApplicantID: applicantID,
		SelfieRef:   selfieRef,
		DocumentRef: documentRef,
	}

	if _, err := l.DocumentRepo.Insert(doc); err != nil {
		l.deleteBlobs(selfieRef, documentRef)
		return fmt.Errorf("record documents: %w", err)
	}

	swapped, err := l.ApplicantRepo.TransitionStatus(applicantID,
		repository.ApplicantStatusPendingDocuments,
		repository.ApplicantStatusUnderReview,
	)
	if err != nil {
		return err
	}
	if !swapped {
		// Someone got there first; remove what this request stored.
		if err := l.DocumentRepo.DeleteByApplicant(applicantID); err != nil {
			log.Printf("Error removing duplicate document record for %s: %v", applicantID, err)
		}
		l.deleteBlobs(selfieRef, documentRef)
		return ErrInvalidState
	}

	l.audit(applicantID, repository.AuditLogApplicantEntity, applicantID, AuditDocumentsSubmittedDescription)

	return nil
}

type ApprovalResult struct {
	OwnershipToken    string
	ExternalRecordRef string
	RegistrationID    string
}

// AdminApprove runs the final verification sequence. Ordering is load
// bearing: the document pair is purged before anything else so identity
// images never outlive the review, even when a later step fails. A ledger
// failure leaves the applicant under_review and the operation retryable;
// the retry tolerates the documents already being gone. The status swap out
// of under_review is the single-winner gate for racing approvals.
func (l *Lifecycle) AdminApprove(ctx context.Context, applicantID string) (*ApprovalResult, error) {
	applicant, found, err := l.ApplicantRepo.GetOne(applicantID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}

	claim, found, err := l.ClaimRepo.GetByApplicant(applicantID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}

	if applicant.Status != repository.ApplicantStatusUnderReview {
		return nil, ErrInvalidState
	}

	// 1. Purge the document pair. Absence is fine: a previous attempt may
	// have deleted it before its ledger call failed.
	if err := l.purgeDocuments(applicantID); err != nil {
		return nil, err
	}

	// 2. Pin the registration record externally.
	now := time.Now().UnixMilli()

	record := &RegistrationRecord{
		CompanyName: claim.CompanyName,
		FounderName: applicant.Name,
		Guardian:    applicant.GuardianName,
		Timestamp:   now,
		ApplicantID: applicantID,
		Signature:   token.RegistrationSignature(l.SigningKey, claim.CompanyName, applicantID, applicant.GuardianName, now),
	}

	externalRef, err := l.Ledger.Submit(ctx, record)
	if err != nil {
		// Documents are already gone and stay gone. Status is still
		// under_review, so re-invoking the approval retries from here.
		return nil, fmt.Errorf("ledger submit: %w", err)
	}

	// 3. Derive the ownership token.
	ownershipToken := token.GenerateOwnershipToken(claim.CompanyName, applicantID, now, externalRef)

	// 4. Win the transition, then persist the registration.
	swapped, err := l.ApplicantRepo.TransitionStatus(applicantID,
		repository.ApplicantStatusUnderReview,
		repository.ApplicantStatusVerified,
	)
	if err != nil {
		return nil, err
	}
	if !swapped {
		// Another decision landed first; this request changes nothing more.
		return nil, ErrInvalidState
	}

	if err := l.ClaimRepo.MarkRegistered(applicantID, externalRef, ownershipToken); err != nil {
		return nil, fmt.Errorf("mark claim registered: %w", err)
	}

	l.audit(applicantID, repository.AuditLogClaimEntity, claim.ID, AuditKycApprovedDescription)

	// 5. Best-effort applicant notification via the event stream.
	if l.Events != nil {
		err := l.Events.RegistrationCompleted(&RegistrationEvent{
			ApplicantID:    applicantID,
			Name:           applicant.Name,
			Email:          applicant.Email,
			CompanyName:    claim.CompanyName,
			OwnershipToken: ownershipToken,
		})
		if err != nil {
			log.Printf("Error producing registration event for %s: %v", applicantID, err)
		}
	}

	return &ApprovalResult{
		OwnershipToken:    ownershipToken,
		ExternalRecordRef: externalRef,
		RegistrationID:    token.RegistrationID(claim.ID),
	}, nil
}

// AdminReject purges the document pair and parks the applicant in the
// terminal rejected status. Unlike a guardian rejection, the applicant and
// claim rows survive.
func (l *Lifecycle) AdminReject(applicantID string) error {
	applicant, found, err := l.ApplicantRepo.GetOne(applicantID)
	if err != nil {
		return err
	}
	if !found {
		return ErrNotFound
	}

	if applicant.Status != repository.ApplicantStatusUnderReview {
		return ErrInvalidState
	}

	if err := l.purgeDocuments(applicantID); err != nil {
		return err
	}

	swapped, err := l.ApplicantRepo.TransitionStatus(applicantID,
		repository.ApplicantStatusUnderReview,
		repository.ApplicantStatusRejected,
	)
	if err != nil {
		return err
	}
	if !swapped {
		return ErrInvalidState
	}

	l.audit(applicantID, repository.AuditLogApplicantEntity, applicantID, AuditKycRejectedDescription)

	return nil
}

// purgeDocuments deletes the stored blobs and then the record. Nothing to
// purge is a success.
func (l *Lifecycle) purgeDocuments(applicantID string) error {
	doc, found, err := l.DocumentRepo.GetByApplicant(applicantID)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}

	if err := l.Blobs.Delete(doc.SelfieRef); err != nil {
		return fmt.Errorf("delete selfie blob: %w", err)
	}
	if err := l.Blobs.Delete(doc.DocumentRef); err != nil {
		return fmt.Errorf("delete document blob: %w", err)
	}

	if err := l.DocumentRepo.DeleteByApplicant(applicantID); err != nil {
		return fmt.Errorf("delete document record: %w", err)
	}

	return nil
}

func (l *Lifecycle) deleteBlobs(refs ...string) {
	for _, ref := range refs {
		if err := l.Blobs.Delete(ref); err != nil {
			log.Printf("Error deleting blob %s: %v", ref, err)
		}
	}
}

func (l *Lifecycle) audit(applicantID, entity, entityID, description string) {
	if l.AuditRepo == nil {
		return
	}

	_, err := l.AuditRepo.Insert(&models.AuditLog{
		ApplicantID: applicantID,
		Entity:      entity,
		EntityId:    entityID,
		Description: description,
	})
	if err != nil {
		log.Printf("Error writing audit log for %s: %v", applicantID, err)
	}
}

// randomTokenValue returns 32 random bytes hex encoded, the value embedded
// in the guardian's verification URL.
func randomTokenValue() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	return hex.EncodeToString(buf), nil
}
