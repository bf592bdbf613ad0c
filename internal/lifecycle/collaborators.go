package lifecycle

import "context"

// BlobStore is where KYC document images live between upload and the admin
// decision. Delete must be idempotent: deleting a reference that is already
// gone is a success, because retried admin decisions hit that path.
type BlobStore interface {
	Upload(fileName string) (string, error)
	Delete(reference string) error
	SignedURL(reference string, ttlSeconds int) (string, error)
}

// RegistrationRecord is what gets pinned to the external ledger when a claim
// is approved.
type RegistrationRecord struct {
	CompanyName string `json:"company"`
	FounderName string `json:"name"`
	Guardian    string `json:"guardian"`
	Timestamp   int64  `json:"timestamp"`
	ApplicantID string `json:"applicant_id"`
	Signature   string `json:"signature"`
}

// Ledger submits a registration record to the external pinning/ledger
// collaborator and returns an opaque reference. Failures are recoverable;
// the admin approval that hit one can simply be re-invoked.
type Ledger interface {
	Submit(ctx context.Context, record *RegistrationRecord) (string, error)
}

// RegistrationEvent is emitted after a claim has been registered. The mail
// worker picks it up and notifies the applicant. EventID is assigned by the
// publishing adapter.
type RegistrationEvent struct {
	EventID        string `json:"event_id,omitempty"`
	ApplicantID    string `json:"applicant_id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	CompanyName    string `json:"company_name"`
	OwnershipToken string `json:"ownership_token"`
}

// Events is the outbound notification stream. Emission is best effort; a
// failed produce never rolls back a decision.
type Events interface {
	RegistrationCompleted(event *RegistrationEvent) error
}
