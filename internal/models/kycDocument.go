package models

import "time"

// KycDocument holds the storage references of the selfie/identity-document
// pair. The row and the blobs behind it are deleted as the first step of the
// admin decision, whichever way it goes.
type KycDocument struct {
	ID          string    `db:"id"`
	ApplicantID string    `db:"applicant_id"`
	SelfieRef   string    `db:"selfie_ref"`
	DocumentRef string    `db:"document_ref"`
	CreatedAt   time.Time `db:"created_at"`
}
