package models

import (
	"database/sql"
	"time"
)

// Claim is the startup-name registration tied 1:1 to an applicant.
// ExternalRecordRef and OwnershipToken are only ever populated together with
// Registered flipping to true, during admin approval.
type Claim struct {
	ID                string         `db:"id"`
	ApplicantID       string         `db:"applicant_id"`
	CompanyName       string         `db:"company_name"`
	Description       sql.NullString `db:"description"`
	Registered        bool           `db:"registered"`
	ExternalRecordRef sql.NullString `db:"external_record_ref"`
	OwnershipToken    sql.NullString `db:"ownership_token"`
	CreatedAt         time.Time      `db:"created_at"`
}
