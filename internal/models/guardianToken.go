package models

import "time"

// GuardianToken is the single-use credential mailed to the guardian.
// The value is 32 random bytes hex-encoded, so it is safe to carry in a
// public URL path.
type GuardianToken struct {
	ID          string    `db:"id"`
	ApplicantID string    `db:"applicant_id"`
	Token       string    `db:"token"`
	Consumed    bool      `db:"consumed"`
	EmailSent   bool      `db:"email_sent"`
	IssuedAt    time.Time `db:"issued_at"`
	ExpiresAt   time.Time `db:"expires_at"`
}
