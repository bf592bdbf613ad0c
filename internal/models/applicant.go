package models

import (
	"database/sql"
	"time"
)

// Applicant is the minor registering a startup-name claim. Its status field
// is the single source of truth for the verification lifecycle; there are no
// separate guardian/kyc flags that could disagree with each other.
type Applicant struct {
	ID             string       `db:"id"`
	Name           string       `db:"name"`
	Age            int          `db:"age"`
	Email          string       `db:"email"`
	HashedPassword string       `db:"hashed_password"`
	PhoneNumber    string       `db:"phone_number"`
	Address        string       `db:"address"`
	GuardianName   string       `db:"guardian_name"`
	GuardianEmail  string       `db:"guardian_email"`
	Status         string       `db:"status"`
	CreatedAt      time.Time    `db:"created_at"`
	VerifiedAt     sql.NullTime `db:"verified_at"`
}
