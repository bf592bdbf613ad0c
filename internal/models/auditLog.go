package models

import "time"

type AuditLog struct {
	ID          string    `db:"id"`
	ApplicantID string    `db:"applicant_id"`
	Entity      string    `db:"entity"`
	EntityId    string    `db:"entity_id"`
	Description string    `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
}
