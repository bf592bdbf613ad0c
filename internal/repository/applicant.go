package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/cradoe/timint/internal/models"
)

type ApplicantRepository interface {
	Insert(applicant *models.Applicant) (string, error)
	GetOne(id string) (*models.Applicant, bool, error)
	GetByEmail(email string) (*models.Applicant, bool, error)
	GetAllByStatus(status string) ([]models.Applicant, error)
	CheckIfEmailExist(email string) (bool, error)
	TransitionStatus(id, from, to string) (bool, error)
	Delete(id string) (bool, error)
}

const (
	// ApplicantStatusPendingGuardian is the status right after submission,
	// while we wait for the guardian to act on their emailed link.
	ApplicantStatusPendingGuardian = "pending_guardian"

	// ApplicantStatusPendingDocuments means the guardian approved and we are
	// waiting for the selfie/identity-document pair.
	ApplicantStatusPendingDocuments = "pending_documents"

	// ApplicantStatusUnderReview means documents are in and an administrator
	// has to make the final call.
	ApplicantStatusUnderReview = "under_review"

	// ApplicantStatusVerified and ApplicantStatusRejected are terminal.
	ApplicantStatusVerified = "verified"
	ApplicantStatusRejected = "rejected"
)

type ApplicantRepositoryImpl struct {
	db *DB
}

func NewApplicantRepository(db *DB) ApplicantRepository {
	return &ApplicantRepositoryImpl{db: db}
}

func (repo *ApplicantRepositoryImpl) Insert(applicant *models.Applicant) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var id string
	query := `
		INSERT INTO applicants (name, age, email, hashed_password, phone_number, address, guardian_name, guardian_email, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	args := []any{
		applicant.Name,
		applicant.Age,
		applicant.Email,
		applicant.HashedPassword,
		applicant.PhoneNumber,
		applicant.Address,
		applicant.GuardianName,
		applicant.GuardianEmail,
		ApplicantStatusPendingGuardian,
	}

	err := repo.db.GetContext(ctx, &id, query, args...)
	if err != nil {
		return "", err
	}

	return id, nil
}

func (repo *ApplicantRepositoryImpl) GetOne(id string) (*models.Applicant, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var applicant models.Applicant

	query := `SELECT * FROM applicants WHERE id = $1`

	err := repo.db.GetContext(ctx, &applicant, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}

	return &applicant, true, err
}

func (repo *ApplicantRepositoryImpl) GetByEmail(email string) (*models.Applicant, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var applicant models.Applicant

	query := `SELECT * FROM applicants WHERE email = $1`

	err := repo.db.GetContext(ctx, &applicant, query, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}

	return &applicant, true, err
}

func (repo *ApplicantRepositoryImpl) GetAllByStatus(status string) ([]models.Applicant, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var applicants []models.Applicant

	query := `SELECT * FROM applicants WHERE status = $1 ORDER BY created_at DESC`

	err := repo.db.SelectContext(ctx, &applicants, query, status)
	if err != nil {
		return nil, err
	}

	return applicants, nil
}

func (repo *ApplicantRepositoryImpl) CheckIfEmailExist(email string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var exists bool

	query := `SELECT EXISTS(SELECT 1 FROM applicants WHERE email = $1)`

	err := repo.db.GetContext(ctx, &exists, query, email)
	if err != nil {
		return false, err
	}

	return exists, nil
}

// TransitionStatus moves an applicant from one lifecycle status to another.
// The WHERE clause on the current status makes it a compare-and-set: when two
// requests race, only one sees a row updated and the other gets false.
func (repo *ApplicantRepositoryImpl) TransitionStatus(id, from, to string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `UPDATE applicants SET status = $1 WHERE id = $2 AND status = $3`

	args := []any{to, id, from}

	if to == ApplicantStatusVerified {
		query = `UPDATE applicants SET status = $1, verified_at = $2 WHERE id = $3 AND status = $4`
		args = []any{to, time.Now(), id, from}
	}

	result, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows == 1, nil
}

func (repo *ApplicantRepositoryImpl) Delete(id string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `DELETE FROM applicants WHERE id = $1`

	result, err := repo.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows == 1, nil
}
