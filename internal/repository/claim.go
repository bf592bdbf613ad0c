package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/cradoe/timint/internal/models"
)

type ClaimRepository interface {
	Insert(claim *models.Claim) (string, error)
	GetOne(id string) (*models.Claim, bool, error)
	GetByApplicant(applicantID string) (*models.Claim, bool, error)
	MarkRegistered(applicantID, externalRecordRef, ownershipToken string) error
}

type ClaimRepositoryImpl struct {
	db *DB
}

func NewClaimRepository(db *DB) ClaimRepository {
	return &ClaimRepositoryImpl{db: db}
}

func (repo *ClaimRepositoryImpl) Insert(claim *models.Claim) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var id string
	query := `
		INSERT INTO claims (applicant_id, company_name, description)
		VALUES ($1, $2, $3)
		RETURNING id`

	err := repo.db.GetContext(ctx, &id, query, claim.ApplicantID, claim.CompanyName, claim.Description)
	if err != nil {
		return "", err
	}

	return id, nil
}

func (repo *ClaimRepositoryImpl) GetOne(id string) (*models.Claim, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var claim models.Claim

	query := `SELECT * FROM claims WHERE id = $1`

	err := repo.db.GetContext(ctx, &claim, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}

	return &claim, true, err
}

func (repo *ClaimRepositoryImpl) GetByApplicant(applicantID string) (*models.Claim, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var claim models.Claim

	query := `SELECT * FROM claims WHERE applicant_id = $1`

	err := repo.db.GetContext(ctx, &claim, query, applicantID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}

	return &claim, true, err
}

func (repo *ClaimRepositoryImpl) MarkRegistered(applicantID, externalRecordRef, ownershipToken string) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `
		UPDATE claims
		SET registered = TRUE, external_record_ref = $1, ownership_token = $2
		WHERE applicant_id = $3`

	_, err := repo.db.ExecContext(ctx, query, externalRecordRef, ownershipToken, applicantID)
	return err
}
