package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/cradoe/timint/internal/models"
)

type KycDocumentRepository interface {
	Insert(doc *models.KycDocument) (string, error)
	GetByApplicant(applicantID string) (*models.KycDocument, bool, error)
	DeleteByApplicant(applicantID string) error
}

type KycDocumentRepositoryImpl struct {
	db *DB
}

func NewKycDocumentRepository(db *DB) KycDocumentRepository {
	return &KycDocumentRepositoryImpl{db: db}
}

func (repo *KycDocumentRepositoryImpl) Insert(doc *models.KycDocument) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var id string
	query := `
		INSERT INTO kyc_documents (applicant_id, selfie_ref, document_ref)
		VALUES ($1, $2, $3)
		RETURNING id`

	err := repo.db.GetContext(ctx, &id, query, doc.ApplicantID, doc.SelfieRef, doc.DocumentRef)
	if err != nil {
		return "", err
	}

	return id, nil
}

func (repo *KycDocumentRepositoryImpl) GetByApplicant(applicantID string) (*models.KycDocument, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var doc models.KycDocument

	query := `SELECT * FROM kyc_documents WHERE applicant_id = $1`

	err := repo.db.GetContext(ctx, &doc, query, applicantID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}

	return &doc, true, err
}

// DeleteByApplicant removes the document record. Deleting a record that is
// already gone is not an error; retried admin decisions depend on that.
func (repo *KycDocumentRepositoryImpl) DeleteByApplicant(applicantID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `DELETE FROM kyc_documents WHERE applicant_id = $1`

	_, err := repo.db.ExecContext(ctx, query, applicantID)
	return err
}
