package repository

import (
	"context"

	"github.com/cradoe/timint/internal/models"
)

type AuditRepository interface {
	Insert(log *models.AuditLog) (*models.AuditLog, error)
	GetAllByApplicant(applicantID string) ([]models.AuditLog, error)
}

const (
	AuditLogApplicantEntity = "applicant"
	AuditLogClaimEntity     = "claim"
)

type AuditRepositoryImpl struct {
	db *DB
}

func NewAuditRepository(db *DB) AuditRepository {
	return &AuditRepositoryImpl{db: db}
}

func (repo *AuditRepositoryImpl) Insert(log *models.AuditLog) (*models.AuditLog, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `
		INSERT INTO audit_logs (applicant_id, entity, entity_id, description)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := repo.db.QueryRowContext(ctx, query,
		log.ApplicantID,
		log.Entity,
		log.EntityId,
		log.Description,
	).Scan(&log.ID, &log.CreatedAt)
	if err != nil {
		return nil, err
	}

	return log, nil
}

func (repo *AuditRepositoryImpl) GetAllByApplicant(applicantID string) ([]models.AuditLog, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var logs []models.AuditLog

	query := `SELECT * FROM audit_logs WHERE applicant_id = $1 ORDER BY created_at DESC`

	err := repo.db.SelectContext(ctx, &logs, query, applicantID)
	if err != nil {
		return nil, err
	}

	return logs, nil
}
