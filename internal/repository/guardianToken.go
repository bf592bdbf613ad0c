package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/cradoe/timint/internal/models"
)

type GuardianTokenRepository interface {
	Insert(token *models.GuardianToken) (string, error)
	GetByValue(value string) (*models.GuardianToken, bool, error)
	Consume(value string) error
	MarkEmailSent(id string) error
}

type GuardianTokenRepositoryImpl struct {
	db *DB
}

func NewGuardianTokenRepository(db *DB) GuardianTokenRepository {
	return &GuardianTokenRepositoryImpl{db: db}
}

func (repo *GuardianTokenRepositoryImpl) Insert(token *models.GuardianToken) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var id string
	query := `
		INSERT INTO guardian_tokens (applicant_id, token, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id`

	err := repo.db.GetContext(ctx, &id, query, token.ApplicantID, token.Token, token.ExpiresAt)
	if err != nil {
		return "", err
	}

	return id, nil
}

func (repo *GuardianTokenRepositoryImpl) GetByValue(value string) (*models.GuardianToken, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var token models.GuardianToken

	query := `SELECT * FROM guardian_tokens WHERE token = $1`

	err := repo.db.GetContext(ctx, &token, query, value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}

	return &token, true, err
}

func (repo *GuardianTokenRepositoryImpl) Consume(value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `UPDATE guardian_tokens SET consumed = TRUE WHERE token = $1`

	_, err := repo.db.ExecContext(ctx, query, value)
	return err
}

func (repo *GuardianTokenRepositoryImpl) MarkEmailSent(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `UPDATE guardian_tokens SET email_sent = TRUE WHERE id = $1`

	_, err := repo.db.ExecContext(ctx, query, id)
	return err
}
