package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cradoe/timint/assets"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/lib/pq"
)

const defaultTimeout = 3 * time.Second

type DB struct {
	*sqlx.DB
}

// Database interface defines available repositories
type Database interface {
	Applicant() ApplicantRepository
	Claim() ClaimRepository
	GuardianToken() GuardianTokenRepository
	KycDocument() KycDocumentRepository
	Audit() AuditRepository

	Close() error
}

// DatabaseImpl implements the Database interface
type DatabaseImpl struct {
	db                *DB
	applicantRepo     ApplicantRepository
	claimRepo         ClaimRepository
	guardianTokenRepo GuardianTokenRepository
	kycDocumentRepo   KycDocumentRepository
	auditRepo         AuditRepository

	mu sync.Mutex
}

// New initializes a database connection and runs migrations if enabled
func New(dsn string, automigrate bool) (Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	db, err := sqlx.ConnectContext(ctx, "postgres", "postgres://"+dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(2 * time.Hour)

	// Run migrations if enabled
	if automigrate {
		iofsDriver, err := iofs.New(assets.EmbeddedFiles, "migrations")
		if err != nil {
			return nil, err
		}

		migrator, err := migrate.NewWithSourceInstance("iofs", iofsDriver, "postgres://"+dsn)
		if err != nil {
			return nil, err
		}

		if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return nil, err
		}
	}

	return &DatabaseImpl{db: &DB{db}}, nil
}

func (d *DatabaseImpl) Close() error {
	return d.db.Close()
}

func (d *DatabaseImpl) Applicant() ApplicantRepository {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.applicantRepo == nil {
		d.applicantRepo = NewApplicantRepository(d.db)
	}
	return d.applicantRepo
}

func (d *DatabaseImpl) Claim() ClaimRepository {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.claimRepo == nil {
		d.claimRepo = NewClaimRepository(d.db)
	}
	return d.claimRepo
}

func (d *DatabaseImpl) GuardianToken() GuardianTokenRepository {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.guardianTokenRepo == nil {
		d.guardianTokenRepo = NewGuardianTokenRepository(d.db)
	}
	return d.guardianTokenRepo
}

func (d *DatabaseImpl) KycDocument() KycDocumentRepository {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.kycDocumentRepo == nil {
		d.kycDocumentRepo = NewKycDocumentRepository(d.db)
	}
	return d.kycDocumentRepo
}

func (d *DatabaseImpl) Audit() AuditRepository {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.auditRepo == nil {
		d.auditRepo = NewAuditRepository(d.db)
	}
	return d.auditRepo
}
