package repository

import (
	"database/sql"
	"fmt"
	"time"

	"loan-auth/entity"

	"github.com/jmoiron/sqlx"
)

// ApplicationOTPRepository defines data operations for the standalone OTP
// shape used by pre-account loan-application flows.
type ApplicationOTPRepository interface {
	Create(otp *entity.ApplicationOTP) (*entity.ApplicationOTP, error)
	// FindActive returns the newest unconsumed record for the subject and
	// purpose, expired or not. Expiry is the caller's decision so that an
	// expired record can be reported as such and cleaned up.
	FindActive(email, phone, purpose string) (*entity.ApplicationOTP, error)
	// DeleteBySubject removes every record for the (subject, purpose) pair.
	// Run before each insert so at most one active record survives.
	DeleteBySubject(email, phone, purpose string) error
	MarkVerified(id int) error
	Delete(id int) error
}

// applicationOTPRepository implements ApplicationOTPRepository interface
type applicationOTPRepository struct {
	db *sqlx.DB
}

// NewApplicationOTPRepository creates a new application OTP repository instance
func NewApplicationOTPRepository(db *sqlx.DB) ApplicationOTPRepository {
	return &applicationOTPRepository{
		db: db,
	}
}

// Create inserts a new standalone OTP record
func (r *applicationOTPRepository) Create(otp *entity.ApplicationOTP) (*entity.ApplicationOTP, error) {
	query := `
		INSERT INTO application_otps (email, phone, code, purpose, expires_at, verified, created_at)
		VALUES (:email, :phone, :code, :purpose, :expires_at, :verified, :created_at)
		RETURNING id, email, phone, code, purpose, expires_at, verified, created_at
	`

	otp.CreatedAt = time.Now()
	otp.Verified = false

	rows, err := r.db.NamedQuery(query, otp)
	if err != nil {
		return nil, fmt.Errorf("failed to create application OTP: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, fmt.Errorf("failed to get created application OTP")
	}

	var createdOTP entity.ApplicationOTP
	if err := rows.StructScan(&createdOTP); err != nil {
		return nil, fmt.Errorf("failed to scan created application OTP: %w", err)
	}

	return &createdOTP, nil
}

// FindActive retrieves the newest unconsumed OTP for a subject and purpose
func (r *applicationOTPRepository) FindActive(email, phone, purpose string) (*entity.ApplicationOTP, error) {
	query := `
		SELECT id, email, phone, code, purpose, expires_at, verified, created_at
		FROM application_otps
		WHERE purpose = $3 AND verified = FALSE
		  AND ((email <> '' AND email = $1) OR (phone <> '' AND phone = $2))
		ORDER BY created_at DESC
		LIMIT 1
	`

	var otp entity.ApplicationOTP
	err := r.db.Get(&otp, query, email, phone, purpose)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get application OTP: %w", err)
	}

	return &otp, nil
}

// DeleteBySubject removes all OTP records for a (subject, purpose) pair
func (r *applicationOTPRepository) DeleteBySubject(email, phone, purpose string) error {
	query := `
		DELETE FROM application_otps
		WHERE purpose = $3
		  AND ((email <> '' AND email = $1) OR (phone <> '' AND phone = $2))
	`

	if _, err := r.db.Exec(query, email, phone, purpose); err != nil {
		return fmt.Errorf("failed to delete application OTPs: %w", err)
	}

	return nil
}

// MarkVerified flags a record as consumed. The record stays in the table;
// lookups filter on verified = FALSE.
func (r *applicationOTPRepository) MarkVerified(id int) error {
	query := `
		UPDATE application_otps
		SET verified = TRUE
		WHERE id = $1 AND verified = FALSE
	`

	result, err := r.db.Exec(query, id)
	if err != nil {
		return fmt.Errorf("failed to mark application OTP verified: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("application OTP not found or already verified")
	}

	return nil
}

// Delete removes a single record, used for lazy cleanup of expired codes
func (r *applicationOTPRepository) Delete(id int) error {
	query := `DELETE FROM application_otps WHERE id = $1`

	if _, err := r.db.Exec(query, id); err != nil {
		return fmt.Errorf("failed to delete application OTP: %w", err)
	}

	return nil
}
