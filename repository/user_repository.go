package repository

import (
	"database/sql"
	"fmt"
	"time"

	"loan-auth/entity"

	"github.com/jmoiron/sqlx"
)

// UserRepository interface defines user data operations, including the
// embedded OTP slot the account flows consume.
type UserRepository interface {
	Create(user *entity.User) (*entity.User, error)
	GetByID(id int) (*entity.User, error)
	GetByEmail(email string) (*entity.User, error)
	GetByPhone(phone string) (*entity.User, error)
	SetOTP(userID int, code, purpose string, expiresAt time.Time) error
	ClearOTP(userID int) error
	MarkEmailVerified(userID int) error
	MarkPhoneVerified(userID int) error
	ResetPassword(userID int, passwordHash string) error
}

// userRepository implements UserRepository interface
type userRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new user repository instance
func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{
		db: db,
	}
}

const userColumns = `id, email, phone, full_name, password_hash, email_verified, phone_verified,
		is_active, created_at, otp_code, otp_purpose, otp_expires_at`

// Create creates a new user
func (r *userRepository) Create(user *entity.User) (*entity.User, error) {
	query := `
		INSERT INTO users (email, phone, full_name, password_hash, email_verified, phone_verified, is_active, created_at)
		VALUES (:email, :phone, :full_name, :password_hash, :email_verified, :phone_verified, :is_active, :created_at)
		RETURNING ` + userColumns

	user.CreatedAt = time.Now()
	user.IsActive = true

	rows, err := r.db.NamedQuery(query, user)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, fmt.Errorf("failed to get created user")
	}

	var createdUser entity.User
	if err := rows.StructScan(&createdUser); err != nil {
		return nil, fmt.Errorf("failed to scan created user: %w", err)
	}

	return &createdUser, nil
}

// GetByID retrieves a user by ID
func (r *userRepository) GetByID(id int) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND is_active = TRUE`

	var user entity.User
	err := r.db.Get(&user, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return &user, nil
}

// GetByEmail retrieves a user by email address
func (r *userRepository) GetByEmail(email string) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 AND is_active = TRUE`

	var user entity.User
	err := r.db.Get(&user, query, email)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return &user, nil
}

// GetByPhone retrieves a user by phone number
func (r *userRepository) GetByPhone(phone string) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE phone = $1 AND is_active = TRUE`

	var user entity.User
	err := r.db.Get(&user, query, phone)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by phone: %w", err)
	}

	return &user, nil
}

// SetOTP writes the embedded OTP slot, overwriting any pending code the user
// holds regardless of its purpose.
func (r *userRepository) SetOTP(userID int, code, purpose string, expiresAt time.Time) error {
	query := `
		UPDATE users
		SET otp_code = $1, otp_purpose = $2, otp_expires_at = $3
		WHERE id = $4 AND is_active = TRUE
	`

	result, err := r.db.Exec(query, code, purpose, expiresAt, userID)
	if err != nil {
		return fmt.Errorf("failed to set OTP: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("user not found or inactive")
	}

	return nil
}

// ClearOTP empties the embedded OTP slot after successful consumption
func (r *userRepository) ClearOTP(userID int) error {
	query := `
		UPDATE users
		SET otp_code = NULL, otp_purpose = NULL, otp_expires_at = NULL
		WHERE id = $1
	`

	if _, err := r.db.Exec(query, userID); err != nil {
		return fmt.Errorf("failed to clear OTP: %w", err)
	}

	return nil
}

// MarkEmailVerified sets the email verification flag
func (r *userRepository) MarkEmailVerified(userID int) error {
	query := `UPDATE users SET email_verified = TRUE WHERE id = $1`

	if _, err := r.db.Exec(query, userID); err != nil {
		return fmt.Errorf("failed to mark email verified: %w", err)
	}

	return nil
}

// MarkPhoneVerified sets the phone verification flag
func (r *userRepository) MarkPhoneVerified(userID int) error {
	query := `UPDATE users SET phone_verified = TRUE WHERE id = $1`

	if _, err := r.db.Exec(query, userID); err != nil {
		return fmt.Errorf("failed to mark phone verified: %w", err)
	}

	return nil
}

// ResetPassword replaces the credential and clears the OTP slot in a single
// statement, so the code cannot end up consumed without the password change
// (or the other way around).
func (r *userRepository) ResetPassword(userID int, passwordHash string) error {
	query := `
		UPDATE users
		SET password_hash = $1, otp_code = NULL, otp_purpose = NULL, otp_expires_at = NULL
		WHERE id = $2 AND is_active = TRUE
	`

	result, err := r.db.Exec(query, passwordHash, userID)
	if err != nil {
		return fmt.Errorf("failed to reset password: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("user not found or inactive")
	}

	return nil
}
