package entity

import (
	"time"
)

// User represents a loan-platform account
type User struct {
	ID            int       `db:"id" json:"id"`
	Email         string    `db:"email" json:"email" validate:"required,email"`
	Phone         *string   `db:"phone" json:"phone,omitempty"`
	FullName      string    `db:"full_name" json:"full_name"`
	PasswordHash  string    `db:"password_hash" json:"-"`
	EmailVerified bool      `db:"email_verified" json:"email_verified"`
	PhoneVerified bool      `db:"phone_verified" json:"phone_verified"`
	IsActive      bool      `db:"is_active" json:"is_active"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`

	// Embedded OTP slot. A user holds at most one pending code at a time;
	// the three fields are set and cleared together. Issuing a new code
	// overwrites whatever was pending, regardless of purpose.
	OTPCode      *string    `db:"otp_code" json:"-"`
	OTPPurpose   *string    `db:"otp_purpose" json:"-"`
	OTPExpiresAt *time.Time `db:"otp_expires_at" json:"-"`
}

// TableName returns the table name for the User entity
func (User) TableName() string {
	return "users"
}

// HasPendingOTP reports whether the embedded OTP slot is populated.
func (u *User) HasPendingOTP() bool {
	return u.OTPCode != nil && u.OTPPurpose != nil && u.OTPExpiresAt != nil
}

// UserResponse represents the user response
type UserResponse struct {
	ID            int       `json:"id"`
	Email         string    `json:"email"`
	Phone         *string   `json:"phone,omitempty"`
	FullName      string    `json:"full_name"`
	EmailVerified bool      `json:"email_verified"`
	PhoneVerified bool      `json:"phone_verified"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
}

// ToResponse converts a User entity to its response shape
func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:            u.ID,
		Email:         u.Email,
		Phone:         u.Phone,
		FullName:      u.FullName,
		EmailVerified: u.EmailVerified,
		PhoneVerified: u.PhoneVerified,
		IsActive:      u.IsActive,
		CreatedAt:     u.CreatedAt,
	}
}
