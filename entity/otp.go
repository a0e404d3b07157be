package entity

import (
	"time"
)

// OTP purposes. The purpose is a partition key: a code issued under one
// purpose never validates another. The set is open (free-form tags are
// accepted on the wire), these are the ones the flows branch on.
const (
	PurposeVerification  = "verification"
	PurposePasswordReset = "password_reset"
	PurposeLogin         = "login"
	PurposeApplication   = "application"
)

// ApplicationOTP is the standalone OTP shape: an ephemeral record not owned
// by a user entity, used for pre-account loan-application flows. Exactly one
// of Email/Phone is populated per record.
type ApplicationOTP struct {
	ID        int       `db:"id" json:"id"`
	Email     string    `db:"email" json:"email,omitempty"`
	Phone     string    `db:"phone" json:"phone,omitempty"`
	Code      string    `db:"code" json:"-"`
	Purpose   string    `db:"purpose" json:"purpose"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	Verified  bool      `db:"verified" json:"verified"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// TableName returns the table name for the ApplicationOTP entity
func (ApplicationOTP) TableName() string {
	return "application_otps"
}

// Subject returns whichever contact channel the record is keyed by.
func (o *ApplicationOTP) Subject() string {
	if o.Email != "" {
		return o.Email
	}
	return o.Phone
}

// SendOTPRequest represents the request to issue and deliver an OTP
type SendOTPRequest struct {
	Email   string `json:"email" validate:"omitempty,email"`
	Phone   string `json:"phone" validate:"omitempty,phone_number"`
	Purpose string `json:"purpose" validate:"required"`
}

// VerifyOTPRequest represents the request to verify a previously issued OTP
type VerifyOTPRequest struct {
	Email   string `json:"email" validate:"omitempty,email"`
	Phone   string `json:"phone" validate:"omitempty,phone_number"`
	OTP     string `json:"otp" validate:"required"`
	Purpose string `json:"purpose" validate:"required"`
}

// ForgotPasswordRequest represents the request to start a password reset
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest represents the request to complete a password reset
type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	OTP         string `json:"otp" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8"`
}

// MessageResponse is the generic confirmation envelope
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// SendOTPResponse represents the response after an OTP was issued
type SendOTPResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	OTPExpiresIn int    `json:"otpExpiresIn"` // seconds
	DevOTP       string `json:"devOtp,omitempty"`
}

// VerifyOTPResponse represents the response after an OTP was verified.
// Application-purpose verifications echo the subject back; account
// verifications carry a fresh session token and the user.
type VerifyOTPResponse struct {
	Success   bool          `json:"success"`
	Message   string        `json:"message"`
	Email     string        `json:"email,omitempty"`
	Phone     string        `json:"phone,omitempty"`
	Token     string        `json:"token,omitempty"`
	User      *UserResponse `json:"user,omitempty"`
	ExpiresAt *time.Time    `json:"expires_at,omitempty"`
}

// AuthResponse represents the authentication response with JWT token
type AuthResponse struct {
	Token     string       `json:"token"`
	User      UserResponse `json:"user"`
	ExpiresAt time.Time    `json:"expires_at"`
	Message   string       `json:"message"`
}

// LogoutRequest represents the logout request structure
type LogoutRequest struct {
	LogoutAll bool `json:"logout_all,omitempty"`
}
