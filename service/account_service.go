package service

import (
	"fmt"

	"loan-auth/entity"
	"loan-auth/pkg/logger"
	"loan-auth/repository"

	"golang.org/x/crypto/bcrypt"
)

// AccountService interface defines the credential-recovery flows
type AccountService interface {
	ForgotPassword(email string) (*entity.MessageResponse, error)
	ResetPassword(req *entity.ResetPasswordRequest) (*entity.MessageResponse, error)
}

// accountService implements AccountService interface
type accountService struct {
	userRepo   repository.UserRepository
	otpService OTPService
	mail       MailSender
	logger     *logger.Logger
}

// NewAccountService creates a new account service instance
func NewAccountService(userRepo repository.UserRepository, otpService OTPService, mail MailSender, logger *logger.Logger) AccountService {
	return &accountService{
		userRepo:   userRepo,
		otpService: otpService,
		mail:       mail,
		logger:     logger,
	}
}

// ForgotPassword issues a password-reset code into the user's embedded OTP
// slot and delivers it. The confirmation only says the send attempt
// succeeded, not that the message reached an inbox.
func (s *accountService) ForgotPassword(email string) (*entity.MessageResponse, error) {
	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return nil, &entity.NotFoundError{Resource: "user"}
	}

	code, _, err := s.otpService.IssueForUser(user, entity.PurposePasswordReset)
	if err != nil {
		return nil, err
	}

	if _, err := s.mail.SendOTP(email, code, entity.PurposePasswordReset); err != nil {
		return nil, err
	}

	s.logger.Infow("Password reset code sent", "user_id", user.ID)
	return &entity.MessageResponse{
		Success: true,
		Message: "A password reset code has been sent to your email",
	}, nil
}

// ResetPassword consumes a password-reset code and replaces the credential.
// The validation is side-effect free; the credential swap and OTP-slot clear
// happen together in one repository call, so a failed replacement leaves the
// code unconsumed.
func (s *accountService) ResetPassword(req *entity.ResetPasswordRequest) (*entity.MessageResponse, error) {
	user, err := s.userRepo.GetByEmail(req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return nil, entity.ErrOTPNotFound
	}

	if err := s.otpService.CheckUserOTP(user, entity.PurposePasswordReset, req.OTP); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.userRepo.ResetPassword(user.ID, string(hash)); err != nil {
		return nil, fmt.Errorf("failed to replace credential: %w", err)
	}

	s.logger.Infow("Password reset completed", "user_id", user.ID)
	return &entity.MessageResponse{
		Success: true,
		Message: "Your password has been reset",
	}, nil
}
