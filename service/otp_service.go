package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"loan-auth/config"
	"loan-auth/entity"
	"loan-auth/pkg/logger"
	"loan-auth/pkg/mailer"
	"loan-auth/repository"
)

// MailSender is the slice of the mail transport the OTP flows need
type MailSender interface {
	Send(to, subject, htmlBody, textBody string) (*mailer.Result, error)
	SendOTP(to, code, purpose string) (*mailer.Result, error)
}

// OTPService owns the OTP lifecycle: issuing, delivering, validating and
// consuming one-time codes across the two storage shapes. Account-bound
// codes live in the user's embedded slot; pre-account application codes live
// as standalone records.
type OTPService interface {
	SendOTP(req *entity.SendOTPRequest) (*entity.SendOTPResponse, error)
	VerifyOTP(req *entity.VerifyOTPRequest) (*entity.VerifyOTPResponse, error)

	// IssueForUser writes a fresh code into the user's embedded slot,
	// overwriting whatever was pending, and returns it for delivery.
	IssueForUser(user *entity.User, purpose string) (code string, expiresAt time.Time, err error)

	// CheckUserOTP validates the embedded slot without consuming it. Branches
	// are evaluated in fixed order: existence, expiry, value match. An expired
	// slot is reported as EXPIRED even when the code is also wrong, and is
	// left in place until overwritten by a fresh issue.
	CheckUserOTP(user *entity.User, purpose, code string) error
}

// otpService implements OTPService interface
type otpService struct {
	userRepo   repository.UserRepository
	appOTPRepo repository.ApplicationOTPRepository
	mail       MailSender
	jwtService JWTService
	cfg        *config.Config
	logger     *logger.Logger
}

// NewOTPService creates a new OTP service instance
func NewOTPService(
	userRepo repository.UserRepository,
	appOTPRepo repository.ApplicationOTPRepository,
	mail MailSender,
	jwtService JWTService,
	cfg *config.Config,
	logger *logger.Logger,
) OTPService {
	return &otpService{
		userRepo:   userRepo,
		appOTPRepo: appOTPRepo,
		mail:       mail,
		jwtService: jwtService,
		cfg:        cfg,
		logger:     logger,
	}
}

// SendOTP issues and delivers a code for the requested purpose. The
// application purpose uses the standalone shape and accepts subjects without
// an account; every other purpose is keyed to an existing user, except login,
// where an unknown subject gets a generic success so account existence is
// not revealed.
func (s *otpService) SendOTP(req *entity.SendOTPRequest) (*entity.SendOTPResponse, error) {
	if req.Email == "" && req.Phone == "" {
		return nil, entity.NewValidationError("email or phone is required")
	}

	var code string

	if req.Purpose == entity.PurposeApplication {
		issued, err := s.issueStandalone(req.Email, req.Phone, req.Purpose)
		if err != nil {
			return nil, err
		}
		code = issued.Code

		if req.Email != "" {
			if _, err := s.mail.SendOTP(req.Email, code, req.Purpose); err != nil {
				return nil, err
			}
		} else {
			// SMS delivery is not implemented; the code is only logged.
			s.logger.Infow("SMS OTP issued (delivery stubbed)",
				"phone", req.Phone,
				"purpose", req.Purpose,
				"expires_at", issued.ExpiresAt,
			)
		}
	} else {
		user, err := s.lookupUser(req.Email, req.Phone)
		if err != nil {
			return nil, err
		}
		if user == nil {
			if req.Purpose == entity.PurposeLogin {
				// Unknown subject on a login-initiated OTP: answer as if a
				// code went out, issue nothing.
				s.logger.Debugw("Login OTP requested for unknown subject", "email", req.Email, "phone", req.Phone)
				return s.sendResponse(""), nil
			}
			return nil, &entity.NotFoundError{Resource: "user"}
		}

		issuedCode, expiresAt, err := s.IssueForUser(user, req.Purpose)
		if err != nil {
			return nil, err
		}
		code = issuedCode

		if req.Email != "" {
			if _, err := s.mail.SendOTP(req.Email, code, req.Purpose); err != nil {
				return nil, err
			}
		} else {
			s.logger.Infow("SMS OTP issued (delivery stubbed)",
				"phone", req.Phone,
				"purpose", req.Purpose,
				"expires_at", expiresAt,
			)
		}
	}

	return s.sendResponse(code), nil
}

// VerifyOTP validates a supplied code and transitions the matching state:
// application codes are marked consumed, account codes clear the slot, flip
// the channel's verification flag and mint a session token.
func (s *otpService) VerifyOTP(req *entity.VerifyOTPRequest) (*entity.VerifyOTPResponse, error) {
	if req.Email == "" && req.Phone == "" {
		return nil, entity.NewValidationError("email or phone is required")
	}

	if req.Purpose == entity.PurposeApplication {
		record, err := s.validateStandalone(req.Email, req.Phone, req.Purpose, req.OTP)
		if err != nil {
			return nil, err
		}

		s.logger.Infow("Application OTP verified", "subject", record.Subject())
		return &entity.VerifyOTPResponse{
			Success: true,
			Message: "OTP verified successfully",
			Email:   record.Email,
			Phone:   record.Phone,
		}, nil
	}

	user, err := s.lookupUser(req.Email, req.Phone)
	if err != nil {
		return nil, err
	}
	if user == nil {
		// An unknown subject and a missing code look the same to the caller.
		return nil, entity.ErrOTPNotFound
	}

	if err := s.CheckUserOTP(user, req.Purpose, req.OTP); err != nil {
		return nil, err
	}

	if err := s.userRepo.ClearOTP(user.ID); err != nil {
		return nil, fmt.Errorf("failed to clear OTP slot: %w", err)
	}

	if req.Email != "" {
		if err := s.userRepo.MarkEmailVerified(user.ID); err != nil {
			return nil, fmt.Errorf("failed to mark email verified: %w", err)
		}
		user.EmailVerified = true
	} else {
		if err := s.userRepo.MarkPhoneVerified(user.ID); err != nil {
			return nil, fmt.Errorf("failed to mark phone verified: %w", err)
		}
		user.PhoneVerified = true
	}

	authResp, err := s.jwtService.GenerateToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	s.logger.Infow("OTP verified", "user_id", user.ID, "purpose", req.Purpose)
	return &entity.VerifyOTPResponse{
		Success:   true,
		Message:   "OTP verified successfully",
		Token:     authResp.Token,
		User:      &authResp.User,
		ExpiresAt: &authResp.ExpiresAt,
	}, nil
}

// IssueForUser overwrites the user's embedded OTP slot with a fresh code
func (s *otpService) IssueForUser(user *entity.User, purpose string) (string, time.Time, error) {
	code, err := s.generateCode()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate OTP code: %w", err)
	}

	expiresAt := time.Now().Add(s.cfg.OTP.ExpirationTime)
	if err := s.userRepo.SetOTP(user.ID, code, purpose, expiresAt); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to store OTP: %w", err)
	}

	user.OTPCode = &code
	user.OTPPurpose = &purpose
	user.OTPExpiresAt = &expiresAt

	s.logger.Infow("OTP issued", "user_id", user.ID, "purpose", purpose, "expires_at", expiresAt)
	return code, expiresAt, nil
}

// CheckUserOTP validates the embedded slot without side effects
func (s *otpService) CheckUserOTP(user *entity.User, purpose, code string) error {
	if !user.HasPendingOTP() || *user.OTPPurpose != purpose {
		return entity.ErrOTPNotFound
	}
	if time.Now().After(*user.OTPExpiresAt) {
		return entity.ErrOTPExpired
	}
	if *user.OTPCode != code {
		return entity.ErrOTPMismatch
	}
	return nil
}

// issueStandalone supersedes any active record for the (subject, purpose)
// pair, then inserts a fresh one. A record is keyed by exactly one channel;
// when both are supplied, email wins and the phone is dropped, mirroring
// lookupUser's precedence.
func (s *otpService) issueStandalone(email, phone, purpose string) (*entity.ApplicationOTP, error) {
	if email != "" {
		phone = ""
	}

	code, err := s.generateCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate OTP code: %w", err)
	}

	if err := s.appOTPRepo.DeleteBySubject(email, phone, purpose); err != nil {
		return nil, fmt.Errorf("failed to supersede prior OTPs: %w", err)
	}

	record, err := s.appOTPRepo.Create(&entity.ApplicationOTP{
		Email:     email,
		Phone:     phone,
		Code:      code,
		Purpose:   purpose,
		ExpiresAt: time.Now().Add(s.cfg.OTP.ExpirationTime),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store OTP: %w", err)
	}

	s.logger.Infow("Application OTP issued", "subject", record.Subject(), "expires_at", record.ExpiresAt)
	return record, nil
}

// validateStandalone checks a supplied code against the newest unconsumed
// record. Expired records are deleted on sight (best effort); a mismatch
// leaves the record intact so the caller may retry until expiry.
func (s *otpService) validateStandalone(email, phone, purpose, code string) (*entity.ApplicationOTP, error) {
	record, err := s.appOTPRepo.FindActive(email, phone, purpose)
	if err != nil {
		return nil, fmt.Errorf("failed to look up OTP: %w", err)
	}
	if record == nil {
		return nil, entity.ErrOTPNotFound
	}

	if time.Now().After(record.ExpiresAt) {
		if err := s.appOTPRepo.Delete(record.ID); err != nil {
			s.logger.Warnw("Failed to delete expired OTP", "otp_id", record.ID, "error", err)
		}
		return nil, entity.ErrOTPExpired
	}

	if record.Code != code {
		return nil, entity.ErrOTPMismatch
	}

	if err := s.appOTPRepo.MarkVerified(record.ID); err != nil {
		return nil, fmt.Errorf("failed to consume OTP: %w", err)
	}

	return record, nil
}

func (s *otpService) lookupUser(email, phone string) (*entity.User, error) {
	if email != "" {
		user, err := s.userRepo.GetByEmail(email)
		if err != nil {
			return nil, fmt.Errorf("failed to look up user: %w", err)
		}
		return user, nil
	}
	user, err := s.userRepo.GetByPhone(phone)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	return user, nil
}

func (s *otpService) sendResponse(code string) *entity.SendOTPResponse {
	resp := &entity.SendOTPResponse{
		Success:      true,
		Message:      "OTP sent successfully",
		OTPExpiresIn: int(s.cfg.OTP.ExpirationTime.Seconds()),
	}
	// Raw code is echoed only outside production, as a development convenience.
	if !s.cfg.Application.IsProduction() {
		resp.DevOTP = code
	}
	return resp
}

// generateCode produces a fixed-length numeric code, leading zeros preserved
func (s *otpService) generateCode() (string, error) {
	maxValue := big.NewInt(1)
	for i := 0; i < s.cfg.OTP.Length; i++ {
		maxValue.Mul(maxValue, big.NewInt(10))
	}

	randomNumber, err := rand.Int(rand.Reader, maxValue)
	if err != nil {
		return "", fmt.Errorf("failed to generate random number: %w", err)
	}

	format := fmt.Sprintf("%%0%dd", s.cfg.OTP.Length)
	return fmt.Sprintf(format, randomNumber), nil
}
