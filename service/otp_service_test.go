package service

import (
	"testing"
	"time"

	"loan-auth/entity"
	"loan-auth/pkg/mailer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOTPService_SendOTP_MissingSubject(t *testing.T) {
	env := newTestEnv()

	_, err := env.svc.SendOTP(&entity.SendOTPRequest{Purpose: entity.PurposeVerification})

	assert.Error(t, err)
	var vErr *entity.ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestOTPService_SendOTP_Application_Email(t *testing.T) {
	env := newTestEnv()

	resp, err := env.svc.SendOTP(&entity.SendOTPRequest{
		Email:   "applicant@example.com",
		Purpose: entity.PurposeApplication,
	})

	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, 600, resp.OTPExpiresIn)
	assert.Len(t, resp.DevOTP, 6)
	assert.Equal(t, 1, env.mail.otpCalls)
	assert.Equal(t, "applicant@example.com", env.mail.lastTo)
	assert.Equal(t, resp.DevOTP, env.mail.lastCode)
	assert.Equal(t, 1, env.otpRepo.count())
}

func TestOTPService_SendOTP_Application_PhoneSkipsMail(t *testing.T) {
	env := newTestEnv()

	resp, err := env.svc.SendOTP(&entity.SendOTPRequest{
		Phone:   "+1234567890",
		Purpose: entity.PurposeApplication,
	})

	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Len(t, resp.DevOTP, 6)
	assert.Equal(t, 0, env.mail.otpCalls, "phone subjects must not trigger email delivery")
	assert.Equal(t, 1, env.otpRepo.count())
}

func TestOTPService_SendOTP_Application_BothChannelsKeyedByEmail(t *testing.T) {
	env := newTestEnv()

	sent, err := env.svc.SendOTP(&entity.SendOTPRequest{
		Email:   "applicant@example.com",
		Phone:   "+1234567890",
		Purpose: entity.PurposeApplication,
	})
	require.NoError(t, err)

	// The record is keyed by exactly one channel; email wins.
	record, err := env.otpRepo.FindActive("applicant@example.com", "", entity.PurposeApplication)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "applicant@example.com", record.Email)
	assert.Empty(t, record.Phone)

	// The phone channel cannot redeem it.
	_, err = env.svc.VerifyOTP(&entity.VerifyOTPRequest{
		Phone:   "+1234567890",
		OTP:     sent.DevOTP,
		Purpose: entity.PurposeApplication,
	})
	assert.ErrorIs(t, err, entity.ErrOTPNotFound)

	resp, err := env.svc.VerifyOTP(&entity.VerifyOTPRequest{
		Email:   "applicant@example.com",
		OTP:     sent.DevOTP,
		Purpose: entity.PurposeApplication,
	})
	require.NoError(t, err)
	assert.Equal(t, "applicant@example.com", resp.Email)
	assert.Empty(t, resp.Phone)
}

func TestOTPService_SendOTP_Application_Supersedes(t *testing.T) {
	env := newTestEnv()

	first, err := env.svc.SendOTP(&entity.SendOTPRequest{
		Email:   "applicant@example.com",
		Purpose: entity.PurposeApplication,
	})
	require.NoError(t, err)

	second, err := env.svc.SendOTP(&entity.SendOTPRequest{
		Email:   "applicant@example.com",
		Purpose: entity.PurposeApplication,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, env.otpRepo.count(), "reissue must replace, not accumulate")

	// The superseded code is dead even before its own expiry.
	if first.DevOTP != second.DevOTP {
		_, err = env.svc.VerifyOTP(&entity.VerifyOTPRequest{
			Email:   "applicant@example.com",
			OTP:     first.DevOTP,
			Purpose: entity.PurposeApplication,
		})
		assert.ErrorIs(t, err, entity.ErrOTPMismatch)
	}

	resp, err := env.svc.VerifyOTP(&entity.VerifyOTPRequest{
		Email:   "applicant@example.com",
		OTP:     second.DevOTP,
		Purpose: entity.PurposeApplication,
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
}

func TestOTPService_SendOTP_DeliveryFailurePropagates(t *testing.T) {
	env := newTestEnv()
	env.mail.err = &mailer.DeliveryError{Kind: mailer.KindAuth, Hint: "SMTP authentication failed"}

	_, err := env.svc.SendOTP(&entity.SendOTPRequest{
		Email:   "applicant@example.com",
		Purpose: entity.PurposeApplication,
	})

	assert.Error(t, err)
	var dErr *mailer.DeliveryError
	require.ErrorAs(t, err, &dErr)
	assert.Equal(t, mailer.KindAuth, dErr.Kind)
}

func TestOTPService_SendOTP_UnknownUser(t *testing.T) {
	env := newTestEnv()

	_, err := env.svc.SendOTP(&entity.SendOTPRequest{
		Email:   "nobody@example.com",
		Purpose: entity.PurposeVerification,
	})

	assert.Error(t, err)
	var nfErr *entity.NotFoundError
	assert.ErrorAs(t, err, &nfErr)
}

func TestOTPService_SendOTP_Login_UnknownSubjectGenericSuccess(t *testing.T) {
	env := newTestEnv()

	resp, err := env.svc.SendOTP(&entity.SendOTPRequest{
		Email:   "nobody@example.com",
		Purpose: entity.PurposeLogin,
	})

	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Empty(t, resp.DevOTP, "no code may be issued for an unknown subject")
	assert.Equal(t, 0, env.mail.otpCalls)
}

func TestOTPService_SendOTP_KnownUserSetsSlot(t *testing.T) {
	env := newTestEnv()
	user := env.userRepo.addUser("user@example.com", "")

	resp, err := env.svc.SendOTP(&entity.SendOTPRequest{
		Email:   "user@example.com",
		Purpose: entity.PurposeVerification,
	})

	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, 1, env.mail.otpCalls)

	require.True(t, user.HasPendingOTP())
	assert.Equal(t, resp.DevOTP, *user.OTPCode)
	assert.Equal(t, entity.PurposeVerification, *user.OTPPurpose)
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), *user.OTPExpiresAt, 5*time.Second)
}

func TestOTPService_SendOTP_ReissueOverwritesSlot(t *testing.T) {
	env := newTestEnv()
	user := env.userRepo.addUser("user@example.com", "")

	stale := "000000"
	staleAt := time.Now().Add(-time.Minute)
	purpose := entity.PurposeLogin
	user.OTPCode = &stale
	user.OTPPurpose = &purpose
	user.OTPExpiresAt = &staleAt

	resp, err := env.svc.SendOTP(&entity.SendOTPRequest{
		Email:   "user@example.com",
		Purpose: entity.PurposeVerification,
	})

	require.NoError(t, err)
	assert.Equal(t, entity.PurposeVerification, *user.OTPPurpose)
	assert.Equal(t, resp.DevOTP, *user.OTPCode)
	assert.True(t, user.OTPExpiresAt.After(time.Now()))
}

func TestOTPService_SendOTP_ProductionHidesCode(t *testing.T) {
	env := newTestEnv()
	env.cfg.Application.Env = "production"

	resp, err := env.svc.SendOTP(&entity.SendOTPRequest{
		Email:   "applicant@example.com",
		Purpose: entity.PurposeApplication,
	})

	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Empty(t, resp.DevOTP)
	// The code still went out through the mailer.
	assert.Equal(t, 1, env.mail.otpCalls)
	assert.Len(t, env.mail.lastCode, 6)
}

func TestOTPService_VerifyOTP_Application_FullCycle(t *testing.T) {
	env := newTestEnv()

	sent, err := env.svc.SendOTP(&entity.SendOTPRequest{
		Email:   "applicant@example.com",
		Purpose: entity.PurposeApplication,
	})
	require.NoError(t, err)

	resp, err := env.svc.VerifyOTP(&entity.VerifyOTPRequest{
		Email:   "applicant@example.com",
		OTP:     sent.DevOTP,
		Purpose: entity.PurposeApplication,
	})

	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "applicant@example.com", resp.Email)
	assert.Empty(t, resp.Token, "application codes do not mint sessions")
}

func TestOTPService_VerifyOTP_Application_SingleUse(t *testing.T) {
	env := newTestEnv()

	sent, err := env.svc.SendOTP(&entity.SendOTPRequest{
		Email:   "applicant@example.com",
		Purpose: entity.PurposeApplication,
	})
	require.NoError(t, err)

	_, err = env.svc.VerifyOTP(&entity.VerifyOTPRequest{
		Email:   "applicant@example.com",
		OTP:     sent.DevOTP,
		Purpose: entity.PurposeApplication,
	})
	require.NoError(t, err)

	_, err = env.svc.VerifyOTP(&entity.VerifyOTPRequest{
		Email:   "applicant@example.com",
		OTP:     sent.DevOTP,
		Purpose: entity.PurposeApplication,
	})
	assert.ErrorIs(t, err, entity.ErrOTPNotFound)
}

func TestOTPService_VerifyOTP_Application_NotFound(t *testing.T) {
	env := newTestEnv()

	_, err := env.svc.VerifyOTP(&entity.VerifyOTPRequest{
		Email:   "applicant@example.com",
		OTP:     "123456",
		Purpose: entity.PurposeApplication,
	})

	assert.ErrorIs(t, err, entity.ErrOTPNotFound)
}

func TestOTPService_VerifyOTP_Application_PurposePartition(t *testing.T) {
	env := newTestEnv()

	sent, err := env.svc.SendOTP(&entity.SendOTPRequest{
		Email:   "applicant@example.com",
		Purpose: entity.PurposeApplication,
	})
	require.NoError(t, err)

	// The correct code under a different purpose is invisible.
	_, err = env.svc.VerifyOTP(&entity.VerifyOTPRequest{
		Email:   "applicant@example.com",
		OTP:     sent.DevOTP,
		Purpose: entity.PurposeVerification,
	})
	assert.ErrorIs(t, err, entity.ErrOTPNotFound)
}

func TestOTPService_VerifyOTP_Application_ExpiredBeatsCorrectCode(t *testing.T) {
	env := newTestEnv()

	record, err := env.otpRepo.Create(&entity.ApplicationOTP{
		Email:     "applicant@example.com",
		Code:      "123456",
		Purpose:   entity.PurposeApplication,
		ExpiresAt: time.Now().Add(-time.Minute),
	})
	require.NoError(t, err)

	_, err = env.svc.VerifyOTP(&entity.VerifyOTPRequest{
		Email:   "applicant@example.com",
		OTP:     record.Code,
		Purpose: entity.PurposeApplication,
	})

	assert.ErrorIs(t, err, entity.ErrOTPExpired)
	assert.Equal(t, 0, env.otpRepo.count(), "expired records are removed on discovery")
}

func TestOTPService_VerifyOTP_Application_MismatchDoesNotConsume(t *testing.T) {
	env := newTestEnv()

	sent, err := env.svc.SendOTP(&entity.SendOTPRequest{
		Email:   "applicant@example.com",
		Purpose: entity.PurposeApplication,
	})
	require.NoError(t, err)

	wrong := "999999"
	if wrong == sent.DevOTP {
		wrong = "000001"
	}

	_, err = env.svc.VerifyOTP(&entity.VerifyOTPRequest{
		Email:   "applicant@example.com",
		OTP:     wrong,
		Purpose: entity.PurposeApplication,
	})
	assert.ErrorIs(t, err, entity.ErrOTPMismatch)

	// Still redeemable with the correct code.
	resp, err := env.svc.VerifyOTP(&entity.VerifyOTPRequest{
		Email:   "applicant@example.com",
		OTP:     sent.DevOTP,
		Purpose: entity.PurposeApplication,
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
}

func TestOTPService_VerifyOTP_User_FullCycle(t *testing.T) {
	env := newTestEnv()
	user := env.userRepo.addUser("user@example.com", "")

	sent, err := env.svc.SendOTP(&entity.SendOTPRequest{
		Email:   "user@example.com",
		Purpose: entity.PurposeVerification,
	})
	require.NoError(t, err)

	resp, err := env.svc.VerifyOTP(&entity.VerifyOTPRequest{
		Email:   "user@example.com",
		OTP:     sent.DevOTP,
		Purpose: entity.PurposeVerification,
	})

	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "test-token", resp.Token)
	require.NotNil(t, resp.User)
	assert.Equal(t, user.ID, resp.User.ID)
	assert.Equal(t, 1, env.jwt.generateCalls)

	assert.True(t, user.EmailVerified)
	assert.False(t, user.HasPendingOTP(), "success must clear the slot")
}

func TestOTPService_VerifyOTP_User_PhoneChannel(t *testing.T) {
	env := newTestEnv()
	user := env.userRepo.addUser("user@example.com", "+1234567890")

	sent, err := env.svc.SendOTP(&entity.SendOTPRequest{
		Phone:   "+1234567890",
		Purpose: entity.PurposeLogin,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, env.mail.otpCalls)

	resp, err := env.svc.VerifyOTP(&entity.VerifyOTPRequest{
		Phone:   "+1234567890",
		OTP:     sent.DevOTP,
		Purpose: entity.PurposeLogin,
	})

	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.True(t, user.PhoneVerified)
	assert.False(t, user.EmailVerified, "only the used channel is marked verified")
}

func TestOTPService_VerifyOTP_User_UnknownSubject(t *testing.T) {
	env := newTestEnv()

	_, err := env.svc.VerifyOTP(&entity.VerifyOTPRequest{
		Email:   "nobody@example.com",
		OTP:     "123456",
		Purpose: entity.PurposeVerification,
	})

	assert.ErrorIs(t, err, entity.ErrOTPNotFound)
}

func TestOTPService_VerifyOTP_User_PurposeMismatch(t *testing.T) {
	env := newTestEnv()
	env.userRepo.addUser("user@example.com", "")

	sent, err := env.svc.SendOTP(&entity.SendOTPRequest{
		Email:   "user@example.com",
		Purpose: entity.PurposeVerification,
	})
	require.NoError(t, err)

	_, err = env.svc.VerifyOTP(&entity.VerifyOTPRequest{
		Email:   "user@example.com",
		OTP:     sent.DevOTP,
		Purpose: entity.PurposeLogin,
	})

	assert.ErrorIs(t, err, entity.ErrOTPNotFound)
}

func TestOTPService_VerifyOTP_User_ExpiredSlotStays(t *testing.T) {
	env := newTestEnv()
	user := env.userRepo.addUser("user@example.com", "")

	code := "123456"
	purpose := entity.PurposeVerification
	expiresAt := time.Now().Add(-time.Minute)
	user.OTPCode = &code
	user.OTPPurpose = &purpose
	user.OTPExpiresAt = &expiresAt

	// Even the correct code reports expiry.
	_, err := env.svc.VerifyOTP(&entity.VerifyOTPRequest{
		Email:   "user@example.com",
		OTP:     code,
		Purpose: purpose,
	})
	assert.ErrorIs(t, err, entity.ErrOTPExpired)

	// The expired slot is left in place until a fresh issue overwrites it.
	assert.True(t, user.HasPendingOTP())
}

func TestOTPService_VerifyOTP_User_MismatchDoesNotConsume(t *testing.T) {
	env := newTestEnv()
	user := env.userRepo.addUser("user@example.com", "")

	sent, err := env.svc.SendOTP(&entity.SendOTPRequest{
		Email:   "user@example.com",
		Purpose: entity.PurposeVerification,
	})
	require.NoError(t, err)

	wrong := "999999"
	if wrong == sent.DevOTP {
		wrong = "000001"
	}

	_, err = env.svc.VerifyOTP(&entity.VerifyOTPRequest{
		Email:   "user@example.com",
		OTP:     wrong,
		Purpose: entity.PurposeVerification,
	})
	assert.ErrorIs(t, err, entity.ErrOTPMismatch)
	assert.True(t, user.HasPendingOTP())

	resp, err := env.svc.VerifyOTP(&entity.VerifyOTPRequest{
		Email:   "user@example.com",
		OTP:     sent.DevOTP,
		Purpose: entity.PurposeVerification,
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
}

func TestOTPService_CheckUserOTP_Order(t *testing.T) {
	env := newTestEnv()
	user := env.userRepo.addUser("user@example.com", "")

	// No slot at all.
	err := env.svc.CheckUserOTP(user, entity.PurposeVerification, "123456")
	assert.ErrorIs(t, err, entity.ErrOTPNotFound)

	code := "123456"
	purpose := entity.PurposeVerification
	past := time.Now().Add(-time.Minute)
	user.OTPCode = &code
	user.OTPPurpose = &purpose
	user.OTPExpiresAt = &past

	// Expired and wrong code: expiry wins.
	err = env.svc.CheckUserOTP(user, entity.PurposeVerification, "654321")
	assert.ErrorIs(t, err, entity.ErrOTPExpired)

	future := time.Now().Add(time.Minute)
	user.OTPExpiresAt = &future

	err = env.svc.CheckUserOTP(user, entity.PurposeVerification, "654321")
	assert.ErrorIs(t, err, entity.ErrOTPMismatch)

	err = env.svc.CheckUserOTP(user, entity.PurposeVerification, "123456")
	assert.NoError(t, err)
	assert.True(t, user.HasPendingOTP(), "checking must not consume")
}

func TestOTPService_GenerateCode_LengthAndCharset(t *testing.T) {
	env := newTestEnv()
	svc := env.svc.(*otpService)

	for i := 0; i < 50; i++ {
		code, err := svc.generateCode()
		require.NoError(t, err)
		require.Len(t, code, 6)
		for _, c := range code {
			assert.True(t, c >= '0' && c <= '9', "code %q must be numeric", code)
		}
	}
}
