package service

import (
	"errors"
	"fmt"
	"time"

	"loan-auth/config"
	"loan-auth/entity"
	"loan-auth/pkg/logger"
	"loan-auth/pkg/mailer"

	"github.com/golang-jwt/jwt/v5"
)

// fakeUserRepo is an in-memory UserRepository
type fakeUserRepo struct {
	users    map[int]*entity.User
	nextID   int
	resetErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[int]*entity.User{}}
}

func (r *fakeUserRepo) addUser(email, phone string) *entity.User {
	r.nextID++
	u := &entity.User{
		ID:        r.nextID,
		Email:     email,
		IsActive:  true,
		CreatedAt: time.Now(),
	}
	if phone != "" {
		u.Phone = &phone
	}
	r.users[u.ID] = u
	return u
}

func (r *fakeUserRepo) Create(user *entity.User) (*entity.User, error) {
	r.nextID++
	user.ID = r.nextID
	user.CreatedAt = time.Now()
	user.IsActive = true
	r.users[user.ID] = user
	return user, nil
}

func (r *fakeUserRepo) GetByID(id int) (*entity.User, error) {
	if u, ok := r.users[id]; ok && u.IsActive {
		return u, nil
	}
	return nil, nil
}

func (r *fakeUserRepo) GetByEmail(email string) (*entity.User, error) {
	for _, u := range r.users {
		if u.Email == email && u.IsActive {
			return u, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) GetByPhone(phone string) (*entity.User, error) {
	for _, u := range r.users {
		if u.Phone != nil && *u.Phone == phone && u.IsActive {
			return u, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) SetOTP(userID int, code, purpose string, expiresAt time.Time) error {
	u, ok := r.users[userID]
	if !ok {
		return fmt.Errorf("user not found or inactive")
	}
	u.OTPCode = &code
	u.OTPPurpose = &purpose
	u.OTPExpiresAt = &expiresAt
	return nil
}

func (r *fakeUserRepo) ClearOTP(userID int) error {
	u, ok := r.users[userID]
	if !ok {
		return fmt.Errorf("user not found")
	}
	u.OTPCode = nil
	u.OTPPurpose = nil
	u.OTPExpiresAt = nil
	return nil
}

func (r *fakeUserRepo) MarkEmailVerified(userID int) error {
	if u, ok := r.users[userID]; ok {
		u.EmailVerified = true
	}
	return nil
}

func (r *fakeUserRepo) MarkPhoneVerified(userID int) error {
	if u, ok := r.users[userID]; ok {
		u.PhoneVerified = true
	}
	return nil
}

func (r *fakeUserRepo) ResetPassword(userID int, passwordHash string) error {
	if r.resetErr != nil {
		return r.resetErr
	}
	u, ok := r.users[userID]
	if !ok {
		return fmt.Errorf("user not found or inactive")
	}
	u.PasswordHash = passwordHash
	u.OTPCode = nil
	u.OTPPurpose = nil
	u.OTPExpiresAt = nil
	return nil
}

// fakeAppOTPRepo is an in-memory ApplicationOTPRepository
type fakeAppOTPRepo struct {
	records []*entity.ApplicationOTP
	nextID  int
}

func newFakeAppOTPRepo() *fakeAppOTPRepo {
	return &fakeAppOTPRepo{}
}

func (r *fakeAppOTPRepo) Create(otp *entity.ApplicationOTP) (*entity.ApplicationOTP, error) {
	r.nextID++
	otp.ID = r.nextID
	otp.CreatedAt = time.Now()
	otp.Verified = false
	r.records = append(r.records, otp)
	return otp, nil
}

func (r *fakeAppOTPRepo) FindActive(email, phone, purpose string) (*entity.ApplicationOTP, error) {
	for i := len(r.records) - 1; i >= 0; i-- {
		rec := r.records[i]
		if rec.Purpose != purpose || rec.Verified {
			continue
		}
		if (rec.Email != "" && rec.Email == email) || (rec.Phone != "" && rec.Phone == phone) {
			return rec, nil
		}
	}
	return nil, nil
}

func (r *fakeAppOTPRepo) DeleteBySubject(email, phone, purpose string) error {
	kept := r.records[:0]
	for _, rec := range r.records {
		match := rec.Purpose == purpose &&
			((rec.Email != "" && rec.Email == email) || (rec.Phone != "" && rec.Phone == phone))
		if !match {
			kept = append(kept, rec)
		}
	}
	r.records = kept
	return nil
}

func (r *fakeAppOTPRepo) MarkVerified(id int) error {
	for _, rec := range r.records {
		if rec.ID == id {
			if rec.Verified {
				return fmt.Errorf("application OTP not found or already verified")
			}
			rec.Verified = true
			return nil
		}
	}
	return fmt.Errorf("application OTP not found or already verified")
}

func (r *fakeAppOTPRepo) Delete(id int) error {
	kept := r.records[:0]
	for _, rec := range r.records {
		if rec.ID != id {
			kept = append(kept, rec)
		}
	}
	r.records = kept
	return nil
}

func (r *fakeAppOTPRepo) count() int {
	return len(r.records)
}

// fakeMailer counts delivery attempts instead of sending anything
type fakeMailer struct {
	sendCalls   int
	otpCalls    int
	lastTo      string
	lastCode    string
	lastPurpose string
	err         error
}

func (m *fakeMailer) Send(to, subject, htmlBody, textBody string) (*mailer.Result, error) {
	m.sendCalls++
	m.lastTo = to
	if m.err != nil {
		return nil, m.err
	}
	return &mailer.Result{MessageID: "test-message-id"}, nil
}

func (m *fakeMailer) SendOTP(to, code, purpose string) (*mailer.Result, error) {
	m.otpCalls++
	m.lastTo = to
	m.lastCode = code
	m.lastPurpose = purpose
	if m.err != nil {
		return nil, m.err
	}
	return &mailer.Result{MessageID: "test-message-id"}, nil
}

// fakeJWTService mints a fixed token
type fakeJWTService struct {
	generateCalls int
}

func (s *fakeJWTService) GenerateToken(user *entity.User) (*entity.AuthResponse, error) {
	s.generateCalls++
	return &entity.AuthResponse{
		Token:     "test-token",
		User:      *user.ToResponse(),
		ExpiresAt: time.Now().Add(time.Hour),
		Message:   "Authentication successful",
	}, nil
}

func (s *fakeJWTService) ValidateToken(tokenString string) (*jwt.Token, error) {
	return nil, errors.New("not implemented")
}

func (s *fakeJWTService) GetUserFromToken(token *jwt.Token) (*entity.User, error) {
	return nil, errors.New("not implemented")
}

func (s *fakeJWTService) RevokeToken(tokenString string) error { return nil }

func (s *fakeJWTService) RevokeAllUserTokens(userID int) error { return nil }

func testConfig() *config.Config {
	return &config.Config{
		Application: config.Application{Env: "development"},
		OTP: config.OTP{
			Length:         6,
			ExpirationTime: 10 * time.Minute,
		},
	}
}

func testLogger() *logger.Logger {
	log, err := logger.New("error", "production")
	if err != nil {
		panic(fmt.Sprintf("failed to create test logger: %v", err))
	}
	return log
}

type testEnv struct {
	svc      OTPService
	userRepo *fakeUserRepo
	otpRepo  *fakeAppOTPRepo
	mail     *fakeMailer
	jwt      *fakeJWTService
	cfg      *config.Config
}

func newTestEnv() *testEnv {
	env := &testEnv{
		userRepo: newFakeUserRepo(),
		otpRepo:  newFakeAppOTPRepo(),
		mail:     &fakeMailer{},
		jwt:      &fakeJWTService{},
		cfg:      testConfig(),
	}
	env.svc = NewOTPService(env.userRepo, env.otpRepo, env.mail, env.jwt, env.cfg, testLogger())
	return env
}
