package test

import (
	"fmt"
	"os"
	"testing"
	"time"

	"loan-auth/entity"
	"loan-auth/migrations"
	"loan-auth/pkg/logger"
	"loan-auth/repository"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

// TestDB wraps a test database connection
type TestDB struct {
	DB *sqlx.DB
}

// SetupTestDB creates a test database and runs migrations
func SetupTestDB(t *testing.T) *TestDB {
	// Use environment variables or defaults for test database
	host := getEnvOrDefault("TEST_DB_HOST", "localhost")
	port := getEnvOrDefault("TEST_DB_PORT", "5432")
	user := getEnvOrDefault("TEST_DB_USER", "loan_auth")
	password := getEnvOrDefault("TEST_DB_PASSWORD", "loan_auth")

	// Get base database name and add _test suffix
	baseDBName := getEnvOrDefault("POSTGRES_DB", "loan_auth")
	dbName := getEnvOrDefault("TEST_DB_NAME", baseDBName+"_test")

	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbName)

	db, err := sqlx.Connect("postgres", connStr)
	require.NoError(t, err, "Failed to connect to test database")

	// Run migrations - check multiple possible paths
	migrationPaths := []string{"./migrations", "../migrations", "/app/migrations"}
	for _, path := range migrationPaths {
		err = migrations.RunMigrations(db.DB, path)
		if err == nil {
			break
		}
	}
	require.NoError(t, err, "Failed to run test migrations")

	return &TestDB{DB: db}
}

// Close closes the test database connection
func (tdb *TestDB) Close() {
	if tdb.DB != nil {
		tdb.DB.Close()
	}
}

// CleanTables removes all data from tables (for test isolation)
func (tdb *TestDB) CleanTables(t *testing.T) {
	_, err := tdb.DB.Exec("TRUNCATE TABLE application_otps, users RESTART IDENTITY CASCADE")
	require.NoError(t, err, "Failed to clean test tables")
}

// CreateTestUser creates a test user in the database
func (tdb *TestDB) CreateTestUser(t *testing.T, email string) *entity.User {
	user := &entity.User{
		Email:    email,
		IsActive: true,
	}

	userRepo := repository.NewUserRepository(tdb.DB)
	createdUser, err := userRepo.Create(user)
	require.NoError(t, err, "Failed to create test user")

	return createdUser
}

// CreateTestApplicationOTP creates a standalone application OTP in the database
func (tdb *TestDB) CreateTestApplicationOTP(t *testing.T, email, code string, expiresAt time.Time) *entity.ApplicationOTP {
	otp := &entity.ApplicationOTP{
		Email:     email,
		Code:      code,
		Purpose:   entity.PurposeApplication,
		ExpiresAt: expiresAt,
	}

	otpRepo := repository.NewApplicationOTPRepository(tdb.DB)
	createdOTP, err := otpRepo.Create(otp)
	require.NoError(t, err, "Failed to create test application OTP")

	return createdOTP
}

// CreateExpiredApplicationOTP creates an expired application OTP for testing
func (tdb *TestDB) CreateExpiredApplicationOTP(t *testing.T, email, code string) *entity.ApplicationOTP {
	return tdb.CreateTestApplicationOTP(t, email, code, time.Now().Add(-5*time.Minute))
}

// CreateValidApplicationOTP creates a valid application OTP that expires in 2 minutes
func (tdb *TestDB) CreateValidApplicationOTP(t *testing.T, email, code string) *entity.ApplicationOTP {
	return tdb.CreateTestApplicationOTP(t, email, code, time.Now().Add(2*time.Minute))
}

// GetTestLogger creates a test logger
func GetTestLogger() *logger.Logger {
	log, err := logger.New("debug", "development")
	if err != nil {
		panic(fmt.Sprintf("Failed to create test logger: %v", err))
	}
	return log
}

// AssertUserExists asserts that a user exists with the given email
func (tdb *TestDB) AssertUserExists(t *testing.T, email string) *entity.User {
	userRepo := repository.NewUserRepository(tdb.DB)
	user, err := userRepo.GetByEmail(email)
	require.NoError(t, err, "Failed to get user")
	require.NotNil(t, user, "User should exist")
	return user
}

// AssertUserCount asserts the total number of users in the database
func (tdb *TestDB) AssertUserCount(t *testing.T, expectedCount int) {
	var count int
	err := tdb.DB.Get(&count, "SELECT COUNT(*) FROM users")
	require.NoError(t, err, "Failed to count users")
	require.Equal(t, expectedCount, count, "User count mismatch")
}

// AssertApplicationOTPVerified asserts that a standalone OTP is marked as consumed
func (tdb *TestDB) AssertApplicationOTPVerified(t *testing.T, otpID int) {
	var verified bool
	err := tdb.DB.Get(&verified, "SELECT verified FROM application_otps WHERE id = $1", otpID)
	require.NoError(t, err, "Failed to get OTP status")
	require.True(t, verified, "OTP should be marked as verified")
}

// AssertApplicationOTPNotVerified asserts that a standalone OTP is still redeemable
func (tdb *TestDB) AssertApplicationOTPNotVerified(t *testing.T, otpID int) {
	var verified bool
	err := tdb.DB.Get(&verified, "SELECT verified FROM application_otps WHERE id = $1", otpID)
	require.NoError(t, err, "Failed to get OTP status")
	require.False(t, verified, "OTP should not be marked as verified")
}

// AssertUserOTPSlot asserts the embedded slot holds a pending code for a purpose
func (tdb *TestDB) AssertUserOTPSlot(t *testing.T, userID int, expectedPurpose string) {
	var purpose *string
	err := tdb.DB.Get(&purpose, "SELECT otp_purpose FROM users WHERE id = $1", userID)
	require.NoError(t, err, "Failed to get user OTP slot")
	require.NotNil(t, purpose, "OTP slot should be populated")
	require.Equal(t, expectedPurpose, *purpose, "OTP purpose mismatch")
}

// AssertUserOTPSlotEmpty asserts the embedded slot was cleared
func (tdb *TestDB) AssertUserOTPSlotEmpty(t *testing.T, userID int) {
	var code *string
	err := tdb.DB.Get(&code, "SELECT otp_code FROM users WHERE id = $1", userID)
	require.NoError(t, err, "Failed to get user OTP slot")
	require.Nil(t, code, "OTP slot should be empty")
}

// GetActiveApplicationOTPCount returns the number of unconsumed, non-expired OTPs for an email
func (tdb *TestDB) GetActiveApplicationOTPCount(t *testing.T, email string) int {
	var count int
	err := tdb.DB.Get(&count,
		"SELECT COUNT(*) FROM application_otps WHERE email = $1 AND verified = FALSE AND expires_at > NOW()",
		email)
	require.NoError(t, err, "Failed to count active OTPs")
	return count
}

// GetTotalApplicationOTPCount returns the total number of OTPs for an email
func (tdb *TestDB) GetTotalApplicationOTPCount(t *testing.T, email string) int {
	var count int
	err := tdb.DB.Get(&count, "SELECT COUNT(*) FROM application_otps WHERE email = $1", email)
	require.NoError(t, err, "Failed to count total OTPs")
	return count
}

// GenerateTestEmail generates a test email address with optional suffix
func GenerateTestEmail(suffix string) string {
	if suffix == "" {
		return "applicant@example.com"
	}
	return fmt.Sprintf("applicant%s@example.com", suffix)
}

// GenerateTestOTPCode generates a test OTP code
func GenerateTestOTPCode(suffix string) string {
	if suffix == "" {
		return "123456"
	}
	return fmt.Sprintf("12345%s", suffix)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
