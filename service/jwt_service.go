package service

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"loan-auth/config"
	"loan-auth/entity"
	"loan-auth/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
)

// JWTService interface defines session-credential operations
type JWTService interface {
	GenerateToken(user *entity.User) (*entity.AuthResponse, error)
	ValidateToken(tokenString string) (*jwt.Token, error)
	GetUserFromToken(token *jwt.Token) (*entity.User, error)
	RevokeToken(tokenString string) error
	RevokeAllUserTokens(userID int) error
}

// jwtService implements JWTService interface
type jwtService struct {
	cfg          *config.Config
	logger       *logger.Logger
	tokenService *TokenService
}

// JWTClaims represents the JWT claims
type JWTClaims struct {
	UserID int    `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// NewJWTService creates a new JWT service instance
func NewJWTService(cfg *config.Config, logger *logger.Logger, tokenService *TokenService) JWTService {
	return &jwtService{
		cfg:          cfg,
		logger:       logger,
		tokenService: tokenService,
	}
}

// GenerateToken generates a signed session token for the user
func (s *jwtService) GenerateToken(user *entity.User) (*entity.AuthResponse, error) {
	expiresAt := time.Now().Add(s.cfg.JWT.ExpirationTime)

	claims := JWTClaims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    "loan-auth-service",
			Subject:   fmt.Sprintf("user:%d", user.ID),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.cfg.JWT.Secret))
	if err != nil {
		s.logger.Errorw("Failed to sign JWT token", "user_id", user.ID, "error", err)
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	if s.tokenService != nil {
		tokenHash := s.hashToken(tokenString)
		tokenInfo := &TokenInfo{
			UserID:    user.ID,
			TokenHash: tokenHash,
			IssuedAt:  time.Now(),
			ExpiresAt: expiresAt,
			LastUsed:  time.Now(),
		}

		if err := s.tokenService.StoreToken(tokenHash, tokenInfo, s.cfg.JWT.ExpirationTime); err != nil {
			// Token generation still succeeds; the session just won't be revocable.
			s.logger.Warnw("Failed to store token in Redis", "user_id", user.ID, "error", err)
		}
	}

	s.logger.Infow("Session token generated", "user_id", user.ID, "expires_at", expiresAt)

	return &entity.AuthResponse{
		Token:     tokenString,
		User:      *user.ToResponse(),
		ExpiresAt: expiresAt,
		Message:   "Authentication successful",
	}, nil
}

// ValidateToken validates a session token
func (s *jwtService) ValidateToken(tokenString string) (*jwt.Token, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.JWT.Secret), nil
	})

	if err != nil {
		s.logger.Warnw("Failed to validate JWT token", "error", err)
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	if s.tokenService != nil {
		tokenHash := s.hashToken(tokenString)
		if _, err := s.tokenService.ValidateToken(tokenHash); err != nil {
			s.logger.Warnw("Token not found in Redis or expired", "error", err)
			return nil, fmt.Errorf("token session expired")
		}
	}

	return token, nil
}

// GetUserFromToken extracts user identity from a validated token
func (s *jwtService) GetUserFromToken(token *jwt.Token) (*entity.User, error) {
	claims, ok := token.Claims.(*JWTClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}

	return &entity.User{
		ID:       claims.UserID,
		Email:    claims.Email,
		IsActive: true,
	}, nil
}

// RevokeToken revokes a specific token (logout)
func (s *jwtService) RevokeToken(tokenString string) error {
	if s.tokenService == nil {
		return fmt.Errorf("token service not available")
	}

	return s.tokenService.RevokeToken(s.hashToken(tokenString))
}

// RevokeAllUserTokens revokes all tokens for a user (logout from all devices)
func (s *jwtService) RevokeAllUserTokens(userID int) error {
	if s.tokenService == nil {
		return fmt.Errorf("token service not available")
	}

	return s.tokenService.RevokeAllUserTokens(userID)
}

// hashToken creates a hash of the token for storage in Redis
func (s *jwtService) hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
