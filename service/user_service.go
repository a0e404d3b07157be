package service

import (
	"fmt"

	"loan-auth/entity"
	"loan-auth/pkg/logger"
	"loan-auth/repository"
)

// UserService interface defines user profile operations
type UserService interface {
	GetByID(id int) (*entity.UserResponse, error)
}

// userService implements UserService interface
type userService struct {
	userRepo repository.UserRepository
	logger   *logger.Logger
}

// NewUserService creates a new user service instance
func NewUserService(userRepo repository.UserRepository, logger *logger.Logger) UserService {
	return &userService{
		userRepo: userRepo,
		logger:   logger,
	}
}

// GetByID retrieves a user profile by ID
func (s *userService) GetByID(id int) (*entity.UserResponse, error) {
	user, err := s.userRepo.GetByID(id)
	if err != nil {
		s.logger.Errorw("Failed to get user by ID", "user_id", id, "error", err)
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if user == nil {
		return nil, &entity.NotFoundError{Resource: "user"}
	}

	return user.ToResponse(), nil
}
