package services

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"hortti/internal/models"
	"hortti/internal/repositories"
)

// UserUpdateInput carries the optional fields of a profile update. Nil
// means "leave unchanged".
type UserUpdateInput struct {
	Name     *string
	Email    *string
	Password *string
}

// UserService handles profile management for existing accounts.
type UserService struct {
	userRepo repositories.UserRepository
}

// NewUserService creates a new UserService.
func NewUserService(userRepo repositories.UserRepository) *UserService {
	return &UserService{
		userRepo: userRepo,
	}
}

// Update applies a partial profile update. An email change re-runs the
// uniqueness check against other accounts; a password change is re-hashed
// before it reaches the store.
func (s *UserService) Update(id uint, input UserUpdateInput) (*models.SafeUser, error) {
	existing, err := s.userRepo.FindByID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user %d: %w", id, err)
	}
	if existing == nil {
		return nil, ErrUserNotFound
	}

	if input.Email != nil && *input.Email != existing.Email {
		other, err := s.userRepo.FindByEmail(*input.Email)
		if err != nil {
			return nil, fmt.Errorf("failed to check email: %w", err)
		}
		if other != nil && other.ID != id {
			return nil, ErrEmailTaken
		}
	}

	fields := repositories.UserUpdate{
		Name:  input.Name,
		Email: input.Email,
	}
	if input.Password != nil {
		hashed, err := bcrypt.GenerateFromPassword([]byte(*input.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		h := string(hashed)
		fields.Password = &h
	}

	if err := s.userRepo.Update(id, fields); err != nil {
		return nil, fmt.Errorf("failed to update user %d: %w", id, err)
	}

	updated, err := s.userRepo.FindByID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload user %d: %w", id, err)
	}
	if updated == nil {
		return nil, ErrUserNotFound
	}
	return updated.Safe(), nil
}

// Remove deletes the account. Products are not owned by users, so nothing
// cascades.
func (s *UserService) Remove(id uint) error {
	found, err := s.userRepo.Delete(id)
	if err != nil {
		return fmt.Errorf("failed to delete user %d: %w", id, err)
	}
	if !found {
		return ErrUserNotFound
	}
	return nil
}
