package repositories

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"hortti/internal/models"
)

// GORMUserRepository is a GORM implementation of UserRepository.
type GORMUserRepository struct {
	db *gorm.DB
}

// NewGORMUserRepository creates a new instance of GORMUserRepository.
func NewGORMUserRepository(db *gorm.DB) *GORMUserRepository {
	return &GORMUserRepository{
		db: db,
	}
}

// Create persists a new user. The email uniqueness constraint is enforced
// by the database; callers wanting a clean conflict error should check
// FindByEmail first.
func (r *GORMUserRepository) Create(user *models.User) error {
	if err := r.db.Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// FindByEmail retrieves a user by email, including the password hash.
func (r *GORMUserRepository) FindByEmail(email string) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by email %s: %w", email, err)
	}
	return &user, nil
}

// FindByID retrieves a user by their ID.
func (r *GORMUserRepository) FindByID(id uint) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by ID %d: %w", id, err)
	}
	return &user, nil
}

// Update applies the non-nil fields to the user row.
func (r *GORMUserRepository) Update(id uint, fields UserUpdate) error {
	changes := map[string]any{}
	if fields.Name != nil {
		changes["name"] = *fields.Name
	}
	if fields.Email != nil {
		changes["email"] = *fields.Email
	}
	if fields.Password != nil {
		changes["password"] = *fields.Password
	}
	if len(changes) == 0 {
		return nil
	}
	if err := r.db.Model(&models.User{}).Where("id = ?", id).Updates(changes).Error; err != nil {
		return fmt.Errorf("failed to update user %d: %w", id, err)
	}
	return nil
}

// Delete removes the user row, reporting whether it existed.
func (r *GORMUserRepository) Delete(id uint) (bool, error) {
	res := r.db.Delete(&models.User{}, "id = ?", id)
	if res.Error != nil {
		return false, fmt.Errorf("failed to delete user %d: %w", id, res.Error)
	}
	return res.RowsAffected > 0, nil
}
