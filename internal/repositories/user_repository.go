package repositories

import "hortti/internal/models"

// UserUpdate carries the optional fields of a user profile update. A nil
// field means "leave unchanged"; fields are applied one by one, never via
// a blanket save. Password must already be hashed by the caller.
type UserUpdate struct {
	Name     *string
	Email    *string
	Password *string
}

// UserRepository defines the interface for user data access.
// Lookups return (nil, nil) when no matching row exists, so callers can
// distinguish "absent" from a storage failure.
type UserRepository interface {
	Create(user *models.User) error
	FindByEmail(email string) (*models.User, error)
	FindByID(id uint) (*models.User, error)
	Update(id uint, fields UserUpdate) error
	// Delete reports whether a row with the given id existed.
	Delete(id uint) (bool, error)
}
