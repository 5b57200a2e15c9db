// Package user provides CRUD operations for managing user accounts.
// Global role changes are deliberately absent here: they go through the
// audited access.Manager mutation path, never through a plain update.
package user

import (
	"errors"

	"gorm.io/gorm"

	"github.com/pharmview/pharmview/internal/db/models"
)

const (
	usernameQueryPattern = "username = ?"
)

var (
	// ErrUserNotFound is returned when a user is not found.
	ErrUserNotFound = errors.New("user not found")
	// ErrUsernameEmpty is returned when attempting to create a user with an empty username.
	ErrUsernameEmpty = errors.New("username cannot be empty")
	// ErrUserAlreadyExists is returned when a user with the same username already exists.
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// GetByID retrieves a user by their ID.
func GetByID(db *gorm.DB, id uint64) (*models.User, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var user models.User
	result := db.First(&user, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, result.Error
	}

	return &user, nil
}

// GetByUsername retrieves a user by their username.
func GetByUsername(db *gorm.DB, username string) (*models.User, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if username == "" {
		return nil, ErrUsernameEmpty
	}

	var user models.User
	result := db.Where(usernameQueryPattern, username).First(&user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, result.Error
	}

	return &user, nil
}

// GetByExternalID retrieves a user by their OIDC subject identifier.
func GetByExternalID(db *gorm.DB, externalID string) (*models.User, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var user models.User
	result := db.Where("external_id = ? AND auth_source = ?", externalID, models.AuthSourceOIDC).First(&user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, result.Error
	}

	return &user, nil
}

// GetAll retrieves all users, ordered by username.
func GetAll(db *gorm.DB) ([]models.User, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var users []models.User
	result := db.Order("username").Find(&users)
	if result.Error != nil {
		return nil, result.Error
	}

	return users, nil
}

// Create creates a new user in the database.
func Create(db *gorm.DB, user *models.User) (*models.User, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if user.Username == "" {
		return nil, ErrUsernameEmpty
	}

	// Check if a user with this username already exists
	var existing models.User
	result := db.Where(usernameQueryPattern, user.Username).First(&existing)
	if result.Error == nil {
		return nil, ErrUserAlreadyExists
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, result.Error
	}

	result = db.Create(user)
	if result.Error != nil {
		return nil, result.Error
	}

	return user, nil
}

// UpdateProfile updates a user's profile fields by ID.
func UpdateProfile(db *gorm.DB, id uint64, email, firstName, lastName string) (*models.User, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var user models.User
	result := db.First(&user, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, result.Error
	}

	user.Email = email
	user.FirstName = firstName
	user.LastName = lastName
	result = db.Save(&user)
	if result.Error != nil {
		return nil, result.Error
	}

	return &user, nil
}

// UpdatePassword sets a new Argon2id password hash for a local user.
func UpdatePassword(db *gorm.DB, id uint64, hashedPassword string) error {
	if db == nil {
		return ErrDBNil
	}

	result := db.Model(&models.User{}).Where("id = ?", id).Update("password", hashedPassword)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}

	return nil
}

// UpdateTOTPSecret stores or clears the user's TOTP shared secret.
func UpdateTOTPSecret(db *gorm.DB, id uint64, secret string) error {
	if db == nil {
		return ErrDBNil
	}

	result := db.Model(&models.User{}).Where("id = ?", id).Update("totp_secret", secret)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}

	return nil
}

// SetActive activates or deactivates a user account.
func SetActive(db *gorm.DB, id uint64, active bool) error {
	if db == nil {
		return ErrDBNil
	}

	result := db.Model(&models.User{}).Where("id = ?", id).Update("active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}

	return nil
}
