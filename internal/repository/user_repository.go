package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"picboard/internal/model"
)

// UserRepository defines user persistence operations, including the lockout
// counters and external login links.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByExternalLogin(ctx context.Context, provider, providerKey string) (*model.User, error)
	HasExternalLogin(ctx context.Context, provider, providerKey string) (bool, error)
	AddExternalLogin(ctx context.Context, login *model.ExternalLogin) error
	RecordAccessFailure(ctx context.Context, user *model.User, maxAttempts int, lockoutWindow time.Duration) error
	ResetAccessFailures(ctx context.Context, user *model.User) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create creates a new user.
func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// FindByEmail finds a user by email.
func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID finds a user by ID.
func (r *userRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByExternalLogin resolves the user linked to (provider, providerKey).
func (r *userRepository) FindByExternalLogin(ctx context.Context, provider, providerKey string) (*model.User, error) {
	var login model.ExternalLogin
	err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_key = ?", provider, providerKey).
		First(&login).Error
	if err != nil {
		return nil, err
	}
	return r.FindByID(ctx, login.UserID)
}

// HasExternalLogin reports whether the (provider, providerKey) pair is linked already.
func (r *userRepository) HasExternalLogin(ctx context.Context, provider, providerKey string) (bool, error) {
	var login model.ExternalLogin
	err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_key = ?", provider, providerKey).
		First(&login).Error
	if err == nil {
		return true, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return false, err
}

// AddExternalLogin links an external identity to a user.
func (r *userRepository) AddExternalLogin(ctx context.Context, login *model.ExternalLogin) error {
	return r.db.WithContext(ctx).Create(login).Error
}

// RecordAccessFailure increments the failed access counter. When a user with
// lockout enabled reaches maxAttempts, the lockout window starts and the
// counter resets. The passed user is updated in place.
func (r *userRepository) RecordAccessFailure(ctx context.Context, user *model.User, maxAttempts int, lockoutWindow time.Duration) error {
	user.AccessFailedCount++
	if user.LockoutEnabled && user.AccessFailedCount >= maxAttempts {
		end := time.Now().Add(lockoutWindow)
		user.LockoutEnd = &end
		user.AccessFailedCount = 0
	}

	return r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]interface{}{
			"access_failed_count": user.AccessFailedCount,
			"lockout_end":         user.LockoutEnd,
		}).Error
}

// ResetAccessFailures clears the failure counter after a successful sign-in.
func (r *userRepository) ResetAccessFailures(ctx context.Context, user *model.User) error {
	user.AccessFailedCount = 0
	user.LockoutEnd = nil

	return r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]interface{}{
			"access_failed_count": 0,
			"lockout_end":         nil,
		}).Error
}
