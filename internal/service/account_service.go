package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"picboard/internal/model"
	"picboard/internal/oauth"
	"picboard/internal/repository"
)

const bcryptCost = 10

// MaxFailedAccessAttempts is the number of failed logins that triggers a lockout.
const MaxFailedAccessAttempts = 5

var (
	// ErrEmailTaken is returned when registering with an email that is in use.
	ErrEmailTaken = errors.New("email already taken")
	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")
)

// SignInResult reports the outcome of a sign-in attempt. RemainingTries is
// only meaningful on a failed, not-locked-out attempt.
type SignInResult struct {
	Succeeded      bool
	LockedOut      bool
	RemainingTries int
}

// RegisterInput is the validated payload for local registration.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Username  string
	Password  string
}

// AccountService handles registration, credential verification with lockout
// tracking, and external login linking.
type AccountService interface {
	Register(ctx context.Context, input RegisterInput) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	PasswordSignIn(ctx context.Context, user *model.User, password string) (SignInResult, error)
	GetOrCreateExternalUser(ctx context.Context, info *oauth.UserInfo) (*model.User, error)
	AddExternalLogin(ctx context.Context, user *model.User, provider, providerKey string) error
	ExternalLoginSignIn(ctx context.Context, provider, providerKey string) (*model.User, SignInResult, error)
}

type accountService struct {
	userRepo      repository.UserRepository
	lockoutWindow time.Duration
}

// NewAccountService creates a new account service.
func NewAccountService(userRepo repository.UserRepository, lockoutWindow time.Duration) AccountService {
	return &accountService{
		userRepo:      userRepo,
		lockoutWindow: lockoutWindow,
	}
}

// Register creates a new user with a hashed password. Lockout stays disabled
// for self-registered users.
func (s *accountService) Register(ctx context.Context, input RegisterInput) (*model.User, error) {
	existing, err := s.userRepo.FindByEmail(ctx, input.Email)
	if err == nil && existing != nil {
		return nil, ErrEmailTaken
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("check user existence: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Email:          input.Email,
		Username:       input.Username,
		FirstName:      input.FirstName,
		LastName:       input.LastName,
		PasswordHash:   string(hashedPassword),
		LockoutEnabled: false,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

// FindByEmail looks up a user, returning ErrUserNotFound when absent.
func (s *accountService) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return user, nil
}

// PasswordSignIn verifies the password with lockout tracking. A wrong password
// increments the failure counter; the counter resets on success. RemainingTries
// reflects the count after the failed attempt was recorded.
func (s *accountService) PasswordSignIn(ctx context.Context, user *model.User, password string) (SignInResult, error) {
	now := time.Now()
	if user.IsLockedOut(now) {
		return SignInResult{LockedOut: true}, nil
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		if err := s.userRepo.RecordAccessFailure(ctx, user, MaxFailedAccessAttempts, s.lockoutWindow); err != nil {
			return SignInResult{}, fmt.Errorf("record access failure: %w", err)
		}
		return SignInResult{
			LockedOut:      user.IsLockedOut(now),
			RemainingTries: MaxFailedAccessAttempts - user.AccessFailedCount,
		}, nil
	}

	if err := s.userRepo.ResetAccessFailures(ctx, user); err != nil {
		return SignInResult{}, fmt.Errorf("reset access failures: %w", err)
	}
	return SignInResult{Succeeded: true}, nil
}

// GetOrCreateExternalUser resolves the local user for provider claims,
// creating one on first external login. The email claim is preferred, the
// provider subject id is the fallback identity key.
func (s *accountService) GetOrCreateExternalUser(ctx context.Context, info *oauth.UserInfo) (*model.User, error) {
	email := info.Email
	if email == "" {
		email = info.Subject
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find user by email: %w", err)
	}

	user = &model.User{
		Email:          email,
		Username:       email,
		FirstName:      info.FirstName,
		LastName:       info.LastName,
		LockoutEnabled: false,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create external user: %w", err)
	}
	return user, nil
}

// AddExternalLogin links the external identity to the user unless the link
// already exists.
func (s *accountService) AddExternalLogin(ctx context.Context, user *model.User, provider, providerKey string) error {
	linked, err := s.userRepo.HasExternalLogin(ctx, provider, providerKey)
	if err != nil {
		return fmt.Errorf("check external login: %w", err)
	}
	if linked {
		return nil
	}

	login := &model.ExternalLogin{
		Provider:    provider,
		ProviderKey: providerKey,
		UserID:      user.ID,
	}
	if err := s.userRepo.AddExternalLogin(ctx, login); err != nil {
		return fmt.Errorf("add external login: %w", err)
	}
	return nil
}

// ExternalLoginSignIn signs in through a linked external identity, bypassing
// password verification but still honoring an active lockout.
func (s *accountService) ExternalLoginSignIn(ctx context.Context, provider, providerKey string) (*model.User, SignInResult, error) {
	user, err := s.userRepo.FindByExternalLogin(ctx, provider, providerKey)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, SignInResult{}, nil
		}
		return nil, SignInResult{}, fmt.Errorf("find user by external login: %w", err)
	}

	if user.IsLockedOut(time.Now()) {
		return user, SignInResult{LockedOut: true}, nil
	}
	return user, SignInResult{Succeeded: true}, nil
}
