package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yukikurage/timesheet-management-api/internal/constants"
	"github.com/yukikurage/timesheet-management-api/internal/models"
	"github.com/yukikurage/timesheet-management-api/internal/repository"
	"github.com/yukikurage/timesheet-management-api/internal/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AuthOptions tunes password hashing and OTP lifetime.
type AuthOptions struct {
	BcryptCost int
	OTPTTL     time.Duration
}

// AuthService handles authentication related business logic.
type AuthService struct {
	userRepo repository.UserRepository
	mailer   Mailer
	opts     AuthOptions
	now      func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repository.UserRepository, mailer Mailer, opts AuthOptions) *AuthService {
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.OTPTTL == 0 {
		opts.OTPTTL = 10 * time.Minute
	}
	return &AuthService{
		userRepo: userRepo,
		mailer:   mailer,
		opts:     opts,
		now:      time.Now,
	}
}

// LoginInput holds the credentials for authentication.
type LoginInput struct {
	Email    string
	Password string
}

// Login verifies credentials and returns the authenticated user.
func (s *AuthService) Login(input LoginInput) (*models.User, error) {
	user, err := s.userRepo.FindByEmail(normalizeEmail(input.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive() {
		return nil, ErrUserInactive
	}

	return user, nil
}

// GetUser retrieves a live user by ID.
func (s *AuthService) GetUser(id uint64) (*models.User, error) {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return user, nil
}

// GenerateOTP issues a password reset code for email and mails it.
// It returns the normalized email to remember as the pending reset.
func (s *AuthService) GenerateOTP(ctx context.Context, email string) (string, error) {
	email = normalizeEmail(email)
	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("failed to find user: %w", err)
	}
	if !user.IsActive() {
		return "", ErrUserInactive
	}

	now := s.now()
	if user.OTPLocked(now) {
		return "", &OTPLockedError{Until: *user.OTPLockedUntil}
	}

	otp, err := utils.GenerateOTP(constants.OTPLength)
	if err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(otp), s.opts.BcryptCost)
	if err != nil {
		return "", ErrFailedToHashPassword
	}

	if _, err := s.userRepo.Update(user.ID, map[string]any{
		"otp_hash":         string(hash),
		"otp_expires_at":   now.Add(s.opts.OTPTTL),
		"otp_attempts":     0,
		"otp_locked_until": nil,
	}); err != nil {
		return "", fmt.Errorf("failed to store otp: %w", err)
	}

	if err := s.mailer.SendOTP(ctx, OTPMail{
		To:        user.Email,
		Name:      user.Name,
		Code:      otp,
		ExpiresIn: s.opts.OTPTTL,
	}); err != nil {
		return "", err
	}

	return user.Email, nil
}

// ResetPasswordInput carries a password reset attempt.
type ResetPasswordInput struct {
	Email           string
	OTP             string
	Password        string
	ConfirmPassword string
}

// ResetPassword checks the OTP for the pending reset and stores the new password.
// The third consecutive failure locks resets for a while.
func (s *AuthService) ResetPassword(input ResetPasswordInput) error {
	if input.Email == "" {
		return ErrNoPendingReset
	}

	problems := utils.PasswordProblems(input.Password)
	if input.Password != input.ConfirmPassword {
		problems = append(problems, "Password and confirm password must match")
	}
	if err := NewValidationError(problems); err != nil {
		return err
	}

	user, err := s.userRepo.FindByEmail(input.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to find user: %w", err)
	}

	now := s.now()
	if user.OTPLocked(now) {
		return &OTPLockedError{Until: *user.OTPLockedUntil}
	}

	if !s.otpMatches(user, input.OTP, now) {
		return s.recordOTPFailure(user, now)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.opts.BcryptCost)
	if err != nil {
		return ErrFailedToHashPassword
	}

	if _, err := s.userRepo.Update(user.ID, map[string]any{
		"password_hash":    string(hash),
		"otp_hash":         nil,
		"otp_expires_at":   nil,
		"otp_attempts":     0,
		"otp_locked_until": nil,
		"updated_by":       user.ID,
	}); err != nil {
		return fmt.Errorf("failed to reset password: %w", err)
	}
	return nil
}

func (s *AuthService) otpMatches(user *models.User, otp string, now time.Time) bool {
	if user.OTPHash == nil || user.OTPExpiresAt == nil || now.After(*user.OTPExpiresAt) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(*user.OTPHash), []byte(strings.TrimSpace(otp))) == nil
}

func (s *AuthService) recordOTPFailure(user *models.User, now time.Time) error {
	lockUntil := now.Add(constants.OTPLockDuration * time.Hour)
	if err := s.userRepo.RecordOTPFailure(user.ID, constants.MaxOTPAttempts, lockUntil); err != nil {
		return fmt.Errorf("failed to record otp attempt: %w", err)
	}
	return ErrInvalidOTP
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
