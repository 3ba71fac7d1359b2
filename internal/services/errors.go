package services

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserInactive       = errors.New("user account is inactive")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already exists")
	ErrForbidden          = errors.New("permission denied")
	ErrNoChanges          = errors.New("no changes to apply")
	ErrAvatarNotFound     = errors.New("avatar not found")

	ErrProjectNotFound  = errors.New("project not found")
	ErrProjectNameTaken = errors.New("project name already exists")

	ErrTimesheetNotFound = errors.New("timesheet not found")
	ErrDocumentNotFound  = errors.New("document not found")

	ErrNoPendingReset = errors.New("no password reset in progress")
	ErrInvalidOTP     = errors.New("invalid or expired OTP")

	ErrFailedToHashPassword = errors.New("failed to hash password")
)

// ValidationError carries every field problem found in a request.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, "; ")
}

// NewValidationError returns nil when messages is empty.
func NewValidationError(messages []string) error {
	if len(messages) == 0 {
		return nil
	}
	return &ValidationError{Messages: messages}
}

// OTPLockedError is returned while password reset is blocked after repeated OTP failures.
type OTPLockedError struct {
	Until time.Time
}

func (e *OTPLockedError) Error() string {
	remaining := time.Until(e.Until).Round(time.Minute)
	if remaining < time.Minute {
		remaining = time.Minute
	}
	return fmt.Sprintf("too many invalid attempts, try again in %s", remaining)
}
