package constants

// Session and context keys
const (
	SessionCookieName      = "timesheet_session"
	ContextKeyUserID       = "user_id"
	ContextKeyIdentity     = "identity"
	ContextKeyLogger       = "logger"
	ContextKeyRequestID    = "request_id"
	ContextKeyProject      = "project"
	ContextKeyTimesheet    = "timesheet"
	SessionKeyPendingReset = "reset_email"
	HeaderRequestID        = "X-Request-ID"
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Users
const (
	MinPasswordLength = 6
	MinUserNameLength = 3
	MinUserAge        = 18
)

// Projects and timesheets
const (
	MinProjectNameLength = 3
	MinTaskLength        = 3
	MinHoursWorked       = 0.25
	MaxHoursWorked       = 12.0
)

// OTP
const (
	OTPLength       = 6
	MaxOTPAttempts  = 3
	OTPLockDuration = 3 // hours
)

// Form fields
const (
	FormFieldTimesheets = "timesheets"
	FormFieldFilePrefix = "file_"
	FormFieldImage      = "image"
)
