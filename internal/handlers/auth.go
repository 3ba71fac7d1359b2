package handlers

import (
	"errors"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/timesheet-management-api/internal/constants"
	"github.com/yukikurage/timesheet-management-api/internal/dto"
	apierrors "github.com/yukikurage/timesheet-management-api/internal/errors"
	"github.com/yukikurage/timesheet-management-api/internal/response"
	"github.com/yukikurage/timesheet-management-api/internal/services"
)

// AuthHandler coordinates authentication-related HTTP handlers.
type AuthHandler struct {
	authService *services.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Login authenticates a user and initializes the session.
func (h *AuthHandler) Login(c *gin.Context) {
	type LoginRequest struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.InvalidBody(c, err)
		return
	}

	user, err := h.authService.Login(services.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondAuthError(c, err)
		return
	}

	session := sessions.Default(c)
	session.Clear()
	session.Set(constants.ContextKeyUserID, user.ID)
	if err := session.Save(); err != nil {
		apierrors.Internal(c, "Failed to save session", err)
		return
	}

	response.OK(c, dto.ToUserDTO(*user))
}

// Logout removes the authentication session.
func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := session.Save(); err != nil {
		apierrors.Internal(c, "Failed to logout", err)
		return
	}

	response.Message(c, "Logged out successfully")
}

// GetCurrentUser returns the authenticated user.
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	user, err := h.authService.GetUser(actor.ID)
	if err != nil {
		respondAuthError(c, err)
		return
	}

	response.OK(c, dto.ToUserDTO(*user))
}

// GenerateOTP mails a password reset code and remembers the email as the pending reset.
func (h *AuthHandler) GenerateOTP(c *gin.Context) {
	type GenerateOTPRequest struct {
		Email string `json:"email" binding:"required,email"`
	}

	var req GenerateOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.InvalidBody(c, err)
		return
	}

	email, err := h.authService.GenerateOTP(c.Request.Context(), req.Email)
	if err != nil {
		respondAuthError(c, err)
		return
	}

	session := sessions.Default(c)
	session.Set(constants.SessionKeyPendingReset, email)
	if err := session.Save(); err != nil {
		apierrors.Internal(c, "Failed to save session", err)
		return
	}

	response.Message(c, "OTP sent to your email")
}

// ResetPassword sets a new password for the pending reset after checking the OTP.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	type ResetPasswordRequest struct {
		OTP             string `json:"otp" binding:"required"`
		Password        string `json:"password" binding:"required"`
		ConfirmPassword string `json:"confirmPassword" binding:"required"`
	}

	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.InvalidBody(c, err)
		return
	}

	session := sessions.Default(c)
	email, _ := session.Get(constants.SessionKeyPendingReset).(string)

	err := h.authService.ResetPassword(services.ResetPasswordInput{
		Email:           email,
		OTP:             req.OTP,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		respondAuthError(c, err)
		return
	}

	session.Delete(constants.SessionKeyPendingReset)
	if err := session.Save(); err != nil {
		apierrors.Internal(c, "Failed to save session", err)
		return
	}

	response.Message(c, "Password reset successfully")
}

func respondAuthError(c *gin.Context, err error) {
	if respondValidation(c, err) {
		return
	}

	var locked *services.OTPLockedError
	switch {
	case errors.As(err, &locked):
		apierrors.Forbidden(c, locked.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		apierrors.InvalidCredentials(c, err.Error())
	case errors.Is(err, services.ErrUserInactive):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrUserNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrNoPendingReset),
		errors.Is(err, services.ErrInvalidOTP):
		apierrors.BadRequest(c, err.Error())
	default:
		apierrors.Internal(c, "Internal server error", err)
	}
}
