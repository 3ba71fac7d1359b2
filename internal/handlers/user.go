package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/timesheet-management-api/internal/constants"
	"github.com/yukikurage/timesheet-management-api/internal/dto"
	apierrors "github.com/yukikurage/timesheet-management-api/internal/errors"
	"github.com/yukikurage/timesheet-management-api/internal/models"
	"github.com/yukikurage/timesheet-management-api/internal/response"
	"github.com/yukikurage/timesheet-management-api/internal/services"
	"github.com/yukikurage/timesheet-management-api/internal/storage"
	"github.com/yukikurage/timesheet-management-api/internal/utils"
)

// UserHandler serves user management endpoints.
type UserHandler struct {
	userService *services.UserService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// ListUsers returns a page of users
func (h *UserHandler) ListUsers(c *gin.Context) {
	params := utils.GetListParams(c)
	users, total, err := h.userService.List(params)
	if err != nil {
		respondUserError(c, err)
		return
	}

	response.OK(c, dto.UserListResponse{
		Users:      dto.ToUserDTOs(users),
		UserCount:  total,
		Pagination: params.Pagination(total),
	})
}

// GetUser returns one user
func (h *UserHandler) GetUser(c *gin.Context) {
	userID, ok := parseID(c, "userId", "user")
	if !ok {
		return
	}

	user, err := h.userService.Get(userID)
	if err != nil {
		respondUserError(c, err)
		return
	}

	response.OK(c, dto.ToUserDTO(*user))
}

// CreateUser registers a new account from a multipart form with an optional image.
func (h *UserHandler) CreateUser(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	type CreateUserRequest struct {
		Name     string `form:"name" binding:"required"`
		DOB      string `form:"dob" binding:"required"`
		Email    string `form:"email" binding:"required"`
		Password string `form:"password" binding:"required"`
		Role     string `form:"role" binding:"required"`
		Status   *int   `form:"status"`
	}

	var req CreateUserRequest
	if err := c.ShouldBind(&req); err != nil {
		apierrors.InvalidBody(c, err)
		return
	}

	dob, err := utils.ParseDate(req.DOB)
	if err != nil {
		apierrors.BadRequestWithDetails(c, "Validation failed", []string{"Date of birth must be a valid date (yyyy-MM-dd)"})
		return
	}

	input := services.CreateUserInput{
		Name:     req.Name,
		DOB:      dob,
		Email:    req.Email,
		Password: req.Password,
		Role:     models.UserRole(req.Role),
		Status:   req.Status,
	}

	if header, err := c.FormFile(constants.FormFieldImage); err == nil {
		file, err := header.Open()
		if err != nil {
			apierrors.Internal(c, "Failed to read image", err)
			return
		}
		defer file.Close()
		input.Avatar = file
	} else if !errors.Is(err, http.ErrMissingFile) {
		apierrors.BadRequest(c, "Invalid image upload")
		return
	}

	created, err := h.userService.Create(actor, input)
	if err != nil {
		respondUserError(c, err)
		return
	}

	response.Created(c, dto.CreatedUserResponse{
		UserDTO:     dto.ToUserDTO(*created.User),
		ImageFailed: created.ImageFailed,
	})
}

// UpdateUser edits profile fields; role and status are admin only.
func (h *UserHandler) UpdateUser(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	userID, ok := parseID(c, "userId", "user")
	if !ok {
		return
	}

	type UpdateUserRequest struct {
		Name   *string          `json:"name"`
		DOB    *utils.DateOnly  `json:"dob"`
		Email  *string          `json:"email"`
		Role   *models.UserRole `json:"role"`
		Status *int             `json:"status"`
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.InvalidBody(c, err)
		return
	}

	input := services.UpdateUserInput{
		Name:   req.Name,
		Email:  req.Email,
		Role:   req.Role,
		Status: req.Status,
	}
	if req.DOB != nil {
		input.DOB = &req.DOB.Time
	}

	if err := h.userService.Update(actor, userID, input); err != nil {
		respondUserError(c, err)
		return
	}

	response.Message(c, "User updated successfully")
}

// DeleteUser soft deletes a user
func (h *UserHandler) DeleteUser(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	userID, ok := parseID(c, "userId", "user")
	if !ok {
		return
	}

	if err := h.userService.Delete(actor, userID); err != nil {
		respondUserError(c, err)
		return
	}

	response.Message(c, "User deleted successfully")
}

// GetAvatar streams a user's avatar
func (h *UserHandler) GetAvatar(c *gin.Context) {
	userID, ok := parseID(c, "userId", "user")
	if !ok {
		return
	}

	path, err := h.userService.AvatarPath(userID)
	if err != nil {
		respondUserError(c, err)
		return
	}

	c.Header("Content-Type", storage.ContentType(path))
	c.File(path)
}

// EditAvatar replaces a user's avatar
func (h *UserHandler) EditAvatar(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	userID, ok := parseID(c, "userId", "user")
	if !ok {
		return
	}

	file, err := openFormFile(c, constants.FormFieldImage)
	if err != nil {
		apierrors.BadRequestWithDetails(c, "Validation failed", []string{"Image file is required"})
		return
	}
	defer file.Close()

	image, err := h.userService.ReplaceAvatar(actor, userID, file)
	if err != nil {
		respondUserError(c, err)
		return
	}

	response.OK(c, gin.H{"message": "Avatar updated successfully", "image": image})
}

// DeleteAvatar removes a user's avatar
func (h *UserHandler) DeleteAvatar(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	userID, ok := parseID(c, "userId", "user")
	if !ok {
		return
	}

	if err := h.userService.DeleteAvatar(actor, userID); err != nil {
		respondUserError(c, err)
		return
	}

	response.Message(c, "Avatar deleted successfully")
}

// ChangePassword replaces the caller's own password
func (h *UserHandler) ChangePassword(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	userID, ok := parseID(c, "userId", "user")
	if !ok {
		return
	}

	type ChangePasswordRequest struct {
		OldPassword     string `json:"oldPassword" binding:"required"`
		NewPassword     string `json:"newPassword" binding:"required"`
		ConfirmPassword string `json:"confirmPassword" binding:"required"`
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.InvalidBody(c, err)
		return
	}

	err := h.userService.ChangePassword(actor, userID, services.ChangePasswordInput{
		OldPassword:     req.OldPassword,
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		respondUserError(c, err)
		return
	}

	response.Message(c, "Password changed successfully")
}

func openFormFile(c *gin.Context, field string) (multipart.File, error) {
	header, err := c.FormFile(field)
	if err != nil {
		return nil, err
	}
	return header.Open()
}

func respondUserError(c *gin.Context, err error) {
	if respondValidation(c, err) {
		return
	}

	switch {
	case errors.Is(err, services.ErrNoChanges):
		response.NoContent(c)
	case errors.Is(err, services.ErrForbidden):
		apierrors.Forbidden(c, "You do not have permission to perform this action")
	case errors.Is(err, services.ErrUserNotFound):
		apierrors.NotFound(c, "User not found")
	case errors.Is(err, services.ErrAvatarNotFound):
		apierrors.NotFound(c, "Avatar not found")
	case errors.Is(err, services.ErrEmailTaken):
		apierrors.Conflict(c, "Email already exists")
	default:
		apierrors.Internal(c, "Internal server error", err)
	}
}
