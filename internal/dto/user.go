package dto

import (
	"time"

	"github.com/yukikurage/timesheet-management-api/internal/models"
	"github.com/yukikurage/timesheet-management-api/internal/utils"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID            uint64          `json:"userId"`
	Name          string          `json:"name"`
	DOB           utils.DateOnly  `json:"dob"`
	Email         string          `json:"email"`
	Role          models.UserRole `json:"role"`
	Status        int             `json:"status"`
	Image         *string         `json:"image"`
	CreatedBy     *uint64         `json:"createdBy"`
	CreatedByName string          `json:"createdByName,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// CreatedUserResponse is returned by user creation. ImageFailed is set when
// the account exists but the uploaded avatar was not saved.
type CreatedUserResponse struct {
	UserDTO
	ImageFailed bool `json:"imageFailed"`
}

// UserListResponse represents a page of users
type UserListResponse struct {
	Users     []UserDTO `json:"users"`
	UserCount  int64                    `json:"userCount"`
	Pagination utils.PaginationResponse `json:"pagination"`
}

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	dto := UserDTO{
		ID:        user.ID,
		Name:      user.Name,
		DOB:       utils.DateOnly{Time: user.DOB},
		Email:     user.Email,
		Role:      user.Role,
		Status:    user.Status,
		Image:     user.Image,
		CreatedBy: user.CreatedBy,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
	if user.Creator != nil {
		dto.CreatedByName = user.Creator.Name
	}
	return dto
}

// ToUserDTOs converts a slice of users
func ToUserDTOs(users []models.User) []UserDTO {
	out := make([]UserDTO, len(users))
	for i, u := range users {
		out[i] = ToUserDTO(u)
	}
	return out
}
