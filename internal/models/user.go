package models

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string

const (
	RoleAdmin    UserRole = "admin"
	RoleManager  UserRole = "manager"
	RoleHR       UserRole = "hr"
	RoleEmployee UserRole = "employee"
)

// Valid reports whether r is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleHR, RoleEmployee:
		return true
	}
	return false
}

// CanManage reports whether the role may administer projects and other users' timesheets.
func (r UserRole) CanManage() bool {
	return r == RoleAdmin || r == RoleManager
}

const (
	UserStatusInactive = 0
	UserStatusActive   = 1
)

type User struct {
	ID             uint64         `gorm:"primarykey" json:"userId"`
	Name           string         `gorm:"type:varchar(100);not null;index" json:"name"`
	DOB            time.Time      `gorm:"type:date;not null" json:"dob"`
	Email          string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash   string         `gorm:"type:varchar(255);not null" json:"-"`
	Role           UserRole       `gorm:"type:varchar(20);not null;index" json:"role"`
	Status         int            `gorm:"not null" json:"status"`
	Image          *string        `gorm:"type:varchar(255)" json:"image"`
	OTPHash        *string        `gorm:"type:varchar(255)" json:"-"`
	OTPExpiresAt   *time.Time     `json:"-"`
	OTPAttempts    int            `gorm:"not null;default:0" json:"-"`
	OTPLockedUntil *time.Time     `json:"-"`
	CreatedBy      *uint64        `json:"createdBy"`
	UpdatedBy      *uint64        `json:"updatedBy"`
	DeletedBy      *uint64        `json:"-"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Creator *User `gorm:"foreignKey:CreatedBy" json:"-"`
}

// IsActive reports whether the account may sign in.
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// OTPLocked reports whether password reset is temporarily blocked at now.
func (u *User) OTPLocked(now time.Time) bool {
	return u.OTPLockedUntil != nil && now.Before(*u.OTPLockedUntil)
}
