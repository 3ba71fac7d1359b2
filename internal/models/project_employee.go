package models

import (
	"time"

	"gorm.io/gorm"
)

type ProjectEmployee struct {
	ProjectID  uint64         `gorm:"primarykey" json:"projectId"`
	EmployeeID uint64         `gorm:"primarykey" json:"employeeId"`
	CreatedBy  *uint64        `json:"createdBy"`
	DeletedBy  *uint64        `json:"-"`
	CreatedAt  time.Time      `json:"createdAt"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Employee User `gorm:"foreignKey:EmployeeID" json:"employee,omitempty"`
}
