package models

import (
	"time"

	"gorm.io/gorm"
)

type Timesheet struct {
	ID            uint64         `gorm:"primarykey" json:"timesheetId"`
	ProjectID     uint64         `gorm:"not null;index" json:"projectId"`
	UserID        uint64         `gorm:"not null;index" json:"userId"`
	Task          string         `gorm:"type:text;not null" json:"task"`
	HoursWorked   float64        `gorm:"type:decimal(4,2);not null" json:"hoursWorked"`
	WorkDate      time.Time      `gorm:"type:date;not null;index" json:"workDate"`
	DocumentImage *string        `gorm:"type:varchar(255)" json:"documentImage"`
	CreatedBy     *uint64        `json:"createdBy"`
	UpdatedBy     *uint64        `json:"updatedBy"`
	DeletedBy     *uint64        `json:"-"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	User    User    `gorm:"foreignKey:UserID" json:"-"`
	Project Project `gorm:"foreignKey:ProjectID" json:"-"`
}
