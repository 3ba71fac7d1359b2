package models

import "time"

// ProjectHistory is an append-only audit row written on project create, edit and delete.
type ProjectHistory struct {
	ID          uint64    `gorm:"primarykey" json:"historyId"`
	ProjectID   uint64    `gorm:"not null;index" json:"projectId"`
	Description string    `gorm:"type:text;not null" json:"description"`
	CreatedBy   uint64    `gorm:"not null" json:"createdBy"`
	CreatedAt   time.Time `gorm:"index" json:"createdAt"`

	// Relations
	Actor User `gorm:"foreignKey:CreatedBy" json:"-"`
}

// TimesheetHistory is an append-only audit row written on timesheet edits.
type TimesheetHistory struct {
	ID          uint64    `gorm:"primarykey" json:"historyId"`
	TimesheetID uint64    `gorm:"not null;index" json:"timesheetId"`
	Description string    `gorm:"type:text;not null" json:"description"`
	CreatedBy   uint64    `gorm:"not null" json:"createdBy"`
	CreatedAt   time.Time `gorm:"index" json:"createdAt"`

	// Relations
	Actor User `gorm:"foreignKey:CreatedBy" json:"-"`
}
