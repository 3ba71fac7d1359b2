package models

import (
	"time"

	"gorm.io/gorm"
)

type ProjectStatus string

const (
	ProjectStatusNotStarted ProjectStatus = "notStarted"
	ProjectStatusActive     ProjectStatus = "active"
	ProjectStatusOnGoing    ProjectStatus = "onGoing"
	ProjectStatusOnHold     ProjectStatus = "onHold"
	ProjectStatusPending    ProjectStatus = "pending"
	ProjectStatusCompleted  ProjectStatus = "completed"
)

var projectStatusLabels = map[ProjectStatus]string{
	ProjectStatusNotStarted: "Not Started",
	ProjectStatusActive:     "Active",
	ProjectStatusOnGoing:    "On Going",
	ProjectStatusOnHold:     "On Hold",
	ProjectStatusPending:    "Pending",
	ProjectStatusCompleted:  "Completed",
}

// Valid reports whether s is a known project status.
func (s ProjectStatus) Valid() bool {
	_, ok := projectStatusLabels[s]
	return ok
}

// Label returns the display name used in history descriptions.
func (s ProjectStatus) Label() string {
	if label, ok := projectStatusLabels[s]; ok {
		return label
	}
	return string(s)
}

type Project struct {
	ID          uint64         `gorm:"primarykey" json:"projectId"`
	ProjectName string         `gorm:"type:varchar(255);not null;uniqueIndex:idx_projects_name_live,priority:1" json:"projectName"`
	DeleteToken uint64         `gorm:"not null;default:0;uniqueIndex:idx_projects_name_live,priority:2" json:"-"`
	ClientName  string         `gorm:"type:varchar(255);not null;index" json:"clientName"`
	ManagerID   uint64         `gorm:"not null;index" json:"managerId"`
	StartDate   time.Time      `gorm:"type:date;not null" json:"startDate"`
	EndDate     time.Time      `gorm:"type:date;not null" json:"endDate"`
	Status      ProjectStatus  `gorm:"type:varchar(20);not null;index" json:"status"`
	CreatedBy   *uint64        `json:"createdBy"`
	UpdatedBy   *uint64        `json:"updatedBy"`
	DeletedBy   *uint64        `json:"-"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Manager   User              `gorm:"foreignKey:ManagerID" json:"-"`
	Creator   *User             `gorm:"foreignKey:CreatedBy" json:"-"`
	Employees []ProjectEmployee `gorm:"foreignKey:ProjectID" json:"-"`
}
