package dto

import (
	"time"

	"github.com/yukikurage/timesheet-management-api/internal/models"
	"github.com/yukikurage/timesheet-management-api/internal/utils"
)

// TimesheetDTO represents a timesheet row in API responses.
// HoursWorked carries the display (clock-minute) value.
type TimesheetDTO struct {
	ID            uint64         `json:"timesheetId"`
	ProjectID     uint64         `json:"projectId"`
	ProjectName   string         `json:"projectName"`
	UserID        uint64         `json:"userId"`
	Name          string         `json:"name"`
	Task          string         `json:"task"`
	HoursWorked   float64        `json:"hoursWorked"`
	WorkDate      utils.DateOnly `json:"workDate"`
	WorkedDate    string         `json:"workedDate"`
	DocumentImage *string        `json:"documentImage"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// TimesheetListResponse represents a page of timesheets with the adjusted total over all matches
type TimesheetListResponse struct {
	Timesheets               []TimesheetDTO `json:"timesheets"`
	TotalTimesheetCount      int64          `json:"totalTimesheetCount"`
	TotalAdjustedHoursWorked float64                  `json:"totalAdjustedHoursWorked"`
	Pagination               utils.PaginationResponse `json:"pagination"`
}

// BatchCreateResponse is returned by a successful batch submission
type BatchCreateResponse struct {
	Message           string   `json:"message"`
	IDs               []uint64 `json:"ids"`
	FailedAttachments []int    `json:"failedAttachments"`
}

// ToTimesheetDTO converts a Timesheet model with its preloaded user and project
func ToTimesheetDTO(ts models.Timesheet) TimesheetDTO {
	return TimesheetDTO{
		ID:            ts.ID,
		ProjectID:     ts.ProjectID,
		ProjectName:   ts.Project.ProjectName,
		UserID:        ts.UserID,
		Name:          ts.User.Name,
		Task:          ts.Task,
		HoursWorked:   utils.AdjustHours(ts.HoursWorked),
		WorkDate:      utils.DateOnly{Time: ts.WorkDate},
		WorkedDate:    utils.FormatDateLocal(ts.WorkDate),
		DocumentImage: ts.DocumentImage,
		CreatedAt:     ts.CreatedAt,
		UpdatedAt:     ts.UpdatedAt,
	}
}

// ToTimesheetDTOs converts a slice of timesheets
func ToTimesheetDTOs(timesheets []models.Timesheet) []TimesheetDTO {
	out := make([]TimesheetDTO, len(timesheets))
	for i, ts := range timesheets {
		out[i] = ToTimesheetDTO(ts)
	}
	return out
}
