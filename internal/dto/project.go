package dto

import (
	"time"

	"github.com/yukikurage/timesheet-management-api/internal/models"
	"github.com/yukikurage/timesheet-management-api/internal/utils"
)

// EmployeeDTO represents a project assignee
type EmployeeDTO struct {
	ID   uint64 `json:"employeeId"`
	Name string `json:"name"`
}

// ProjectDTO represents a project in API responses
type ProjectDTO struct {
	ID            uint64               `json:"projectId"`
	ProjectName   string               `json:"projectName"`
	ClientName    string               `json:"clientName"`
	ManagerID     uint64               `json:"managerId"`
	ManagerName   string               `json:"managerName"`
	StartDate     utils.DateOnly       `json:"startDate"`
	EndDate       utils.DateOnly       `json:"endDate"`
	Status        models.ProjectStatus `json:"status"`
	StatusLabel   string               `json:"statusLabel"`
	CreatedBy     *uint64              `json:"createdBy"`
	CreatedByName string               `json:"createdByName,omitempty"`
	Employees     []EmployeeDTO        `json:"employees"`
	CreatedAt     time.Time            `json:"createdAt"`
	UpdatedAt     time.Time            `json:"updatedAt"`
}

// ProjectListResponse represents a page of projects
type ProjectListResponse struct {
	Projects     []ProjectDTO `json:"projects"`
	ProjectCount int64                    `json:"projectCount"`
	Pagination   utils.PaginationResponse `json:"pagination"`
}

// ProjectNameDTO is the minimal project reference used by pickers
type ProjectNameDTO struct {
	ID          uint64 `json:"projectId"`
	ProjectName string `json:"projectName"`
}

// ToProjectDTO converts a Project model with its preloaded relations
func ToProjectDTO(project models.Project) ProjectDTO {
	dto := ProjectDTO{
		ID:          project.ID,
		ProjectName: project.ProjectName,
		ClientName:  project.ClientName,
		ManagerID:   project.ManagerID,
		ManagerName: project.Manager.Name,
		StartDate:   utils.DateOnly{Time: project.StartDate},
		EndDate:     utils.DateOnly{Time: project.EndDate},
		Status:      project.Status,
		StatusLabel: project.Status.Label(),
		CreatedBy:   project.CreatedBy,
		Employees:   make([]EmployeeDTO, 0, len(project.Employees)),
		CreatedAt:   project.CreatedAt,
		UpdatedAt:   project.UpdatedAt,
	}
	if project.Creator != nil {
		dto.CreatedByName = project.Creator.Name
	}
	for _, pe := range project.Employees {
		dto.Employees = append(dto.Employees, EmployeeDTO{ID: pe.EmployeeID, Name: pe.Employee.Name})
	}
	return dto
}

// ToProjectDTOs converts a slice of projects
func ToProjectDTOs(projects []models.Project) []ProjectDTO {
	out := make([]ProjectDTO, len(projects))
	for i, p := range projects {
		out[i] = ToProjectDTO(p)
	}
	return out
}
