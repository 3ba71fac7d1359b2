package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/timesheet-management-api/internal/dto"
	apierrors "github.com/yukikurage/timesheet-management-api/internal/errors"
	"github.com/yukikurage/timesheet-management-api/internal/middleware"
	"github.com/yukikurage/timesheet-management-api/internal/models"
	"github.com/yukikurage/timesheet-management-api/internal/response"
	"github.com/yukikurage/timesheet-management-api/internal/services"
	"github.com/yukikurage/timesheet-management-api/internal/utils"
)

// ProjectHandler serves project endpoints.
type ProjectHandler struct {
	projectService *services.ProjectService
}

// NewProjectHandler creates a new ProjectHandler.
func NewProjectHandler(projectService *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{projectService: projectService}
}

// ListProjects returns a page of projects with manager, creator and employees
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	params := utils.GetListParams(c)
	projects, total, err := h.projectService.List(params)
	if err != nil {
		respondProjectError(c, err)
		return
	}

	response.OK(c, dto.ProjectListResponse{
		Projects:     dto.ToProjectDTOs(projects),
		ProjectCount: total,
		Pagination:   params.Pagination(total),
	})
}

// ListProjectNames returns id and name of every live project
func (h *ProjectHandler) ListProjectNames(c *gin.Context) {
	projects, err := h.projectService.ListNames()
	if err != nil {
		respondProjectError(c, err)
		return
	}

	names := make([]dto.ProjectNameDTO, len(projects))
	for i, p := range projects {
		names[i] = dto.ProjectNameDTO{ID: p.ID, ProjectName: p.ProjectName}
	}
	response.OK(c, names)
}

// GetProject returns the project loaded by RequireProject
func (h *ProjectHandler) GetProject(c *gin.Context) {
	project, ok := middleware.GetProject(c)
	if !ok {
		apierrors.NotFound(c, "Project not found")
		return
	}

	response.OK(c, dto.ToProjectDTO(*project))
}

// ProjectHistory returns the change log of ?projectId=
func (h *ProjectHandler) ProjectHistory(c *gin.Context) {
	projectID, ok := parseQueryID(c, "projectId", "project")
	if !ok {
		return
	}

	params := utils.GetListParams(c)
	rows, total, err := h.projectService.History(projectID, params)
	if err != nil {
		respondProjectError(c, err)
		return
	}

	response.OK(c, dto.HistoryListResponse{
		History:      dto.ToProjectHistoryDTOs(rows),
		HistoryCount: total,
		Pagination:   params.Pagination(total),
	})
}

// CreateProject creates a project with its initial assignments
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	type CreateProjectRequest struct {
		ProjectName string               `json:"projectName"`
		ClientName  string               `json:"clientName"`
		ManagerID   uint64               `json:"managerId"`
		EmployeeIDs []uint64             `json:"employeeIds"`
		StartDate   utils.DateOnly       `json:"startDate"`
		EndDate     utils.DateOnly       `json:"endDate"`
		Status      models.ProjectStatus `json:"status"`
	}

	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.InvalidBody(c, err)
		return
	}

	project, err := h.projectService.Create(actor, services.CreateProjectInput{
		ProjectName: req.ProjectName,
		ClientName:  req.ClientName,
		ManagerID:   req.ManagerID,
		EmployeeIDs: req.EmployeeIDs,
		StartDate:   req.StartDate.Time,
		EndDate:     req.EndDate.Time,
		Status:      req.Status,
	})
	if err != nil {
		respondProjectError(c, err)
		return
	}

	response.Created(c, dto.ToProjectDTO(*project))
}

// UpdateProject applies the sent fields and records what changed
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	project, ok := middleware.GetProject(c)
	if !ok {
		apierrors.NotFound(c, "Project not found")
		return
	}

	type UpdateProjectRequest struct {
		ProjectName *string               `json:"projectName"`
		ClientName  *string               `json:"clientName"`
		ManagerID   *uint64               `json:"managerId"`
		EmployeeIDs *[]uint64             `json:"employeeIds"`
		StartDate   *utils.DateOnly       `json:"startDate"`
		EndDate     *utils.DateOnly       `json:"endDate"`
		Status      *models.ProjectStatus `json:"status"`
	}

	var req UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.InvalidBody(c, err)
		return
	}

	input := services.UpdateProjectInput{
		ProjectName: req.ProjectName,
		ClientName:  req.ClientName,
		ManagerID:   req.ManagerID,
		EmployeeIDs: req.EmployeeIDs,
		Status:      req.Status,
	}
	if req.StartDate != nil {
		input.StartDate = &req.StartDate.Time
	}
	if req.EndDate != nil {
		input.EndDate = &req.EndDate.Time
	}

	if err := h.projectService.Update(actor, project.ID, input); err != nil {
		respondProjectError(c, err)
		return
	}

	response.Message(c, "Project updated successfully")
}

// DeleteProject soft deletes a project and its assignments
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	project, ok := middleware.GetProject(c)
	if !ok {
		apierrors.NotFound(c, "Project not found")
		return
	}

	if err := h.projectService.Delete(actor, project.ID); err != nil {
		respondProjectError(c, err)
		return
	}

	response.Message(c, "Project deleted successfully")
}

func respondProjectError(c *gin.Context, err error) {
	if respondValidation(c, err) {
		return
	}

	switch {
	case errors.Is(err, services.ErrNoChanges):
		response.NoContent(c)
	case errors.Is(err, services.ErrForbidden):
		apierrors.Forbidden(c, "Only admins and managers can manage projects")
	case errors.Is(err, services.ErrProjectNotFound):
		apierrors.NotFound(c, "Project not found")
	case errors.Is(err, services.ErrProjectNameTaken):
		apierrors.Conflict(c, "Project name already exists")
	default:
		apierrors.Internal(c, "Internal server error", err)
	}
}
