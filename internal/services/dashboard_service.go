package services

import (
	"fmt"

	"github.com/yukikurage/timesheet-management-api/internal/models"
	"github.com/yukikurage/timesheet-management-api/internal/repository"
)

// DashboardService exposes headcount and project aggregates.
type DashboardService struct {
	repo repository.DashboardRepository
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(repo repository.DashboardRepository) *DashboardService {
	return &DashboardService{repo: repo}
}

// CountUsers counts admins and managers when managers is true, hr and employees otherwise.
func (s *DashboardService) CountUsers(managers, activeOnly bool) (int64, error) {
	roles := []models.UserRole{models.RoleHR, models.RoleEmployee}
	if managers {
		roles = []models.UserRole{models.RoleAdmin, models.RoleManager}
	}
	count, err := s.repo.CountUsers(roles, activeOnly)
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

// CountProjects counts all live projects, or only completed ones.
func (s *DashboardService) CountProjects(completedOnly bool) (int64, error) {
	var status *models.ProjectStatus
	if completedOnly {
		completed := models.ProjectStatusCompleted
		status = &completed
	}
	count, err := s.repo.CountProjects(status)
	if err != nil {
		return 0, fmt.Errorf("failed to count projects: %w", err)
	}
	return count, nil
}

// CountClients counts distinct client names across live projects.
func (s *DashboardService) CountClients() (int64, error) {
	count, err := s.repo.CountClients()
	if err != nil {
		return 0, fmt.Errorf("failed to count clients: %w", err)
	}
	return count, nil
}
