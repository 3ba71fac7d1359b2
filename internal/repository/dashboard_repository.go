package repository

import (
	"github.com/yukikurage/timesheet-management-api/internal/models"
	"gorm.io/gorm"
)

// GormDashboardRepository is a GORM implementation of DashboardRepository
type GormDashboardRepository struct {
	db *gorm.DB
}

// NewDashboardRepository creates a new DashboardRepository
func NewDashboardRepository(db *gorm.DB) DashboardRepository {
	return &GormDashboardRepository{db: db}
}

// CountUsers counts live users holding one of roles
func (r *GormDashboardRepository) CountUsers(roles []models.UserRole, activeOnly bool) (int64, error) {
	var count int64
	query := r.db.Model(&models.User{}).Where("role IN ?", roles)
	if activeOnly {
		query = query.Where("status = ?", models.UserStatusActive)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountProjects counts live projects, optionally only those in status
func (r *GormDashboardRepository) CountProjects(status *models.ProjectStatus) (int64, error) {
	var count int64
	query := r.db.Model(&models.Project{})
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountClients counts distinct client names of live projects
func (r *GormDashboardRepository) CountClients() (int64, error) {
	var count int64
	if err := r.db.Model(&models.Project{}).Distinct("client_name").Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
