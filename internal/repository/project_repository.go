package repository

import (
	"github.com/yukikurage/timesheet-management-api/internal/database"
	"github.com/yukikurage/timesheet-management-api/internal/models"
	"github.com/yukikurage/timesheet-management-api/internal/utils"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var projectOrderColumns = map[string]string{
	"projectName": "projects.project_name",
	"clientName":  "projects.client_name",
	"managerName": "manager.name",
	"startDate":   "projects.start_date",
	"endDate":     "projects.end_date",
	"status":      "projects.status",
	"createdAt":   "projects.created_at",
	"createdBy":   "creator.name",
}

// GormProjectRepository is a GORM implementation of ProjectRepository
type GormProjectRepository struct {
	db *gorm.DB
}

// NewProjectRepository creates a new ProjectRepository
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &GormProjectRepository{db: db}
}

// Create inserts the project, its assignments and the history row atomically
func (r *GormProjectRepository) Create(project *models.Project, employeeIDs []uint64, history *models.ProjectHistory) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(project).Error; err != nil {
			return err
		}

		if err := assignEmployees(tx, project.ID, employeeIDs, project.CreatedBy); err != nil {
			return err
		}

		history.ProjectID = project.ID
		return tx.Omit(clause.Associations).Create(history).Error
	})
}

// FindByID finds a project by ID with its relations
func (r *GormProjectRepository) FindByID(id uint64) (*models.Project, error) {
	var project models.Project
	if err := withProjectRelations(r.db).First(&project, id).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

// List retrieves projects; the page and the count run concurrently
func (r *GormProjectRepository) List(params utils.ListParams) ([]models.Project, int64, error) {
	base := func() *gorm.DB {
		return r.db.Model(&models.Project{}).
			Joins("LEFT JOIN users AS manager ON manager.id = projects.manager_id").
			Joins("LEFT JOIN users AS creator ON creator.id = projects.created_by").
			Scopes(database.Search(params.Search,
				"projects.project_name", "projects.client_name", "manager.name", "creator.name"))
	}

	var (
		projects []models.Project
		total    int64
		g        errgroup.Group
	)
	g.Go(func() error {
		return withProjectRelations(base()).
			Scopes(database.Order(params, projectOrderColumns, "projects.created_at"), database.Paginate(params)).
			Find(&projects).Error
	})
	g.Go(func() error {
		return base().Count(&total).Error
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return projects, total, nil
}

// ListNames returns id and name of every live project
func (r *GormProjectRepository) ListNames() ([]models.Project, error) {
	var projects []models.Project
	if err := r.db.Select("id", "project_name").Order("project_name").Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

// LiveIDs returns which of ids reference live projects
func (r *GormProjectRepository) LiveIDs(ids []uint64) (map[uint64]bool, error) {
	live := make(map[uint64]bool, len(ids))
	if len(ids) == 0 {
		return live, nil
	}
	var found []uint64
	if err := r.db.Model(&models.Project{}).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return nil, err
	}
	for _, id := range found {
		live[id] = true
	}
	return live, nil
}

// Update applies an edit with its assignment changes and history row atomically
func (r *GormProjectRepository) Update(change ProjectChange) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if len(change.Updates) > 0 {
			result := tx.Model(&models.Project{}).Where("id = ?", change.ProjectID).Updates(change.Updates)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return ErrNoRowsAffected
			}
		}

		actor := change.ActorID
		if err := assignEmployees(tx, change.ProjectID, change.Added, &actor); err != nil {
			return err
		}
		if err := unassignEmployees(tx, change.ProjectID, change.Removed, actor); err != nil {
			return err
		}

		change.History.ProjectID = change.ProjectID
		return tx.Omit(clause.Associations).Create(change.History).Error
	})
}

// Delete soft deletes a project and its assignments and records the deletion
func (r *GormProjectRepository) Delete(id, actorID uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		// Freeing the name: the unique index covers (project_name, delete_token).
		result := tx.Model(&models.Project{}).Where("id = ?", id).Updates(map[string]any{
			"delete_token": id,
			"deleted_by":   actorID,
		})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		if err := tx.Model(&models.ProjectEmployee{}).
			Where("project_id = ?", id).
			Update("deleted_by", actorID).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", id).Delete(&models.ProjectEmployee{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Project{}, id).Error; err != nil {
			return err
		}

		return tx.Omit(clause.Associations).Create(&models.ProjectHistory{
			ProjectID:   id,
			Description: "Project deleted",
			CreatedBy:   actorID,
		}).Error
	})
}

// ListHistory returns history rows for a project, newest first
func (r *GormProjectRepository) ListHistory(projectID uint64, params utils.ListParams) ([]models.ProjectHistory, int64, error) {
	base := func() *gorm.DB {
		return r.db.Model(&models.ProjectHistory{}).Where("project_id = ?", projectID)
	}

	var (
		rows  []models.ProjectHistory
		total int64
		g     errgroup.Group
	)
	g.Go(func() error {
		return base().Preload("Actor", unscoped).
			Order("created_at DESC").Order("id DESC").
			Scopes(database.Paginate(params)).
			Find(&rows).Error
	})
	g.Go(func() error {
		return base().Count(&total).Error
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func withProjectRelations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Manager", unscoped).
		Preload("Creator", unscoped).
		Preload("Employees", func(db *gorm.DB) *gorm.DB { return db.Order("employee_id") }).
		Preload("Employees.Employee", unscoped)
}

// assignEmployees inserts assignments, reviving rows that were removed earlier
func assignEmployees(tx *gorm.DB, projectID uint64, employeeIDs []uint64, actorID *uint64) error {
	if len(employeeIDs) == 0 {
		return nil
	}

	assignments := make([]models.ProjectEmployee, len(employeeIDs))
	for i, employeeID := range employeeIDs {
		assignments[i] = models.ProjectEmployee{
			ProjectID:  projectID,
			EmployeeID: employeeID,
			CreatedBy:  actorID,
		}
	}

	return tx.Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "project_id"}, {Name: "employee_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"deleted_at": gorm.Expr("NULL"),
				"deleted_by": gorm.Expr("NULL"),
			}),
		}).
		Create(&assignments).Error
}

func unassignEmployees(tx *gorm.DB, projectID uint64, employeeIDs []uint64, actorID uint64) error {
	if len(employeeIDs) == 0 {
		return nil
	}

	if err := tx.Model(&models.ProjectEmployee{}).
		Where("project_id = ? AND employee_id IN ?", projectID, employeeIDs).
		Update("deleted_by", actorID).Error; err != nil {
		return err
	}
	return tx.Where("project_id = ? AND employee_id IN ?", projectID, employeeIDs).
		Delete(&models.ProjectEmployee{}).Error
}
