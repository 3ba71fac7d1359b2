package repository

import (
	"fmt"

	"github.com/yukikurage/timesheet-management-api/internal/database"
	"github.com/yukikurage/timesheet-management-api/internal/models"
	"github.com/yukikurage/timesheet-management-api/internal/utils"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var timesheetOrderColumns = map[string]string{
	"workDate":    "timesheets.work_date",
	"hoursWorked": "timesheets.hours_worked",
	"task":        "timesheets.task",
	"name":        "owner.name",
	"projectName": "project.project_name",
	"createdAt":   "timesheets.created_at",
}

// GormTimesheetRepository is a GORM implementation of TimesheetRepository
type GormTimesheetRepository struct {
	db *gorm.DB
}

// NewTimesheetRepository creates a new TimesheetRepository
func NewTimesheetRepository(db *gorm.DB) TimesheetRepository {
	return &GormTimesheetRepository{db: db}
}

// CreateBatch inserts every item or none
func (r *GormTimesheetRepository) CreateBatch(items []*models.Timesheet, documentName func(i int, id uint64) string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		for i, item := range items {
			result := tx.Omit(clause.Associations).Create(item)
			if result.Error != nil {
				return fmt.Errorf("report %d: %w", i+1, result.Error)
			}
			if result.RowsAffected == 0 {
				return fmt.Errorf("report %d: %w", i+1, ErrNoRowsAffected)
			}

			if documentName == nil {
				continue
			}
			name := documentName(i, item.ID)
			if name == "" {
				continue
			}
			if err := tx.Model(&models.Timesheet{}).
				Where("id = ?", item.ID).
				Update("document_image", name).Error; err != nil {
				return fmt.Errorf("report %d: %w", i+1, err)
			}
			item.DocumentImage = &name
		}
		return nil
	})
}

// ClearDocument nulls the attachment column
func (r *GormTimesheetRepository) ClearDocument(id uint64) error {
	return r.db.Model(&models.Timesheet{}).Where("id = ?", id).Update("document_image", nil).Error
}

// FindByID finds a timesheet by ID with its user and project
func (r *GormTimesheetRepository) FindByID(id uint64) (*models.Timesheet, error) {
	var ts models.Timesheet
	if err := r.db.Preload("User", unscoped).Preload("Project", unscoped).First(&ts, id).Error; err != nil {
		return nil, err
	}
	return &ts, nil
}

func (r *GormTimesheetRepository) filtered(filter TimesheetFilter) *gorm.DB {
	query := r.db.Model(&models.Timesheet{}).
		Joins("LEFT JOIN users AS owner ON owner.id = timesheets.user_id").
		Joins("LEFT JOIN projects AS project ON project.id = timesheets.project_id")

	if filter.UserID != nil {
		query = query.Where("timesheets.user_id = ?", *filter.UserID)
	}
	if filter.Name != "" {
		query = query.Where("owner.name = ?", filter.Name)
	}
	if filter.ProjectName != "" {
		query = query.Where("project.project_name = ?", filter.ProjectName)
	}
	if filter.FromDate != nil {
		query = query.Where("timesheets.work_date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("timesheets.work_date <= ?", *filter.ToDate)
	}
	return query
}

func (r *GormTimesheetRepository) ordered(filter TimesheetFilter) *gorm.DB {
	return r.filtered(filter).
		Preload("User", unscoped).
		Preload("Project", unscoped).
		Scopes(database.Order(filter.Params, timesheetOrderColumns, "timesheets.work_date")).
		Order("timesheets.id DESC")
}

// List runs the page, the count and the hours of all matches concurrently
func (r *GormTimesheetRepository) List(filter TimesheetFilter) (*TimesheetPage, error) {
	page := &TimesheetPage{}

	var g errgroup.Group
	g.Go(func() error {
		return r.ordered(filter).Scopes(database.Paginate(filter.Params)).Find(&page.Timesheets).Error
	})
	g.Go(func() error {
		return r.filtered(filter).Count(&page.Total).Error
	})
	g.Go(func() error {
		return r.filtered(filter).Pluck("timesheets.hours_worked", &page.Hours).Error
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return page, nil
}

// ListAll retrieves every matching timesheet
func (r *GormTimesheetRepository) ListAll(filter TimesheetFilter) ([]models.Timesheet, error) {
	var timesheets []models.Timesheet
	if err := r.ordered(filter).Find(&timesheets).Error; err != nil {
		return nil, err
	}
	return timesheets, nil
}

// Update applies column updates and records the change atomically
func (r *GormTimesheetRepository) Update(id uint64, updates map[string]any, history *models.TimesheetHistory) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Timesheet{}).Where("id = ?", id).Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNoRowsAffected
		}

		history.TimesheetID = id
		return tx.Omit(clause.Associations).Create(history).Error
	})
}

// Delete soft deletes a timesheet
func (r *GormTimesheetRepository) Delete(id, actorID uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Timesheet{}).Where("id = ?", id).Update("deleted_by", actorID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Delete(&models.Timesheet{}, id).Error
	})
}

// ListHistory returns history rows for a timesheet, newest first
func (r *GormTimesheetRepository) ListHistory(timesheetID uint64, params utils.ListParams) ([]models.TimesheetHistory, int64, error) {
	base := func() *gorm.DB {
		return r.db.Model(&models.TimesheetHistory{}).Where("timesheet_id = ?", timesheetID)
	}

	var (
		rows  []models.TimesheetHistory
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
