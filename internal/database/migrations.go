package database

import (
	"fmt"

	"github.com/yukikurage/timesheet-management-api/internal/logger"
	"gorm.io/gorm"
)

// AddIndexes adds composite indexes used by the list and dashboard queries
func AddIndexes(db *gorm.DB) error {
	indexes := []struct {
		table   string
		name    string
		columns string
	}{
		// Timesheet listing filters by owner and date range
		{"timesheets", "idx_timesheets_user_work_date", "user_id, work_date"},
		{"timesheets", "idx_timesheets_project_work_date", "project_id, work_date"},

		// Assignment lookups from the employee side
		{"project_employees", "idx_project_employees_employee_id", "employee_id"},

		// Dashboard counts
		{"users", "idx_users_role_status", "role, status"},
		{"projects", "idx_projects_status_client", "status, client_name"},

		// History pages
		{"project_histories", "idx_project_histories_project_created", "project_id, created_at"},
		{"timesheet_histories", "idx_timesheet_histories_timesheet_created", "timesheet_id, created_at"},
	}

	for _, idx := range indexes {
		if db.Migrator().HasIndex(idx.table, idx.name) {
			logger.Log.Debugw("Index already exists, skipping", "index", idx.name)
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		logger.Log.Infow("Created index", "index", idx.name, "table", idx.table, "columns", idx.columns)
	}

	return nil
}

// MigrateDatabase runs all database migrations
func MigrateDatabase(db *gorm.DB) error {
	logger.Log.Info("Running database migrations...")
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := AddIndexes(db); err != nil {
		return fmt.Errorf("failed to add indexes: %w", err)
	}

	logger.Log.Info("Database migrations completed")
	return nil
}
