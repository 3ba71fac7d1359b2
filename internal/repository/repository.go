package repository

import (
	"errors"
	"time"

	"github.com/yukikurage/timesheet-management-api/internal/models"
	"github.com/yukikurage/timesheet-management-api/internal/utils"
)

var (
	// ErrNoRowsAffected is returned when a write inside a transaction touched nothing.
	ErrNoRowsAffected = errors.New("repository: no rows affected")
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(user *models.User) error

	// FindByID finds a live user by ID
	FindByID(id uint64) (*models.User, error)

	// FindByEmail finds a live user by email
	FindByEmail(email string) (*models.User, error)

	// FindByIDs returns the live users among ids
	FindByIDs(ids []uint64) ([]models.User, error)

	// List retrieves users with search, sort and pagination
	List(params utils.ListParams) ([]models.User, int64, error)

	// Update applies column updates to a live user and returns rows affected
	Update(id uint64, updates map[string]any) (int64, error)

	// Delete soft deletes a user and releases their email
	Delete(id, actorID uint64) error

	// RecordOTPFailure atomically counts a failed OTP and locks reset once maxAttempts is reached
	RecordOTPFailure(id uint64, maxAttempts int, lockUntil time.Time) error
}

// ProjectRepository defines the interface for project data access
type ProjectRepository interface {
	// Create inserts a project, its assignments and the creation history row in one transaction
	Create(project *models.Project, employeeIDs []uint64, history *models.ProjectHistory) error

	// FindByID finds a live project with manager, creator and employees loaded
	FindByID(id uint64) (*models.Project, error)

	// List retrieves projects with search, sort and pagination
	List(params utils.ListParams) ([]models.Project, int64, error)

	// ListNames returns id and name of every live project
	ListNames() ([]models.Project, error)

	// LiveIDs returns the subset of ids that reference live projects
	LiveIDs(ids []uint64) (map[uint64]bool, error)

	// Update applies a project edit, assignment changes and a history row in one transaction
	Update(change ProjectChange) error

	// Delete soft deletes a project and its assignments and records the deletion
	Delete(id, actorID uint64) error

	// ListHistory returns history rows for a project, newest first
	ListHistory(projectID uint64, params utils.ListParams) ([]models.ProjectHistory, int64, error)
}

// ProjectChange describes one project edit
type ProjectChange struct {
	ProjectID uint64
	ActorID   uint64
	Updates   map[string]any
	Added     []uint64
	Removed   []uint64
	History   *models.ProjectHistory
}

// TimesheetRepository defines the interface for timesheet data access
type TimesheetRepository interface {
	// CreateBatch inserts all items in one transaction. For items with an
	// attachment, documentName returns the final file name given the new id.
	CreateBatch(items []*models.Timesheet, documentName func(i int, id uint64) string) error

	// ClearDocument nulls the document_image column
	ClearDocument(id uint64) error

	// FindByID finds a live timesheet with user and project loaded
	FindByID(id uint64) (*models.Timesheet, error)

	// List retrieves a page of timesheets, the match count and the hours of every match
	List(filter TimesheetFilter) (*TimesheetPage, error)

	// ListAll retrieves every matching timesheet without pagination
	ListAll(filter TimesheetFilter) ([]models.Timesheet, error)

	// Update applies column updates and writes a history row in one transaction
	Update(id uint64, updates map[string]any, history *models.TimesheetHistory) error

	// Delete soft deletes a timesheet
	Delete(id, actorID uint64) error

	// ListHistory returns history rows for a timesheet, newest first
	ListHistory(timesheetID uint64, params utils.ListParams) ([]models.TimesheetHistory, int64, error)
}

// TimesheetFilter holds filtering options for listing timesheets
type TimesheetFilter struct {
	UserID      *uint64
	Name        string
	ProjectName string
	FromDate    *time.Time
	ToDate      *time.Time
	Params      utils.ListParams
}

// TimesheetPage is one page of a timesheet listing
type TimesheetPage struct {
	Timesheets []models.Timesheet
	Total      int64
	// Hours holds hours_worked of every matching row, not only the page.
	Hours []float64
}

// DashboardRepository defines the aggregate counts
type DashboardRepository interface {
	CountUsers(roles []models.UserRole, activeOnly bool) (int64, error)
	CountProjects(status *models.ProjectStatus) (int64, error)
	CountClients() (int64, error)
}
