package services

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/yukikurage/timesheet-management-api/internal/constants"
	"github.com/yukikurage/timesheet-management-api/internal/models"
	"github.com/yukikurage/timesheet-management-api/internal/repository"
	"github.com/yukikurage/timesheet-management-api/internal/utils"
	"gorm.io/gorm"
)

const historySeparator = " | "

// ProjectService handles project management and change history.
type ProjectService struct {
	projectRepo repository.ProjectRepository
	userRepo    repository.UserRepository
}

// NewProjectService creates a new ProjectService.
func NewProjectService(projectRepo repository.ProjectRepository, userRepo repository.UserRepository) *ProjectService {
	return &ProjectService{
		projectRepo: projectRepo,
		userRepo:    userRepo,
	}
}

// CreateProjectInput describes a new project.
type CreateProjectInput struct {
	ProjectName string
	ClientName  string
	ManagerID   uint64
	EmployeeIDs []uint64
	StartDate   time.Time
	EndDate     time.Time
	Status      models.ProjectStatus
}

// Create validates input and inserts the project, its assignments and a history row.
func (s *ProjectService) Create(actor Actor, input CreateProjectInput) (*models.Project, error) {
	if !actor.CanManage() {
		return nil, ErrForbidden
	}

	name := strings.TrimSpace(input.ProjectName)
	client := strings.TrimSpace(input.ClientName)
	status := input.Status
	if status == "" {
		status = models.ProjectStatusNotStarted
	}
	employeeIDs := uniqueIDs(input.EmployeeIDs)

	var problems []string
	problems = append(problems, validateProjectName(name)...)
	if client == "" {
		problems = append(problems, "Client name is required")
	}
	if _, msg, err := s.resolveManager(input.ManagerID); err != nil {
		return nil, err
	} else if msg != "" {
		problems = append(problems, msg)
	}
	employees, missing, err := s.resolveEmployees(employeeIDs)
	if err != nil {
		return nil, err
	}
	problems = append(problems, missing...)
	problems = append(problems, validateDates(input.StartDate, input.EndDate)...)
	if !status.Valid() {
		problems = append(problems, "Status is not a valid project status")
	}
	if err := NewValidationError(problems); err != nil {
		return nil, err
	}

	project := &models.Project{
		ProjectName: name,
		ClientName:  client,
		ManagerID:   input.ManagerID,
		StartDate:   utils.DateOf(input.StartDate),
		EndDate:     utils.DateOf(input.EndDate),
		Status:      status,
		CreatedBy:   &actor.ID,
	}

	description := fmt.Sprintf("Project '%s' created for client '%s'.", name, client)
	if len(employees) > 0 {
		description += " Employees assigned: " + strings.Join(userNames(employees), ", ")
	}
	history := &models.ProjectHistory{Description: description, CreatedBy: actor.ID}

	if err := s.projectRepo.Create(project, employeeIDs, history); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrProjectNameTaken
		}
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	return s.Get(project.ID)
}

// Get retrieves a live project by ID.
func (s *ProjectService) Get(id uint64) (*models.Project, error) {
	project, err := s.projectRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}
	return project, nil
}

// List retrieves a page of live projects.
func (s *ProjectService) List(params utils.ListParams) ([]models.Project, int64, error) {
	projects, total, err := s.projectRepo.List(params)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, total, nil
}

// ListNames returns id and name of every live project.
func (s *ProjectService) ListNames() ([]models.Project, error) {
	projects, err := s.projectRepo.ListNames()
	if err != nil {
		return nil, fmt.Errorf("failed to list project names: %w", err)
	}
	return projects, nil
}

// History returns the audit rows of a project, newest first.
func (s *ProjectService) History(projectID uint64, params utils.ListParams) ([]models.ProjectHistory, int64, error) {
	rows, total, err := s.projectRepo.ListHistory(projectID, params)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list project history: %w", err)
	}
	return rows, total, nil
}

// UpdateProjectInput holds the fields sent with an edit; nil means not sent.
type UpdateProjectInput struct {
	ProjectName *string
	ClientName  *string
	ManagerID   *uint64
	EmployeeIDs *[]uint64
	StartDate   *time.Time
	EndDate     *time.Time
	Status      *models.ProjectStatus
}

// Update applies changed fields and records one history row describing every change.
// ErrNoChanges is returned when nothing differs.
func (s *ProjectService) Update(actor Actor, id uint64, input UpdateProjectInput) error {
	if !actor.CanManage() {
		return ErrForbidden
	}

	project, err := s.Get(id)
	if err != nil {
		return err
	}

	updates := map[string]any{}
	var descriptions, problems []string

	if input.ProjectName != nil {
		name := strings.TrimSpace(*input.ProjectName)
		if msgs := validateProjectName(name); len(msgs) > 0 {
			problems = append(problems, msgs...)
		} else if name != project.ProjectName {
			updates["project_name"] = name
			descriptions = append(descriptions, changed("Project name", project.ProjectName, name))
		}
	}

	if input.ClientName != nil {
		client := strings.TrimSpace(*input.ClientName)
		if client == "" {
			problems = append(problems, "Client name is required")
		} else if client != project.ClientName {
			updates["client_name"] = client
			descriptions = append(descriptions, changed("Client name", project.ClientName, client))
		}
	}

	if input.ManagerID != nil && *input.ManagerID != project.ManagerID {
		manager, msg, err := s.resolveManager(*input.ManagerID)
		if err != nil {
			return err
		}
		if msg != "" {
			problems = append(problems, msg)
		} else {
			updates["manager_id"] = manager.ID
			descriptions = append(descriptions, changed("Manager", project.Manager.Name, manager.Name))
		}
	}

	start, end := utils.DateOf(project.StartDate), utils.DateOf(project.EndDate)
	if input.StartDate != nil {
		start = utils.DateOf(*input.StartDate)
	}
	if input.EndDate != nil {
		end = utils.DateOf(*input.EndDate)
	}
	if msgs := validateDates(start, end); len(msgs) > 0 {
		problems = append(problems, msgs...)
	} else {
		if !start.Equal(utils.DateOf(project.StartDate)) {
			updates["start_date"] = start
			descriptions = append(descriptions, changed("Start date",
				utils.FormatDateLocal(project.StartDate), utils.FormatDateLocal(start)))
		}
		if !end.Equal(utils.DateOf(project.EndDate)) {
			updates["end_date"] = end
			descriptions = append(descriptions, changed("End date",
				utils.FormatDateLocal(project.EndDate), utils.FormatDateLocal(end)))
		}
	}

	if input.Status != nil && *input.Status != project.Status {
		if !input.Status.Valid() {
			problems = append(problems, "Status is not a valid project status")
		} else {
			updates["status"] = *input.Status
			descriptions = append(descriptions, changed("Status", project.Status.Label(), input.Status.Label()))
		}
	}

	var added, removed []uint64
	if input.EmployeeIDs != nil {
		current := make(map[uint64]string, len(project.Employees))
		for _, pe := range project.Employees {
			current[pe.EmployeeID] = pe.Employee.Name
		}
		wanted := uniqueIDs(*input.EmployeeIDs)

		for _, employeeID := range wanted {
			if _, ok := current[employeeID]; !ok {
				added = append(added, employeeID)
			}
		}
		var removedNames []string
		for _, pe := range project.Employees {
			if !slices.Contains(wanted, pe.EmployeeID) {
				removed = append(removed, pe.EmployeeID)
				removedNames = append(removedNames, current[pe.EmployeeID])
			}
		}

		addedUsers, missing, err := s.resolveEmployees(added)
		if err != nil {
			return err
		}
		problems = append(problems, missing...)
		if len(addedUsers) > 0 {
			descriptions = append(descriptions, "Employees added: "+strings.Join(userNames(addedUsers), ", "))
		}
		if len(removedNames) > 0 {
			descriptions = append(descriptions, "Employees removed: "+strings.Join(removedNames, ", "))
		}
	}

	if err := NewValidationError(problems); err != nil {
		return err
	}
	if len(descriptions) == 0 {
		return ErrNoChanges
	}
	updates["updated_by"] = actor.ID

	err = s.projectRepo.Update(repository.ProjectChange{
		ProjectID: id,
		ActorID:   actor.ID,
		Updates:   updates,
		Added:     added,
		Removed:   removed,
		History: &models.ProjectHistory{
			Description: strings.Join(descriptions, historySeparator),
			CreatedBy:   actor.ID,
		},
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrProjectNameTaken
	case errors.Is(err, repository.ErrNoRowsAffected):
		return ErrProjectNotFound
	default:
		return fmt.Errorf("failed to update project: %w", err)
	}
}

// Delete soft deletes a project and its assignments.
func (s *ProjectService) Delete(actor Actor, id uint64) error {
	if !actor.CanManage() {
		return ErrForbidden
	}

	if err := s.projectRepo.Delete(id, actor.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProjectNotFound
		}
		return fmt.Errorf("failed to delete project: %w", err)
	}
	return nil
}

// resolveManager returns the manager, or a validation message when id is not a live admin or manager.
func (s *ProjectService) resolveManager(id uint64) (*models.User, string, error) {
	if id == 0 {
		return nil, "Manager is required", nil
	}
	manager, err := s.userRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Sprintf("Manager with id %d does not exist", id), nil
		}
		return nil, "", fmt.Errorf("failed to find manager: %w", err)
	}
	if !manager.Role.CanManage() {
		return nil, fmt.Sprintf("User %s is not a manager", manager.Name), nil
	}
	return manager, "", nil
}

// resolveEmployees loads ids and reports every id that is not a live user.
func (s *ProjectService) resolveEmployees(ids []uint64) ([]models.User, []string, error) {
	if len(ids) == 0 {
		return nil, nil, nil
	}
	users, err := s.userRepo.FindByIDs(ids)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find employees: %w", err)
	}

	found := make(map[uint64]bool, len(users))
	for _, u := range users {
		found[u.ID] = true
	}
	var missing []string
	for _, id := range ids {
		if !found[id] {
			missing = append(missing, fmt.Sprintf("Employee with id %d does not exist", id))
		}
	}
	return users, missing, nil
}

func validateProjectName(name string) []string {
	if len(name) < constants.MinProjectNameLength {
		return []string{fmt.Sprintf("Project name must be at least %d characters long", constants.MinProjectNameLength)}
	}
	return nil
}

func validateDates(start, end time.Time) []string {
	var problems []string
	if start.IsZero() {
		problems = append(problems, "Start date is required")
	}
	if end.IsZero() {
		problems = append(problems, "End date is required")
	}
	if len(problems) == 0 && start.After(end) {
		problems = append(problems, "Start date must not be after end date")
	}
	return problems
}

func changed(field, from, to string) string {
	return fmt.Sprintf("%s changed from '%s' to '%s'", field, from, to)
}

func uniqueIDs(ids []uint64) []uint64 {
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

func userNames(users []models.User) []string {
	names := make([]string, len(users))
	for i, u := range users {
		names[i] = u.Name
	}
	return names
}
