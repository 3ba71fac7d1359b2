package services

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/yukikurage/timesheet-management-api/internal/constants"
	"github.com/yukikurage/timesheet-management-api/internal/logger"
	"github.com/yukikurage/timesheet-management-api/internal/models"
	"github.com/yukikurage/timesheet-management-api/internal/repository"
	"github.com/yukikurage/timesheet-management-api/internal/storage"
	"github.com/yukikurage/timesheet-management-api/internal/utils"
	"gorm.io/gorm"
)

// documentTypes maps accepted attachment types, as detected from the content,
// to the extension the file is stored under.
var documentTypes = map[string]string{
	"image/jpeg":               ".jpg",
	"image/png":                ".png",
	"application/vnd.ms-excel": ".xls",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": ".xlsx",
}

// TimesheetOptions tunes attachment limits.
type TimesheetOptions struct {
	MaxDocumentSize int64
}

// TimesheetService handles timesheet submission, editing and reporting.
type TimesheetService struct {
	timesheetRepo repository.TimesheetRepository
	projectRepo   repository.ProjectRepository
	documents     *storage.Store
	opts          TimesheetOptions
	now           func() time.Time
}

// NewTimesheetService creates a new TimesheetService.
func NewTimesheetService(
	timesheetRepo repository.TimesheetRepository,
	projectRepo repository.ProjectRepository,
	documents *storage.Store,
	opts TimesheetOptions,
) *TimesheetService {
	if opts.MaxDocumentSize == 0 {
		opts.MaxDocumentSize = 5 << 20
	}
	return &TimesheetService{
		timesheetRepo: timesheetRepo,
		projectRepo:   projectRepo,
		documents:     documents,
		opts:          opts,
		now:           time.Now,
	}
}

// TimesheetRecord is one entry of a batch submission.
type TimesheetRecord struct {
	ProjectID   int64   `json:"projectId"`
	UserID      uint64  `json:"userId"`
	Task        string  `json:"task"`
	HoursWorked float64 `json:"hoursWorked"`
	WorkDate    string  `json:"workDate"`
}

// Attachment is an uploaded document waiting to be stored.
// The client's filename and Content-Type are not trusted; the type is
// detected from the content.
type Attachment struct {
	Filename string
	Size     int64
	Open     func() (io.ReadCloser, error)
}

// BatchResult reports the rows created by a submission and which attachments could not be kept.
type BatchResult struct {
	IDs               []uint64
	FailedAttachments []int
}

// SubmitBatch validates every record, stages attachments, inserts all rows in
// one transaction and finally moves the staged files to their permanent names.
// attachments is keyed by record index.
func (s *TimesheetService) SubmitBatch(actor Actor, records []TimesheetRecord, attachments map[int]*Attachment) (*BatchResult, error) {
	if actor.Role != models.RoleHR && actor.Role != models.RoleEmployee {
		return nil, ErrForbidden
	}
	for _, rec := range records {
		if rec.UserID != actor.ID {
			return nil, ErrForbidden
		}
	}

	exts, err := s.validateBatch(records, attachments)
	if err != nil {
		return nil, err
	}

	staged := make(map[int]string, len(attachments))
	discardStaged := func() {
		for _, name := range staged {
			s.discard(name)
		}
	}
	for i, att := range attachments {
		name, err := s.stage(att, exts[i])
		if err != nil {
			discardStaged()
			return nil, err
		}
		staged[i] = name
	}

	today := utils.DateOf(s.now())
	items := make([]*models.Timesheet, len(records))
	for i, rec := range records {
		items[i] = &models.Timesheet{
			ProjectID:   uint64(rec.ProjectID),
			UserID:      actor.ID,
			Task:        strings.TrimSpace(rec.Task),
			HoursWorked: rec.HoursWorked,
			WorkDate:    today,
			CreatedBy:   &actor.ID,
		}
	}

	finals := make(map[int]string, len(staged))
	err = s.timesheetRepo.CreateBatch(items, func(i int, id uint64) string {
		name, ok := staged[i]
		if !ok {
			return ""
		}
		finals[i] = storage.FinalName("timesheet", id, filepath.Ext(name), s.now())
		return finals[i]
	})
	if err != nil {
		discardStaged()
		if errors.Is(err, repository.ErrNoRowsAffected) {
			return nil, &ValidationError{Messages: []string{"Timesheets could not be saved, no rows were inserted"}}
		}
		return nil, fmt.Errorf("failed to insert timesheets: %w", err)
	}

	result := &BatchResult{
		IDs:               make([]uint64, len(items)),
		FailedAttachments: []int{},
	}
	for i, item := range items {
		result.IDs[i] = item.ID
	}

	for i := range records {
		name, ok := staged[i]
		if !ok {
			continue
		}
		if err := s.documents.Promote(name, finals[i]); err != nil {
			logger.Log.Errorw("Failed to store timesheet document",
				"timesheetId", items[i].ID, "file", attachments[i].Filename, "error", err)
			s.discard(name)
			if err := s.timesheetRepo.ClearDocument(items[i].ID); err != nil {
				logger.Log.Errorw("Failed to clear timesheet document", "timesheetId", items[i].ID, "error", err)
			}
			result.FailedAttachments = append(result.FailedAttachments, i)
		}
	}

	return result, nil
}

// validateBatch collects every problem of the batch and returns the stored
// extension of each attachment.
func (s *TimesheetService) validateBatch(records []TimesheetRecord, attachments map[int]*Attachment) (map[int]string, error) {
	if len(records) == 0 {
		return nil, &ValidationError{Messages: []string{"At least one timesheet is required"}}
	}

	var projectIDs []uint64
	for _, rec := range records {
		if rec.ProjectID > 0 {
			projectIDs = append(projectIDs, uint64(rec.ProjectID))
		}
	}
	live, err := s.projectRepo.LiveIDs(uniqueIDs(projectIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to check projects: %w", err)
	}

	exts := make(map[int]string, len(attachments))
	today := utils.DateOf(s.now())
	var problems []string
	for i, rec := range records {
		prefix := fmt.Sprintf("Report %d: ", i+1)
		add := func(msg string) { problems = append(problems, prefix+msg) }

		switch {
		case rec.ProjectID <= 0:
			add("Project id must be a positive number")
		case !live[uint64(rec.ProjectID)]:
			add(fmt.Sprintf("Project with id %d does not exist", rec.ProjectID))
		}
		for _, msg := range taskProblems(rec.Task) {
			add(msg)
		}
		for _, msg := range hoursProblems(rec.HoursWorked) {
			add(msg)
		}
		if day, err := utils.ParseDate(rec.WorkDate); err != nil {
			add("Work date is invalid")
		} else if !day.Equal(today) {
			add("Work date must be today")
		}
		if att, ok := attachments[i]; ok {
			ext, err := detectDocument(att)
			if err != nil {
				return nil, err
			}
			if ext == "" {
				add("Document must be a JPEG, PNG or Excel file")
			}
			if att.Size > s.opts.MaxDocumentSize {
				add(fmt.Sprintf("Document must not exceed %d MB", s.opts.MaxDocumentSize>>20))
			}
			exts[i] = ext
		}
	}
	for i := range attachments {
		if i < 0 || i >= len(records) {
			problems = append(problems, fmt.Sprintf("File %s%d does not match any report", constants.FormFieldFilePrefix, i))
		}
	}

	if err := NewValidationError(problems); err != nil {
		return nil, err
	}
	return exts, nil
}

// detectDocument sniffs the attachment content and returns its stored
// extension, or "" when the type is not accepted.
func detectDocument(att *Attachment) (string, error) {
	content, err := att.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open attachment: %w", err)
	}
	defer content.Close()

	detected, err := mimetype.DetectReader(content)
	if err != nil {
		return "", fmt.Errorf("failed to read attachment: %w", err)
	}
	for mimeType, ext := range documentTypes {
		if detected.Is(mimeType) {
			return ext, nil
		}
	}
	return "", nil
}

func (s *TimesheetService) stage(att *Attachment, ext string) (string, error) {
	content, err := att.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open attachment: %w", err)
	}
	defer content.Close()

	return s.documents.Stage(content, ext)
}

func taskProblems(task string) []string {
	if len(strings.TrimSpace(task)) < constants.MinTaskLength {
		return []string{fmt.Sprintf("Task must be at least %d characters long", constants.MinTaskLength)}
	}
	return nil
}

func hoursProblems(hours float64) []string {
	if !utils.IsQuarterHour(hours) {
		return []string{fmt.Sprintf("Hours worked must be between %s and %s in quarter-hour steps",
			utils.FormatHours(constants.MinHoursWorked), utils.FormatHours(constants.MaxHoursWorked))}
	}
	return nil
}

// TimesheetQuery holds list filters.
type TimesheetQuery struct {
	FromDate    *time.Time
	ToDate      *time.Time
	Name        string
	ProjectName string
	UserID      *uint64
	Params      utils.ListParams
}

// TimesheetList is one page of timesheets with the adjusted hours total over every match.
type TimesheetList struct {
	Timesheets         []models.Timesheet
	Total              int64
	TotalAdjustedHours float64
}

// List returns a page of timesheets. hr and employee callers only see their own rows.
func (s *TimesheetService) List(actor Actor, query TimesheetQuery) (*TimesheetList, error) {
	filter, err := s.filterFor(actor, query)
	if err != nil {
		return nil, err
	}

	page, err := s.timesheetRepo.List(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list timesheets: %w", err)
	}

	return &TimesheetList{
		Timesheets:         page.Timesheets,
		Total:              page.Total,
		TotalAdjustedHours: TotalAdjustedHours(page.Hours),
	}, nil
}

// TotalAdjustedHours sums the display value of every entry, rounded to two decimals.
func TotalAdjustedHours(hours []float64) float64 {
	var total float64
	for _, h := range hours {
		total += utils.AdjustHours(h)
	}
	return utils.Round2(total)
}

func (s *TimesheetService) filterFor(actor Actor, query TimesheetQuery) (repository.TimesheetFilter, error) {
	if query.FromDate != nil && query.ToDate != nil && query.FromDate.After(*query.ToDate) {
		return repository.TimesheetFilter{}, &ValidationError{Messages: []string{"From date must not be after to date"}}
	}

	filter := repository.TimesheetFilter{
		UserID:      query.UserID,
		Name:        strings.TrimSpace(query.Name),
		ProjectName: strings.TrimSpace(query.ProjectName),
		FromDate:    query.FromDate,
		ToDate:      query.ToDate,
		Params:      query.Params,
	}
	if !actor.CanManage() {
		own := actor.ID
		filter.UserID = &own
	}
	return filter, nil
}

// Authorize loads a timesheet the actor may see and change: their own, or any for admin and manager.
func (s *TimesheetService) Authorize(actor Actor, id uint64) (*models.Timesheet, error) {
	ts, err := s.timesheetRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTimesheetNotFound
		}
		return nil, fmt.Errorf("failed to find timesheet: %w", err)
	}
	if ts.UserID != actor.ID && !actor.CanManage() {
		return nil, ErrForbidden
	}
	return ts, nil
}

// UpdateTimesheetInput holds the fields sent with an edit; nil means not sent.
type UpdateTimesheetInput struct {
	ProjectID   *int64
	Task        *string
	HoursWorked *float64
	WorkDate    *string
}

// Update applies changed fields and records one history row. ErrNoChanges is
// returned when nothing differs.
func (s *TimesheetService) Update(actor Actor, ts *models.Timesheet, input UpdateTimesheetInput) error {
	updates := map[string]any{}
	var descriptions, problems []string

	if input.ProjectID != nil && *input.ProjectID != int64(ts.ProjectID) {
		if *input.ProjectID <= 0 {
			problems = append(problems, "Project id must be a positive number")
		} else {
			project, err := s.projectRepo.FindByID(uint64(*input.ProjectID))
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				problems = append(problems, fmt.Sprintf("Project with id %d does not exist", *input.ProjectID))
			case err != nil:
				return fmt.Errorf("failed to find project: %w", err)
			default:
				updates["project_id"] = project.ID
				descriptions = append(descriptions, changed("Project", ts.Project.ProjectName, project.ProjectName))
			}
		}
	}

	if input.Task != nil {
		task := strings.TrimSpace(*input.Task)
		if msgs := taskProblems(task); len(msgs) > 0 {
			problems = append(problems, msgs...)
		} else if task != ts.Task {
			updates["task"] = task
			descriptions = append(descriptions, changed("Task", ts.Task, task))
		}
	}

	if input.HoursWorked != nil {
		hours := *input.HoursWorked
		if msgs := hoursProblems(hours); len(msgs) > 0 {
			problems = append(problems, msgs...)
		} else if hours != ts.HoursWorked {
			updates["hours_worked"] = hours
			descriptions = append(descriptions, changed("Hours worked",
				utils.FormatHours(utils.AdjustHours(ts.HoursWorked))+" hour(s)",
				utils.FormatHours(utils.AdjustHours(hours))+" hour(s)"))
		}
	}

	if input.WorkDate != nil {
		day, err := utils.ParseDate(*input.WorkDate)
		if err != nil {
			problems = append(problems, "Work date is invalid")
		} else if !day.Equal(utils.DateOf(ts.WorkDate)) {
			updates["work_date"] = day
			descriptions = append(descriptions, changed("Work date",
				utils.FormatDateLocal(ts.WorkDate), utils.FormatDateLocal(day)))
		}
	}

	if err := NewValidationError(problems); err != nil {
		return err
	}
	if len(descriptions) == 0 {
		return ErrNoChanges
	}
	updates["updated_by"] = actor.ID

	err := s.timesheetRepo.Update(ts.ID, updates, &models.TimesheetHistory{
		Description: strings.Join(descriptions, historySeparator),
		CreatedBy:   actor.ID,
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNoRowsAffected):
		return ErrTimesheetNotFound
	default:
		return fmt.Errorf("failed to update timesheet: %w", err)
	}
}

// Delete soft deletes a timesheet and removes its document.
func (s *TimesheetService) Delete(actor Actor, ts *models.Timesheet) error {
	if err := s.timesheetRepo.Delete(ts.ID, actor.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTimesheetNotFound
		}
		return fmt.Errorf("failed to delete timesheet: %w", err)
	}
	if ts.DocumentImage != nil {
		s.discard(*ts.DocumentImage)
	}
	return nil
}

// History returns the audit rows of a timesheet, newest first.
func (s *TimesheetService) History(timesheetID uint64, params utils.ListParams) ([]models.TimesheetHistory, int64, error) {
	rows, total, err := s.timesheetRepo.ListHistory(timesheetID, params)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list timesheet history: %w", err)
	}
	return rows, total, nil
}

// DocumentPath returns the file path of a timesheet's attachment.
func (s *TimesheetService) DocumentPath(ts *models.Timesheet) (string, error) {
	if ts.DocumentImage == nil || !s.documents.Exists(*ts.DocumentImage) {
		return "", ErrDocumentNotFound
	}
	return s.documents.Path(*ts.DocumentImage)
}

func (s *TimesheetService) discard(name string) {
	if err := s.documents.Remove(name); err != nil {
		logger.Log.Warnw("Failed to remove upload", "file", name, "error", err)
	}
}
