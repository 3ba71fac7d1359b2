package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/timesheet-management-api/internal/constants"
	"github.com/yukikurage/timesheet-management-api/internal/dto"
	apierrors "github.com/yukikurage/timesheet-management-api/internal/errors"
	"github.com/yukikurage/timesheet-management-api/internal/middleware"
	"github.com/yukikurage/timesheet-management-api/internal/response"
	"github.com/yukikurage/timesheet-management-api/internal/services"
	"github.com/yukikurage/timesheet-management-api/internal/storage"
	"github.com/yukikurage/timesheet-management-api/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// TimesheetHandler serves timesheet endpoints.
type TimesheetHandler struct {
	timesheetService *services.TimesheetService
}

// NewTimesheetHandler creates a new TimesheetHandler.
func NewTimesheetHandler(timesheetService *services.TimesheetService) *TimesheetHandler {
	return &TimesheetHandler{timesheetService: timesheetService}
}

// ListTimesheets returns a page of timesheets and the adjusted hours of every match.
func (h *TimesheetHandler) ListTimesheets(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	query, ok := timesheetQuery(c)
	if !ok {
		return
	}

	list, err := h.timesheetService.List(actor, query)
	if err != nil {
		respondTimesheetError(c, err)
		return
	}

	response.OK(c, dto.TimesheetListResponse{
		Timesheets:               dto.ToTimesheetDTOs(list.Timesheets),
		TotalTimesheetCount:      list.Total,
		TotalAdjustedHoursWorked: list.TotalAdjustedHours,
		Pagination:               query.Params.Pagination(list.Total),
	})
}

// ExportTimesheets downloads the filtered timesheets as an XLSX workbook.
func (h *TimesheetHandler) ExportTimesheets(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	query, ok := timesheetQuery(c)
	if !ok {
		return
	}

	buf, err := h.timesheetService.Export(actor, query)
	if err != nil {
		respondTimesheetError(c, err)
		return
	}

	filename := fmt.Sprintf("timesheets_%s.xlsx", time.Now().Format(utils.DateLayout))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// CreateTimesheets stores a batch of timesheets with optional per-record documents.
// The form carries a JSON array in "timesheets" and files named file_<index>.
func (h *TimesheetHandler) CreateTimesheets(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		apierrors.BadRequest(c, "Request must be multipart/form-data")
		return
	}

	raw := form.Value[constants.FormFieldTimesheets]
	if len(raw) == 0 || strings.TrimSpace(raw[0]) == "" {
		apierrors.BadRequestWithDetails(c, "Validation failed", []string{"At least one timesheet is required"})
		return
	}

	var records []services.TimesheetRecord
	if err := json.Unmarshal([]byte(raw[0]), &records); err != nil {
		apierrors.InvalidBody(c, err)
		return
	}

	attachments, err := formAttachments(form)
	if err != nil {
		apierrors.BadRequest(c, err.Error())
		return
	}

	result, err := h.timesheetService.SubmitBatch(actor, records, attachments)
	if err != nil {
		respondTimesheetError(c, err)
		return
	}

	response.Created(c, dto.BatchCreateResponse{
		Message:           fmt.Sprintf("%d timesheet(s) submitted successfully", len(result.IDs)),
		IDs:               result.IDs,
		FailedAttachments: result.FailedAttachments,
	})
}

// formAttachments collects file_<n> uploads keyed by n.
func formAttachments(form *multipart.Form) (map[int]*services.Attachment, error) {
	attachments := make(map[int]*services.Attachment)
	for field, headers := range form.File {
		if !strings.HasPrefix(field, constants.FormFieldFilePrefix) || len(headers) == 0 {
			continue
		}
		index, err := strconv.Atoi(strings.TrimPrefix(field, constants.FormFieldFilePrefix))
		if err != nil {
			return nil, fmt.Errorf("invalid file field %q", field)
		}
		if len(headers) > 1 {
			return nil, fmt.Errorf("only one file is allowed per report (%s)", field)
		}

		header := headers[0]
		attachments[index] = &services.Attachment{
			Filename: header.Filename,
			Size:     header.Size,
			Open: func() (io.ReadCloser, error) {
				return header.Open()
			},
		}
	}
	return attachments, nil
}

// GetTimesheet returns the timesheet loaded by RequireTimesheetAccess
func (h *TimesheetHandler) GetTimesheet(c *gin.Context) {
	ts, ok := middleware.GetTimesheet(c)
	if !ok {
		apierrors.NotFound(c, "Timesheet not found")
		return
	}

	response.OK(c, dto.ToTimesheetDTO(*ts))
}

// UpdateTimesheet applies the sent fields and records what changed
func (h *TimesheetHandler) UpdateTimesheet(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	ts, ok := middleware.GetTimesheet(c)
	if !ok {
		apierrors.NotFound(c, "Timesheet not found")
		return
	}

	type UpdateTimesheetRequest struct {
		ProjectID   *int64   `json:"projectId"`
		Task        *string  `json:"task"`
		HoursWorked *float64 `json:"hoursWorked"`
		WorkDate    *string  `json:"workDate"`
	}

	var req UpdateTimesheetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.InvalidBody(c, err)
		return
	}

	err := h.timesheetService.Update(actor, ts, services.UpdateTimesheetInput{
		ProjectID:   req.ProjectID,
		Task:        req.Task,
		HoursWorked: req.HoursWorked,
		WorkDate:    req.WorkDate,
	})
	if err != nil {
		respondTimesheetError(c, err)
		return
	}

	response.Message(c, "Timesheet updated successfully")
}

// DeleteTimesheet soft deletes a timesheet and its document
func (h *TimesheetHandler) DeleteTimesheet(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	ts, ok := middleware.GetTimesheet(c)
	if !ok {
		apierrors.NotFound(c, "Timesheet not found")
		return
	}

	if err := h.timesheetService.Delete(actor, ts); err != nil {
		respondTimesheetError(c, err)
		return
	}

	response.Message(c, "Timesheet deleted successfully")
}

// TimesheetHistory returns the change log of ?timesheetId=
func (h *TimesheetHandler) TimesheetHistory(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	timesheetID, ok := parseQueryID(c, "timesheetId", "timesheet")
	if !ok {
		return
	}

	if _, err := h.timesheetService.Authorize(actor, timesheetID); err != nil {
		respondTimesheetError(c, err)
		return
	}

	params := utils.GetListParams(c)
	rows, total, err := h.timesheetService.History(timesheetID, params)
	if err != nil {
		respondTimesheetError(c, err)
		return
	}

	response.OK(c, dto.HistoryListResponse{
		History:      dto.ToTimesheetHistoryDTOs(rows),
		HistoryCount: total,
		Pagination:   params.Pagination(total),
	})
}

// GetDocument streams the attachment of a timesheet
func (h *TimesheetHandler) GetDocument(c *gin.Context) {
	ts, ok := middleware.GetTimesheet(c)
	if !ok {
		apierrors.NotFound(c, "Timesheet not found")
		return
	}

	path, err := h.timesheetService.DocumentPath(ts)
	if err != nil {
		respondTimesheetError(c, err)
		return
	}

	c.Header("Content-Type", storage.ContentType(path))
	c.Header("X-Content-Type-Options", "nosniff")
	c.File(path)
}

func timesheetQuery(c *gin.Context) (services.TimesheetQuery, bool) {
	from, ok := parseOptionalDate(c, "fromDate")
	if !ok {
		return services.TimesheetQuery{}, false
	}
	to, ok := parseOptionalDate(c, "toDate")
	if !ok {
		return services.TimesheetQuery{}, false
	}

	query := services.TimesheetQuery{
		FromDate:    from,
		ToDate:      to,
		Name:        c.Query("name"),
		ProjectName: c.Query("projectName"),
		Params:      utils.GetListParams(c),
	}
	if raw := c.Query("userId"); raw != "" {
		userID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid user ID")
			return services.TimesheetQuery{}, false
		}
		query.UserID = &userID
	}
	return query, true
}

func respondTimesheetError(c *gin.Context, err error) {
	if respondValidation(c, err) {
		return
	}

	switch {
	case errors.Is(err, services.ErrNoChanges):
		response.NoContent(c)
	case errors.Is(err, services.ErrForbidden):
		apierrors.Forbidden(c, "You do not have permission to perform this action")
	case errors.Is(err, services.ErrTimesheetNotFound):
		apierrors.NotFound(c, "Timesheet not found")
	case errors.Is(err, services.ErrDocumentNotFound):
		apierrors.NotFound(c, "Document not found")
	default:
		apierrors.Internal(c, "Internal server error", err)
	}
}
