package dto

import (
	"time"

	"github.com/yukikurage/timesheet-management-api/internal/models"
	"github.com/yukikurage/timesheet-management-api/internal/utils"
)

// HistoryDTO represents one audit entry
type HistoryDTO struct {
	ID            uint64    `json:"historyId"`
	Description   string    `json:"description"`
	CreatedBy     uint64    `json:"createdBy"`
	CreatedByName string    `json:"createdByName"`
	CreatedAt     time.Time `json:"createdAt"`
}

// HistoryListResponse represents a page of audit entries
type HistoryListResponse struct {
	History      []HistoryDTO `json:"history"`
	HistoryCount int64                    `json:"historyCount"`
	Pagination   utils.PaginationResponse `json:"pagination"`
}

func ToProjectHistoryDTOs(rows []models.ProjectHistory) []HistoryDTO {
	out := make([]HistoryDTO, len(rows))
	for i, h := range rows {
		out[i] = HistoryDTO{
			ID:            h.ID,
			Description:   h.Description,
			CreatedBy:     h.CreatedBy,
			CreatedByName: h.Actor.Name,
			CreatedAt:     h.CreatedAt,
		}
	}
	return out
}

func ToTimesheetHistoryDTOs(rows []models.TimesheetHistory) []HistoryDTO {
	out := make([]HistoryDTO, len(rows))
	for i, h := range rows {
		out[i] = HistoryDTO{
			ID:            h.ID,
			Description:   h.Description,
			CreatedBy:     h.CreatedBy,
			CreatedByName: h.Actor.Name,
			CreatedAt:     h.CreatedAt,
		}
	}
	return out
}
