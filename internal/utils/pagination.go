package utils

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/timesheet-management-api/internal/constants"
)

// ListParams holds the pagination, sort and search parameters of a list request
type ListParams struct {
	Page    int
	Limit   int
	OrderBy string
	Sort    string
	Search  string
}

// PaginationResponse represents the pagination metadata in API responses
type PaginationResponse struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

// Pagination builds the response metadata for a page of total matches.
func (p ListParams) Pagination(total int64) PaginationResponse {
	return PaginationResponse{Page: p.Page, Limit: p.Limit, Total: total}
}

// Offset returns the number of rows to skip: (page-1)*limit.
func (p ListParams) Offset() int {
	return (p.Page - 1) * p.Limit
}

// OrderClause maps OrderBy through allowed to a column expression.
// Unknown keys fall back to fallback; direction defaults to descending.
func (p ListParams) OrderClause(allowed map[string]string, fallback string) string {
	column, ok := allowed[p.OrderBy]
	if !ok {
		column = fallback
	}
	direction := "DESC"
	if strings.EqualFold(p.Sort, "asc") {
		direction = "ASC"
	}
	return column + " " + direction
}

// GetListParams extracts and validates list parameters from the request
func GetListParams(c *gin.Context) ListParams {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(constants.DefaultPageSize)))

	if page < 1 {
		page = 1
	}
	if limit < constants.MinPageSize || limit > constants.MaxPageSize {
		limit = constants.DefaultPageSize
	}

	return ListParams{
		Page:    page,
		Limit:   limit,
		OrderBy: strings.TrimSpace(c.Query("orderby")),
		Sort:    strings.TrimSpace(c.Query("sort")),
		Search:  strings.TrimSpace(c.Query("search")),
	}
}
