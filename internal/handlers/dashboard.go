package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/timesheet-management-api/internal/errors"
	"github.com/yukikurage/timesheet-management-api/internal/response"
	"github.com/yukikurage/timesheet-management-api/internal/services"
)

// DashboardHandler serves aggregate counts.
type DashboardHandler struct {
	dashboardService *services.DashboardService
}

func NewDashboardHandler(dashboardService *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

// CountUsers handles ?manager=&active=
func (h *DashboardHandler) CountUsers(c *gin.Context) {
	managers, ok := boolQuery(c, "manager")
	if !ok {
		return
	}
	active, ok := boolQuery(c, "active")
	if !ok {
		return
	}

	count, err := h.dashboardService.CountUsers(managers, active)
	if err != nil {
		apierrors.Internal(c, "Failed to count users", err)
		return
	}
	response.OK(c, gin.H{"totalCount": count})
}

// CountProjects handles ?completed=
func (h *DashboardHandler) CountProjects(c *gin.Context) {
	completed, ok := boolQuery(c, "completed")
	if !ok {
		return
	}

	count, err := h.dashboardService.CountProjects(completed)
	if err != nil {
		apierrors.Internal(c, "Failed to count projects", err)
		return
	}
	response.OK(c, gin.H{"totalProjectCount": count})
}

func (h *DashboardHandler) CountClients(c *gin.Context) {
	count, err := h.dashboardService.CountClients()
	if err != nil {
		apierrors.Internal(c, "Failed to count clients", err)
		return
	}
	response.OK(c, gin.H{"totalClientCount": count})
}

// boolQuery parses an optional boolean query parameter; absent means false.
func boolQuery(c *gin.Context, key string) (bool, bool) {
	raw := c.Query(key)
	if raw == "" {
		return false, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		apierrors.BadRequest(c, "Query parameter "+key+" must be true or false")
		return false, false
	}
	return v, true
}
