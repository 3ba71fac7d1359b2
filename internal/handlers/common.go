package handlers

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/timesheet-management-api/internal/errors"
	"github.com/yukikurage/timesheet-management-api/internal/middleware"
	"github.com/yukikurage/timesheet-management-api/internal/services"
	"github.com/yukikurage/timesheet-management-api/internal/utils"
)

// currentActor returns the identity resolved by RequireAuth or writes a 401.
func currentActor(c *gin.Context) (services.Actor, bool) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
	}
	return actor, ok
}

// parseID reads a positive id from the named path parameter or writes a 400.
func parseID(c *gin.Context, param, label string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 64)
	if err != nil || id == 0 {
		apierrors.BadRequest(c, "Invalid "+label+" ID")
		return 0, false
	}
	return id, true
}

// parseQueryID reads a positive id from the named query parameter or writes a 400.
func parseQueryID(c *gin.Context, key, label string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Query(key), 10, 64)
	if err != nil || id == 0 {
		apierrors.BadRequest(c, "Invalid "+label+" ID")
		return 0, false
	}
	return id, true
}

// parseOptionalDate reads a yyyy-MM-dd query parameter; an absent value yields nil.
func parseOptionalDate(c *gin.Context, key string) (*time.Time, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	day, err := utils.ParseDate(raw)
	if err != nil {
		apierrors.BadRequest(c, "Invalid "+key+", expected yyyy-MM-dd")
		return nil, false
	}
	return &day, true
}

// respondValidation writes a 400 with every message when err is a ValidationError.
func respondValidation(c *gin.Context, err error) bool {
	var verr *services.ValidationError
	if !errors.As(err, &verr) {
		return false
	}
	apierrors.BadRequestWithDetails(c, "Validation failed", verr.Messages)
	return true
}
