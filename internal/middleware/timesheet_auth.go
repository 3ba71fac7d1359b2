package middleware

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/timesheet-management-api/internal/constants"
	apierrors "github.com/yukikurage/timesheet-management-api/internal/errors"
	"github.com/yukikurage/timesheet-management-api/internal/models"
	"github.com/yukikurage/timesheet-management-api/internal/services"
)

// RequireTimesheetAccess checks that the user may access the timesheet named by :timesheetId.
// Owners and admins or managers pass; the timesheet is stored in the context.
func RequireTimesheetAccess(timesheetService *services.TimesheetService) gin.HandlerFunc {
	return func(c *gin.Context) {
		timesheetID, err := strconv.ParseUint(c.Param("timesheetId"), 10, 64)
		if err != nil || timesheetID == 0 {
			apierrors.BadRequest(c, "Invalid timesheet ID")
			c.Abort()
			return
		}

		actor, ok := GetActor(c)
		if !ok {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		ts, err := timesheetService.Authorize(actor, timesheetID)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrTimesheetNotFound):
				apierrors.NotFound(c, "Timesheet not found")
			case errors.Is(err, services.ErrForbidden):
				apierrors.Forbidden(c, "You can only access your own timesheets")
			default:
				apierrors.Internal(c, "Failed to load timesheet", err)
			}
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyTimesheet, ts)
		c.Next()
	}
}

// GetTimesheet returns the timesheet loaded by RequireTimesheetAccess.
func GetTimesheet(c *gin.Context) (*models.Timesheet, bool) {
	v, exists := c.Get(constants.ContextKeyTimesheet)
	if !exists {
		return nil, false
	}
	ts, ok := v.(*models.Timesheet)
	return ts, ok
}
