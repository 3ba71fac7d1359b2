package services

import "github.com/yukikurage/timesheet-management-api/internal/models"

// Actor is the authenticated user performing an operation.
type Actor struct {
	ID   uint64
	Name string
	Role models.UserRole
}

func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

// CanManage reports whether the actor may administer projects and other users' timesheets.
func (a Actor) CanManage() bool {
	return a.Role.CanManage()
}
