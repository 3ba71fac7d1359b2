// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yukikurage/timesheet-management-api/internal/database"
	"github.com/yukikurage/timesheet-management-api/internal/models"
	"github.com/yukikurage/timesheet-management-api/internal/utils"
)

// Password is the plain password of every fixture user.
const Password = "secret!1"

// NewDB opens a migrated in-memory SQLite database and installs it as database.DB.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), database.GormConfig("error"))
	require.NoError(t, err)

	// Every connection to :memory: is a separate database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.MigrateDatabase(db))
	database.SetDB(db)

	t.Cleanup(func() {
		sqlDB.Close()
	})
	return db
}

// CreateUser inserts an active user whose email is derived from name.
func CreateUser(t testing.TB, db *gorm.DB, name string, role models.UserRole) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		Name:         name,
		DOB:          time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC),
		Email:        fmt.Sprintf("%s@example.com", name),
		PasswordHash: string(hash),
		Role:         role,
		Status:       models.UserStatusActive,
	}
	require.NoError(t, db.Omit(clause.Associations).Create(user).Error)
	return user
}

// CreateProject inserts a live project managed by managerID with the given assignees.
func CreateProject(t testing.TB, db *gorm.DB, name string, managerID uint64, employeeIDs ...uint64) *models.Project {
	t.Helper()

	project := &models.Project{
		ProjectName: name,
		ClientName:  "Acme",
		ManagerID:   managerID,
		StartDate:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		Status:      models.ProjectStatusActive,
		CreatedBy:   &managerID,
	}
	require.NoError(t, db.Omit(clause.Associations).Create(project).Error)

	for _, id := range employeeIDs {
		require.NoError(t, db.Omit(clause.Associations).Create(&models.ProjectEmployee{
			ProjectID:  project.ID,
			EmployeeID: id,
		}).Error)
	}
	return project
}

// CreateTimesheet inserts a timesheet row for userID on day.
func CreateTimesheet(t testing.TB, db *gorm.DB, projectID, userID uint64, hours float64, day time.Time) *models.Timesheet {
	t.Helper()

	ts := &models.Timesheet{
		ProjectID:   projectID,
		UserID:      userID,
		Task:        "Code review",
		HoursWorked: hours,
		WorkDate:    utils.DateOf(day),
		CreatedBy:   &userID,
	}
	require.NoError(t, db.Omit(clause.Associations).Create(ts).Error)
	return ts
}
