package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yukikurage/timesheet-management-api/internal/models"
	"github.com/yukikurage/timesheet-management-api/internal/testutil"
	"github.com/yukikurage/timesheet-management-api/internal/utils"
)

func newProject(name string, managerID uint64) *models.Project {
	return &models.Project{
		ProjectName: name,
		ClientName:  "Acme",
		ManagerID:   managerID,
		StartDate:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
		Status:      models.ProjectStatusNotStarted,
		CreatedBy:   &managerID,
	}
}

func TestProjectRepository_CreateAndFind(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewProjectRepository(db)

	manager := testutil.CreateUser(t, db, "mona", models.RoleManager)
	ann := testutil.CreateUser(t, db, "ann", models.RoleEmployee)
	bob := testutil.CreateUser(t, db, "bob", models.RoleEmployee)

	project := newProject("Alpha", manager.ID)
	history := &models.ProjectHistory{Description: "created", CreatedBy: manager.ID}
	require.NoError(t, repo.Create(project, []uint64{ann.ID, bob.ID}, history))

	found, err := repo.FindByID(project.ID)
	require.NoError(t, err)
	assert.Equal(t, "mona", found.Manager.Name)
	require.NotNil(t, found.Creator)
	require.Len(t, found.Employees, 2)
	assert.Equal(t, "ann", found.Employees[0].Employee.Name)
	assert.Equal(t, "bob", found.Employees[1].Employee.Name)

	rows, total, err := repo.ListHistory(project.ID, utils.ListParams{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "created", rows[0].Description)
	assert.Equal(t, "mona", rows[0].Actor.Name)
}

func TestProjectRepository_NameUniqueAmongLiveRows(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewProjectRepository(db)

	manager := testutil.CreateUser(t, db, "mona", models.RoleManager)

	first := newProject("Alpha", manager.ID)
	require.NoError(t, repo.Create(first, nil, &models.ProjectHistory{Description: "created", CreatedBy: manager.ID}))

	dup := newProject("Alpha", manager.ID)
	err := repo.Create(dup, nil, &models.ProjectHistory{Description: "created", CreatedBy: manager.ID})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	var count int64
	require.NoError(t, db.Model(&models.ProjectHistory{}).Count(&count).Error)
	assert.EqualValues(t, 1, count, "failed create must not leave a history row")

	// Renaming another project onto a live name collides.
	beta := newProject("Beta", manager.ID)
	require.NoError(t, repo.Create(beta, nil, &models.ProjectHistory{Description: "created", CreatedBy: manager.ID}))
	err = repo.Update(ProjectChange{
		ProjectID: beta.ID,
		ActorID:   manager.ID,
		Updates:   map[string]any{"project_name": "Alpha"},
		History:   &models.ProjectHistory{Description: "renamed", CreatedBy: manager.ID},
	})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	// After deletion the name is free again.
	require.NoError(t, repo.Delete(first.ID, manager.ID))
	_, err = repo.FindByID(first.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	again := newProject("Alpha", manager.ID)
	require.NoError(t, repo.Create(again, nil, &models.ProjectHistory{Description: "created", CreatedBy: manager.ID}))
}

func TestProjectRepository_UpdateAssignments(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewProjectRepository(db)

	manager := testutil.CreateUser(t, db, "mona", models.RoleManager)
	ann := testutil.CreateUser(t, db, "ann", models.RoleEmployee)
	bob := testutil.CreateUser(t, db, "bob", models.RoleEmployee)
	project := testutil.CreateProject(t, db, "Alpha", manager.ID, ann.ID)

	require.NoError(t, repo.Update(ProjectChange{
		ProjectID: project.ID,
		ActorID:   manager.ID,
		Added:     []uint64{bob.ID},
		Removed:   []uint64{ann.ID},
		History:   &models.ProjectHistory{Description: "swap", CreatedBy: manager.ID},
	}))

	found, err := repo.FindByID(project.ID)
	require.NoError(t, err)
	require.Len(t, found.Employees, 1)
	assert.Equal(t, bob.ID, found.Employees[0].EmployeeID)

	// Re-adding ann revives the removed assignment row.
	require.NoError(t, repo.Update(ProjectChange{
		ProjectID: project.ID,
		ActorID:   manager.ID,
		Added:     []uint64{ann.ID},
		History:   &models.ProjectHistory{Description: "re-add", CreatedBy: manager.ID},
	}))

	found, err = repo.FindByID(project.ID)
	require.NoError(t, err)
	assert.Len(t, found.Employees, 2)

	var rows int64
	require.NoError(t, db.Unscoped().Model(&models.ProjectEmployee{}).Where("project_id = ?", project.ID).Count(&rows).Error)
	assert.EqualValues(t, 2, rows)
}

func TestProjectRepository_ListAndNames(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewProjectRepository(db)

	manager := testutil.CreateUser(t, db, "mona", models.RoleManager)
	otherManager := testutil.CreateUser(t, db, "zed", models.RoleManager)
	testutil.CreateProject(t, db, "Alpha", manager.ID)
	testutil.CreateProject(t, db, "Beta", otherManager.ID)
	gamma := testutil.CreateProject(t, db, "Gamma", manager.ID)
	require.NoError(t, repo.Delete(gamma.ID, manager.ID))

	projects, total, err := repo.List(utils.ListParams{Page: 1, Limit: 10, OrderBy: "projectName", Sort: "asc"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, projects, 2)
	assert.Equal(t, "Alpha", projects[0].ProjectName)

	projects, total, err = repo.List(utils.ListParams{Page: 1, Limit: 10, Search: "zed"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "Beta", projects[0].ProjectName)

	names, err := repo.ListNames()
	require.NoError(t, err)
	require.Len(t, names, 2)
	assert.Equal(t, "Alpha", names[0].ProjectName)

	live, err := repo.LiveIDs([]uint64{names[0].ID, gamma.ID, 999})
	require.NoError(t, err)
	assert.Equal(t, map[uint64]bool{names[0].ID: true}, live)
}
