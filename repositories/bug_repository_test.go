package repositories

import (
	"strings"
	"testing"
	"time"

	"bugbase/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDB opens a named in-memory SQLite database so all pooled
// connections within one test see the same data.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Bug{}))
	return db
}

func createUser(t *testing.T, db *gorm.DB, username string, role models.Role) *models.User {
	t.Helper()
	user := &models.User{
		Username: username,
		Password: "irrelevant-hash",
		Email:    username + "@example.com",
		Role:     role,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestBugRepositoryCreateAndFindByID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBugRepository(db)
	reporter := createUser(t, db, "reporter1", models.RoleUser)

	bug := &models.Bug{
		Title:      "Login page crashes",
		Status:     models.StatusOpen,
		Priority:   models.PriorityHigh,
		ReporterID: reporter.ID,
	}
	require.NoError(t, repo.Create(bug))
	require.NotZero(t, bug.ID)

	found, err := repo.FindByID(bug.ID)
	require.NoError(t, err)
	assert.Equal(t, "Login page crashes", found.Title)
	assert.Equal(t, models.StatusOpen, found.Status)
	assert.Equal(t, "reporter1", found.Reporter.Username)
	assert.Nil(t, found.AssignedToID)

	_, err = repo.FindByID(9999)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestBugRepositoryFindFilters(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBugRepository(db)
	reporter := createUser(t, db, "reporter1", models.RoleUser)
	other := createUser(t, db, "reporter2", models.RoleUser)
	dev := createUser(t, db, "dev1", models.RoleDev)

	mine := &models.Bug{Title: "Mine", ReporterID: reporter.ID, Status: models.StatusOpen, Priority: models.PriorityLow}
	theirs := &models.Bug{Title: "Theirs", ReporterID: other.ID, Status: models.StatusInProgress, Priority: models.PriorityLow, AssignedToID: &dev.ID, IsApproved: true}
	closed := &models.Bug{Title: "Closed", ReporterID: other.ID, Status: models.StatusClosed, Priority: models.PriorityLow, IsApproved: true}
	for _, b := range []*models.Bug{mine, theirs, closed} {
		require.NoError(t, repo.Create(b))
	}

	t.Run("by reporter", func(t *testing.T) {
		bugs, err := repo.Find(BugFilter{ReporterID: &reporter.ID}, OrderNewestCreated)
		require.NoError(t, err)
		require.Len(t, bugs, 1)
		assert.Equal(t, "Mine", bugs[0].Title)
	})

	t.Run("by assignee and statuses", func(t *testing.T) {
		bugs, err := repo.Find(BugFilter{
			AssignedToID: &dev.ID,
			Statuses:     []models.BugStatus{models.StatusInProgress, models.StatusQA},
		}, OrderNewestUpdated)
		require.NoError(t, err)
		require.Len(t, bugs, 1)
		assert.Equal(t, "Theirs", bugs[0].Title)
		assert.Equal(t, "dev1", bugs[0].AssignedTo.Username)
	})

	t.Run("by approval", func(t *testing.T) {
		approved := true
		bugs, err := repo.Find(BugFilter{Approved: &approved}, OrderNewestCreated)
		require.NoError(t, err)
		assert.Len(t, bugs, 2)
	})

	t.Run("empty filter matches all", func(t *testing.T) {
		bugs, err := repo.Find(BugFilter{}, OrderNewestCreated)
		require.NoError(t, err)
		assert.Len(t, bugs, 3)
	})
}

func TestBugRepositoryFindOrdering(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBugRepository(db)
	reporter := createUser(t, db, "reporter1", models.RoleUser)

	older := &models.Bug{Title: "Older", ReporterID: reporter.ID, Status: models.StatusOpen, Priority: models.PriorityLow}
	newer := &models.Bug{Title: "Newer", ReporterID: reporter.ID, Status: models.StatusOpen, Priority: models.PriorityLow}
	require.NoError(t, repo.Create(older))
	require.NoError(t, repo.Create(newer))

	// Separate the timestamps deterministically.
	base := time.Now()
	require.NoError(t, db.Model(older).UpdateColumns(map[string]interface{}{
		"created_at": base.Add(-2 * time.Hour), "updated_at": base.Add(-1 * time.Minute),
	}).Error)
	require.NoError(t, db.Model(newer).UpdateColumns(map[string]interface{}{
		"created_at": base.Add(-1 * time.Hour), "updated_at": base.Add(-2 * time.Hour),
	}).Error)

	byCreated, err := repo.Find(BugFilter{}, OrderNewestCreated)
	require.NoError(t, err)
	require.Len(t, byCreated, 2)
	assert.Equal(t, "Newer", byCreated[0].Title)

	byUpdated, err := repo.Find(BugFilter{}, OrderNewestUpdated)
	require.NoError(t, err)
	require.Len(t, byUpdated, 2)
	assert.Equal(t, "Older", byUpdated[0].Title)
}

func TestBugRepositoryUpdateFields(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBugRepository(db)
	reporter := createUser(t, db, "reporter1", models.RoleUser)
	dev := createUser(t, db, "dev1", models.RoleDev)

	bug := &models.Bug{Title: "Assignable", ReporterID: reporter.ID, Status: models.StatusOpen, Priority: models.PriorityLow}
	require.NoError(t, repo.Create(bug))

	updated, err := repo.UpdateFields(bug.ID, map[string]interface{}{
		"assigned_to_id": dev.ID,
		"status":         models.StatusInProgress,
		"is_approved":    true,
	})
	require.NoError(t, err)
	require.NotNil(t, updated.AssignedToID)
	assert.Equal(t, dev.ID, *updated.AssignedToID)
	assert.Equal(t, models.StatusInProgress, updated.Status)
	assert.True(t, updated.IsApproved)
	assert.Equal(t, "dev1", updated.AssignedTo.Username)
	// Untouched columns survive the patch.
	assert.Equal(t, "Assignable", updated.Title)
	assert.Equal(t, reporter.ID, updated.ReporterID)
}

func TestBugRepositoryDelete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBugRepository(db)
	reporter := createUser(t, db, "reporter1", models.RoleUser)

	bug := &models.Bug{Title: "Doomed", ReporterID: reporter.ID, Status: models.StatusOpen, Priority: models.PriorityLow}
	require.NoError(t, repo.Create(bug))

	require.NoError(t, repo.Delete(bug.ID))
	_, err := repo.FindByID(bug.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	assert.ErrorIs(t, repo.Delete(bug.ID), gorm.ErrRecordNotFound)
}
