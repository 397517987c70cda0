package relational

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"cmseditor/domain/core/entities"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := Open(DriverSQLite, dsn, false, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })
	return db
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open("oracle", "", false, zap.NewNop())
	assert.Error(t, err)
}

func TestFormSubmissionRepository_Insert(t *testing.T) {
	// Arrange
	db := openTestDB(t)
	repo := NewFormSubmissionRepository(db)
	values := map[string]string{
		"vorname":  "Max",
		"nachname": "Müller'; DROP TABLE bewerbungen; --",
		"plz":      "10115",
		"position": "Redakteur",
	}
	form := entities.NewApplicationForm(func(n string) string { return values[n] }, "10.0.0.1", time.Now())

	// Act
	err := repo.Insert(context.Background(), form)

	// Assert
	require.NoError(t, err)
	n, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var row bewerbungRow
	require.NoError(t, db.First(&row, "id = ?", form.ID).Error)
	assert.Equal(t, "Müller'; DROP TABLE bewerbungen; --", row.Nachname)
	assert.Equal(t, "10.0.0.1", row.RemoteAddr)

	// the same id twice is a database error
	assert.Error(t, repo.Insert(context.Background(), form))
}

func TestWorkflowRepository(t *testing.T) {
	// Arrange
	repo := NewWorkflowRepository(openTestDB(t))
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	older := entities.NewWorkflowTask(entities.TaskKindApplication, "Bewerbung Redakteur: Max Muster", "sub-1", "form", base)
	newer := entities.NewWorkflowTask(entities.TaskKindPublish, "Publish /index.html", "/index.html", "u-1", base.Add(time.Minute))
	done := entities.NewWorkflowTask(entities.TaskKindPublish, "Publish /old.html", "/old.html", "u-1", base.Add(2*time.Minute))
	done.State = entities.TaskStateDone
	for _, task := range []*entities.WorkflowTask{older, newer, done} {
		require.NoError(t, repo.CreateTask(ctx, task))
	}

	// Act
	open, err := repo.ListTasks(ctx, entities.TaskStateNew, 10)
	require.NoError(t, err)
	all, err := repo.ListTasks(ctx, "", 0)
	require.NoError(t, err)
	limited, err := repo.ListTasks(ctx, "", 1)
	require.NoError(t, err)

	// Assert
	require.Len(t, open, 2)
	assert.Equal(t, newer.ID, open[0].ID)
	assert.Equal(t, older.ID, open[1].ID)
	assert.Equal(t, entities.TaskKindApplication, open[1].Kind)
	assert.Equal(t, "sub-1", open[1].ReferenceID)
	assert.True(t, base.Equal(open[1].CreatedAt))
	assert.Len(t, all, 3)
	require.Len(t, limited, 1)
	assert.Equal(t, done.ID, limited[0].ID)
}
