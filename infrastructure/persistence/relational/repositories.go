package relational

import (
	"context"

	"gorm.io/gorm"

	"cmseditor/application/ports"
	"cmseditor/domain/core/entities"
	pkgerrors "cmseditor/pkg/errors"
)

// FormSubmissionRepository stores application forms in the bewerbungen table
type FormSubmissionRepository struct {
	db *gorm.DB
}

// NewFormSubmissionRepository creates a new repository
func NewFormSubmissionRepository(db *gorm.DB) *FormSubmissionRepository {
	return &FormSubmissionRepository{db: db}
}

var _ ports.FormSubmissionRepository = (*FormSubmissionRepository)(nil)

// Insert stores form. Values are bound as parameters, never spliced into SQL.
func (r *FormSubmissionRepository) Insert(ctx context.Context, form *entities.ApplicationForm) error {
	if err := r.db.WithContext(ctx).Create(newBewerbungRow(form)).Error; err != nil {
		return pkgerrors.NewDatabaseError("insert bewerbung", err)
	}
	return nil
}

// Count returns the number of stored forms
func (r *FormSubmissionRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&bewerbungRow{}).Count(&n).Error; err != nil {
		return 0, pkgerrors.NewDatabaseError("count bewerbungen", err)
	}
	return n, nil
}

// WorkflowRepository stores tasks in the workflow_tasks table
type WorkflowRepository struct {
	db *gorm.DB
}

// NewWorkflowRepository creates a new repository
func NewWorkflowRepository(db *gorm.DB) *WorkflowRepository {
	return &WorkflowRepository{db: db}
}

var _ ports.WorkflowRepository = (*WorkflowRepository)(nil)

// CreateTask persists a new task
func (r *WorkflowRepository) CreateTask(ctx context.Context, task *entities.WorkflowTask) error {
	if err := r.db.WithContext(ctx).Create(newWorkflowTaskRow(task)).Error; err != nil {
		return pkgerrors.NewDatabaseError("create workflow task", err)
	}
	return nil
}

// ListTasks returns tasks in state, newest first. An empty state lists all.
func (r *WorkflowRepository) ListTasks(ctx context.Context, state entities.TaskState, limit int) ([]*entities.WorkflowTask, error) {
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if state != "" {
		q = q.Where("state = ?", string(state))
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []workflowTaskRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, pkgerrors.NewDatabaseError("list workflow tasks", err)
	}

	tasks := make([]*entities.WorkflowTask, 0, len(rows))
	for i := range rows {
		tasks = append(tasks, rows[i].toEntity())
	}
	return tasks, nil
}
