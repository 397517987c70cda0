package entities

import (
	"time"

	"github.com/google/uuid"
)

// TaskKind distinguishes the workflows a task belongs to
type TaskKind string

const (
	TaskKindApplication TaskKind = "application"
	TaskKindPublish     TaskKind = "publish"
)

// TaskState is the progress of a workflow task
type TaskState string

const (
	TaskStateNew  TaskState = "new"
	TaskStateDone TaskState = "done"
)

// WorkflowTask is an entry of the simple workflow table
type WorkflowTask struct {
	ID          string
	Kind        TaskKind
	State       TaskState
	Subject     string
	ReferenceID string
	CreatedBy   string
	CreatedAt   time.Time
}

// NewWorkflowTask creates a task in state new
func NewWorkflowTask(kind TaskKind, subject, referenceID, createdBy string, now time.Time) *WorkflowTask {
	return &WorkflowTask{
		ID:          uuid.New().String(),
		Kind:        kind,
		State:       TaskStateNew,
		Subject:     subject,
		ReferenceID: referenceID,
		CreatedBy:   createdBy,
		CreatedAt:   now,
	}
}
