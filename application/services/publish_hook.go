package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"cmseditor/application/ports"
	"cmseditor/domain/config"
	"cmseditor/domain/core/entities"
	"cmseditor/domain/core/valueobjects"
	"cmseditor/domain/events"
	pkgerrors "cmseditor/pkg/errors"
	"cmseditor/pkg/extensions"
)

// MetadataPublishTaskID is the hook metadata key holding the created task
const MetadataPublishTaskID = "publish_task_id"

// PublishHook requests publishing of a committed resource. It files a
// publish task in the workflow table and announces it on the event bus.
type PublishHook struct {
	workflow  ports.WorkflowRepository
	publisher ports.EventPublisher
	clock     ports.Clock
	logger    *zap.Logger
}

// NewPublishHook creates a new publish hook
func NewPublishHook(workflow ports.WorkflowRepository, publisher ports.EventPublisher, clock ports.Clock, logger *zap.Logger) *PublishHook {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &PublishHook{workflow: workflow, publisher: publisher, clock: clock, logger: logger}
}

// Run is the extensions.Hook of the publish hook
func (h *PublishHook) Run(ctx context.Context, data *extensions.HookData) error {
	id, err := valueobjects.ParseResourceID(data.ResourceID)
	if err != nil {
		return err
	}
	now := h.clock.Now()

	task := entities.NewWorkflowTask(entities.TaskKindPublish,
		fmt.Sprintf("Publish %s", data.ResourcePath), data.ResourceID, data.UserID, now)
	if err := h.workflow.CreateTask(ctx, task); err != nil {
		return pkgerrors.NewDatabaseError("create publish task", err)
	}

	event := events.NewPublishRequested(id, data.ResourcePath, data.UserID, task.ID, now)
	if err := h.publisher.Publish(ctx, event); err != nil {
		return pkgerrors.ErrEventPublishFailed.Clone().WithCause(err)
	}

	data.Set(MetadataPublishTaskID, task.ID)
	h.logger.Info("Requested publishing",
		zap.String("resource", data.ResourcePath),
		zap.String("taskID", task.ID),
	)
	return nil
}

// RegisterPublishHook attaches the publish hook to saveaction commits unless
// publishing after save is switched off
func RegisterPublishHook(hooks *extensions.HookManager, hook *PublishHook, cfg *config.DomainConfig) {
	if cfg != nil && !cfg.PublishAfterSaveAction {
		return
	}
	hooks.Register(extensions.HookAfterCommit, hook.Run)
}
