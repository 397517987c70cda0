package handlers

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"cmseditor/application/ports"
	"cmseditor/application/queries"
	"cmseditor/domain/config"
	"cmseditor/domain/core/aggregates"
	"cmseditor/domain/core/editor"
	"cmseditor/domain/core/entities"
	"cmseditor/domain/core/valueobjects"
	pkgerrors "cmseditor/pkg/errors"
	"cmseditor/pkg/utils"
)

// GetEditSessionHandler reports the session of a user on a resource
type GetEditSessionHandler struct {
	repo     ports.ResourceRepository
	sessions ports.SessionStore
	locks    ports.LockService
	logger   *zap.Logger
}

// NewGetEditSessionHandler creates a new session query handler
func NewGetEditSessionHandler(
	repo ports.ResourceRepository,
	sessions ports.SessionStore,
	locks ports.LockService,
	logger *zap.Logger,
) *GetEditSessionHandler {
	return &GetEditSessionHandler{
		repo:     repo,
		sessions: sessions,
		locks:    locks,
		logger:   logger,
	}
}

// Handle executes the session query. A resource without a session is
// reported with Open=false, the lock is reported either way.
func (h *GetEditSessionHandler) Handle(ctx context.Context, query queries.GetEditSessionQuery) (*queries.EditSessionResult, error) {
	resource, err := h.repo.GetByPath(ctx, query.Resource)
	if err != nil {
		return nil, err
	}

	result := &queries.EditSessionResult{Resource: resource.Path()}

	lock, err := h.locks.GetLock(ctx, resource.Path())
	if err != nil {
		return nil, fmt.Errorf("failed to read lock: %w", err)
	}
	if lock != nil {
		result.LockedBy = lock.Owner
		result.LockExpiresAt = utils.FormatRFC3339(lock.ExpiresAt)
	}

	session, err := h.sessions.Get(ctx, entities.SessionKey{ResourceID: resource.ID(), UserID: query.UserID})
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("get session", err)
	}
	if session == nil {
		return result, nil
	}

	result.Open = true
	result.TempFile = session.TempFilePath
	result.Editor = session.EditorName
	result.Kind = session.Kind
	result.ActiveLocale = session.ActiveLocale.String()
	result.ActiveElement = session.ActiveElement
	result.BackLink = session.BackLink
	result.DirectEdit = session.DirectEdit
	result.Modified = session.Modified
	result.LockAcquired = session.LockAcquired
	result.UpdatedAt = utils.FormatRFC3339(session.UpdatedAt)
	return result, nil
}

// SelectEditorHandler picks the editor for a resource type
type SelectEditorHandler struct {
	editors ports.EditorRegistry
}

// NewSelectEditorHandler creates a new editor selection handler
func NewSelectEditorHandler(editors ports.EditorRegistry) *SelectEditorHandler {
	return &SelectEditorHandler{editors: editors}
}

// Handle executes the selection query
func (h *SelectEditorHandler) Handle(ctx context.Context, query queries.SelectEditorQuery) (*queries.EditorSelectionResult, error) {
	d, err := h.editors.Select(query.ResourceType, query.UserAgent, query.Preferred)
	if err != nil {
		return nil, err
	}
	rank, _ := d.Rank(query.ResourceType)
	return &queries.EditorSelectionResult{
		Name:         d.Name,
		Kind:         d.Kind.String(),
		Widget:       d.Widget,
		ResourceType: string(query.ResourceType),
		Rank:         rank,
	}, nil
}

// ListLocalesHandler lists the locales of a resource
type ListLocalesHandler struct {
	repo     ports.ResourceRepository
	sessions ports.SessionStore
	config   *config.DomainConfig
	logger   *zap.Logger
}

// NewListLocalesHandler creates a new locale listing handler
func NewListLocalesHandler(
	repo ports.ResourceRepository,
	sessions ports.SessionStore,
	cfg *config.DomainConfig,
	logger *zap.Logger,
) *ListLocalesHandler {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &ListLocalesHandler{
		repo:     repo,
		sessions: sessions,
		config:   cfg,
		logger:   logger,
	}
}

// Handle executes the locale query
func (h *ListLocalesHandler) Handle(ctx context.Context, query queries.ListLocalesQuery) (*queries.LocalesResult, error) {
	original, err := h.repo.GetByPath(ctx, query.Resource)
	if err != nil {
		return nil, err
	}

	defaults := valueobjects.ParseLocaleList(original.Property(entities.PropertyLocales))
	if len(defaults) == 0 {
		defaults = valueobjects.ParseLocaleList(strings.Join(h.config.DefaultLocales, ","))
	}
	result := &queries.LocalesResult{
		Resource: original.Path(),
		Source:   original.Path(),
		Locales:  []string{},
		Defaults: defaults.Strings(),
		Max:      h.config.MaxLocales,
	}

	if !editor.KindForResourceType(original.Type()).Localized() {
		return result, nil
	}
	result.Localized = true

	content := original
	session, err := h.sessions.Get(ctx, entities.SessionKey{ResourceID: original.ID(), UserID: query.UserID})
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("get session", err)
	}
	if session != nil {
		result.Active = session.ActiveLocale.String()
		temp, err := h.repo.GetByPath(ctx, session.TempFilePath)
		switch {
		case err == nil:
			content = temp
			result.Source = temp.Path()
		case pkgerrors.IsNotFound(err):
			h.logger.Debug("Temporary file missing, listing original locales",
				zap.String("tempFile", session.TempFilePath),
			)
		default:
			return nil, err
		}
	}

	if len(content.Content()) == 0 {
		return result, nil
	}
	doc, err := aggregates.ParseDocument(content.Content())
	if err != nil {
		return nil, err
	}
	result.Locales = doc.Locales().Strings()
	return result, nil
}

// ListWorkflowTasksHandler lists workflow tasks for the back office
type ListWorkflowTasksHandler struct {
	workflow ports.WorkflowRepository
}

// NewListWorkflowTasksHandler creates a new task listing handler
func NewListWorkflowTasksHandler(workflow ports.WorkflowRepository) *ListWorkflowTasksHandler {
	return &ListWorkflowTasksHandler{workflow: workflow}
}

// Handle executes the task query
func (h *ListWorkflowTasksHandler) Handle(ctx context.Context, query queries.ListWorkflowTasksQuery) ([]queries.WorkflowTaskResult, error) {
	limit := query.Limit
	if limit == 0 {
		limit = 50
	}
	tasks, err := h.workflow.ListTasks(ctx, query.State, limit)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("list workflow tasks", err)
	}
	results := make([]queries.WorkflowTaskResult, 0, len(tasks))
	for _, t := range tasks {
		results = append(results, queries.WorkflowTaskResult{
			ID:          t.ID,
			Kind:        string(t.Kind),
			State:       string(t.State),
			Subject:     t.Subject,
			ReferenceID: t.ReferenceID,
			CreatedBy:   t.CreatedBy,
			CreatedAt:   utils.FormatRFC3339(t.CreatedAt),
		})
	}
	return results, nil
}
