package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"cmseditor/application/commands"
	"cmseditor/application/commands/bus"
	"cmseditor/application/queries"
	querybus "cmseditor/application/queries/bus"
	"cmseditor/domain/core/entities"
	"cmseditor/pkg/auth"
	"cmseditor/pkg/common"
	pkgerrors "cmseditor/pkg/errors"
)

// AdminHandler serves maintenance endpoints for administrators
type AdminHandler struct {
	commandBus     *bus.CommandBus
	queryBus       *querybus.QueryBus
	errors         *pkgerrors.ErrorHandler
	defaultMaxIdle time.Duration
	logger         *zap.Logger
}

// NewAdminHandler creates a new admin handler. defaultMaxIdle applies when
// a cleanup request names no max_idle.
func NewAdminHandler(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	errorHandler *pkgerrors.ErrorHandler,
	defaultMaxIdle time.Duration,
	logger *zap.Logger,
) *AdminHandler {
	return &AdminHandler{
		commandBus:     commandBus,
		queryBus:       queryBus,
		errors:         errorHandler,
		defaultMaxIdle: defaultMaxIdle,
		logger:         logger,
	}
}

// CleanupRequest is the optional body of a cleanup run
type CleanupRequest struct {
	MaxIdle string `json:"max_idle"`
	Limit   int    `json:"limit"`
}

// Cleanup handles POST /admin/cleanup
func (h *AdminHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		handleError(h.errors, w, r, pkgerrors.NewUnauthorizedError("unauthorized"))
		return
	}

	var req CleanupRequest
	if r.ContentLength > 0 {
		if err := common.ParseJSONBody(w, r, &req, 4<<10); err != nil {
			handleError(h.errors, w, r, pkgerrors.NewValidationError("invalid request body: "+err.Error()))
			return
		}
	}

	maxIdle := h.defaultMaxIdle
	if req.MaxIdle != "" {
		maxIdle, err = time.ParseDuration(req.MaxIdle)
		if err != nil {
			handleError(h.errors, w, r, pkgerrors.NewValidationError("max_idle must be a duration such as 8h"))
			return
		}
	}

	result, err := h.commandBus.Send(r.Context(), commands.CleanupStaleSessionsCommand{
		MaxIdle:   maxIdle,
		Limit:     req.Limit,
		RequestBy: user.UserID,
	})
	if err != nil {
		handleError(h.errors, w, r, err)
		return
	}

	h.logger.Info("Stale session cleanup requested",
		zap.String("userID", user.UserID),
		zap.Duration("maxIdle", maxIdle),
	)
	common.RespondJSON(w, http.StatusOK, result)
}

// Tasks handles GET /admin/tasks
func (h *AdminHandler) Tasks(w http.ResponseWriter, r *http.Request) {
	state := entities.TaskState(r.URL.Query().Get("state"))
	if state == "" {
		state = entities.TaskStateNew
	}

	result, err := h.queryBus.Ask(r.Context(), queries.ListWorkflowTasksQuery{
		State: state,
		Limit: common.LimitParam(r, "limit", 50, 500),
	})
	if err != nil {
		handleError(h.errors, w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"state": state,
		"tasks": result,
	})
}
