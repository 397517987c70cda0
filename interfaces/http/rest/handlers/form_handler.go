package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"cmseditor/application/commands"
	"cmseditor/application/commands/bus"
	cmdhandlers "cmseditor/application/commands/handlers"
	"cmseditor/domain/core/entities"
	"cmseditor/interfaces/http/rest/middleware"
	"cmseditor/pkg/common"
	pkgerrors "cmseditor/pkg/errors"
)

const maxFormBody = 64 << 10

// FormHandler serves the public application form
type FormHandler struct {
	commandBus *bus.CommandBus
	errors     *pkgerrors.ErrorHandler
	logger     *zap.Logger
}

// NewFormHandler creates a new form handler
func NewFormHandler(commandBus *bus.CommandBus, errorHandler *pkgerrors.ErrorHandler, logger *zap.Logger) *FormHandler {
	return &FormHandler{
		commandBus: commandBus,
		errors:     errorHandler,
		logger:     logger,
	}
}

// SubmitApplication handles POST /forms/application. A rejected submission
// answers 422 with the form model and its field errors, a stored one 201.
func (h *FormHandler) SubmitApplication(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBody)
	if err := r.ParseForm(); err != nil {
		handleError(h.errors, w, r, pkgerrors.NewValidationError("invalid form body"))
		return
	}

	values := make(map[string]string, len(entities.ApplicationFormFields))
	for _, name := range entities.ApplicationFormFields {
		if r.PostForm.Has(name) {
			values[name] = r.PostForm.Get(name)
		}
	}

	cmd := commands.SubmitApplicationFormCommand{
		Action:     r.PostForm.Get("action"),
		Values:     values,
		RemoteAddr: middleware.ClientIP(r),
	}
	result, err := h.commandBus.Send(r.Context(), cmd)
	if err != nil {
		handleError(h.errors, w, r, err)
		return
	}

	model, ok := result.(*cmdhandlers.ApplicationFormResult)
	if !ok {
		handleError(h.errors, w, r, pkgerrors.NewInternalError("form returned no result"))
		return
	}

	status := http.StatusOK
	switch {
	case model.Submitted:
		status = http.StatusCreated
	case len(model.Errors) > 0:
		status = http.StatusUnprocessableEntity
	}
	h.logger.Debug("Application form handled",
		zap.String("action", cmd.Action),
		zap.Bool("submitted", model.Submitted),
		zap.Int("errors", len(model.Errors)),
	)
	common.RespondJSON(w, status, model)
}
