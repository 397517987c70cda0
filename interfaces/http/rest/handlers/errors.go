package handlers

import (
	"errors"
	"net/http"

	"cmseditor/application/commands/bus"
	querybus "cmseditor/application/queries/bus"
	pkgerrors "cmseditor/pkg/errors"
)

// classify turns bus validation failures that carry no typed error into
// validation errors so they answer 400 instead of 500
func classify(err error) error {
	if err == nil || pkgerrors.IsAppError(err) {
		return err
	}
	var domainErr *pkgerrors.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	if errors.Is(err, bus.ErrValidationFailed) || errors.Is(err, querybus.ErrQueryInvalid) {
		return pkgerrors.NewValidationError(err.Error())
	}
	return err
}

func handleError(h *pkgerrors.ErrorHandler, w http.ResponseWriter, r *http.Request, err error) {
	h.Handle(w, r, classify(err))
}
