package commands

import (
	"time"

	"cmseditor/application/services"
	"cmseditor/domain/core/editor"
	pkgerrors "cmseditor/pkg/errors"
	"cmseditor/pkg/utils"
)

// EditorActionCommand runs one action of the editor state machine
type EditorActionCommand struct {
	Request services.EditorRequest
}

// Validate validates the command
func (c EditorActionCommand) Validate() error {
	if c.Request.UserID == "" {
		return pkgerrors.NewUnauthorizedError("editing requires a signed in user")
	}
	if c.Request.Resource == "" && c.Request.Action != editor.ActionError {
		return pkgerrors.NewValidationError("resource is required")
	}
	return nil
}

// SubmitApplicationFormCommand posts the public application form
type SubmitApplicationFormCommand struct {
	Action     string            `json:"action" validate:"max=32"`
	Values     map[string]string `json:"values"`
	RemoteAddr string            `json:"remote_addr" validate:"max=64"`
}

// Validate validates the command
func (c SubmitApplicationFormCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// Get returns a posted value, empty when missing
func (c SubmitApplicationFormCommand) Get(name string) string {
	return c.Values[name]
}

// CleanupStaleSessionsCommand closes edit sessions idle for longer than
// MaxIdle, removing their temporary files and the locks they acquired
type CleanupStaleSessionsCommand struct {
	MaxIdle   time.Duration `json:"max_idle" validate:"gte=0"`
	Limit     int           `json:"limit" validate:"gte=0,lte=1000"`
	RequestBy string        `json:"request_by" validate:"required"`
}

// Validate validates the command
func (c CleanupStaleSessionsCommand) Validate() error {
	return utils.ValidateStruct(c)
}
