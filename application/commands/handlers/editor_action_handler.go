package handlers

import (
	"context"

	"cmseditor/application/commands"
	"cmseditor/application/services"
)

// EditorActionHandler runs one editor request against the editor service
type EditorActionHandler struct {
	editor *services.EditorService
}

// NewEditorActionHandler creates a new editor action handler
func NewEditorActionHandler(editor *services.EditorService) *EditorActionHandler {
	return &EditorActionHandler{editor: editor}
}

// Handle executes the editor action command
func (h *EditorActionHandler) Handle(ctx context.Context, cmd commands.EditorActionCommand) (*services.EditorView, error) {
	return h.editor.Handle(ctx, cmd.Request)
}
