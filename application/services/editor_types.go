package services

import (
	"cmseditor/domain/core/aggregates"
	"cmseditor/domain/core/editor"
	"cmseditor/domain/core/entities"
)

// EditorRequest carries one editor action together with the posted buffer
type EditorRequest struct {
	UserID    string
	UserAgent string
	Action    editor.Action

	Resource     string
	ResourceType entities.ResourceType // only used by ActionNew
	Schema       string                // schema of a new xml content
	TempFile     string

	// Content is the posted buffer of a page or text file, nil when the
	// browser sent none
	Content *string

	// Values holds the posted xml content values keyed by element path
	Values map[string]string

	ElementName        string
	OldElementName     string
	ElementLanguage    string
	OldElementLanguage string
	ElementIndex       int
	CopyTargets        []string

	// ChoiceElement is the path of the choice group AddElement inserts,
	// instead of ElementName; ChoiceType names the option to insert
	ChoiceElement string
	ChoiceType    string

	// Modified is the browser's view of unsaved changes, nil when not sent
	Modified   *bool
	DirectEdit *bool
	BackLink   string
	// NewLink is where to return after a resource created by ActionNew
	NewLink    string
	EditorMode string
}

// EditorView is what the browser gets back after an action
type EditorView struct {
	State    editor.State `json:"state"`
	Action   string       `json:"action"`
	Resource string       `json:"resource"`
	TempFile string       `json:"tempfile,omitempty"`
	Editor   string       `json:"editor,omitempty"`
	Kind     string       `json:"kind,omitempty"`

	ElementName     string                 `json:"elementname,omitempty"`
	ElementLanguage string                 `json:"elementlanguage,omitempty"`
	Locales         []string               `json:"locales,omitempty"`
	Elements        []editor.ActiveElement `json:"elements,omitempty"`

	Content *string                `json:"content,omitempty"`
	Values  []aggregates.PathValue `json:"values,omitempty"`

	BackLink   string `json:"backlink,omitempty"`
	DirectEdit bool   `json:"directedit"`
	Modified   bool   `json:"modified"`

	Errors          map[string]map[string][]string `json:"errors,omitempty"`
	PreviewPath     string                         `json:"previewpath,omitempty"`
	NeedsCorrection bool                           `json:"needsCorrection,omitempty"`
	PublishTaskID   string                         `json:"publishTaskId,omitempty"`
	Message         string                         `json:"message,omitempty"`
}
