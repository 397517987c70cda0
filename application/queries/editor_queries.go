package queries

import (
	"errors"

	"cmseditor/domain/core/entities"
)

// GetEditSessionQuery returns the editing state of a user on a resource
type GetEditSessionQuery struct {
	UserID   string
	Resource string
}

// Validate validates the GetEditSessionQuery
func (q GetEditSessionQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("user ID is required")
	}
	if q.Resource == "" {
		return errors.New("resource is required")
	}
	return nil
}

// EditSessionResult describes an open edit session and the lock on its resource
type EditSessionResult struct {
	Resource      string `json:"resource"`
	Open          bool   `json:"open"`
	TempFile      string `json:"tempfile,omitempty"`
	Editor        string `json:"editor,omitempty"`
	Kind          string `json:"kind,omitempty"`
	ActiveLocale  string `json:"elementlanguage,omitempty"`
	ActiveElement string `json:"elementname,omitempty"`
	BackLink      string `json:"backlink,omitempty"`
	DirectEdit    bool   `json:"directedit"`
	Modified      bool   `json:"modified"`
	LockAcquired  bool   `json:"lockAcquired"`
	LockedBy      string `json:"lockedBy,omitempty"`
	LockExpiresAt string `json:"lockExpiresAt,omitempty"`
	UpdatedAt     string `json:"updatedAt,omitempty"`
}

// SelectEditorQuery asks which editor serves a resource type in a browser
type SelectEditorQuery struct {
	ResourceType entities.ResourceType
	UserAgent    string
	Preferred    string
}

// Validate validates the SelectEditorQuery
func (q SelectEditorQuery) Validate() error {
	if !q.ResourceType.Valid() {
		return errors.New("valid resource type is required")
	}
	return nil
}

// CacheKey identifies the selection: the same type, browser and preference
// always select the same editor until the configuration is reloaded
func (q SelectEditorQuery) CacheKey() string {
	return string(q.ResourceType) + "|" + q.Preferred + "|" + q.UserAgent
}

// EditorSelectionResult is the chosen editor
type EditorSelectionResult struct {
	Name         string  `json:"name"`
	Kind         string  `json:"kind"`
	Widget       bool    `json:"widget"`
	ResourceType string  `json:"resourceType"`
	Rank         float64 `json:"rank"`
}

// ListLocalesQuery lists the locales of a resource as the user currently sees
// them, i.e. from the temporary file while a session is open
type ListLocalesQuery struct {
	UserID   string
	Resource string
}

// Validate validates the ListLocalesQuery
func (q ListLocalesQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("user ID is required")
	}
	if q.Resource == "" {
		return errors.New("resource is required")
	}
	return nil
}

// LocalesResult lists present and configured locales
type LocalesResult struct {
	Resource  string   `json:"resource"`
	Localized bool     `json:"localized"`
	Source    string   `json:"source"`
	Locales   []string `json:"locales"`
	Active    string   `json:"active,omitempty"`
	Defaults  []string `json:"defaults"`
	Max       int      `json:"max"`
}

// ListWorkflowTasksQuery lists workflow tasks in a state
type ListWorkflowTasksQuery struct {
	State entities.TaskState
	Limit int
}

// Validate validates the ListWorkflowTasksQuery
func (q ListWorkflowTasksQuery) Validate() error {
	if q.State != entities.TaskStateNew && q.State != entities.TaskStateDone {
		return errors.New("state must be new or done")
	}
	if q.Limit < 0 || q.Limit > 500 {
		return errors.New("limit must be between 0 and 500")
	}
	return nil
}

// WorkflowTaskResult is one task in a listing
type WorkflowTaskResult struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	State       string `json:"state"`
	Subject     string `json:"subject"`
	ReferenceID string `json:"referenceId"`
	CreatedBy   string `json:"createdBy"`
	CreatedAt   string `json:"createdAt"`
}
