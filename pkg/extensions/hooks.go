package extensions

import (
	"context"
	"fmt"
	"sync"
)

// HookPoint represents a point in the application where hooks can be registered
type HookPoint string

const (
	// Editor hooks
	HookBeforeSave  HookPoint = "before_save"
	HookAfterCommit HookPoint = "after_commit"
	HookBeforeExit  HookPoint = "before_exit"

	// Form hooks
	HookAfterFormSubmit HookPoint = "after_form_submit"
)

// Hook represents a function that can be executed at a hook point
type Hook func(ctx context.Context, data *HookData) error

// HookManager manages hooks for extension points
type HookManager struct {
	hooks map[HookPoint][]Hook
	mu    sync.RWMutex
}

// NewHookManager creates a new hook manager
func NewHookManager() *HookManager {
	return &HookManager{
		hooks: make(map[HookPoint][]Hook),
	}
}

// Register registers a hook for a specific hook point
func (m *HookManager) Register(point HookPoint, hook Hook) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.hooks[point] = append(m.hooks[point], hook)
}

// Execute executes all hooks for a specific hook point in registration
// order and stops at the first failure
func (m *HookManager) Execute(ctx context.Context, point HookPoint, data *HookData) error {
	if m == nil {
		return nil
	}
	m.mu.RLock()
	hooks := m.hooks[point]
	m.mu.RUnlock()

	for i, hook := range hooks {
		if err := hook(ctx, data); err != nil {
			return fmt.Errorf("hook %d at %s failed: %w", i, point, err)
		}
	}

	return nil
}

// Count returns the number of hooks registered at point
func (m *HookManager) Count(point HookPoint) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.hooks[point])
}

// Clear removes all hooks for a specific hook point
func (m *HookManager) Clear(point HookPoint) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.hooks, point)
}

// HookData represents data passed to hooks. Hooks may add results to
// Metadata for the caller to pick up.
type HookData struct {
	ResourceID   string                 `json:"resource_id,omitempty"`
	ResourcePath string                 `json:"resource_path,omitempty"`
	UserID       string                 `json:"user_id,omitempty"`
	Operation    string                 `json:"operation"`
	Locales      []string               `json:"locales,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// Set stores a value in Metadata
func (d *HookData) Set(key string, value interface{}) {
	if d.Metadata == nil {
		d.Metadata = make(map[string]interface{})
	}
	d.Metadata[key] = value
}

// String returns a Metadata value as string
func (d *HookData) String(key string) string {
	s, _ := d.Metadata[key].(string)
	return s
}
