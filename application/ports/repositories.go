package ports

import (
	"context"
	"time"

	"cmseditor/domain/core/entities"
	"cmseditor/domain/core/valueobjects"
	"cmseditor/domain/events"
)

// ResourceRepository is the port to the virtual file system.
// Missing resources are reported with errors.ErrResourceNotFound.
type ResourceRepository interface {
	// GetByPath retrieves a resource by its VFS path
	GetByPath(ctx context.Context, path string) (*entities.Resource, error)

	// GetByID retrieves a resource by its identity
	GetByID(ctx context.Context, id valueobjects.ResourceID) (*entities.Resource, error)

	// Save persists a resource (create or update)
	Save(ctx context.Context, resource *entities.Resource) error

	// Delete removes the resource stored under path
	Delete(ctx context.Context, path string) error

	// Exists checks whether a resource is stored under path
	Exists(ctx context.Context, path string) (bool, error)
}

// SessionStore keeps the editing state of each (user, resource) pair
// between requests
type SessionStore interface {
	// Get returns the stored session or (nil, nil) when there is none
	Get(ctx context.Context, key entities.SessionKey) (*entities.EditSession, error)

	// Save creates or replaces the session
	Save(ctx context.Context, session *entities.EditSession) error

	// Delete removes the session, a missing session is not an error
	Delete(ctx context.Context, key entities.SessionKey) error

	// ListExpired returns sessions not updated since before
	ListExpired(ctx context.Context, before time.Time) ([]*entities.EditSession, error)
}

// FormSubmissionRepository stores posted application forms
type FormSubmissionRepository interface {
	Insert(ctx context.Context, form *entities.ApplicationForm) error
}

// WorkflowRepository stores workflow tasks
type WorkflowRepository interface {
	// CreateTask persists a new task
	CreateTask(ctx context.Context, task *entities.WorkflowTask) error

	// ListTasks returns tasks in the given state, newest first
	ListTasks(ctx context.Context, state entities.TaskState, limit int) ([]*entities.WorkflowTask, error)
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	// Publish sends a single event
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch sends multiple events
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}

// EventBus defines the interface for publishing domain events
type EventBus interface {
	EventPublisher

	// Subscribe registers a handler for an event type
	Subscribe(eventType string, handler EventHandler) error

	// Unsubscribe removes a handler
	Unsubscribe(eventType string, handler EventHandler) error
}

// EventHandler defines the interface for handling domain events
type EventHandler interface {
	// Handle processes an event
	Handle(ctx context.Context, event events.DomainEvent) error

	// CanHandle checks if this handler can process the event
	CanHandle(eventType string) bool
}

// Cache defines the interface for caching
type Cache interface {
	// Get retrieves a value from cache
	Get(ctx context.Context, key string) (interface{}, bool)

	// Set stores a value in cache with TTL in seconds
	Set(ctx context.Context, key string, value interface{}, ttl int) error

	// Delete removes a value from cache
	Delete(ctx context.Context, key string) error

	// Clear removes all values from cache
	Clear(ctx context.Context) error
}
