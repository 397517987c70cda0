package ports

import (
	"context"
	"time"

	"cmseditor/domain/core/aggregates"
	"cmseditor/domain/core/editor"
	"cmseditor/domain/core/entities"
)

// Lock is an exclusive edit lock on a resource path
type Lock struct {
	Path       string
	Owner      string
	AcquiredAt time.Time
	ExpiresAt  time.Time
}

// LockService serializes conflicting writers of a resource
type LockService interface {
	// Acquire locks path for owner. A lock held by another owner is reported
	// with errors.ErrResourceLocked; re-acquiring an own lock extends it.
	Acquire(ctx context.Context, path, owner string, ttl time.Duration) (*Lock, error)

	// Release removes the lock if owner holds it
	Release(ctx context.Context, path, owner string) error

	// GetLock returns the current lock or (nil, nil) when path is unlocked
	GetLock(ctx context.Context, path string) (*Lock, error)
}

// SchemaRegistry provides the schemas of xml content types
type SchemaRegistry interface {
	Get(name string) (*aggregates.Schema, error)
	Names() []string
}

// EditorRegistry provides the configured editors
type EditorRegistry interface {
	// Select returns the editor for a resource type and browser
	Select(resourceType entities.ResourceType, userAgent, preferred string) (editor.Descriptor, error)

	// Editors returns every valid editor
	Editors() []editor.Descriptor
}

// MailMessage is one outgoing plain text mail
type MailMessage struct {
	To      []string
	ReplyTo string
	Subject string
	Body    string
}

// Mailer delivers a single mail synchronously
type Mailer interface {
	Send(ctx context.Context, msg MailMessage) error
}

// Clock abstracts time for testability
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
