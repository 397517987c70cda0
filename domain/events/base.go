package events

import (
	"time"

	"cmseditor/domain/core/valueobjects"
)

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

func newBase(aggregateID, eventType string, version int, at time.Time) BaseEvent {
	return BaseEvent{
		AggregateID: aggregateID,
		EventType:   eventType,
		Timestamp:   at,
		Version:     version,
	}
}

// Editor session events

// EditSessionOpened is raised when a user starts editing a resource
type EditSessionOpened struct {
	BaseEvent
	ResourceID   valueobjects.ResourceID `json:"resource_id"`
	ResourcePath string                  `json:"resource_path"`
	UserID       string                  `json:"user_id"`
	EditorName   string                  `json:"editor_name"`
	DirectEdit   bool                    `json:"direct_edit"`
}

func NewEditSessionOpened(id valueobjects.ResourceID, path, userID, editor string, directEdit bool, at time.Time) EditSessionOpened {
	return EditSessionOpened{
		BaseEvent:    newBase(id.String(), "editor.session_opened", 1, at),
		ResourceID:   id,
		ResourcePath: path,
		UserID:       userID,
		EditorName:   editor,
		DirectEdit:   directEdit,
	}
}

// EditSessionClosed is raised when the temporary file is cleared
type EditSessionClosed struct {
	BaseEvent
	ResourceID valueobjects.ResourceID `json:"resource_id"`
	UserID     string                  `json:"user_id"`
	Unlocked   bool                    `json:"unlocked"`
	Reason     string                  `json:"reason"`
}

func NewEditSessionClosed(id valueobjects.ResourceID, userID string, unlocked bool, reason string, at time.Time) EditSessionClosed {
	return EditSessionClosed{
		BaseEvent:  newBase(id.String(), "editor.session_closed", 1, at),
		ResourceID: id,
		UserID:     userID,
		Unlocked:   unlocked,
		Reason:     reason,
	}
}

// TempFileRecreated is raised when a temporary file vanished and was copied again
type TempFileRecreated struct {
	BaseEvent
	ResourcePath string `json:"resource_path"`
	TempPath     string `json:"temp_path"`
}

func NewTempFileRecreated(id valueobjects.ResourceID, path, tempPath string, at time.Time) TempFileRecreated {
	return TempFileRecreated{
		BaseEvent:    newBase(id.String(), "editor.tempfile_recreated", 1, at),
		ResourcePath: path,
		TempPath:     tempPath,
	}
}

// Content events

// ResourceCommitted is raised after a temporary file was copied onto its original
type ResourceCommitted struct {
	BaseEvent
	ResourceID   valueobjects.ResourceID `json:"resource_id"`
	ResourcePath string                  `json:"resource_path"`
	UserID       string                  `json:"user_id"`
	Locales      []string                `json:"locales"`
}

func NewResourceCommitted(id valueobjects.ResourceID, path, userID string, locales []string, version int, at time.Time) ResourceCommitted {
	return ResourceCommitted{
		BaseEvent:    newBase(id.String(), "content.committed", version, at),
		ResourceID:   id,
		ResourcePath: path,
		UserID:       userID,
		Locales:      locales,
	}
}

// LocaleDeleted is raised when a locale is removed from a content
type LocaleDeleted struct {
	BaseEvent
	Locale       string `json:"locale"`
	ActiveLocale string `json:"active_locale"`
}

func NewLocaleDeleted(id valueobjects.ResourceID, locale, active string, at time.Time) LocaleDeleted {
	return LocaleDeleted{
		BaseEvent:    newBase(id.String(), "content.locale_deleted", 1, at),
		Locale:       locale,
		ActiveLocale: active,
	}
}

// PublishRequested is raised by the publish-after-save action
type PublishRequested struct {
	BaseEvent
	ResourceID   valueobjects.ResourceID `json:"resource_id"`
	ResourcePath string                  `json:"resource_path"`
	UserID       string                  `json:"user_id"`
	TaskID       string                  `json:"task_id"`
}

func NewPublishRequested(id valueobjects.ResourceID, path, userID, taskID string, at time.Time) PublishRequested {
	return PublishRequested{
		BaseEvent:    newBase(id.String(), "content.publish_requested", 1, at),
		ResourceID:   id,
		ResourcePath: path,
		UserID:       userID,
		TaskID:       taskID,
	}
}

// Form events

// ApplicationFormSubmitted is raised after a valid application form was stored
type ApplicationFormSubmitted struct {
	BaseEvent
	SubmissionID string `json:"submission_id"`
	Position     string `json:"position"`
	Email        string `json:"email"`
}

func NewApplicationFormSubmitted(submissionID, position, email string, at time.Time) ApplicationFormSubmitted {
	return ApplicationFormSubmitted{
		BaseEvent:    newBase(submissionID, "form.application_submitted", 1, at),
		SubmissionID: submissionID,
		Position:     position,
		Email:        email,
	}
}
