package entities

import (
	"time"

	"cmseditor/domain/core/valueobjects"
	pkgerrors "cmseditor/pkg/errors"
)

// SessionKey identifies the editing state of one user on one resource
type SessionKey struct {
	ResourceID valueobjects.ResourceID
	UserID     string
}

func (k SessionKey) String() string {
	return k.UserID + "|" + k.ResourceID.String()
}

// Valid reports whether both parts of the key are set
func (k SessionKey) Valid() bool {
	return !k.ResourceID.IsZero() && k.UserID != ""
}

// EditSession is the per-user, per-resource editing state that survives
// between requests. It owns the reference to the temporary file.
type EditSession struct {
	Key           SessionKey
	ResourcePath  string
	TempFilePath  string
	BackLink      string
	DirectEdit    bool
	ActiveLocale  valueobjects.Locale
	ActiveElement string
	EditorName    string
	Kind          string
	LockAcquired  bool
	Modified      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewEditSession creates the record for a user opening an editor
func NewEditSession(key SessionKey, resourcePath string, now time.Time) (*EditSession, error) {
	if !key.Valid() {
		return nil, pkgerrors.NewValidationError("session key needs a resource and a user")
	}
	return &EditSession{
		Key:          key,
		ResourcePath: resourcePath,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// SessionUpdate is a sparse update. Empty strings, zero locales and nil
// pointers leave the stored value alone.
type SessionUpdate struct {
	TempFilePath  string
	BackLink      string
	DirectEdit    *bool
	ActiveLocale  valueobjects.Locale
	ActiveElement string
	EditorName    string
	Kind          string
	LockAcquired  *bool
	Modified      *bool
}

// Merge applies an update, last write wins per field
func (s *EditSession) Merge(u SessionUpdate, now time.Time) {
	if u.TempFilePath != "" {
		s.TempFilePath = u.TempFilePath
	}
	if u.BackLink != "" {
		s.BackLink = u.BackLink
	}
	if u.DirectEdit != nil {
		s.DirectEdit = *u.DirectEdit
	}
	if !u.ActiveLocale.IsZero() {
		s.ActiveLocale = u.ActiveLocale
	}
	if u.ActiveElement != "" {
		s.ActiveElement = u.ActiveElement
	}
	if u.EditorName != "" {
		s.EditorName = u.EditorName
	}
	if u.Kind != "" {
		s.Kind = u.Kind
	}
	if u.LockAcquired != nil {
		s.LockAcquired = *u.LockAcquired
	}
	if u.Modified != nil {
		s.Modified = *u.Modified
	}
	s.UpdatedAt = now
}

// Expired reports whether the session was idle longer than timeout
func (s *EditSession) Expired(now time.Time, timeout time.Duration) bool {
	return timeout > 0 && now.Sub(s.UpdatedAt) > timeout
}

// Clone returns an independent copy
func (s *EditSession) Clone() *EditSession {
	c := *s
	return &c
}

// Bool returns a pointer for sparse updates
func Bool(b bool) *bool { return &b }
