package valueobjects

import (
	"fmt"

	"github.com/google/uuid"
)

// ResourceID is the structure id of a VFS resource. It stays stable across
// moves and renames, which is why edit sessions are keyed by it instead of
// by path.
type ResourceID struct {
	id uuid.UUID
}

// NewResourceID creates a new random ResourceID
func NewResourceID() ResourceID {
	return ResourceID{id: uuid.New()}
}

// ParseResourceID parses the canonical string form
func ParseResourceID(s string) (ResourceID, error) {
	if s == "" {
		return ResourceID{}, fmt.Errorf("resource id cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return ResourceID{}, fmt.Errorf("invalid resource id %q: %w", s, err)
	}
	return ResourceID{id: id}, nil
}

// MustResourceID is ParseResourceID for literals in tests and fixtures
func MustResourceID(s string) ResourceID {
	id, err := ParseResourceID(s)
	if err != nil {
		panic(err)
	}
	return id
}

func (r ResourceID) String() string {
	if r.IsZero() {
		return ""
	}
	return r.id.String()
}

func (r ResourceID) Equals(other ResourceID) bool { return r.id == other.id }

func (r ResourceID) IsZero() bool { return r.id == uuid.Nil }

// MarshalText implements encoding.TextMarshaler
func (r ResourceID) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (r *ResourceID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*r = ResourceID{}
		return nil
	}
	parsed, err := ParseResourceID(string(data))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
