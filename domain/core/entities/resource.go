package entities

import (
	"path"
	"strings"
	"time"

	"cmseditor/domain/core/valueobjects"
	pkgerrors "cmseditor/pkg/errors"
)

// ResourceType identifies how the content of a resource is structured
type ResourceType string

const (
	TypePlain      ResourceType = "plain"
	TypeXMLPage    ResourceType = "xmlpage"
	TypeXMLContent ResourceType = "xmlcontent"
)

// Well known resource properties
const (
	PropertyTemplateElements = "template-elements"
	PropertySchema           = "schema"
	PropertyTitle            = "Title"
	PropertyLocales          = "locale"
)

// Valid reports whether t is one of the known resource types
func (t ResourceType) Valid() bool {
	switch t {
	case TypePlain, TypeXMLPage, TypeXMLContent:
		return true
	}
	return false
}

// Resource is a file in the virtual file system
type Resource struct {
	id             valueobjects.ResourceID
	path           string
	resourceType   ResourceType
	content        []byte
	properties     map[string]string
	temporary      bool
	version        int
	lastModified   time.Time
	lastModifiedBy string
}

// NewResource creates a new resource with validation
func NewResource(resourcePath string, resourceType ResourceType, content []byte, userID string) (*Resource, error) {
	if err := validatePath(resourcePath); err != nil {
		return nil, err
	}
	if !resourceType.Valid() {
		return nil, pkgerrors.NewValidationError("unknown resource type " + string(resourceType))
	}
	return &Resource{
		id:             valueobjects.NewResourceID(),
		path:           path.Clean(resourcePath),
		resourceType:   resourceType,
		content:        append([]byte(nil), content...),
		properties:     make(map[string]string),
		version:        1,
		lastModified:   time.Now(),
		lastModifiedBy: userID,
	}, nil
}

// ReconstructResource rebuilds a resource from stored data
func ReconstructResource(
	id valueobjects.ResourceID,
	resourcePath string,
	resourceType ResourceType,
	content []byte,
	properties map[string]string,
	temporary bool,
	version int,
	lastModified time.Time,
	lastModifiedBy string,
) (*Resource, error) {
	if id.IsZero() {
		return nil, pkgerrors.NewValidationError("resource id cannot be empty")
	}
	if err := validatePath(resourcePath); err != nil {
		return nil, err
	}
	if properties == nil {
		properties = make(map[string]string)
	}
	return &Resource{
		id:             id,
		path:           resourcePath,
		resourceType:   resourceType,
		content:        content,
		properties:     properties,
		temporary:      temporary,
		version:        version,
		lastModified:   lastModified,
		lastModifiedBy: lastModifiedBy,
	}, nil
}

func validatePath(p string) error {
	if p == "" || !strings.HasPrefix(p, "/") {
		return pkgerrors.NewValidationError("resource path must be absolute")
	}
	if strings.HasSuffix(p, "/") {
		return pkgerrors.NewValidationError("resource path must name a file")
	}
	return nil
}

func (r *Resource) ID() valueobjects.ResourceID { return r.id }
func (r *Resource) Path() string                { return r.path }
func (r *Resource) Type() ResourceType          { return r.resourceType }
func (r *Resource) IsTemporary() bool           { return r.temporary }
func (r *Resource) Version() int                { return r.version }
func (r *Resource) LastModified() time.Time     { return r.lastModified }
func (r *Resource) LastModifiedBy() string      { return r.lastModifiedBy }

// Content returns a copy of the raw content
func (r *Resource) Content() []byte {
	return append([]byte(nil), r.content...)
}

// Properties returns a copy of all properties
func (r *Resource) Properties() map[string]string {
	out := make(map[string]string, len(r.properties))
	for k, v := range r.properties {
		out[k] = v
	}
	return out
}

func (r *Resource) Property(name string) string {
	return r.properties[name]
}

func (r *Resource) SetProperty(name, value string) {
	if value == "" {
		delete(r.properties, name)
		return
	}
	r.properties[name] = value
}

// UpdateContent replaces the content
func (r *Resource) UpdateContent(content []byte, userID string) {
	r.content = append([]byte(nil), content...)
	r.lastModified = time.Now()
	r.lastModifiedBy = userID
	r.version++
}

// TempPath is where the temporary working copy of this resource lives
func (r *Resource) TempPath(prefix string) string {
	return TempPathFor(r.path, prefix)
}

// NewTempCopy creates the temporary working copy of the resource
func (r *Resource) NewTempCopy(prefix, userID string) *Resource {
	return &Resource{
		id:             valueobjects.NewResourceID(),
		path:           r.TempPath(prefix),
		resourceType:   r.resourceType,
		content:        r.Content(),
		properties:     r.Properties(),
		temporary:      true,
		version:        1,
		lastModified:   time.Now(),
		lastModifiedBy: userID,
	}
}

// CommitFrom copies content and properties of a temporary file onto this
// resource. The resource keeps its identity and is no longer temporary.
func (r *Resource) CommitFrom(temp *Resource, userID string) error {
	if !temp.IsTemporary() {
		return pkgerrors.NewValidationError("commit source must be a temporary file")
	}
	if r.IsTemporary() {
		return pkgerrors.NewValidationError("cannot commit onto a temporary file")
	}
	r.content = temp.Content()
	r.properties = temp.Properties()
	r.temporary = false
	r.lastModified = time.Now()
	r.lastModifiedBy = userID
	r.version++
	return nil
}

// Snapshot returns an independent copy used to roll back a failed commit
func (r *Resource) Snapshot() *Resource {
	c := *r
	c.content = r.Content()
	c.properties = r.Properties()
	return &c
}

// TempPathFor derives the temporary file path of a resource path. Names
// carrying the prefix are reserved, see IsTempPath.
func TempPathFor(resourcePath, prefix string) string {
	dir, name := path.Split(resourcePath)
	return dir + prefix + name
}

// IsTempPath reports whether a path names a temporary file
func IsTempPath(resourcePath, prefix string) bool {
	return strings.HasPrefix(path.Base(resourcePath), prefix)
}

// OriginalPathFor reverses TempPathFor
func OriginalPathFor(tempPath, prefix string) string {
	dir, name := path.Split(tempPath)
	return dir + strings.TrimPrefix(name, prefix)
}
