package valueobjects

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ElementPath addresses one value inside structured content:
// "Title", "Title[2]" or "Section[1]/Text[1]". Indexes are 1-based and
// default to 1. At most one level of nesting is allowed (choice groups).
type ElementPath struct {
	segments []pathSegment
}

type pathSegment struct {
	name  string
	index int
}

// MaxPathDepth is the deepest nesting a path may describe
const MaxPathDepth = 2

// ParseElementPath parses the textual form of an element path
func ParseElementPath(s string) (ElementPath, error) {
	s = strings.Trim(strings.TrimSpace(s), "/")
	if s == "" {
		return ElementPath{}, fmt.Errorf("element path cannot be empty")
	}
	parts := strings.Split(s, "/")
	if len(parts) > MaxPathDepth {
		return ElementPath{}, fmt.Errorf("element path %q is nested too deep", s)
	}
	segments := make([]pathSegment, 0, len(parts))
	for _, part := range parts {
		seg, err := parseSegment(part)
		if err != nil {
			return ElementPath{}, fmt.Errorf("element path %q: %w", s, err)
		}
		segments = append(segments, seg)
	}
	return ElementPath{segments: segments}, nil
}

// NewElementPath builds a single segment path
func NewElementPath(name string, index int) (ElementPath, error) {
	if !IsValidElementName(name) {
		return ElementPath{}, fmt.Errorf("invalid element name %q", name)
	}
	if index < 1 {
		index = 1
	}
	return ElementPath{segments: []pathSegment{{name: name, index: index}}}, nil
}

func parseSegment(part string) (pathSegment, error) {
	name := part
	index := 1
	if open := strings.IndexByte(part, '['); open >= 0 {
		if !strings.HasSuffix(part, "]") {
			return pathSegment{}, fmt.Errorf("unterminated index in %q", part)
		}
		n, err := strconv.Atoi(part[open+1 : len(part)-1])
		if err != nil || n < 1 {
			return pathSegment{}, fmt.Errorf("invalid index in %q", part)
		}
		name = part[:open]
		index = n
	}
	if !IsValidElementName(name) {
		return pathSegment{}, fmt.Errorf("invalid element name %q", name)
	}
	return pathSegment{name: name, index: index}, nil
}

// IsValidElementName reports whether name can be used as an element name
func IsValidElementName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case unicode.IsLetter(r), r == '_':
		case i > 0 && (unicode.IsDigit(r) || r == '-' || r == '.'):
		default:
			return false
		}
	}
	return true
}

func (p ElementPath) IsZero() bool { return len(p.segments) == 0 }

// Depth is the number of segments
func (p ElementPath) Depth() int { return len(p.segments) }

// Name of the addressed (last) element
func (p ElementPath) Name() string {
	if p.IsZero() {
		return ""
	}
	return p.segments[len(p.segments)-1].name
}

// Index of the addressed (last) element, 1-based
func (p ElementPath) Index() int {
	if p.IsZero() {
		return 0
	}
	return p.segments[len(p.segments)-1].index
}

// Root returns the first segment as its own path
func (p ElementPath) Root() ElementPath {
	if p.IsZero() {
		return p
	}
	return ElementPath{segments: p.segments[:1]}
}

// Parent returns the path without its last segment
func (p ElementPath) Parent() (ElementPath, bool) {
	if len(p.segments) < 2 {
		return ElementPath{}, false
	}
	return ElementPath{segments: p.segments[:len(p.segments)-1]}, true
}

// Child appends a segment
func (p ElementPath) Child(name string, index int) ElementPath {
	segments := make([]pathSegment, 0, len(p.segments)+1)
	segments = append(segments, p.segments...)
	segments = append(segments, pathSegment{name: name, index: index})
	return ElementPath{segments: segments}
}

// WithIndex returns the path with the last index replaced
func (p ElementPath) WithIndex(index int) ElementPath {
	if p.IsZero() {
		return p
	}
	segments := append([]pathSegment(nil), p.segments...)
	segments[len(segments)-1].index = index
	return ElementPath{segments: segments}
}

func (p ElementPath) String() string {
	var b strings.Builder
	for i, seg := range p.segments {
		if i > 0 {
			b.WriteByte('/')
		}
		b.WriteString(seg.name)
		b.WriteByte('[')
		b.WriteString(strconv.Itoa(seg.index))
		b.WriteByte(']')
	}
	return b.String()
}

func (p ElementPath) Equals(other ElementPath) bool {
	if len(p.segments) != len(other.segments) {
		return false
	}
	for i := range p.segments {
		if p.segments[i] != other.segments[i] {
			return false
		}
	}
	return true
}

// ElementReference identifies one named, localized value of a content
type ElementReference struct {
	Path   ElementPath
	Locale Locale
}

// NewElementReference parses path and locale into a reference
func NewElementReference(path, locale string) (ElementReference, error) {
	p, err := ParseElementPath(path)
	if err != nil {
		return ElementReference{}, err
	}
	l, err := ParseLocale(locale)
	if err != nil {
		return ElementReference{}, err
	}
	return ElementReference{Path: p, Locale: l}, nil
}

func (r ElementReference) String() string {
	return r.Locale.String() + ":" + r.Path.String()
}
