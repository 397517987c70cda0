package aggregates

import (
	"strings"

	"cmseditor/domain/core/valueobjects"
)

// TemplateElement is one element a page template declares
type TemplateElement struct {
	Name      string
	NiceName  string
	Mandatory bool
}

// TemplateElements is the ordered element declaration of a page template
type TemplateElements []TemplateElement

// ParseTemplateElements parses a declaration such as "body*|Body,text|Text".
// A trailing "*" on a name marks the element mandatory. Malformed entries are
// skipped, duplicates keep their first occurrence.
func ParseTemplateElements(decl string) TemplateElements {
	var out TemplateElements
	for _, entry := range strings.Split(decl, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, nice, _ := strings.Cut(entry, "|")
		name = strings.TrimSpace(name)
		mandatory := strings.HasSuffix(name, "*")
		name = strings.TrimSuffix(name, "*")
		if !valueobjects.IsValidElementName(name) {
			continue
		}
		if _, exists := out.Lookup(name); exists {
			continue
		}
		nice = strings.TrimSpace(nice)
		if nice == "" {
			nice = name
		}
		out = append(out, TemplateElement{Name: name, NiceName: nice, Mandatory: mandatory})
	}
	return out
}

func (t TemplateElements) Lookup(name string) (TemplateElement, bool) {
	for _, e := range t {
		if e.Name == name {
			return e, true
		}
	}
	return TemplateElement{}, false
}

// Mandatory returns the mandatory declarations in order
func (t TemplateElements) Mandatory() TemplateElements {
	var out TemplateElements
	for _, e := range t {
		if e.Mandatory {
			out = append(out, e)
		}
	}
	return out
}

// Addressable reports whether name may be used. Without any declaration
// every valid element name is addressable.
func (t TemplateElements) Addressable(name string) bool {
	if !valueobjects.IsValidElementName(name) {
		return false
	}
	if len(t) == 0 {
		return true
	}
	_, ok := t.Lookup(name)
	return ok
}

func (t TemplateElements) String() string {
	parts := make([]string, len(t))
	for i, e := range t {
		name := e.Name
		if e.Mandatory {
			name += "*"
		}
		if e.NiceName != "" && e.NiceName != e.Name {
			name += "|" + e.NiceName
		}
		parts[i] = name
	}
	return strings.Join(parts, ",")
}
