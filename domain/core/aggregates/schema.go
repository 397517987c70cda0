package aggregates

import (
	"fmt"

	"cmseditor/domain/core/valueobjects"
	pkgerrors "cmseditor/pkg/errors"
)

// ElementType is the kind of value an element holds
type ElementType string

const (
	ElementText   ElementType = "text"
	ElementHTML   ElementType = "html"
	ElementChoice ElementType = "choice"
)

// Unbounded is the MaxOccurs value for elements without an upper limit
const Unbounded = -1

// ElementDef declares one element of an xml content schema
type ElementDef struct {
	Name      string
	Type      ElementType
	MinOccurs int
	MaxOccurs int
	Options   []ElementDef
}

// Mandatory elements must occur at least once
func (e ElementDef) Mandatory() bool { return e.MinOccurs > 0 }

// Allows reports whether another occurrence fits next to current ones
func (e ElementDef) Allows(current int) bool {
	return e.MaxOccurs == Unbounded || current < e.MaxOccurs
}

// Option looks up a choice alternative
func (e ElementDef) Option(name string) (ElementDef, bool) {
	for _, o := range e.Options {
		if o.Name == name {
			return o, true
		}
	}
	return ElementDef{}, false
}

// Schema describes the structure of an xml content type
type Schema struct {
	name     string
	elements []ElementDef
}

// NewSchema validates the definitions and builds a schema
func NewSchema(name string, elements []ElementDef) (*Schema, error) {
	if name == "" {
		return nil, fmt.Errorf("schema name is required")
	}
	if len(elements) == 0 {
		return nil, fmt.Errorf("schema %s declares no elements", name)
	}
	if err := checkDefs(elements, true); err != nil {
		return nil, fmt.Errorf("schema %s: %w", name, err)
	}
	return &Schema{name: name, elements: elements}, nil
}

func checkDefs(defs []ElementDef, topLevel bool) error {
	seen := make(map[string]bool)
	for _, d := range defs {
		if !valueobjects.IsValidElementName(d.Name) {
			return fmt.Errorf("invalid element name %q", d.Name)
		}
		if seen[d.Name] {
			return fmt.Errorf("element %q declared twice", d.Name)
		}
		seen[d.Name] = true
		if d.MinOccurs < 0 {
			return fmt.Errorf("element %q: minOccurs must not be negative", d.Name)
		}
		if d.MaxOccurs != Unbounded && d.MaxOccurs < d.MinOccurs {
			return fmt.Errorf("element %q: maxOccurs below minOccurs", d.Name)
		}
		if d.MaxOccurs == 0 {
			return fmt.Errorf("element %q: maxOccurs must be positive or unbounded", d.Name)
		}
		switch d.Type {
		case ElementText, ElementHTML:
			if len(d.Options) > 0 {
				return fmt.Errorf("element %q: only choice elements have options", d.Name)
			}
		case ElementChoice:
			if !topLevel {
				return fmt.Errorf("element %q: choice groups cannot be nested", d.Name)
			}
			if len(d.Options) == 0 {
				return fmt.Errorf("choice %q has no options", d.Name)
			}
			if err := checkDefs(d.Options, false); err != nil {
				return fmt.Errorf("choice %q: %w", d.Name, err)
			}
		default:
			return fmt.Errorf("element %q: unknown type %q", d.Name, d.Type)
		}
	}
	return nil
}

func (s *Schema) Name() string { return s.name }

// Elements returns the top level definitions in declaration order
func (s *Schema) Elements() []ElementDef {
	return append([]ElementDef(nil), s.elements...)
}

// Lookup finds a top level definition
func (s *Schema) Lookup(name string) (ElementDef, bool) {
	for _, d := range s.elements {
		if d.Name == name {
			return d, true
		}
	}
	return ElementDef{}, false
}

// LookupPath finds the definition a path points to
func (s *Schema) LookupPath(p valueobjects.ElementPath) (ElementDef, bool) {
	parent, nested := p.Parent()
	if !nested {
		return s.Lookup(p.Name())
	}
	group, ok := s.Lookup(parent.Name())
	if !ok || group.Type != ElementChoice {
		return ElementDef{}, false
	}
	return group.Option(p.Name())
}

// NewContent creates a document holding one locale with every mandatory element
func (s *Schema) NewContent(l valueobjects.Locale) (*Document, error) {
	doc := NewDocument()
	if err := doc.AddLocale(l); err != nil {
		return nil, err
	}
	s.EnsureMandatory(doc, l)
	return doc, nil
}

// AddLocale adds a locale to doc populated with the mandatory elements
func (s *Schema) AddLocale(doc *Document, l valueobjects.Locale) error {
	if doc.HasLocale(l) {
		return nil
	}
	if err := doc.AddLocale(l); err != nil {
		return err
	}
	s.EnsureMandatory(doc, l)
	return nil
}

// EnsureMandatory adds empty occurrences until every mandatory element of
// the locale reaches its minimum
func (s *Schema) EnsureMandatory(doc *Document, l valueobjects.Locale) {
	for _, d := range s.elements {
		for doc.Count(l, mustPath(d.Name)) < d.MinOccurs {
			if err := s.appendDefault(doc, l, d); err != nil {
				break
			}
		}
	}
}

// appendDefault appends an empty occurrence of d. Choice groups get their
// first alternative so they never start out empty.
func (s *Schema) appendDefault(doc *Document, l valueobjects.Locale, d ElementDef) error {
	path, _ := valueobjects.NewElementPath(d.Name, doc.Count(l, mustPath(d.Name))+1)
	inserted, err := doc.InsertElement(l, path, d.Type == ElementChoice)
	if err != nil {
		return err
	}
	if d.Type == ElementChoice {
		_, err = doc.InsertElement(l, inserted.Child(d.Options[0].Name, 1), false)
	}
	return err
}

func mustPath(name string) valueobjects.ElementPath {
	p, _ := valueobjects.NewElementPath(name, 1)
	return p
}

// Validate checks every locale of doc against the schema. Errors are keyed by
// locale and element path.
func (s *Schema) Validate(doc *Document) *pkgerrors.ValidationErrors {
	errs := pkgerrors.NewValidationErrors()
	for _, l := range doc.Locales() {
		s.validateLocale(doc, l, errs, true)
	}
	return errs
}

// ValidateLocale checks a single locale
func (s *Schema) ValidateLocale(doc *Document, l valueobjects.Locale) *pkgerrors.ValidationErrors {
	errs := pkgerrors.NewValidationErrors()
	s.validateLocale(doc, l, errs, true)
	return errs
}

// NeedsCorrection reports structural problems that Correct can repair
func (s *Schema) NeedsCorrection(doc *Document) bool {
	errs := pkgerrors.NewValidationErrors()
	for _, l := range doc.Locales() {
		s.validateLocale(doc, l, errs, false)
	}
	return errs.HasErrors()
}

func (s *Schema) validateLocale(doc *Document, l valueobjects.Locale, errs *pkgerrors.ValidationErrors, values bool) {
	locale := l.String()
	for _, d := range s.elements {
		n := doc.Count(l, mustPath(d.Name))
		if n < d.MinOccurs {
			path, _ := valueobjects.NewElementPath(d.Name, n+1)
			errs.AddAt(locale, path.String(), fmt.Sprintf("%s is mandatory", d.Name))
		}
		if d.MaxOccurs != Unbounded && n > d.MaxOccurs {
			path, _ := valueobjects.NewElementPath(d.Name, d.MaxOccurs+1)
			errs.AddAt(locale, path.String(), fmt.Sprintf("%s may occur at most %d times", d.Name, d.MaxOccurs))
		}
	}

	seen := make(map[string]int)
	for _, e := range doc.Elements(l) {
		seen[e.Name]++
		path, _ := valueobjects.NewElementPath(e.Name, seen[e.Name])
		d, ok := s.Lookup(e.Name)
		if !ok {
			errs.AddAt(locale, path.String(), fmt.Sprintf("%s is not declared", e.Name))
			continue
		}
		if (d.Type == ElementChoice) != e.Group {
			errs.AddAt(locale, path.String(), fmt.Sprintf("%s has the wrong structure", e.Name))
			continue
		}
		if d.Type == ElementChoice {
			if len(e.Options) == 0 {
				errs.AddAt(locale, path.String(), fmt.Sprintf("%s needs one of its options", e.Name))
			}
			optionSeen := make(map[string]int)
			for _, o := range e.Options {
				optionSeen[o.Name]++
				if _, ok := d.Option(o.Name); !ok {
					errs.AddAt(locale, path.Child(o.Name, optionSeen[o.Name]).String(),
						fmt.Sprintf("%s is not an option of %s", o.Name, d.Name))
				}
			}
			continue
		}
		if values && d.Mandatory() && seen[e.Name] <= d.MinOccurs && e.Value == "" {
			errs.AddAt(locale, path.String(), fmt.Sprintf("%s requires a value", e.Name))
		}
	}
}

// Correct repairs the structure of every locale: undeclared elements and
// invalid options are dropped, overflowing occurrences are trimmed, and
// missing mandatory elements are added. It reports whether doc changed.
func (s *Schema) Correct(doc *Document) bool {
	changed := false
	for _, l := range doc.Locales() {
		seen := make(map[string]int)
		var remove []valueobjects.ElementPath
		for _, e := range doc.Elements(l) {
			seen[e.Name]++
			path, _ := valueobjects.NewElementPath(e.Name, seen[e.Name])
			d, ok := s.Lookup(e.Name)
			if !ok || (d.Type == ElementChoice) != e.Group ||
				(d.MaxOccurs != Unbounded && seen[e.Name] > d.MaxOccurs) {
				remove = append(remove, path)
				continue
			}
			if e.Group {
				kept := e.Options[:0]
				for _, o := range e.Options {
					if _, ok := d.Option(o.Name); ok {
						kept = append(kept, o)
					}
				}
				if len(kept) != len(e.Options) {
					changed = true
				}
				e.Options = kept
				if len(e.Options) == 0 {
					e.Options = append(e.Options, &Element{Name: d.Options[0].Name})
					changed = true
				}
			}
		}
		// remove from the back so earlier indexes stay valid
		for i := len(remove) - 1; i >= 0; i-- {
			if err := doc.RemoveElement(l, remove[i]); err == nil {
				changed = true
			}
		}
		for _, d := range s.elements {
			for doc.Count(l, mustPath(d.Name)) < d.MinOccurs {
				if err := s.appendDefault(doc, l, d); err != nil {
					break
				}
				changed = true
			}
		}
	}
	return changed
}
