package aggregates

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"cmseditor/domain/core/valueobjects"
	pkgerrors "cmseditor/pkg/errors"
)

// Element is one named value of a locale. A choice group carries its chosen
// alternatives in Options and has no value of its own.
type Element struct {
	Name     string
	Value    string
	Disabled bool
	Group    bool
	Options  []*Element
}

func (e *Element) clone() *Element {
	c := &Element{Name: e.Name, Value: e.Value, Disabled: e.Disabled, Group: e.Group}
	if e.Group || len(e.Options) > 0 {
		c.Options = make([]*Element, len(e.Options))
		for i, o := range e.Options {
			c.Options[i] = o.clone()
		}
	}
	return c
}

type localeContent struct {
	locale   valueobjects.Locale
	elements []*Element
}

// Document is the aggregate root for the localized, structured content of a
// page or xml content resource. It guards the locale set: the last locale of
// a document can never be removed.
type Document struct {
	locales []*localeContent
}

// NewDocument creates an empty document without any locale
func NewDocument() *Document {
	return &Document{}
}

// Locales returns the locales in document order
func (d *Document) Locales() valueobjects.LocaleList {
	out := make(valueobjects.LocaleList, len(d.locales))
	for i, lc := range d.locales {
		out[i] = lc.locale
	}
	return out
}

func (d *Document) HasLocale(l valueobjects.Locale) bool {
	return d.content(l) != nil
}

func (d *Document) content(l valueobjects.Locale) *localeContent {
	for _, lc := range d.locales {
		if lc.locale.Equals(l) {
			return lc
		}
	}
	return nil
}

// AddLocale adds an empty locale. Adding an existing locale is a no-op.
func (d *Document) AddLocale(l valueobjects.Locale) error {
	if l.IsZero() {
		return pkgerrors.NewValidationError("locale is required")
	}
	if d.HasLocale(l) {
		return nil
	}
	d.locales = append(d.locales, &localeContent{locale: l})
	return nil
}

// CopyLocale replaces the content of dst with a copy of src, creating dst if needed
func (d *Document) CopyLocale(src, dst valueobjects.Locale) error {
	from := d.content(src)
	if from == nil {
		return pkgerrors.ErrLocaleNotFound.Clone().WithDetail("locale", src.String())
	}
	if src.Equals(dst) {
		return nil
	}
	elements := make([]*Element, len(from.elements))
	for i, e := range from.elements {
		elements[i] = e.clone()
	}
	if to := d.content(dst); to != nil {
		to.elements = elements
		return nil
	}
	d.locales = append(d.locales, &localeContent{locale: dst, elements: elements})
	return nil
}

// RemoveLocale removes a locale with all its values
func (d *Document) RemoveLocale(l valueobjects.Locale) error {
	for i, lc := range d.locales {
		if !lc.locale.Equals(l) {
			continue
		}
		if len(d.locales) == 1 {
			return pkgerrors.ErrLastLocale.Clone().WithDetail("locale", l.String())
		}
		d.locales = append(d.locales[:i], d.locales[i+1:]...)
		return nil
	}
	return pkgerrors.ErrLocaleNotFound.Clone().WithDetail("locale", l.String())
}

// Elements returns the top level elements of a locale in order
func (d *Document) Elements(l valueobjects.Locale) []*Element {
	lc := d.content(l)
	if lc == nil {
		return nil
	}
	return append([]*Element(nil), lc.elements...)
}

// ElementNames returns the distinct top level element names of a locale
func (d *Document) ElementNames(l valueobjects.Locale) []string {
	seen := make(map[string]bool)
	var names []string
	for _, e := range d.Elements(l) {
		if !seen[e.Name] {
			seen[e.Name] = true
			names = append(names, e.Name)
		}
	}
	return names
}

// container returns the sibling list a path points into
func (d *Document) container(l valueobjects.Locale, p valueobjects.ElementPath) (*[]*Element, error) {
	lc := d.content(l)
	if lc == nil {
		return nil, pkgerrors.ErrLocaleNotFound.Clone().WithDetail("locale", l.String())
	}
	parent, nested := p.Parent()
	if !nested {
		return &lc.elements, nil
	}
	group := nth(lc.elements, parent.Name(), parent.Index())
	if group == nil || !group.Group {
		return nil, pkgerrors.ErrElementNotFound.Clone().WithDetail("path", parent.String())
	}
	return &group.Options, nil
}

// nth returns the index-th (1-based) element called name
func nth(list []*Element, name string, index int) *Element {
	pos := position(list, name, index)
	if pos < 0 {
		return nil
	}
	return list[pos]
}

// position returns the slice position of the index-th element called name
func position(list []*Element, name string, index int) int {
	seen := 0
	for i, e := range list {
		if e.Name == name {
			seen++
			if seen == index {
				return i
			}
		}
	}
	return -1
}

func count(list []*Element, name string) int {
	n := 0
	for _, e := range list {
		if e.Name == name {
			n++
		}
	}
	return n
}

// Find resolves a reference to its element
func (d *Document) Find(ref valueobjects.ElementReference) *Element {
	list, err := d.container(ref.Locale, ref.Path)
	if err != nil {
		return nil
	}
	return nth(*list, ref.Path.Name(), ref.Path.Index())
}

func (d *Document) HasValue(ref valueobjects.ElementReference) bool {
	return d.Find(ref) != nil
}

// Value returns the text of an element
func (d *Document) Value(ref valueobjects.ElementReference) (string, bool) {
	e := d.Find(ref)
	if e == nil {
		return "", false
	}
	return e.Value, true
}

// Count returns how many siblings called name exist in the container of path
func (d *Document) Count(l valueobjects.Locale, p valueobjects.ElementPath) int {
	list, err := d.container(l, p)
	if err != nil {
		return 0
	}
	return count(*list, p.Name())
}

// SetValue writes the text of an element. A missing element is created when
// it would be the next sibling of its name, which is what lets editors
// address elements that are declared but not yet stored.
func (d *Document) SetValue(ref valueobjects.ElementReference, text string) error {
	if e := d.Find(ref); e != nil {
		if e.Group {
			return pkgerrors.NewValidationError(fmt.Sprintf("element %s is a choice group", ref.Path))
		}
		e.Value = text
		return nil
	}
	list, err := d.container(ref.Locale, ref.Path)
	if err != nil {
		return err
	}
	if ref.Path.Index() != count(*list, ref.Path.Name())+1 {
		return pkgerrors.ErrElementNotFound.Clone().WithDetail("path", ref.Path.String())
	}
	insertSibling(list, &Element{Name: ref.Path.Name(), Value: text}, ref.Path.Index())
	return nil
}

// IsEnabled reports whether the first element called name exists and is enabled
func (d *Document) IsEnabled(l valueobjects.Locale, name string) bool {
	lc := d.content(l)
	if lc == nil {
		return false
	}
	e := nth(lc.elements, name, 1)
	return e != nil && !e.Disabled
}

// IsDisabled reports whether the first element called name exists and is disabled
func (d *Document) IsDisabled(l valueobjects.Locale, name string) bool {
	lc := d.content(l)
	if lc == nil {
		return false
	}
	e := nth(lc.elements, name, 1)
	return e != nil && e.Disabled
}

// SetEnabled toggles the first element called name
func (d *Document) SetEnabled(l valueobjects.Locale, name string, enabled bool) error {
	lc := d.content(l)
	if lc == nil {
		return pkgerrors.ErrLocaleNotFound.Clone().WithDetail("locale", l.String())
	}
	e := nth(lc.elements, name, 1)
	if e == nil {
		return pkgerrors.ErrElementNotFound.Clone().WithDetail("path", name)
	}
	e.Disabled = !enabled
	return nil
}

// InsertElement inserts a new empty element so that it becomes the index-th
// sibling of its name. Index is clamped to the end of the siblings.
func (d *Document) InsertElement(l valueobjects.Locale, p valueobjects.ElementPath, group bool) (valueobjects.ElementPath, error) {
	list, err := d.container(l, p)
	if err != nil {
		return valueobjects.ElementPath{}, err
	}
	index := p.Index()
	if n := count(*list, p.Name()); index > n+1 || index < 1 {
		index = n + 1
	}
	e := &Element{Name: p.Name(), Group: group}
	if group {
		e.Options = []*Element{}
	}
	insertSibling(list, e, index)
	return p.WithIndex(index), nil
}

func insertSibling(list *[]*Element, e *Element, index int) {
	pos := position(*list, e.Name, index)
	if pos < 0 {
		// append after the last sibling, or at the end when there is none
		pos = len(*list)
		for i := len(*list) - 1; i >= 0; i-- {
			if (*list)[i].Name == e.Name {
				pos = i + 1
				break
			}
		}
	}
	*list = append(*list, nil)
	copy((*list)[pos+1:], (*list)[pos:])
	(*list)[pos] = e
}

// RemoveElement deletes the element a path points to
func (d *Document) RemoveElement(l valueobjects.Locale, p valueobjects.ElementPath) error {
	list, err := d.container(l, p)
	if err != nil {
		return err
	}
	pos := position(*list, p.Name(), p.Index())
	if pos < 0 {
		return pkgerrors.ErrElementNotFound.Clone().WithDetail("path", p.String())
	}
	*list = append((*list)[:pos], (*list)[pos+1:]...)
	return nil
}

// MoveElement swaps an element with its previous (up) or next sibling of the
// same name. It returns false when the element already is at the boundary.
func (d *Document) MoveElement(l valueobjects.Locale, p valueobjects.ElementPath, up bool) (bool, error) {
	list, err := d.container(l, p)
	if err != nil {
		return false, err
	}
	from := position(*list, p.Name(), p.Index())
	if from < 0 {
		return false, pkgerrors.ErrElementNotFound.Clone().WithDetail("path", p.String())
	}
	other := p.Index() + 1
	if up {
		other = p.Index() - 1
	}
	to := position(*list, p.Name(), other)
	if other < 1 || to < 0 {
		return false, nil
	}
	(*list)[from], (*list)[to] = (*list)[to], (*list)[from]
	return true, nil
}

// PathValue is one flattened value of a locale
type PathValue struct {
	Path  string `json:"path"`
	Value string `json:"value"`
	Group bool   `json:"group,omitempty"`
}

// Values flattens a locale into addressable paths in document order
func (d *Document) Values(l valueobjects.Locale) []PathValue {
	var out []PathValue
	seen := make(map[string]int)
	for _, e := range d.Elements(l) {
		seen[e.Name]++
		top, _ := valueobjects.NewElementPath(e.Name, seen[e.Name])
		out = append(out, PathValue{Path: top.String(), Value: e.Value, Group: e.Group})
		optionSeen := make(map[string]int)
		for _, o := range e.Options {
			optionSeen[o.Name]++
			out = append(out, PathValue{Path: top.Child(o.Name, optionSeen[o.Name]).String(), Value: o.Value})
		}
	}
	return out
}

// Clone returns a deep copy
func (d *Document) Clone() *Document {
	c := &Document{locales: make([]*localeContent, len(d.locales))}
	for i, lc := range d.locales {
		elements := make([]*Element, len(lc.elements))
		for j, e := range lc.elements {
			elements[j] = e.clone()
		}
		c.locales[i] = &localeContent{locale: lc.locale, elements: elements}
	}
	return c
}

type xmlContent struct {
	XMLName xml.Name    `xml:"content"`
	Locales []xmlLocale `xml:"locale"`
}

type xmlLocale struct {
	Name     string       `xml:"name,attr"`
	Elements []xmlElement `xml:"element"`
}

type xmlElement struct {
	Name     string       `xml:"name,attr"`
	Disabled bool         `xml:"disabled,attr,omitempty"`
	Group    bool         `xml:"choice,attr,omitempty"`
	Value    string       `xml:"value,omitempty"`
	Options  []xmlElement `xml:"element"`
}

func toXMLElement(e *Element) xmlElement {
	x := xmlElement{Name: e.Name, Disabled: e.Disabled, Group: e.Group, Value: e.Value}
	for _, o := range e.Options {
		x.Options = append(x.Options, toXMLElement(o))
	}
	return x
}

func fromXMLElement(x xmlElement) (*Element, error) {
	if !valueobjects.IsValidElementName(x.Name) {
		return nil, fmt.Errorf("invalid element name %q", x.Name)
	}
	e := &Element{Name: x.Name, Disabled: x.Disabled, Group: x.Group, Value: x.Value}
	if x.Group {
		e.Options = []*Element{}
	}
	for _, o := range x.Options {
		if !x.Group {
			return nil, fmt.Errorf("element %q has children but is no choice group", x.Name)
		}
		if len(o.Options) > 0 {
			return nil, fmt.Errorf("choice option %q is nested too deep", o.Name)
		}
		child, err := fromXMLElement(o)
		if err != nil {
			return nil, err
		}
		e.Options = append(e.Options, child)
	}
	return e, nil
}

// Bytes serializes the document
func (d *Document) Bytes() ([]byte, error) {
	doc := xmlContent{}
	for _, lc := range d.locales {
		xl := xmlLocale{Name: lc.locale.String()}
		for _, e := range lc.elements {
			xl.Elements = append(xl.Elements, toXMLElement(e))
		}
		doc.Locales = append(doc.Locales, xl)
	}
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ParseDocument reads a serialized document. Empty input yields an empty document.
func ParseDocument(data []byte) (*Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return NewDocument(), nil
	}
	var doc xmlContent
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, pkgerrors.ErrInvalidContent.Clone().WithCause(err)
	}
	d := NewDocument()
	for _, xl := range doc.Locales {
		l, err := valueobjects.ParseLocale(xl.Name)
		if err != nil {
			return nil, pkgerrors.ErrInvalidContent.Clone().WithCause(err)
		}
		if d.HasLocale(l) {
			return nil, pkgerrors.ErrInvalidContent.Clone().WithDetail("duplicate_locale", l.String())
		}
		lc := &localeContent{locale: l}
		for _, xe := range xl.Elements {
			e, err := fromXMLElement(xe)
			if err != nil {
				return nil, pkgerrors.ErrInvalidContent.Clone().WithCause(err)
			}
			lc.elements = append(lc.elements, e)
		}
		d.locales = append(d.locales, lc)
	}
	return d, nil
}
