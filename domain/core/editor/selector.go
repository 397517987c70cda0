package editor

import (
	"cmseditor/domain/core/aggregates"
	"cmseditor/domain/core/valueobjects"
	pkgerrors "cmseditor/pkg/errors"
)

// LocaleInitializer creates an empty locale in a document. Pages add a bare
// locale, xml contents also add the mandatory elements of their schema.
type LocaleInitializer func(doc *aggregates.Document, l valueobjects.Locale) error

// PageLocale adds a bare locale
func PageLocale(doc *aggregates.Document, l valueobjects.Locale) error {
	return doc.AddLocale(l)
}

// SchemaLocale adds a locale holding the mandatory elements of schema
func SchemaLocale(schema *aggregates.Schema) LocaleInitializer {
	return func(doc *aggregates.Document, l valueobjects.Locale) error {
		return schema.AddLocale(doc, l)
	}
}

// SelectLocale picks the locale to edit and makes sure it exists in doc.
//
// A requested locale present in doc is used. A document without locales
// gets the first default locale. Otherwise the requested locale is created
// from a copy of the first default locale the document has, or empty when
// it has none of them. If the requested locale still is not there the first
// available locale is used. Selection only ever adds locales; it fails only
// when doc ends up without any locale to edit.
func SelectLocale(doc *aggregates.Document, requested valueobjects.Locale, defaults valueobjects.LocaleList, init LocaleInitializer) (valueobjects.Locale, error) {
	if init == nil {
		init = PageLocale
	}
	available := doc.Locales()

	if requested.IsZero() {
		for _, d := range defaults {
			if available.Contains(d) {
				return d, nil
			}
		}
		if len(available) > 0 {
			return available.First(), nil
		}
		first := defaults.First()
		if first.IsZero() {
			return first, nil
		}
		if err := init(doc, first); err != nil {
			return valueobjects.Locale{}, pkgerrors.NewLocaleError(first.String(), "cannot be created").WithCause(err)
		}
		return first, nil
	}

	if available.Contains(requested) {
		return requested, nil
	}

	var initErr error
	target := requested
	if len(available) == 0 {
		if first := defaults.First(); !first.IsZero() {
			target = first
		}
		initErr = init(doc, target)
	} else {
		copied := false
		for _, d := range defaults {
			if available.Contains(d) {
				copied = doc.CopyLocale(d, requested) == nil
				break
			}
		}
		if !copied {
			initErr = init(doc, requested)
		}
	}

	if doc.HasLocale(requested) {
		return requested, nil
	}
	if fallback := doc.Locales().First(); !fallback.IsZero() {
		return fallback, nil
	}
	return valueobjects.Locale{}, pkgerrors.NewLocaleError(target.String(), "cannot be created").WithCause(initErr)
}

// ActiveElement is one entry of the element list offered for a locale
type ActiveElement struct {
	Name      string `json:"name"`
	NiceName  string `json:"niceName"`
	Mandatory bool   `json:"mandatory"`
	Declared  bool   `json:"declared"`
	Existing  bool   `json:"existing"`
	Enabled   bool   `json:"enabled"`
}

// ActiveElements lists the elements of a page locale: every declared element
// first, then elements stored in the page but not declared. Mandatory
// elements are always present and enabled, declared elements that are not
// stored yet are enabled so they can be created on demand.
func ActiveElements(decl aggregates.TemplateElements, doc *aggregates.Document, l valueobjects.Locale) []ActiveElement {
	stored := make(map[string]bool)
	for _, name := range doc.ElementNames(l) {
		stored[name] = true
	}

	out := make([]ActiveElement, 0, len(decl)+len(stored))
	for _, te := range decl {
		out = append(out, ActiveElement{
			Name:      te.Name,
			NiceName:  te.NiceName,
			Mandatory: te.Mandatory,
			Declared:  true,
			Existing:  stored[te.Name],
			Enabled:   te.Mandatory || !doc.IsDisabled(l, te.Name),
		})
	}
	for _, name := range doc.ElementNames(l) {
		if _, declared := decl.Lookup(name); declared {
			continue
		}
		out = append(out, ActiveElement{
			Name:     name,
			NiceName: name,
			Existing: true,
			Enabled:  doc.IsEnabled(l, name),
		})
	}
	return out
}

// SchemaElements lists the top level elements of an xml content locale
func SchemaElements(schema *aggregates.Schema, doc *aggregates.Document, l valueobjects.Locale) []ActiveElement {
	var out []ActiveElement
	for _, d := range schema.Elements() {
		p, _ := valueobjects.NewElementPath(d.Name, 1)
		out = append(out, ActiveElement{
			Name:      d.Name,
			NiceName:  d.Name,
			Mandatory: d.Mandatory(),
			Declared:  true,
			Existing:  doc.Count(l, p) > 0,
			Enabled:   true,
		})
	}
	return out
}

func findActive(active []ActiveElement, name string) (ActiveElement, bool) {
	for _, ae := range active {
		if ae.Name == name {
			return ae, true
		}
	}
	return ActiveElement{}, false
}

func anyDeclared(active []ActiveElement) bool {
	for _, ae := range active {
		if ae.Declared {
			return true
		}
	}
	return false
}

// SelectElement picks the element to edit. The requested element is used
// when it is enabled or not stored yet. Otherwise the first mandatory
// element wins, then defaultName when enabled, then the first enabled
// element, then the first element of the list.
func SelectElement(requested string, active []ActiveElement, defaultName string) string {
	if requested != "" {
		if ae, ok := findActive(active, requested); ok {
			if ae.Enabled {
				return requested
			}
		} else if !anyDeclared(active) && valueobjects.IsValidElementName(requested) {
			return requested
		}
	}

	for _, ae := range active {
		if ae.Mandatory && ae.Enabled {
			return ae.Name
		}
	}
	if ae, ok := findActive(active, defaultName); ok && ae.Enabled {
		return defaultName
	}
	for _, ae := range active {
		if ae.Enabled {
			return ae.Name
		}
	}
	if len(active) > 0 {
		return active[0].Name
	}
	return defaultName
}
