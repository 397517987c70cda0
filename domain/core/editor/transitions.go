package editor

import (
	"cmseditor/domain/core/aggregates"
	"cmseditor/domain/core/valueobjects"
	pkgerrors "cmseditor/pkg/errors"
)

// DeleteLocale removes a locale and returns the locale to continue with.
// Deleting the last locale is rejected with ErrLastLocale and leaves the
// document unchanged.
func DeleteLocale(doc *aggregates.Document, l valueobjects.Locale) (valueobjects.Locale, error) {
	if err := doc.RemoveLocale(l); err != nil {
		return l, err
	}
	return doc.Locales().First(), nil
}

// CopyLocale copies the values of from over each target. Without targets
// every other locale of the document is overwritten.
func CopyLocale(doc *aggregates.Document, from valueobjects.Locale, targets valueobjects.LocaleList) error {
	if !doc.HasLocale(from) {
		return pkgerrors.ErrLocaleNotFound.Clone().WithDetail("locale", from.String())
	}
	if len(targets) == 0 {
		targets = doc.Locales().Without(from)
	}
	for _, t := range targets {
		if t.Equals(from) {
			continue
		}
		if err := doc.CopyLocale(from, t); err != nil {
			return err
		}
	}
	return nil
}

// AddElement inserts a new occurrence of the element at path. The index of
// path is the position the new element takes among its siblings. When path
// names a choice group a new group holding option (or the first alternative)
// is inserted. It returns the path of the new value.
func AddElement(doc *aggregates.Document, schema *aggregates.Schema, l valueobjects.Locale, path valueobjects.ElementPath, option string) (valueobjects.ElementPath, error) {
	def, ok := schema.LookupPath(path)
	if !ok {
		return path, pkgerrors.ErrElementNotAddressable.Clone().WithDetail("path", path.String())
	}
	if !def.Allows(doc.Count(l, path)) {
		return path, pkgerrors.ErrMaxOccurs.Clone().
			WithDetail("path", path.String()).
			WithDetail("max_occurs", def.MaxOccurs)
	}

	if def.Type != aggregates.ElementChoice {
		return doc.InsertElement(l, path, false)
	}

	if option == "" {
		option = def.Options[0].Name
	}
	if _, ok := def.Option(option); !ok {
		return path, pkgerrors.ErrElementNotAddressable.Clone().
			WithDetail("path", path.String()).
			WithDetail("option", option)
	}
	group, err := doc.InsertElement(l, path, true)
	if err != nil {
		return path, err
	}
	return doc.InsertElement(l, group.Child(option, 1), false)
}

// RemoveElement deletes the value at path. A choice group losing its last
// option is removed as well, and mandatory elements dropping below their
// minimum are re-added empty.
func RemoveElement(doc *aggregates.Document, schema *aggregates.Schema, l valueobjects.Locale, path valueobjects.ElementPath) error {
	if _, ok := schema.LookupPath(path); !ok {
		return pkgerrors.ErrElementNotAddressable.Clone().WithDetail("path", path.String())
	}
	if err := doc.RemoveElement(l, path); err != nil {
		return err
	}
	if parent, nested := path.Parent(); nested {
		if group := doc.Find(valueobjects.ElementReference{Path: parent, Locale: l}); group != nil && len(group.Options) == 0 {
			if err := doc.RemoveElement(l, parent); err != nil {
				return err
			}
		}
	}
	schema.EnsureMandatory(doc, l)
	return nil
}

// MoveElement swaps the value at path with its neighbour of the same name.
// Moving past either end is a no-op.
func MoveElement(doc *aggregates.Document, l valueobjects.Locale, path valueobjects.ElementPath, up bool) (valueobjects.ElementPath, error) {
	moved, err := doc.MoveElement(l, path, up)
	if err != nil || !moved {
		return path, err
	}
	if up {
		return path.WithIndex(path.Index() - 1), nil
	}
	return path.WithIndex(path.Index() + 1), nil
}
