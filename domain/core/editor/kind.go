package editor

import (
	"fmt"

	"cmseditor/domain/core/entities"
	"cmseditor/domain/core/valueobjects"
)

// Kind is the editor variant handling a resource
type Kind int

const (
	KindPlainText Kind = iota
	KindSimplePage
	KindDefaultPage
	KindXMLContent
)

var kindNames = map[Kind]string{
	KindPlainText:   "plaintext",
	KindSimplePage:  "simplepage",
	KindDefaultPage: "defaultpage",
	KindXMLContent:  "xmlcontent",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind maps a configured kind name to its Kind
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return KindPlainText, fmt.Errorf("unknown editor kind %q", name)
}

// KindForResourceType returns the default editor kind of a resource type
func KindForResourceType(t entities.ResourceType) Kind {
	switch t {
	case entities.TypeXMLPage:
		return KindDefaultPage
	case entities.TypeXMLContent:
		return KindXMLContent
	case entities.TypePlain:
		return KindPlainText
	}
	return KindPlainText
}

// Handles reports whether the kind can edit resources of type t
func (k Kind) Handles(t entities.ResourceType) bool {
	switch k {
	case KindPlainText:
		return t == entities.TypePlain
	case KindSimplePage, KindDefaultPage:
		return t == entities.TypeXMLPage
	case KindXMLContent:
		return t == entities.TypeXMLContent
	}
	return false
}

// Localized reports whether the kind works on locales and elements
func (k Kind) Localized() bool {
	switch k {
	case KindSimplePage, KindDefaultPage, KindXMLContent:
		return true
	case KindPlainText:
		return false
	}
	return false
}

// BufferFormat is the format of the text the kind's client posts
func (k Kind) BufferFormat() valueobjects.BufferFormat {
	switch k {
	case KindDefaultPage:
		return valueobjects.FormatHTML
	case KindXMLContent:
		return valueobjects.FormatXML
	case KindPlainText, KindSimplePage:
		return valueobjects.FormatPlainText
	}
	return valueobjects.FormatPlainText
}

// Supports reports whether the kind accepts an action
func (k Kind) Supports(a Action) bool {
	switch a {
	case ActionDefault, ActionSave, ActionSaveExit, ActionExit, ActionShow, ActionError,
		ActionCleanup, ActionPreview, ActionSaveAction, ActionCloseBrowser, ActionNew:
		return true
	case ActionChangeElement, ActionDeleteLocale, ActionCopyLocale:
		return k.Localized()
	case ActionAddElement, ActionRemoveElement, ActionElementUp, ActionElementDown,
		ActionCheck, ActionConfirmCorrect, ActionCorrectConfirmed:
		return k == KindXMLContent
	}
	return false
}
