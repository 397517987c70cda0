// Package editor holds the pure editing rules shared by every editor kind:
// the action vocabulary, the locale and element selection, and the content
// transitions. Nothing in here touches storage.
package editor

import (
	pkgerrors "cmseditor/pkg/errors"
)

// Action is an operation requested by the editor client
type Action int

const (
	ActionDefault Action = iota
	ActionSave
	ActionSaveExit
	ActionExit
	ActionShow
	ActionError
	ActionCleanup
	ActionChangeElement
	ActionDeleteLocale
	ActionCopyLocale
	ActionPreview
	ActionAddElement
	ActionRemoveElement
	ActionElementUp
	ActionElementDown
	ActionCheck
	ActionSaveAction
	ActionCloseBrowser
	ActionConfirmCorrect
	ActionCorrectConfirmed
	ActionNew

	actionCount
)

var actionTokens = [actionCount]string{
	ActionDefault:          "",
	ActionSave:             "save",
	ActionSaveExit:         "saveexit",
	ActionExit:             "exit",
	ActionShow:             "show",
	ActionError:            "error",
	ActionCleanup:          "cleanup",
	ActionChangeElement:    "changeelement",
	ActionDeleteLocale:     "deletelocale",
	ActionCopyLocale:       "copylocale",
	ActionPreview:          "preview",
	ActionAddElement:       "addelement",
	ActionRemoveElement:    "removeelement",
	ActionElementUp:        "elementup",
	ActionElementDown:      "elementdown",
	ActionCheck:            "check",
	ActionSaveAction:       "saveaction",
	ActionCloseBrowser:     "closebrowser",
	ActionConfirmCorrect:   "confirmcorrect",
	ActionCorrectConfirmed: "correctconfirmed",
	ActionNew:              "new",
}

var tokenActions = func() map[string]Action {
	m := make(map[string]Action, actionCount)
	for a, token := range actionTokens {
		m[token] = Action(a)
	}
	return m
}()

// ParseAction maps a request token to its action
func ParseAction(token string) (Action, error) {
	a, ok := tokenActions[token]
	if !ok {
		return ActionDefault, pkgerrors.ErrUnknownAction.Clone().WithDetail("action", token)
	}
	return a, nil
}

// Actions returns every action in declaration order
func Actions() []Action {
	out := make([]Action, actionCount)
	for i := range out {
		out[i] = Action(i)
	}
	return out
}

// String returns the request token of the action
func (a Action) String() string {
	if a < 0 || a >= actionCount {
		return "unknown"
	}
	if a == ActionDefault {
		return "default"
	}
	return actionTokens[a]
}

// Token returns the token clients send for the action
func (a Action) Token() string {
	if a < 0 || a >= actionCount {
		return ""
	}
	return actionTokens[a]
}

// Mutates reports whether the action writes to the temporary file
func (a Action) Mutates() bool {
	switch a {
	case ActionSave, ActionSaveExit, ActionSaveAction, ActionChangeElement,
		ActionDeleteLocale, ActionCopyLocale, ActionPreview, ActionAddElement,
		ActionRemoveElement, ActionElementUp, ActionElementDown, ActionCorrectConfirmed:
		return true
	case ActionDefault, ActionExit, ActionShow, ActionError, ActionCleanup,
		ActionCheck, ActionCloseBrowser, ActionConfirmCorrect, ActionNew:
		return false
	}
	return false
}

// Commits reports whether the action copies the temporary file onto the original
func (a Action) Commits() bool {
	return a == ActionSave || a == ActionSaveExit || a == ActionSaveAction
}
