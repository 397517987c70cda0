package editor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cmseditor/domain/core/entities"
	pkgerrors "cmseditor/pkg/errors"
)

func TestParseAction(t *testing.T) {
	tokens := map[string]Action{
		"":                 ActionDefault,
		"save":             ActionSave,
		"saveexit":         ActionSaveExit,
		"exit":             ActionExit,
		"show":             ActionShow,
		"error":            ActionError,
		"cleanup":          ActionCleanup,
		"changeelement":    ActionChangeElement,
		"deletelocale":     ActionDeleteLocale,
		"copylocale":       ActionCopyLocale,
		"preview":          ActionPreview,
		"addelement":       ActionAddElement,
		"removeelement":    ActionRemoveElement,
		"elementup":        ActionElementUp,
		"elementdown":      ActionElementDown,
		"check":            ActionCheck,
		"saveaction":       ActionSaveAction,
		"closebrowser":     ActionCloseBrowser,
		"confirmcorrect":   ActionConfirmCorrect,
		"correctconfirmed": ActionCorrectConfirmed,
		"new":              ActionNew,
	}

	for token, want := range tokens {
		got, err := ParseAction(token)
		require.NoError(t, err, token)
		assert.Equal(t, want, got, token)
		assert.Equal(t, token, got.Token())
	}
	assert.Len(t, Actions(), len(tokens))

	_, err := ParseAction("publish")
	assert.True(t, errors.Is(err, pkgerrors.ErrUnknownAction))
}

func TestKindSupports(t *testing.T) {
	assert.True(t, KindXMLContent.Supports(ActionAddElement))
	assert.False(t, KindDefaultPage.Supports(ActionAddElement))
	assert.True(t, KindDefaultPage.Supports(ActionChangeElement))
	assert.False(t, KindPlainText.Supports(ActionDeleteLocale))
	assert.True(t, KindPlainText.Supports(ActionSaveExit))

	// every kind handles the session lifecycle
	for _, k := range []Kind{KindPlainText, KindSimplePage, KindDefaultPage, KindXMLContent} {
		for _, a := range []Action{ActionDefault, ActionSave, ActionExit, ActionCloseBrowser} {
			assert.True(t, k.Supports(a), "%s %s", k, a)
		}
	}
}

func TestResultState(t *testing.T) {
	for _, a := range Actions() {
		// every action maps to a state without falling through
		s := ResultState(a)
		assert.NotEqual(t, "UNKNOWN", s.String(), a.String())
	}
	assert.Equal(t, StateSaveExit, ResultState(ActionSaveExit))
	assert.True(t, ResultState(ActionExit).Terminal())
	assert.False(t, ResultState(ActionSave).Terminal())
}

func TestKindForResourceType(t *testing.T) {
	assert.Equal(t, KindDefaultPage, KindForResourceType(entities.TypeXMLPage))
	assert.Equal(t, KindXMLContent, KindForResourceType(entities.TypeXMLContent))
	assert.Equal(t, KindPlainText, KindForResourceType(entities.TypePlain))
	assert.True(t, KindSimplePage.Handles(entities.TypeXMLPage))
	assert.False(t, KindXMLContent.Handles(entities.TypeXMLPage))
	assert.True(t, KindPlainText.Handles(entities.TypePlain))
	assert.False(t, KindPlainText.Handles(entities.TypeXMLContent))
	assert.False(t, KindPlainText.Handles(entities.TypeXMLPage))

	k, err := ParseKind("simplepage")
	require.NoError(t, err)
	assert.Equal(t, KindSimplePage, k)
}
