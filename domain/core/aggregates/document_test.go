package aggregates

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cmseditor/domain/core/valueobjects"
	pkgerrors "cmseditor/pkg/errors"
)

func at(t *testing.T, path, locale string) valueobjects.ElementReference {
	t.Helper()
	r, err := valueobjects.NewElementReference(path, locale)
	require.NoError(t, err)
	return r
}

func TestDocument_RoundTrip(t *testing.T) {
	doc := NewDocument()
	en := valueobjects.MustLocale("en")
	de := valueobjects.MustLocale("de")
	require.NoError(t, doc.AddLocale(en))
	require.NoError(t, doc.AddLocale(de))
	require.NoError(t, doc.SetValue(at(t, "body", "en"), "<p>Hello &amp; welcome</p>"))
	require.NoError(t, doc.SetValue(at(t, "text", "en"), "side"))
	require.NoError(t, doc.SetEnabled(en, "text", false))
	section, err := valueobjects.ParseElementPath("Section[1]")
	require.NoError(t, err)
	group, err := doc.InsertElement(de, section, true)
	require.NoError(t, err)
	_, err = doc.InsertElement(de, group.Child("Image", 1), false)
	require.NoError(t, err)
	require.NoError(t, doc.SetValue(at(t, "Section[1]/Image[1]", "de"), "/img/a.png"))

	data, err := doc.Bytes()
	require.NoError(t, err)
	parsed, err := ParseDocument(data)
	require.NoError(t, err)

	for _, l := range doc.Locales() {
		if diff := cmp.Diff(doc.Values(l), parsed.Values(l)); diff != "" {
			t.Errorf("values of %s differ (-want +got):\n%s", l, diff)
		}
	}
	assert.True(t, parsed.IsDisabled(en, "text"))
	assert.Equal(t, []string{"en", "de"}, parsed.Locales().Strings())
}

func TestParseDocument(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		doc, err := ParseDocument([]byte("  "))
		require.NoError(t, err)
		assert.Empty(t, doc.Locales())
	})

	t.Run("broken xml", func(t *testing.T) {
		_, err := ParseDocument([]byte("<content><locale"))
		assert.True(t, errors.Is(err, pkgerrors.ErrInvalidContent))
	})

	t.Run("duplicate locale", func(t *testing.T) {
		_, err := ParseDocument([]byte(`<content><locale name="en"/><locale name="en"/></content>`))
		assert.True(t, errors.Is(err, pkgerrors.ErrInvalidContent))
	})
}

func TestDocument_SetValueCreatesNextSiblingOnly(t *testing.T) {
	doc := NewDocument()
	require.NoError(t, doc.AddLocale(valueobjects.MustLocale("en")))

	require.NoError(t, doc.SetValue(at(t, "Paragraph[1]", "en"), "a"))
	err := doc.SetValue(at(t, "Paragraph[3]", "en"), "c")

	assert.True(t, errors.Is(err, pkgerrors.ErrElementNotFound))

	err = doc.SetValue(at(t, "Paragraph[1]", "fr"), "x")
	assert.True(t, errors.Is(err, pkgerrors.ErrLocaleNotFound))
}

func TestDocument_CloneIsIndependent(t *testing.T) {
	doc := NewDocument()
	require.NoError(t, doc.AddLocale(valueobjects.MustLocale("en")))
	require.NoError(t, doc.SetValue(at(t, "body", "en"), "original"))

	clone := doc.Clone()
	require.NoError(t, clone.SetValue(at(t, "body", "en"), "changed"))

	value, _ := doc.Value(at(t, "body", "en"))
	assert.Equal(t, "original", value)
}

func TestSchema_CorrectRepairsStructure(t *testing.T) {
	schema, err := NewSchema("article", []ElementDef{
		{Name: "Title", Type: ElementText, MinOccurs: 1, MaxOccurs: 1},
		{Name: "Teaser", Type: ElementText, MinOccurs: 0, MaxOccurs: 1},
	})
	require.NoError(t, err)
	doc := NewDocument()
	require.NoError(t, doc.AddLocale(valueobjects.MustLocale("en")))
	require.NoError(t, doc.SetValue(at(t, "Teaser[1]", "en"), "a"))
	require.NoError(t, doc.SetValue(at(t, "Teaser[2]", "en"), "b"))
	require.NoError(t, doc.SetValue(at(t, "Obsolete", "en"), "x"))
	require.True(t, schema.NeedsCorrection(doc))

	changed := schema.Correct(doc)

	assert.True(t, changed)
	assert.False(t, schema.NeedsCorrection(doc))
	assert.Equal(t, []string{"Teaser", "Title"}, doc.ElementNames(valueobjects.MustLocale("en")))
	value, _ := doc.Value(at(t, "Teaser[1]", "en"))
	assert.Equal(t, "a", value)
}

func TestSchema_ValidateReportsPerLocale(t *testing.T) {
	schema, err := NewSchema("article", []ElementDef{
		{Name: "Title", Type: ElementText, MinOccurs: 1, MaxOccurs: 1},
	})
	require.NoError(t, err)
	doc, err := schema.NewContent(valueobjects.MustLocale("en"))
	require.NoError(t, err)
	require.NoError(t, schema.AddLocale(doc, valueobjects.MustLocale("de")))
	require.NoError(t, doc.SetValue(at(t, "Title", "en"), "Hello"))

	errs := schema.Validate(doc)

	require.True(t, errs.HasErrors())
	byLocale := errs.ByLocale()
	assert.Contains(t, byLocale, "de")
	assert.NotContains(t, byLocale, "en")
	assert.Contains(t, byLocale["de"], "Title[1]")
}

func TestNewSchema_RejectsInvalidDefinitions(t *testing.T) {
	tests := []struct {
		name string
		defs []ElementDef
	}{
		{"no elements", nil},
		{"duplicate", []ElementDef{{Name: "A", Type: ElementText, MaxOccurs: 1}, {Name: "A", Type: ElementText, MaxOccurs: 1}}},
		{"max below min", []ElementDef{{Name: "A", Type: ElementText, MinOccurs: 2, MaxOccurs: 1}}},
		{"choice without options", []ElementDef{{Name: "A", Type: ElementChoice, MaxOccurs: 1}}},
		{"unknown type", []ElementDef{{Name: "A", Type: "video", MaxOccurs: 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSchema("s", tt.defs)
			assert.Error(t, err)
		})
	}
}

func TestParseTemplateElements(t *testing.T) {
	decl := ParseTemplateElements(" body*|Body , text|Side text,body,bad name ,footer* ")

	assert.Equal(t, TemplateElements{
		{Name: "body", NiceName: "Body", Mandatory: true},
		{Name: "text", NiceName: "Side text"},
		{Name: "footer", NiceName: "footer", Mandatory: true},
	}, decl)
	assert.Equal(t, "body*|Body,text|Side text,footer*", decl.String())
	assert.True(t, decl.Addressable("text"))
	assert.False(t, decl.Addressable("header"))
	assert.True(t, TemplateElements(nil).Addressable("header"))
}
