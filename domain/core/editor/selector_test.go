package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cmseditor/domain/core/aggregates"
	"cmseditor/domain/core/valueobjects"
	pkgerrors "cmseditor/pkg/errors"
)

var (
	en = valueobjects.MustLocale("en")
	de = valueobjects.MustLocale("de")
	fr = valueobjects.MustLocale("fr")
)

func ref(t *testing.T, path string, l valueobjects.Locale) valueobjects.ElementReference {
	t.Helper()
	p, err := valueobjects.ParseElementPath(path)
	require.NoError(t, err)
	return valueobjects.ElementReference{Path: p, Locale: l}
}

func pageWith(t *testing.T, locales ...valueobjects.Locale) *aggregates.Document {
	t.Helper()
	doc := aggregates.NewDocument()
	for _, l := range locales {
		require.NoError(t, doc.AddLocale(l))
		require.NoError(t, doc.SetValue(ref(t, "body", l), "text "+l.String()))
	}
	return doc
}

func TestSelectLocale(t *testing.T) {
	defaults := valueobjects.LocaleList{en, de}

	tests := []struct {
		name        string
		existing    []valueobjects.Locale
		requested   valueobjects.Locale
		want        valueobjects.Locale
		wantLocales []string
		wantBody    string
	}{
		{
			name:        "requested locale present",
			existing:    []valueobjects.Locale{en, de},
			requested:   de,
			want:        de,
			wantLocales: []string{"en", "de"},
			wantBody:    "text de",
		},
		{
			name:        "no locales creates first default",
			existing:    nil,
			requested:   fr,
			want:        en,
			wantLocales: []string{"en"},
		},
		{
			name:        "missing locale copied from first default present",
			existing:    []valueobjects.Locale{de},
			requested:   fr,
			want:        fr,
			wantLocales: []string{"de", "fr"},
			wantBody:    "text de",
		},
		{
			name:        "missing locale created empty without default match",
			existing:    []valueobjects.Locale{valueobjects.MustLocale("it")},
			requested:   fr,
			want:        fr,
			wantLocales: []string{"it", "fr"},
		},
		{
			name:        "no request prefers defaults",
			existing:    []valueobjects.Locale{fr, de},
			requested:   valueobjects.Locale{},
			want:        de,
			wantLocales: []string{"fr", "de"},
			wantBody:    "text de",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := pageWith(t, tt.existing...)

			got, err := SelectLocale(doc, tt.requested, defaults, PageLocale)

			require.NoError(t, err)
			assert.True(t, tt.want.Equals(got), "got %s", got)
			assert.Equal(t, tt.wantLocales, doc.Locales().Strings())
			value, _ := doc.Value(ref(t, "body", got))
			assert.Equal(t, tt.wantBody, value)
		})
	}
}

func TestSelectLocale_NeverEmptiesLocaleSet(t *testing.T) {
	requests := []valueobjects.Locale{{}, en, de, fr, valueobjects.MustLocale("es")}
	defaultSets := []valueobjects.LocaleList{nil, {en}, {fr, de}}

	for _, requested := range requests {
		for _, defaults := range defaultSets {
			doc := pageWith(t, de)
			before := len(doc.Locales())

			got, err := SelectLocale(doc, requested, defaults, PageLocale)

			require.NoError(t, err)
			assert.GreaterOrEqual(t, len(doc.Locales()), before)
			assert.True(t, doc.HasLocale(got), "selected locale %s must exist", got)
		}
	}
}

func TestSelectLocale_SchemaLocaleAddsMandatoryElements(t *testing.T) {
	schema, err := aggregates.NewSchema("article", []aggregates.ElementDef{
		{Name: "Title", Type: aggregates.ElementText, MinOccurs: 1, MaxOccurs: 1},
		{Name: "Teaser", Type: aggregates.ElementText, MinOccurs: 0, MaxOccurs: 1},
	})
	require.NoError(t, err)
	doc := aggregates.NewDocument()
	require.NoError(t, doc.AddLocale(valueobjects.MustLocale("it")))

	got, err := SelectLocale(doc, fr, valueobjects.LocaleList{en}, SchemaLocale(schema))

	require.NoError(t, err)
	assert.True(t, fr.Equals(got))
	assert.Equal(t, []string{"Title"}, doc.ElementNames(fr))
}

func TestSelectLocale_InitFailure(t *testing.T) {
	failing := func(*aggregates.Document, valueobjects.Locale) error { return assert.AnError }

	t.Run("no request on empty document", func(t *testing.T) {
		doc := aggregates.NewDocument()

		_, err := SelectLocale(doc, valueobjects.Locale{}, valueobjects.LocaleList{en}, failing)

		assert.ErrorIs(t, err, assert.AnError)
		var appErr *pkgerrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "en", appErr.Details["locale"])
	})

	t.Run("requested on empty document", func(t *testing.T) {
		doc := aggregates.NewDocument()

		_, err := SelectLocale(doc, fr, valueobjects.LocaleList{en}, failing)

		assert.ErrorIs(t, err, assert.AnError)
		assert.Empty(t, doc.Locales())
	})

	t.Run("falls back to an available locale", func(t *testing.T) {
		doc := pageWith(t, valueobjects.MustLocale("it"))

		got, err := SelectLocale(doc, fr, valueobjects.LocaleList{en}, failing)

		require.NoError(t, err)
		assert.Equal(t, "it", got.String())
		assert.Equal(t, []string{"it"}, doc.Locales().Strings())
	})
}

func TestActiveElements_MandatoryAlwaysPresentAndEnabled(t *testing.T) {
	decls := []string{
		"body*",
		"body*|Body,text|Text",
		"header,body*,footer*",
		"text",
	}
	contents := []func(doc *aggregates.Document){
		func(doc *aggregates.Document) {},
		func(doc *aggregates.Document) {
			_ = doc.SetValue(valueobjects.ElementReference{Path: mustPath("body"), Locale: en}, "x")
			_ = doc.SetEnabled(en, "body", false)
		},
		func(doc *aggregates.Document) {
			_ = doc.SetValue(valueobjects.ElementReference{Path: mustPath("footer"), Locale: en}, "x")
			_ = doc.SetEnabled(en, "footer", false)
			_ = doc.SetValue(valueobjects.ElementReference{Path: mustPath("legacy"), Locale: en}, "y")
		},
	}

	for _, declText := range decls {
		decl := aggregates.ParseTemplateElements(declText)
		for _, fill := range contents {
			doc := aggregates.NewDocument()
			require.NoError(t, doc.AddLocale(en))
			fill(doc)

			active := ActiveElements(decl, doc, en)

			for _, mandatory := range decl.Mandatory() {
				ae, ok := findActive(active, mandatory.Name)
				require.True(t, ok, "%s missing for %q", mandatory.Name, declText)
				assert.True(t, ae.Enabled)
				assert.True(t, ae.Mandatory)
			}
		}
	}
}

func TestActiveElements_UndeclaredStoredElementsFollowDeclared(t *testing.T) {
	doc := pageWith(t, en)
	require.NoError(t, doc.SetValue(ref(t, "legacy", en), "old"))
	decl := aggregates.ParseTemplateElements("text|Text,body*")

	active := ActiveElements(decl, doc, en)

	names := make([]string, len(active))
	for i, ae := range active {
		names[i] = ae.Name
	}
	assert.Equal(t, []string{"text", "body", "legacy"}, names)
	assert.False(t, active[0].Existing)
	assert.True(t, active[1].Existing)
	assert.False(t, active[2].Declared)
}

func TestSelectElement(t *testing.T) {
	t.Run("body absent in direct edit is created on demand", func(t *testing.T) {
		doc := aggregates.NewDocument()
		require.NoError(t, doc.AddLocale(en))
		decl := aggregates.ParseTemplateElements("body|Body,text|Text")

		name := SelectElement("body", ActiveElements(decl, doc, en), "body")
		require.Equal(t, "body", name)

		require.NoError(t, doc.SetValue(ref(t, name, en), ""))
		value, ok := doc.Value(ref(t, name, en))
		assert.True(t, ok)
		assert.Empty(t, value)
	})

	t.Run("body absent without declaration", func(t *testing.T) {
		doc := aggregates.NewDocument()
		require.NoError(t, doc.AddLocale(en))

		assert.Equal(t, "body", SelectElement("body", ActiveElements(nil, doc, en), "body"))
	})

	t.Run("disabled element falls back to first mandatory", func(t *testing.T) {
		doc := pageWith(t, en)
		require.NoError(t, doc.SetValue(ref(t, "text", en), "side"))
		require.NoError(t, doc.SetEnabled(en, "text", false))
		decl := aggregates.ParseTemplateElements("text|Text,header*,body*")

		name := SelectElement("text", ActiveElements(decl, doc, en), "body")

		assert.Equal(t, "header", name)
	})

	t.Run("no request uses default name without mandatory elements", func(t *testing.T) {
		doc := pageWith(t, en)
		decl := aggregates.ParseTemplateElements("text,body")

		assert.Equal(t, "body", SelectElement("", ActiveElements(decl, doc, en), "body"))
	})

	t.Run("undeclared request falls back", func(t *testing.T) {
		doc := pageWith(t, en)
		decl := aggregates.ParseTemplateElements("text,body*")

		assert.Equal(t, "body", SelectElement("sidebar", ActiveElements(decl, doc, en), "body"))
	})

	t.Run("first enabled when default is disabled", func(t *testing.T) {
		doc := pageWith(t, en)
		require.NoError(t, doc.SetEnabled(en, "body", false))
		require.NoError(t, doc.SetValue(ref(t, "text", en), "x"))
		decl := aggregates.ParseTemplateElements("body,text")

		assert.Equal(t, "text", SelectElement("", ActiveElements(decl, doc, en), "body"))
	})
}

func mustPath(s string) valueobjects.ElementPath {
	p, err := valueobjects.ParseElementPath(s)
	if err != nil {
		panic(err)
	}
	return p
}
