package editor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cmseditor/domain/core/aggregates"
	"cmseditor/domain/core/valueobjects"
	pkgerrors "cmseditor/pkg/errors"
)

func articleSchema(t *testing.T) *aggregates.Schema {
	t.Helper()
	schema, err := aggregates.NewSchema("article", []aggregates.ElementDef{
		{Name: "Title", Type: aggregates.ElementText, MinOccurs: 1, MaxOccurs: 1},
		{Name: "Paragraph", Type: aggregates.ElementHTML, MinOccurs: 1, MaxOccurs: 3},
		{Name: "Section", Type: aggregates.ElementChoice, MinOccurs: 0, MaxOccurs: aggregates.Unbounded, Options: []aggregates.ElementDef{
			{Name: "Text", Type: aggregates.ElementHTML, MinOccurs: 0, MaxOccurs: aggregates.Unbounded},
			{Name: "Image", Type: aggregates.ElementText, MinOccurs: 0, MaxOccurs: aggregates.Unbounded},
		}},
	})
	require.NoError(t, err)
	return schema
}

func paths(doc *aggregates.Document, l valueobjects.Locale) []string {
	var out []string
	for _, pv := range doc.Values(l) {
		out = append(out, pv.Path)
	}
	return out
}

func TestDeleteLocale(t *testing.T) {
	t.Run("switches to first remaining locale", func(t *testing.T) {
		doc := pageWith(t, en, de, fr)

		next, err := DeleteLocale(doc, en)

		require.NoError(t, err)
		assert.True(t, de.Equals(next))
		assert.Equal(t, []string{"de", "fr"}, doc.Locales().Strings())
	})

	t.Run("rejects deleting the last locale", func(t *testing.T) {
		doc := pageWith(t, de)
		before, err := doc.Bytes()
		require.NoError(t, err)

		next, err := DeleteLocale(doc, de)

		require.Error(t, err)
		assert.True(t, errors.Is(err, pkgerrors.ErrLastLocale))
		assert.True(t, de.Equals(next))
		after, _ := doc.Bytes()
		assert.Equal(t, string(before), string(after))
	})

	t.Run("unknown locale", func(t *testing.T) {
		doc := pageWith(t, en, de)

		_, err := DeleteLocale(doc, fr)

		assert.True(t, errors.Is(err, pkgerrors.ErrLocaleNotFound))
		assert.Len(t, doc.Locales(), 2)
	})
}

func TestCopyLocale(t *testing.T) {
	doc := pageWith(t, en, de, fr)

	require.NoError(t, CopyLocale(doc, en, nil))

	for _, l := range []valueobjects.Locale{de, fr} {
		value, _ := doc.Value(ref(t, "body", l))
		assert.Equal(t, "text en", value)
	}

	require.NoError(t, doc.SetValue(ref(t, "body", de), "nur de"))
	require.NoError(t, CopyLocale(doc, de, valueobjects.LocaleList{fr}))
	value, _ := doc.Value(ref(t, "body", fr))
	assert.Equal(t, "nur de", value)
	value, _ = doc.Value(ref(t, "body", en))
	assert.Equal(t, "text en", value)
}

func TestAddElement(t *testing.T) {
	schema := articleSchema(t)

	t.Run("inserts at position", func(t *testing.T) {
		doc, err := schema.NewContent(en)
		require.NoError(t, err)
		require.NoError(t, doc.SetValue(ref(t, "Paragraph[1]", en), "first"))

		added, err := AddElement(doc, schema, en, mustPath("Paragraph[1]"), "")

		require.NoError(t, err)
		assert.Equal(t, "Paragraph[1]", added.String())
		value, _ := doc.Value(ref(t, "Paragraph[2]", en))
		assert.Equal(t, "first", value)
	})

	t.Run("enforces max occurs", func(t *testing.T) {
		doc, err := schema.NewContent(en)
		require.NoError(t, err)
		_, err = AddElement(doc, schema, en, mustPath("Paragraph[2]"), "")
		require.NoError(t, err)
		_, err = AddElement(doc, schema, en, mustPath("Paragraph[3]"), "")
		require.NoError(t, err)

		_, err = AddElement(doc, schema, en, mustPath("Paragraph[4]"), "")

		assert.True(t, errors.Is(err, pkgerrors.ErrMaxOccurs))
		assert.Equal(t, 3, doc.Count(en, mustPath("Paragraph")))
	})

	t.Run("choice group with option", func(t *testing.T) {
		doc, err := schema.NewContent(en)
		require.NoError(t, err)

		added, err := AddElement(doc, schema, en, mustPath("Section[1]"), "Image")

		require.NoError(t, err)
		assert.Equal(t, "Section[1]/Image[1]", added.String())
		assert.Equal(t, []string{"Title[1]", "Paragraph[1]", "Section[1]", "Section[1]/Image[1]"}, paths(doc, en))
	})

	t.Run("option into existing group", func(t *testing.T) {
		doc, err := schema.NewContent(en)
		require.NoError(t, err)
		_, err = AddElement(doc, schema, en, mustPath("Section[1]"), "Image")
		require.NoError(t, err)

		added, err := AddElement(doc, schema, en, mustPath("Section[1]/Text[1]"), "")

		require.NoError(t, err)
		assert.Equal(t, "Section[1]/Text[1]", added.String())
		assert.Equal(t, 1, doc.Count(en, mustPath("Section[1]/Image")))
	})

	t.Run("unknown option", func(t *testing.T) {
		doc, err := schema.NewContent(en)
		require.NoError(t, err)

		_, err = AddElement(doc, schema, en, mustPath("Section[1]"), "Video")

		assert.True(t, errors.Is(err, pkgerrors.ErrElementNotAddressable))
	})

	t.Run("undeclared element", func(t *testing.T) {
		doc, err := schema.NewContent(en)
		require.NoError(t, err)

		_, err = AddElement(doc, schema, en, mustPath("Footer"), "")

		assert.True(t, errors.Is(err, pkgerrors.ErrElementNotAddressable))
	})
}

func TestRemoveElement(t *testing.T) {
	schema := articleSchema(t)

	t.Run("last option removes its choice group", func(t *testing.T) {
		doc, err := schema.NewContent(en)
		require.NoError(t, err)
		_, err = AddElement(doc, schema, en, mustPath("Section[1]"), "Text")
		require.NoError(t, err)

		require.NoError(t, RemoveElement(doc, schema, en, mustPath("Section[1]/Text[1]")))

		assert.Equal(t, 0, doc.Count(en, mustPath("Section")))
	})

	t.Run("group keeps remaining options", func(t *testing.T) {
		doc, err := schema.NewContent(en)
		require.NoError(t, err)
		_, err = AddElement(doc, schema, en, mustPath("Section[1]"), "Text")
		require.NoError(t, err)
		_, err = AddElement(doc, schema, en, mustPath("Section[1]/Image[1]"), "")
		require.NoError(t, err)

		require.NoError(t, RemoveElement(doc, schema, en, mustPath("Section[1]/Text[1]")))

		assert.Equal(t, []string{"Title[1]", "Paragraph[1]", "Section[1]", "Section[1]/Image[1]"}, paths(doc, en))
	})

	t.Run("mandatory element is re-added empty", func(t *testing.T) {
		doc, err := schema.NewContent(en)
		require.NoError(t, err)
		require.NoError(t, doc.SetValue(ref(t, "Title", en), "Hello"))

		require.NoError(t, RemoveElement(doc, schema, en, mustPath("Title[1]")))

		value, ok := doc.Value(ref(t, "Title", en))
		assert.True(t, ok)
		assert.Empty(t, value)
	})
}

func TestMoveElement(t *testing.T) {
	schema := articleSchema(t)
	doc, err := schema.NewContent(en)
	require.NoError(t, err)
	require.NoError(t, doc.SetValue(ref(t, "Paragraph[1]", en), "one"))
	require.NoError(t, doc.SetValue(ref(t, "Paragraph[2]", en), "two"))

	moved, err := MoveElement(doc, en, mustPath("Paragraph[2]"), true)
	require.NoError(t, err)
	assert.Equal(t, "Paragraph[1]", moved.String())
	value, _ := doc.Value(ref(t, "Paragraph[1]", en))
	assert.Equal(t, "two", value)

	// boundaries are no-ops
	same, err := MoveElement(doc, en, mustPath("Paragraph[1]"), true)
	require.NoError(t, err)
	assert.Equal(t, "Paragraph[1]", same.String())
	same, err = MoveElement(doc, en, mustPath("Paragraph[2]"), false)
	require.NoError(t, err)
	assert.Equal(t, "Paragraph[2]", same.String())
}
