package valueobjects

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cmseditor/domain/config"
	pkgerrors "cmseditor/pkg/errors"
)

func TestParseLocale(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"language only", "en", "en", false},
		{"region", "de-DE", "de-DE", false},
		{"underscore form", "de_DE", "de-DE", false},
		{"surrounding space", " fr ", "fr", false},
		{"empty", "", "", true},
		{"garbage", "not a locale", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := ParseLocale(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, l.IsZero())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, l.String())
		})
	}
}

func TestLocaleList(t *testing.T) {
	list := ParseLocaleList("en, de,,xx yy,en,fr")

	assert.Equal(t, []string{"en", "de", "fr"}, list.Strings())
	assert.Equal(t, 1, list.IndexOf(MustLocale("de")))
	assert.Equal(t, []string{"en", "fr"}, list.Without(MustLocale("de")).Strings())
	assert.True(t, LocaleList(nil).First().IsZero())
	assert.False(t, OptionalLocale("").Equals(MustLocale("en")))
}

func TestLocale_JSON(t *testing.T) {
	var payload struct {
		Locale Locale `json:"locale"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"locale":"de_AT"}`), &payload))
	assert.Equal(t, "de-AT", payload.Locale.String())

	out, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"locale":"de-AT"}`, string(out))
}

func TestParseElementPath(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"Title", "Title[1]", false},
		{"Title[2]", "Title[2]", false},
		{"/Section[1]/Text[3]/", "Section[1]/Text[3]", false},
		{"a/b/c", "", true},
		{"Title[0]", "", true},
		{"Title[x]", "", true},
		{"Title[2", "", true},
		{"1abc", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			p, err := ParseElementPath(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.String())
		})
	}
}

func TestElementPath_Navigation(t *testing.T) {
	p, err := ParseElementPath("Section[2]/Image[3]")
	require.NoError(t, err)

	assert.Equal(t, 2, p.Depth())
	assert.Equal(t, "Image", p.Name())
	assert.Equal(t, 3, p.Index())
	assert.Equal(t, "Section[2]", p.Root().String())
	parent, nested := p.Parent()
	assert.True(t, nested)
	assert.Equal(t, "Section[2]", parent.String())
	assert.Equal(t, "Section[2]/Image[1]", p.WithIndex(1).String())
	assert.Equal(t, "Section[2]/Text[1]", parent.Child("Text", 1).String())

	// the original path is not modified by derived paths
	assert.Equal(t, "Section[2]/Image[3]", p.String())

	_, nested = parent.Parent()
	assert.False(t, nested)
}

func TestNewElementReference(t *testing.T) {
	r, err := NewElementReference("body", "de_DE")
	require.NoError(t, err)
	assert.Equal(t, "de-DE:body[1]", r.String())

	_, err = NewElementReference("body", "")
	assert.Error(t, err)
}

func TestNewEditorBuffer(t *testing.T) {
	t.Run("html is sanitized", func(t *testing.T) {
		b, err := NewEditorBuffer(`<p class="lead">Hi<script>alert(1)</script></p>`, FormatHTML)

		require.NoError(t, err)
		assert.Equal(t, `<p class="lead">Hi</p>`, b.Text())
	})

	t.Run("plain text kept verbatim", func(t *testing.T) {
		b, err := NewEditorBuffer("a < b", FormatPlainText)

		require.NoError(t, err)
		assert.Equal(t, "a < b", b.Text())
	})

	t.Run("sanitizing disabled", func(t *testing.T) {
		cfg := config.DefaultDomainConfig()
		cfg.SanitizeHTML = false

		b, err := NewEditorBufferWithConfig("<script>x</script>", FormatHTML, cfg)

		require.NoError(t, err)
		assert.Equal(t, "<script>x</script>", b.Text())
	})

	t.Run("too long", func(t *testing.T) {
		cfg := config.DefaultDomainConfig()
		cfg.MaxBufferLength = 5

		_, err := NewEditorBufferWithConfig(strings.Repeat("ä", 6), FormatPlainText, cfg)

		assert.True(t, errors.Is(err, pkgerrors.ErrBufferTooLong))
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := NewEditorBuffer("x", "rtf")
		assert.Error(t, err)
	})
}

func TestResourceID(t *testing.T) {
	id := NewResourceID()
	parsed, err := ParseResourceID(id.String())
	require.NoError(t, err)
	assert.True(t, id.Equals(parsed))

	_, err = ParseResourceID("nope")
	assert.Error(t, err)
	assert.Equal(t, "", ResourceID{}.String())
	assert.True(t, ResourceID{}.IsZero())
}
