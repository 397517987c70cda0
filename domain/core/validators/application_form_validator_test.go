package validators

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cmseditor/domain/core/entities"
	pkgerrors "cmseditor/pkg/errors"
)

func validFormValues() map[string]string {
	return map[string]string{
		"anrede":      "Frau",
		"vorname":     "Erika",
		"nachname":    "Mustermann",
		"strasse":     "Heidestra&szlig;e",
		"hausnummer":  "17",
		"plz":         "51147",
		"ort":         "K&ouml;ln",
		"telefon":     "0221 123456",
		"email":       "erika@example.de",
		"position":    "Redakteurin",
		"datenschutz": "on",
	}
}

func formFrom(values map[string]string) *entities.ApplicationForm {
	return entities.NewApplicationForm(func(name string) string { return values[name] }, "127.0.0.1", time.Now())
}

func TestApplicationFormValidator_Valid(t *testing.T) {
	form := formFrom(validFormValues())

	err := NewApplicationFormValidator().Validate(form)

	require.NoError(t, err)
	assert.Equal(t, "Köln", form.Ort)
	assert.Equal(t, "Heidestraße", form.Strasse)
}

func TestApplicationFormValidator_Fields(t *testing.T) {
	tests := []struct {
		name      string
		field     string
		value     string
		wantField string
	}{
		{"plz too short", "plz", "1234", "PLZ"},
		{"plz below range", "plz", "09999", "PLZ"},
		{"plz letters", "plz", "12a45", "PLZ"},
		{"email without dot", "email", "abc@de", "EMAIL"},
		{"email without at", "email", "abc", "EMAIL"},
		{"email with header break", "email", "x@evil.example\r\nBcc: victim@example.org\r\nX-Injected: yes", "EMAIL"},
		{"missing name", "nachname", "", "NACHNAME"},
		{"privacy not confirmed", "datenschutz", "no", "DATENSCHUTZ"},
		{"markup only", "vorname", "<>", "VORNAME"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := validFormValues()
			values[tt.field] = tt.value

			err := NewApplicationFormValidator().Validate(formFrom(values))

			var verrs *pkgerrors.ValidationErrors
			require.True(t, errors.As(err, &verrs))
			assert.True(t, verrs.Has(tt.wantField), "fields: %v", verrs.ToMap())
		})
	}
}

func TestIsValidPLZ(t *testing.T) {
	assert.True(t, IsValidPLZ("12345"))
	assert.True(t, IsValidPLZ("99999"))
	assert.True(t, IsValidPLZ("10000"))
	assert.False(t, IsValidPLZ("1234"))
	assert.False(t, IsValidPLZ("123456"))
	assert.False(t, IsValidPLZ("-1234"))
}

func TestIsPlausibleEmail(t *testing.T) {
	assert.True(t, IsPlausibleEmail("a.b@c"))
	assert.False(t, IsPlausibleEmail("abc"))
	assert.False(t, IsPlausibleEmail("a@b"))
	assert.False(t, IsPlausibleEmail("x@evil.example\r\nBcc: victim@example.org\r\nX-Injected: yes"))
	assert.False(t, IsPlausibleEmail("x@evil.example\nBcc: victim@example.org"))
	assert.False(t, IsPlausibleEmail("max mustermann@example.de"))
}

func TestSanitizeFormValue(t *testing.T) {
	assert.Equal(t, "Müller & Söhne", entities.SanitizeFormValue(" M&#252;ller &amp; S&ouml;hne "))
	assert.Equal(t, "scriptalert(1)/script", entities.SanitizeFormValue("<script>alert(1)</script>"))
}
