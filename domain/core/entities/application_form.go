package entities

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ApplicationForm is a job application posted from the public site.
// Field names double as the keys errors are reported under (upper cased).
type ApplicationForm struct {
	ID          string    `validate:"-"`
	SubmittedAt time.Time `validate:"-"`
	RemoteAddr  string    `validate:"-"`

	Anrede             string `form:"anrede" validate:"required,max=10"`
	Titel              string `form:"titel" validate:"max=30"`
	Vorname            string `form:"vorname" validate:"required,min=2,max=50"`
	Nachname           string `form:"nachname" validate:"required,min=2,max=50"`
	Strasse            string `form:"strasse" validate:"required,min=3,max=80"`
	Hausnummer         string `form:"hausnummer" validate:"required,min=1,max=10"`
	Plz                string `form:"plz" validate:"required,plz"`
	Ort                string `form:"ort" validate:"required,min=2,max=50"`
	Land               string `form:"land" validate:"max=50"`
	Telefon            string `form:"telefon" validate:"required,min=6,max=30"`
	Mobil              string `form:"mobil" validate:"max=30"`
	Fax                string `form:"fax" validate:"max=30"`
	Email              string `form:"email" validate:"required,max=100,mailaddress"`
	Geburtsdatum       string `form:"geburtsdatum" validate:"max=10"`
	Nationalitaet      string `form:"nationalitaet" validate:"max=50"`
	Position           string `form:"position" validate:"required,max=100"`
	Eintrittsdatum     string `form:"eintrittsdatum" validate:"max=20"`
	Gehaltsvorstellung string `form:"gehaltsvorstellung" validate:"max=20"`
	Ausbildung         string `form:"ausbildung" validate:"max=500"`
	Berufserfahrung    string `form:"berufserfahrung" validate:"max=1000"`
	Sprachkenntnisse   string `form:"sprachkenntnisse" validate:"max=300"`
	Edvkenntnisse      string `form:"edvkenntnisse" validate:"max=300"`
	Quelle             string `form:"quelle" validate:"max=100"`
	Bemerkung          string `form:"bemerkung" validate:"max=2000"`
	Datenschutz        string `form:"datenschutz" validate:"required,oneof=on true 1 yes"`
}

// ApplicationFormFields lists the form parameter names in display order
var ApplicationFormFields = []string{
	"anrede", "titel", "vorname", "nachname", "strasse", "hausnummer", "plz", "ort",
	"land", "telefon", "mobil", "fax", "email", "geburtsdatum", "nationalitaet",
	"position", "eintrittsdatum", "gehaltsvorstellung", "ausbildung", "berufserfahrung",
	"sprachkenntnisse", "edvkenntnisse", "quelle", "bemerkung", "datenschutz",
}

// NewApplicationForm builds a form from raw request values. Every value is
// sanitized before it is stored.
func NewApplicationForm(get func(name string) string, remoteAddr string, now time.Time) *ApplicationForm {
	v := func(name string) string { return SanitizeFormValue(get(name)) }
	return &ApplicationForm{
		ID:                 uuid.New().String(),
		SubmittedAt:        now,
		RemoteAddr:         remoteAddr,
		Anrede:             v("anrede"),
		Titel:              v("titel"),
		Vorname:            v("vorname"),
		Nachname:           v("nachname"),
		Strasse:            v("strasse"),
		Hausnummer:         v("hausnummer"),
		Plz:                v("plz"),
		Ort:                v("ort"),
		Land:               v("land"),
		Telefon:            v("telefon"),
		Mobil:              v("mobil"),
		Fax:                v("fax"),
		Email:              v("email"),
		Geburtsdatum:       v("geburtsdatum"),
		Nationalitaet:      v("nationalitaet"),
		Position:           v("position"),
		Eintrittsdatum:     v("eintrittsdatum"),
		Gehaltsvorstellung: v("gehaltsvorstellung"),
		Ausbildung:         v("ausbildung"),
		Berufserfahrung:    v("berufserfahrung"),
		Sprachkenntnisse:   v("sprachkenntnisse"),
		Edvkenntnisse:      v("edvkenntnisse"),
		Quelle:             v("quelle"),
		Bemerkung:          v("bemerkung"),
		Datenschutz:        strings.ToLower(v("datenschutz")),
	}
}

// Values returns the form content keyed by parameter name
func (f *ApplicationForm) Values() map[string]string {
	return map[string]string{
		"anrede": f.Anrede, "titel": f.Titel, "vorname": f.Vorname, "nachname": f.Nachname,
		"strasse": f.Strasse, "hausnummer": f.Hausnummer, "plz": f.Plz, "ort": f.Ort,
		"land": f.Land, "telefon": f.Telefon, "mobil": f.Mobil, "fax": f.Fax,
		"email": f.Email, "geburtsdatum": f.Geburtsdatum, "nationalitaet": f.Nationalitaet,
		"position": f.Position, "eintrittsdatum": f.Eintrittsdatum,
		"gehaltsvorstellung": f.Gehaltsvorstellung, "ausbildung": f.Ausbildung,
		"berufserfahrung": f.Berufserfahrung, "sprachkenntnisse": f.Sprachkenntnisse,
		"edvkenntnisse": f.Edvkenntnisse, "quelle": f.Quelle, "bemerkung": f.Bemerkung,
		"datenschutz": f.Datenschutz,
	}
}

// FullName is the applicant's name as used in mails
func (f *ApplicationForm) FullName() string {
	parts := []string{f.Anrede, f.Titel, f.Vorname, f.Nachname}
	var out []string
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}

var entityDecoder = strings.NewReplacer(
	"&auml;", "ä", "&ouml;", "ö", "&uuml;", "ü",
	"&Auml;", "Ä", "&Ouml;", "Ö", "&Uuml;", "Ü",
	"&szlig;", "ß",
	"&#228;", "ä", "&#246;", "ö", "&#252;", "ü",
	"&#196;", "Ä", "&#214;", "Ö", "&#220;", "Ü",
	"&#223;", "ß",
	"&amp;", "&",
)

// SanitizeFormValue strips angle brackets and decodes the umlaut entities
// browsers send for legacy encodings
func SanitizeFormValue(s string) string {
	s = strings.NewReplacer("<", "", ">", "").Replace(s)
	return strings.TrimSpace(entityDecoder.Replace(s))
}
