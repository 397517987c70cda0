package validators

import (
	"fmt"
	"unicode/utf8"

	"cmseditor/domain/config"
	"cmseditor/domain/core/aggregates"
	"cmseditor/domain/core/valueobjects"
	"cmseditor/pkg/errors"
)

// ContentValidator checks edited content before it may be committed
type ContentValidator struct {
	cfg *config.DomainConfig
}

// NewContentValidator creates a validator bound to the domain limits
func NewContentValidator(cfg *config.DomainConfig) *ContentValidator {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &ContentValidator{cfg: cfg}
}

// ValidateXMLContent validates every locale of doc against its schema
func (v *ContentValidator) ValidateXMLContent(doc *aggregates.Document, schema *aggregates.Schema) *errors.ValidationErrors {
	errs := schema.Validate(doc)
	v.checkCommon(doc, doc.Locales(), errs)
	return errs
}

// ValidateXMLContentLocale validates a single locale, used when switching locales
func (v *ContentValidator) ValidateXMLContentLocale(doc *aggregates.Document, schema *aggregates.Schema, l valueobjects.Locale) *errors.ValidationErrors {
	errs := schema.ValidateLocale(doc, l)
	v.checkCommon(doc, valueobjects.LocaleList{l}, errs)
	return errs
}

// ValidatePage validates a page. Elements outside the template declaration
// are allowed since pages may carry elements of an earlier template.
func (v *ContentValidator) ValidatePage(doc *aggregates.Document) *errors.ValidationErrors {
	errs := errors.NewValidationErrors()
	v.checkCommon(doc, doc.Locales(), errs)
	return errs
}

func (v *ContentValidator) checkCommon(doc *aggregates.Document, locales valueobjects.LocaleList, errs *errors.ValidationErrors) {
	if len(doc.Locales()) > v.cfg.MaxLocales {
		errs.Add("locales", fmt.Sprintf("content may have at most %d locales", v.cfg.MaxLocales))
	}
	for _, l := range locales {
		for _, pv := range doc.Values(l) {
			if utf8.RuneCountInString(pv.Value) > v.cfg.MaxBufferLength {
				errs.AddAt(l.String(), pv.Path, fmt.Sprintf("value exceeds %d characters", v.cfg.MaxBufferLength))
			}
		}
	}
}
