package validators

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"cmseditor/domain/core/entities"
	"cmseditor/pkg/errors"
)

// PLZ bounds of German postal codes
const (
	MinPLZ = 10000
	MaxPLZ = 99999
)

// ApplicationFormValidator validates the application form field by field
type ApplicationFormValidator struct {
	validate *validator.Validate
}

// NewApplicationFormValidator creates a validator with the form specific rules registered
func NewApplicationFormValidator() *ApplicationFormValidator {
	v := validator.New()
	_ = v.RegisterValidation("plz", func(fl validator.FieldLevel) bool {
		return IsValidPLZ(fl.Field().String())
	})
	_ = v.RegisterValidation("mailaddress", func(fl validator.FieldLevel) bool {
		return IsPlausibleEmail(fl.Field().String())
	})
	return &ApplicationFormValidator{validate: v}
}

// Validate returns nil or *errors.ValidationErrors keyed by upper case field name
func (v *ApplicationFormValidator) Validate(form *entities.ApplicationForm) error {
	err := v.validate.Struct(form)
	if err == nil {
		return nil
	}
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	result := errors.NewValidationErrors()
	for _, fe := range fieldErrs {
		result.Add(strings.ToUpper(fe.Field()), fieldMessage(fe))
	}
	return result
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.ToUpper(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "plz":
		return fmt.Sprintf("%s must be a 5 digit number between %d and %d", field, MinPLZ, MaxPLZ)
	case "mailaddress":
		return fmt.Sprintf("%s must be an email address", field)
	case "oneof":
		return fmt.Sprintf("%s must be confirmed", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// IsValidPLZ accepts exactly five digits forming a number in [MinPLZ, MaxPLZ]
func IsValidPLZ(s string) bool {
	if len(s) != 5 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return false
	}
	return n >= MinPLZ && n <= MaxPLZ
}

// IsPlausibleEmail requires an "@" and a "." and no whitespace or control
// characters, as the address ends up in a mail header
func IsPlausibleEmail(s string) bool {
	if strings.IndexFunc(s, func(r rune) bool { return unicode.IsSpace(r) || unicode.IsControl(r) }) >= 0 {
		return false
	}
	return strings.Contains(s, "@") && strings.Contains(s, ".")
}
