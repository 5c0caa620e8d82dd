package core

import (
	"reflect"
	"regexp"
	"strings"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// DateLayout is the calendar date form used to key attendance records.
const DateLayout = "2006-01-02"

var (
	// custom validation tags & texts
	notBlankTag  = "notblank"
	notBlankText = "{0} must not be blank"

	regNoTag  = "regno"
	regNoText = "{0} is not a valid registration number"

	isoDateTag  = "isodate"
	isoDateText = "{0} must be a date formatted as YYYY-MM-DD"

	facultyRoleTag  = "facultyrole"
	facultyRoleText = "{0} must be one of DEO, Project Coordinator or Faculty"

	requiredTag     = "required"
	requiredWithTag = "required_with"
	requiredText    = "this field is required"

	defaultRegNoPattern = `^[A-Z0-9]+$`
)

// InitValidators instantiates the validator for use.
// regNoPattern is the registration-number pattern; the default is used when it is empty.
func InitValidators(validate *validator.Validate, translator ut.Translator, regNoPattern string) error {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	if regNoPattern == "" {
		regNoPattern = defaultRegNoPattern
	}
	regNoRegex, err := regexp.Compile(regNoPattern)
	if err != nil {
		return err
	}

	// register custom validators
	_ = validate.RegisterValidation(notBlankTag, notBlankValidation)
	RegisterCustomTranslation(validate, translator, notBlankTag, notBlankText)

	_ = validate.RegisterValidation(regNoTag, func(fl validator.FieldLevel) bool {
		return regNoRegex.MatchString(fl.Field().String())
	})
	RegisterCustomTranslation(validate, translator, regNoTag, regNoText)

	_ = validate.RegisterValidation(isoDateTag, isoDateValidation)
	RegisterCustomTranslation(validate, translator, isoDateTag, isoDateText)

	_ = validate.RegisterValidation(facultyRoleTag, facultyRoleValidation)
	RegisterCustomTranslation(validate, translator, facultyRoleTag, facultyRoleText)

	RegisterCustomTranslation(validate, translator, requiredTag, requiredText, true)
	RegisterCustomTranslation(validate, translator, requiredWithTag, requiredText, true)
	return nil
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// IsDate reports whether s is a calendar date in DateLayout.
func IsDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// Custom Global Validators

func notBlankValidation(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func isoDateValidation(fl validator.FieldLevel) bool {
	return IsDate(fl.Field().String())
}

func facultyRoleValidation(fl validator.FieldLevel) bool {
	return IsFacultyRole(fl.Field().String())
}
