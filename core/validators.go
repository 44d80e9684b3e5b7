package core

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

const requiredText = "this field is required"

var alphaNumUnderRegex = regexp.MustCompile(`^\w+$`)

// globalValidations are the custom tags shared by every domain package.
var globalValidations = []struct {
	tag  string
	text string
	fn   validator.Func
}{
	{
		tag:  "alphanum_",
		text: "only alphanumeric characters and underscores are allowed",
		fn: func(fl validator.FieldLevel) bool {
			return alphaNumUnderRegex.MatchString(fl.Field().String())
		},
	},
	{
		tag:  "notblank",
		text: "this field cannot be blank",
		fn: func(fl validator.FieldLevel) bool {
			str, ok := fl.Field().Interface().(string)
			return ok && strings.TrimSpace(str) != ""
		},
	},
}

// NewTranslator returns the english translator used for validation messages.
func NewTranslator() ut.Translator {
	english := en.New()
	translator, _ := ut.New(english, english).GetTranslator("en")
	return translator
}

// fieldName names fields after their json tag, or their form tag for form-only structs.
func fieldName(fld reflect.StructField) string {
	for _, key := range []string{"json", "form"} {
		switch name := strings.SplitN(fld.Tag.Get(key), ",", 2)[0]; name {
		case "":
			continue
		case "-":
			return ""
		default:
			return name
		}
	}
	return ""
}

// InitValidators registers the default english translations and the global custom validations on validate.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)
	validate.RegisterTagNameFunc(fieldName)

	for _, v := range globalValidations {
		_ = validate.RegisterValidation(v.tag, v.fn)
		RegisterCustomTranslation(validate, translator, v.tag, v.text)
	}
	for _, tag := range []string{"required", "required_with"} {
		RegisterCustomTranslation(validate, translator, tag, requiredText, true)
	}
}

// RegisterCustomTranslation registers text as the message of tag; override replaces an existing message.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	replace := len(override) > 0 && override[0]
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, replace) },
		func(t ut.Translator, fe validator.FieldError) string {
			msg, _ := t.T(tag, fe.Field())
			return msg
		},
	)
}
