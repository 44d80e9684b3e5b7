package lesson

import (
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/capitalizelearning/CapitalizeWebsite/core"
)

var (
	contentTypeTag  = "contenttype"
	contentTypeText = "must be one of: " + strings.Join(ContentTypes, ", ")

	correctIndexTag  = "correctidx"
	correctIndexText = "must be a valid index into options"
)

// InitValidators registers the lesson validations on validate.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(contentTypeTag, contentTypeValidation)
	core.RegisterCustomTranslation(validate, translator, contentTypeTag, contentTypeText)

	validate.RegisterStructValidation(questionStructValidation, NewQuestion{})
	core.RegisterCustomTranslation(validate, translator, correctIndexTag, correctIndexText)
}

func contentTypeValidation(fl validator.FieldLevel) bool {
	return ContentType(fl.Field().String()).Valid()
}

func (ct ContentType) Valid() bool {
	for _, t := range ContentTypes {
		if string(ct) == t {
			return true
		}
	}
	return false
}

func questionStructValidation(sl validator.StructLevel) {
	nq := sl.Current().Interface().(NewQuestion)
	if nq.CorrectIndex == nil || len(nq.Options) < 2 {
		return // reported by `required` & `min`
	}
	if !validCorrectIndex(*nq.CorrectIndex, nq.Options) {
		sl.ReportError(nq.CorrectIndex, "correct_index", "CorrectIndex", correctIndexTag, "")
	}
}

func validCorrectIndex(idx int, options []string) bool {
	return idx >= 0 && idx < len(options)
}
