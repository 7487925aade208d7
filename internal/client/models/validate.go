package models

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// ValidationError reports the first invalid field of a record with an
// English message suitable for showing to the user.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Err }

var (
	vOnce  sync.Once
	vInst  *validator.Validate
	vTrans ut.Translator
)

func validatorInstance() (*validator.Validate, ut.Translator) {
	vOnce.Do(func() {
		enLoc := en.New()
		uni := ut.New(enLoc, enLoc)
		trans, _ := uni.GetTranslator("en")

		v := validator.New(validator.WithRequiredStructEnabled())

		// report json names, matching what the user typed
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			tag := fld.Tag.Get("json")
			if tag == "-" || tag == "" {
				return fld.Name
			}
			if idx := strings.Index(tag, ","); idx >= 0 {
				tag = tag[:idx]
			}
			return tag
		})

		_ = en_translations.RegisterDefaultTranslations(v, trans)

		vInst, vTrans = v, trans
	})
	return vInst, vTrans
}

// Validate checks the struct tags of v and returns a *ValidationError for
// the first failing field.
func Validate(v any) error {
	val, trans := validatorInstance()

	err := val.Struct(v)
	if err == nil {
		return nil
	}

	var inv *validator.InvalidValidationError
	if errors.As(err, &inv) {
		return &ValidationError{Message: inv.Error(), Err: err}
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &ValidationError{Field: fe.Field(), Message: fe.Translate(trans), Err: err}
	}

	return &ValidationError{Message: err.Error(), Err: err}
}
