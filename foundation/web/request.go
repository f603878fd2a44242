package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	en "github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
)

// validate holds the settings and caches for validating request struct
// values.
var validate = validator.New()

// translator is used to convert validator library error messages into
// English.
var translator *ut.UniversalTranslator

func init() {
	translator = ut.New(en.New(), en.New())
}

// Decode reads the body of an HTTP request looking for a JSON document. The
// body is decoded into the provided value, and if that value implements a
// Validate method, it is executed.
func Decode(r *http.Request, val any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(val); err != nil {
		return fmt.Errorf("unable to decode payload: %w", err)
	}

	if v, ok := val.(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			return err
		}
		return nil
	}

	rv := reflect.Indirect(reflect.ValueOf(val))
	if rv.Kind() != reflect.Struct {
		return nil
	}

	if err := validate.Struct(val); err != nil {

		var verrors validator.ValidationErrors
		if !errors.As(err, &verrors) {
			return err
		}

		lTranslator, _ := translator.GetTranslator("en")

		var fields []string
		for _, verror := range verrors {
			field := fmt.Sprintf("%s: %s", verror.Field(), verror.Translate(lTranslator))
			fields = append(fields, field)
		}

		return errors.New(strings.Join(fields, ","))
	}

	return nil
}
