// Package bind decodes JSON payloads and validates them with field-level errors
package bind

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	perr "swiftconcur/internal/platform/errors"
	"swiftconcur/internal/platform/logger"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entrans "github.com/go-playground/validator/v10/translations/en"
)

// ValidatorSvc is the validator singleton with its English translator
type ValidatorSvc struct {
	Validator  *validator.Validate
	Translator ut.Translator
}

var (
	vOnce sync.Once
	vSvc  *ValidatorSvc
)

// Get returns the validator singleton
func Get() *ValidatorSvc {
	vOnce.Do(func() {
		loc := en.New()
		trans, _ := ut.New(loc, loc).GetTranslator("en")

		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			switch name {
			case "-":
				return ""
			case "":
				return f.Name
			}
			return name
		})
		_ = entrans.RegisterDefaultTranslations(v, trans)
		short(v, trans, "min", "{0} must be at least {1}")
		short(v, trans, "max", "{0} must be at most {1}")
		short(v, trans, "oneof", "{0} must be one of [{1}]")

		vSvc = &ValidatorSvc{Validator: v, Translator: trans}
	})
	return vSvc
}

// RegisterValidation adds a custom tag with an English message
func RegisterValidation(tag, message string, fn validator.Func) error {
	s := Get()
	if err := s.Validator.RegisterValidation(tag, fn); err != nil {
		return err
	}
	short(s.Validator, s.Translator, tag, message)
	return nil
}

func short(v *validator.Validate, trans ut.Translator, tag, text string) {
	_ = v.RegisterTranslation(tag, trans,
		func(t ut.Translator) error { return t.Add(tag, text, true) },
		func(t ut.Translator, fe validator.FieldError) string {
			msg, _ := t.T(tag, fe.Field(), fe.Param())
			return msg
		},
	)
}

// Validate runs struct validation and returns a validation error listing every failed field
func Validate(v any) error {
	err := Get().Validator.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		logger.Get().Error().Err(err).Msg("validator internal error")
		return perr.Wrap(err, perr.ErrorCodeUnknown, "validation error")
	}
	fields := make([]perr.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, perr.FieldError{
			Field:   fieldPath(fe.Namespace()),
			Message: fe.Translate(Get().Translator),
		})
	}
	return perr.Invalid("schema validation failed", fields)
}

// fieldPath drops the root type name: WarningReport.warnings[2].severity -> warnings[2].severity
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

// JSONOptions controls decoding
type JSONOptions struct {
	MaxBytes        int64
	DisallowUnknown bool
}

// DefaultJSONOptions is 1 MiB and strict fields
func DefaultJSONOptions() JSONOptions {
	return JSONOptions{MaxBytes: 1 << 20, DisallowUnknown: true}
}

// DecodeJSON decodes exactly one JSON value from r into T and validates it
func DecodeJSON[T any](r io.Reader, o JSONOptions) (T, error) {
	var zero, dst T
	if o.MaxBytes > 0 {
		r = io.LimitReader(r, o.MaxBytes)
	}
	dec := json.NewDecoder(r)
	if o.DisallowUnknown {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(&dst); err != nil {
		return zero, decodeError(err)
	}
	if dec.More() {
		return zero, perr.JSONErrf("unexpected trailing data")
	}
	if err := Validate(dst); err != nil {
		return zero, err
	}
	return dst, nil
}

// ParseJSON decodes a request body
func ParseJSON[T any](r *http.Request, opts ...JSONOptions) (T, error) {
	o := DefaultJSONOptions()
	if len(opts) > 0 {
		o = opts[0]
	}
	defer func() { _ = r.Body.Close() }()
	return DecodeJSON[T](r.Body, o)
}

// decodeError maps encoding/json failures; type mismatches become field errors
func decodeError(err error) error {
	if errors.Is(err, io.EOF) {
		return perr.JSONErrf("empty body")
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := typeErr.Field
		if field == "" {
			field = "$"
		}
		return perr.Invalid("schema validation failed", []perr.FieldError{{
			Field:   field,
			Message: fmt.Sprintf("%s must be of type %s, got %s", field, typeErr.Type, typeErr.Value),
		}})
	}
	if strings.HasPrefix(err.Error(), "json: unknown field") {
		name := strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`)
		return perr.Invalid("schema validation failed", []perr.FieldError{{Field: name, Message: "unknown field"}})
	}
	return perr.Wrap(err, perr.ErrorCodeJSON, "invalid JSON")
}
