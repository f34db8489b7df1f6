package utils

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/raushankrgupta/maternity-matters/apperr"
)

var (
	mobilePattern  = regexp.MustCompile(`^[6-9]\d{9}$`)
	pincodePattern = regexp.MustCompile(`^[1-9][0-9]{5}$`)

	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared validator with the portal's custom tags:
// in_mobile (10-digit Indian mobile) and in_pincode (Indian PIN code).
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = validate.RegisterValidation("in_mobile", func(fl validator.FieldLevel) bool {
			return mobilePattern.MatchString(fl.Field().String())
		})
		_ = validate.RegisterValidation("in_pincode", func(fl validator.FieldLevel) bool {
			return pincodePattern.MatchString(fl.Field().String())
		})
	})
	return validate
}

// ValidateStruct runs struct tag validation and converts failures into field
// errors. messages maps "field.tag" (or just "field") to the text shown to the
// client.
func ValidateStruct(v any, messages map[string]string) []apperr.FieldError {
	err := Validator().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []apperr.FieldError{{Msg: err.Error()}}
	}
	fields := make([]apperr.FieldError, 0, len(verrs))
	seen := make(map[string]bool)
	for _, fe := range verrs {
		// Element errors ("issuesFaced[2]") are reported once, on the list,
		// with the message keyed "issuesFaced[]".
		field, _, elem := strings.Cut(fe.Field(), "[")
		if seen[field] {
			continue
		}
		seen[field] = true

		key := field
		if elem {
			key += "[]"
		}
		msg, ok := messages[key+"."+fe.Tag()]
		if !ok {
			msg, ok = messages[key]
		}
		if !ok {
			msg = field + " is invalid."
		}
		fields = append(fields, apperr.Field(field, msg))
	}
	return fields
}
