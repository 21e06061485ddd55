package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	dErrors "mediguard/pkg/domain-errors"
	s "mediguard/pkg/platform/strings"
)

var structValidator = newStructValidator()

func newStructValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON name so messages match the request body.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// tagMessages renders the first failing rule. %[1]s is the field, %[2]s the
// rule parameter.
var tagMessages = map[string]string{
	"required":         "%[1]s is required",
	"notblank":         "%[1]s must not be blank",
	"required_without": "%[1]s is required when %[2]s is absent",
	"excluded_with":    "%[1]s cannot be combined with %[2]s",
	"uuid":             "%[1]s must be a valid uuid",
	"url":              "%[1]s must be a valid url",
	"base64rawurl":     "%[1]s must be unpadded base64url",
	"min":              "%[1]s must be at least %[2]s",
	"max":              "%[1]s must be at most %[2]s",
	"oneof":            "%[1]s must be one of [%[2]s]",
}

// Struct checks the validate tags on req and returns a validation_error
// naming the first failing field.
func Struct(req any) error {
	err := structValidator.Struct(req)
	if err == nil {
		return nil
	}
	return dErrors.New(dErrors.CodeValidation, describe(err))
}

func describe(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return "invalid request body"
	}
	fe := fieldErrs[0]
	field := fe.Field()
	if field == "" {
		field = s.ToSnakeCase(fe.StructField())
	}
	// Cross-field params name Go fields; show them the way the client spells them.
	param := fe.Param()
	if strings.HasSuffix(fe.ActualTag(), "_with") || strings.HasSuffix(fe.ActualTag(), "_without") {
		param = s.ToSnakeCase(param)
	}
	if format, ok := tagMessages[fe.ActualTag()]; ok {
		return fmt.Sprintf(format, field, param)
	}
	return field + " is invalid"
}
