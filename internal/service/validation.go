package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var inputValidator = newInputValidator()

func newInputValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	if err := v.RegisterValidation("maxwords", validateMaxWords); err != nil {
		panic(err)
	}
	return v
}

// validateMaxWords bounds the number of whitespace-separated words.
func validateMaxWords(fl validator.FieldLevel) bool {
	var limit int
	if _, err := fmt.Sscan(fl.Param(), &limit); err != nil {
		return false
	}
	return len(strings.Fields(fl.Field().String())) <= limit
}

// validateInput runs struct tag validation and folds failures into a
// ValidationError keyed by json field name.
func validateInput(in any) error {
	err := inputValidator.Struct(in)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	ve := &ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		ve.Fields[fe.Field()] = describeFieldError(fe)
	}
	return ve
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "maxwords":
		return "must be at most " + fe.Param() + " words"
	case "eqfield":
		return "must match " + strings.ToLower(fe.Param())
	default:
		return "failed " + fe.Tag() + " validation"
	}
}
