package core

import (
	"errors"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"floodwatch/internal/types"
)

// Validator wraps go-playground/validator with the API's custom tags and
// maps failures to validation AppErrors.
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// NewValidator registers the custom tags:
//
//	userid  non-blank identifier without path separators or whitespace
func NewValidator(logger *slog.Logger) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("userid", validateUserID)
	return &Validator{validate: v, logger: logger}
}

func validateUserID(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if strings.TrimSpace(s) == "" || len(s) > 128 {
		return false
	}
	return !strings.ContainsAny(s, "/ \t\r\n")
}

// ValidateStruct checks s and returns a validation AppError listing every
// failing field, or nil.
func (v *Validator) ValidateStruct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return types.NewAppError(types.ErrCodeValidationInvalidBody, "request could not be validated", err)
	}

	fields := make(map[string]any, len(fieldErrs))
	code := types.ErrCodeValidationInvalidBody
	for _, fe := range fieldErrs {
		fields[fieldPath(fe)] = fe.Tag()
		switch fe.Tag() {
		case "required":
			code = types.ErrCodeValidationMissingField
		case "latitude", "longitude":
			if code != types.ErrCodeValidationMissingField {
				code = types.ErrCodeValidationInvalidCoords
			}
		}
	}
	return types.NewAppError(code, "request failed validation", err).WithDetails(map[string]any{"fields": fields})
}

// ValidateVar checks a single value against tag.
func (v *Validator) ValidateVar(field any, tag string) error {
	return v.validate.Var(field, tag)
}

// fieldPath drops the root struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}
