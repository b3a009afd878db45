// Package validate checks request and response values against the
// `validate` struct tags they carry and reports violations by JSON path
package validate

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jzx17/crmclient/pkg/types"
)

// Validator wraps a validator/v10 instance configured for API payloads
type Validator struct {
	validate *validator.Validate
}

// std is the package-level validator used by Struct and Check
var std = New()

// New creates a validator that names fields after their json tags and
// knows the url_format rule
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonName)

	// url_format validates URL structure
	_ = v.RegisterValidation("url_format", func(fl validator.FieldLevel) bool {
		u, err := url.Parse(fl.Field().String())
		return err == nil && u.Scheme != "" && u.Host != ""
	})

	return &Validator{validate: v}
}

// RegisterRule adds a custom rule usable from `validate` tags
func (v *Validator) RegisterRule(tag string, fn validator.Func) error {
	if err := v.validate.RegisterValidation(tag, fn); err != nil {
		return fmt.Errorf("failed to register rule '%s': %w", tag, err)
	}
	return nil
}

// Struct validates v and returns every violation; an empty result means valid.
// Non-struct values are reported as a single violation.
func (v *Validator) Struct(value interface{}) []types.Violation {
	err := v.validate.Struct(value)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []types.Violation{{Message: err.Error(), Value: value}}
	}

	violations := make([]types.Violation, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		violations = append(violations, types.Violation{
			Path:    fieldPath(fe.Namespace()),
			Message: message(fe),
			Value:   fe.Value(),
		})
	}
	return violations
}

// Check validates value and returns a *types.ValidationError on violations
func (v *Validator) Check(value interface{}) error {
	if violations := v.Struct(value); len(violations) > 0 {
		return &types.ValidationError{Violations: violations}
	}
	return nil
}

// Struct validates value with the package-level validator
func Struct(value interface{}) []types.Violation {
	return std.Struct(value)
}

// Check validates value with the package-level validator
func Check(value interface{}) error {
	return std.Check(value)
}

// jsonName uses the json tag as field name, "-" hides the field
func jsonName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	if name == "" {
		return fld.Name
	}
	return name
}

// fieldPath drops the root type name from a validator namespace:
// "Contact.address.city" becomes "address.city"
func fieldPath(namespace string) string {
	_, rest, found := strings.Cut(namespace, ".")
	if !found {
		return namespace
	}
	return rest
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_without", "required_with":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "url", "url_format":
		return "must be a valid URL"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "dive":
		return "contains an invalid element"
	default:
		if fe.Param() != "" {
			return fmt.Sprintf("failed rule %s=%s", fe.Tag(), fe.Param())
		}
		return "failed rule " + fe.Tag()
	}
}
