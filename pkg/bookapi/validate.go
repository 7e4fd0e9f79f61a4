package bookapi

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationErrors maps a JSON field name to the first problem found with it.
type ValidationErrors map[string]string

func (e ValidationErrors) Error() string {
	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+e[field])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their JSON name so errors line up with request bodies.
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks a request struct against its validate tags. It returns nil,
// ValidationErrors, or an unexpected error from the validator itself.
func Validate(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	out := make(ValidationErrors, len(fieldErrs))
	for _, fe := range fieldErrs {
		if _, seen := out[fe.Field()]; !seen {
			out[fe.Field()] = message(fe)
		}
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "min":
		if fe.Kind() == reflect.String {
			if fe.Param() == "1" {
				return "must not be empty"
			}
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return "must be at most " + fe.Param()
	default:
		return "is invalid"
	}
}

var bookIDPattern = regexp.MustCompile(`^\d+$`)

// ParseBookID validates a path parameter as a run of ASCII digits and
// converts it to an id. Values that do not fit in an int64 are rejected.
func ParseBookID(raw string) (int64, error) {
	if !bookIDPattern.MatchString(raw) {
		return 0, ValidationErrors{"id": "Invalid book ID"}
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, ValidationErrors{"id": "Invalid book ID"}
	}
	return id, nil
}
