package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError describes one failed field rule
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
	Rule    string      `json:"rule"`
}

func (ve ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ve.Field, ve.Message)
}

// ValidationErrors is returned by every validation entry point
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	messages := make([]string, 0, len(ve))
	for _, e := range ve {
		messages = append(messages, e.Error())
	}
	return "validation failed: " + strings.Join(messages, "; ")
}

// Validator wraps go-playground validation with the service's custom rules
type Validator struct {
	business *BusinessValidator
}

// New creates a validator with every custom rule registered
func New() *Validator {
	return &Validator{business: NewBusinessValidator()}
}

// Validate runs struct tag validation and returns ValidationErrors or nil
func (v *Validator) Validate(s interface{}) error {
	if errs := v.business.Validate(s); len(errs) > 0 {
		return errs
	}
	return nil
}

// GetBusinessValidator exposes the domain rule checks
func (v *Validator) GetBusinessValidator() *BusinessValidator {
	return v.business
}

// ToValidationErrors converts go-playground errors into ValidationErrors
func ToValidationErrors(err error) ValidationErrors {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return ValidationErrors{{Field: "request", Message: err.Error(), Rule: "invalid"}}
	}

	result := make(ValidationErrors, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		result = append(result, ValidationError{
			Field:   fe.Field(),
			Message: errorMessage(fe),
			Value:   fe.Value(),
			Rule:    fe.Tag(),
		})
	}
	return result
}

// jsonFieldName reports fields by their json name
func jsonFieldName(field reflect.StructField) string {
	name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return field.Name
	}
	return name
}

func errorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s items", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at most %s items", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "class_level":
		return "must be a class level such as JSS1, SS2 or Primary 3"
	case "branch_code":
		return "must be 2 or 3 uppercase letters"
	case "role":
		return "must be one of: student, teacher, branch_admin, super_admin"
	case "payment_status":
		return "must be one of: successful, failed, refunded, cancelled"
	case "option_letter":
		return "must be a single option letter"
	default:
		return fmt.Sprintf("failed on %s", fe.Tag())
	}
}
