package validator

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	ErrRequired       = "is required"
	ErrMinLength      = "must contain at least %s items"
	ErrMaxLength      = "must contain at most %s items"
	ErrGreaterThan    = "must be greater than %s"
	ErrUnique         = "must not contain duplicates"
	ErrHoldKind       = "must be either 'temporary' or 'processing_payment'"
	ErrDefaultInvalid = "is invalid"
)

func NewValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())

	validate.RegisterValidation("hold_kind", validateHoldKind)

	// Report field names as they appear on the wire, not as Go identifiers.
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	return validate
}

func validateHoldKind(fl validator.FieldLevel) bool {
	kind := fl.Field().String()

	return kind == "temporary" || kind == "processing_payment"
}

// ValidationMessage converts validator errors into readable messages
func ValidationMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return ErrRequired
	case "min":
		return fmt.Sprintf(ErrMinLength, err.Param())
	case "max":
		return fmt.Sprintf(ErrMaxLength, err.Param())
	case "gt":
		return fmt.Sprintf(ErrGreaterThan, err.Param())
	case "unique":
		return ErrUnique
	case "hold_kind":
		return ErrHoldKind
	default:
		return ErrDefaultInvalid
	}
}
