package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Shared validator instance to avoid creating multiple instances
var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// Report JSON field names so failures can be mapped back to request fields
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
}

// Get returns the shared validator instance
func Get() *validator.Validate {
	return validate
}
