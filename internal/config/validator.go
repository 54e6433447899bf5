package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report config keys (remote.base_url) rather than Go field names
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("koanf"), ",")
		return name
	})
	return v
}

// Validate checks every section of the configuration
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}
	if err := c.Log.Options().Validate(); err != nil {
		return fmt.Errorf("invalid config: log: %w", err)
	}
	return nil
}

func formatValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("validate config: %w", err)
	}

	msgs := make([]string, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		// Namespace is "Config.remote.base_url"; drop the root type
		_, key, _ := strings.Cut(fieldErr.Namespace(), ".")
		msg := fmt.Sprintf("%s: failed %q", key, fieldErr.Tag())
		if fieldErr.Param() != "" {
			msg = fmt.Sprintf("%s: failed %q (%s)", key, fieldErr.Tag(), fieldErr.Param())
		}
		msgs = append(msgs, fmt.Sprintf("%s, got %v", msg, fieldErr.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}
