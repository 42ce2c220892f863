package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ValidationError represents a single validation error with a
// user-friendly message.
type ValidationError struct {
	Field   string      // Field path (e.g., "altdisk.disk_size_policy")
	Tag     string      // Validation tag that failed (e.g., "required", "oneof")
	Value   interface{} // Actual value that failed validation
	Message string      // User-friendly error message
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return e.Message
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []*ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("config validation failed:\n")
	for _, err := range e {
		sb.WriteString(fmt.Sprintf("  - %s: %s\n", err.Field, err.Message))
	}
	return sb.String()
}

// validate is the package-level validator instance.
var validate = validator.New()

// TimeLimitLayout is the accepted deadline format.
const TimeLimitLayout = "01/02/2006 15:04"

// Validate validates the configuration and returns user-friendly error
// messages.
func Validate(cfg *Config) error {
	var validationErrors ValidationErrors

	if err := validate.Struct(cfg); err != nil {
		if fieldErrors, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range fieldErrors {
				validationErrors = append(validationErrors, &ValidationError{
					Field:   formatFieldName(fe.Namespace()),
					Tag:     fe.Tag(),
					Value:   fe.Value(),
					Message: translateError(fe),
				})
			}
		}
	}

	if errs := validateTimeLimit(cfg); len(errs) > 0 {
		validationErrors = append(validationErrors, errs...)
	}
	if errs := validateTimezoneConfig(cfg); len(errs) > 0 {
		validationErrors = append(validationErrors, errs...)
	}
	if errs := validateHMCCredentials(cfg); len(errs) > 0 {
		validationErrors = append(validationErrors, errs...)
	}

	if len(validationErrors) > 0 {
		return validationErrors
	}
	return nil
}

// validateTimeLimit checks the optional altdisk deadline format.
func validateTimeLimit(cfg *Config) ValidationErrors {
	var errors ValidationErrors

	if cfg.Altdisk.TimeLimit != "" {
		if _, err := time.ParseInLocation(TimeLimitLayout, cfg.Altdisk.TimeLimit, time.Local); err != nil {
			errors = append(errors, &ValidationError{
				Field:   "altdisk.time_limit",
				Tag:     "time_limit",
				Value:   cfg.Altdisk.TimeLimit,
				Message: fmt.Sprintf("time limit %q must match mm/dd/yyyy hh:mm", cfg.Altdisk.TimeLimit),
			})
		}
	}
	return errors
}

// validateTimezoneConfig validates the timezone configuration.
func validateTimezoneConfig(cfg *Config) ValidationErrors {
	var errors ValidationErrors

	if cfg.Report.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Report.Timezone); err != nil {
			errors = append(errors, &ValidationError{
				Field:   "report.timezone",
				Tag:     "timezone",
				Value:   cfg.Report.Timezone,
				Message: fmt.Sprintf("invalid timezone: %s", cfg.Report.Timezone),
			})
		}
	}
	return errors
}

// validateHMCCredentials rejects ambiguous credential sources.
func validateHMCCredentials(cfg *Config) ValidationErrors {
	var errors ValidationErrors

	if cfg.HMC.Password != "" && cfg.HMC.PasswordFile != "" {
		errors = append(errors, &ValidationError{
			Field:   "hmc.password",
			Tag:     "credential_source",
			Value:   "",
			Message: "password and password_file are mutually exclusive",
		})
	}
	return errors
}

// formatFieldName converts the validator field namespace to a
// user-friendly format.
// Example: "Config.Altdisk.DiskSizePolicy" -> "altdisk.disksizepolicy"
func formatFieldName(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:] // Remove "Config"
	}
	for i, part := range parts {
		parts[i] = strings.ToLower(part)
	}
	return strings.Join(parts, ".")
}

// translateError converts a validator.FieldError to a user-friendly message.
func translateError(fe validator.FieldError) string {
	field := formatFieldName(fe.Namespace())

	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "gte":
		return fmt.Sprintf("value must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("value must be less than or equal to %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("value must be one of: %s", fe.Param())
	default:
		return fmt.Sprintf("validation failed on '%s' tag for field '%s'", fe.Tag(), field)
	}
}
