package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

var environments = []string{"development", "staging", "production"}

func init() {
	validate = validator.New()

	validate.RegisterValidation("env", validateEnvironment)
	validate.RegisterValidation("timezone", validateTimezone)
	validate.RegisterStructValidation(validateTelemetry, TelemetryConfig{})
	validate.RegisterStructValidation(validateLocalIndex, LocalIndexConfig{})
}

// ConfigError represents a validation error for a specific field.
type ConfigError struct {
	Field   string
	Message string
	Value   interface{}
}

func (e ConfigError) Error() string {
	return fmt.Sprintf("%s: %s (got %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of config errors.
type ValidationErrors []ConfigError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}

	var sb strings.Builder
	sb.WriteString("configuration validation failed:\n")
	for _, err := range e {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// ValidateWithDetails performs validation and returns detailed errors.
func ValidateWithDetails(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			var details ValidationErrors
			for _, fe := range validationErrors {
				details = append(details, ConfigError{
					Field:   fe.Namespace(),
					Message: formatValidationError(fe),
					Value:   fe.Value(),
				})
			}
			return details
		}
		return err
	}
	return nil
}

// formatValidationError converts validator.FieldError to a human-readable message.
func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "required_if":
		return fmt.Sprintf("this field is required when %s", fe.Param())
	case "required_for_sink":
		return fmt.Sprintf("this field is required by the %s sink", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "env":
		return fmt.Sprintf("must be one of [%s]", strings.Join(environments, " "))
	case "timezone":
		return "must be an IANA time zone name such as Europe/Berlin"
	case "weights":
		return "vector_weight and bm25_weight cannot both be zero"
	default:
		return fmt.Sprintf("failed validation: %s", fe.Tag())
	}
}

func validateEnvironment(fl validator.FieldLevel) bool {
	return slices.Contains(environments, fl.Field().String())
}

func validateTimezone(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	if name == "" {
		return true
	}
	_, err := time.LoadLocation(name)
	return err == nil
}

// validateLocalIndex rejects a fusion that would score every document zero.
func validateLocalIndex(sl validator.StructLevel) {
	c := sl.Current().Interface().(LocalIndexConfig)
	if c.VectorWeight == 0 && c.BM25Weight == 0 {
		sl.ReportError(c.VectorWeight, "VectorWeight", "VectorWeight", "weights", "")
	}
}

// validateTelemetry checks that every enabled sink has its connection settings.
func validateTelemetry(sl validator.StructLevel) {
	t := sl.Current().Interface().(TelemetryConfig)
	for _, sink := range t.Sinks {
		switch sink {
		case "redis":
			if strings.TrimSpace(t.Redis.Address) == "" {
				sl.ReportError(t.Redis.Address, "Redis.Address", "Address", "required_for_sink", "redis")
			}
			if strings.TrimSpace(t.Redis.Stream) == "" {
				sl.ReportError(t.Redis.Stream, "Redis.Stream", "Stream", "required_for_sink", "redis")
			}
		case "kafka":
			if len(t.Kafka.Brokers) == 0 {
				sl.ReportError(t.Kafka.Brokers, "Kafka.Brokers", "Brokers", "required_for_sink", "kafka")
			}
			if strings.TrimSpace(t.Kafka.Topic) == "" {
				sl.ReportError(t.Kafka.Topic, "Kafka.Topic", "Topic", "required_for_sink", "kafka")
			}
		case "http":
			if strings.TrimSpace(t.Endpoint) == "" {
				sl.ReportError(t.Endpoint, "Endpoint", "Endpoint", "required_for_sink", "http")
			}
		}
	}
}
