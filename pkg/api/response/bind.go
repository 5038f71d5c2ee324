package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// DefaultMaxBodyBytes bounds request bodies when no limit is configured.
const DefaultMaxBodyBytes int64 = 1 << 20

var validate = validator.New()

func init() {
	// Report JSON field names instead of Go field names.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// BindError is a request body that could not be decoded or validated.
type BindError struct {
	Status  int
	Code    string
	Message string
	Details map[string]interface{}
}

func (e *BindError) Error() string {
	return e.Message
}

// BindJSON decodes the request body into v and validates its struct tags.
// Bodies larger than maxBytes are rejected; a non-positive maxBytes uses
// DefaultMaxBodyBytes.
func BindJSON(w http.ResponseWriter, r *http.Request, v interface{}, maxBytes int64) error {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}
	body := http.MaxBytesReader(w, r.Body, maxBytes)

	if err := json.NewDecoder(body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return &BindError{
				Status:  http.StatusRequestEntityTooLarge,
				Code:    ErrCodeRequestTooLarge,
				Message: fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit),
			}
		case errors.Is(err, io.EOF):
			return &BindError{Status: http.StatusBadRequest, Code: ErrCodeBadRequest, Message: "Request body is required"}
		default:
			return &BindError{Status: http.StatusBadRequest, Code: ErrCodeBadRequest, Message: "Invalid request body"}
		}
	}

	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return &BindError{Status: http.StatusBadRequest, Code: ErrCodeBadRequest, Message: err.Error()}
		}
		details := make(map[string]interface{}, len(verrs))
		for _, fe := range verrs {
			details[fe.Field()] = describe(fe)
		}
		return &BindError{
			Status:  http.StatusBadRequest,
			Code:    ErrCodeValidationFailed,
			Message: "Request validation failed",
			Details: details,
		}
	}
	return nil
}

// MissingField builds the error for an absent required field.
func MissingField(field string) *BindError {
	return &BindError{
		Status:  http.StatusBadRequest,
		Code:    ErrCodeValidationFailed,
		Message: fmt.Sprintf("missing required field: %s", field),
		Details: map[string]interface{}{field: "this field is required"},
	}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	default:
		return fmt.Sprintf("failed validation: %s", fe.Tag())
	}
}
