package assembler

import (
	"errors"
	"fmt"

	"github.com/lifeos/ctxpack/pkg/tokens"
)

// Role is the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the prompt handed to the model.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Tokens returns the estimated token count of the content.
func (m Message) Tokens() int {
	return tokens.Estimate(m.Content)
}

var (
	// ErrMissingField is matched by FieldError for absent required fields.
	ErrMissingField = errors.New("missing required field")
	// ErrInvalidField is matched by FieldError for malformed fields.
	ErrInvalidField = errors.New("invalid field")
)

// FieldError is a request-shape validation failure. It is the only error
// BuildMessages returns.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.Field)
}

func (e *FieldError) Unwrap() error { return e.Err }
