package validation

import (
	"strings"

	"github.com/dmitrijs2005/profilekeeper/internal/common"
)

// FieldError is a single rule violation.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Errors is the ordered list of every rule violated by a record.
// It matches common.ErrorValidation.
type Errors []FieldError

func (e Errors) Error() string {
	return strings.Join(e.Messages(), "; ")
}

// Is makes errors.Is(err, common.ErrorValidation) succeed.
func (e Errors) Is(target error) bool {
	return target == common.ErrorValidation
}

func (e Errors) Messages() []string {
	out := make([]string, len(e))
	for i, fe := range e {
		out[i] = fe.Message
	}
	return out
}

// Fields returns the names of the violated fields in order, one per violation.
func (e Errors) Fields() []string {
	out := make([]string, len(e))
	for i, fe := range e {
		out[i] = fe.Field
	}
	return out
}

// Single wraps one violation as Errors.
func Single(field, message string) Errors {
	return Errors{{Field: field, Message: message}}
}

// orNil avoids returning a typed nil inside a non-nil error interface.
func (e Errors) orNil() error {
	if len(e) == 0 {
		return nil
	}
	return e
}
