package integrations

import "errors"

// Error covers credential, state and token-exchange failures. The message is
// operator-facing and is what gets recorded into last_error.
type Error struct {
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func NewError(message string) *Error {
	return &Error{Message: message}
}

func IsIntegrationError(err error) bool {
	var integrationErr *Error
	return errors.As(err, &integrationErr)
}
