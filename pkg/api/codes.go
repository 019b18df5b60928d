package api

import (
	"errors"
	"fmt"
)

// Error codes returned in the body of failed HTTP requests.
const (
	CodeInvalidRequest        = "invalid_request"
	CodeMissingRequiredOption = "missing_required_option"
	CodeIllegalState          = "illegal_state"
	CodeProviderError         = "provider_error"
	CodeTimeout               = "timeout"
	CodeInternal              = "internal_error"
)

// ErrorResponse is the body returned when an HTTP request fails.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Err converts the response back into an error wrapping the sentinel matching its code.
func (r ErrorResponse) Err() error {
	switch r.Error {
	case CodeInvalidRequest:
		return fmt.Errorf("%w: %s", ErrInvalidRequest, r.Message)
	case CodeMissingRequiredOption:
		return fmt.Errorf("%w: %s", ErrMissingRequiredOption, r.Message)
	case CodeIllegalState:
		return fmt.Errorf("%w: %s", ErrIllegalState, r.Message)
	case CodeProviderError:
		return &ProviderError{Err: errors.New(r.Message)}
	default:
		return fmt.Errorf("%s: %s", r.Error, r.Message)
	}
}
