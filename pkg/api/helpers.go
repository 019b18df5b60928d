package api

import (
	"fmt"
	"github.com/go-playground/validator/v10"
	"net/url"
)

var validate = validator.New()

// validateURL validates if a raw URL string is well-formed or not.
func validateURL(raw string) error {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme == "" && u.Host == "" {
		return ErrInvalidURL
	}
	return nil
}

// validateStruct runs the struct tag validations of s.
func validateStruct(s interface{}) error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}
