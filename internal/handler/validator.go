package handler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/iliyamo/movie-reviews/internal/repository"
)

// RequestValidator adapts go-playground/validator to echo.Validator. Field
// errors come back wrapped in repository.ErrInvalidInput.
type RequestValidator struct {
	v *validator.Validate
}

// NewRequestValidator returns a validator that reports fields by their
// param, query or json name.
func NewRequestValidator() *RequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(fieldName)
	return &RequestValidator{v: v}
}

func (rv *RequestValidator) Validate(i interface{}) error {
	err := rv.v.Struct(i)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", repository.ErrInvalidInput, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("missing %s", fe.Field()))
		default:
			msgs = append(msgs, fmt.Sprintf("invalid %s", fe.Field()))
		}
	}
	return fmt.Errorf("%w: %s", repository.ErrInvalidInput, strings.Join(msgs, ", "))
}
