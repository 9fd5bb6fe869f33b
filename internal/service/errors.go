package service

import (
	"errors"
	"fmt"

	"delivery-metrics-service/internal/validation"
)

var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrStoreUnavailable = errors.New("record store unavailable")
)

// ParamError reports parameters that failed their declared constraint.
type ParamError struct {
	Violations []validation.Violation
}

func NewParamError(field, constraint string) *ParamError {
	return &ParamError{Violations: []validation.Violation{{Field: field, Constraint: constraint}}}
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidParameter, validation.Errors(e.Violations).Error())
}

func (e *ParamError) Is(target error) bool {
	return target == ErrInvalidParameter
}

// StoreError wraps a failed store call. The wrapped detail is meant for logs,
// not for callers of the API.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrStoreUnavailable, e.Op, e.Err)
}

func (e *StoreError) Is(target error) bool {
	return target == ErrStoreUnavailable
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// ParamErrorFrom converts a validation failure into a *ParamError.
func ParamErrorFrom(err error) *ParamError {
	var violations validation.Errors
	if errors.As(err, &violations) {
		return &ParamError{Violations: violations}
	}
	return &ParamError{Violations: []validation.Violation{{Field: "request", Constraint: err.Error()}}}
}
