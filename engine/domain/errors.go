package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for validation and transition failures.
var (
	ErrEmptyTitle             = errors.New("project title is empty")
	ErrEmptyThesis            = errors.New("project thesis is empty")
	ErrNoResearchQuestions    = errors.New("project has no research questions")
	ErrInvalidRigor           = errors.New("unrecognised rigor level")
	ErrSubmissionEmpty        = errors.New("submission has neither text nor upload")
	ErrSubmissionTooShort     = errors.New("submission text too short")
	ErrSubmissionInjection    = errors.New("submission contains suspicious content")
	ErrUnknownProject         = errors.New("unknown project")
	ErrInvalidClaimTransition = errors.New("invalid claim status transition")
	ErrMissingOverride        = errors.New("flagged claim requires a provenance override to be accepted")
)

// ValidationError wraps a sentinel with the field and value that failed.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}

// NotFoundError indicates a requested entity does not exist.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// NewNotFoundError creates a NotFoundError.
func NewNotFoundError(kind, id string) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id}
}

// UnauthorizedError indicates the caller may not perform the requested action.
type UnauthorizedError struct {
	Reason string
}

func (e *UnauthorizedError) Error() string { return "unauthorized: " + e.Reason }

// ServiceBusyError indicates the submission queue is full.
type ServiceBusyError struct {
	Reason string
}

func (e *ServiceBusyError) Error() string { return "service busy: " + e.Reason }

// ServiceUnavailableError indicates a required upstream dependency is down.
type ServiceUnavailableError struct {
	Dependency string
	Cause      error
}

func (e *ServiceUnavailableError) Error() string {
	return fmt.Sprintf("service unavailable: %s: %v", e.Dependency, e.Cause)
}

func (e *ServiceUnavailableError) Unwrap() error { return e.Cause }

// StageFailedError records which stage of the pipeline failed a job and why.
type StageFailedError struct {
	Stage string
	Cause error
}

func (e *StageFailedError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Cause)
}

func (e *StageFailedError) Unwrap() error { return e.Cause }

// Internal wraps an unexpected error that should surface as a 500.
type Internal struct {
	Cause error
}

func (e *Internal) Error() string { return fmt.Sprintf("internal: %v", e.Cause) }

func (e *Internal) Unwrap() error { return e.Cause }
