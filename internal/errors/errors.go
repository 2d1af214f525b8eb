package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// AppError is the common interface for every typed error the application returns.
// Handlers use Category and HTTPStatus to build the response body.
type AppError interface {
	Error() string
	Category() string
	HTTPStatus() int
	Unwrap() error
}

// --- Domain errors ---

// ValidationError represents invalid input data.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string    { return fmt.Sprintf("validation error: %s", e.Msg) }
func (e *ValidationError) Category() string { return "VALIDATION_ERROR" }
func (e *ValidationError) HTTPStatus() int  { return http.StatusBadRequest }
func (e *ValidationError) Unwrap() error    { return nil }

// NewValidationError creates a new validation error.
func NewValidationError(msg string) AppError {
	return &ValidationError{Msg: msg}
}

// NotFoundError represents a missing resource (unknown product, service, node...).
type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string    { return fmt.Sprintf("resource not found: %s", e.Msg) }
func (e *NotFoundError) Category() string { return "NOT_FOUND" }
func (e *NotFoundError) HTTPStatus() int  { return http.StatusNotFound }
func (e *NotFoundError) Unwrap() error    { return nil }

// NewNotFoundError creates a new not-found error.
func NewNotFoundError(msg string) AppError {
	return &NotFoundError{Msg: msg}
}

// ConflictError represents a state conflict (duplicate key, concurrent change).
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string    { return fmt.Sprintf("state conflict: %s", e.Msg) }
func (e *ConflictError) Category() string { return "CONFLICT" }
func (e *ConflictError) HTTPStatus() int  { return http.StatusConflict }
func (e *ConflictError) Unwrap() error    { return nil }

// NewConflictError creates a new conflict error.
func NewConflictError(msg string) AppError {
	return &ConflictError{Msg: msg}
}

// UnauthorizedError represents missing or invalid credentials.
type UnauthorizedError struct {
	Msg string
}

func (e *UnauthorizedError) Error() string    { return fmt.Sprintf("unauthorized: %s", e.Msg) }
func (e *UnauthorizedError) Category() string { return "UNAUTHORIZED" }
func (e *UnauthorizedError) HTTPStatus() int  { return http.StatusUnauthorized }
func (e *UnauthorizedError) Unwrap() error    { return nil }

// NewUnauthorizedError creates a new unauthorized error.
func NewUnauthorizedError(msg string) AppError {
	return &UnauthorizedError{Msg: msg}
}

// ForbiddenError represents an authenticated caller lacking the required role.
type ForbiddenError struct {
	Msg string
}

func (e *ForbiddenError) Error() string    { return fmt.Sprintf("forbidden: %s", e.Msg) }
func (e *ForbiddenError) Category() string { return "FORBIDDEN" }
func (e *ForbiddenError) HTTPStatus() int  { return http.StatusForbidden }
func (e *ForbiddenError) Unwrap() error    { return nil }

// NewForbiddenError creates a new forbidden error.
func NewForbiddenError(msg string) AppError {
	return &ForbiddenError{Msg: msg}
}

// InvalidAssignmentError is a data-integrity violation on a service assignment:
// a variant diverging from its parent's level/node, or an override targeting a
// parent service that has variants. It is always raised before persistence.
type InvalidAssignmentError struct {
	Msg string
}

func (e *InvalidAssignmentError) Error() string    { return fmt.Sprintf("invalid assignment: %s", e.Msg) }
func (e *InvalidAssignmentError) Category() string { return "INVALID_ASSIGNMENT" }
func (e *InvalidAssignmentError) HTTPStatus() int  { return http.StatusUnprocessableEntity }
func (e *InvalidAssignmentError) Unwrap() error    { return nil }

// NewInvalidAssignmentError creates a new invalid assignment error.
func NewInvalidAssignmentError(msg string) AppError {
	return &InvalidAssignmentError{Msg: msg}
}

// DanglingAncestorError reports a catalog node whose parent reference does not resolve.
type DanglingAncestorError struct {
	NodeID   string
	ParentID string
}

func (e *DanglingAncestorError) Error() string {
	return fmt.Sprintf("dangling ancestor: node %s references missing parent %s", e.NodeID, e.ParentID)
}
func (e *DanglingAncestorError) Category() string { return "DANGLING_ANCESTOR" }
func (e *DanglingAncestorError) HTTPStatus() int  { return http.StatusConflict }
func (e *DanglingAncestorError) Unwrap() error    { return nil }

// NewDanglingAncestorError creates a new dangling ancestor error.
func NewDanglingAncestorError(nodeID, parentID string) AppError {
	return &DanglingAncestorError{NodeID: nodeID, ParentID: parentID}
}

// --- Infrastructure errors ---

// InternalError represents unexpected failures in the service or repository layers.
type InternalError struct {
	Msg string
	Err error
}

func (e *InternalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("internal error: %s: %v", e.Msg, e.Err)
	}
	return fmt.Sprintf("internal error: %s", e.Msg)
}
func (e *InternalError) Category() string { return "INTERNAL_ERROR" }
func (e *InternalError) HTTPStatus() int  { return http.StatusInternalServerError }
func (e *InternalError) Unwrap() error    { return e.Err }

// NewInternalError creates a server-side error wrapping the underlying cause.
func NewInternalError(msg string, err error) AppError {
	return &InternalError{Msg: msg, Err: err}
}

// NewDBError is a shortcut for an InternalError raised by the database layer.
func NewDBError(msg string, err error) AppError {
	return NewInternalError(fmt.Sprintf("%s (DB)", msg), err)
}

// --- Handler helpers ---

// IsNotFound reports whether err (or anything it wraps) is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return stderrors.As(err, &nf)
}

// MapToHTTPStatus translates an error into HTTP status, category and message.
// Untyped errors are reported as a generic internal failure.
func MapToHTTPStatus(err error) (int, string, string) {
	var appErr AppError
	if stderrors.As(err, &appErr) {
		if appErr.HTTPStatus() >= http.StatusInternalServerError {
			// Never leak driver details to the client.
			return appErr.HTTPStatus(), appErr.Category(), "an unexpected error occurred"
		}
		return appErr.HTTPStatus(), appErr.Category(), appErr.Error()
	}
	return http.StatusInternalServerError, "UNKNOWN_ERROR", "an unexpected error occurred"
}
