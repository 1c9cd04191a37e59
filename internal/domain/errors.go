package domain

import "fmt"

// ValidationError reports malformed input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ConflictError is returned when an admin already holds an unfinished task.
type ConflictError struct {
	AdminID string
	TaskID  string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("admin %s already has an unfinished task %s", e.AdminID, e.TaskID)
}

type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// InvalidStateError is returned when the task status forbids the operation.
type InvalidStateError struct {
	TaskID  string
	Status  TaskStatus
	Op      string
	Message string
}

func (e *InvalidStateError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("cannot %s task %s: %s", e.Op, e.TaskID, e.Message)
	}
	return fmt.Sprintf("cannot %s task %s in status %s", e.Op, e.TaskID, e.Status)
}

// RepositoryError wraps a collaborator I/O failure.
type RepositoryError struct {
	Op  string
	ID  string
	Err error
}

func (e *RepositoryError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.ID, e.Err)
}

func (e *RepositoryError) Unwrap() error { return e.Err }
