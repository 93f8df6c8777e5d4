package inbox

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyBody          = errors.New("message body is empty")
	ErrSelfMessage        = errors.New("cannot message yourself")
	ErrMissingParticipant = errors.New("participant is required")
	ErrMissingItemRef     = errors.New("item reference is required")
	// ErrStopped is returned by Reconciler calls after its loop has exited.
	ErrStopped = errors.New("inbox stopped")
)

// ValidationError rejects a send before it reaches the engine.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// TransportError reports a failed call to the message source.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// SendError is returned when a send was rolled back. Draft holds the text to retry with.
type SendError struct {
	Draft Draft
	Err   error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send to %s failed: %v", e.Draft.RecipientID, e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}

func validationError(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}
