package auth

import (
	"errors"
	"fmt"
)

// ErrLoginFailed is returned when the streaming-service account marker does
// not appear after submitting credentials.
var ErrLoginFailed = errors.New("login failed")

// StepError records the state a run was in when a fatal error occurred.
type StepError struct {
	State State
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.State, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// PanicError wraps a panic recovered inside a run.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("unexpected panic: %v", e.Value)
}
