// Package result models the outcome of an operation that can fail for an expected,
// domain-level reason. Infrastructure faults travel separately as plain errors.
package result

import "errors"

// Nothing is the value type of results that carry no payload
type Nothing struct{}

// Result is either a success carrying a value or a failure carrying a message
type Result[T any] struct {
	value   T
	failed  bool
	kind    error
	message string
}

// Success wraps a value in a successful result
func Success[T any](value T) Result[T] {
	return Result[T]{value: value}
}

// Ok returns a successful result without a value
func Ok() Result[Nothing] {
	return Result[Nothing]{}
}

// Failure returns a failed result. kind classifies the failure (for example domain.ErrNotFound)
// and message is the text shown to the caller.
func Failure[T any](kind error, message string) Result[T] {
	return Result[T]{failed: true, kind: kind, message: message}
}

// Cast re-types a failed result so it can be returned from an operation with another value type
func Cast[T, U any](r Result[U]) Result[T] {
	return Result[T]{failed: r.failed, kind: r.kind, message: r.message}
}

// IsSuccess reports whether the operation succeeded
func (r Result[T]) IsSuccess() bool {
	return !r.failed
}

// IsFailure reports whether the operation failed
func (r Result[T]) IsFailure() bool {
	return r.failed
}

// Value returns the success value. It is the zero value for failures.
func (r Result[T]) Value() T {
	return r.value
}

// Message returns the failure message, or "" on success
func (r Result[T]) Message() string {
	return r.message
}

// Kind returns the failure classification, or nil on success
func (r Result[T]) Kind() error {
	return r.kind
}

// FailedWith reports whether the result is a failure of the given kind
func (r Result[T]) FailedWith(kind error) bool {
	return r.failed && r.kind != nil && errors.Is(r.kind, kind)
}
