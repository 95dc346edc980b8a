package scoped

import (
	"errors"
	"fmt"
	"reflect"
	"runtime/debug"
)

var (
	// ErrReadOnly is returned when updating a channel whose nearest binding
	// carries no mutator, or when the channel is not bound at all.
	ErrReadOnly = errors.New("scoped: binding is read-only")

	// ErrClosed is returned when a closed traversal is used to open a frame.
	ErrClosed = errors.New("scoped: traversal is closed")
)

// ConsistencyError reports a broken bind/unbind pairing. It is raised with
// panic: it always means a defect in scope nesting, never a recoverable state.
type ConsistencyError struct {
	Channel    string
	Op         string
	Reason     string
	StackTrace []byte
}

func (e *ConsistencyError) Error() string {
	if e.Channel != "" {
		return fmt.Sprintf("scoped: inconsistent %s of channel %q: %s", e.Op, e.Channel, e.Reason)
	}
	return fmt.Sprintf("scoped: inconsistent %s: %s", e.Op, e.Reason)
}

func newConsistencyError(channel, op, reason string) *ConsistencyError {
	return &ConsistencyError{
		Channel:    channel,
		Op:         op,
		Reason:     reason,
		StackTrace: debug.Stack(),
	}
}

// TypeMismatchError reports a value whose dynamic type does not match the
// declared type of a channel. Only the type-erased API can produce it.
type TypeMismatchError struct {
	Channel  string
	Expected reflect.Type
	Got      reflect.Type
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("scoped: channel %q expects %v, got %v", e.Channel, e.Expected, e.Got)
}

// TeardownError wraps a failure of a callback registered with OnTeardown.
type TeardownError struct {
	Node string
	Name string
	Err  error
}

func (e *TeardownError) Error() string {
	return fmt.Sprintf("teardown of %s (%s): %v", e.Name, e.Node, e.Err)
}

func (e *TeardownError) Unwrap() error {
	return e.Err
}

// SafeTypeAssertion performs a type assertion and reports a mismatch as an
// error instead of panicking. A nil value yields the zero T.
func SafeTypeAssertion[T any](value any) (T, error) {
	if value == nil {
		var zero T
		return zero, nil
	}

	typed, ok := value.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("type assertion error: expected %T, got %T (value: %v)", zero, value, value)
	}

	return typed, nil
}
