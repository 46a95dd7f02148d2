// Package fetch models one asynchronous resource load as a tri-state value.
package fetch

import (
	"context"
	"errors"
	"fmt"
)

// UnknownError is shown when a failure carries no usable message.
const UnknownError = "An unknown error occurred"

// Status is the phase of a single fetch.
type Status int

const (
	Pending Status = iota
	Success
	Failed
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Success:
		return "success"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// State holds exactly one of: pending, success with Data, failed with Err.
// The zero value is pending.
type State[T any] struct {
	Status Status
	Data   T
	Err    string
}

// Succeeded returns a success state carrying v.
func Succeeded[T any](v T) State[T] {
	return State[T]{Status: Success, Data: v}
}

// FailedWith returns a failed state with msg, substituting UnknownError for "".
func FailedWith[T any](msg string) State[T] {
	if msg == "" {
		msg = UnknownError
	}
	return State[T]{Status: Failed, Err: msg}
}

func (s State[T]) Pending() bool { return s.Status == Pending }
func (s State[T]) Failed() bool  { return s.Status == Failed }
func (s State[T]) Ok() bool      { return s.Status == Success }

// Message extracts a user-facing message from err.
func Message(err error) string {
	if err == nil {
		return UnknownError
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return UnknownError
}

// ErrPanic wraps a recovered non-error panic value.
var ErrPanic = errors.New("fetch panicked")

// Run executes fn and hands its outcome to settle. settle is called exactly
// once, even when fn panics. A panic carrying an error keeps that error's
// message; any other panic value settles with UnknownError.
func Run[T any](ctx context.Context, fn func(context.Context) (T, error), settle func(State[T], error)) {
	var (
		out T
		err error
	)
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				settle(FailedWith[T](Message(e)), e)
				return
			}
			settle(FailedWith[T](UnknownError), fmt.Errorf("%w: %v", ErrPanic, r))
			return
		}
		if err != nil {
			settle(FailedWith[T](Message(err)), err)
			return
		}
		settle(Succeeded(out), nil)
	}()

	out, err = fn(ctx)
}
