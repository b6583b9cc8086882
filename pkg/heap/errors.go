package heap

import (
	"errors"
	"fmt"

	"github.com/nspcc-dev/refheap/pkg/heap/object"
)

// Various heap errors.
var (
	// ErrAllocation is returned when the native heap can't allocate a new
	// object.
	ErrAllocation = errors.New("allocation failed")
	// ErrPrecondition is the base error of all panics caused by API misuse:
	// dead or null handles, unbalanced reference counting, calls after
	// Finalize.
	ErrPrecondition = errors.New("precondition violated")
	// ErrFinalized is wrapped into precondition violations caused by
	// using a finalized State.
	ErrFinalized = errors.New("heap is finalized")
	// ErrNotLong is returned when a long value is requested from an object
	// of another type.
	ErrNotLong = errors.New("object is not a long")
)

// violation panics with an error wrapping ErrPrecondition.
func violation(op string, h object.Handle, format string, args ...any) {
	panic(fmt.Errorf("%w: %s(%s): %s", ErrPrecondition, op, h, fmt.Sprintf(format, args...)))
}
