/*
Package native provides the raw object heap the safety layer is built upon.

Everything here follows the conventions of a foreign allocator: objects are
reached only through handles, constructors report failure by returning the
null handle and reference-count primitives trust their caller. Arena is the
in-process implementation used by the rest of the module.
*/
package native

import (
	"errors"

	"github.com/nspcc-dev/refheap/pkg/heap/object"
)

// Allocator is the set of primitives exposed by the native heap. None of them
// are safe for concurrent use.
type Allocator interface {
	// Init brings the allocator up, it can be done only once.
	Init() error
	// Finalize shuts the allocator down, all handles become invalid.
	Finalize() error

	IncRef(h object.Handle)
	DecRef(h object.Handle)
	RefCount(h object.Handle) int

	// MakeLong returns a new LongT object with a single reference or
	// object.Null if it can't be allocated.
	MakeLong(v int64) object.Handle
	// MakeDict returns a new empty DictT object with a single reference or
	// object.Null if it can't be allocated.
	MakeDict() object.Handle

	// Singleton accessors, they don't change reference counts.
	None() object.Handle
	True() object.Handle
	False() object.Handle
	NotImplemented() object.Handle

	Classify(h object.Handle) object.Type
	Is(a, b object.Handle) bool

	// Lookup returns a copy of the record for the given handle.
	Lookup(h object.Handle) (object.Record, bool)
	// Live returns all live handles in ascending order.
	Live() []object.Handle
}

// Various allocator errors.
var (
	ErrAlreadyInitialized = errors.New("allocator is already initialized")
	ErrNotInitialized     = errors.New("allocator is not initialized")
	ErrFinalized          = errors.New("allocator is finalized")
	// ErrDeadHandle is used to panic when raw primitives are given a handle
	// that doesn't reference a live object.
	ErrDeadHandle = errors.New("dead handle")
	// ErrImmortal is used to panic when the last reference to a seeded object
	// (constant or type object) is dropped.
	ErrImmortal = errors.New("can't reclaim immortal object")
)
