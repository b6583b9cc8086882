package native

import (
	"fmt"
	"slices"

	"github.com/nspcc-dev/refheap/pkg/heap/object"
)

type arenaState byte

const (
	stateNew arenaState = iota
	stateRunning
	stateFinalized
)

// Type object names seeded into every arena.
const (
	TypeName           = "type"
	NoneTypeName       = "NoneType"
	BoolTypeName       = "bool"
	LongTypeName       = "int"
	DictTypeName       = "dict"
	NotImplementedName = "NotImplementedType"
)

// Stats contains arena counters.
type Stats struct {
	// Allocated is the number of objects successfully created by constructors.
	Allocated uint64
	// Reclaimed is the number of objects freed after losing the last reference.
	Reclaimed uint64
	// Failed is the number of constructor calls that returned object.Null.
	Failed uint64
}

type record struct {
	object.Record
	immortal bool
}

// Arena is an Allocator keeping all objects in a map. Handles are assigned
// monotonically starting from 1 and are never reused by the same arena.
type Arena struct {
	records map[object.Handle]*record
	next    object.Handle
	state   arenaState

	// capacity limits the number of live constructed objects, 0 is unlimited.
	capacity  int
	allocated int

	failAfter int
	failNext  bool

	consts object.Constants
	types  map[object.Type]object.Handle
	stats  Stats
}

var _ Allocator = (*Arena)(nil)

// NewArena returns a new uninitialized arena that can hold up to capacity
// constructed objects at once (seeded singletons and type objects don't
// count). Zero capacity means no limit.
func NewArena(capacity int) *Arena {
	if capacity < 0 {
		capacity = 0
	}
	return &Arena{
		records:   make(map[object.Handle]*record),
		capacity:  capacity,
		failAfter: -1,
		types:     make(map[object.Type]object.Handle),
	}
}

// Init implements Allocator interface. It seeds type objects and singletons.
func (a *Arena) Init() error {
	switch a.state {
	case stateRunning:
		return ErrAlreadyInitialized
	case stateFinalized:
		return ErrFinalized
	}
	a.state = stateRunning

	meta := a.seed(object.Record{Type: object.TypeT, Name: TypeName})
	a.records[meta].TypeHandle = meta
	a.types[object.TypeT] = meta
	for _, t := range []struct {
		typ  object.Type
		name string
	}{
		{object.NoneT, NoneTypeName},
		{object.BoolT, BoolTypeName},
		{object.LongT, LongTypeName},
		{object.DictT, DictTypeName},
		{object.NotImplementedT, NotImplementedName},
	} {
		a.types[t.typ] = a.seed(object.Record{Type: object.TypeT, TypeHandle: meta, Name: t.name})
	}

	a.consts = object.Constants{
		None:           a.seed(object.Record{Type: object.NoneT, TypeHandle: a.types[object.NoneT]}),
		True:           a.seed(object.Record{Type: object.BoolT, TypeHandle: a.types[object.BoolT], Bool: true}),
		False:          a.seed(object.Record{Type: object.BoolT, TypeHandle: a.types[object.BoolT]}),
		NotImplemented: a.seed(object.Record{Type: object.NotImplementedT, TypeHandle: a.types[object.NotImplementedT]}),
	}
	return nil
}

// Finalize implements Allocator interface. It drops all objects.
func (a *Arena) Finalize() error {
	switch a.state {
	case stateNew:
		return ErrNotInitialized
	case stateFinalized:
		return ErrFinalized
	}
	a.state = stateFinalized
	clear(a.records)
	a.allocated = 0
	return nil
}

func (a *Arena) seed(r object.Record) object.Handle {
	h := a.newHandle()
	r.RefCount = 1
	a.records[h] = &record{Record: r, immortal: true}
	return h
}

func (a *Arena) newHandle() object.Handle {
	a.next++
	return a.next
}

func (a *Arena) mustGet(h object.Handle) *record {
	r, ok := a.records[h]
	if !ok || a.state != stateRunning {
		panic(fmt.Errorf("%w: %s", ErrDeadHandle, h))
	}
	return r
}

// IncRef implements Allocator interface.
func (a *Arena) IncRef(h object.Handle) {
	a.mustGet(h).RefCount++
}

// DecRef implements Allocator interface. An object losing its last reference
// is reclaimed.
func (a *Arena) DecRef(h object.Handle) {
	r := a.mustGet(h)
	if r.RefCount > 1 {
		r.RefCount--
		return
	}
	if r.immortal {
		panic(fmt.Errorf("%w: %s", ErrImmortal, h))
	}
	delete(a.records, h)
	a.allocated--
	a.stats.Reclaimed++
}

// RefCount implements Allocator interface.
func (a *Arena) RefCount(h object.Handle) int {
	return a.mustGet(h).RefCount
}

// MakeLong implements Allocator interface.
func (a *Arena) MakeLong(v int64) object.Handle {
	return a.construct(object.Record{Type: object.LongT, Long: v})
}

// MakeDict implements Allocator interface.
func (a *Arena) MakeDict() object.Handle {
	return a.construct(object.Record{Type: object.DictT})
}

func (a *Arena) construct(r object.Record) object.Handle {
	if a.state != stateRunning || !a.mayAllocate() {
		a.stats.Failed++
		return object.Null
	}
	h := a.newHandle()
	r.RefCount = 1
	r.TypeHandle = a.types[r.Type]
	a.records[h] = &record{Record: r}
	a.allocated++
	a.stats.Allocated++
	return h
}

func (a *Arena) mayAllocate() bool {
	if a.failNext {
		a.failNext = false
		return false
	}
	if a.failAfter == 0 {
		return false
	}
	if a.capacity != 0 && a.allocated >= a.capacity {
		return false
	}
	if a.failAfter > 0 {
		a.failAfter--
	}
	return true
}

// None implements Allocator interface.
func (a *Arena) None() object.Handle { return a.consts.None }

// True implements Allocator interface.
func (a *Arena) True() object.Handle { return a.consts.True }

// False implements Allocator interface.
func (a *Arena) False() object.Handle { return a.consts.False }

// NotImplemented implements Allocator interface.
func (a *Arena) NotImplemented() object.Handle { return a.consts.NotImplemented }

// Classify implements Allocator interface.
func (a *Arena) Classify(h object.Handle) object.Type {
	return a.mustGet(h).Type
}

// Is implements Allocator interface.
func (a *Arena) Is(x, y object.Handle) bool {
	return x == y
}

// Lookup implements Allocator interface.
func (a *Arena) Lookup(h object.Handle) (object.Record, bool) {
	r, ok := a.records[h]
	if !ok {
		return object.Record{}, false
	}
	return r.Record, true
}

// Live implements Allocator interface.
func (a *Arena) Live() []object.Handle {
	res := make([]object.Handle, 0, len(a.records))
	for h := range a.records {
		res = append(res, h)
	}
	slices.Sort(res)
	return res
}

// Len returns the number of live objects including seeded ones.
func (a *Arena) Len() int {
	return len(a.records)
}

// TypeObject returns the handle of the type object for t.
func (a *Arena) TypeObject(t object.Type) (object.Handle, bool) {
	h, ok := a.types[t]
	return h, ok
}

// Stats returns arena counters.
func (a *Arena) Stats() Stats {
	return a.stats
}

// Capacity returns the configured capacity, 0 means unlimited.
func (a *Arena) Capacity() int {
	return a.capacity
}

// FailNext makes the next constructor call fail.
func (a *Arena) FailNext() {
	a.failNext = true
}

// FailAfter lets n more constructor calls succeed, all subsequent ones fail
// until ClearFaults is called.
func (a *Arena) FailAfter(n int) {
	if n < 0 {
		n = 0
	}
	a.failAfter = n
}

// ClearFaults removes all injected faults.
func (a *Arena) ClearFaults() {
	a.failNext = false
	a.failAfter = -1
}
