package heap

import (
	"fmt"

	"github.com/nspcc-dev/refheap/pkg/heap/object"
)

// Ref is an owned reference to a heap object. It carries exactly one credit
// and gives it back on Release, after which it can't be used anymore.
type Ref struct {
	s        *State
	h        object.Handle
	released bool
}

// NewLong creates a new long object and returns an owned reference to it.
func (s *State) NewLong(v int64) (*Ref, error) {
	return s.own(s.CreateLong(v))
}

// NewDict creates a new dict object and returns an owned reference to it.
func (s *State) NewDict() (*Ref, error) {
	return s.own(s.CreateDict())
}

// OwnNone returns an owned reference to None.
func (s *State) OwnNone() *Ref {
	return &Ref{s: s, h: s.AcquireNone()}
}

// OwnTrue returns an owned reference to True.
func (s *State) OwnTrue() *Ref {
	return &Ref{s: s, h: s.AcquireTrue()}
}

// OwnFalse returns an owned reference to False.
func (s *State) OwnFalse() *Ref {
	return &Ref{s: s, h: s.AcquireFalse()}
}

// Adopt wraps a reference the caller already holds (one obtained from
// CreateLong, an Acquire* accessor or IncRef) into Ref. The credit moves to
// the Ref.
func (s *State) Adopt(h object.Handle) *Ref {
	s.ensureLive("Adopt", h)
	s.requireCredit("Adopt", h)
	return &Ref{s: s, h: h}
}

func (s *State) own(h object.Handle) (*Ref, error) {
	if h == object.Null {
		return nil, ErrAllocation
	}
	return &Ref{s: s, h: h}, nil
}

// Handle returns the referenced handle. It panics if r was released.
func (r *Ref) Handle() object.Handle {
	r.mustHold("Handle")
	return r.h
}

// Clone adds a reference to the same object.
func (r *Ref) Clone() *Ref {
	r.mustHold("Clone")
	r.s.IncRef(r.h)
	return &Ref{s: r.s, h: r.h}
}

// Release drops the reference. Releasing twice is a precondition violation.
func (r *Ref) Release() {
	r.mustHold("Release")
	r.s.DecRef(r.h)
	r.released = true
}

// Released checks whether r was released.
func (r *Ref) Released() bool {
	return r.released
}

// String implements fmt.Stringer interface.
func (r *Ref) String() string {
	if r.released {
		return fmt.Sprintf("%s (released)", r.h)
	}
	return r.h.String()
}

func (r *Ref) mustHold(op string) {
	if r.released {
		violation("Ref."+op, r.h, "reference is released")
	}
}
