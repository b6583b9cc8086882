package heap

import (
	"github.com/nspcc-dev/refheap/pkg/heap/frame"
	"github.com/nspcc-dev/refheap/pkg/heap/object"
)

// Constants returns singleton handles established by Initialize.
func (s *State) Constants() object.Constants {
	s.ensureRunning("Constants")
	return s.consts
}

// GetNone returns the None handle without adding a reference, it's only
// suitable for identity comparisons.
func (s *State) GetNone() object.Handle {
	s.ensureRunning("GetNone")
	return s.consts.None
}

// GetTrue returns the True handle without adding a reference.
func (s *State) GetTrue() object.Handle {
	s.ensureRunning("GetTrue")
	return s.consts.True
}

// GetFalse returns the False handle without adding a reference.
func (s *State) GetFalse() object.Handle {
	s.ensureRunning("GetFalse")
	return s.consts.False
}

// GetNotImplemented returns the NotImplemented handle without adding a
// reference.
func (s *State) GetNotImplemented() object.Handle {
	s.ensureRunning("GetNotImplemented")
	return s.consts.NotImplemented
}

// AcquireNone returns the None handle with a new reference owned by the
// caller.
func (s *State) AcquireNone() object.Handle {
	return s.acquire("AcquireNone", s.GetNone())
}

// AcquireTrue returns the True handle with a new reference owned by the
// caller.
func (s *State) AcquireTrue() object.Handle {
	return s.acquire("AcquireTrue", s.GetTrue())
}

// AcquireFalse returns the False handle with a new reference owned by the
// caller.
func (s *State) AcquireFalse() object.Handle {
	return s.acquire("AcquireFalse", s.GetFalse())
}

// AcquireNotImplemented returns the NotImplemented handle with a new
// reference owned by the caller.
func (s *State) AcquireNotImplemented() object.Handle {
	return s.acquire("AcquireNotImplemented", s.GetNotImplemented())
}

// AcquireBool returns True or False with a new reference.
func (s *State) AcquireBool(b bool) object.Handle {
	if b {
		return s.AcquireTrue()
	}
	return s.AcquireFalse()
}

func (s *State) acquire(op string, h object.Handle) object.Handle {
	before := s.capture()
	s.alloc.IncRef(h)
	s.addCredit(h)
	s.verify(op, before, frame.Touch(h, 1))
	s.traceOp(op, h)
	return h
}

// IsNone checks whether h is None.
func (s *State) IsNone(h object.Handle) bool {
	return s.Identical(h, s.GetNone())
}

// IsTrue checks whether h is True.
func (s *State) IsTrue(h object.Handle) bool {
	return s.Identical(h, s.GetTrue())
}

// IsFalse checks whether h is False.
func (s *State) IsFalse(h object.Handle) bool {
	return s.Identical(h, s.GetFalse())
}

// IsNotImplemented checks whether h is NotImplemented.
func (s *State) IsNotImplemented(h object.Handle) bool {
	return s.Identical(h, s.GetNotImplemented())
}
