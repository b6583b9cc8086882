package heap

import (
	"github.com/nspcc-dev/refheap/pkg/heap/frame"
	"github.com/nspcc-dev/refheap/pkg/heap/object"
	"go.uber.org/zap"
)

// IncRef adds a reference to h. The caller must hold a reference to it and
// gets one more. Nothing else changes.
func (s *State) IncRef(h object.Handle) {
	const op = "IncRef"
	s.ensureLive(op, h)
	s.requireCredit(op, h)

	before := s.capture()
	s.alloc.IncRef(h)
	s.addCredit(h)
	s.verify(op, before, frame.Touch(h, 1))
	s.traceOp(op, h)
}

// DecRef drops a reference the caller holds to h. If it was the last one, the
// object is reclaimed and h must not be used anymore. Nothing else changes.
func (s *State) DecRef(h object.Handle) {
	const op = "DecRef"
	r := s.ensureLive(op, h)
	s.requireCredit(op, h)

	before := s.capture()
	s.alloc.DecRef(h)
	s.takeCredit(h)
	if r.RefCount == 1 {
		s.constructed--
		s.updateLiveMetric(-1)
	}
	s.verify(op, before, frame.Touch(h, -1))
	s.traceOp(op, h, zap.Bool("reclaimed", r.RefCount == 1))
}

// RefCnt returns the current reference count of h.
func (s *State) RefCnt(h object.Handle) int {
	s.ensureLive("RefCnt", h)
	return s.alloc.RefCount(h)
}

// CreateLong allocates a new long object. On success the returned handle is
// fresh and has a single reference owned by the caller. On failure
// object.Null is returned and the error flag is set, existing objects are not
// affected either way.
func (s *State) CreateLong(v int64) object.Handle {
	const op = "CreateLong"
	s.ensureRunning(op)
	before := s.capture()
	h := s.alloc.MakeLong(v)
	s.created(op, before, h)
	s.traceOp(op, h, zap.Int64("value", v))
	return h
}

// CreateDict allocates a new empty dict object, see CreateLong for the
// contract.
func (s *State) CreateDict() object.Handle {
	const op = "CreateDict"
	s.ensureRunning(op)
	before := s.capture()
	h := s.alloc.MakeDict()
	s.created(op, before, h)
	s.traceOp(op, h)
	return h
}

func (s *State) created(op string, before frame.Snapshot, h object.Handle) {
	if h == object.Null {
		s.errOccurred = true
		s.countAllocFailure()
		s.log.Warn("allocation failed", zap.String("op", op))
	} else {
		s.addCredit(h)
		s.constructed++
		s.updateLiveMetric(1)
	}
	s.verify(op, before, frame.Create(h))
}

// AsLong returns the value of a long object. If h is of any other type, the
// error flag is set and ErrNotLong is returned.
func (s *State) AsLong(h object.Handle) (int64, error) {
	r := s.ensureLive("AsLong", h)
	if r.Type != object.LongT {
		s.errOccurred = true
		return 0, ErrNotLong
	}
	return r.Long, nil
}

// Record returns a copy of the record of h, false is returned for dead
// handles.
func (s *State) Record(h object.Handle) (object.Record, bool) {
	s.ensureRunning("Record")
	return s.alloc.Lookup(h)
}

// Live returns all live handles in ascending order, including constants and
// type objects.
func (s *State) Live() []object.Handle {
	s.ensureRunning("Live")
	return s.alloc.Live()
}

// Len returns the number of live objects.
func (s *State) Len() int {
	return len(s.Live())
}

// Lookup implements frame.View interface.
func (s *State) Lookup(h object.Handle) (object.Record, bool) {
	return s.Record(h)
}
