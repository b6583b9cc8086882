package heap

import "github.com/nspcc-dev/refheap/pkg/heap/object"

// IsLongExact checks whether h is a long.
func (s *State) IsLongExact(h object.Handle) bool {
	return s.Classify(h) == object.LongT
}

// IsDictExact checks whether h is a dict.
func (s *State) IsDictExact(h object.Handle) bool {
	return s.Classify(h) == object.DictT
}

// IsBool checks whether h is a boolean. Booleans are singletons, so it is
// the same as IsTrue(h) || IsFalse(h).
func (s *State) IsBool(h object.Handle) bool {
	return s.Classify(h) == object.BoolT
}

// Classify returns the type of h.
func (s *State) Classify(h object.Handle) object.Type {
	s.ensureLive("Classify", h)
	return s.alloc.Classify(h)
}

// TypeOf returns the handle of the type object of h.
func (s *State) TypeOf(h object.Handle) object.Handle {
	return s.ensureLive("TypeOf", h).TypeHandle
}

// Identical checks whether h0 and h1 refer to the same object. It never
// compares values, two longs holding the same number are different objects.
func (s *State) Identical(h0, h1 object.Handle) bool {
	s.ensureRunning("Identical")
	return s.alloc.Is(h0, h1)
}
