package heap

import "github.com/nspcc-dev/refheap/pkg/heap/object"

// Credits returns the number of references to h owned by the caller.
func (s *State) Credits(h object.Handle) int {
	s.ensureRunning("Credits")
	return s.credits[h]
}

// Outstanding returns the total number of references owned by the caller.
// It's zero for a balanced program right before Finalize.
func (s *State) Outstanding() int {
	var n int
	for _, c := range s.credits {
		n += c
	}
	return n
}

func (s *State) requireCredit(op string, h object.Handle) {
	if s.credits[h] < 1 {
		violation(op, h, "no reference held")
	}
}

func (s *State) addCredit(h object.Handle) {
	s.credits[h]++
}

func (s *State) takeCredit(h object.Handle) {
	if s.credits[h] == 1 {
		delete(s.credits, h)
		return
	}
	s.credits[h]--
}
