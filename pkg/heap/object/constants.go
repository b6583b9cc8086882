package object

// Constants is the set of process-wide singleton handles established once
// when a heap is initialized.
type Constants struct {
	None           Handle
	True           Handle
	False          Handle
	NotImplemented Handle
}

// All returns constant handles in a fixed order (None, True, False,
// NotImplemented).
func (c Constants) All() []Handle {
	return []Handle{c.None, c.True, c.False, c.NotImplemented}
}

// Contains checks whether h is one of the constants.
func (c Constants) Contains(h Handle) bool {
	return h != Null && (h == c.None || h == c.True || h == c.False || h == c.NotImplemented)
}
