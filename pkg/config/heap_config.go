package config

import "errors"

// Heap contains settings of the object heap.
type Heap struct {
	// Capacity limits the number of live objects created by constructors,
	// zero means no limit.
	Capacity int `yaml:"Capacity"`
	// Checked enables frame condition and invariant verification after every
	// mutating call. It's expensive (linear in the heap size per call) and
	// intended for tests and debugging.
	Checked bool `yaml:"Checked"`
	// TraceOps enables debug logging of every heap call.
	TraceOps bool `yaml:"TraceOps"`
}

// Validate checks Heap settings for consistency.
func (h Heap) Validate() error {
	if h.Capacity < 0 {
		return errors.New("negative Capacity")
	}
	return nil
}
