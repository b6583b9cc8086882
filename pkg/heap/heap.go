/*
Package heap implements a safety layer over a reference-counted native object
heap.

State is the only entry point: it is created by Initialize, passed explicitly
(there is no global heap) and destroyed by Finalize. Objects are referenced by
object.Handle values. Every mutating call has an exact footprint: IncRef and
DecRef change the reference count of the given handle only, constructors only
add one fresh handle, so any other live handle keeps its record intact. In
checked mode this is verified after every call with the frame package.

References owned by the caller are tracked as credits. A credit is obtained
from a constructor, an Acquire* accessor or IncRef and consumed by DecRef.
Using a handle without holding the required credit is a precondition
violation, and so is any use of a dead handle. Violations are not errors to be
handled, they panic with an error wrapping ErrPrecondition.

State is not safe for concurrent use.
*/
package heap

import (
	"strings"

	"github.com/google/uuid"
	"github.com/nspcc-dev/refheap/pkg/config"
	"github.com/nspcc-dev/refheap/pkg/heap/frame"
	"github.com/nspcc-dev/refheap/pkg/heap/native"
	"github.com/nspcc-dev/refheap/pkg/heap/object"
	"go.uber.org/zap"
)

// State is the process-wide heap state: the native allocator, the error flag,
// the constants and the ledger of references owned by the caller.
type State struct {
	alloc  native.Allocator
	consts object.Constants

	errOccurred bool
	finalized   bool

	credits map[object.Handle]int
	// constructed is the number of live objects created through this State.
	constructed int

	id      uuid.UUID
	log     *zap.Logger
	checked bool
	trace   bool
	metrics bool
}

// Option customizes State created by Initialize.
type Option func(*State)

// WithLogger sets the logger, zap.NewNop() is used by default.
func WithLogger(log *zap.Logger) Option {
	return func(s *State) {
		if log != nil {
			s.log = log
		}
	}
}

// WithChecked enables frame condition and invariant verification after each
// mutating call.
func WithChecked(checked bool) Option {
	return func(s *State) {
		s.checked = checked
	}
}

// WithTrace enables debug logging of every call.
func WithTrace(trace bool) Option {
	return func(s *State) {
		s.trace = trace
	}
}

// WithMetrics controls Prometheus metrics updates (enabled by default).
func WithMetrics(enabled bool) Option {
	return func(s *State) {
		s.metrics = enabled
	}
}

// Initialize brings the allocator up and returns a new State for it. The
// allocator must be fresh, initializing it twice or after finalization is a
// fatal usage error.
func Initialize(alloc native.Allocator, opts ...Option) *State {
	s := &State{
		alloc:   alloc,
		credits: make(map[object.Handle]int),
		id:      uuid.New(),
		log:     zap.NewNop(),
		metrics: true,
	}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.With(zap.Stringer("heap", s.id))

	if err := alloc.Init(); err != nil {
		violation("Initialize", object.Null, "%s", err)
	}
	s.consts = object.Constants{
		None:           alloc.None(),
		True:           alloc.True(),
		False:          alloc.False(),
		NotImplemented: alloc.NotImplemented(),
	}
	if s.checked {
		s.checkInvariants("Initialize")
	}
	s.log.Info("heap initialized",
		zap.Bool("checked", s.checked),
		zap.Int("objects", len(alloc.Live())))
	return s
}

// NewFromConfig creates a native arena according to cfg and initializes a new
// State over it.
func NewFromConfig(cfg config.Heap, log *zap.Logger) (*State, *native.Arena) {
	arena := native.NewArena(cfg.Capacity)
	s := Initialize(arena,
		WithLogger(log),
		WithChecked(cfg.Checked),
		WithTrace(cfg.TraceOps))
	return s, arena
}

// Finalize shuts the allocator down. The State can't be used afterwards.
// References still held by the caller are reported as leaks.
func (s *State) Finalize() {
	s.ensureRunning("Finalize")
	if n := s.Outstanding(); n != 0 {
		var leaked []string
		for _, h := range s.alloc.Live() {
			if c := s.credits[h]; c != 0 {
				leaked = append(leaked, h.String())
			}
		}
		s.log.Warn("references leaked",
			zap.Int("credits", n),
			zap.String("handles", strings.Join(leaked, ",")))
	}
	if err := s.alloc.Finalize(); err != nil {
		violation("Finalize", object.Null, "%s", err)
	}
	s.updateLiveMetric(-s.constructed)
	s.constructed = 0
	s.finalized = true
	s.credits = nil
	s.log.Info("heap finalized")
}

// ID returns the unique identifier of this State used in logs.
func (s *State) ID() uuid.UUID {
	return s.id
}

// Finalized checks whether Finalize was called.
func (s *State) Finalized() bool {
	return s.finalized
}

// Checked returns whether frame conditions are verified after every call.
func (s *State) Checked() bool {
	return s.checked
}

// ErrOccurred returns the error flag. It is set by failed constructors and
// AsLong and stays set until ClearErr.
func (s *State) ErrOccurred() bool {
	s.ensureRunning("ErrOccurred")
	return s.errOccurred
}

// ClearErr resets the error flag.
func (s *State) ClearErr() {
	s.ensureRunning("ClearErr")
	s.errOccurred = false
}

func (s *State) ensureRunning(op string) {
	if s.finalized {
		violation(op, object.Null, "%s", ErrFinalized)
	}
}

func (s *State) ensureLive(op string, h object.Handle) object.Record {
	s.ensureRunning(op)
	if h == object.Null {
		violation(op, h, "null handle")
	}
	r, ok := s.alloc.Lookup(h)
	if !ok {
		violation(op, h, "dead handle")
	}
	return r
}

func (s *State) traceOp(op string, h object.Handle, fields ...zap.Field) {
	s.countOp(op)
	if s.trace {
		s.log.Debug(op, append([]zap.Field{zap.Stringer("handle", h)}, fields...)...)
	}
}

// capture returns a snapshot of the store if checked mode is on.
func (s *State) capture() frame.Snapshot {
	if !s.checked {
		return nil
	}
	return frame.Capture(s.alloc)
}

// verify checks the frame condition of the call that started from before.
func (s *State) verify(op string, before frame.Snapshot, fp frame.Footprint) {
	if !s.checked {
		return
	}
	if err := frame.Verify(before, frame.Capture(s.alloc), fp); err != nil {
		s.log.Error("frame condition violated", zap.String("op", op), zap.Error(err))
		panic(err)
	}
	s.checkInvariants(op)
}

func (s *State) checkInvariants(op string) {
	if err := frame.CheckInvariants(s.alloc, s.consts); err != nil {
		s.log.Error("heap invariant violated", zap.String("op", op), zap.Error(err))
		panic(err)
	}
}
