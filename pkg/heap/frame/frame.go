/*
Package frame checks frame conditions of heap operations.

A frame condition states that an operation leaves everything outside of its
documented footprint unchanged. Capture takes a snapshot of every live record,
Verify compares two snapshots against the footprint of the operation performed
in between and CheckInvariants validates the structural invariants of a heap.
*/
package frame

import (
	"fmt"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/nspcc-dev/refheap/pkg/heap/object"
	"github.com/pmezard/go-difflib/difflib"
)

// View is a read-only view of an object store.
type View interface {
	Live() []object.Handle
	Lookup(h object.Handle) (object.Record, bool)
}

// Snapshot is a copy of all live records at some point in time.
type Snapshot map[object.Handle]object.Record

// Footprint describes what an operation is allowed to change.
type Footprint struct {
	// Deltas maps handles to the exact change of their reference count. A
	// handle whose count drops to zero must disappear.
	Deltas map[object.Handle]int
	// Created lists handles the operation has allocated.
	Created []object.Handle
}

// Touch returns a footprint changing the reference count of h by delta.
func Touch(h object.Handle, delta int) Footprint {
	return Footprint{Deltas: map[object.Handle]int{h: delta}}
}

// Create returns a footprint of a constructor that returned h. Null h
// produces an empty footprint.
func Create(h object.Handle) Footprint {
	if h == object.Null {
		return Footprint{}
	}
	return Footprint{Created: []object.Handle{h}}
}

// Violation is an error describing a broken frame condition.
type Violation struct {
	Handle object.Handle
	Reason string
	Diff   string
}

// Error implements error interface.
func (v *Violation) Error() string {
	msg := fmt.Sprintf("frame violation at %s: %s", v.Handle, v.Reason)
	if v.Diff != "" {
		msg += "\n" + v.Diff
	}
	return msg
}

var dumper = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// Capture copies all live records of v.
func Capture(v View) Snapshot {
	live := v.Live()
	s := make(Snapshot, len(live))
	for _, h := range live {
		if r, ok := v.Lookup(h); ok {
			s[h] = r
		}
	}
	return s
}

// Verify checks that after differs from before only within fp.
func Verify(before, after Snapshot, fp Footprint) error {
	created := make(map[object.Handle]bool, len(fp.Created))
	for _, h := range fp.Created {
		if h == object.Null {
			return &Violation{Handle: h, Reason: "null handle created"}
		}
		if _, ok := before[h]; ok {
			return &Violation{Handle: h, Reason: "created handle was already live"}
		}
		r, ok := after[h]
		if !ok {
			return &Violation{Handle: h, Reason: "created handle is not live"}
		}
		if r.RefCount != 1 {
			return &Violation{Handle: h, Reason: fmt.Sprintf("created with %d references", r.RefCount)}
		}
		created[h] = true
	}
	for h := range fp.Deltas {
		if _, ok := before[h]; !ok {
			return &Violation{Handle: h, Reason: "touched handle was not live"}
		}
	}

	for h, old := range before {
		cur, ok := after[h]
		delta, touched := fp.Deltas[h]
		want := old
		want.RefCount += delta
		switch {
		case touched && want.RefCount == 0:
			if ok {
				return &Violation{Handle: h, Reason: "handle survived its last reference", Diff: diff(old, cur)}
			}
		case !ok:
			return &Violation{Handle: h, Reason: "handle disappeared"}
		case cur != want:
			return &Violation{Handle: h, Reason: "record changed", Diff: diff(want, cur)}
		}
	}
	for h := range after {
		if _, ok := before[h]; !ok && !created[h] {
			return &Violation{Handle: h, Reason: "unexpected handle appeared"}
		}
	}
	return nil
}

func diff(want, got object.Record) string {
	d, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(dumper.Sdump(want)),
		B:        difflib.SplitLines(dumper.Sdump(got)),
		FromFile: "Expected",
		ToFile:   "Actual",
		Context:  1,
	})
	if err != nil {
		return ""
	}
	return strings.TrimRight(d, "\n")
}

// Dump returns a human-readable representation of the snapshot.
func (s Snapshot) Dump() string {
	return dumper.Sdump(map[object.Handle]object.Record(s))
}
