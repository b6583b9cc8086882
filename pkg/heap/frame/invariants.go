package frame

import (
	"errors"
	"fmt"

	"github.com/nspcc-dev/refheap/pkg/heap/object"
)

// ErrInvariant is returned by CheckInvariants.
var ErrInvariant = errors.New("heap invariant violated")

// CheckInvariants validates the store against the given constants:
//   - every live handle has at least one reference;
//   - the null handle is never live;
//   - constants are non-null, pairwise distinct and live;
//   - booleans are singletons, the only BoolT records are True and False;
//   - every type handle refers to a live type object.
func CheckInvariants(v View, c object.Constants) error {
	live := Capture(v)
	if _, ok := live[object.Null]; ok {
		return fmt.Errorf("%w: null handle is live", ErrInvariant)
	}

	all := c.All()
	for i, h := range all {
		if h == object.Null {
			return fmt.Errorf("%w: constant #%d is null", ErrInvariant, i)
		}
		if _, ok := live[h]; !ok {
			return fmt.Errorf("%w: constant %s is not live", ErrInvariant, h)
		}
		for _, other := range all[:i] {
			if other == h {
				return fmt.Errorf("%w: constant %s is duplicated", ErrInvariant, h)
			}
		}
	}
	if r := live[c.True]; r.Type != object.BoolT || !r.Bool {
		return fmt.Errorf("%w: True constant is %s", ErrInvariant, r)
	}
	if r := live[c.False]; r.Type != object.BoolT || r.Bool {
		return fmt.Errorf("%w: False constant is %s", ErrInvariant, r)
	}

	for h, r := range live {
		if r.RefCount < 1 {
			return fmt.Errorf("%w: %s has %d references", ErrInvariant, h, r.RefCount)
		}
		if r.Type == object.BoolT && h != c.True && h != c.False {
			return fmt.Errorf("%w: non-singleton boolean %s", ErrInvariant, h)
		}
		if t, ok := live[r.TypeHandle]; !ok || t.Type != object.TypeT {
			return fmt.Errorf("%w: %s has invalid type handle %s", ErrInvariant, h, r.TypeHandle)
		}
	}
	return nil
}
