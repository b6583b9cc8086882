package object

import "fmt"

// Record is the state of a single heap object as seen from the outside. It is
// always handed out by value, so holding a Record never allows to modify the
// store.
type Record struct {
	RefCount   int
	Type       Type
	TypeHandle Handle
	// Long is the payload of LongT objects.
	Long int64
	// Bool is the payload of BoolT objects.
	Bool bool
	// Name is the payload of TypeT objects.
	Name string
}

// String implements fmt.Stringer interface.
func (r Record) String() string {
	var payload string
	switch r.Type {
	case LongT:
		payload = fmt.Sprintf(" %d", r.Long)
	case BoolT:
		payload = fmt.Sprintf(" %t", r.Bool)
	case TypeT:
		payload = " " + r.Name
	}
	return fmt.Sprintf("%s%s (refs: %d, type: %s)", r.Type, payload, r.RefCount, r.TypeHandle)
}
