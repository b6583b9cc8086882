package object

import "strconv"

// Handle is an opaque reference to an object living in the native heap. Handles
// are only ever compared for equality, their numeric value carries no meaning
// besides Null.
type Handle uintptr

// Null is the handle that refers to no object. It is never a key of the store.
const Null Handle = 0

// IsNull checks whether h is the null handle.
func (h Handle) IsNull() bool {
	return h == Null
}

// String implements fmt.Stringer interface.
func (h Handle) String() string {
	if h == Null {
		return "NULL"
	}
	return "0x" + strconv.FormatUint(uint64(h), 16)
}

// ParseHandle parses a handle printed by String, a bare hex number with or
// without the 0x prefix or a decimal number prefixed with '#'.
func ParseHandle(s string) (Handle, error) {
	if s == "NULL" {
		return Null, nil
	}
	var (
		v   uint64
		err error
	)
	switch {
	case len(s) > 1 && s[0] == '#':
		v, err = strconv.ParseUint(s[1:], 10, 64)
	case len(s) > 2 && (s[:2] == "0x" || s[:2] == "0X"):
		v, err = strconv.ParseUint(s[2:], 16, 64)
	default:
		v, err = strconv.ParseUint(s, 16, 64)
	}
	if err != nil {
		return Null, err
	}
	return Handle(v), nil
}
