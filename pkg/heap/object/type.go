package object

import "errors"

// Type represents the variant of a heap object.
type Type byte

// This block defines all known object variants.
const (
	NoneT           Type = 0x00
	BoolT           Type = 0x20
	LongT           Type = 0x21
	DictT           Type = 0x48
	NotImplementedT Type = 0x50
	TypeT           Type = 0x60
	InvalidT        Type = 0xFF
)

// String implements fmt.Stringer interface.
func (t Type) String() string {
	switch t {
	case NoneT:
		return "None"
	case BoolT:
		return "Bool"
	case LongT:
		return "Long"
	case DictT:
		return "Dict"
	case NotImplementedT:
		return "NotImplemented"
	case TypeT:
		return "Type"
	default:
		return "INVALID"
	}
}

// IsValid checks if t is a well defined object variant.
func (t Type) IsValid() bool {
	switch t {
	case NoneT, BoolT, LongT, DictT, NotImplementedT, TypeT:
		return true
	default:
		return false
	}
}

// FromString returns object variant from string.
func FromString(s string) (Type, error) {
	switch s {
	case "None":
		return NoneT, nil
	case "Bool":
		return BoolT, nil
	case "Long":
		return LongT, nil
	case "Dict":
		return DictT, nil
	case "NotImplemented":
		return NotImplementedT, nil
	case "Type":
		return TypeT, nil
	default:
		return InvalidT, errors.New("invalid type")
	}
}
