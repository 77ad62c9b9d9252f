package osc

import (
	"fmt"
	"strings"
)

type TypeTag byte

const (
	TypeInt32   TypeTag = 'i'
	TypeFloat32 TypeTag = 'f'
	TypeString  TypeTag = 's'
	TypeBlob    TypeTag = 'b'
	TypeInt64   TypeTag = 'h'
	TypeFloat64 TypeTag = 'd'
	TypeTimetag TypeTag = 't'
	TypeNil     TypeTag = 'N'
	TypeTrue    TypeTag = 'T'
	TypeFalse   TypeTag = 'F'
	TypeInvalid TypeTag = 0
)

// ToTypeTag returns the tag for a Go argument value, or TypeInvalid if the
// value has no OSC representation.
func ToTypeTag(arg interface{}) TypeTag {
	switch t := arg.(type) {
	case int32:
		return TypeInt32
	case float32:
		return TypeFloat32
	case string:
		return TypeString
	case []byte:
		return TypeBlob
	case int64:
		return TypeInt64
	case float64:
		return TypeFloat64
	case Timetag:
		return TypeTimetag
	case nil:
		return TypeNil
	case bool:
		if t {
			return TypeTrue
		}
		return TypeFalse
	default:
		return TypeInvalid
	}
}

// TypeTags returns the tag string for args, without the leading comma.
func TypeTags(args []interface{}) (string, error) {
	var sb strings.Builder
	sb.Grow(len(args))
	for i, a := range args {
		tag := ToTypeTag(a)
		if tag == TypeInvalid {
			return "", fmt.Errorf("argument %d: unsupported type %T", i, a)
		}
		sb.WriteByte(byte(tag))
	}
	return sb.String(), nil
}
