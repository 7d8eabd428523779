package bitfield

import (
	"golang.org/x/exp/constraints"
	"golang.org/x/exp/slices"
)

// Test reports whether bit is set in value.
func Test[T constraints.Integer](value, bit T) bool {
	return value&bit != 0
}

// Apply sets or clears bit in value.
//
// Clearing is written as OR then subtract, the same shape [Registry.Update] renders in SQL:
// bit1 - bit8 == 1 and bit8 - bit8 == 0, so the result never goes negative.
func Apply[T constraints.Integer](value, bit T, on bool) T {
	if on {
		return value | bit
	}
	return (value | bit) - bit
}

// IsSingleBit reports whether bit is positive with exactly one bit set.
func IsSingleBit[T constraints.Integer](bit T) bool {
	return bit > 0 && bit&(bit-1) == 0
}

var truthy = []string{"1", "t", "T", "true", "TRUE"}

// Truthy coerces a loosely typed flag value: true, integer 1 and the strings
// "1", "t", "T", "true", "TRUE" are true, anything else is false.
func Truthy(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		return slices.Contains(truthy, x)
	case int:
		return x == 1
	case int8:
		return x == 1
	case int16:
		return x == 1
	case int32:
		return x == 1
	case int64:
		return x == 1
	case uint:
		return x == 1
	case uint8:
		return x == 1
	case uint16:
		return x == 1
	case uint32:
		return x == 1
	case uint64:
		return x == 1
	default:
		return false
	}
}
