package fixedstr

import (
	"errors"
	"fmt"
	"math"
	"unsafe"

	"golang.org/x/exp/constraints"
)

var (
	// ErrSyntax is returned when the content is not a decimal integer.
	ErrSyntax = errors.New("fixedstr: invalid integer syntax")
	// ErrRange is returned when the value does not fit the target type.
	ErrRange = errors.New("fixedstr: integer out of range")
)

// ToIntegral parses the whole of s as a decimal integer. A single leading
// '-' negates the magnitude; no other sign or whitespace is accepted.
func ToIntegral[T constraints.Integer](s String) (T, error) {
	var zero T

	digits := s
	neg := false
	if len(digits) > 0 && digits[0] == '-' {
		neg = true
		digits = digits[1:]
	}
	if len(digits) == 0 {
		return zero, fmt.Errorf("%w: %q", ErrSyntax, string(s))
	}

	var mag uint64
	for i := 0; i < len(digits); i++ {
		c := digits[i]
		if c < '0' || c > '9' {
			return zero, fmt.Errorf("%w: %q", ErrSyntax, string(s))
		}
		d := uint64(c - '0')
		if mag > (math.MaxUint64-d)/10 {
			return zero, fmt.Errorf("%w: %q", ErrRange, string(s))
		}
		mag = mag*10 + d
	}

	bits := uint(unsafe.Sizeof(zero)) * 8
	signed := zero-1 < zero

	switch {
	case signed && neg:
		if mag > uint64(1)<<(bits-1) {
			return zero, fmt.Errorf("%w: %q", ErrRange, string(s))
		}
		return T(-int64(mag)), nil
	case signed:
		if mag > uint64(1)<<(bits-1)-1 {
			return zero, fmt.Errorf("%w: %q", ErrRange, string(s))
		}
	case neg:
		if mag != 0 {
			return zero, fmt.Errorf("%w: %q", ErrRange, string(s))
		}
	default:
		if bits < 64 && mag > uint64(1)<<bits-1 {
			return zero, fmt.Errorf("%w: %q", ErrRange, string(s))
		}
	}
	return T(mag), nil
}

// MustIntegral is like ToIntegral but panics on error.
func MustIntegral[T constraints.Integer](s String) T {
	v, err := ToIntegral[T](s)
	if err != nil {
		panic(err)
	}
	return v
}
