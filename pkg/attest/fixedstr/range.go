package fixedstr

import (
	"fmt"
	"math"
)

// End is the open upper bound: a Range whose Upper is End runs to the end
// of whatever string it is applied to.
const End = math.MaxInt

// NotFound is returned by the search functions when nothing matches.
var NotFound = Range{Lower: End, Upper: End}

// Range is the half-open interval [Lower, Upper) over byte positions.
type Range struct {
	Lower int
	Upper int
}

// From returns the range that starts at lower and runs to the end.
func From(lower int) Range {
	return Range{Lower: lower, Upper: End}
}

// Span returns [lower, upper).
func Span(lower, upper int) Range {
	return Range{Lower: lower, Upper: upper}
}

func (r Range) Valid() bool      { return r.Lower <= r.Upper }
func (r Range) IsNotFound() bool { return r == NotFound }

// Len is Upper - Lower. It is not meaningful for open or NotFound ranges.
func (r Range) Len() int {
	if r.IsNotFound() {
		return 0
	}
	return r.Upper - r.Lower
}

func (r Range) Empty() bool { return r.Len() == 0 }

// Shift moves both bounds by off.
func (r Range) Shift(off int) Range {
	if r.IsNotFound() {
		return r
	}
	return Range{Lower: r.Lower + off, Upper: r.Upper + off}
}

func (r Range) clamp(n int) Range {
	if r.Upper == End && r.Lower != End {
		r.Upper = n
	}
	return r
}

func (r Range) String() string {
	if r.IsNotFound() {
		return "[not found)"
	}
	if r.Upper == End {
		return fmt.Sprintf("[%d, end)", r.Lower)
	}
	return fmt.Sprintf("[%d, %d)", r.Lower, r.Upper)
}
