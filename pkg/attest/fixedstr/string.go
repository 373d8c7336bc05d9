// Package fixedstr provides String, an immutable byte string whose length is
// fixed once it is built, along with the half-open Range type used by its
// search and slicing operations.
//
// Every transformation returns a new String; the receiver is never changed.
// Operations that can fail on bad bounds come in two flavours: the plain
// form returns ErrOutOfRange and the Must form panics.
package fixedstr

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfRange is returned by checked accessors when an index or range
	// falls outside the string.
	ErrOutOfRange = errors.New("fixedstr: index out of range")
)

// String is an immutable, length-tagged sequence of bytes.
type String string

// New builds a String from s.
func New(s string) String {
	return String(s)
}

// FromBytes copies b into a new String.
func FromBytes(b []byte) String {
	return String(string(b))
}

// Len returns the fixed length of s.
func (s String) Len() int {
	return len(s)
}

// At returns the byte at position i.
func (s String) At(i int) (byte, error) {
	if i < 0 || i >= len(s) {
		return 0, fmt.Errorf("%w: index %d, length %d", ErrOutOfRange, i, len(s))
	}
	return s[i], nil
}

// Compare orders by length first and then byte by byte. It returns -1, 0 or +1.
func (s String) Compare(o String) int {
	switch {
	case len(s) < len(o):
		return -1
	case len(s) > len(o):
		return 1
	}
	for i := 0; i < len(s); i++ {
		if s[i] < o[i] {
			return -1
		} else if s[i] > o[i] {
			return 1
		}
	}
	return 0
}

func (s String) Equal(o String) bool { return s.Compare(o) == 0 }
func (s String) Less(o String) bool  { return s.Compare(o) < 0 }

// Substr returns the bytes covered by r. An Upper bound of End is clamped
// to the length of s.
func (s String) Substr(r Range) (String, error) {
	r = r.clamp(len(s))
	if !r.Valid() || r.Lower < 0 || r.Upper > len(s) {
		return "", fmt.Errorf("%w: range %s, length %d", ErrOutOfRange, r, len(s))
	}
	return s[r.Lower:r.Upper], nil
}

// MustSubstr is like Substr but panics on a bad range.
func (s String) MustSubstr(r Range) String {
	sub, err := s.Substr(r)
	if err != nil {
		panic(err)
	}
	return sub
}

func (s String) StartsWith(prefix String) bool {
	if len(prefix) > len(s) {
		return false
	}
	return s.eqFrom(0, prefix)
}

func (s String) EndsWith(suffix String) bool {
	if len(suffix) > len(s) {
		return false
	}
	return s.eqFrom(len(s)-len(suffix), suffix)
}

// HasAt reports whether o occurs in s starting exactly at offset i.
func (s String) HasAt(i int, o String) bool {
	if i < 0 || i+len(o) > len(s) {
		return false
	}
	return s.eqFrom(i, o)
}

func (s String) eqFrom(i int, o String) bool {
	for j := 0; j < len(o); j++ {
		if s[i+j] != o[j] {
			return false
		}
	}
	return true
}

func (s String) Reverse() String {
	b := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		b[len(s)-1-i] = s[i]
	}
	return String(b)
}

// TrimFront drops the first k bytes.
func (s String) TrimFront(k int) (String, error) {
	if k < 0 || k > len(s) {
		return "", fmt.Errorf("%w: trim %d, length %d", ErrOutOfRange, k, len(s))
	}
	return s[k:], nil
}

// TrimBack drops the last k bytes.
func (s String) TrimBack(k int) (String, error) {
	if k < 0 || k > len(s) {
		return "", fmt.Errorf("%w: trim %d, length %d", ErrOutOfRange, k, len(s))
	}
	return s[:len(s)-k], nil
}

// Concat returns s followed by each of others.
func (s String) Concat(others ...String) String {
	n := len(s)
	for _, o := range others {
		n += len(o)
	}
	b := make([]byte, 0, n)
	b = append(b, s...)
	for _, o := range others {
		b = append(b, o...)
	}
	return String(b)
}

// String returns the contents as a plain Go string.
func (s String) String() string {
	return string(s)
}

// Bytes returns a copy of the contents.
func (s String) Bytes() []byte {
	return []byte(s)
}
