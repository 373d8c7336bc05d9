package fixedstr

// FindFirst returns the index of the first byte of s that is in set, or -1.
func (s String) FindFirst(set ...byte) int {
	for i := 0; i < len(s); i++ {
		if inSet(s[i], set) {
			return i
		}
	}
	return -1
}

// FindFirstNot returns the index of the first byte of s that is not in set, or -1.
func (s String) FindFirstNot(set ...byte) int {
	for i := 0; i < len(s); i++ {
		if !inSet(s[i], set) {
			return i
		}
	}
	return -1
}

// RFindFirst is FindFirst scanning from the end.
func (s String) RFindFirst(set ...byte) int {
	for i := len(s) - 1; i >= 0; i-- {
		if inSet(s[i], set) {
			return i
		}
	}
	return -1
}

// RFindFirstNot is FindFirstNot scanning from the end.
func (s String) RFindFirstNot(set ...byte) int {
	for i := len(s) - 1; i >= 0; i-- {
		if !inSet(s[i], set) {
			return i
		}
	}
	return -1
}

// Find returns the range of the first occurrence of needle in s, or NotFound.
func (s String) Find(needle String) Range {
	for i := 0; i+len(needle) <= len(s); i++ {
		if s.eqFrom(i, needle) {
			return Range{Lower: i, Upper: i + len(needle)}
		}
	}
	return NotFound
}

// RFind returns the range of the last occurrence of needle in s, or NotFound.
func (s String) RFind(needle String) Range {
	for i := len(s) - len(needle); i >= 0; i-- {
		if s.eqFrom(i, needle) {
			return Range{Lower: i, Upper: i + len(needle)}
		}
	}
	return NotFound
}

// Contains reports whether needle occurs anywhere in s.
func (s String) Contains(needle String) bool {
	return !s.Find(needle).IsNotFound()
}

func inSet(c byte, set []byte) bool {
	for _, m := range set {
		if c == m {
			return true
		}
	}
	return false
}
