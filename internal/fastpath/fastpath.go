package fastpath

// Column extracts the 1-based inclusive column range [start, end] from
// line, the way PDB fixed-width records are addressed in spec §6.1.
// Short lines are treated as space-padded: a range extending past
// len(line) returns only the in-bounds prefix (possibly empty).
func Column(line []byte, start, end int) []byte {
	if start < 1 || end < start {
		return nil
	}
	lo := start - 1
	if lo >= len(line) {
		return nil
	}
	hi := end
	if hi > len(line) {
		hi = len(line)
	}
	return line[lo:hi]
}

// FirstNonSpace returns the index of the first byte in b greater than ' ',
// or len(b) if b is entirely blank. Mirrors interval.getTokens' delimiter
// test (any byte <= ' ' is a separator) rather than ASCII-only isspace.
func FirstNonSpace(b []byte) int {
	pos := 0
	for ; pos != len(b); pos++ {
		if b[pos] > ' ' {
			break
		}
	}
	return pos
}

// lastNonSpace returns the index one past the last byte in b greater than
// ' ', or 0 if b is entirely blank.
func lastNonSpace(b []byte) int {
	end := len(b)
	for ; end != 0; end-- {
		if b[end-1] > ' ' {
			break
		}
	}
	return end
}

// TrimFixedWidth trims leading and trailing blank bytes (<= ' ') from a
// fixed-width field, without allocating a copy.
func TrimFixedWidth(b []byte) []byte {
	start := FirstNonSpace(b)
	if start == len(b) {
		return b[len(b):]
	}
	return b[start:lastNonSpace(b)]
}

// IsBlank reports whether every byte in b is <= ' '.
func IsBlank(b []byte) bool {
	return FirstNonSpace(b) == len(b)
}
