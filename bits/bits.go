// Package bits provides the low-level field-extraction and pattern-matching
// primitives the decoder and emitter build on: pulling contiguous or
// scattered bit fields out of a 32-bit word, and comparing a word against a
// masked [01x] template.
package bits

import (
	"fmt"
	"strings"
)

// Bits extracts the contiguous field [lo, hi) from word, i.e. the low
// (hi-lo) bits starting at bit position lo. The range is half-open, so
// Bits(w, 0, 4) returns the low nibble.
func Bits(word uint32, lo, hi int) uint32 {
	if lo >= hi {
		panic(fmt.Sprintf("bits: invalid range [%d, %d)", lo, hi))
	}
	if hi > 32 {
		panic(fmt.Sprintf("bits: range [%d, %d) exceeds word width", lo, hi))
	}
	width := hi - lo
	mask := uint32(1)<<uint(width) - 1
	return (word >> uint(lo)) & mask
}

// Bit returns the single bit at position i as 0 or 1.
func Bit(word uint32, i int) uint32 {
	if i < 0 || i >= 32 {
		panic(fmt.Sprintf("bits: bit position %d out of range", i))
	}
	return (word >> uint(i)) & 1
}

// PickBits gathers the bits at the given positions into the low bits of the
// result, in the order the positions are listed: positions[0] becomes bit 0
// of the result, positions[1] becomes bit 1, and so on.
func PickBits(word uint32, positions []int) uint32 {
	var x uint32
	for i, p := range positions {
		if p < 0 || p >= 32 {
			panic(fmt.Sprintf("bits: bit position %d out of range", p))
		}
		x |= ((word >> uint(p)) & 1) << uint(i)
	}
	return x
}

// BitMatch compares word against a pattern of '0', '1', and 'x' characters
// (most-significant character first, one per bit of the pattern's width).
// Positions marked 'x' are don't-care; '0'/'1' positions must match exactly.
func BitMatch(word uint32, pattern string) bool {
	width := len(pattern)
	var mask, comp uint32
	for i, c := range pattern {
		bitPos := uint(width - 1 - i)
		switch c {
		case '0':
			mask |= 1 << bitPos
		case '1':
			mask |= 1 << bitPos
			comp |= 1 << bitPos
		case 'x', 'X':
			// don't care: contributes to neither mask nor comp
		default:
			panic(fmt.Sprintf("bits: invalid pattern character %q in %q", c, pattern))
		}
	}
	return word&mask == comp
}

// PatternWidth returns the bit width implied by a [01x] pattern string, handy
// for callers that want to sanity-check a pattern against an expected field
// width before using it.
func PatternWidth(pattern string) int {
	return len(strings.TrimSpace(pattern))
}
