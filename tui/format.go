package tui

import (
	"fmt"
	"strings"

	"armjit/isa"
)

// hexDump renders emitted host bytes sixteen to a line.
func hexDump(code []byte) string {
	var b strings.Builder
	for i := 0; i < len(code); i += 16 {
		end := i + 16
		if end > len(code) {
			end = len(code)
		}
		fmt.Fprintf(&b, "%04x  ", i)
		for _, by := range code[i:end] {
			fmt.Fprintf(&b, "%02x ", by)
		}
		b.WriteString("\n")
	}
	return b.String()
}

var registerOrder = []isa.Register{
	isa.R0, isa.R1, isa.R2, isa.R3, isa.R4, isa.R5, isa.R6, isa.R7,
	isa.R8, isa.R9, isa.R10, isa.R11, isa.R12, isa.SP, isa.LR, isa.PC,
}

// registerDump renders the guest register array before and after invoking
// the translated block, highlighting values that changed, plus a decoded
// N/Z/C/V flags line.
func registerDump(before, after [17]uint32) string {
	var lines []string
	for _, r := range registerOrder {
		idx := int(r)
		if before[idx] != after[idx] {
			lines = append(lines, fmt.Sprintf("%-5s 0x%08X -> [yellow]0x%08X[white]", r, before[idx], after[idx]))
		} else {
			lines = append(lines, fmt.Sprintf("%-5s 0x%08X", r, before[idx]))
		}
	}

	bn, bz, bc, bv := isa.FlagsUnpack(before[16])
	an, az, ac, av := isa.FlagsUnpack(after[16])
	lines = append(lines, fmt.Sprintf("Flags: %s -> %s", flagString(bn, bz, bc, bv), flagString(an, az, ac, av)))

	return strings.Join(lines, "\n")
}

func flagString(n, z, c, v bool) string {
	return fmt.Sprintf("%s%s%s%s", flagChar(n, "N"), flagChar(z, "Z"), flagChar(c, "C"), flagChar(v, "V"))
}

func flagChar(set bool, letter string) string {
	if set {
		return letter
	}
	return strings.ToLower(letter)
}
