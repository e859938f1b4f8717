// Package regalloc implements the fixed, deterministic guest-to-host
// register mapping the block translator relies on: every guest register has
// a stable home for the lifetime of the process, either a host register or
// a spill-stack slot.
package regalloc

import (
	"fmt"
	"strings"

	"armjit/isa"
	"armjit/x64"
)

// Location is where a guest register lives: either a host register or a
// numbered spill slot.
type Location struct {
	IsSpill bool
	Reg     x64.Reg
	Slot    int
}

func phys(r x64.Reg) Location  { return Location{Reg: r} }
func spill(slot int) Location { return Location{IsSpill: true, Slot: slot} }

// Allocation holds the guest-register -> host-location mapping. It is
// built once per target and does not change across blocks in v1, but Swap
// lets the translator exchange two mappings when an operation prefers a
// physical result register currently bound elsewhere.
type Allocation struct {
	slots [isa.NumRegisters]Location
}

// Default returns the standard mapping:
// R0-R10 in RBX, RSI, RDI, R8, R9, R10, R11, R12, R13, R14, R15;
// R11, R12, SP, LR, PC in spill slots 0-4, FLAGS in slot 5.
func Default() *Allocation {
	a := &Allocation{}
	a.slots[isa.R0] = phys(x64.RBX)
	a.slots[isa.R1] = phys(x64.RSI)
	a.slots[isa.R2] = phys(x64.RDI)
	a.slots[isa.R3] = phys(x64.R8)
	a.slots[isa.R4] = phys(x64.R9)
	a.slots[isa.R5] = phys(x64.R10)
	a.slots[isa.R6] = phys(x64.R11)
	a.slots[isa.R7] = phys(x64.R12)
	a.slots[isa.R8] = phys(x64.R13)
	a.slots[isa.R9] = phys(x64.R14)
	a.slots[isa.R10] = phys(x64.R15)
	a.slots[isa.R11] = spill(0)
	a.slots[isa.R12] = spill(1)
	a.slots[isa.SP] = spill(2)
	a.slots[isa.LR] = spill(3)
	a.slots[isa.PC] = spill(4)
	a.slots[isa.FLAGS] = spill(5)
	return a
}

// hostRegsByName names the host registers the default mapping may bind, for
// configuration-supplied pin lists.
var hostRegsByName = map[string]x64.Reg{
	"rbx": x64.RBX, "rsi": x64.RSI, "rdi": x64.RDI,
	"r8": x64.R8, "r9": x64.R9, "r10": x64.R10, "r11": x64.R11,
	"r12": x64.R12, "r13": x64.R13, "r14": x64.R14, "r15": x64.R15,
}

// WithPinned returns the default mapping with the named host registers
// withheld from guest use: any guest register whose default home is on the
// pinned list is demoted to a fresh spill slot instead. Names are
// case-insensitive ("rbx", "R12"). An empty list yields Default().
func WithPinned(pinned []string) (*Allocation, error) {
	a := Default()
	if len(pinned) == 0 {
		return a, nil
	}
	withheld := make(map[uint8]bool, len(pinned))
	for _, name := range pinned {
		r, ok := hostRegsByName[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("regalloc: unknown host register %q in pin list", name)
		}
		withheld[r.Value] = true
	}
	next := a.SpillSlotCount()
	for i, loc := range a.slots {
		if !loc.IsSpill && withheld[loc.Reg.Value] {
			a.slots[i] = spill(next)
			next++
		}
	}
	return a, nil
}

// PhysOf returns the current host location of a guest register.
func (a *Allocation) PhysOf(r isa.Register) Location {
	return a.slots[r]
}

// Swap atomically exchanges the mappings of two guest registers.
func (a *Allocation) Swap(v1, v2 isa.Register) {
	a.slots[v1], a.slots[v2] = a.slots[v2], a.slots[v1]
}

// SpillSlotCount returns the number of spill slots needed, i.e. one more
// than the maximum slot index in use, used to size the prologue's stack
// adjustment.
func (a *Allocation) SpillSlotCount() int {
	max := -1
	for _, loc := range a.slots {
		if loc.IsSpill && loc.Slot > max {
			max = loc.Slot
		}
	}
	return max + 1
}

// PhysRegistersInUse returns every distinct host register the mapping binds
// to a guest register, in guest-register order — the prologue pushes every
// one of them and the epilogue pops them in reverse.
func (a *Allocation) PhysRegistersInUse() []x64.Reg {
	var regs []x64.Reg
	for _, loc := range a.slots {
		if !loc.IsSpill {
			regs = append(regs, loc.Reg)
		}
	}
	return regs
}
