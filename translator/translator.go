// Package translator builds the block translator: it walks a decoded
// straight-line sequence of guest instructions and emits a single host
// function implementing their combined effect, following the fixed
// register mapping from regalloc and the encoding primitives from x64.
//
// The generated function has signature `func(*uint32) int32` over a
// 17-word guest register array (R0-R12, SP, LR, PC, FLAGS, in that order;
// see isa.Register). Guest memory access and any write to the guest PC are
// out of scope for v1: the host ABI this package targets carries a single
// pointer with no second operand for guest memory, and branches are not
// yet retargeted into the translated stream (see DESIGN.md).
package translator

import (
	"fmt"

	"armjit/execbuf"
	"armjit/isa"
	"armjit/regalloc"
	"armjit/x64"
)

// BlockTranslator accumulates host code for one straight-line guest block.
type BlockTranslator struct {
	abi   ABI
	alloc *regalloc.Allocation
	opts  Options
	e     *x64.Emitter

	frame      int32
	pushedPhys []x64.Reg
}

// Options are the translation tunables a caller may thread in from
// configuration.
type Options struct {
	// PreferShortJumps selects the 2-byte jump form for internal branches
	// whose span is statically known at emit time to fit in a signed byte.
	// Jumps over whole guest instructions always use the near form, since
	// their span is only known at finalize.
	PreferShortJumps bool
	// SpillSlotBytes is the stack stride between spill slots. Values below
	// the 4 bytes a guest word needs fall back to the 8-byte default.
	SpillSlotBytes int
}

// DefaultOptions matches config.DefaultConfig's translator settings.
func DefaultOptions() Options {
	return Options{PreferShortJumps: true, SpillSlotBytes: 8}
}

// Translate builds the host machine code for instrs under the given ABI and
// register mapping, with default options. The result is ready for
// execbuf.New.
func Translate(abi ABI, alloc *regalloc.Allocation, instrs []isa.Instruction) ([]byte, error) {
	return TranslateWithOptions(abi, alloc, DefaultOptions(), instrs)
}

// TranslateWithOptions is Translate with explicit tunables.
func TranslateWithOptions(abi ABI, alloc *regalloc.Allocation, opts Options, instrs []isa.Instruction) ([]byte, error) {
	if opts.SpillSlotBytes < 4 {
		opts.SpillSlotBytes = 8
	}
	bt := &BlockTranslator{abi: abi, alloc: alloc, opts: opts, e: x64.NewEmitter()}
	bt.emitPrologue()

	for _, in := range instrs {
		if in.Cond == isa.AL {
			if err := bt.emitOp(in); err != nil {
				return nil, err
			}
			continue
		}
		skip := bt.e.NewLabel()
		if err := bt.emitSkipUnless(in.Cond, skip); err != nil {
			return nil, err
		}
		if err := bt.emitOp(in); err != nil {
			return nil, err
		}
		if err := bt.e.Bind(skip); err != nil {
			return nil, wrap("Invalid", "binding condition-skip label", err)
		}
	}

	bt.emitEpilogue()
	code, err := bt.e.Finalize()
	if err != nil {
		return nil, wrap("Invalid", "finalizing emitted code", err)
	}
	return code, nil
}

// TranslateToExecBuffer translates instrs and loads the result into an
// executable buffer, ready to call.
func TranslateToExecBuffer(abi ABI, alloc *regalloc.Allocation, instrs []isa.Instruction) (*execbuf.ExecBuffer, error) {
	code, err := Translate(abi, alloc, instrs)
	if err != nil {
		return nil, err
	}
	buf, err := execbuf.New(code)
	if err != nil {
		return nil, wrap("Invalid", "allocating executable buffer", err)
	}
	return buf, nil
}

func d32(r x64.Reg) x64.Reg { return x64.Reg{Value: r.Value, Size: x64.Doubleword} }

// guestIndex is the offset, in 32-bit words, of a guest register within the
// caller's register array. It mirrors the ARM encoding for R0-PC and
// reserves the next word for the synthetic FLAGS slot.
func guestIndex(r isa.Register) int {
	if r == isa.FLAGS {
		return 16
	}
	return int(r.Uint())
}

// alignFrame pads a spill area so that, once pushedAfterRbp additional
// 8-byte registers have been pushed on top of the already-16-byte-aligned
// post-`push rbp` stack, `sub rsp, frame` leaves rsp 16-byte aligned for the
// guest-visible body of the block.
func alignFrame(spillBytes, pushedAfterRbp int) int32 {
	residue := (8 * pushedAfterRbp) % 16
	raw := int32(spillBytes)
	rem := (int32(residue) + raw) % 16
	if rem == 0 {
		return raw
	}
	return raw + (16 - rem)
}

func (bt *BlockTranslator) spillAddr(slot int) x64.Address {
	return x64.Disp(x64.RSP, int32(bt.opts.SpillSlotBytes*slot))
}

func (bt *BlockTranslator) flagsAddr() x64.Address {
	return bt.spillAddr(bt.alloc.PhysOf(isa.FLAGS).Slot)
}

// emitPrologue dedicates rbp to the incoming guest-state pointer for the
// lifetime of the call, preserves every host register the regalloc mapping
// uses, and loads each guest register's home (physical or spilled) from the
// caller's array.
func (bt *BlockTranslator) emitPrologue() {
	e := bt.e
	e.PushReg(x64.RBP)
	_ = e.MovRegReg(x64.RBP, bt.abi.GuestStateArg)

	phys := bt.alloc.PhysRegistersInUse()
	for _, r := range phys {
		e.PushReg(r)
	}
	bt.pushedPhys = phys

	slots := bt.alloc.SpillSlotCount()
	bt.frame = alignFrame(bt.opts.SpillSlotBytes*slots, len(phys))
	if bt.frame > 0 {
		e.SubRegImm32(x64.RSP, bt.frame)
	}

	for reg := isa.Register(0); reg < isa.NumRegisters; reg++ {
		bt.loadGuestRegAtEntry(reg)
	}
}

func (bt *BlockTranslator) loadGuestRegAtEntry(reg isa.Register) {
	e := bt.e
	src := x64.Disp(x64.RBP, int32(4*guestIndex(reg)))
	loc := bt.alloc.PhysOf(reg)
	if loc.IsSpill {
		e.MovRegAddr(x64.EAX, src)
		e.MovAddrReg(bt.spillAddr(loc.Slot), x64.EAX)
		return
	}
	e.MovRegAddr(d32(loc.Reg), src)
}

// emitEpilogue writes every guest register's current value back to the
// caller's array, unwinds the stack frame, and returns 0.
func (bt *BlockTranslator) emitEpilogue() {
	e := bt.e
	for reg := isa.Register(0); reg < isa.NumRegisters; reg++ {
		bt.storeGuestRegAtExit(reg)
	}
	if bt.frame > 0 {
		e.AddRegImm32(x64.RSP, bt.frame)
	}
	for i := len(bt.pushedPhys) - 1; i >= 0; i-- {
		e.PopReg(bt.pushedPhys[i])
	}
	e.PopReg(x64.RBP)
	_ = e.XorRegReg(x64.EAX, x64.EAX)
	e.Ret()
}

func (bt *BlockTranslator) storeGuestRegAtExit(reg isa.Register) {
	e := bt.e
	dst := x64.Disp(x64.RBP, int32(4*guestIndex(reg)))
	loc := bt.alloc.PhysOf(reg)
	if loc.IsSpill {
		e.MovRegAddr(x64.EAX, bt.spillAddr(loc.Slot))
		e.MovAddrReg(dst, x64.EAX)
		return
	}
	e.MovAddrReg(dst, d32(loc.Reg))
}

func (bt *BlockTranslator) loadReg(scratch x64.Reg, r isa.Register) {
	loc := bt.alloc.PhysOf(r)
	if loc.IsSpill {
		bt.e.MovRegAddr(scratch, bt.spillAddr(loc.Slot))
		return
	}
	_ = bt.e.MovRegReg(scratch, d32(loc.Reg))
}

func (bt *BlockTranslator) storeReg(r isa.Register, scratch x64.Reg) {
	loc := bt.alloc.PhysOf(r)
	if loc.IsSpill {
		bt.e.MovAddrReg(bt.spillAddr(loc.Slot), scratch)
		return
	}
	_ = bt.e.MovRegReg(d32(loc.Reg), scratch)
}

// materializeOperand loads an operand-2 value (register, with its optional
// shift, or immediate) into scratch.
func (bt *BlockTranslator) materializeOperand(scratch x64.Reg, op isa.Operand, extra *isa.ExtraOperand) error {
	switch op.Kind {
	case isa.OperandImm:
		return bt.e.MovRegImm(scratch, int64(op.Imm))
	case isa.OperandReg:
		bt.loadReg(scratch, op.Reg)
		if extra != nil && extra.Kind == isa.ExtraShift {
			return bt.emitShift(scratch, extra.Shift)
		}
		return nil
	default:
		return invalidInstr("operand2 must be a register or immediate")
	}
}

// emitShift applies a shifter operand to reg in place. Register-specified
// shift amounts are out of scope for v1; RRX is approximated by
// priming the host carry flag from the guest C bit and rotating through it,
// which loses nothing in the common case but does not model a shift amount
// of exactly 32 producing a fresh carry-out independent of rotation parity.
func (bt *BlockTranslator) emitShift(reg x64.Reg, s isa.Shift) error {
	e := bt.e
	if !s.HasAny {
		return nil
	}
	if s.IsReg {
		return unimplemented("register-specified shift amounts are not translated in v1")
	}
	switch s.Type {
	case isa.LSL:
		if s.Imm > 0 {
			e.ShlRegImm8(reg, uint8(s.Imm))
		}
	case isa.LSR:
		switch {
		case s.Imm >= 32:
			_ = e.XorRegReg(reg, reg)
		case s.Imm > 0:
			e.ShrRegImm8(reg, uint8(s.Imm))
		}
	case isa.ASR:
		imm := s.Imm
		if imm > 31 {
			imm = 31
		}
		if imm > 0 {
			e.SarRegImm8(reg, uint8(imm))
		}
	case isa.ROR:
		if s.Imm%32 != 0 {
			e.RorRegImm8(reg, uint8(s.Imm%32))
		}
	case isa.RRX:
		bt.emitPrimeCarryFromGuestFlags(reg, false)
		e.RcrRegImm8(reg, 1)
	}
	return nil
}

// emitPrimeCarryFromGuestFlags sets the host carry flag from the guest C
// bit (inverted when invert is true) ahead of an RRX rotate or an
// ADC/SBC-style carry-in ALU op, using whichever of ecx/edx isn't reg.
// invert covers the borrow-polarity difference between the two ISAs: ARM
// subtracts NOT(C) on SBC/RSC while x86 SBB subtracts CF directly.
func (bt *BlockTranslator) emitPrimeCarryFromGuestFlags(reg x64.Reg, invert bool) {
	e := bt.e
	tmp := x64.EDX
	if reg.Value == tmp.Value {
		tmp = x64.ECX
	}
	e.MovRegAddr(tmp, bt.flagsAddr())
	e.AluRegImm32(x64.AluAnd, tmp, 1<<29)
	_ = e.TestRegReg(tmp, tmp)
	onSet, onClear := e.Stc, e.Clc
	if invert {
		onSet, onClear = e.Clc, e.Stc
	}
	// These jumps span one or two fixed-size instructions, so the short
	// form is always statically safe when preferred.
	short := bt.opts.PreferShortJumps
	setLabel := e.NewLabel()
	doneLabel := e.NewLabel()
	e.CondJmpLabel(x64.CC_NE, setLabel, short)
	onClear()
	e.JmpLabel(doneLabel, short)
	_ = e.Bind(setLabel)
	onSet()
	_ = e.Bind(doneLabel)
}

// emitWriteFlagsFromSnapshot rebuilds the guest FLAGS word from a raw
// RFLAGS value captured via pushfq/pop immediately after the instruction
// that set it. N and Z always come from the host SF/ZF, which match ARM's
// definitions regardless of operation. C and V are only meaningful for
// arithmetic (updateCV); carryInverted accounts for x86 CF meaning "borrow
// occurred" on SUB while ARM's C means "no borrow occurred".
// Logical ops leave the existing C/V bits in place, matching ARM's
// unaffected-unless-shifter-carry behavior (shifter carry-out is not
// modeled in v1).
func (bt *BlockTranslator) emitWriteFlagsFromSnapshot(snapshot x64.Reg, updateCV, carryInverted bool) {
	e := bt.e
	snap := d32(snapshot)
	acc := x64.ECX
	tmp := x64.EAX

	_ = e.XorRegReg(acc, acc)

	e.MovRegReg(tmp, snap)
	e.ShrRegImm8(tmp, 7)
	e.AluRegImm32(x64.AluAnd, tmp, 1)
	e.ShlRegImm8(tmp, 31)
	_ = e.OrRegReg(acc, tmp)

	e.MovRegReg(tmp, snap)
	e.ShrRegImm8(tmp, 6)
	e.AluRegImm32(x64.AluAnd, tmp, 1)
	e.ShlRegImm8(tmp, 30)
	_ = e.OrRegReg(acc, tmp)

	if updateCV {
		e.MovRegReg(tmp, snap)
		e.AluRegImm32(x64.AluAnd, tmp, 1)
		if carryInverted {
			e.AluRegImm32(x64.AluXor, tmp, 1)
		}
		e.ShlRegImm8(tmp, 29)
		_ = e.OrRegReg(acc, tmp)

		e.MovRegReg(tmp, snap)
		e.ShrRegImm8(tmp, 11)
		e.AluRegImm32(x64.AluAnd, tmp, 1)
		e.ShlRegImm8(tmp, 28)
		_ = e.OrRegReg(acc, tmp)
	} else {
		e.MovRegAddr(tmp, bt.flagsAddr())
		e.AluRegImm32(x64.AluAnd, tmp, int32(1<<29|1<<28))
		_ = e.OrRegReg(acc, tmp)
	}

	e.MovAddrReg(bt.flagsAddr(), acc)
}

// emitSkipUnless emits code that jumps to skip when cond does not hold
// against the guest FLAGS word, without ever reading host ALU flags for
// the test: every bit test is a load-mask-compare sequence against the
// explicit guest FLAGS memory.
func (bt *BlockTranslator) emitSkipUnless(cond isa.Cond, skip x64.Label) error {
	if cond == isa.AL {
		return nil
	}
	e := bt.e
	addr := bt.flagsAddr()
	const nMask, zMask, cMask, vMask = int32(-1 << 31), int32(1 << 30), int32(1 << 29), int32(1 << 28)

	// Jumps to cont span at most one more compare pair plus the near jump
	// to skip, so the short form is statically safe when preferred; jumps
	// to skip cross the whole guest instruction and must stay near.
	short := bt.opts.PreferShortJumps
	maskEquals := func(mask int32, targets []int32, matchMeansTrue bool) {
		e.MovRegAddr(x64.EAX, addr)
		e.AluRegImm32(x64.AluAnd, x64.EAX, mask)
		if matchMeansTrue {
			cont := e.NewLabel()
			for _, v := range targets {
				e.AluRegImm32(x64.AluCmp, x64.EAX, v)
				e.CondJmpLabel(x64.CC_E, cont, short)
			}
			e.JmpLabel(skip, false)
			_ = e.Bind(cont)
		} else {
			for _, v := range targets {
				e.AluRegImm32(x64.AluCmp, x64.EAX, v)
				e.CondJmpLabel(x64.CC_E, skip, false)
			}
		}
	}

	switch cond {
	case isa.EQ:
		maskEquals(zMask, []int32{zMask}, true)
	case isa.NE:
		maskEquals(zMask, []int32{zMask}, false)
	case isa.CS:
		maskEquals(cMask, []int32{cMask}, true)
	case isa.CC:
		maskEquals(cMask, []int32{cMask}, false)
	case isa.MI:
		maskEquals(nMask, []int32{nMask}, true)
	case isa.PL:
		maskEquals(nMask, []int32{nMask}, false)
	case isa.VS:
		maskEquals(vMask, []int32{vMask}, true)
	case isa.VC:
		maskEquals(vMask, []int32{vMask}, false)
	case isa.HI:
		maskEquals(cMask|zMask, []int32{cMask}, true)
	case isa.LS:
		maskEquals(cMask|zMask, []int32{cMask}, false)
	case isa.GE:
		maskEquals(nMask|vMask, []int32{0, nMask | vMask}, true)
	case isa.LT:
		maskEquals(nMask|vMask, []int32{0, nMask | vMask}, false)
	case isa.GT:
		maskEquals(nMask|zMask|vMask, []int32{0, nMask | vMask}, true)
	case isa.LE:
		maskEquals(nMask|zMask|vMask, []int32{0, nMask | vMask}, false)
	default:
		return invalidInstr(fmt.Sprintf("unhandled condition %s", cond))
	}
	return nil
}

// writesPC reports whether in's destination operand is the guest PC, which
// makes it a control-flow instruction this translator does not retarget.
func writesPC(in isa.Instruction) bool {
	switch in.Op {
	case isa.CMP, isa.CMN, isa.TST, isa.TEQ, isa.B, isa.BL, isa.BX:
		return false
	}
	if len(in.Operands) == 0 {
		return false
	}
	first := in.Operands[0]
	return first.Kind == isa.OperandReg && first.Reg == isa.PC
}

func shiftTypeForOp(op isa.Op) isa.ShiftType {
	switch op {
	case isa.LSLOp:
		return isa.LSL
	case isa.LSROp:
		return isa.LSR
	case isa.ASROp:
		return isa.ASR
	case isa.ROROp:
		return isa.ROR
	default:
		return isa.LSL
	}
}

// emitOp dispatches a single guest instruction to host code. Ops this
// translator does not build code for return Unimplemented; any write to
// the guest PC returns BranchUnsupported.
func (bt *BlockTranslator) emitOp(in isa.Instruction) error {
	if writesPC(in) {
		return branchUnsupported()
	}
	switch in.Op {
	case isa.NOP:
		return nil
	case isa.B, isa.BL, isa.BX:
		return branchUnsupported()
	case isa.MOV, isa.MVN:
		return bt.emitMoveClass(in)
	case isa.AND, isa.ORR, isa.EOR, isa.BIC:
		return bt.emitLogicalClass(in)
	case isa.ADD, isa.SUB, isa.RSB, isa.ADC, isa.SBC, isa.RSC, isa.CMP, isa.CMN:
		return bt.emitArithClass(in)
	case isa.TST, isa.TEQ:
		return bt.emitLogicalCompareClass(in)
	case isa.LSLOp, isa.LSROp, isa.ASROp, isa.ROROp, isa.RRXOP:
		return bt.emitShiftMnemonic(in)
	case isa.ADR:
		return unimplemented("ADR (PC-relative address formation) is not translated in v1")
	case isa.LDR, isa.STR, isa.LDRB, isa.STRB, isa.LDRT, isa.STRT, isa.LDRBT, isa.STRBT, isa.LDRH, isa.STRH, isa.LDRSB, isa.LDRSH:
		return unimplemented(in.Op.String() + ": guest memory access is not translated in v1 (the host ABI carries no guest-memory pointer)")
	case isa.MUL, isa.MLA:
		return bt.emitMultiplyClass(in)
	case isa.UMULL, isa.UMLAL, isa.SMULL, isa.SMLAL:
		return bt.emitLongMultiplyClass(in)
	case isa.LDM, isa.STM, isa.PUSH, isa.POP, isa.SWP, isa.SWPB, isa.SWI, isa.MRS, isa.MSR:
		return unimplemented(in.Op.String() + " is not translated in v1")
	default:
		return unimplemented(in.Op.String())
	}
}

// emitArithClass handles ADD/SUB/RSB and their carry-in forms ADC/SBC/RSC
// (3-operand, with destination), plus CMP/CMN (2-operand, result discarded
// but flags always written).
func (bt *BlockTranslator) emitArithClass(in isa.Instruction) error {
	e := bt.e
	var rd isa.Register
	var rn isa.Register
	var op2 isa.Operand
	hasDest := true

	switch in.Op {
	case isa.CMP, isa.CMN:
		hasDest = false
		rn = in.Operands[0].Reg
		op2 = in.Operands[1]
	default:
		rd = in.Operands[0].Reg
		rn = in.Operands[1].Reg
		op2 = in.Operands[2]
	}

	a, b := x64.EAX, x64.ECX
	if in.Op == isa.RSB || in.Op == isa.RSC {
		// Rd = Op2 - Rn: load Op2 into the minuend slot, Rn into the
		// subtrahend slot, so the emitted SUB computes the right order.
		bt.loadReg(b, rn)
		if err := bt.materializeOperand(a, op2, in.Extra); err != nil {
			return err
		}
	} else {
		bt.loadReg(a, rn)
		if err := bt.materializeOperand(b, op2, in.Extra); err != nil {
			return err
		}
	}

	var aluOp x64.AluOp
	switch in.Op {
	case isa.ADD, isa.CMN:
		aluOp = x64.AluAdd
	case isa.SUB, isa.RSB, isa.CMP:
		aluOp = x64.AluSub
	case isa.ADC:
		aluOp = x64.AluAdc
	case isa.SBC, isa.RSC:
		aluOp = x64.AluSbb
	}
	switch aluOp {
	case x64.AluAdc:
		bt.emitPrimeCarryFromGuestFlags(a, false)
	case x64.AluSbb:
		// ARM subtracts NOT(C); SBB subtracts CF, so the primed bit flips.
		bt.emitPrimeCarryFromGuestFlags(a, true)
	}
	if err := e.AluRegReg(aluOp, a, b); err != nil {
		return err
	}

	subLike := aluOp == x64.AluSub || aluOp == x64.AluSbb
	if in.SetFlags {
		e.Pushfq()
		e.PopReg(x64.RDX)
	}
	if hasDest {
		bt.storeReg(rd, a)
	}
	if in.SetFlags {
		bt.emitWriteFlagsFromSnapshot(x64.RDX, true, subLike)
	}
	return nil
}

// emitMultiplyClass handles MUL (Rd = Rm * Rs) and MLA (Rd = Rm * Rs + Rn).
// The low 32 bits of the product are identical for signed and unsigned
// inputs, so a single imul form covers both. MULS/MLAS set only N and Z;
// ARM leaves C meaningless and V untouched for multiplies.
func (bt *BlockTranslator) emitMultiplyClass(in isa.Instruction) error {
	e := bt.e
	rd := in.Operands[0].Reg
	rm := in.Operands[1].Reg
	rs := in.Operands[2].Reg

	bt.loadReg(x64.EAX, rm)
	bt.loadReg(x64.ECX, rs)
	if err := e.ImulRegReg(x64.EAX, x64.ECX); err != nil {
		return err
	}
	if in.Op == isa.MLA {
		bt.loadReg(x64.ECX, in.Operands[3].Reg)
		if err := e.AddRegReg(x64.EAX, x64.ECX); err != nil {
			return err
		}
	}

	if in.SetFlags {
		_ = e.TestRegReg(x64.EAX, x64.EAX)
		e.Pushfq()
		e.PopReg(x64.RDX)
	}
	bt.storeReg(rd, x64.EAX)
	if in.SetFlags {
		bt.emitWriteFlagsFromSnapshot(x64.RDX, false, false)
	}
	return nil
}

// emitLongMultiplyClass handles UMULL/SMULL (RdHi:RdLo = Rm * Rs) and their
// accumulating forms UMLAL/SMLAL (RdHi:RdLo += Rm * Rs), by widening both
// operands to 64 bits and using one host 64-bit multiply. For the S forms,
// N and Z reflect the full 64-bit result.
func (bt *BlockTranslator) emitLongMultiplyClass(in isa.Instruction) error {
	e := bt.e
	rdLo := in.Operands[0].Reg
	rdHi := in.Operands[1].Reg
	rm := in.Operands[2].Reg
	rs := in.Operands[3].Reg
	signed := in.Op == isa.SMULL || in.Op == isa.SMLAL
	accumulate := in.Op == isa.UMLAL || in.Op == isa.SMLAL

	// A 32-bit load zero-extends into the full host register, which is
	// exactly the unsigned widening; the signed forms re-extend explicitly.
	bt.loadReg(x64.EAX, rm)
	bt.loadReg(x64.ECX, rs)
	if signed {
		if err := e.MovsxdRegReg(x64.RAX, x64.EAX); err != nil {
			return err
		}
		if err := e.MovsxdRegReg(x64.RCX, x64.ECX); err != nil {
			return err
		}
	}
	if err := e.ImulRegReg(x64.RAX, x64.RCX); err != nil {
		return err
	}

	if accumulate {
		bt.loadReg(x64.EDX, rdHi)
		e.ShlRegImm8(x64.RDX, 32)
		bt.loadReg(x64.ECX, rdLo)
		if err := e.OrRegReg(x64.RDX, x64.RCX); err != nil {
			return err
		}
		if err := e.AddRegReg(x64.RAX, x64.RDX); err != nil {
			return err
		}
	}

	if in.SetFlags {
		_ = e.TestRegReg(x64.RAX, x64.RAX)
		e.Pushfq()
		e.PopReg(x64.RDX)
	}
	bt.storeReg(rdLo, x64.EAX)
	_ = e.MovRegReg(x64.RCX, x64.RAX)
	e.ShrRegImm8(x64.RCX, 32)
	bt.storeReg(rdHi, x64.ECX)
	if in.SetFlags {
		bt.emitWriteFlagsFromSnapshot(x64.RDX, false, false)
	}
	return nil
}

// emitLogicalClass handles AND/ORR/EOR/BIC (3-operand, with destination).
func (bt *BlockTranslator) emitLogicalClass(in isa.Instruction) error {
	e := bt.e
	rd := in.Operands[0].Reg
	rn := in.Operands[1].Reg
	op2 := in.Operands[2]

	bt.loadReg(x64.EAX, rn)
	if err := bt.materializeOperand(x64.ECX, op2, in.Extra); err != nil {
		return err
	}

	var aluOp x64.AluOp
	switch in.Op {
	case isa.AND:
		aluOp = x64.AluAnd
	case isa.ORR:
		aluOp = x64.AluOr
	case isa.EOR:
		aluOp = x64.AluXor
	case isa.BIC:
		e.NotReg(x64.ECX)
		aluOp = x64.AluAnd
	}
	if err := e.AluRegReg(aluOp, x64.EAX, x64.ECX); err != nil {
		return err
	}

	if in.SetFlags {
		e.Pushfq()
		e.PopReg(x64.RDX)
	}
	bt.storeReg(rd, x64.EAX)
	if in.SetFlags {
		bt.emitWriteFlagsFromSnapshot(x64.RDX, false, false)
	}
	return nil
}

// emitLogicalCompareClass handles TST/TEQ: always set_flags, result
// discarded.
func (bt *BlockTranslator) emitLogicalCompareClass(in isa.Instruction) error {
	e := bt.e
	rn := in.Operands[0].Reg
	op2 := in.Operands[1]

	bt.loadReg(x64.EAX, rn)
	if err := bt.materializeOperand(x64.ECX, op2, in.Extra); err != nil {
		return err
	}
	aluOp := x64.AluAnd
	if in.Op == isa.TEQ {
		aluOp = x64.AluXor
	}
	if err := e.AluRegReg(aluOp, x64.EAX, x64.ECX); err != nil {
		return err
	}
	e.Pushfq()
	e.PopReg(x64.RDX)
	bt.emitWriteFlagsFromSnapshot(x64.RDX, false, false)
	return nil
}

// emitMoveClass handles MOV/MVN (2-operand, with destination).
func (bt *BlockTranslator) emitMoveClass(in isa.Instruction) error {
	e := bt.e
	rd := in.Operands[0].Reg
	src := in.Operands[1]

	if err := bt.materializeOperand(x64.EAX, src, in.Extra); err != nil {
		return err
	}
	if in.Op == isa.MVN {
		e.NotReg(x64.EAX)
	}
	if in.SetFlags {
		// MOV/MVN are data movement, not arithmetic: derive Z/N directly
		// from the moved value via a flags-only TEST.
		_ = e.TestRegReg(x64.EAX, x64.EAX)
		e.Pushfq()
		e.PopReg(x64.RDX)
	}
	bt.storeReg(rd, x64.EAX)
	if in.SetFlags {
		bt.emitWriteFlagsFromSnapshot(x64.RDX, false, false)
	}
	return nil
}

// emitShiftMnemonic handles the dedicated LSL/LSR/ASR/ROR/RRX mnemonics UAL
// uses when a MOV's source shift has a non-zero amount.
func (bt *BlockTranslator) emitShiftMnemonic(in isa.Instruction) error {
	e := bt.e
	rd := in.Operands[0].Reg
	rm := in.Operands[1].Reg
	bt.loadReg(x64.EAX, rm)

	var shift isa.Shift
	if in.Op == isa.RRXOP {
		shift = isa.Shift{Type: isa.RRX, Imm: 1, HasAny: true}
	} else {
		amt := in.Operands[2]
		if amt.Kind == isa.OperandReg {
			return unimplemented("register-specified shift amounts are not translated in v1")
		}
		shift = isa.Shift{Type: shiftTypeForOp(in.Op), Imm: amt.Imm, HasAny: true}
	}
	if err := bt.emitShift(x64.EAX, shift); err != nil {
		return err
	}

	if in.SetFlags {
		_ = e.TestRegReg(x64.EAX, x64.EAX)
		e.Pushfq()
		e.PopReg(x64.RDX)
	}
	bt.storeReg(rd, x64.EAX)
	if in.SetFlags {
		bt.emitWriteFlagsFromSnapshot(x64.RDX, false, false)
	}
	return nil
}
