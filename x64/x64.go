// Package x64 is a precise encoder for the subset of x86_64 the translator
// needs: REX/ModR/M/SIB-aware register and memory operands, the handful of
// instruction forms the block translator emits, and label bookkeeping for
// forward-referenced jumps.
package x64

import "fmt"

// OperandSize is the width of a register or memory operand.
type OperandSize int

const (
	Byte OperandSize = 8
	Word OperandSize = 16
	Doubleword OperandSize = 32
	Quadword OperandSize = 64
)

// Reg is a host general-purpose register at a given operand size.
type Reg struct {
	Value uint8 // 0-15
	Size  OperandSize
}

func (r Reg) needsREX() bool { return r.Value >= 8 }

// reg3 returns the low 3 bits used in ModR/M/SIB/opcode-extension fields.
func (r Reg) reg3() uint8 { return r.Value & 0x7 }

// msb returns the REX extension bit (R/X/B) for this register.
func (r Reg) msb() uint8 {
	if r.needsREX() {
		return 1
	}
	return 0
}

func reg(v uint8, size OperandSize) Reg { return Reg{Value: v, Size: size} }

// Byte-size registers.
var (
	AL, CL, DL, BL, SPL, BPL, SIL, DIL             = reg(0, Byte), reg(1, Byte), reg(2, Byte), reg(3, Byte), reg(4, Byte), reg(5, Byte), reg(6, Byte), reg(7, Byte)
	R8B, R9B, R10B, R11B, R12B, R13B, R14B, R15B   = reg(8, Byte), reg(9, Byte), reg(10, Byte), reg(11, Byte), reg(12, Byte), reg(13, Byte), reg(14, Byte), reg(15, Byte)
)

// Word-size registers.
var (
	AX, CX, DX, BX, SP16, BP16, SI, DI       = reg(0, Word), reg(1, Word), reg(2, Word), reg(3, Word), reg(4, Word), reg(5, Word), reg(6, Word), reg(7, Word)
	R8W, R9W, R10W, R11W, R12W, R13W, R14W, R15W = reg(8, Word), reg(9, Word), reg(10, Word), reg(11, Word), reg(12, Word), reg(13, Word), reg(14, Word), reg(15, Word)
)

// Doubleword-size registers.
var (
	EAX, ECX, EDX, EBX, ESP, EBP, ESI, EDI         = reg(0, Doubleword), reg(1, Doubleword), reg(2, Doubleword), reg(3, Doubleword), reg(4, Doubleword), reg(5, Doubleword), reg(6, Doubleword), reg(7, Doubleword)
	R8D, R9D, R10D, R11D, R12D, R13D, R14D, R15D   = reg(8, Doubleword), reg(9, Doubleword), reg(10, Doubleword), reg(11, Doubleword), reg(12, Doubleword), reg(13, Doubleword), reg(14, Doubleword), reg(15, Doubleword)
)

// Quadword-size registers.
var (
	RAX, RCX, RDX, RBX, RSP, RBP, RSI, RDI         = reg(0, Quadword), reg(1, Quadword), reg(2, Quadword), reg(3, Quadword), reg(4, Quadword), reg(5, Quadword), reg(6, Quadword), reg(7, Quadword)
	R8, R9, R10, R11, R12, R13, R14, R15           = reg(8, Quadword), reg(9, Quadword), reg(10, Quadword), reg(11, Quadword), reg(12, Quadword), reg(13, Quadword), reg(14, Quadword), reg(15, Quadword)
)

const (
	sibRM   = 0b100
	pcRelRM = 0b101
	pref16  = 0x66
)

// Mod is the ModR/M mod field: how a displacement (if any) is encoded.
type Mod int

const (
	NoDisp Mod = iota
	Disp8
	Disp32
	ModValue // register-direct operand (no memory reference)
)

// modFromDisp chooses the narrowest Mod that can represent disp.
func modFromDisp(disp int32) Mod {
	if disp == 0 {
		return NoDisp
	}
	if disp >= -128 && disp <= 127 {
		return Disp8
	}
	return Disp32
}

// Index is a scaled index register in a SIB addressing form.
type Index struct {
	Reg   Reg
	Scale uint8 // 1, 2, 4, or 8
}

// Address is a memory operand: base register, optional scaled index, an
// explicit Mod, and a displacement.
type Address struct {
	Base   Reg
	Mod    Mod
	Index  Index
	HasSIB bool
	Disp   int32
}

// Disp builds a base+displacement address with no index, choosing Mod from
// the displacement's magnitude.
func Disp(base Reg, displacement int32) Address {
	return Address{Base: base, Mod: modFromDisp(displacement), Disp: displacement}
}

// SIB builds a base+scaled-index+displacement address. It panics if scale is
// not one of {1,2,4,8}, if the index and base sizes differ, or if the index
// register is RSP/ESP — the index-cannot-be-RSP precondition is a programmer
// error, not a recoverable EncodingError.
func SIB(scale uint8, index Reg, base Reg, displacement int32) Address {
	if scale != 1 && scale != 2 && scale != 4 && scale != 8 {
		panic(fmt.Sprintf("x64: invalid SIB scale %d", scale))
	}
	if index.Size != base.Size {
		panic("x64: SIB index and base must share operand size")
	}
	if index.Value == 0b100 {
		panic("x64: SIB index register cannot be RSP/ESP")
	}
	return Address{
		Base: base, Mod: modFromDisp(displacement),
		Index: Index{Reg: index, Scale: scale}, HasSIB: true, Disp: displacement,
	}
}

// EncodingError is the error kind raised by the emitter on out-of-range
// immediates/displacements, label misuse, or operand-size mismatches.
type EncodingError struct {
	Kind    string // OutOfRange, DoubleBind, UnresolvedLabel, OperandSizeMismatch
	Message string
}

func (e *EncodingError) Error() string { return fmt.Sprintf("x64: %s: %s", e.Kind, e.Message) }

func outOfRange(msg string) error          { return &EncodingError{Kind: "OutOfRange", Message: msg} }
func doubleBind(msg string) error          { return &EncodingError{Kind: "DoubleBind", Message: msg} }
func unresolvedLabel(msg string) error     { return &EncodingError{Kind: "UnresolvedLabel", Message: msg} }
func operandSizeMismatch(msg string) error { return &EncodingError{Kind: "OperandSizeMismatch", Message: msg} }

// Label identifies a fixup target within an Emitter's buffer.
type Label int

type fixup struct {
	offset int
	width  int // 1 or 4 bytes
	label  Label
}

type labelState struct {
	bound  bool
	offset int
}

// Emitter accumulates host machine code into an append-only buffer and
// resolves forward-referenced jump targets at Finalize.
type Emitter struct {
	buf     []byte
	labels  []labelState
	fixups  []fixup
}

func NewEmitter() *Emitter { return &Emitter{} }

func (e *Emitter) Bytes() []byte { return e.buf }
func (e *Emitter) Len() int      { return len(e.buf) }

// NewLabel returns a fresh, unbound label.
func (e *Emitter) NewLabel() Label {
	e.labels = append(e.labels, labelState{})
	return Label(len(e.labels) - 1)
}

// Bind records the current buffer offset as the label's target. Binding an
// already-bound label is an EncodingError (DoubleBind).
func (e *Emitter) Bind(l Label) error {
	if e.labels[l].bound {
		return doubleBind(fmt.Sprintf("label %d already bound", l))
	}
	e.labels[l] = labelState{bound: true, offset: len(e.buf)}
	return nil
}

// Finalize patches every fixup against its now-bound label and returns the
// completed byte sequence. Any fixup whose label is still unbound is an
// EncodingError (UnresolvedLabel).
func (e *Emitter) Finalize() ([]byte, error) {
	for _, f := range e.fixups {
		st := e.labels[f.label]
		if !st.bound {
			return nil, unresolvedLabel(fmt.Sprintf("label %d never bound", f.label))
		}
		rel := int64(st.offset) - int64(f.offset+f.width)
		switch f.width {
		case 1:
			if rel < -128 || rel > 127 {
				return nil, outOfRange(fmt.Sprintf("short jump displacement %d out of range", rel))
			}
			e.buf[f.offset] = byte(int8(rel))
		case 4:
			if rel < -2147483648 || rel > 2147483647 {
				return nil, outOfRange(fmt.Sprintf("near jump displacement %d out of range", rel))
			}
			putInt32(e.buf[f.offset:], int32(rel))
		}
	}
	return e.buf, nil
}

func putInt32(b []byte, v int32) {
	u := uint32(v)
	b[0] = byte(u)
	b[1] = byte(u >> 8)
	b[2] = byte(u >> 16)
	b[3] = byte(u >> 24)
}

func (e *Emitter) emitByte(b byte) { e.buf = append(e.buf, b) }

func (e *Emitter) emitImm32(v int32) {
	e.buf = append(e.buf, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func (e *Emitter) emitImm64(v int64) {
	u := uint64(v)
	for i := 0; i < 8; i++ {
		e.buf = append(e.buf, byte(u>>(8*uint(i))))
	}
}

// rexPrefix builds the REX byte: 0100WRXB. w forces REX.W (64-bit operand
// size); reg supplies the REX.R extension bit; rmOrBase and index supply
// REX.B and REX.X.
func rexPrefix(w bool, reg Reg, rmOrBase Reg, index *Reg) byte {
	var wBit, rBit, xBit, bBit byte
	if w {
		wBit = 1
	}
	rBit = reg.msb()
	bBit = rmOrBase.msb()
	if index != nil {
		xBit = index.msb()
	}
	return 0x40 | (wBit << 3) | (rBit << 2) | (xBit << 1) | bBit
}

func needsRexForAddr(a Address) bool {
	if a.Base.needsREX() {
		return true
	}
	if a.HasSIB && a.Index.Reg.needsREX() {
		return true
	}
	return false
}

// emitRexReg emits the 0x66 operand-size override for 16-bit operands and a
// REX prefix (if operand size is 64-bit, or either register indexes r8-r15)
// ahead of a register-direct ModR/M form. Legacy prefixes must precede REX,
// which must immediately precede the opcode.
func (e *Emitter) emitRexReg(regOperand, rm Reg) {
	if regOperand.Size == Word {
		e.emitByte(pref16)
	}
	w := regOperand.Size == Quadword
	if w || regOperand.needsREX() || rm.needsREX() {
		e.emitByte(rexPrefix(w, regOperand, rm, nil))
	}
}

// emitRexAddr is emitRexReg for a register+memory ModR/M form.
func (e *Emitter) emitRexAddr(regOperand Reg, addr Address) {
	if regOperand.Size == Word {
		e.emitByte(pref16)
	}
	w := regOperand.Size == Quadword
	var index *Reg
	if addr.HasSIB {
		index = &addr.Index.Reg
	}
	if w || regOperand.needsREX() || needsRexForAddr(addr) {
		e.emitByte(rexPrefix(w, regOperand, addr.Base, index))
	}
}

func modRMByte(mod Mod, regOrOp, rm uint8) byte {
	var modBits uint8
	switch mod {
	case NoDisp:
		modBits = 0b00
	case Disp8:
		modBits = 0b01
	case Disp32:
		modBits = 0b10
	case ModValue:
		modBits = 0b11
	}
	return (modBits << 6) | ((regOrOp & 0x7) << 3) | (rm & 0x7)
}

func sibByte(scale uint8, index, base uint8) byte {
	var ss uint8
	switch scale {
	case 1:
		ss = 0
	case 2:
		ss = 1
	case 4:
		ss = 2
	case 8:
		ss = 3
	}
	return (ss << 6) | ((index & 0x7) << 3) | (base & 0x7)
}

// emitModRMReg emits a register-direct ModR/M operand (mod == 11).
func (e *Emitter) emitModRMReg(regOrOp uint8, rm Reg) {
	e.emitByte(modRMByte(ModValue, regOrOp, rm.reg3()))
}

// emitModRMAddr emits a memory ModR/M operand, including the RBP/R13
// no-NoDisp-encoding upgrade and the RSP/R12-always-needs-SIB rule.
func (e *Emitter) emitModRMAddr(regOrOp uint8, addr Address) {
	mod := addr.Mod
	baseLow := addr.Base.reg3()

	// RBP/R13 (low bits 101) have no NoDisp encoding; that bit pattern in
	// mod==00 means RIP-relative instead, so upgrade to Disp8(#0).
	if baseLow == pcRelRM && mod == NoDisp {
		mod = Disp8
	}

	needsSIB := addr.HasSIB || baseLow == sibRM
	rm := baseLow
	if needsSIB {
		rm = sibRM
	}
	e.emitByte(modRMByte(mod, regOrOp, rm))

	if needsSIB {
		if addr.HasSIB {
			e.emitByte(sibByte(addr.Index.Scale, addr.Index.Reg.reg3(), baseLow))
		} else {
			// No explicit index: SIB encodes index=100 (none), scale=1.
			e.emitByte(sibByte(1, 0b100, baseLow))
		}
	}

	switch mod {
	case Disp8:
		e.emitByte(byte(int8(addr.Disp)))
	case Disp32:
		e.emitImm32(addr.Disp)
	}
}

func sameSize(a, b Reg) error {
	if a.Size != b.Size {
		return operandSizeMismatch(fmt.Sprintf("%d-bit vs %d-bit", a.Size, b.Size))
	}
	return nil
}

// MovRegReg emits `mov dst, src` for same-size register operands.
func (e *Emitter) MovRegReg(dst, src Reg) error {
	if err := sameSize(dst, src); err != nil {
		return err
	}
	e.emitRexReg(src, dst)
	e.emitByte(0x89)
	e.emitModRMReg(src.reg3(), dst)
	return nil
}

// MovRegAddr emits `mov dst, [addr]`.
func (e *Emitter) MovRegAddr(dst Reg, addr Address) {
	e.emitRexAddr(dst, addr)
	e.emitByte(0x8B)
	e.emitModRMAddr(dst.reg3(), addr)
}

// MovAddrReg emits `mov [addr], src`.
func (e *Emitter) MovAddrReg(addr Address, src Reg) {
	e.emitRexAddr(src, addr)
	e.emitByte(0x89)
	e.emitModRMAddr(src.reg3(), addr)
}

// MovRegImm emits `mov dst, imm`, supporting 32- and 64-bit immediates.
func (e *Emitter) MovRegImm(dst Reg, imm int64) error {
	switch dst.Size {
	case Doubleword:
		if imm < -2147483648 || imm > 4294967295 {
			return outOfRange("32-bit mov immediate out of range")
		}
		if dst.needsREX() {
			e.emitByte(rexPrefix(false, reg(0, Doubleword), dst, nil))
		}
		e.emitByte(0xB8 | dst.reg3())
		e.emitImm32(int32(imm))
		return nil
	case Quadword:
		e.emitByte(rexPrefix(true, reg(0, Quadword), dst, nil))
		e.emitByte(0xB8 | dst.reg3())
		e.emitImm64(imm)
		return nil
	default:
		return operandSizeMismatch("MovRegImm only supports 32/64-bit destinations")
	}
}

// MovAddrImm32 emits `mov dword [addr], imm32`.
func (e *Emitter) MovAddrImm32(addr Address, imm int32) {
	e.emitRexAddr(reg(0, Doubleword), addr)
	e.emitByte(0xC7)
	e.emitModRMAddr(0, addr)
	e.emitImm32(imm)
}

// PushReg emits `push reg` (64-bit only, per the x86_64 stack-operand rule).
func (e *Emitter) PushReg(r Reg) {
	if r.needsREX() {
		e.emitByte(rexPrefix(false, reg(0, Quadword), r, nil))
	}
	e.emitByte(0x50 | r.reg3())
}

// PushAddr emits `push qword [addr]`.
func (e *Emitter) PushAddr(addr Address) {
	if needsRexForAddr(addr) {
		e.emitByte(rexPrefix(false, reg(0, Quadword), addr.Base, sibIndexPtr(addr)))
	}
	e.emitByte(0xFF)
	e.emitModRMAddr(6, addr)
}

// PopReg emits `pop reg`.
func (e *Emitter) PopReg(r Reg) {
	if r.needsREX() {
		e.emitByte(rexPrefix(false, reg(0, Quadword), r, nil))
	}
	e.emitByte(0x58 | r.reg3())
}

// PopAddr emits `pop qword [addr]`.
func (e *Emitter) PopAddr(addr Address) {
	if needsRexForAddr(addr) {
		e.emitByte(rexPrefix(false, reg(0, Quadword), addr.Base, sibIndexPtr(addr)))
	}
	e.emitByte(0x8F)
	e.emitModRMAddr(0, addr)
}

func sibIndexPtr(a Address) *Reg {
	if a.HasSIB {
		return &a.Index.Reg
	}
	return nil
}

// Ret emits a near return.
func (e *Emitter) Ret() { e.emitByte(0xC3) }

// AddAddr emits `add [addr], src`.
func (e *Emitter) AddAddr(addr Address, src Reg) {
	e.emitRexAddr(src, addr)
	e.emitByte(0x01)
	e.emitModRMAddr(src.reg3(), addr)
}

// AluOp is one of the eight x86 ALU operations that share a regular
// register-register opcode and a regular /digit immediate-group opcode.
type AluOp int

const (
	AluAdd AluOp = iota
	AluOr
	AluAdc
	AluSbb
	AluAnd
	AluSub
	AluXor
	AluCmp
)

var aluRegRegOpcode = [...]byte{AluAdd: 0x01, AluOr: 0x09, AluAdc: 0x11, AluSbb: 0x19, AluAnd: 0x21, AluSub: 0x29, AluXor: 0x31, AluCmp: 0x39}
var aluImmDigit = [...]uint8{AluAdd: 0, AluOr: 1, AluAdc: 2, AluSbb: 3, AluAnd: 4, AluSub: 5, AluXor: 6, AluCmp: 7}

// AluRegReg emits the register-register form of add/or/and/sub/xor/cmp:
// `op dst, src`.
func (e *Emitter) AluRegReg(op AluOp, dst, src Reg) error {
	if err := sameSize(dst, src); err != nil {
		return err
	}
	e.emitRexReg(src, dst)
	e.emitByte(aluRegRegOpcode[op])
	e.emitModRMReg(src.reg3(), dst)
	return nil
}

// AluRegImm32 emits the `op dst, imm32` form (opcode 0x81 /digit).
func (e *Emitter) AluRegImm32(op AluOp, dst Reg, imm int32) {
	if dst.Size == Word {
		e.emitByte(pref16)
	}
	w := dst.Size == Quadword
	if w || dst.needsREX() {
		e.emitByte(rexPrefix(w, reg(0, dst.Size), dst, nil))
	}
	e.emitByte(0x81)
	e.emitModRMReg(aluImmDigit[op], dst)
	e.emitImm32(imm)
}

// AddRegReg emits `add dst, src`.
func (e *Emitter) AddRegReg(dst, src Reg) error { return e.AluRegReg(AluAdd, dst, src) }

// SubRegReg emits `sub dst, src`.
func (e *Emitter) SubRegReg(dst, src Reg) error { return e.AluRegReg(AluSub, dst, src) }

// AndRegReg emits `and dst, src`.
func (e *Emitter) AndRegReg(dst, src Reg) error { return e.AluRegReg(AluAnd, dst, src) }

// OrRegReg emits `or dst, src`.
func (e *Emitter) OrRegReg(dst, src Reg) error { return e.AluRegReg(AluOr, dst, src) }

// XorRegReg emits `xor dst, src`.
func (e *Emitter) XorRegReg(dst, src Reg) error { return e.AluRegReg(AluXor, dst, src) }

// AdcRegReg emits `adc dst, src`: add with the host carry flag as carry-in.
func (e *Emitter) AdcRegReg(dst, src Reg) error { return e.AluRegReg(AluAdc, dst, src) }

// SbbRegReg emits `sbb dst, src`: subtract with the host carry flag as borrow-in.
func (e *Emitter) SbbRegReg(dst, src Reg) error { return e.AluRegReg(AluSbb, dst, src) }

// SubRegImm32 emits `sub dst, imm32` (opcode /5).
func (e *Emitter) SubRegImm32(dst Reg, imm int32) { e.AluRegImm32(AluSub, dst, imm) }

// AddRegImm32 emits `add dst, imm32` (opcode /0).
func (e *Emitter) AddRegImm32(dst Reg, imm int32) { e.AluRegImm32(AluAdd, dst, imm) }

// NotReg emits `not dst` (opcode 0xF7 /2): bitwise one's-complement.
func (e *Emitter) NotReg(dst Reg) {
	if dst.Size == Word {
		e.emitByte(pref16)
	}
	w := dst.Size == Quadword
	if w || dst.needsREX() {
		e.emitByte(rexPrefix(w, reg(0, dst.Size), dst, nil))
	}
	e.emitByte(0xF7)
	e.emitModRMReg(2, dst)
}

// CmpRegReg emits `cmp a, b`.
func (e *Emitter) CmpRegReg(a, b Reg) error {
	if err := sameSize(a, b); err != nil {
		return err
	}
	e.emitRexReg(b, a)
	e.emitByte(0x39)
	e.emitModRMReg(b.reg3(), a)
	return nil
}

// TestRegReg emits `test a, b` (bitwise AND, flags only).
func (e *Emitter) TestRegReg(a, b Reg) error {
	if err := sameSize(a, b); err != nil {
		return err
	}
	e.emitRexReg(b, a)
	e.emitByte(0x85)
	e.emitModRMReg(b.reg3(), a)
	return nil
}

// JmpLabel emits an unconditional jump to l. short requests the opportunistic
// 8-bit form; the caller is responsible for only requesting it when the
// distance is statically known to fit. The emitter always honors the request
// and relies on Finalize to report OutOfRange if it doesn't fit.
func (e *Emitter) JmpLabel(l Label, short bool) {
	if short {
		e.emitByte(0xEB)
		e.fixups = append(e.fixups, fixup{offset: len(e.buf), width: 1, label: l})
		e.emitByte(0)
		return
	}
	e.emitByte(0xE9)
	e.fixups = append(e.fixups, fixup{offset: len(e.buf), width: 4, label: l})
	e.emitImm32(0)
}

// CondJmpLabel emits a conditional jump using the given 4-bit x86 condition
// code (see Cond* constants) to l.
func (e *Emitter) CondJmpLabel(cc uint8, l Label, short bool) {
	if short {
		e.emitByte(0x70 | cc)
		e.fixups = append(e.fixups, fixup{offset: len(e.buf), width: 1, label: l})
		e.emitByte(0)
		return
	}
	e.emitByte(0x0F)
	e.emitByte(0x80 | cc)
	e.fixups = append(e.fixups, fixup{offset: len(e.buf), width: 4, label: l})
	e.emitImm32(0)
}

func (e *Emitter) shiftGroup2(digit uint8, dst Reg, imm uint8) {
	if dst.Size == Word {
		e.emitByte(pref16)
	}
	w := dst.Size == Quadword
	if w || dst.needsREX() {
		e.emitByte(rexPrefix(w, reg(0, dst.Size), dst, nil))
	}
	e.emitByte(0xC1)
	e.emitModRMReg(digit, dst)
	e.emitByte(imm)
}

// ShlRegImm8 emits `shl dst, imm8` (opcode 0xC1 /4).
func (e *Emitter) ShlRegImm8(dst Reg, imm uint8) { e.shiftGroup2(4, dst, imm) }

// ShrRegImm8 emits `shr dst, imm8` (opcode 0xC1 /5): logical (unsigned) shift.
func (e *Emitter) ShrRegImm8(dst Reg, imm uint8) { e.shiftGroup2(5, dst, imm) }

// SarRegImm8 emits `sar dst, imm8` (opcode 0xC1 /7): arithmetic (signed) shift.
func (e *Emitter) SarRegImm8(dst Reg, imm uint8) { e.shiftGroup2(7, dst, imm) }

// RorRegImm8 emits `ror dst, imm8` (opcode 0xC1 /1).
func (e *Emitter) RorRegImm8(dst Reg, imm uint8) { e.shiftGroup2(1, dst, imm) }

// RcrRegImm8 emits `rcr dst, imm8` (opcode 0xC1 /3): rotate through carry,
// used to approximate ARM's RRX (rotate-right-extended through the guest
// carry bit) once the host carry flag has been primed from that bit.
func (e *Emitter) RcrRegImm8(dst Reg, imm uint8) { e.shiftGroup2(3, dst, imm) }

// SetCC emits `setcc dst` (opcode 0F 90+cc /0): dst must be a byte-size
// register, set to 1 if the condition holds against the current host
// flags, 0 otherwise.
func (e *Emitter) SetCC(cc uint8, dst Reg) {
	if dst.Value >= 4 && dst.Value < 8 {
		// SPL/BPL/SIL/DIL need a REX prefix to address the low byte
		// instead of the legacy AH/CH/DH/BH encoding.
		e.emitByte(0x40)
	} else if dst.needsREX() {
		e.emitByte(rexPrefix(false, reg(0, Byte), dst, nil))
	}
	e.emitByte(0x0F)
	e.emitByte(0x90 | cc)
	e.emitModRMReg(0, dst)
}

// ImulRegReg emits `imul dst, src` (opcode 0F AF /r): two-operand signed
// multiply, low half of the product into dst. For 32-bit operands the low
// half is identical for signed and unsigned inputs, so the same form serves
// both MUL flavors.
func (e *Emitter) ImulRegReg(dst, src Reg) error {
	if err := sameSize(dst, src); err != nil {
		return err
	}
	e.emitRexReg(dst, src)
	e.emitByte(0x0F)
	e.emitByte(0xAF)
	e.emitModRMReg(dst.reg3(), src)
	return nil
}

// MovsxdRegReg emits `movsxd dst, src` (opcode REX.W 63 /r): sign-extends a
// 32-bit source register into a 64-bit destination.
func (e *Emitter) MovsxdRegReg(dst, src Reg) error {
	if dst.Size != Quadword || src.Size != Doubleword {
		return operandSizeMismatch("movsxd requires a 64-bit destination and 32-bit source")
	}
	e.emitByte(rexPrefix(true, dst, src, nil))
	e.emitByte(0x63)
	e.emitModRMReg(dst.reg3(), src)
	return nil
}

// MovzxRegByte emits `movzx dst, src` (opcode 0F B6 /r): zero-extends an
// 8-bit source into a 32- or 64-bit destination.
func (e *Emitter) MovzxRegByte(dst, src Reg) {
	w := dst.Size == Quadword
	if w || dst.needsREX() || src.needsREX() {
		e.emitByte(rexPrefix(w, dst, src, nil))
	}
	e.emitByte(0x0F)
	e.emitByte(0xB6)
	e.emitModRMReg(dst.reg3(), src)
}

// Stc and Clc prime the host carry flag to a known value (used ahead of
// RcrRegImm8 to feed the guest carry bit into an RRX emulation).
func (e *Emitter) Stc() { e.emitByte(0xF9) }
func (e *Emitter) Clc() { e.emitByte(0xF8) }

// Pushfq/PopReg(RAX-or-similar) is how the translator snapshots the host
// RFLAGS register immediately after an ALU op, to recompute the guest N/Z/C/V
// bits explicitly rather than ever leaving raw host flags live across
// instruction boundaries.
func (e *Emitter) Pushfq() { e.emitByte(0x9C) }

// x86 condition codes used by CondJmpLabel.
const (
	CC_O  uint8 = 0x0
	CC_NO uint8 = 0x1
	CC_B  uint8 = 0x2
	CC_AE uint8 = 0x3
	CC_E  uint8 = 0x4
	CC_NE uint8 = 0x5
	CC_BE uint8 = 0x6
	CC_A  uint8 = 0x7
	CC_S  uint8 = 0x8
	CC_NS uint8 = 0x9
	CC_L  uint8 = 0xC
	CC_GE uint8 = 0xD
	CC_LE uint8 = 0xE
	CC_G  uint8 = 0xF
)
