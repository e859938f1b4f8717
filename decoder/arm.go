// Package decoder recovers a structured isa.Instruction from a raw ARMv4T
// (or Thumb) encoding, dispatching on the ARM architecture reference's
// primary opcode classes. Decoding has no side effects; a reserved or
// self-inconsistent encoding is reported as a DecodeError rather than
// guessed at.
package decoder

import (
	"armjit/bits"
	"armjit/isa"
)

const (
	opAND  = 0x0
	opEOR  = 0x1
	opSUB  = 0x2
	opRSB  = 0x3
	opADD  = 0x4
	opADC  = 0x5
	opSBC  = 0x6
	opRSC  = 0x7
	opTST  = 0x8
	opTEQ  = 0x9
	opCMP  = 0xA
	opCMN  = 0xB
	opORR  = 0xC
	opMOV  = 0xD
	opBIC  = 0xE
	opMVN  = 0xF
)

var opcode4ToOp = [16]isa.Op{
	opAND: isa.AND, opEOR: isa.EOR, opSUB: isa.SUB, opRSB: isa.RSB,
	opADD: isa.ADD, opADC: isa.ADC, opSBC: isa.SBC, opRSC: isa.RSC,
	opTST: isa.TST, opTEQ: isa.TEQ, opCMP: isa.CMP, opCMN: isa.CMN,
	opORR: isa.ORR, opMOV: isa.MOV, opBIC: isa.BIC, opMVN: isa.MVN,
}

func isCompareOpcode(opcode4 uint32) bool {
	switch opcode4 {
	case opTST, opTEQ, opCMP, opCMN:
		return true
	default:
		return false
	}
}

func shiftOpFromBits(v uint32) isa.ShiftType {
	switch v & 0x3 {
	case 0:
		return isa.LSL
	case 1:
		return isa.LSR
	case 2:
		return isa.ASR
	default:
		return isa.ROR
	}
}

// decodeImmShift canonicalizes an encoded (shift_type, imm5) pair: ROR with
// imm5==0 is RRX with imm forced to 1; LSR/ASR with imm5==0 canonicalize to
// shift amount 32; LSL with imm5==0 is "no shift" (HasAny == false).
func decodeImmShift(shiftTypeBits, imm5 uint32) isa.Shift {
	st := shiftOpFromBits(shiftTypeBits)
	switch {
	case st == isa.ROR && imm5 == 0:
		return isa.Shift{Type: isa.RRX, Imm: 1, HasAny: true}
	case (st == isa.LSR || st == isa.ASR) && imm5 == 0:
		return isa.Shift{Type: st, Imm: 32, HasAny: true}
	case st == isa.LSL && imm5 == 0:
		return isa.Shift{Type: isa.LSL, Imm: 0, HasAny: false}
	default:
		return isa.Shift{Type: st, Imm: imm5, HasAny: true}
	}
}

func rotateRight32(x, n uint32) uint32 {
	n %= 32
	if n == 0 {
		return x
	}
	return (x >> n) | (x << (32 - n))
}

// expandImm implements the ARM 12-bit immediate expansion:
// rotate_right(imm8, 2*rot4).
func expandImm(imm12 uint32) uint32 {
	imm8 := bits.Bits(imm12, 0, 8)
	rot4 := bits.Bits(imm12, 8, 12)
	return rotateRight32(imm8, 2*rot4)
}

// shiftExtra wraps a shifter operand for an Instruction's auxiliary slot,
// or nil for the no-shift case so that decoded and parsed instructions
// stay structurally identical.
func shiftExtra(s isa.Shift) *isa.ExtraOperand {
	if !s.HasAny {
		return nil
	}
	return &isa.ExtraOperand{Kind: isa.ExtraShift, Shift: s}
}

func mustReg(v uint32) isa.Register {
	r, err := isa.RegisterFromUint(v)
	if err != nil {
		panic(err)
	}
	return r
}

// DecodeARM recovers an isa.Instruction from a 32-bit ARM encoding.
func DecodeARM(word uint32) (isa.Instruction, error) {
	condVal := bits.Bits(word, 28, 32)
	cond, err := isa.CondFromUint(condVal)
	if err != nil {
		return isa.Instruction{}, invalid(word, "reserved condition 1111")
	}

	class := bits.Bits(word, 26, 28)
	switch class {
	case 0b00:
		return decodeDataProcAndMisc(word, cond)
	case 0b01:
		return decodeLoadStore(word, cond)
	case 0b10:
		return decodeBranchOrBlockTransfer(word, cond)
	default: // 0b11: coprocessor / SWI
		return decodeSWIOrCoproc(word, cond)
	}
}

func decodeDataProcAndMisc(word uint32, cond isa.Cond) (isa.Instruction, error) {
	immForm := bits.Bit(word, 25) != 0

	if immForm {
		return decodeDataProcImm(word, cond)
	}

	op1 := bits.Bits(word, 20, 25) // 5 bits: opcode4(4) + S(1)
	op2 := bits.Bits(word, 4, 8)

	isMiscPattern := bits.BitMatch(op1, "10xx0") && bits.BitMatch(op2, "0xxx")
	if isMiscPattern {
		return decodeMisc(word, cond)
	}
	if op2 == 0b1001 {
		return decodeMultiply(word, cond)
	}
	if bits.BitMatch(op2, "1xx1") {
		return decodeExtraLoadStore(word, cond)
	}
	if bits.Bit(op2, 0) == 0 {
		return decodeDataProcReg(word, cond)
	}
	if bits.BitMatch(op2, "0xx1") {
		return decodeDataProcShiftReg(word, cond)
	}
	return isa.Instruction{}, undefined(word)
}

func decodeDataProcReg(word uint32, cond isa.Cond) (isa.Instruction, error) {
	sBit := bits.Bit(word, 20) != 0
	rn := bits.Bits(word, 16, 20)
	rd := bits.Bits(word, 12, 16)
	imm5 := bits.Bits(word, 7, 12)
	shiftTypeBits := bits.Bits(word, 5, 7)
	rm := bits.Bits(word, 0, 4)
	opcode4 := bits.Bits(word, 21, 25)

	shift := decodeImmShift(shiftTypeBits, imm5)

	switch {
	case opcode4 == opMOV:
		if shift.Type == isa.RRX {
			return isa.NewInstruction(cond, isa.RRXOP,
				[]isa.Operand{isa.RegOperand(mustReg(rd)), isa.RegOperand(mustReg(rm))}, nil, sBit), nil
		}
		if !shift.HasAny {
			return isa.NewInstruction(cond, isa.MOV,
				[]isa.Operand{isa.RegOperand(mustReg(rd)), isa.RegOperand(mustReg(rm))}, nil, sBit), nil
		}
		shiftOp := shiftOpFromBits(shiftTypeBits)
		var mnemonic isa.Op
		switch shiftOp {
		case isa.LSL:
			mnemonic = isa.LSLOp
		case isa.LSR:
			mnemonic = isa.LSROp
		case isa.ASR:
			mnemonic = isa.ASROp
		default:
			mnemonic = isa.ROROp
		}
		return isa.NewInstruction(cond, mnemonic, []isa.Operand{
			isa.RegOperand(mustReg(rd)), isa.RegOperand(mustReg(rm)), isa.ImmOperand(shift.Imm),
		}, nil, sBit), nil

	case opcode4 == opMVN:
		return isa.NewInstruction(cond, isa.MVN,
			[]isa.Operand{isa.RegOperand(mustReg(rd)), isa.RegOperand(mustReg(rm))}, shiftExtra(shift), sBit), nil

	case isCompareOpcode(opcode4):
		if !sBit {
			return isa.Instruction{}, invalid(word, "compare opcode with S=0 collides with misc class")
		}
		return isa.NewInstruction(cond, opcode4ToOp[opcode4],
			[]isa.Operand{isa.RegOperand(mustReg(rn)), isa.RegOperand(mustReg(rm))}, shiftExtra(shift), true), nil

	default:
		return isa.NewInstruction(cond, opcode4ToOp[opcode4], []isa.Operand{
			isa.RegOperand(mustReg(rd)), isa.RegOperand(mustReg(rn)), isa.RegOperand(mustReg(rm)),
		}, shiftExtra(shift), sBit), nil
	}
}

func decodeDataProcShiftReg(word uint32, cond isa.Cond) (isa.Instruction, error) {
	sBit := bits.Bit(word, 20) != 0
	rn := bits.Bits(word, 16, 20)
	rd := bits.Bits(word, 12, 16)
	rs := bits.Bits(word, 8, 12)
	shiftTypeBits := bits.Bits(word, 5, 7)
	rm := bits.Bits(word, 0, 4)
	opcode4 := bits.Bits(word, 21, 25)

	if opcode4 == opMOV {
		shiftOp := shiftOpFromBits(shiftTypeBits)
		var mnemonic isa.Op
		switch shiftOp {
		case isa.LSL:
			mnemonic = isa.LSLOp
		case isa.LSR:
			mnemonic = isa.LSROp
		case isa.ASR:
			mnemonic = isa.ASROp
		default:
			mnemonic = isa.ROROp
		}
		return isa.NewInstruction(cond, mnemonic, []isa.Operand{
			isa.RegOperand(mustReg(rd)), isa.RegOperand(mustReg(rm)), isa.RegOperand(mustReg(rs)),
		}, nil, sBit), nil
	}

	shift := isa.Shift{Type: shiftOpFromBits(shiftTypeBits), IsReg: true, Reg: mustReg(rs), HasAny: true}
	extra := &isa.ExtraOperand{Kind: isa.ExtraShift, Shift: shift}

	switch {
	case isCompareOpcode(opcode4):
		if !sBit {
			return isa.Instruction{}, invalid(word, "compare opcode with S=0 collides with misc class")
		}
		return isa.NewInstruction(cond, opcode4ToOp[opcode4],
			[]isa.Operand{isa.RegOperand(mustReg(rn)), isa.RegOperand(mustReg(rm))}, extra, true), nil
	case opcode4 == opMVN:
		return isa.NewInstruction(cond, isa.MVN,
			[]isa.Operand{isa.RegOperand(mustReg(rd)), isa.RegOperand(mustReg(rm))}, extra, sBit), nil
	default:
		return isa.NewInstruction(cond, opcode4ToOp[opcode4], []isa.Operand{
			isa.RegOperand(mustReg(rd)), isa.RegOperand(mustReg(rn)), isa.RegOperand(mustReg(rm)),
		}, extra, sBit), nil
	}
}

func decodeDataProcImm(word uint32, cond isa.Cond) (isa.Instruction, error) {
	sBit := bits.Bit(word, 20) != 0
	rn := bits.Bits(word, 16, 20)
	rd := bits.Bits(word, 12, 16)
	imm12 := bits.Bits(word, 0, 12)
	opcode4 := bits.Bits(word, 21, 25)
	imm := expandImm(imm12)

	switch {
	case (opcode4 == opADD || opcode4 == opSUB) && rn == isa.PC.Uint():
		signed := imm
		if opcode4 == opSUB {
			signed = uint32(-int64(imm))
		}
		return isa.NewInstruction(cond, isa.ADR,
			[]isa.Operand{isa.RegOperand(mustReg(rd)), isa.ImmOperand(signed)}, nil, false), nil

	case opcode4 == opMOV:
		return isa.NewInstruction(cond, isa.MOV,
			[]isa.Operand{isa.RegOperand(mustReg(rd)), isa.ImmOperand(imm)}, nil, sBit), nil

	case opcode4 == opMVN:
		return isa.NewInstruction(cond, isa.MVN,
			[]isa.Operand{isa.RegOperand(mustReg(rd)), isa.ImmOperand(imm)}, nil, sBit), nil

	case isCompareOpcode(opcode4):
		if !sBit {
			return isa.Instruction{}, invalid(word, "MSR/hints with immediate form not supported")
		}
		return isa.NewInstruction(cond, opcode4ToOp[opcode4],
			[]isa.Operand{isa.RegOperand(mustReg(rn)), isa.ImmOperand(imm)}, nil, true), nil

	default:
		return isa.NewInstruction(cond, opcode4ToOp[opcode4], []isa.Operand{
			isa.RegOperand(mustReg(rd)), isa.RegOperand(mustReg(rn)), isa.ImmOperand(imm),
		}, nil, sBit), nil
	}
}

func decodeMisc(word uint32, cond isa.Cond) (isa.Instruction, error) {
	if bits.Bits(word, 20, 28) == 0b00010010 &&
		bits.Bits(word, 8, 20) == 0xFFF &&
		bits.Bits(word, 4, 8) == 0b0001 {
		rm := bits.Bits(word, 0, 4)
		return isa.NewInstruction(cond, isa.BX, []isa.Operand{isa.RegOperand(mustReg(rm))}, nil, false), nil
	}
	return isa.Instruction{}, undefined(word)
}

func decodeMultiply(word uint32, cond isa.Cond) (isa.Instruction, error) {
	sBit := bits.Bit(word, 20) != 0
	rdOrHi := bits.Bits(word, 16, 20)
	rnOrLo := bits.Bits(word, 12, 16)
	rs := bits.Bits(word, 8, 12)
	rm := bits.Bits(word, 0, 4)
	opcode4 := bits.Bits(word, 21, 25)

	switch opcode4 {
	case 0b0000:
		return isa.NewInstruction(cond, isa.MUL, []isa.Operand{
			isa.RegOperand(mustReg(rdOrHi)), isa.RegOperand(mustReg(rm)), isa.RegOperand(mustReg(rs)),
		}, nil, sBit), nil
	case 0b0001:
		return isa.NewInstruction(cond, isa.MLA, []isa.Operand{
			isa.RegOperand(mustReg(rdOrHi)), isa.RegOperand(mustReg(rm)), isa.RegOperand(mustReg(rs)),
			isa.RegOperand(mustReg(rnOrLo)),
		}, nil, sBit), nil
	case 0b0100, 0b0101, 0b0110, 0b0111:
		var op isa.Op
		switch opcode4 {
		case 0b0100:
			op = isa.UMULL
		case 0b0101:
			op = isa.UMLAL
		case 0b0110:
			op = isa.SMULL
		default:
			op = isa.SMLAL
		}
		return isa.NewInstruction(cond, op, []isa.Operand{
			isa.RegOperand(mustReg(rnOrLo)), isa.RegOperand(mustReg(rdOrHi)),
			isa.RegOperand(mustReg(rm)), isa.RegOperand(mustReg(rs)),
		}, nil, sBit), nil
	default:
		return isa.Instruction{}, undefined(word)
	}
}

func decodeExtraLoadStore(word uint32, cond isa.Cond) (isa.Instruction, error) {
	p := bits.Bit(word, 24) != 0
	w := bits.Bit(word, 21) != 0
	u := bits.Bit(word, 23) != 0
	l := bits.Bit(word, 20) != 0
	immOffset := bits.Bit(word, 22) != 0
	rn := bits.Bits(word, 16, 20)
	rt := bits.Bits(word, 12, 16)
	op2 := bits.Bits(word, 5, 7)

	var op isa.Op
	switch {
	case !l && op2 == 0b01:
		op = isa.STRH
	case l && op2 == 0b01:
		op = isa.LDRH
	case l && op2 == 0b10:
		op = isa.LDRSB
	case l && op2 == 0b11:
		op = isa.LDRSH
	default:
		return isa.Instruction{}, undefined(word)
	}

	mode, err := isa.AddrModeFromPW(p, w)
	if err != nil {
		return isa.Instruction{}, invalid(word, err.Error())
	}

	var addr isa.Address
	if immOffset {
		imm := bits.Bits(word, 8, 12)<<4 | bits.Bits(word, 0, 4)
		addr = isa.Address{Base: mustReg(rn), Mode: mode, Add: u, IsImm: true, Imm: imm}
	} else {
		rm := bits.Bits(word, 0, 4)
		addr = isa.Address{Base: mustReg(rn), Mode: mode, Add: u, IsImm: false,
			Reg: isa.RegOffset{Reg: mustReg(rm)}}
	}

	return isa.NewInstruction(cond, op,
		[]isa.Operand{isa.RegOperand(mustReg(rt)), isa.AddrOperand(addr)}, nil, false), nil
}

func decodeLoadStore(word uint32, cond isa.Cond) (isa.Instruction, error) {
	regOffset := bits.Bit(word, 25) != 0
	p := bits.Bit(word, 24) != 0
	u := bits.Bit(word, 23) != 0
	b := bits.Bit(word, 22) != 0
	w := bits.Bit(word, 21) != 0
	l := bits.Bit(word, 20) != 0
	rn := bits.Bits(word, 16, 20)
	rt := bits.Bits(word, 12, 16)

	isT := !p && w

	var mode isa.AddrMode
	if isT {
		mode = isa.PostIndex
	} else {
		m, err := isa.AddrModeFromPW(p, w)
		if err != nil {
			return isa.Instruction{}, invalid(word, err.Error())
		}
		mode = m
	}

	var op isa.Op
	switch {
	case isT && b && l:
		op = isa.LDRBT
	case isT && b && !l:
		op = isa.STRBT
	case isT && !b && l:
		op = isa.LDRT
	case isT && !b && !l:
		op = isa.STRT
	case b && l:
		op = isa.LDRB
	case b && !l:
		op = isa.STRB
	case !b && l:
		op = isa.LDR
	default:
		op = isa.STR
	}

	var addr isa.Address
	if !regOffset {
		imm := bits.Bits(word, 0, 12)
		addr = isa.Address{Base: mustReg(rn), Mode: mode, Add: u, IsImm: true, Imm: imm}
	} else {
		if bits.Bit(word, 4) != 0 {
			return isa.Instruction{}, undefined(word)
		}
		rm := bits.Bits(word, 0, 4)
		shiftTypeBits := bits.Bits(word, 5, 7)
		imm5 := bits.Bits(word, 7, 12)
		shift := decodeImmShift(shiftTypeBits, imm5)
		addr = isa.Address{Base: mustReg(rn), Mode: mode, Add: u, IsImm: false,
			Reg: isa.RegOffset{Reg: mustReg(rm), Shift: shift}}
	}

	return isa.NewInstruction(cond, op,
		[]isa.Operand{isa.RegOperand(mustReg(rt)), isa.AddrOperand(addr)}, nil, false), nil
}

func decodeBranchOrBlockTransfer(word uint32, cond isa.Cond) (isa.Instruction, error) {
	if bits.Bit(word, 25) == 0 {
		// Block data transfer (LDM/STM) is not decoded yet; the Instruction
		// operand model has no register-list slot for it.
		return isa.Instruction{}, undefined(word)
	}
	l := bits.Bit(word, 24) != 0
	imm24 := bits.Bits(word, 0, 24)
	// sign-extend 24 bits then shift left 2, per the ARM B/BL encoding.
	signed := int32(imm24<<8) >> 8
	offset := uint32(signed << 2)
	op := isa.B
	if l {
		op = isa.BL
	}
	return isa.NewInstruction(cond, op, []isa.Operand{isa.ImmOperand(offset)}, nil, false), nil
}

func decodeSWIOrCoproc(word uint32, cond isa.Cond) (isa.Instruction, error) {
	if bits.Bits(word, 24, 28) == 0b1111 {
		imm24 := bits.Bits(word, 0, 24)
		return isa.NewInstruction(cond, isa.SWI, []isa.Operand{isa.ImmOperand(imm24)}, nil, false), nil
	}
	return isa.Instruction{}, undefined(word)
}

// DecodeThumb recovers an isa.Instruction from a 16-bit Thumb encoding. Only
// the small subset needed to round-trip through translation is supported;
// anything else is reported Undefined. The decoder aims to be correct and
// extensible over the encoding table, not exhaustive on day one.
func DecodeThumb(halfword uint16) (isa.Instruction, error) {
	word := uint32(halfword)
	// Format 3: MOV/CMP/ADD/SUB Rd, #imm8 (bits 15-13 == 001, sub-op in 12-11).
	if bits.Bits(word, 13, 16) == 0b001 {
		subOp := bits.Bits(word, 11, 13)
		rd := bits.Bits(word, 8, 11)
		imm8 := bits.Bits(word, 0, 8)
		var op isa.Op
		switch subOp {
		case 0b00:
			op = isa.MOV
		case 0b01:
			op = isa.CMP
		case 0b10:
			op = isa.ADD
		default:
			op = isa.SUB
		}
		setFlags := op != isa.CMP
		operands := []isa.Operand{isa.RegOperand(mustReg(rd)), isa.ImmOperand(imm8)}
		if op == isa.ADD || op == isa.SUB {
			operands = []isa.Operand{isa.RegOperand(mustReg(rd)), isa.RegOperand(mustReg(rd)), isa.ImmOperand(imm8)}
		}
		return isa.NewInstruction(isa.AL, op, operands, nil, setFlags), nil
	}
	return isa.Instruction{}, &DecodeError{Undefined: true, Word: word}
}
