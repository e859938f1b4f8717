package uasm

import (
	"fmt"
	"strconv"
	"strings"

	"armjit/isa"
)

// Parse resolves a single line of canonical UAL text to an Instruction.
func Parse(line string) (isa.Instruction, error) {
	return ParseLine(line, 1)
}

// ParseLine is Parse with an explicit source line number, for callers
// (test fixtures, the tui driver) reading a multi-line source file.
func ParseLine(line string, lineNo int) (isa.Instruction, error) {
	p := &parser{lex: newLexer(line, lineNo)}
	p.advance()

	if p.cur.typ != tokIdent {
		return isa.Instruction{}, formatErr(p.cur.pos, "expected a mnemonic")
	}
	mnemTok := p.cur
	op, cond, setFlags, err := resolveMnemonic(mnemTok.lit)
	if err != nil {
		return isa.Instruction{}, fieldErr(mnemTok.pos, "mnemonic", mnemTok.lit, err)
	}
	p.advance()

	operands, extra, err := p.parseOperandList(op)
	if err != nil {
		return isa.Instruction{}, err
	}
	if p.cur.typ != tokEOF {
		return isa.Instruction{}, formatErr(p.cur.pos, fmt.Sprintf("unexpected trailing token %q", p.cur.lit))
	}
	return isa.NewInstruction(cond, op, operands, extra, setFlags), nil
}

// resolveMnemonic splits an identifier like "LDRLE" or "ADDS" into an Op and
// an optional condition/S suffix by longest-match over the opcode set: the
// longest prefix that names a real Op wins, and whatever is left after it
// must be "", "S", a two-letter condition, or a condition followed by "S".
func resolveMnemonic(ident string) (isa.Op, isa.Cond, bool, error) {
	up := strings.ToUpper(ident)
	for i := len(up); i >= 1; i-- {
		op, err := isa.ParseOp(up[:i])
		if err != nil {
			continue
		}
		if cond, setFlags, ok := resolveSuffix(up[i:]); ok {
			return op, cond, setFlags, nil
		}
	}
	return 0, 0, false, fmt.Errorf("no recognized mnemonic in %q", ident)
}

func resolveSuffix(rest string) (isa.Cond, bool, bool) {
	switch {
	case rest == "":
		return isa.AL, false, true
	case rest == "S":
		return isa.AL, true, true
	case len(rest) >= 2:
		cond, err := isa.ParseCond(rest[:2])
		if err != nil {
			return 0, false, false
		}
		switch rest[2:] {
		case "":
			return cond, false, true
		case "S":
			return cond, true, true
		default:
			return 0, false, false
		}
	default:
		return 0, false, false
	}
}

type parser struct {
	lex *lexer
	cur token
}

func (p *parser) advance() { p.cur = p.lex.next() }

func (p *parser) expect(typ tokenType, what string) (token, error) {
	if p.cur.typ != typ {
		return token{}, formatErr(p.cur.pos, fmt.Sprintf("expected %s, got %q", what, p.cur.lit))
	}
	tok := p.cur
	p.advance()
	return tok, nil
}

func (p *parser) parseRegister() (isa.Register, error) {
	tok, err := p.expect(tokIdent, "a register")
	if err != nil {
		return 0, err
	}
	reg, err := isa.ParseRegister(tok.lit)
	if err != nil {
		return 0, fieldErr(tok.pos, "register", tok.lit, err)
	}
	return reg, nil
}

// parseImmValue parses the digits of an immediate after its '#' and any sign
// have already been consumed by the caller.
func (p *parser) parseImmValue(neg bool) (uint32, error) {
	tok, err := p.expect(tokNumber, "a numeric immediate")
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(tok.lit, 0, 32)
	if err != nil {
		return 0, fieldErr(tok.pos, "immediate", tok.lit, err)
	}
	u := uint32(v)
	if neg {
		u = uint32(-int64(u))
	}
	return u, nil
}

// parseHashImmediate parses "#[-]N" where cur is the '#' token.
func (p *parser) parseHashImmediate() (uint32, error) {
	if _, err := p.expect(tokHash, "#"); err != nil {
		return 0, err
	}
	neg := false
	if p.cur.typ == tokMinus {
		neg = true
		p.advance()
	}
	return p.parseImmValue(neg)
}

func (p *parser) parseShift() (isa.Shift, error) {
	tok, err := p.expect(tokIdent, "a shift type")
	if err != nil {
		return isa.Shift{}, err
	}
	st, err := isa.ParseShiftType(tok.lit)
	if err != nil {
		return isa.Shift{}, fieldErr(tok.pos, "shift", tok.lit, err)
	}
	if st == isa.RRX {
		return isa.Shift{Type: isa.RRX, Imm: 1, HasAny: true}, nil
	}
	if p.cur.typ == tokHash {
		imm, err := p.parseHashImmediate()
		if err != nil {
			return isa.Shift{}, err
		}
		return isa.Shift{Type: st, Imm: imm, HasAny: true}, nil
	}
	reg, err := p.parseRegister()
	if err != nil {
		return isa.Shift{}, err
	}
	return isa.Shift{Type: st, Reg: reg, IsReg: true, HasAny: true}, nil
}

// parseOperand2 parses a data-processing Operand2: either "#imm" or a
// (possibly shifted) register. It reports whether the operand was a
// register, since only register operands may carry a trailing shift.
func (p *parser) parseOperand2() (isa.Operand, bool, error) {
	if p.cur.typ == tokHash {
		imm, err := p.parseHashImmediate()
		if err != nil {
			return isa.Operand{}, false, err
		}
		return isa.ImmOperand(imm), false, nil
	}
	reg, err := p.parseRegister()
	if err != nil {
		return isa.Operand{}, false, err
	}
	return isa.RegOperand(reg), true, nil
}

func (p *parser) expectComma() error {
	_, err := p.expect(tokComma, "','")
	return err
}

// parseAddress parses a bracketed addressing operand: "[Rn]", "[Rn, off]{!}",
// or "[Rn], off". The offset is folded into the Address value itself.
func (p *parser) parseAddress() (isa.Address, error) {
	if _, err := p.expect(tokLBracket, "'['"); err != nil {
		return isa.Address{}, err
	}
	base, err := p.parseRegister()
	if err != nil {
		return isa.Address{}, err
	}
	addr := isa.Address{Base: base, Add: true}

	if p.cur.typ == tokRBracket {
		p.advance()
		if p.cur.typ != tokComma {
			addr.Mode = isa.Offset
			addr.IsImm = true
			return addr, nil
		}
		p.advance()
		if err := p.parseOffset(&addr); err != nil {
			return isa.Address{}, err
		}
		addr.Mode = isa.PostIndex
		return addr, nil
	}

	if err := p.expectComma(); err != nil {
		return isa.Address{}, err
	}
	if err := p.parseOffset(&addr); err != nil {
		return isa.Address{}, err
	}
	if _, err := p.expect(tokRBracket, "']'"); err != nil {
		return isa.Address{}, err
	}
	if p.cur.typ == tokBang {
		p.advance()
		addr.Mode = isa.PreIndex
	} else {
		addr.Mode = isa.Offset
	}
	return addr, nil
}

// parseOffset parses the addend inside (or just after) an Address's
// brackets: an optional leading '-', then either "#imm" (which may also
// carry its '-' after the '#', as Address.String renders it) or a register
// with an optional trailing shift.
func (p *parser) parseOffset(addr *isa.Address) error {
	neg := false
	if p.cur.typ == tokMinus {
		neg = true
		p.advance()
	}
	if p.cur.typ == tokHash {
		p.advance()
		if p.cur.typ == tokMinus {
			neg = true
			p.advance()
		}
		imm, err := p.parseImmValue(false)
		if err != nil {
			return err
		}
		addr.IsImm = true
		addr.Imm = imm
		addr.Add = !neg
		return nil
	}
	reg, err := p.parseRegister()
	if err != nil {
		return err
	}
	addr.Reg.Reg = reg
	addr.Add = !neg
	if p.cur.typ == tokComma {
		p.advance()
		shift, err := p.parseShift()
		if err != nil {
			return err
		}
		addr.Reg.Shift = shift
	}
	return nil
}

// parseOperandList dispatches to the exact operand shape for op, following
// the decoder's own per-mnemonic construction so that a parsed and a
// decoded Instruction for the same semantics are structurally identical.
func (p *parser) parseOperandList(op isa.Op) ([]isa.Operand, *isa.ExtraOperand, error) {
	switch op {
	case isa.AND, isa.EOR, isa.SUB, isa.RSB, isa.ADD, isa.ADC, isa.SBC, isa.RSC, isa.ORR, isa.BIC:
		return p.parseDataProc3()
	case isa.TST, isa.TEQ, isa.CMP, isa.CMN:
		return p.parseCompare2()
	case isa.MOV:
		return p.parseMove2(false)
	case isa.MVN:
		return p.parseMove2(true)
	case isa.LSLOp, isa.LSROp, isa.ASROp, isa.ROROp:
		return p.parseShiftMnemonic3()
	case isa.RRXOP:
		return p.parseRRX2()
	case isa.BX:
		return p.parseBX1()
	case isa.MUL:
		return p.parseRegList(3)
	case isa.MLA, isa.UMULL, isa.UMLAL, isa.SMULL, isa.SMLAL:
		return p.parseRegList(4)
	case isa.LDR, isa.STR, isa.LDRB, isa.STRB, isa.LDRT, isa.STRT, isa.LDRBT, isa.STRBT,
		isa.LDRH, isa.STRH, isa.LDRSB, isa.LDRSH:
		return p.parseLoadStore2()
	default:
		return nil, nil, formatErr(p.cur.pos, fmt.Sprintf("operands for %s are not supported by the UAL parser", op))
	}
}

func (p *parser) parseDataProc3() ([]isa.Operand, *isa.ExtraOperand, error) {
	rd, err := p.parseRegister()
	if err != nil {
		return nil, nil, err
	}
	if err := p.expectComma(); err != nil {
		return nil, nil, err
	}
	rn, err := p.parseRegister()
	if err != nil {
		return nil, nil, err
	}
	if err := p.expectComma(); err != nil {
		return nil, nil, err
	}
	op2, isReg, err := p.parseOperand2()
	if err != nil {
		return nil, nil, err
	}
	extra, err := p.maybeTrailingShift(isReg)
	if err != nil {
		return nil, nil, err
	}
	return []isa.Operand{isa.RegOperand(rd), isa.RegOperand(rn), op2}, extra, nil
}

func (p *parser) parseCompare2() ([]isa.Operand, *isa.ExtraOperand, error) {
	rn, err := p.parseRegister()
	if err != nil {
		return nil, nil, err
	}
	if err := p.expectComma(); err != nil {
		return nil, nil, err
	}
	op2, isReg, err := p.parseOperand2()
	if err != nil {
		return nil, nil, err
	}
	extra, err := p.maybeTrailingShift(isReg)
	if err != nil {
		return nil, nil, err
	}
	return []isa.Operand{isa.RegOperand(rn), op2}, extra, nil
}

func (p *parser) parseMove2(allowShiftExtra bool) ([]isa.Operand, *isa.ExtraOperand, error) {
	rd, err := p.parseRegister()
	if err != nil {
		return nil, nil, err
	}
	if err := p.expectComma(); err != nil {
		return nil, nil, err
	}
	op2, isReg, err := p.parseOperand2()
	if err != nil {
		return nil, nil, err
	}
	var extra *isa.ExtraOperand
	if allowShiftExtra {
		extra, err = p.maybeTrailingShift(isReg)
		if err != nil {
			return nil, nil, err
		}
	}
	return []isa.Operand{isa.RegOperand(rd), op2}, extra, nil
}

func (p *parser) parseShiftMnemonic3() ([]isa.Operand, *isa.ExtraOperand, error) {
	rd, err := p.parseRegister()
	if err != nil {
		return nil, nil, err
	}
	if err := p.expectComma(); err != nil {
		return nil, nil, err
	}
	rm, err := p.parseRegister()
	if err != nil {
		return nil, nil, err
	}
	if err := p.expectComma(); err != nil {
		return nil, nil, err
	}
	amount, _, err := p.parseOperand2()
	if err != nil {
		return nil, nil, err
	}
	return []isa.Operand{isa.RegOperand(rd), isa.RegOperand(rm), amount}, nil, nil
}

func (p *parser) parseRRX2() ([]isa.Operand, *isa.ExtraOperand, error) {
	rd, err := p.parseRegister()
	if err != nil {
		return nil, nil, err
	}
	if err := p.expectComma(); err != nil {
		return nil, nil, err
	}
	rm, err := p.parseRegister()
	if err != nil {
		return nil, nil, err
	}
	return []isa.Operand{isa.RegOperand(rd), isa.RegOperand(rm)}, nil, nil
}

// parseRegList parses exactly n comma-separated plain register operands,
// the shape every multiply-class mnemonic uses.
func (p *parser) parseRegList(n int) ([]isa.Operand, *isa.ExtraOperand, error) {
	operands := make([]isa.Operand, 0, n)
	for i := 0; i < n; i++ {
		if i > 0 {
			if err := p.expectComma(); err != nil {
				return nil, nil, err
			}
		}
		reg, err := p.parseRegister()
		if err != nil {
			return nil, nil, err
		}
		operands = append(operands, isa.RegOperand(reg))
	}
	return operands, nil, nil
}

func (p *parser) parseBX1() ([]isa.Operand, *isa.ExtraOperand, error) {
	rm, err := p.parseRegister()
	if err != nil {
		return nil, nil, err
	}
	return []isa.Operand{isa.RegOperand(rm)}, nil, nil
}

func (p *parser) parseLoadStore2() ([]isa.Operand, *isa.ExtraOperand, error) {
	rt, err := p.parseRegister()
	if err != nil {
		return nil, nil, err
	}
	if err := p.expectComma(); err != nil {
		return nil, nil, err
	}
	addr, err := p.parseAddress()
	if err != nil {
		return nil, nil, err
	}
	return []isa.Operand{isa.RegOperand(rt), isa.AddrOperand(addr)}, nil, nil
}

func (p *parser) maybeTrailingShift(lastWasReg bool) (*isa.ExtraOperand, error) {
	if !lastWasReg || p.cur.typ != tokComma {
		return nil, nil
	}
	p.advance()
	shift, err := p.parseShift()
	if err != nil {
		return nil, err
	}
	return &isa.ExtraOperand{Kind: isa.ExtraShift, Shift: shift}, nil
}
