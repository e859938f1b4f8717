//go:build unix

package translator

import (
	"errors"
	"testing"

	"armjit/execbuf"
	"armjit/isa"
	"armjit/regalloc"
)

func runBlock(t *testing.T, instrs []isa.Instruction, state *[17]uint32) {
	t.Helper()
	buf, err := TranslateToExecBuffer(SysV, regalloc.Default(), instrs)
	if err != nil {
		t.Fatalf("TranslateToExecBuffer: %v", err)
	}
	defer buf.Close()
	fn := buf.AsFunc()
	if got := fn(&state[0]); got != 0 {
		t.Fatalf("translated function returned %d, want 0", got)
	}
}

func TestTranslateAddImmediateUnconditional(t *testing.T) {
	instrs := []isa.Instruction{
		isa.NewInstruction(isa.AL, isa.ADD,
			[]isa.Operand{isa.RegOperand(isa.R0), isa.RegOperand(isa.R0), isa.ImmOperand(1)}, nil, false),
	}
	var state [17]uint32
	state[0] = 41
	runBlock(t, instrs, &state)
	if state[0] != 42 {
		t.Errorf("R0 = %d, want 42", state[0])
	}
}

func TestTranslateAddEqSkippedWhenZClear(t *testing.T) {
	instrs := []isa.Instruction{
		isa.NewInstruction(isa.EQ, isa.ADD,
			[]isa.Operand{isa.RegOperand(isa.R0), isa.RegOperand(isa.R0), isa.ImmOperand(5)}, nil, false),
	}
	var state [17]uint32
	state[0] = 10
	state[16] = 0 // Z clear
	runBlock(t, instrs, &state)
	if state[0] != 10 {
		t.Errorf("R0 = %d, want 10 (ADDEQ should have been skipped)", state[0])
	}
}

func TestTranslateAddEqExecutedWhenZSet(t *testing.T) {
	instrs := []isa.Instruction{
		isa.NewInstruction(isa.EQ, isa.ADD,
			[]isa.Operand{isa.RegOperand(isa.R0), isa.RegOperand(isa.R0), isa.ImmOperand(5)}, nil, false),
	}
	var state [17]uint32
	state[0] = 10
	state[16] = 1 << 30 // Z set
	runBlock(t, instrs, &state)
	if state[0] != 15 {
		t.Errorf("R0 = %d, want 15 (ADDEQ should have executed)", state[0])
	}
}

func TestTranslateMovChain(t *testing.T) {
	instrs := []isa.Instruction{
		isa.NewInstruction(isa.AL, isa.MOV,
			[]isa.Operand{isa.RegOperand(isa.R11), isa.ImmOperand(1234)}, nil, false),
		isa.NewInstruction(isa.AL, isa.MOV,
			[]isa.Operand{isa.RegOperand(isa.R2), isa.RegOperand(isa.R11)}, nil, false),
	}
	var state [17]uint32
	runBlock(t, instrs, &state)
	if state[2] != 1234 {
		t.Errorf("R2 = %d, want 1234", state[2])
	}
	if state[11] != 1234 {
		t.Errorf("R11 = %d, want 1234", state[11])
	}
}

func TestTranslateSubSetsFlags(t *testing.T) {
	// SUBS R0, R0, R0 always produces zero: Z set, N/C/V predictable
	// (C set per the no-borrow convention, N and V clear).
	instrs := []isa.Instruction{
		isa.NewInstruction(isa.AL, isa.SUB,
			[]isa.Operand{isa.RegOperand(isa.R0), isa.RegOperand(isa.R0), isa.RegOperand(isa.R0)}, nil, true),
	}
	var state [17]uint32
	state[0] = 7
	runBlock(t, instrs, &state)
	if state[0] != 0 {
		t.Fatalf("R0 = %d, want 0", state[0])
	}
	n, z, c, v := isa.FlagsUnpack(state[16])
	if !z {
		t.Errorf("Z flag not set after SUBS R0,R0,R0")
	}
	if n {
		t.Errorf("N flag unexpectedly set")
	}
	if !c {
		t.Errorf("C flag should be set (no borrow) for a == a subtraction")
	}
	if v {
		t.Errorf("V flag unexpectedly set")
	}
}

func TestTranslateWithOptionsVariants(t *testing.T) {
	// The same conditional carry-in block must execute identically with
	// short internal jumps on or off and with a wider spill stride.
	instrs := []isa.Instruction{
		isa.NewInstruction(isa.CS, isa.ADC,
			[]isa.Operand{isa.RegOperand(isa.R11), isa.RegOperand(isa.R11), isa.ImmOperand(1)}, nil, false),
	}
	optVariants := []Options{
		{PreferShortJumps: true, SpillSlotBytes: 8},
		{PreferShortJumps: false, SpillSlotBytes: 8},
		{PreferShortJumps: true, SpillSlotBytes: 16},
	}
	for _, opts := range optVariants {
		code, err := TranslateWithOptions(SysV, regalloc.Default(), opts, instrs)
		if err != nil {
			t.Fatalf("TranslateWithOptions(%+v): %v", opts, err)
		}
		buf, err := execbuf.New(code)
		if err != nil {
			t.Fatalf("execbuf.New: %v", err)
		}
		var state [17]uint32
		state[11] = 40
		state[16] = isa.FlagsBits(false, false, true, false)
		fn := buf.AsFunc()
		if got := fn(&state[0]); got != 0 {
			t.Fatalf("translated function returned %d, want 0", got)
		}
		buf.Close()
		if state[11] != 42 {
			t.Errorf("opts %+v: R11 = %d, want 42 (40 + 1 + carry)", opts, state[11])
		}
	}
}

func TestTranslateShortJumpsShrinkConditionGuards(t *testing.T) {
	instrs := []isa.Instruction{
		isa.NewInstruction(isa.GE, isa.ADD,
			[]isa.Operand{isa.RegOperand(isa.R0), isa.RegOperand(isa.R0), isa.ImmOperand(1)}, nil, false),
	}
	long, err := TranslateWithOptions(SysV, regalloc.Default(),
		Options{PreferShortJumps: false, SpillSlotBytes: 8}, instrs)
	if err != nil {
		t.Fatalf("TranslateWithOptions: %v", err)
	}
	short, err := TranslateWithOptions(SysV, regalloc.Default(),
		Options{PreferShortJumps: true, SpillSlotBytes: 8}, instrs)
	if err != nil {
		t.Fatalf("TranslateWithOptions: %v", err)
	}
	if len(short) >= len(long) {
		t.Errorf("short-jump code is %d bytes, near-jump code %d; expected short to be smaller", len(short), len(long))
	}
}

func TestTranslateAdcUsesGuestCarry(t *testing.T) {
	instrs := []isa.Instruction{
		isa.NewInstruction(isa.AL, isa.ADC,
			[]isa.Operand{isa.RegOperand(isa.R0), isa.RegOperand(isa.R1), isa.RegOperand(isa.R2)}, nil, false),
	}
	var state [17]uint32
	state[1] = 40
	state[2] = 1
	state[16] = isa.FlagsBits(false, false, true, false)
	runBlock(t, instrs, &state)
	if state[0] != 42 {
		t.Errorf("R0 = %d, want 42 (R1 + R2 + carry)", state[0])
	}

	state = [17]uint32{}
	state[1] = 40
	state[2] = 1
	runBlock(t, instrs, &state)
	if state[0] != 41 {
		t.Errorf("R0 = %d, want 41 (carry clear)", state[0])
	}
}

func TestTranslateSbcBorrowPolarity(t *testing.T) {
	// SBC subtracts NOT(C): with C set the result is a plain subtraction,
	// with C clear one extra is taken off.
	instrs := []isa.Instruction{
		isa.NewInstruction(isa.AL, isa.SBC,
			[]isa.Operand{isa.RegOperand(isa.R0), isa.RegOperand(isa.R1), isa.RegOperand(isa.R2)}, nil, false),
	}
	var state [17]uint32
	state[1] = 50
	state[2] = 8
	state[16] = isa.FlagsBits(false, false, true, false)
	runBlock(t, instrs, &state)
	if state[0] != 42 {
		t.Errorf("R0 = %d, want 42 (C set: no extra borrow)", state[0])
	}

	state = [17]uint32{}
	state[1] = 50
	state[2] = 8
	runBlock(t, instrs, &state)
	if state[0] != 41 {
		t.Errorf("R0 = %d, want 41 (C clear: borrow one more)", state[0])
	}
}

func TestTranslateRscReversesOperands(t *testing.T) {
	instrs := []isa.Instruction{
		isa.NewInstruction(isa.AL, isa.RSC,
			[]isa.Operand{isa.RegOperand(isa.R0), isa.RegOperand(isa.R1), isa.ImmOperand(100)}, nil, false),
	}
	var state [17]uint32
	state[1] = 58
	state[16] = isa.FlagsBits(false, false, true, false)
	runBlock(t, instrs, &state)
	if state[0] != 42 {
		t.Errorf("R0 = %d, want 42 (100 - R1 with C set)", state[0])
	}
}

func TestTranslateMulAndMla(t *testing.T) {
	instrs := []isa.Instruction{
		isa.NewInstruction(isa.AL, isa.MUL,
			[]isa.Operand{isa.RegOperand(isa.R0), isa.RegOperand(isa.R1), isa.RegOperand(isa.R2)}, nil, false),
		isa.NewInstruction(isa.AL, isa.MLA,
			[]isa.Operand{isa.RegOperand(isa.R3), isa.RegOperand(isa.R1), isa.RegOperand(isa.R2), isa.RegOperand(isa.R4)}, nil, false),
	}
	var state [17]uint32
	state[1] = 6
	state[2] = 7
	state[4] = 10
	runBlock(t, instrs, &state)
	if state[0] != 42 {
		t.Errorf("MUL: R0 = %d, want 42", state[0])
	}
	if state[3] != 52 {
		t.Errorf("MLA: R3 = %d, want 52", state[3])
	}
}

func TestTranslateUmullWideResult(t *testing.T) {
	instrs := []isa.Instruction{
		isa.NewInstruction(isa.AL, isa.UMULL,
			[]isa.Operand{isa.RegOperand(isa.R0), isa.RegOperand(isa.R1), isa.RegOperand(isa.R2), isa.RegOperand(isa.R3)}, nil, false),
	}
	var state [17]uint32
	state[2] = 0xFFFFFFFF
	state[3] = 2
	runBlock(t, instrs, &state)
	if state[0] != 0xFFFFFFFE {
		t.Errorf("RdLo = %#x, want 0xFFFFFFFE", state[0])
	}
	if state[1] != 1 {
		t.Errorf("RdHi = %#x, want 1", state[1])
	}
}

func TestTranslateSmullSignExtends(t *testing.T) {
	instrs := []isa.Instruction{
		isa.NewInstruction(isa.AL, isa.SMULL,
			[]isa.Operand{isa.RegOperand(isa.R0), isa.RegOperand(isa.R1), isa.RegOperand(isa.R2), isa.RegOperand(isa.R3)}, nil, false),
	}
	var state [17]uint32
	state[2] = 0xFFFFFFFE // -2
	state[3] = 3
	runBlock(t, instrs, &state)
	if state[0] != 0xFFFFFFFA { // low half of -6
		t.Errorf("RdLo = %#x, want 0xFFFFFFFA", state[0])
	}
	if state[1] != 0xFFFFFFFF {
		t.Errorf("RdHi = %#x, want 0xFFFFFFFF", state[1])
	}
}

func TestTranslateUmlalAccumulates(t *testing.T) {
	instrs := []isa.Instruction{
		isa.NewInstruction(isa.AL, isa.UMLAL,
			[]isa.Operand{isa.RegOperand(isa.R0), isa.RegOperand(isa.R1), isa.RegOperand(isa.R2), isa.RegOperand(isa.R3)}, nil, false),
	}
	var state [17]uint32
	state[0] = 0xFFFFFFFF // accumulator low
	state[1] = 0          // accumulator high
	state[2] = 1
	state[3] = 1
	runBlock(t, instrs, &state)
	// 0x00000000FFFFFFFF + 1*1 = 0x0000000100000000
	if state[0] != 0 {
		t.Errorf("RdLo = %#x, want 0", state[0])
	}
	if state[1] != 1 {
		t.Errorf("RdHi = %#x, want 1 (carry into the high word)", state[1])
	}
}

func TestTranslateUnimplementedOpcode(t *testing.T) {
	instrs := []isa.Instruction{
		isa.NewInstruction(isa.AL, isa.LDR,
			[]isa.Operand{isa.RegOperand(isa.R0), isa.AddrOperand(isa.Address{Base: isa.R1, IsImm: true, Add: true})}, nil, false),
	}
	_, err := Translate(SysV, regalloc.Default(), instrs)
	if err == nil {
		t.Fatal("expected an Unimplemented TranslationError for LDR, got nil")
	}
	var te *TranslationError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TranslationError, got %T", err)
	}
	if te.Kind != "Unimplemented" {
		t.Errorf("Kind = %q, want Unimplemented", te.Kind)
	}
}

func TestTranslateBranchIsUnsupported(t *testing.T) {
	instrs := []isa.Instruction{
		isa.NewInstruction(isa.AL, isa.B, nil, nil, false),
	}
	_, err := Translate(SysV, regalloc.Default(), instrs)
	if err == nil {
		t.Fatal("expected a BranchUnsupported TranslationError for B, got nil")
	}
	var te *TranslationError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TranslationError, got %T", err)
	}
	if te.Kind != "BranchUnsupported" {
		t.Errorf("Kind = %q, want BranchUnsupported", te.Kind)
	}
}
