package uasm

import (
	"testing"

	"armjit/isa"
)

func TestParseLDRLEWritebackRoundTrip(t *testing.T) {
	in, err := Parse("LDRLE r0, [r1, r2, LSL #92]!")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if in.Cond != isa.LE {
		t.Errorf("Cond = %v, want LE", in.Cond)
	}
	if in.Op != isa.LDR {
		t.Errorf("Op = %v, want LDR", in.Op)
	}
	if in.SetFlags {
		t.Errorf("SetFlags = true, want false")
	}
	if len(in.Operands) != 2 || in.Operands[0].Kind != isa.OperandReg || in.Operands[0].Reg != isa.R0 {
		t.Fatalf("Operands[0] = %+v, want R0", in.Operands)
	}
	addr := in.Operands[1].Addr
	if addr.Base != isa.R1 || addr.Mode != isa.PreIndex {
		t.Errorf("address = %+v, want base R1, PreIndex", addr)
	}
	if addr.IsImm || addr.Reg.Reg != isa.R2 || !addr.Reg.Shift.HasAny || addr.Reg.Shift.Type != isa.LSL || addr.Reg.Shift.Imm != 92 {
		t.Errorf("address offset = %+v, want reg(R2, LSL #92, add=true)", addr.Reg)
	}
	if !addr.Add {
		t.Errorf("address.Add = false, want true")
	}

	reparsed, err := Parse(in.String())
	if err != nil {
		t.Fatalf("re-parsing rendered text %q: %v", in.String(), err)
	}
	if !in.Equal(reparsed) {
		t.Errorf("round trip mismatch: %s != %s", in, reparsed)
	}
}

func TestParseDataProcessing(t *testing.T) {
	tests := []struct {
		line     string
		cond     isa.Cond
		op       isa.Op
		setFlags bool
		operands int
		hasExtra bool
	}{
		{"ADD r0, r1, r2", isa.AL, isa.ADD, false, 3, false},
		{"ADDS r0, r1, #1", isa.AL, isa.ADD, true, 3, false},
		{"SUBGES r3, r3, r4", isa.GE, isa.SUB, true, 3, false},
		{"MOV r0, #1234", isa.AL, isa.MOV, false, 2, false},
		{"MVNEQ r0, r1, LSL #2", isa.EQ, isa.MVN, false, 2, true},
		{"CMP r0, r1", isa.AL, isa.CMP, true, 2, false},
		{"TSTNE r0, #0xff", isa.NE, isa.TST, true, 2, false},
		{"BX lr", isa.AL, isa.BX, false, 1, false},
	}
	for _, tc := range tests {
		t.Run(tc.line, func(t *testing.T) {
			in, err := Parse(tc.line)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tc.line, err)
			}
			if in.Cond != tc.cond {
				t.Errorf("Cond = %v, want %v", in.Cond, tc.cond)
			}
			if in.Op != tc.op {
				t.Errorf("Op = %v, want %v", in.Op, tc.op)
			}
			if in.SetFlags != tc.setFlags {
				t.Errorf("SetFlags = %v, want %v", in.SetFlags, tc.setFlags)
			}
			if len(in.Operands) != tc.operands {
				t.Errorf("len(Operands) = %d, want %d", len(in.Operands), tc.operands)
			}
			if (in.Extra != nil) != tc.hasExtra {
				t.Errorf("Extra present = %v, want %v", in.Extra != nil, tc.hasExtra)
			}
		})
	}
}

func TestParseMultiplyFamily(t *testing.T) {
	in, err := Parse("MUL r0, r1, r2")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if in.Op != isa.MUL || len(in.Operands) != 3 {
		t.Errorf("got %+v", in)
	}

	in, err = Parse("UMULLS r0, r1, r2, r3")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if in.Op != isa.UMULL || !in.SetFlags || len(in.Operands) != 4 {
		t.Errorf("got %+v", in)
	}
	out, err := Parse(in.String())
	if err != nil {
		t.Fatalf("re-parsing %q: %v", in.String(), err)
	}
	if !in.Equal(out) {
		t.Errorf("round trip mismatch: %s != %s", in, out)
	}
}

func TestParseShiftMnemonic(t *testing.T) {
	in, err := Parse("LSL r0, r1, #4")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if in.Op != isa.LSLOp || len(in.Operands) != 3 || in.Operands[2].Imm != 4 {
		t.Errorf("got %+v", in)
	}
}

func TestParseRoundTripViaString(t *testing.T) {
	lines := []string{
		"ADD r0, r1, r2",
		"ANDEQ r3, r4, #7",
		"CMP r0, r1",
		"STR r0, [r1, #4]",
		"LDR r0, [r1], #4",
		"MVN r2, r3, ROR #8",
	}
	for _, line := range lines {
		t.Run(line, func(t *testing.T) {
			in, err := Parse(line)
			if err != nil {
				t.Fatalf("Parse(%q): %v", line, err)
			}
			out, err := Parse(in.String())
			if err != nil {
				t.Fatalf("re-parsing %q: %v", in.String(), err)
			}
			if !in.Equal(out) {
				t.Errorf("round trip mismatch for %q: %s != %s", line, in, out)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		line string
		kind string
	}{
		{"", "Format"},
		{"FROB r0, r1", "Field"},
		{"ADD r0, r99, r2", "Field"},
		{"ADD r0, r1 r2", "Format"},
	}
	for _, tc := range tests {
		t.Run(tc.line, func(t *testing.T) {
			_, err := Parse(tc.line)
			if err == nil {
				t.Fatalf("Parse(%q): expected an error", tc.line)
			}
			pe, ok := err.(*ParseError)
			if !ok {
				t.Fatalf("expected *ParseError, got %T", err)
			}
			if pe.Kind != tc.kind {
				t.Errorf("Kind = %q, want %q", pe.Kind, tc.kind)
			}
		})
	}
}
