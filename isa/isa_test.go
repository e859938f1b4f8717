package isa

import "testing"

func TestRegisterRoundTrip(t *testing.T) {
	for v := uint32(0); v <= 15; v++ {
		r, err := RegisterFromUint(v)
		if err != nil {
			t.Fatalf("RegisterFromUint(%d): %v", v, err)
		}
		if r != SP && r != LR && r != PC {
			if r.Uint() != v {
				t.Errorf("Register(%d).Uint() = %d", v, r.Uint())
			}
		}
	}
	if _, err := RegisterFromUint(16); err == nil {
		t.Error("expected error for out-of-range register value")
	}
}

func TestParseRegisterAliases(t *testing.T) {
	cases := map[string]Register{
		"sp": SP, "SP": SP, "lr": LR, "pc": PC, "r0": R0, "R12": R12,
	}
	for s, want := range cases {
		got, err := ParseRegister(s)
		if err != nil || got != want {
			t.Errorf("ParseRegister(%q) = %v, %v; want %v", s, got, err, want)
		}
	}
}

func TestCondFromUint(t *testing.T) {
	if _, err := CondFromUint(15); err == nil {
		t.Error("expected error for reserved condition value 15")
	}
	c, err := CondFromUint(14)
	if err != nil || c != AL {
		t.Errorf("CondFromUint(14) = %v, %v; want AL", c, err)
	}
}

func TestParseCondEmptyMeansAL(t *testing.T) {
	c, err := ParseCond("")
	if err != nil || c != AL {
		t.Errorf("ParseCond(\"\") = %v, %v; want AL", c, err)
	}
}

func TestInstructionDisplay(t *testing.T) {
	// ANDEQ R12, PC, #12
	in := NewInstruction(EQ, AND, []Operand{
		RegOperand(R12), RegOperand(PC), ImmOperand(12),
	}, nil, false)
	want := "ANDEQ R12, PC, #12"
	if got := in.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestInstructionDisplayUnconditionalNoSuffix(t *testing.T) {
	in := NewInstruction(AL, ADD, []Operand{
		RegOperand(R0), RegOperand(R0), ImmOperand(1),
	}, nil, false)
	want := "ADD R0, R0, #1"
	if got := in.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestCompareForcesSetFlags(t *testing.T) {
	in := NewInstruction(AL, CMP, []Operand{RegOperand(R0), ImmOperand(1)}, nil, false)
	if !in.SetFlags {
		t.Error("CMP must force SetFlags")
	}
	if got := in.String(); got != "CMP R0, #1" {
		t.Errorf("String() = %q, want no S suffix for compare", got)
	}
}

func TestEvalCond(t *testing.T) {
	cases := []struct {
		cond       Cond
		n, z, c, v bool
		want       bool
	}{
		{EQ, false, true, false, false, true},
		{NE, false, true, false, false, false},
		{CS, false, false, true, false, true},
		{CC, false, false, true, false, false},
		{MI, true, false, false, false, true},
		{PL, true, false, false, false, false},
		{VS, false, false, false, true, true},
		{VC, false, false, false, true, false},
		{HI, false, false, true, false, true},
		{HI, false, true, true, false, false},
		{LS, false, false, true, false, false},
		{LS, false, true, true, false, true},
		{GE, true, false, false, true, true},
		{LT, true, false, false, true, false},
		{GT, false, false, false, false, true},
		{LE, true, false, false, false, true},
		{AL, false, false, false, false, true},
	}
	for _, c := range cases {
		if got := EvalCond(c.cond, c.n, c.z, c.c, c.v); got != c.want {
			t.Errorf("EvalCond(%v, N=%v Z=%v C=%v V=%v) = %v, want %v",
				c.cond, c.n, c.z, c.c, c.v, got, c.want)
		}
	}
}

func TestFlagsBitsLayout(t *testing.T) {
	w := FlagsBits(true, true, true, true)
	if w != 0xF0000000 {
		t.Errorf("FlagsBits(all true) = %#x, want 0xF0000000", w)
	}
	n, z, c, v := FlagsUnpack(w)
	if !n || !z || !c || !v {
		t.Error("FlagsUnpack did not round-trip all-true")
	}
	n, z, c, v = FlagsUnpack(0)
	if n || z || c || v {
		t.Error("FlagsUnpack(0) should be all false")
	}
}

func TestParseImmediate(t *testing.T) {
	v, err := ParseImmediate("#12")
	if err != nil || v != 12 {
		t.Errorf("ParseImmediate(#12) = %d, %v", v, err)
	}
	v, err = ParseImmediate("#-1")
	if err != nil || v != 0xFFFFFFFF {
		t.Errorf("ParseImmediate(#-1) = %#x, %v", v, err)
	}
}

func TestAddrModeFromPW(t *testing.T) {
	cases := []struct {
		p, w bool
		want AddrMode
		err  bool
	}{
		{true, false, Offset, false},
		{true, true, PreIndex, false},
		{false, false, PostIndex, false},
		{false, true, 0, true},
	}
	for _, c := range cases {
		got, err := AddrModeFromPW(c.p, c.w)
		if c.err {
			if err == nil {
				t.Errorf("AddrModeFromPW(%v,%v) expected error", c.p, c.w)
			}
			continue
		}
		if err != nil || got != c.want {
			t.Errorf("AddrModeFromPW(%v,%v) = %v, %v; want %v", c.p, c.w, got, err, c.want)
		}
	}
}
