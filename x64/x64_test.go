package x64

import (
	"bytes"
	"testing"
)

func emit(t *testing.T, f func(e *Emitter)) []byte {
	t.Helper()
	e := NewEmitter()
	f(e)
	return e.Bytes()
}

func assertBytes(t *testing.T, got, want []byte) {
	t.Helper()
	if !bytes.Equal(got, want) {
		t.Errorf("got % X, want % X", got, want)
	}
}

func TestMovRegRegGolden(t *testing.T) {
	got := emit(t, func(e *Emitter) {
		if err := e.MovRegReg(EAX, R15D); err != nil {
			t.Fatal(err)
		}
	})
	assertBytes(t, got, []byte{0x44, 0x89, 0xF8})
}

func TestMovAddrRegGolden(t *testing.T) {
	got := emit(t, func(e *Emitter) {
		e.MovAddrReg(Disp(RSP, 16000), R11D)
	})
	assertBytes(t, got, []byte{0x44, 0x89, 0x9C, 0x24, 0x80, 0x3E, 0x00, 0x00})
}

func TestMovRegRegMismatchedSizeErrors(t *testing.T) {
	e := NewEmitter()
	if err := e.MovRegReg(EAX, R15); err == nil {
		t.Fatal("expected OperandSizeMismatch error")
	}
}

func TestMovRegAddrDisp0NoDisp(t *testing.T) {
	got := emit(t, func(e *Emitter) {
		e.MovRegAddr(EAX, Disp(RDI, 0))
	})
	// 8B 07 : mov eax, [rdi]
	assertBytes(t, got, []byte{0x8B, 0x07})
}

func TestMovRegAddrDisp8(t *testing.T) {
	got := emit(t, func(e *Emitter) {
		e.MovRegAddr(EAX, Disp(RDI, 16))
	})
	assertBytes(t, got, []byte{0x8B, 0x47, 0x10})
}

func TestMovRegAddrRBPBaseUpgradesToDisp8Zero(t *testing.T) {
	got := emit(t, func(e *Emitter) {
		e.MovRegAddr(EAX, Disp(RBP, 0))
	})
	// RBP base with disp0 must upgrade to Disp8(#0): 8B 45 00
	assertBytes(t, got, []byte{0x8B, 0x45, 0x00})
}

func TestMovRegAddrRSPBaseAlwaysNeedsSIB(t *testing.T) {
	got := emit(t, func(e *Emitter) {
		e.MovRegAddr(EAX, Disp(RSP, 0))
	})
	// 8B 04 24 : mov eax, [rsp]
	assertBytes(t, got, []byte{0x8B, 0x04, 0x24})
}

func TestMovRegAddrSIBForm(t *testing.T) {
	got := emit(t, func(e *Emitter) {
		e.MovRegAddr(EAX, SIB(4, RCX, RDI, 8))
	})
	// 8B 44 8F 08 : mov eax, [rdi + rcx*4 + 8]
	assertBytes(t, got, []byte{0x8B, 0x44, 0x8F, 0x08})
}

func TestSIBIndexCannotBeRSP(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for SIB index == RSP")
		}
	}()
	SIB(1, RSP, RDI, 0)
}

func TestSIBRejectsBadScale(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for invalid scale")
		}
	}()
	SIB(3, RCX, RDI, 0)
}

func TestMovRegImm32(t *testing.T) {
	got := emit(t, func(e *Emitter) {
		if err := e.MovRegImm(EAX, 42); err != nil {
			t.Fatal(err)
		}
	})
	assertBytes(t, got, []byte{0xB8, 0x2A, 0x00, 0x00, 0x00})
}

func TestMovRegImm64(t *testing.T) {
	got := emit(t, func(e *Emitter) {
		if err := e.MovRegImm(R8, 1); err != nil {
			t.Fatal(err)
		}
	})
	assertBytes(t, got, []byte{0x49, 0xB8, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00})
}

func TestPushPopRegDisp0AndDisp8(t *testing.T) {
	got := emit(t, func(e *Emitter) {
		e.PushReg(RBX)
		e.PushAddr(Disp(RDI, 0))
		e.PopReg(RBX)
		e.PopAddr(Disp(RDI, 16))
	})
	assertBytes(t, got, []byte{
		0x53,             // push rbx
		0xFF, 0x37,       // push [rdi]
		0x5B,             // pop rbx
		0x8F, 0x47, 0x10, // pop [rdi+16]
	})
}

func TestSubRegImm32(t *testing.T) {
	got := emit(t, func(e *Emitter) {
		e.SubRegImm32(RSP, 32)
	})
	assertBytes(t, got, []byte{0x48, 0x81, 0xEC, 0x20, 0x00, 0x00, 0x00})
}

func TestAluCarryFormsGolden(t *testing.T) {
	got := emit(t, func(e *Emitter) {
		if err := e.AdcRegReg(EAX, ECX); err != nil {
			t.Fatal(err)
		}
		if err := e.SbbRegReg(EAX, ECX); err != nil {
			t.Fatal(err)
		}
	})
	assertBytes(t, got, []byte{
		0x11, 0xC8, // adc eax, ecx
		0x19, 0xC8, // sbb eax, ecx
	})
}

func TestImulRegRegGolden(t *testing.T) {
	got := emit(t, func(e *Emitter) {
		if err := e.ImulRegReg(EAX, ECX); err != nil {
			t.Fatal(err)
		}
		if err := e.ImulRegReg(RAX, RCX); err != nil {
			t.Fatal(err)
		}
	})
	assertBytes(t, got, []byte{
		0x0F, 0xAF, 0xC1, // imul eax, ecx
		0x48, 0x0F, 0xAF, 0xC1, // imul rax, rcx
	})
}

func TestMovsxdGolden(t *testing.T) {
	got := emit(t, func(e *Emitter) {
		if err := e.MovsxdRegReg(RAX, EAX); err != nil {
			t.Fatal(err)
		}
	})
	assertBytes(t, got, []byte{0x48, 0x63, 0xC0})
}

func TestMovsxdRejectsWrongSizes(t *testing.T) {
	e := NewEmitter()
	if err := e.MovsxdRegReg(EAX, EAX); err == nil {
		t.Fatal("expected OperandSizeMismatch for a 32-bit movsxd destination")
	}
}

func TestWordSizePrefixPrecedesOpcode(t *testing.T) {
	got := emit(t, func(e *Emitter) {
		if err := e.MovRegReg(AX, CX); err != nil {
			t.Fatal(err)
		}
	})
	// The 0x66 operand-size override must come before the opcode.
	assertBytes(t, got, []byte{0x66, 0x89, 0xC8})
}

func TestWordSizePrefixPrecedesREX(t *testing.T) {
	got := emit(t, func(e *Emitter) {
		if err := e.MovRegReg(AX, R8W); err != nil {
			t.Fatal(err)
		}
	})
	// 66 44 89 C0 : legacy prefix, then REX.R, then opcode.
	assertBytes(t, got, []byte{0x66, 0x44, 0x89, 0xC0})
}

func TestLabelFixupShortJump(t *testing.T) {
	e := NewEmitter()
	l := e.NewLabel()
	e.JmpLabel(l, true)
	e.emitByte(0x90) // nop filler
	if err := e.Bind(l); err != nil {
		t.Fatal(err)
	}
	out, err := e.Finalize()
	if err != nil {
		t.Fatal(err)
	}
	// EB 01 90 : jmp +1 (skips the nop) then lands exactly at bind point
	assertBytes(t, out, []byte{0xEB, 0x01, 0x90})
}

func TestDoubleBindIsAnError(t *testing.T) {
	e := NewEmitter()
	l := e.NewLabel()
	if err := e.Bind(l); err != nil {
		t.Fatal(err)
	}
	if err := e.Bind(l); err == nil {
		t.Fatal("expected DoubleBind error")
	}
}

func TestUnresolvedLabelIsAnError(t *testing.T) {
	e := NewEmitter()
	l := e.NewLabel()
	e.JmpLabel(l, false)
	if _, err := e.Finalize(); err == nil {
		t.Fatal("expected UnresolvedLabel error")
	}
}
