package translator

import "armjit/x64"

// ABI captures the host-platform-specific parts of the translated
// function's calling convention: which register carries the incoming
// guest-state pointer, and which registers the callee must preserve.
type ABI struct {
	OS             string // "linux" or "windows"
	GuestStateArg  x64.Reg
	CalleeSaved    []x64.Reg
}

// SysV is the Linux/macOS x86_64 calling convention: the guest-state
// pointer arrives in rdi; rbx, r12-r15, rbp, rsp are callee-saved.
var SysV = ABI{
	OS:            "linux",
	GuestStateArg: x64.RDI,
	CalleeSaved:   []x64.Reg{x64.RBX, x64.R12, x64.R13, x64.R14, x64.R15},
}

// Win64 is the Windows x86_64 calling convention: the guest-state pointer
// arrives in rcx; rbx, rdi, rsi, r12-r15, rbp, rsp are callee-saved.
var Win64 = ABI{
	OS:            "windows",
	GuestStateArg: x64.RCX,
	CalleeSaved:   []x64.Reg{x64.RBX, x64.RDI, x64.RSI, x64.R12, x64.R13, x64.R14, x64.R15},
}

// ABIFor resolves the calling convention for a target OS name.
func ABIFor(os string) ABI {
	if os == "windows" {
		return Win64
	}
	return SysV
}
