//go:build windows

package execbuf

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// windowsPageSize is the standard x86_64 Windows allocation granularity for
// VirtualAlloc commits; x/sys/windows exposes no portable Getpagesize.
const windowsPageSize = 4096

func newExecBuffer(code []byte) (*ExecBuffer, error) {
	size := pageRoundUp(len(code), windowsPageSize)

	addr, err := windows.VirtualAlloc(0, uintptr(size), windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_READWRITE)
	if err != nil {
		return nil, allocFailed(err)
	}
	mem := unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
	copy(mem, code)

	var oldProtect uint32
	if err := windows.VirtualProtect(addr, uintptr(size), windows.PAGE_EXECUTE_READ, &oldProtect); err != nil {
		_ = windows.VirtualFree(addr, 0, windows.MEM_RELEASE)
		return nil, protectFailed(err)
	}

	return &ExecBuffer{mem: mem, size: len(code)}, nil
}

func releaseExecBuffer(mem []byte) error {
	if len(mem) == 0 {
		return nil
	}
	addr := uintptr(unsafe.Pointer(&mem[0]))
	return windows.VirtualFree(addr, 0, windows.MEM_RELEASE)
}

func makeFunc(mem []byte) Func {
	codePtr := uintptr(unsafe.Pointer(&mem[0]))
	header := &codePtr
	return *(*Func)(unsafe.Pointer(&header))
}
