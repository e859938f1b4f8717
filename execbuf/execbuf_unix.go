//go:build unix

package execbuf

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

func newExecBuffer(code []byte) (*ExecBuffer, error) {
	pageSize := unix.Getpagesize()
	size := pageRoundUp(len(code), pageSize)

	mem, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, allocFailed(err)
	}
	copy(mem, code)

	if err := unix.Mprotect(mem, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		_ = unix.Munmap(mem)
		return nil, protectFailed(err)
	}

	return &ExecBuffer{mem: mem, size: len(code)}, nil
}

func releaseExecBuffer(mem []byte) error {
	if len(mem) == 0 {
		return nil
	}
	return unix.Munmap(mem)
}

// makeFunc reinterprets the start of an RX-mapped page as a Go function
// value whose code pointer is the generated machine code, following the
// same "construct a func header around a raw code pointer" trick every
// from-scratch Go JIT uses to invoke emitted bytes without cgo. A Go func
// value points at a word holding the code address, hence the two levels of
// indirection.
func makeFunc(mem []byte) Func {
	codePtr := uintptr(unsafe.Pointer(&mem[0]))
	header := &codePtr
	return *(*Func)(unsafe.Pointer(&header))
}
