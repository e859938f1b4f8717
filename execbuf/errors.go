package execbuf

import "fmt"

// MemoryError is the error kind raised by ExecBuffer on OS page-allocation
// or protection failures.
type MemoryError struct {
	Kind   string // AllocFailed, ProtectFailed
	OSErr  error
}

func (e *MemoryError) Error() string {
	return fmt.Sprintf("execbuf: %s: %v", e.Kind, e.OSErr)
}

func (e *MemoryError) Unwrap() error { return e.OSErr }

func allocFailed(err error) error   { return &MemoryError{Kind: "AllocFailed", OSErr: err} }
func protectFailed(err error) error { return &MemoryError{Kind: "ProtectFailed", OSErr: err} }
