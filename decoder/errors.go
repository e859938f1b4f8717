package decoder

import "fmt"

// DecodeError is the error kind raised by the ARM/Thumb decoders: either a
// reserved/undefined encoding, or operand bits that are self-inconsistent.
type DecodeError struct {
	Undefined bool
	Reason    string
	Word      uint32
}

func (e *DecodeError) Error() string {
	if e.Undefined {
		return fmt.Sprintf("decoder: undefined encoding %#08x", e.Word)
	}
	return fmt.Sprintf("decoder: invalid encoding %#08x: %s", e.Word, e.Reason)
}

func undefined(word uint32) error {
	return &DecodeError{Undefined: true, Word: word}
}

func invalid(word uint32, reason string) error {
	return &DecodeError{Reason: reason, Word: word}
}
