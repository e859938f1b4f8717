//go:build unix

package execbuf

import "testing"

func TestExecBufferRunsReturnZero(t *testing.T) {
	// `xor eax, eax; ret` — a minimal valid host function that returns 0
	// and touches nothing else, enough to exercise the RW->RX->call path
	// without depending on the translator.
	code := []byte{0x31, 0xC0, 0xC3}

	buf, err := New(code)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer buf.Close()

	fn := buf.AsFunc()
	var state [17]uint32
	if got := fn(&state[0]); got != 0 {
		t.Errorf("translated function returned %d, want 0", got)
	}
}

func TestExecBufferCloseIsIdempotent(t *testing.T) {
	buf, err := New([]byte{0xC3})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := buf.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := buf.Close(); err != nil {
		t.Fatalf("second Close should be a no-op, got: %v", err)
	}
}

func TestPageRoundUp(t *testing.T) {
	cases := []struct{ n, page, want int }{
		{0, 4096, 0},
		{1, 4096, 4096},
		{4096, 4096, 4096},
		{4097, 4096, 8192},
	}
	for _, c := range cases {
		if got := pageRoundUp(c.n, c.page); got != c.want {
			t.Errorf("pageRoundUp(%d, %d) = %d, want %d", c.n, c.page, got, c.want)
		}
	}
}
