// Command armjit translates a UAL source file into a single host code
// block, executes it, and prints the resulting guest register and flag
// state.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"armjit/config"
	"armjit/execbuf"
	"armjit/isa"
	"armjit/regalloc"
	"armjit/translator"
	"armjit/uasm"
)

var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version information")
		targetOS    = flag.String("os", "", "Target host ABI: linux or windows (default: config file, else runtime GOOS)")
		statePath   = flag.String("state", "", "Path to a file of 17 decimal or 0x-hex words seeding R0..R12,SP,LR,PC,FLAGS (default: all zero)")
		verbose     = flag.Bool("verbose", false, "Print the emitted host byte sequence")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("armjit %s (%s)\n", Version, Commit)
		return
	}

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: armjit [flags] <source.s>")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "armjit: loading config: %v\n", err)
		os.Exit(1)
	}
	if *targetOS != "" {
		cfg.Target.OS = *targetOS
	}

	instrs, err := loadSource(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "armjit: %v\n", err)
		os.Exit(1)
	}

	var state [17]uint32
	if *statePath != "" {
		if state, err = loadState(*statePath); err != nil {
			fmt.Fprintf(os.Stderr, "armjit: %v\n", err)
			os.Exit(1)
		}
	}

	abi := translator.ABIFor(cfg.ResolvedOS())
	alloc, err := regalloc.WithPinned(cfg.RegAlloc.PinnedPhys)
	if err != nil {
		fmt.Fprintf(os.Stderr, "armjit: %v\n", err)
		os.Exit(1)
	}
	opts := translator.Options{
		PreferShortJumps: cfg.Target.PreferShortJz,
		SpillSlotBytes:   cfg.RegAlloc.SpillSlotBytes,
	}

	code, err := translator.TranslateWithOptions(abi, alloc, opts, instrs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "armjit: translate: %v\n", err)
		os.Exit(1)
	}

	if *verbose {
		fmt.Fprintf(os.Stderr, "emitted %d bytes:\n", len(code))
		for i, b := range code {
			fmt.Fprintf(os.Stderr, "%02x ", b)
			if (i+1)%16 == 0 {
				fmt.Fprintln(os.Stderr)
			}
		}
		fmt.Fprintln(os.Stderr)
	}

	if cfg.Diagnostics.DumpEmittedHex {
		if err := dumpHex(cfg.Diagnostics.DumpFile, code); err != nil {
			fmt.Fprintf(os.Stderr, "armjit: %v\n", err)
			os.Exit(1)
		}
	}

	buf, err := execbuf.New(code)
	if err != nil {
		fmt.Fprintf(os.Stderr, "armjit: exec buffer: %v\n", err)
		os.Exit(1)
	}
	defer buf.Close()

	fn := buf.AsFunc()
	status := fn(&state[0])

	printState(state)
	fmt.Printf("status: %d\n", status)
}

func dumpHex(path string, code []byte) error {
	var b strings.Builder
	for i, by := range code {
		fmt.Fprintf(&b, "%02x", by)
		if (i+1)%16 == 0 {
			b.WriteString("\n")
		} else {
			b.WriteString(" ")
		}
	}
	if len(code)%16 != 0 {
		b.WriteString("\n")
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("writing hex dump %s: %w", path, err)
	}
	return nil
}

func loadSource(path string) ([]isa.Instruction, error) {
	f, err := os.Open(path) // #nosec G304 -- operator-provided source file
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var instrs []isa.Instruction
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ";") || strings.HasPrefix(line, "@") {
			continue
		}
		in, err := uasm.ParseLine(line, lineNo)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
		instrs = append(instrs, in)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return instrs, nil
}

func loadState(path string) ([17]uint32, error) {
	var state [17]uint32
	f, err := os.Open(path) // #nosec G304 -- operator-provided state file
	if err != nil {
		return state, fmt.Errorf("opening state file %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	i := 0
	for scanner.Scan() && i < len(state) {
		tok := strings.TrimSpace(scanner.Text())
		if tok == "" {
			continue
		}
		v, err := strconv.ParseUint(tok, 0, 32)
		if err != nil {
			return state, fmt.Errorf("state file %s word %d: %w", path, i+1, err)
		}
		state[i] = uint32(v)
		i++
	}
	return state, scanner.Err()
}

func printState(state [17]uint32) {
	names := []string{"R0", "R1", "R2", "R3", "R4", "R5", "R6", "R7",
		"R8", "R9", "R10", "R11", "R12", "SP", "LR", "PC"}
	for i, name := range names {
		fmt.Printf("%-4s 0x%08X\n", name, state[i])
	}
	n, z, c, v := isa.FlagsUnpack(state[16])
	fmt.Printf("FLAGS N=%t Z=%t C=%t V=%t\n", n, z, c, v)
}
