// Command armjit-tui launches the interactive translator viewer.
package main

import (
	"flag"
	"fmt"
	"os"

	"armjit/config"
	"armjit/regalloc"
	"armjit/translator"
	"armjit/tui"
)

func main() {
	targetOS := flag.String("os", "", "Target host ABI: linux or windows (default: config file, else runtime GOOS)")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: armjit-tui [flags] <source.s>")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "armjit-tui: loading config: %v\n", err)
		os.Exit(1)
	}
	if *targetOS != "" {
		cfg.Target.OS = *targetOS
	}

	abi := translator.ABIFor(cfg.ResolvedOS())
	alloc, err := regalloc.WithPinned(cfg.RegAlloc.PinnedPhys)
	if err != nil {
		fmt.Fprintf(os.Stderr, "armjit-tui: %v\n", err)
		os.Exit(1)
	}
	opts := translator.Options{
		PreferShortJumps: cfg.Target.PreferShortJz,
		SpillSlotBytes:   cfg.RegAlloc.SpillSlotBytes,
	}

	t := tui.New(abi, alloc, opts)
	if err := t.Load(flag.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "armjit-tui: %v\n", err)
		os.Exit(1)
	}

	if err := t.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "armjit-tui: %v\n", err)
		os.Exit(1)
	}
}
