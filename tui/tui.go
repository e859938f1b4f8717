// Package tui is a minimal interactive driver for the translator: it loads
// a UAL source file, decodes and translates it into one host code block,
// and renders the decoded instruction stream, the emitted x86_64 hex, and
// the guest register/flag state before and after invoking the compiled
// block.
package tui

import (
	"fmt"
	"os"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"armjit/execbuf"
	"armjit/isa"
	"armjit/regalloc"
	"armjit/translator"
	"armjit/uasm"
)

// TUI is the translator's interactive text-mode viewer.
type TUI struct {
	App   *tview.Application
	Pages *tview.Pages

	SourceView    *tview.TextView
	DisasmView    *tview.TextView
	HexView       *tview.TextView
	RegistersView *tview.TextView
	OutputView    *tview.TextView

	abi   translator.ABI
	alloc *regalloc.Allocation
	opts  translator.Options

	sourcePath string
	source     []string
	instrs     []isa.Instruction
	before     [17]uint32
}

// New creates a TUI that will translate for the given ABI, register
// allocation, and translation options when the user asks it to run the
// loaded block.
func New(abi translator.ABI, alloc *regalloc.Allocation, opts translator.Options) *TUI {
	t := &TUI{
		App:   tview.NewApplication(),
		abi:   abi,
		alloc: alloc,
		opts:  opts,
	}
	t.initializeViews()
	t.buildLayout()
	t.setupKeyBindings()
	return t
}

func (t *TUI) initializeViews() {
	t.SourceView = tview.NewTextView().SetDynamicColors(true).SetScrollable(true)
	t.SourceView.SetBorder(true).SetTitle(" Source ")

	t.DisasmView = tview.NewTextView().SetDynamicColors(true).SetScrollable(true)
	t.DisasmView.SetBorder(true).SetTitle(" Decoded ")

	t.HexView = tview.NewTextView().SetDynamicColors(true).SetScrollable(true).SetWrap(false)
	t.HexView.SetBorder(true).SetTitle(" Emitted x86_64 ")

	t.RegistersView = tview.NewTextView().SetDynamicColors(true).SetScrollable(false)
	t.RegistersView.SetBorder(true).SetTitle(" Registers (before -> after) ")

	t.OutputView = tview.NewTextView().SetDynamicColors(true).SetScrollable(true)
	t.OutputView.SetBorder(true).SetTitle(" Output (r=run, q=quit) ")
}

func (t *TUI) buildLayout() {
	left := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(t.SourceView, 0, 1, false).
		AddItem(t.DisasmView, 0, 1, false)
	right := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(t.HexView, 0, 1, false).
		AddItem(t.RegistersView, 0, 1, false).
		AddItem(t.OutputView, 0, 1, false)
	mainLayout := tview.NewFlex().
		AddItem(left, 0, 1, false).
		AddItem(right, 0, 1, false)

	t.Pages = tview.NewPages().AddPage("main", mainLayout, true, true)
}

func (t *TUI) setupKeyBindings() {
	t.App.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyCtrlC {
			t.App.Stop()
			return nil
		}
		switch event.Rune() {
		case 'q', 'Q':
			t.App.Stop()
			return nil
		case 'r', 'R':
			t.run()
			return nil
		}
		return event
	})
}

// Load reads a UAL source file, parsing it one instruction per non-empty,
// non-comment line via uasm, and renders the source/decoded panes. A line
// uasm can't parse is shown inline as an error instead of aborting the load.
func (t *TUI) Load(path string) error {
	data, err := os.ReadFile(path) // #nosec G304 -- operator-provided source file
	if err != nil {
		return fmt.Errorf("tui: reading %s: %w", path, err)
	}
	t.sourcePath = path
	t.source = strings.Split(string(data), "\n")
	t.instrs = nil

	var disasm strings.Builder
	for i, line := range t.source {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, ";") || strings.HasPrefix(trimmed, "@") {
			continue
		}
		in, err := uasm.ParseLine(trimmed, i+1)
		if err != nil {
			fmt.Fprintf(&disasm, "%d: [red]%v[white]\n", i+1, err)
			continue
		}
		t.instrs = append(t.instrs, in)
		fmt.Fprintf(&disasm, "%d: %s\n", i+1, in)
	}

	t.SourceView.SetText(strings.Join(t.source, "\n"))
	t.DisasmView.SetText(disasm.String())
	return nil
}

// SetInitialState sets the guest register array the next run invokes the
// translated block against.
func (t *TUI) SetInitialState(state [17]uint32) {
	t.before = state
}

func (t *TUI) run() {
	code, err := translator.TranslateWithOptions(t.abi, t.alloc, t.opts, t.instrs)
	if err != nil {
		fmt.Fprintf(t.OutputView, "[red]translate: %v[white]\n", err)
		return
	}
	t.HexView.SetText(hexDump(code))

	buf, err := execbuf.New(code)
	if err != nil {
		fmt.Fprintf(t.OutputView, "[red]exec buffer: %v[white]\n", err)
		return
	}
	defer buf.Close()

	after := t.before
	fn := buf.AsFunc()
	status := fn(&after[0])

	t.RegistersView.SetText(registerDump(t.before, after))
	fmt.Fprintf(t.OutputView, "block returned status %d\n", status)
}

// Run starts the tview event loop; it blocks until the user quits.
func (t *TUI) Run() error {
	return t.App.SetRoot(t.Pages, true).EnableMouse(true).Run()
}
