package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/funvibe/polyglot/pkg/conformance"
)

// printer writes command output, colored only when it goes to a terminal.
type printer struct {
	w    io.Writer
	ok   *color.Color
	fail *color.Color
	dim  *color.Color
}

func newPrinter(w io.Writer, allowColor bool) *printer {
	p := &printer{
		w:    w,
		ok:   color.New(color.FgGreen, color.Bold),
		fail: color.New(color.FgRed, color.Bold),
		dim:  color.New(color.Faint),
	}
	if allowColor && isTerminal(w) {
		p.ok.EnableColor()
		p.fail.EnableColor()
		p.dim.EnableColor()
	} else {
		p.ok.DisableColor()
		p.fail.DisableColor()
		p.dim.DisableColor()
	}
	return p
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (p *printer) Printf(format string, args ...any) {
	fmt.Fprintf(p.w, format, args...)
}

// mark renders an allow/pass column.
func (p *printer) mark(ok bool, yes, no string) string {
	if ok {
		return p.ok.Sprint(yes)
	}
	return p.fail.Sprint(no)
}

// report prints a status line followed by one indented line per failure.
func (p *printer) report(name string, r *conformance.Report) {
	p.Printf("%s %s %s\n", p.mark(r.OK(), "PASS", "FAIL"), name,
		p.dim.Sprintf("%s %d checks %s", r.Declared, r.Checks, r.Duration))
	for _, f := range r.Failures {
		p.Printf("    %s\n", f.Error())
	}
}
