package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// printer writes styled status lines to errW and raw command output to w.
// Rendered prompts go to w untouched so they can be piped.
type printer struct {
	w       io.Writer
	errW    io.Writer
	success lipgloss.Style
	warning lipgloss.Style
	dim     lipgloss.Style
}

func newPrinter(w io.Writer, errW io.Writer) *printer {
	p := &printer{
		w:       w,
		errW:    errW,
		success: lipgloss.NewStyle(),
		warning: lipgloss.NewStyle(),
		dim:     lipgloss.NewStyle(),
	}
	if isTerminal(errW) {
		p.success = lipgloss.NewStyle().Foreground(lipgloss.Color("10")) // Green
		p.warning = lipgloss.NewStyle().Foreground(lipgloss.Color("11")) // Yellow
		p.dim = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
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

// Output writes s verbatim.
func (p *printer) Output(s string) {
	_, _ = io.WriteString(p.w, s)
}

func (p *printer) Success(format string, args ...any) {
	_, _ = fmt.Fprintln(p.errW, p.success.Render(fmt.Sprintf(format, args...)))
}

func (p *printer) Warn(format string, args ...any) {
	_, _ = fmt.Fprintf(p.errW, "%s: %s\n", p.warning.Render("Warning"), fmt.Sprintf(format, args...))
}

func (p *printer) Info(key string, value any) {
	_, _ = fmt.Fprintf(p.errW, "%s %v\n", p.dim.Render(key+":"), value)
}
