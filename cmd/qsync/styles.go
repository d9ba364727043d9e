package qsync

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	stderrRenderer = lipgloss.NewRenderer(os.Stderr)

	errorStyle   = stderrRenderer.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	successStyle = stderrRenderer.NewStyle().Foreground(lipgloss.Color("2"))
	noticeStyle  = stderrRenderer.NewStyle().Foreground(lipgloss.Color("6"))
)

func success(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, successStyle.Render(fmt.Sprintf(format, args...)))
}

func notice(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, noticeStyle.Render(fmt.Sprintf(format, args...)))
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w any) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
