package main

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
)

var (
	titleBase   = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	headingBase = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Bold(true)
	errorBase   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff4444")).Bold(true)
	barDone     = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ff88"))
	barTodo     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#666688"))
)

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func styled(w io.Writer, s lipgloss.Style) lipgloss.Style {
	if isTerminal(w) {
		return s
	}
	return lipgloss.NewStyle()
}

func titleStyle(w io.Writer) lipgloss.Style   { return styled(w, titleBase) }
func headingStyle(w io.Writer) lipgloss.Style { return styled(w, headingBase) }
func errorStyle(w io.Writer) lipgloss.Style   { return styled(w, errorBase) }

// formatValue prints an analyzer output. Unmeasured values are NaN and print
// as a dash.
func formatValue(v float64) string {
	switch {
	case math.IsNaN(v):
		return "-"
	case math.IsInf(v, 0):
		return fmt.Sprint(v)
	case v != 0 && math.Abs(v) < 1e-3:
		return fmt.Sprintf("%.3e", v)
	}
	return humanize.FtoaWithDigits(v, 3)
}

func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return nil, fmt.Errorf("--log-level: %w", err)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}
