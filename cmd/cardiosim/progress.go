package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/cardiosim/internal/config"
	"github.com/san-kum/cardiosim/internal/experiment"
)

const barWidth = 40

type pointMsg struct {
	done, total int
	point       experiment.SweepPoint
}

type sweepDoneMsg struct {
	res *experiment.SweepResult
	err error
}

// progressModel shows a restitution sweep while it runs. It quits when the
// sweep finishes or the user interrupts it.
type progressModel struct {
	model       string
	done, total int
	last        *experiment.SweepPoint
	start       time.Time
	cancel      context.CancelFunc

	res *experiment.SweepResult
	err error
}

func (m progressModel) Init() tea.Cmd { return nil }

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.cancel()
			m.err = context.Canceled
			return m, tea.Quit
		}
	case pointMsg:
		m.done, m.total = msg.done, msg.total
		p := msg.point
		m.last = &p
	case sweepDoneMsg:
		m.res, m.err = msg.res, msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m progressModel) View() string {
	if m.res != nil || m.err != nil {
		return ""
	}

	filled := 0
	if m.total > 0 {
		filled = barWidth * m.done / m.total
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s sweep  %s%s  %d/%d  %v\n",
		m.model,
		barDone.Render(strings.Repeat("█", filled)),
		barTodo.Render(strings.Repeat("░", barWidth-filled)),
		m.done, m.total,
		time.Since(m.start).Round(time.Second))
	if m.last != nil {
		fmt.Fprintf(&b, "%s\n", mutedStyle.Render(fmt.Sprintf(
			"last: s2 %s  di %s  apd %s",
			formatValue(m.last.S2), formatValue(m.last.DI), formatValue(m.last.S2APD))))
	}
	b.WriteString(mutedStyle.Render("q to cancel"))
	return b.String()
}

// sweepWithProgress runs the sweep behind a progress view on a terminal and
// with one line per finished run otherwise.
func sweepWithProgress(ctx context.Context, runner *experiment.Runner, cfg *config.Config, w io.Writer) (*experiment.SweepResult, error) {
	if !isTerminal(w) {
		return runner.Sweep(ctx, cfg, func(done, total int, p experiment.SweepPoint) {
			fmt.Fprintf(w, "[%d/%d] s2=%s di=%s apd=%s\n",
				done, total, formatValue(p.S2), formatValue(p.DI), formatValue(p.S2APD))
		})
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := progressModel{model: cfg.Model, start: time.Now(), cancel: cancel}
	p := tea.NewProgram(m, tea.WithOutput(w), tea.WithContext(ctx))

	finished := make(chan sweepDoneMsg, 1)
	go func() {
		res, err := runner.Sweep(ctx, cfg, func(done, total int, pt experiment.SweepPoint) {
			p.Send(pointMsg{done: done, total: total, point: pt})
		})
		finished <- sweepDoneMsg{res: res, err: err}
		p.Send(sweepDoneMsg{res: res, err: err})
	}()

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return nil, err
	}
	done := <-finished
	return done.res, done.err
}
