// Package tui is a live terminal monitor for a running simulation:
// pressure traces scroll by while the periodicity error converges.
package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/hemolab/pulsim/internal/circ"
	"github.com/hemolab/pulsim/internal/sim"
)

const (
	chartWidth  = 70
	chartHeight = 12
	historyCap  = 600
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(14)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	doneStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

// StepMsg carries one completed time step from the simulation
// goroutine into the UI.
type StepMsg struct {
	T          float64
	S          circ.State
	Cycle      int
	CycleError float64
}

// DoneMsg ends the feed; Err is non-nil when the run failed.
type DoneMsg struct {
	Result *sim.Result
	Err    error
}

// feed adapts the simulator's observer callback to a message channel.
// Sends never block; when the UI falls behind, steps are dropped.
type feed struct {
	ch chan tea.Msg
}

func (f *feed) OnStep(t float64, s circ.State, aux circ.Aux, cyc int, cycleErr float64) {
	msg := StepMsg{T: t, S: s.Clone(), Cycle: cyc, CycleError: cycleErr}
	select {
	case f.ch <- msg:
	default:
	}
}

func waitForMsg(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg { return <-ch }
}

type model struct {
	ch       <-chan tea.Msg
	name     string
	dofNames []string
	selected int

	history  []float64
	t        float64
	cycle    int
	cycleErr float64

	done   bool
	failed error
	result *sim.Result
}

func (m model) Init() tea.Cmd {
	return waitForMsg(m.ch)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "tab":
			m.selected = (m.selected + 1) % len(m.dofNames)
			m.history = m.history[:0]
		}
		return m, nil

	case StepMsg:
		m.t = msg.T
		m.cycle = msg.Cycle
		m.cycleErr = msg.CycleError
		m.history = append(m.history, msg.S[m.selected])
		if len(m.history) > historyCap {
			m.history = m.history[1:]
		}
		return m, waitForMsg(m.ch)

	case DoneMsg:
		m.done = true
		m.failed = msg.Err
		m.result = msg.Result
		return m, nil
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(strings.ToUpper(m.name)) + "\n\n")

	if len(m.history) > 1 {
		chart := asciigraph.Plot(m.history,
			asciigraph.Width(chartWidth),
			asciigraph.Height(chartHeight),
			asciigraph.Caption(m.dofNames[m.selected]),
		)
		b.WriteString(chart + "\n\n")
	} else {
		b.WriteString("(waiting for samples)\n\n")
	}

	b.WriteString(labelStyle.Render("Time") + valueStyle.Render(fmt.Sprintf("%.3f s", m.t)) + "\n")
	b.WriteString(labelStyle.Render("Cycle") + valueStyle.Render(fmt.Sprintf("%d", m.cycle)) + "\n")
	b.WriteString(labelStyle.Render("Cycle error") + valueStyle.Render(fmt.Sprintf("%.3e", m.cycleErr)) + "\n")

	if m.done {
		switch {
		case m.failed != nil:
			b.WriteString(errStyle.Render("FAILED: "+m.failed.Error()) + "\n")
		case m.result != nil && m.result.Periodic:
			b.WriteString(doneStyle.Render(fmt.Sprintf("PERIODIC after %d cycles", m.result.Cycles)) + "\n")
		default:
			b.WriteString(doneStyle.Render("FINISHED (not periodic)") + "\n")
		}
	}

	b.WriteString(helpStyle.Render("tab: next variable   q: quit"))
	return b.String()
}

// Run executes the simulation in the background and blocks on the
// monitor UI until the run ends and the user quits.
func Run(ctx context.Context, name string, cm circ.Model, cfg sim.Config, ic map[string]float64) (*sim.Result, error) {
	ch := make(chan tea.Msg, 256)

	sm, err := sim.New(cm, cfg)
	if err != nil {
		return nil, err
	}
	sm.AddObserver(&feed{ch: ch})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		result *sim.Result
		runErr error
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		result, runErr = sm.Run(ctx, ic)
		select {
		case ch <- DoneMsg{Result: result, Err: runErr}:
		case <-ctx.Done():
		}
	}()

	m := model{
		ch:       ch,
		name:     name,
		dofNames: cm.Names(),
	}
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, uiErr := p.Run()
	cancel()
	<-done
	if uiErr != nil && runErr == nil {
		return result, uiErr
	}
	return result, runErr
}
