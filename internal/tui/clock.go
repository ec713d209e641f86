package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/felixgeelhaar/attention/internal/workclock"
)

// TickMsg carries a watcher update into the program.
type TickMsg workclock.Tick

// SessionEndedMsg is sent when the user logged out while watching.
type SessionEndedMsg struct{}

type toggledMsg struct {
	state workclock.State
	err   error
}

// ClockStyles holds the few styles of the clock view.
type ClockStyles struct {
	Title   lipgloss.Style
	Running lipgloss.Style
	Stopped lipgloss.Style
	Error   lipgloss.Style
	Muted   lipgloss.Style
}

// DefaultClockStyles returns the default lipgloss styles
func DefaultClockStyles() ClockStyles {
	return ClockStyles{
		Title:   lipgloss.NewStyle().Bold(true),
		Running: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("46")),
		Stopped: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	}
}

// ClockModel renders a ticking work clock. "s" toggles it, "q" quits.
type ClockModel struct {
	ctx   context.Context
	clock *workclock.WorkClock

	tick     workclock.Tick
	busy     bool
	err      error
	ended    bool
	quitting bool

	styles ClockStyles
}

// NewClockModel creates the model; initial is shown until the first tick.
func NewClockModel(ctx context.Context, clock *workclock.WorkClock, initial workclock.Tick) ClockModel {
	return ClockModel{
		ctx:    ctx,
		clock:  clock,
		tick:   initial,
		styles: DefaultClockStyles(),
	}
}

func (m ClockModel) Init() tea.Cmd {
	return nil
}

func (m ClockModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "s":
			if m.busy {
				return m, nil
			}
			m.busy = true
			m.err = nil
			return m, m.toggle()
		}

	case TickMsg:
		m.tick = workclock.Tick(msg)

	case toggledMsg:
		m.busy = false
		m.err = msg.err
		m.tick.State = msg.state
		m.tick.Elapsed = m.clock.Elapsed(m.tick.At)

	case SessionEndedMsg:
		m.ended = true
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

func (m ClockModel) toggle() tea.Cmd {
	return func() tea.Msg {
		state, err := m.clock.Toggle(m.ctx)
		return toggledMsg{state: state, err: err}
	}
}

func (m ClockModel) View() string {
	if m.quitting {
		if m.ended {
			return "Session ended.\n"
		}
		return ""
	}

	var b strings.Builder
	b.WriteString(m.styles.Title.Render("Reloj control"))
	b.WriteString("\n\n")

	status := m.styles.Stopped.Render(m.tick.State.Status())
	if m.tick.State.Running {
		status = m.styles.Running.Render(m.tick.State.Status())
	}
	fmt.Fprintf(&b, "  Estado:  %s\n", status)
	fmt.Fprintf(&b, "  Tiempo:  %s\n", m.tick.Elapsed)
	if m.tick.State.LastCheckIn != "" {
		fmt.Fprintf(&b, "  Entrada: %s\n", m.tick.State.LastCheckIn)
	}
	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(m.styles.Error.Render(m.err.Error()))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	help := "s: start/stop • q: quit"
	if m.busy {
		help = "working… • q: quit"
	}
	b.WriteString(m.styles.Muted.Render(help))
	b.WriteString("\n")
	return b.String()
}

// Ended reports whether the program stopped because the session ended.
func (m ClockModel) Ended() bool {
	return m.ended
}

// RunClock runs the clock program until the user quits, ctx is cancelled
// or the session ends. It returns workclock.ErrSessionEnded in the last case.
func RunClock(ctx context.Context, clock *workclock.WorkClock, watcher *workclock.Watcher, opts ...tea.ProgramOption) error {
	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewClockModel(ctx, clock, watcher.Snapshot()), opts...)

	go func() {
		err := watcher.Run(watchCtx, func(t workclock.Tick) {
			p.Send(TickMsg(t))
		})
		switch {
		case errors.Is(err, workclock.ErrSessionEnded):
			p.Send(SessionEndedMsg{})
		case ctx.Err() != nil:
			p.Quit()
		}
	}()

	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("clock view failed: %w", err)
	}
	if m, ok := final.(ClockModel); ok && m.Ended() {
		return workclock.ErrSessionEnded
	}
	return nil
}
