// Package monitor is the display-only terminal view of a running show. It
// polls engine snapshots and never holds the list lock beyond one snapshot.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/satindergrewal/cuedeck/internal/control"
	"github.com/satindergrewal/cuedeck/internal/cue"
	"github.com/satindergrewal/cuedeck/internal/mixer"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("245"))
	standbyStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("226"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	stateStyles = map[cue.State]lipgloss.Style{
		cue.StateError:         errorStyle,
		cue.StatePaused:        lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		cue.StatePrepared:      lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		cue.StatePlayingPre:    lipgloss.NewStyle().Foreground(lipgloss.Color("156")),
		cue.StatePlayingAction: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("46")),
		cue.StatePlayingPost:   lipgloss.NewStyle().Foreground(lipgloss.Color("120")),
	}
)

type refreshMsg struct{}

// Model is the bubbletea model of the monitor.
type Model struct {
	t        control.Transport
	interval time.Duration
	snap     mixer.Snapshot
	message  string
}

// New creates a monitor that refreshes every interval.
func New(t control.Transport, interval time.Duration) Model {
	return Model{t: t, interval: interval, snap: t.Snapshot()}
}

func (m Model) refresh() tea.Cmd {
	return tea.Tick(m.interval, func(time.Time) tea.Msg { return refreshMsg{} })
}

func (m Model) Init() tea.Cmd {
	return m.refresh()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case refreshMsg:
		m.snap = m.t.Snapshot()
		return m, m.refresh()

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ", "g":
			if c, err := m.t.Go(); err != nil {
				m.message = err.Error()
			} else {
				m.message = "GO " + c.ID()
			}
		case "esc", "s":
			m.t.StopAll()
			m.message = "stopped all"
		case "p":
			m.t.PauseAll()
			m.message = "paused all"
		case "r":
			m.t.ResumeAll()
			m.message = "resumed"
		}
		m.snap = m.t.Snapshot()
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("cuedeck"))
	b.WriteString(dimStyle.Render(fmt.Sprintf("  %s", formatClock(m.snap.Now))))
	b.WriteString("\n\n")

	b.WriteString(headerStyle.Render(fmt.Sprintf("  %-6s %-20s %-7s %-10s %s", "CUE", "NAME", "KIND", "STATE", "ELAPSED")))
	b.WriteString("\n")
	for _, c := range m.snap.Cues {
		marker := "  "
		if c.Standby {
			marker = standbyStyle.Render("> ")
		}
		state := fmt.Sprintf("%-10s", c.State)
		if st, ok := stateStyles[c.State]; ok {
			state = st.Render(state)
		}
		fmt.Fprintf(&b, "%s%-6s %-20s %-7s %s %s\n",
			marker, c.ID, truncate(c.Name, 20), c.Kind, state, progress(c))
	}
	if len(m.snap.Cues) == 0 {
		b.WriteString(dimStyle.Render("  no cues loaded"))
		b.WriteString("\n")
	}

	st := m.snap.Stats
	b.WriteString("\n")
	stats := fmt.Sprintf("ticks %d  tick %s (max %s)  blocks %d  underflows %d",
		st.Ticks, st.LastTick.Round(time.Microsecond), st.MaxTick.Round(time.Microsecond), st.Blocks, st.Underflows)
	if st.Underflows > 0 || st.DeviceErrors > 0 {
		b.WriteString(errorStyle.Render(stats))
	} else {
		b.WriteString(dimStyle.Render(stats))
	}
	b.WriteString("\n")
	if m.message != "" {
		b.WriteString(m.message)
		b.WriteString("\n")
	}
	b.WriteString(dimStyle.Render("space go  s stop all  p pause  r resume  q quit"))
	b.WriteString("\n")
	return b.String()
}

// progress shows the running segment as elapsed/length.
func progress(c mixer.Status) string {
	switch c.State {
	case cue.StatePlayingPre:
		return fmt.Sprintf("pre %s/%s", formatClock(c.Times.Pre), formatClock(c.Timing.Pre))
	case cue.StatePlayingAction, cue.StatePaused:
		return fmt.Sprintf("%s/%s", formatClock(c.Times.Action), formatClock(c.Timing.Action))
	case cue.StatePlayingPost:
		return fmt.Sprintf("post %s/%s", formatClock(c.Times.Post), formatClock(c.Timing.Post))
	}
	return ""
}

func formatClock(d time.Duration) string {
	d = d.Round(100 * time.Millisecond)
	return fmt.Sprintf("%d:%02d.%d", int(d.Minutes()), int(d.Seconds())%60, int(d.Milliseconds()/100)%10)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// Run shows the monitor until the user quits or ctx ends.
func Run(ctx context.Context, t control.Transport, interval time.Duration) error {
	p := tea.NewProgram(New(t, interval), tea.WithContext(ctx), tea.WithAltScreen())
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
