package status

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/flagpole/c2/internal/session"
	"github.com/flagpole/c2/internal/tui/theme"
)

// Model holds the status bar state.
type Model struct {
	Connected bool
	State     session.State
	Elapsed   time.Duration
	Duration  time.Duration
	Active    int
	Nodes     int
	Width     int
}

func New() Model {
	return Model{}
}

// Remaining is the time left on the session clock, never negative.
func (m Model) Remaining() time.Duration {
	if m.Duration <= m.Elapsed {
		return 0
	}
	return m.Duration - m.Elapsed
}

func (m Model) View() string {
	width := m.Width
	if width < 40 {
		width = 40
	}

	var connStr string
	if m.Connected {
		connStr = lipgloss.NewStyle().Foreground(theme.ColorHealthy).Render("● Connected")
	} else {
		connStr = lipgloss.NewStyle().Foreground(theme.ColorDanger).Render("○ Connecting...")
	}

	stateStr := lipgloss.NewStyle().Foreground(theme.StateColor(m.State.String())).Render(m.State.String())
	clock := fmt.Sprintf("Time Elapsed: %.1f seconds", m.Elapsed.Seconds())
	if m.Duration > 0 {
		clock += fmt.Sprintf("  (%s left)", m.Remaining().Truncate(time.Second))
	}
	counts := fmt.Sprintf("%d/%d nodes active", m.Active, m.Nodes)

	sep := lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(" | ")
	content := connStr + sep + stateStr + sep + clock + sep + counts

	return lipgloss.NewStyle().
		Width(width).
		Padding(0, 1).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder).
		Render(content)
}
