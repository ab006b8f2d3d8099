// Package scoreboard renders the live tug-of-war between the two teams and
// the per-node table.
package scoreboard

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"

	"github.com/flagpole/c2/internal/contest"
	"github.com/flagpole/c2/internal/session"
	"github.com/flagpole/c2/internal/tui/theme"
)

// FPS is the bar animation frame rate.
const FPS = 60

const (
	minBarWidth = 20
	idWidth     = 18
	settleEps   = 0.001
)

// Model animates side A's share of held time toward its latest value.
type Model struct {
	Teams    contest.Teams
	Nodes    []*session.NodeState
	Selected int
	Width    int

	spring harmonica.Spring
	pos    float64
	vel    float64
	target float64
}

func New(teams contest.Teams) Model {
	return Model{
		Teams:  teams,
		spring: harmonica.NewSpring(harmonica.FPS(FPS), 6.0, 0.6),
		pos:    0.5,
		target: 0.5,
	}
}

// Totals sums held time per side across nodes.
func Totals(nodes []*session.NodeState) (a, b time.Duration) {
	for _, n := range nodes {
		a += n.TimeA
		b += n.TimeB
	}
	return a, b
}

// Share is side A's fraction of all held time, 0.5 before any is credited.
func Share(a, b time.Duration) float64 {
	if a+b <= 0 {
		return 0.5
	}
	return float64(a) / float64(a+b)
}

// SetNodes replaces the node list and retargets the bar.
func (m *Model) SetNodes(nodes []*session.NodeState) {
	m.Nodes = nodes
	if m.Selected >= len(nodes) {
		m.Selected = max(len(nodes)-1, 0)
	}
	m.target = Share(Totals(nodes))
}

// Step advances the animation one frame and reports whether the bar is
// still moving.
func (m *Model) Step() bool {
	m.pos, m.vel = m.spring.Update(m.pos, m.vel, m.target)
	if math.Abs(m.pos-m.target) < settleEps && math.Abs(m.vel) < settleEps {
		m.pos, m.vel = m.target, 0
		return false
	}
	return true
}

// Position is the share currently drawn.
func (m Model) Position() float64 { return m.pos }

// Target is the share the bar is moving toward.
func (m Model) Target() float64 { return m.target }

// SelectedNode returns the highlighted node.
func (m Model) SelectedNode() (*session.NodeState, bool) {
	if m.Selected < 0 || m.Selected >= len(m.Nodes) {
		return nil, false
	}
	return m.Nodes[m.Selected], true
}

func (m *Model) Next() {
	if len(m.Nodes) > 0 {
		m.Selected = (m.Selected + 1) % len(m.Nodes)
	}
}

func (m *Model) Prev() {
	if len(m.Nodes) > 0 {
		m.Selected = (m.Selected - 1 + len(m.Nodes)) % len(m.Nodes)
	}
}

func (m Model) View() string {
	return lipgloss.JoinVertical(lipgloss.Left, m.renderBar(), "", m.renderTable())
}

func (m Model) renderBar() string {
	a, b := Totals(m.Nodes)
	nameA := m.Teams.Name(contest.SideA)
	nameB := m.Teams.Name(contest.SideB)

	left := lipgloss.NewStyle().Foreground(theme.ColorSideA).Bold(true).
		Render(fmt.Sprintf("%s %.2fs", nameA, a.Seconds()))
	right := lipgloss.NewStyle().Foreground(theme.ColorSideB).Bold(true).
		Render(fmt.Sprintf("%.2fs %s", b.Seconds(), nameB))

	width := m.Width - lipgloss.Width(left) - lipgloss.Width(right) - 4
	if width < minBarWidth {
		width = minBarWidth
	}
	filled := int(math.Round(clamp(m.pos) * float64(width)))
	bar := lipgloss.NewStyle().Foreground(theme.ColorSideA).Render(strings.Repeat("█", filled)) +
		lipgloss.NewStyle().Foreground(theme.ColorSideB).Render(strings.Repeat("█", width-filled))

	return left + "  " + bar + "  " + right
}

func (m Model) renderTable() string {
	header := theme.StyleHeader.Render(fmt.Sprintf("  %-*s %-6s %10s %10s %6s",
		idWidth, "NODE", "HOLDER", m.Teams.Name(contest.SideA), m.Teams.Name(contest.SideB), "FLIPS"))
	lines := []string{header}

	if len(m.Nodes) == 0 {
		lines = append(lines, theme.StyleDimmed.Render("  No nodes reporting"))
	}

	for i, n := range m.Nodes {
		prefix := "  "
		if i == m.Selected {
			prefix = "> "
		}
		holder := lipgloss.NewStyle().Foreground(theme.SideColor(n.Holder.String())).
			Render(fmt.Sprintf("%-6s", theme.HolderGlyph(n.Holder.String())+" "+n.Holder.String()))
		row := fmt.Sprintf("%s%-*s %s %9.1fs %9.1fs %6d",
			prefix, idWidth, truncate(n.ID, idWidth), holder,
			n.TimeA.Seconds(), n.TimeB.Seconds(), n.Flips)
		if !n.Running {
			row = theme.StyleDimmed.Render(row)
		} else if i == m.Selected {
			row = theme.StyleSelected.Render(row)
		}
		lines = append(lines, row)
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func clamp(f float64) float64 {
	return math.Max(0, math.Min(1, f))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
