// Package eventlog is the console's running account of a session: holder
// changes seen on the feed, operator presses, the verdict, and feed trouble.
package eventlog

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/flagpole/c2/internal/contest"
	"github.com/flagpole/c2/internal/session"
	"github.com/flagpole/c2/internal/tui/theme"
)

const capacity = 200

type Kind int

const (
	KindFeed Kind = iota
	KindFlip
	KindPress
	KindResult
	KindError
)

var kindTags = [...]string{"feed", "flip", "prss", "won", "err"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindTags) {
		return "?"
	}
	return kindTags[k]
}

func (k Kind) color() lipgloss.Color {
	switch k {
	case KindFeed:
		return theme.ColorHealthy
	case KindFlip:
		return theme.ColorBright
	case KindPress:
		return theme.ColorWarning
	case KindResult:
		return theme.ColorCompleted
	case KindError:
		return theme.ColorDanger
	}
	return theme.ColorDimmed
}

// Entry is one logged event. Node is empty for session-wide entries; Side
// is meaningful for flips, presses and results.
type Entry struct {
	At   time.Time
	Kind Kind
	Node string
	Side contest.Side
	Text string
}

type Model struct {
	Teams contest.Teams

	entries []Entry
	offset  int // lines scrolled up from the newest entry
	holders map[string]contest.Side
	flips   int
	presses int
	now     func() time.Time
}

func New() Model {
	return Model{
		holders: make(map[string]contest.Side),
		now:     time.Now,
	}
}

func (m *Model) add(e Entry) {
	e.At = m.now()
	m.entries = append(m.entries, e)
	if len(m.entries) > capacity {
		m.entries = m.entries[len(m.entries)-capacity:]
	}
	m.offset = 0
}

// Feed records a connectivity or session state change.
func (m *Model) Feed(text string) {
	m.add(Entry{Kind: KindFeed, Text: text})
}

func (m *Model) Errorf(format string, args ...interface{}) {
	m.add(Entry{Kind: KindError, Text: fmt.Sprintf(format, args...)})
}

// Observe compares each node's holder with the last one seen and logs a
// flip for every change. A node's first sighting only sets its baseline.
// It returns the number of flips logged.
func (m *Model) Observe(nodes []*session.NodeState) int {
	n := 0
	for _, ns := range nodes {
		prev, seen := m.holders[ns.ID]
		m.holders[ns.ID] = ns.Holder
		if !seen || prev == ns.Holder {
			continue
		}
		m.add(Entry{Kind: KindFlip, Node: ns.ID, Side: ns.Holder})
		m.flips++
		n++
	}
	return n
}

// Press records an operator press the coordinator accepted.
func (m *Model) Press(node string, side contest.Side) {
	m.add(Entry{Kind: KindPress, Node: node, Side: side})
	m.presses++
}

func (m *Model) Result(res contest.Result) {
	m.add(Entry{
		Kind: KindResult,
		Side: res.Winner,
		Text: fmt.Sprintf("%.1fs to %.1fs", res.TotalA.Seconds(), res.TotalB.Seconds()),
	})
}

// LastError returns the newest entry if it is an error.
func (m Model) LastError() (Entry, bool) {
	if len(m.entries) == 0 {
		return Entry{}, false
	}
	e := m.entries[len(m.entries)-1]
	return e, e.Kind == KindError
}

func (m Model) Entries() []Entry { return m.entries }

// Counts returns how many flips and presses have been logged.
func (m Model) Counts() (flips, presses int) { return m.flips, m.presses }

// Scroll moves the view by delta lines; positive scrolls back in time.
func (m *Model) Scroll(delta int) {
	m.offset += delta
	if top := len(m.entries) - 1; m.offset > top {
		m.offset = top
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

func (m Model) side(s contest.Side) string {
	return lipgloss.NewStyle().Foreground(theme.SideColor(s.String())).Bold(true).Render(m.Teams.Name(s))
}

func (m Model) line(e Entry) string {
	var body string
	switch e.Kind {
	case KindFlip:
		body = theme.HolderGlyph(e.Side.String()) + " taken by " + m.side(e.Side)
	case KindPress:
		body = "operator pressed " + m.side(e.Side)
	case KindResult:
		body = m.side(e.Side) + " team won, " + e.Text
	default:
		body = e.Text
	}

	node := ""
	if e.Node != "" {
		node = lipgloss.NewStyle().Width(16).Render(e.Node)
	}
	return fmt.Sprintf("%s %s %s%s",
		theme.StyleDimmed.Render(e.At.Format("15:04:05.000")),
		lipgloss.NewStyle().Foreground(e.Kind.color()).Width(4).Render(e.Kind.String()),
		node, body)
}

// View renders the log as an overlay panel.
func (m Model) View(width, height int) string {
	innerW := max(width-4, 20)
	rows := max(height-6, 3)

	title := theme.StyleHeader.Render(" EVENT LOG ")
	summary := theme.StyleDimmed.Render(fmt.Sprintf("%d flips  %d presses", m.flips, m.presses))
	help := theme.StyleDimmed.Render("j/k:scroll  esc:close")
	panel := lipgloss.NewStyle().
		Width(innerW).
		Padding(1, 2).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder)

	if len(m.entries) == 0 {
		body := theme.StyleDimmed.Render("  Nothing has happened yet.")
		return panel.Render(lipgloss.JoinVertical(lipgloss.Left, title, "", body, "", help))
	}

	end := len(m.entries) - m.offset
	start := max(end-rows, 0)
	lines := make([]string, 0, end-start)
	for _, e := range m.entries[start:end] {
		lines = append(lines, m.line(e))
	}
	if m.offset > 0 {
		lines = append(lines, theme.StyleDimmed.Render(fmt.Sprintf(" ↓ %d newer", m.offset)))
	}

	return panel.Render(lipgloss.JoinVertical(lipgloss.Left,
		title+"  "+summary, strings.Join(lines, "\n"), help))
}
