package app

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/flagpole/c2/internal/contest"
	"github.com/flagpole/c2/internal/session"
	"github.com/flagpole/c2/internal/tui/client"
	"github.com/flagpole/c2/internal/tui/theme"
	"github.com/flagpole/c2/internal/tui/views/eventlog"
	"github.com/flagpole/c2/internal/tui/views/report"
	"github.com/flagpole/c2/internal/tui/views/scoreboard"
	"github.com/flagpole/c2/internal/tui/views/status"
	"github.com/flagpole/c2/internal/ws"
)

// Overlay identifies which modal is active.
type Overlay int

const (
	OverlayNone Overlay = iota
	OverlayLog
)

// ReportStyle is the glamour style used for the final report.
var ReportStyle = "dark"

type frameMsg struct{}

type pressDoneMsg struct {
	node string
	side contest.Side
	err  error
}

type resyncMsg struct {
	payload *ws.SnapshotPayload
	err     error
}

// Model is the root Bubble Tea model.
type Model struct {
	feed   *client.Feed
	http   *client.HTTPClient
	ctx    context.Context
	cancel context.CancelFunc

	keys   KeyMap
	width  int
	height int

	teams  contest.Teams
	nodes  map[string]*session.NodeState
	result *contest.Result
	report string

	overlay   Overlay
	statusBar status.Model
	board     scoreboard.Model
	log       eventlog.Model
	animating bool

	connected bool
	ended     bool // the feed closed after the verdict
}

// New creates the root model.
func New(feed *client.Feed, http *client.HTTPClient) Model {
	ctx, cancel := context.WithCancel(context.Background())
	return Model{
		feed:      feed,
		http:      http,
		ctx:       ctx,
		cancel:    cancel,
		keys:      DefaultKeyMap(),
		nodes:     make(map[string]*session.NodeState),
		statusBar: status.New(),
		board:     scoreboard.New(contest.Teams{}),
		log:       eventlog.New(),
	}
}

// Init starts the feed connection.
func (m Model) Init() tea.Cmd {
	return m.feed.Connect(m.ctx)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.statusBar.Width = msg.Width
		m.board.Width = msg.Width
		m.renderReport()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case frameMsg:
		if m.board.Step() {
			return m, frame()
		}
		m.animating = false
		return m, nil

	case client.FeedUpMsg:
		m.connected = true
		m.statusBar.Connected = true
		if !msg.Reconnect {
			m.log.Feed("connected")
			return m, m.feed.Next()
		}
		// The on-connect snapshot is dropped for a viewer that is slow to
		// drain, so confirm the state over HTTP as well.
		m.log.Feed("reconnected")
		return m, tea.Batch(m.feed.Next(), m.resync())

	case client.FeedDownMsg:
		m.connected = false
		m.statusBar.Connected = false
		switch {
		case msg.Final:
			return m.feedEnded()
		case msg.Busy:
			m.log.Errorf("coordinator is at its viewer limit, waiting")
		default:
			m.log.Feed("connection lost")
		}
		return m, m.feed.Connect(m.ctx)

	case client.FeedEndedMsg:
		return m.feedEnded()

	case client.SnapshotMsg:
		cmd := m.applySnapshot(msg.Payload)
		return m, tea.Batch(cmd, m.feed.Next())

	case client.ProgressMsg:
		cmd := m.applyProgress(msg.Payload)
		return m, tea.Batch(cmd, m.feed.Next())

	case client.ResultMsg:
		m.setTeams(msg.Payload.Teams)
		m.setResult(msg.Payload.Result)
		return m, m.feed.Next()

	case client.ServerErrorMsg:
		m.log.Errorf("coordinator: %s", msg.Message)
		return m, m.feed.Next()

	case pressDoneMsg:
		if msg.err != nil {
			m.log.Errorf("press %s on %s: %v", m.teams.Name(msg.side), msg.node, msg.err)
		} else {
			m.log.Press(msg.node, msg.side)
		}
		return m, nil

	case resyncMsg:
		if msg.err != nil {
			m.log.Errorf("resync: %v", msg.err)
			return m, nil
		}
		return m, m.applySnapshot(*msg.payload)
	}

	return m, nil
}

func (m Model) feedEnded() (tea.Model, tea.Cmd) {
	m.connected = false
	m.statusBar.Connected = false
	if !m.ended {
		m.ended = true
		m.log.Feed("feed closed after the verdict")
	}
	return m, nil
}

func (m *Model) setTeams(t contest.Teams) {
	m.teams = t
	m.board.Teams = t
	m.log.Teams = t
}

func (m *Model) applySnapshot(p ws.SnapshotPayload) tea.Cmd {
	if p.State != m.statusBar.State {
		m.log.Feed("session " + p.State.String())
	}
	m.setTeams(p.Teams)
	m.log.Observe(p.Nodes)
	m.statusBar.State = p.State
	m.statusBar.Elapsed = p.Elapsed
	if p.Session != nil {
		m.statusBar.Duration = p.Session.Duration
	}

	m.nodes = make(map[string]*session.NodeState, len(p.Nodes))
	for _, n := range p.Nodes {
		m.nodes[n.ID] = n
	}
	if p.Result != nil {
		m.setResult(*p.Result)
	}
	return m.refreshBoard()
}

func (m *Model) applyProgress(p ws.ProgressPayload) tea.Cmd {
	if m.statusBar.State == session.Idle {
		m.statusBar.State = session.Running
	}
	m.statusBar.Elapsed = p.Elapsed
	m.log.Observe(p.Updates)
	for _, n := range p.Updates {
		m.nodes[n.ID] = n
	}
	return m.refreshBoard()
}

func (m *Model) refreshBoard() tea.Cmd {
	nodes := make([]*session.NodeState, 0, len(m.nodes))
	active := 0
	for _, n := range m.nodes {
		nodes = append(nodes, n)
		if n.Running {
			active++
		}
	}
	m.board.SetNodes(session.SortByLane(nodes))
	m.statusBar.Nodes = len(nodes)
	m.statusBar.Active = active

	if m.animating {
		return nil
	}
	m.animating = true
	return frame()
}

func (m *Model) setResult(res contest.Result) {
	if m.result == nil {
		m.log.Result(res)
	}
	m.result = &res
	m.statusBar.State = session.Completed
	m.statusBar.Elapsed = res.Duration
	m.statusBar.Active = 0
	m.renderReport()
}

func (m *Model) renderReport() {
	if m.result == nil {
		return
	}
	out, err := report.Render(*m.result, m.teams, m.width-4, ReportStyle)
	if err != nil {
		m.report = report.Markdown(*m.result, m.teams)
		return
	}
	m.report = out
}

func frame() tea.Cmd {
	return tea.Tick(time.Second/scoreboard.FPS, func(time.Time) tea.Msg { return frameMsg{} })
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.cancel()
		if m.feed != nil {
			m.feed.Close()
		}
		return m, tea.Quit
	}

	if m.overlay == OverlayLog {
		switch {
		case key.Matches(msg, m.keys.Escape), key.Matches(msg, m.keys.Log):
			m.overlay = OverlayNone
		case key.Matches(msg, m.keys.Up):
			m.log.Scroll(1)
		case key.Matches(msg, m.keys.Down):
			m.log.Scroll(-1)
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Down):
		m.board.Next()
	case key.Matches(msg, m.keys.Up):
		m.board.Prev()
	case key.Matches(msg, m.keys.Log):
		m.overlay = OverlayLog
	case key.Matches(msg, m.keys.PressA):
		return m, m.press(contest.SideA)
	case key.Matches(msg, m.keys.PressB):
		return m, m.press(contest.SideB)
	case key.Matches(msg, m.keys.Resync):
		return m, m.resync()
	}
	return m, nil
}

func (m Model) press(side contest.Side) tea.Cmd {
	n, ok := m.board.SelectedNode()
	if !ok || m.http == nil || m.result != nil {
		return nil
	}
	node, httpc := n.ID, m.http
	return func() tea.Msg {
		return pressDoneMsg{node: node, side: side, err: httpc.Press(node, side)}
	}
}

func (m Model) resync() tea.Cmd {
	if m.http == nil {
		return nil
	}
	httpc := m.http
	return func() tea.Msg {
		p, err := httpc.GetSession()
		return resyncMsg{payload: p, err: err}
	}
}

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	if m.overlay == OverlayLog {
		return m.log.View(m.width, m.height)
	}

	sections := []string{m.statusBar.View()}
	switch {
	case m.ended:
		sections = append(sections, theme.StyleDimmed.Render("  Session over. The coordinator closed the feed."))
	case !m.connected:
		sections = append(sections, lipgloss.NewStyle().Foreground(theme.ColorDanger).Bold(true).
			Render("  DISCONNECTED  Reconnecting to the coordinator..."))
	}
	sections = append(sections, "", m.board.View(), "")
	if m.report != "" {
		sections = append(sections, m.report)
	}
	if e, ok := m.log.LastError(); ok {
		sections = append(sections, theme.StyleError.Render("  "+e.Text))
	}
	sections = append(sections,
		theme.StyleDimmed.Render("  j/k:select node  a/b:press  r:resync  l:log  q:quit"))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}
