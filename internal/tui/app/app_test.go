package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/flagpole/c2/internal/contest"
	"github.com/flagpole/c2/internal/session"
	"github.com/flagpole/c2/internal/tui/client"
	"github.com/flagpole/c2/internal/tui/views/eventlog"
	"github.com/flagpole/c2/internal/ws"
)

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func nodeState(id string, lane int, a, b time.Duration, running bool) *session.NodeState {
	return &session.NodeState{
		NodeTimes: contest.NodeTimes{ID: id, TimeA: a, TimeB: b, Running: running},
		Lane:      lane,
	}
}

func lastEntry(t *testing.T, m Model) eventlog.Entry {
	t.Helper()
	entries := m.log.Entries()
	if len(entries) == 0 {
		t.Fatal("event log is empty")
	}
	return entries[len(entries)-1]
}

func sized() Model {
	m := New(nil, nil)
	m.width = 100
	m.height = 30
	m.statusBar.Width = 100
	m.board.Width = 100
	return m
}

func TestDisconnectOverlay(t *testing.T) {
	m := sized()
	m.connected = false

	v := m.View()
	if !strings.Contains(v, "DISCONNECTED") {
		t.Error("view should say DISCONNECTED while the feed is down")
	}
	if !strings.Contains(v, "Reconnecting") {
		t.Error("view should say it is reconnecting")
	}
}

func TestViewBeforeSize(t *testing.T) {
	if v := New(nil, nil).View(); v != "Initializing..." {
		t.Errorf("View() = %q before the first window size", v)
	}
}

func TestSnapshotThenProgress(t *testing.T) {
	m := sized()
	m.applySnapshot(ws.SnapshotPayload{
		State:   session.Running,
		Session: &session.Session{Duration: time.Minute},
		Elapsed: time.Second,
		Teams:   contest.Teams{A: "North", B: "South"},
		Nodes: []*session.NodeState{
			nodeState("y", 1, 0, time.Second, true),
			nodeState("x", 0, time.Second, 0, true),
		},
	})

	if got := len(m.board.Nodes); got != 2 {
		t.Fatalf("board has %d nodes, want 2", got)
	}
	if m.board.Nodes[0].ID != "x" {
		t.Errorf("board order starts with %s, want lane 0 (x)", m.board.Nodes[0].ID)
	}
	if m.statusBar.Duration != time.Minute || m.statusBar.Active != 2 {
		t.Errorf("status bar = %+v", m.statusBar)
	}

	m.applyProgress(ws.ProgressPayload{
		Elapsed: 2 * time.Second,
		Updates: []*session.NodeState{nodeState("x", 0, 2*time.Second, 0, true)},
	})
	if m.statusBar.Elapsed != 2*time.Second {
		t.Errorf("Elapsed = %v, want 2s", m.statusBar.Elapsed)
	}
	if got := m.board.Target(); got != 2.0/3.0 {
		t.Errorf("bar target = %v, want 2/3", got)
	}

	v := m.View()
	if !strings.Contains(v, "North") || !strings.Contains(v, "Time Elapsed: 2.0 seconds") {
		t.Errorf("view missing live data:\n%s", v)
	}
}

func TestResultRendersReport(t *testing.T) {
	old := ReportStyle
	ReportStyle = "notty"
	defer func() { ReportStyle = old }()

	m := sized()
	m.setResult(contest.Result{
		TotalA: time.Second,
		TotalB: time.Second,
		Winner: contest.SideB,
		Nodes:  []contest.NodeTimes{{ID: "x", TimeA: time.Second, TimeB: time.Second}},
	})

	if m.statusBar.State != session.Completed {
		t.Errorf("state = %v, want Completed", m.statusBar.State)
	}
	if !strings.Contains(m.View(), "Blue team won!") {
		t.Errorf("view should include the final report:\n%s", m.View())
	}
	if e := lastEntry(t, m); e.Kind != eventlog.KindResult || e.Side != contest.SideB {
		t.Errorf("last log entry = %+v, want the verdict", e)
	}
}

func TestKeyNavigation(t *testing.T) {
	m := sized()
	m.applySnapshot(ws.SnapshotPayload{Nodes: []*session.NodeState{
		nodeState("x", 0, 0, 0, true),
		nodeState("y", 1, 0, 0, true),
	}})

	next, _ := m.handleKey(keyMsg("j"))
	m = next.(Model)
	if n, _ := m.board.SelectedNode(); n.ID != "y" {
		t.Errorf("selected %s after j, want y", n.ID)
	}

	next, _ = m.handleKey(keyMsg("l"))
	m = next.(Model)
	if m.overlay != OverlayLog {
		t.Fatal("l should open the event log")
	}
	if !strings.Contains(m.View(), "EVENT LOG") {
		t.Error("log overlay should be drawn")
	}

	next, _ = m.handleKey(keyMsg("esc"))
	m = next.(Model)
	if m.overlay != OverlayNone {
		t.Error("esc should close the event log")
	}

	_, cmd := m.handleKey(keyMsg("q"))
	if cmd == nil {
		t.Fatal("q should return a quit command")
	}
	if m.ctx.Err() == nil {
		t.Error("q should cancel the model context")
	}
}

func TestPressWithoutServerIsNoop(t *testing.T) {
	m := sized()
	m.applySnapshot(ws.SnapshotPayload{Nodes: []*session.NodeState{nodeState("x", 0, 0, 0, true)}})
	if _, cmd := m.handleKey(keyMsg("a")); cmd != nil {
		t.Error("press without an HTTP client should not issue a command")
	}
}

func TestPressDoneLogs(t *testing.T) {
	m := sized()
	next, _ := m.Update(pressDoneMsg{node: "x", side: contest.SideB})
	m = next.(Model)
	if e := lastEntry(t, m); e.Kind != eventlog.KindPress || e.Node != "x" || e.Side != contest.SideB {
		t.Errorf("last log entry = %+v", e)
	}
}

func TestFrameStopsWhenSettled(t *testing.T) {
	m := sized()
	m.animating = true
	next, cmd := m.Update(frameMsg{})
	m = next.(Model)
	if cmd != nil || m.animating {
		t.Error("a settled bar should stop requesting frames")
	}
}

func TestProgressLogsHolderFlip(t *testing.T) {
	m := sized()
	m.applySnapshot(ws.SnapshotPayload{
		State: session.Running,
		Nodes: []*session.NodeState{nodeState("x", 0, time.Second, 0, true)},
	})

	flipped := nodeState("x", 0, time.Second, time.Second, true)
	flipped.Holder = contest.SideB
	m.applyProgress(ws.ProgressPayload{Elapsed: 2 * time.Second, Updates: []*session.NodeState{flipped}})

	if e := lastEntry(t, m); e.Kind != eventlog.KindFlip || e.Node != "x" || e.Side != contest.SideB {
		t.Errorf("last log entry = %+v, want x taken by side b", e)
	}
}

func TestFinalDisconnectStopsReconnecting(t *testing.T) {
	m := sized()
	m.connected = true

	next, cmd := m.Update(client.FeedDownMsg{Final: true})
	m = next.(Model)
	if cmd != nil {
		t.Error("a feed closed after the verdict should not be redialed")
	}
	if !m.ended || m.connected {
		t.Errorf("ended = %v connected = %v", m.ended, m.connected)
	}
	v := m.View()
	if strings.Contains(v, "Reconnecting") || !strings.Contains(v, "Session over") {
		t.Errorf("view after the feed ended:\n%s", v)
	}
}

func TestLostFeedRedials(t *testing.T) {
	m := New(client.NewFeed("ws://127.0.0.1:1/ws", ""), nil)
	m.connected = true

	next, cmd := m.Update(client.FeedDownMsg{Busy: true})
	m = next.(Model)
	if cmd == nil {
		t.Fatal("a lost feed should be redialed")
	}
	if e, ok := m.log.LastError(); !ok || !strings.Contains(e.Text, "viewer limit") {
		t.Errorf("LastError() = %+v, %v", e, ok)
	}
	m.cancel()
}

func TestReconnectResyncs(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		json.NewEncoder(w).Encode(ws.SnapshotPayload{State: session.Running})
	}))
	defer srv.Close()

	m := New(client.NewFeed("ws://127.0.0.1:1/ws", ""), client.NewHTTPClient(srv.URL, ""))
	defer m.cancel()

	_, cmd := m.Update(client.FeedUpMsg{Reconnect: true})
	if cmd == nil {
		t.Fatal("reconnect should read the feed and resync")
	}
	batch, ok := cmd().(tea.BatchMsg)
	if !ok || len(batch) != 2 {
		t.Fatalf("reconnect command = %#v, want a batch of feed read and resync", batch)
	}
	msg, ok := batch[1]().(resyncMsg)
	if !ok || msg.err != nil || msg.payload.State != session.Running {
		t.Fatalf("resync = %#v", msg)
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("GET /api/session hits = %d, want 1", got)
	}
}
