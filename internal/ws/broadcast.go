package ws

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/flagpole/c2/internal/contest"
	"github.com/flagpole/c2/internal/session"
)

// ErrTooManyConnections is returned by AddClient when the connection limit
// has been reached.
var ErrTooManyConnections = errors.New("too many websocket connections")

const writeWait = 10 * time.Second

// StatusSource supplies full session snapshots.
type StatusSource interface {
	Status() session.Status
}

type client struct {
	conn *websocket.Conn
	b    *Broadcaster
	send chan []byte
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			c.b.RemoveClient(c)
			return
		}
	}
}

// Broadcaster fans session events out to websocket clients. It implements
// session.Reporter: progress is throttled and coalesced per node, results
// go out immediately, and a full snapshot is sent on connect and on every
// snapshot interval.
type Broadcaster struct {
	mu       sync.RWMutex
	clients  map[*client]bool
	source   StatusSource
	teams    contest.Teams
	throttle time.Duration
	maxConns int

	snapshotTicker *time.Ticker
	stop           chan struct{}
	stopOnce       sync.Once

	flushMu        sync.Mutex
	flushTimer     *time.Timer
	pendingNodes   map[string]*session.NodeState
	pendingElapsed time.Duration
	pendingActive  int
}

// NewBroadcaster starts the snapshot loop. maxConns <= 0 means unlimited.
func NewBroadcaster(source StatusSource, teams contest.Teams, throttle, snapshotInterval time.Duration, maxConns int) *Broadcaster {
	b := &Broadcaster{
		clients:        make(map[*client]bool),
		source:         source,
		teams:          teams,
		throttle:       throttle,
		maxConns:       maxConns,
		snapshotTicker: time.NewTicker(snapshotInterval),
		stop:           make(chan struct{}),
		pendingNodes:   make(map[string]*session.NodeState),
	}
	go b.snapshotLoop()
	return b
}

// Stop ends the snapshot loop and disconnects every client.
func (b *Broadcaster) Stop() {
	b.stopOnce.Do(func() {
		close(b.stop)
		b.snapshotTicker.Stop()

		b.flushMu.Lock()
		if b.flushTimer != nil {
			b.flushTimer.Stop()
			b.flushTimer = nil
		}
		b.flushMu.Unlock()

		b.mu.Lock()
		for c := range b.clients {
			delete(b.clients, c)
			close(c.send)
		}
		b.mu.Unlock()
	})
}

func (b *Broadcaster) AddClient(conn *websocket.Conn) (*client, error) {
	c := &client{
		conn: conn,
		b:    b,
		send: make(chan []byte, 64),
	}

	b.mu.Lock()
	if b.maxConns > 0 && len(b.clients) >= b.maxConns {
		b.mu.Unlock()
		return nil, ErrTooManyConnections
	}
	b.clients[c] = true
	b.mu.Unlock()

	go c.writePump()

	data, err := json.Marshal(b.snapshot())
	if err == nil {
		select {
		case c.send <- data:
		default:
			// Client too slow, drop the snapshot
		}
	}
	return c, nil
}

func (b *Broadcaster) RemoveClient(c *client) {
	b.mu.Lock()
	if _, ok := b.clients[c]; ok {
		delete(b.clients, c)
		close(c.send)
	}
	b.mu.Unlock()
}

func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

func (b *Broadcaster) Report(ev session.Event) {
	switch ev.Type {
	case session.EventStarted:
		b.broadcast(b.snapshot())
	case session.EventProgress:
		b.queueProgress(ev)
	case session.EventCompleted:
		b.flush()
		if ev.Result != nil {
			b.broadcast(WSMessage{
				Type:    MsgResult,
				Payload: ResultPayload{Teams: b.teams, Result: *ev.Result},
			})
		}
	}
}

func (b *Broadcaster) queueProgress(ev session.Event) {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	for _, n := range ev.Nodes {
		b.pendingNodes[n.ID] = n
	}
	b.pendingElapsed = ev.Elapsed
	b.pendingActive = ev.ActiveCount

	if b.flushTimer == nil {
		b.flushTimer = time.AfterFunc(b.throttle, b.flush)
	}
}

func (b *Broadcaster) flush() {
	b.flushMu.Lock()
	if b.flushTimer != nil {
		b.flushTimer.Stop()
		b.flushTimer = nil
	}
	if len(b.pendingNodes) == 0 {
		b.flushMu.Unlock()
		return
	}
	updates := make([]*session.NodeState, 0, len(b.pendingNodes))
	for _, n := range b.pendingNodes {
		updates = append(updates, n)
	}
	payload := ProgressPayload{
		Elapsed:     b.pendingElapsed,
		ActiveCount: b.pendingActive,
		Updates:     session.SortByLane(updates),
	}
	b.pendingNodes = make(map[string]*session.NodeState)
	b.flushMu.Unlock()

	b.broadcast(WSMessage{Type: MsgProgress, Payload: payload})
}

func (b *Broadcaster) snapshot() WSMessage {
	st := b.source.Status()
	return WSMessage{
		Type: MsgSnapshot,
		Payload: SnapshotPayload{
			State:   st.State,
			Session: st.Session,
			Elapsed: st.Elapsed,
			Teams:   b.teams,
			Nodes:   st.Nodes,
			Result:  st.Result,
		},
	}
}

func (b *Broadcaster) snapshotLoop() {
	for {
		select {
		case <-b.stop:
			return
		case <-b.snapshotTicker.C:
			b.broadcast(b.snapshot())
		}
	}
}

func (b *Broadcaster) broadcast(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("type", string(msg.Type)).Msg("broadcast marshal error")
		return
	}

	b.mu.RLock()
	clients := make([]*client, 0, len(b.clients))
	for c := range b.clients {
		clients = append(clients, c)
	}
	b.mu.RUnlock()

	for _, c := range clients {
		if !b.trySend(c, data) {
			log.Warn().Msg("ws client too slow, disconnecting")
			b.RemoveClient(c)
		}
	}
}

// trySend queues data unless the client's buffer is full. A client removed
// concurrently counts as delivered.
func (b *Broadcaster) trySend(c *client, data []byte) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.clients[c] {
		return true
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}
