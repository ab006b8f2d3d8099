package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/flagpole/c2/internal/ws"
)

const (
	retryBase = 500 * time.Millisecond
	retryMax  = 15 * time.Second
	// busyDelay is the minimum wait after the coordinator refused us for
	// being over its viewer limit.
	busyDelay = 5 * time.Second

	// DefaultStaleAfter is three of the coordinator's default snapshot
	// intervals.
	DefaultStaleAfter = 15 * time.Second
)

var errNotConnected = errors.New("feed not connected")

// Feed follows the coordinator's status feed.
//
// The coordinator pushes a full snapshot on connect and on a fixed interval,
// so a connection that stays silent for StaleAfter is treated as lost. Once
// a result has arrived the session is over and the feed stops reconnecting.
type Feed struct {
	url        string
	header     http.Header
	dialer     *websocket.Dialer
	StaleAfter time.Duration

	mu       sync.Mutex
	conn     *websocket.Conn
	failures int
	busy     bool
	connects int
	verdict  bool
}

func NewFeed(url, token string) *Feed {
	var header http.Header
	if token != "" {
		header = http.Header{"Authorization": {"Bearer " + token}}
	}
	return &Feed{
		url:        url,
		header:     header,
		dialer:     websocket.DefaultDialer,
		StaleAfter: DefaultStaleAfter,
	}
}

// FeedUpMsg reports a new connection. Reconnect is false only for the first.
type FeedUpMsg struct{ Reconnect bool }

// FeedDownMsg reports a lost connection. Busy means the coordinator was at
// its viewer limit; Final means the verdict had already been received.
type FeedDownMsg struct {
	Err   error
	Busy  bool
	Final bool
}

// FeedEndedMsg is returned by Connect once the session has a verdict.
type FeedEndedMsg struct{}

type SnapshotMsg struct{ Payload ws.SnapshotPayload }

type ProgressMsg struct{ Payload ws.ProgressPayload }

type ResultMsg struct{ Payload ws.ResultPayload }

type ServerErrorMsg struct{ Message string }

// delay is how long to wait before the next dial. Caller must hold f.mu.
func (f *Feed) delay() time.Duration {
	if f.failures == 0 {
		return 0
	}
	d := retryMax
	if shift := f.failures - 1; shift < 8 {
		d = min(retryBase<<shift, retryMax)
	}
	if f.busy {
		d = max(d, busyDelay)
	}
	return d
}

// Connect dials the feed, first waiting out any delay owed by earlier
// failures, and keeps retrying until it connects or ctx is done.
func (f *Feed) Connect(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		for {
			f.mu.Lock()
			if f.verdict {
				f.mu.Unlock()
				return FeedEndedMsg{}
			}
			wait := f.delay()
			f.mu.Unlock()

			if wait > 0 {
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(wait):
				}
			}

			conn, _, err := f.dialer.DialContext(ctx, f.url, f.header)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				f.mu.Lock()
				f.failures++
				f.mu.Unlock()
				log.Debug().Err(err).Str("url", f.url).Msg("feed dial failed")
				continue
			}

			f.mu.Lock()
			f.conn = conn
			f.failures = 0
			f.busy = false
			reconnect := f.connects > 0
			f.connects++
			f.mu.Unlock()
			return FeedUpMsg{Reconnect: reconnect}
		}
	}
}

// Next reads until the next frame the console cares about. Issue it after
// FeedUpMsg and again after every feed message.
func (f *Feed) Next() tea.Cmd {
	return func() tea.Msg {
		f.mu.Lock()
		conn := f.conn
		f.mu.Unlock()
		if conn == nil {
			return FeedDownMsg{Err: errNotConnected}
		}

		for {
			if f.StaleAfter > 0 {
				conn.SetReadDeadline(time.Now().Add(f.StaleAfter))
			}
			_, data, err := conn.ReadMessage()
			if err != nil {
				return f.lost(conn, err)
			}

			msg := Decode(data)
			if _, ok := msg.(ResultMsg); ok {
				f.mu.Lock()
				f.verdict = true
				f.mu.Unlock()
			}
			if msg != nil {
				return msg
			}
		}
	}
}

func (f *Feed) lost(conn *websocket.Conn, err error) FeedDownMsg {
	conn.Close()

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conn == conn {
		f.conn = nil
	}
	f.busy = websocket.IsCloseError(err, websocket.CloseTryAgainLater)
	f.failures++
	return FeedDownMsg{Err: err, Busy: f.busy, Final: f.verdict}
}

// Close drops the current connection, if any.
func (f *Feed) Close() {
	f.mu.Lock()
	conn := f.conn
	f.conn = nil
	f.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

// rawMessage is ws.WSMessage with the payload left undecoded.
type rawMessage struct {
	Type    ws.MessageType  `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Decode turns one feed frame into a Bubble Tea message. Unknown or
// malformed frames yield nil.
func Decode(data []byte) tea.Msg {
	var msg rawMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil
	}

	switch msg.Type {
	case ws.MsgSnapshot:
		var p ws.SnapshotPayload
		if json.Unmarshal(msg.Payload, &p) == nil {
			return SnapshotMsg{Payload: p}
		}
	case ws.MsgProgress:
		var p ws.ProgressPayload
		if json.Unmarshal(msg.Payload, &p) == nil {
			return ProgressMsg{Payload: p}
		}
	case ws.MsgResult:
		var p ws.ResultPayload
		if json.Unmarshal(msg.Payload, &p) == nil {
			return ResultMsg{Payload: p}
		}
	case ws.MsgError:
		var p ws.ErrorPayload
		if json.Unmarshal(msg.Payload, &p) == nil {
			return ServerErrorMsg{Message: p.Message}
		}
	}
	return nil
}
