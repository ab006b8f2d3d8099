package ws

import (
	"time"

	"github.com/flagpole/c2/internal/contest"
	"github.com/flagpole/c2/internal/session"
)

type MessageType string

const (
	MsgSnapshot MessageType = "snapshot"
	MsgProgress MessageType = "progress"
	MsgResult   MessageType = "result"
	MsgError    MessageType = "error"
)

type WSMessage struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload"`
}

// SnapshotPayload is the full session view sent on connect and periodically.
type SnapshotPayload struct {
	State   session.State        `json:"state"`
	Session *session.Session     `json:"session,omitempty"`
	Elapsed time.Duration        `json:"elapsed"`
	Teams   contest.Teams        `json:"teams"`
	Nodes   []*session.NodeState `json:"nodes"`
	Result  *contest.Result      `json:"result,omitempty"`
}

// ProgressPayload carries the nodes that changed since the last flush.
type ProgressPayload struct {
	Elapsed     time.Duration        `json:"elapsed"`
	ActiveCount int                  `json:"activeCount"`
	Updates     []*session.NodeState `json:"updates"`
}

type ResultPayload struct {
	Teams  contest.Teams  `json:"teams"`
	Result contest.Result `json:"result"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
