package session

import (
	"encoding/json"
	"time"

	"github.com/flagpole/c2/internal/contest"
)

// State is the coordinator lifecycle: Idle → Running → ShuttingDown →
// Completed. There is no transition out of Completed.
type State int

const (
	Idle State = iota
	Running
	ShuttingDown
	Completed
)

var stateNames = map[State]string{
	Idle:         "idle",
	Running:      "running",
	ShuttingDown: "shutting_down",
	Completed:    "completed",
}

var stateFromName = map[string]State{
	"idle":          Idle,
	"running":       Running,
	"shutting_down": ShuttingDown,
	"completed":     Completed,
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "unknown"
}

func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *State) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	if v, ok := stateFromName[name]; ok {
		*s = v
	}
	return nil
}

// Session is the explicit context of one contest run. It is created by
// Start and threaded through the clock loop and aggregation.
type Session struct {
	ID        string        `json:"id"`
	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"duration"`
	NodeIDs   []string      `json:"nodeIds"`
}

// Deadline is the instant the session clock runs out.
func (s Session) Deadline() time.Time {
	return s.StartedAt.Add(s.Duration)
}

// NodeState is a node snapshot as kept in the live store.
type NodeState struct {
	contest.NodeTimes
	Lane int `json:"lane"`
}

// Clone returns a copy that shares no pointers with s.
func (s *NodeState) Clone() *NodeState {
	c := *s
	if s.StoppedAt != nil {
		t := *s.StoppedAt
		c.StoppedAt = &t
	}
	return &c
}

// Status is a point-in-time view of the whole session for observers.
type Status struct {
	State   State           `json:"state"`
	Session *Session        `json:"session,omitempty"`
	Elapsed time.Duration   `json:"elapsed"`
	Nodes   []*NodeState    `json:"nodes"`
	Result  *contest.Result `json:"result,omitempty"`
}
