package session

import (
	"time"

	"github.com/flagpole/c2/internal/contest"
)

// EventType classifies session lifecycle events.
type EventType int

const (
	EventStarted   EventType = iota // monitors launched, clock running
	EventProgress                   // one clock tick elapsed
	EventCompleted                  // join barrier cleared, verdict computed
)

// Event carries a session snapshot to reporters.
type Event struct {
	Type        EventType
	Session     Session
	Elapsed     time.Duration
	Nodes       []*NodeState    // snapshots (safe to retain)
	ActiveCount int             // nodes still running at event time
	Result      *contest.Result // set on EventCompleted
}

// Reporter observes a session. Report is called from the coordinator's
// goroutine and should not block for long.
type Reporter interface {
	Report(ev Event)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(Event)

func (f ReporterFunc) Report(ev Event) { f(ev) }

// MultiReporter fans each event out to every reporter in order.
type MultiReporter []Reporter

func (m MultiReporter) Report(ev Event) {
	for _, r := range m {
		if r != nil {
			r.Report(ev)
		}
	}
}
