package contest

import "time"

// StopReason records why a session left its clock loop.
type StopReason string

const (
	ReasonDeadline  StopReason = "deadline"
	ReasonCancelled StopReason = "cancelled"
)

// NodeTimes is a point-in-time copy of one node's accumulators.
type NodeTimes struct {
	ID        string        `json:"id"`
	Holder    Side          `json:"holder"`
	TimeA     time.Duration `json:"timeA"`
	TimeB     time.Duration `json:"timeB"`
	Flips     int           `json:"flips"`
	Ticks     int           `json:"ticks"`
	Running   bool          `json:"running"`
	StartedAt time.Time     `json:"startedAt"`
	StoppedAt *time.Time    `json:"stoppedAt,omitempty"`
}

// Total is the time credited to either side.
func (n NodeTimes) Total() time.Duration {
	return n.TimeA + n.TimeB
}

// Result is the outcome of a completed session.
type Result struct {
	SessionID string        `json:"sessionId"`
	StartedAt time.Time     `json:"startedAt"`
	EndedAt   time.Time     `json:"endedAt"`
	Duration  time.Duration `json:"duration"`
	Reason    StopReason    `json:"reason"`
	Nodes     []NodeTimes   `json:"nodes"`
	TotalA    time.Duration `json:"totalA"`
	TotalB    time.Duration `json:"totalB"`
	Winner    Side          `json:"winner"`
}

// Aggregate sums the per-node accumulators.
func Aggregate(nodes []NodeTimes) (totalA, totalB time.Duration) {
	for _, n := range nodes {
		totalA += n.TimeA
		totalB += n.TimeB
	}
	return totalA, totalB
}

// Winner returns SideA only when it strictly out-held SideB. Equal totals
// go to SideB.
func Winner(totalA, totalB time.Duration) Side {
	if totalA > totalB {
		return SideA
	}
	return SideB
}
