package ownership

import (
	"time"

	"github.com/flagpole/c2/internal/contest"
)

// HolderEvent is emitted by a flagpole device when a button press hands the
// node to Side.
type HolderEvent struct {
	Node string       `json:"node"`
	Side contest.Side `json:"side"`
	At   time.Time    `json:"at"`
}

// HardwareBridge turns a device's holder-change events into per-tick flip
// decisions. It tracks the holder it last acknowledged, which mirrors the
// monitor's holder because every true result is applied as a toggle.
type HardwareBridge struct {
	events   <-chan HolderEvent
	acked    contest.Side
	reported contest.Side
}

// NewHardwareBridge reads events from a device for a node that starts held
// by initial.
func NewHardwareBridge(events <-chan HolderEvent, initial contest.Side) *HardwareBridge {
	return &HardwareBridge{
		events:   events,
		acked:    initial,
		reported: initial,
	}
}

// Flip drains pending events without blocking. Several presses within one
// tick collapse to the last reported side.
func (b *HardwareBridge) Flip() bool {
	for {
		select {
		case ev, ok := <-b.events:
			if !ok {
				b.events = nil
				return b.settle()
			}
			b.reported = ev.Side
			continue
		default:
		}
		return b.settle()
	}
}

func (b *HardwareBridge) settle() bool {
	if b.reported == b.acked {
		return false
	}
	b.acked = b.reported
	return true
}
