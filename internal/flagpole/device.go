package flagpole

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog/log"

	"github.com/flagpole/c2/internal/contest"
	"github.com/flagpole/c2/internal/ownership"
)

// DefaultPoll is how often the buttons are read.
const DefaultPoll = 50 * time.Millisecond

const defaultBuffer = 16

type Option func(*Device)

func WithClock(c clock.Clock) Option {
	return func(d *Device) { d.clock = c }
}

func WithPoll(interval time.Duration) Option {
	return func(d *Device) {
		if interval > 0 {
			d.poll = interval
		}
	}
}

// WithHolder sets the side shown on the indicators before any press.
func WithHolder(side contest.Side) Option {
	return func(d *Device) { d.holder = side }
}

// WithBuffer sets the capacity of the event channel.
func WithBuffer(n int) Option {
	return func(d *Device) {
		if n > 0 {
			d.buffer = n
		}
	}
}

// Device watches one node's buttons. A press lights the pressing side's
// indicator, turns off the other, and publishes a HolderEvent.
type Device struct {
	node   string
	pins   Pins
	clock  clock.Clock
	poll   time.Duration
	buffer int

	holder  contest.Side
	pressed [2]bool

	events  chan ownership.HolderEvent
	dropped atomic.Int64
}

func defaults() *Device {
	return &Device{
		clock:  clock.New(),
		poll:   DefaultPoll,
		buffer: defaultBuffer,
		holder: contest.DefaultHolder,
	}
}

func NewDevice(node string, pins Pins, opts ...Option) *Device {
	d := defaults()
	d.node, d.pins = node, pins
	for _, opt := range opts {
		opt(d)
	}
	d.events = make(chan ownership.HolderEvent, d.buffer)
	d.show(d.holder)
	return d
}

func (d *Device) Node() string { return d.node }

// Events delivers holder changes. It is closed when Run returns.
func (d *Device) Events() <-chan ownership.HolderEvent {
	return d.events
}

// Dropped is the number of events discarded because the channel was full.
func (d *Device) Dropped() int64 {
	return d.dropped.Load()
}

// Run polls the buttons until ctx is done.
func (d *Device) Run(ctx context.Context) {
	defer close(d.events)

	ticker := d.clock.Ticker(d.poll)
	defer ticker.Stop()

	log.Debug().Str("node", d.node).Dur("poll", d.poll).Msg("flagpole device running")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Scan()
		}
	}
}

// Scan reads both buttons once and acts on rising edges. Run calls it on
// every poll; it must not be called concurrently with Run.
func (d *Device) Scan() {
	for _, side := range []contest.Side{contest.SideA, contest.SideB} {
		down := d.pins.Button(side)
		rising := down && !d.pressed[side]
		d.pressed[side] = down
		if rising {
			d.claim(side)
		}
	}
}

func (d *Device) claim(side contest.Side) {
	d.holder = side
	d.show(side)

	ev := ownership.HolderEvent{Node: d.node, Side: side, At: d.clock.Now()}
	select {
	case d.events <- ev:
	default:
		n := d.dropped.Add(1)
		log.Warn().Str("node", d.node).Stringer("side", side).Int64("dropped", n).Msg("holder event dropped")
	}
}

func (d *Device) show(side contest.Side) {
	d.pins.SetIndicator(side, true)
	d.pins.SetIndicator(side.Other(), false)
}
