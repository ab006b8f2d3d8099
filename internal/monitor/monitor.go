// Package monitor tracks which side holds a single contest node and how long
// each side has held it.
package monitor

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog/log"

	"github.com/flagpole/c2/internal/contest"
	"github.com/flagpole/c2/internal/ownership"
)

// DefaultTick is the sampling interval for node state.
const DefaultTick = time.Second

// ErrAlreadyStarted is returned by Start on a monitor that has been started
// or stopped before.
var ErrAlreadyStarted = errors.New("monitor already started")

// ErrSourcePanic is returned by Wait when the node's ownership source
// panicked. The node stops with the time credited up to its last sample.
var ErrSourcePanic = errors.New("ownership source panicked")

// Option configures a Monitor.
type Option func(*Monitor)

// WithClock replaces the wall clock, mostly for tests.
func WithClock(c clock.Clock) Option {
	return func(m *Monitor) { m.clock = c }
}

// WithTick overrides DefaultTick.
func WithTick(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.tick = d
		}
	}
}

// WithHolder sets the side holding the node when it starts.
func WithHolder(side contest.Side) Option {
	return func(m *Monitor) { m.holder = side }
}

// Monitor samples one node once per tick. Each tick credits the elapsed
// time to the current holder and then asks the ownership source whether the
// holder flips.
//
// All accumulator fields are written only by the monitor's own goroutine.
// mu exists so Snapshot can be read while the node is still running.
type Monitor struct {
	id     string
	source ownership.Source
	clock  clock.Clock
	tick   time.Duration

	mu        sync.Mutex
	started   bool
	running   bool
	holder    contest.Side
	timeA     time.Duration
	timeB     time.Duration
	flips     int
	ticks     int
	startedAt time.Time
	last      time.Time
	stopAt    time.Time
	stoppedAt time.Time
	err       error

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// New creates a monitor for node id. Unless WithHolder says otherwise the
// node starts held by contest.DefaultHolder.
func New(id string, source ownership.Source, opts ...Option) *Monitor {
	m := &Monitor{
		id:     id,
		source: source,
		clock:  clock.New(),
		tick:   DefaultTick,
		holder: contest.DefaultHolder,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ID returns the node identifier.
func (m *Monitor) ID() string { return m.id }

// Start records the baseline timestamp and launches the tick loop. The
// baseline and ticker are set up before Start returns, so time advanced
// after Start is always accounted for.
func (m *Monitor) Start() error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return ErrAlreadyStarted
	}
	now := m.clock.Now()
	m.started = true
	m.running = true
	m.startedAt = now
	m.last = now
	m.mu.Unlock()

	ticker := m.clock.Ticker(m.tick)
	go m.run(ticker)

	log.Debug().Str("node", m.id).Dur("tick", m.tick).Msg("node monitor started")
	return nil
}

// Stop asks the tick loop to exit. It does not wait; use Wait or Done before
// reading final accumulators. No time after the stop request is credited.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		m.mu.Lock()
		m.stopAt = m.clock.Now()
		neverStarted := !m.started
		m.started = true
		m.mu.Unlock()

		close(m.stop)
		if neverStarted {
			close(m.done)
		}
	})
}

// Done is closed once the tick loop has exited.
func (m *Monitor) Done() <-chan struct{} {
	return m.done
}

// Wait blocks until the tick loop has exited and returns the error that
// ended it, if the loop did not end through Stop.
func (m *Monitor) Wait() error {
	<-m.done
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

func (m *Monitor) run(ticker *clock.Ticker) {
	defer close(m.done)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			m.finish()
			return
		case <-ticker.C:
			// A pending stop wins over a tick that raced with it.
			select {
			case <-m.stop:
				m.finish()
				return
			default:
			}
			if err := m.sample(); err != nil {
				m.fail(err)
				return
			}
		}
	}
}

func (m *Monitor) sample() error {
	now := m.clock.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Stop already fixed the end of the accounting window.
	if !m.stopAt.IsZero() {
		return nil
	}

	m.creditLocked(now)
	m.ticks++
	flipped, err := m.flip()
	if err != nil {
		return err
	}
	if flipped {
		m.holder = m.holder.Other()
		m.flips++
	}
	return nil
}

func (m *Monitor) flip() (flipped bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: node %s: %v", ErrSourcePanic, m.id, r)
		}
	}()
	return m.source.Flip(), nil
}

// finish credits the partial interval between the last sample and the stop
// request.
func (m *Monitor) finish() {
	m.mu.Lock()
	m.creditLocked(m.stopAt)
	m.running = false
	// last is the later of stopAt and the final credited sample.
	m.stoppedAt = m.last
	timeA, timeB := m.timeA, m.timeB
	m.mu.Unlock()

	log.Debug().
		Str("node", m.id).
		Dur("time_a", timeA).
		Dur("time_b", timeB).
		Msg("node monitor stopped")
}

func (m *Monitor) fail(err error) {
	m.mu.Lock()
	m.running = false
	m.stoppedAt = m.last
	m.err = err
	m.mu.Unlock()

	log.Error().Err(err).Str("node", m.id).Msg("node monitor failed")
}

// creditLocked adds the time since the last sample to the current holder.
// Caller must hold m.mu.
func (m *Monitor) creditLocked(now time.Time) {
	elapsed := now.Sub(m.last)
	if elapsed <= 0 {
		return
	}
	if m.holder == contest.SideA {
		m.timeA += elapsed
	} else {
		m.timeB += elapsed
	}
	m.last = now
}

// Snapshot returns a consistent copy of the node's state. It is safe to call
// while the monitor is running; values then lag by at most one tick.
func (m *Monitor) Snapshot() contest.NodeTimes {
	m.mu.Lock()
	defer m.mu.Unlock()

	nt := contest.NodeTimes{
		ID:        m.id,
		Holder:    m.holder,
		TimeA:     m.timeA,
		TimeB:     m.timeB,
		Flips:     m.flips,
		Ticks:     m.ticks,
		Running:   m.running,
		StartedAt: m.startedAt,
	}
	if !m.stoppedAt.IsZero() {
		t := m.stoppedAt
		nt.StoppedAt = &t
	}
	return nt
}
