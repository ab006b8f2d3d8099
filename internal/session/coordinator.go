// Package session runs one timed contest across all configured nodes: it
// starts a monitor per node, keeps the session clock, stops and joins every
// monitor at the deadline or on cancellation, and declares the winner.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/flagpole/c2/internal/contest"
	"github.com/flagpole/c2/internal/monitor"
	"github.com/flagpole/c2/internal/ownership"
)

// DefaultDuration is the session length when none is configured.
const DefaultDuration = 5 * time.Minute

// ErrInvalidState is returned when Start or Run is called out of order.
var ErrInvalidState = errors.New("invalid coordinator state")

// Options configures a Coordinator.
type Options struct {
	Duration time.Duration
	Tick     time.Duration     // defaults to monitor.DefaultTick
	Clock    clock.Clock       // defaults to the wall clock
	Sources  ownership.Factory // one ownership source per node
	Reporter Reporter          // may be nil
	Store    *Store            // defaults to a fresh store

	// Holders overrides the initial holder per node id. Nodes not listed
	// start with contest.DefaultHolder.
	Holders map[string]contest.Side
}

// Coordinator drives a single session. It is not reusable: once Completed it
// stays Completed.
type Coordinator struct {
	opts Options

	mu       sync.RWMutex
	state    State
	session  *Session
	monitors []*monitor.Monitor
	result   *contest.Result

	ticker   *clock.Ticker
	deadline *clock.Timer
}

func New(opts Options) *Coordinator {
	if opts.Tick <= 0 {
		opts.Tick = monitor.DefaultTick
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Store == nil {
		opts.Store = NewStore()
	}
	return &Coordinator{opts: opts}
}

// Store returns the live node store.
func (c *Coordinator) Store() *Store {
	return c.opts.Store
}

// State returns the current lifecycle state.
func (c *Coordinator) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Monitor returns the monitor for node id, if the session has started.
func (c *Coordinator) Monitor(id string) (*monitor.Monitor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, m := range c.monitors {
		if m.ID() == id {
			return m, true
		}
	}
	return nil, false
}

// Start validates the node list, then creates and starts one monitor per
// node. Configuration errors are returned before any monitor runs.
func (c *Coordinator) Start(nodeIDs []string) error {
	sess, err := c.start(nodeIDs)
	if err != nil {
		return err
	}

	log.Info().
		Str("session", sess.ID).
		Int("nodes", len(nodeIDs)).
		Dur("duration", sess.Duration).
		Msg("session started")

	c.report(Event{
		Type:        EventStarted,
		Session:     sess,
		Nodes:       c.opts.Store.GetAll(),
		ActiveCount: c.opts.Store.ActiveCount(),
	})
	return nil
}

func (c *Coordinator) start(nodeIDs []string) (Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Idle {
		return Session{}, fmt.Errorf("%w: start in state %s", ErrInvalidState, c.state)
	}
	if err := contest.ValidateNodeIDs(nodeIDs); err != nil {
		return Session{}, err
	}
	if c.opts.Duration <= 0 {
		return Session{}, contest.Invalid("duration", "must be positive")
	}
	if c.opts.Sources == nil {
		return Session{}, contest.Invalid("ownership", "no ownership source configured")
	}

	monitors := make([]*monitor.Monitor, 0, len(nodeIDs))
	for _, id := range nodeIDs {
		holder := contest.DefaultHolder
		if side, ok := c.opts.Holders[id]; ok {
			holder = side
		}
		monitors = append(monitors, monitor.New(id, c.opts.Sources(id),
			monitor.WithClock(c.opts.Clock),
			monitor.WithTick(c.opts.Tick),
			monitor.WithHolder(holder),
		))
	}

	sess := &Session{
		ID:        uuid.New().String(),
		StartedAt: c.opts.Clock.Now(),
		Duration:  c.opts.Duration,
		NodeIDs:   append([]string(nil), nodeIDs...),
	}

	for i, m := range monitors {
		if err := m.Start(); err != nil {
			for _, started := range monitors[:i] {
				started.Stop()
				started.Wait()
			}
			return Session{}, fmt.Errorf("starting node %s: %w", m.ID(), err)
		}
		c.opts.Store.Update(m.Snapshot())
	}

	c.ticker = c.opts.Clock.Ticker(c.opts.Tick)
	c.deadline = c.opts.Clock.Timer(c.opts.Duration)
	c.monitors = monitors
	c.session = sess
	c.state = Running
	return *sess, nil
}

// Run keeps the session clock until the deadline passes or ctx is
// cancelled, then stops and joins every monitor and computes the result.
// Cancellation is a normal way to end a session and is not returned as an
// error.
func (c *Coordinator) Run(ctx context.Context) (contest.Result, error) {
	c.mu.RLock()
	state := c.state
	sess := c.session
	c.mu.RUnlock()
	if state != Running {
		return contest.Result{}, fmt.Errorf("%w: run in state %s", ErrInvalidState, state)
	}

	reason := c.clockLoop(ctx, *sess)
	return c.shutdown(*sess, reason), nil
}

func (c *Coordinator) clockLoop(ctx context.Context, sess Session) contest.StopReason {
	defer c.ticker.Stop()
	defer c.deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return contest.ReasonCancelled
		case <-c.deadline.C:
			return contest.ReasonDeadline
		case <-c.ticker.C:
			elapsed := c.opts.Clock.Since(sess.StartedAt)
			if elapsed >= sess.Duration {
				return contest.ReasonDeadline
			}
			nodes := c.refresh()
			c.report(Event{
				Type:        EventProgress,
				Session:     sess,
				Elapsed:     elapsed,
				Nodes:       nodes,
				ActiveCount: c.opts.Store.ActiveCount(),
			})
		}
	}
}

// refresh copies live monitor snapshots into the store.
func (c *Coordinator) refresh() []*NodeState {
	for _, m := range c.monitors {
		c.opts.Store.Update(m.Snapshot())
	}
	return c.opts.Store.GetAll()
}

func (c *Coordinator) shutdown(sess Session, reason contest.StopReason) contest.Result {
	c.setState(ShuttingDown)
	log.Info().Str("session", sess.ID).Str("reason", string(reason)).Msg("session shutting down")

	for _, m := range c.monitors {
		m.Stop()
	}

	// Join barrier: nothing below runs until every monitor loop has exited.
	// A node that failed mid-session keeps the time it earned before failing.
	var eg errgroup.Group
	for _, m := range c.monitors {
		eg.Go(m.Wait)
	}
	if err := eg.Wait(); err != nil {
		log.Warn().Err(err).Str("session", sess.ID).Msg("node failed during session")
	}

	nodes := make([]contest.NodeTimes, 0, len(c.monitors))
	for _, m := range c.monitors {
		nt := m.Snapshot()
		nodes = append(nodes, nt)
		c.opts.Store.Update(nt)
	}

	totalA, totalB := contest.Aggregate(nodes)
	endedAt := c.opts.Clock.Now()
	res := contest.Result{
		SessionID: sess.ID,
		StartedAt: sess.StartedAt,
		EndedAt:   endedAt,
		Duration:  endedAt.Sub(sess.StartedAt),
		Reason:    reason,
		Nodes:     nodes,
		TotalA:    totalA,
		TotalB:    totalB,
		Winner:    contest.Winner(totalA, totalB),
	}

	c.mu.Lock()
	c.result = &res
	c.state = Completed
	c.mu.Unlock()

	log.Info().
		Str("session", sess.ID).
		Dur("total_a", totalA).
		Dur("total_b", totalB).
		Stringer("winner", res.Winner).
		Msg("session completed")

	c.report(Event{
		Type:    EventCompleted,
		Session: sess,
		Elapsed: res.Duration,
		Nodes:   c.opts.Store.GetAll(),
		Result:  &res,
	})
	return res
}

func (c *Coordinator) setState(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
}

func (c *Coordinator) report(ev Event) {
	if c.opts.Reporter != nil {
		c.opts.Reporter.Report(ev)
	}
}

// Status returns a snapshot for status feeds.
func (c *Coordinator) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	st := Status{
		State: c.state,
		Nodes: c.opts.Store.GetAll(),
	}
	if c.session != nil {
		sess := *c.session
		st.Session = &sess
		st.Elapsed = c.opts.Clock.Since(sess.StartedAt)
	}
	if c.result != nil {
		res := *c.result
		st.Result = &res
		st.Elapsed = res.Duration
	}
	return st
}

// RunSession starts a coordinator for nodeIDs and runs it to completion.
func RunSession(ctx context.Context, opts Options, nodeIDs []string) (contest.Result, error) {
	c := New(opts)
	if err := c.Start(nodeIDs); err != nil {
		return contest.Result{}, err
	}
	return c.Run(ctx)
}
