package flagpole

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/sync/errgroup"

	"github.com/flagpole/c2/internal/contest"
	"github.com/flagpole/c2/internal/ownership"
)

// ErrUnknownNode is returned by Press for a node the bank does not hold.
var ErrUnknownNode = errors.New("unknown node")

// Bank owns one panel and device per contest node.
type Bank struct {
	clock   clock.Clock
	poll    time.Duration
	order   []string
	panels  map[string]*Panel
	devices map[string]*Device
}

// NewBank builds a panel and device for every node. holders sets the side a
// node's indicators show before the first press.
func NewBank(nodeIDs []string, holders map[string]contest.Side, opts ...Option) *Bank {
	tmpl := defaults()
	for _, opt := range opts {
		opt(tmpl)
	}
	b := &Bank{
		clock:   tmpl.clock,
		poll:    tmpl.poll,
		panels:  make(map[string]*Panel, len(nodeIDs)),
		devices: make(map[string]*Device, len(nodeIDs)),
	}
	for _, id := range nodeIDs {
		p := NewPanel()
		devOpts := opts
		if side, ok := holders[id]; ok {
			devOpts = append(append([]Option(nil), opts...), WithHolder(side))
		}
		d := NewDevice(id, p, devOpts...)
		b.order = append(b.order, id)
		b.panels[id] = p
		b.devices[id] = d
	}
	return b
}

// Panel returns the node's panel.
func (b *Bank) Panel(node string) (*Panel, bool) {
	p, ok := b.panels[node]
	return p, ok
}

// Factory returns an ownership factory that bridges each node's device
// events into its monitor. Nodes outside the bank never flip.
func (b *Bank) Factory(holders map[string]contest.Side) ownership.Factory {
	return func(node string) ownership.Source {
		d, ok := b.devices[node]
		if !ok {
			return ownership.Never
		}
		initial := contest.DefaultHolder
		if side, ok := holders[node]; ok {
			initial = side
		}
		return ownership.NewHardwareBridge(d.Events(), initial)
	}
}

// Run polls every device until ctx is done.
func (b *Bank) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, id := range b.order {
		d := b.devices[id]
		g.Go(func() error {
			d.Run(ctx)
			return nil
		})
	}
	return g.Wait()
}

// Press holds side's button on node for two poll intervals, long enough for
// the device to see the edge, then releases it.
func (b *Bank) Press(node string, side contest.Side) error {
	p, ok := b.panels[node]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, node)
	}
	p.Press(side)
	b.clock.AfterFunc(2*b.poll, func() { p.Release(side) })
	return nil
}
