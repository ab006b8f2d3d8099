// Package flagpole models the device at each contest node: one button and one
// indicator light per side. Pressing a side's button hands the node to that
// side.
package flagpole

import (
	"sync"

	"github.com/flagpole/c2/internal/contest"
)

// Pins is the device's digital I/O.
type Pins interface {
	// Button reports whether the side's button is currently held down.
	Button(side contest.Side) bool
	SetIndicator(side contest.Side, on bool)
}

// Panel is an in-memory Pins. Operators and tests press its buttons; the
// device lights its indicators.
type Panel struct {
	mu         sync.Mutex
	buttons    [2]bool
	indicators [2]bool
}

func NewPanel() *Panel {
	return &Panel{}
}

func (p *Panel) Press(side contest.Side) {
	p.set(side, true)
}

func (p *Panel) Release(side contest.Side) {
	p.set(side, false)
}

func (p *Panel) set(side contest.Side, down bool) {
	if !valid(side) {
		return
	}
	p.mu.Lock()
	p.buttons[side] = down
	p.mu.Unlock()
}

func (p *Panel) Button(side contest.Side) bool {
	if !valid(side) {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buttons[side]
}

func (p *Panel) SetIndicator(side contest.Side, on bool) {
	if !valid(side) {
		return
	}
	p.mu.Lock()
	p.indicators[side] = on
	p.mu.Unlock()
}

// Indicator reports whether the side's light is on.
func (p *Panel) Indicator(side contest.Side) bool {
	if !valid(side) {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.indicators[side]
}

func valid(side contest.Side) bool {
	return side == contest.SideA || side == contest.SideB
}
