// Package ownership decides, once per tick, whether a node changes hands.
//
// Two variants exist: RandomSimulator stands in for players with a biased
// coin, and HardwareBridge follows holder-change events reported by a
// physical flagpole device.
package ownership

// Source is consulted by a node monitor once per tick.
//
// Implementations are called from a single goroutine (the owning monitor's
// tick loop) and need not be safe for concurrent use. The monitor creates
// no Source itself; the coordinator builds one per node through a Factory.
type Source interface {
	// Flip reports whether the node's holder switches to the other side
	// for this tick.
	Flip() bool
}

// Factory builds the Source for a node. Each node gets its own instance so
// that decisions stay independent across nodes.
type Factory func(nodeID string) Source

// Func adapts an ordinary function to the Source interface.
type Func func() bool

func (f Func) Flip() bool { return f() }

// Never is a Source that keeps the current holder forever.
var Never Source = Func(func() bool { return false })

// Always is a Source that flips on every tick.
var Always Source = Func(func() bool { return true })

// Static returns a Factory handing every node the same stateless source.
func Static(src Source) Factory {
	return func(string) Source { return src }
}
