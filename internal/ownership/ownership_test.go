package ownership

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/flagpole/c2/internal/contest"
)

func TestRandomSimulatorFlipRateConverges(t *testing.T) {
	sim, err := NewRandomSimulator(DefaultFlipProbability, rand.New(rand.NewSource(7)))
	if err != nil {
		t.Fatal(err)
	}

	const draws = 200000
	flips := 0
	for i := 0; i < draws; i++ {
		if sim.Flip() {
			flips++
		}
	}

	rate := float64(flips) / draws
	// Standard error at p=0.25 over 200k draws is ~0.001.
	if math.Abs(rate-DefaultFlipProbability) > 0.005 {
		t.Errorf("empirical flip rate = %.4f, want %.2f ± 0.005", rate, DefaultFlipProbability)
	}
}

func TestValidateProbability(t *testing.T) {
	tests := []struct {
		p       float64
		wantErr bool
	}{
		{0.25, false},
		{1, false},
		{0, true},
		{-0.1, true},
		{1.01, true},
	}
	for _, tt := range tests {
		err := ValidateProbability(tt.p)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateProbability(%v) error = %v, wantErr %v", tt.p, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, contest.ErrConfig) {
			t.Errorf("ValidateProbability(%v) error is not a config error: %v", tt.p, err)
		}
	}
}

func TestRandomFactorySeededIsReproducible(t *testing.T) {
	f1, err := NewRandomFactory(0.5, 99)
	if err != nil {
		t.Fatal(err)
	}
	f2, _ := NewRandomFactory(0.5, 99)

	a, b := f1("10.0.0.1"), f2("10.0.0.1")
	for i := 0; i < 100; i++ {
		if a.Flip() != b.Flip() {
			t.Fatalf("draw %d differs between identically seeded factories", i)
		}
	}
}

func TestRandomFactoryNodesDrawIndependently(t *testing.T) {
	f, _ := NewRandomFactory(0.5, 99)
	a, b := f("10.0.0.1"), f("10.0.0.2")

	same := 0
	for i := 0; i < 200; i++ {
		if a.Flip() == b.Flip() {
			same++
		}
	}
	if same == 200 {
		t.Error("two nodes produced identical flip sequences")
	}
}

func TestFuncAdapters(t *testing.T) {
	if Never.Flip() {
		t.Error("Never flipped")
	}
	if !Always.Flip() {
		t.Error("Always did not flip")
	}
	f := Static(Always)
	if !f("x").Flip() || !f("y").Flip() {
		t.Error("Static should hand every node the given source")
	}
}

func TestHardwareBridgeNoEvents(t *testing.T) {
	events := make(chan HolderEvent, 4)
	b := NewHardwareBridge(events, contest.DefaultHolder)
	for i := 0; i < 3; i++ {
		if b.Flip() {
			t.Fatalf("tick %d flipped without any press", i)
		}
	}
}

func TestHardwareBridgeFlipsOnceOnHolderChange(t *testing.T) {
	events := make(chan HolderEvent, 4)
	b := NewHardwareBridge(events, contest.DefaultHolder)

	events <- HolderEvent{Node: "n", Side: contest.SideB, At: time.Now()}
	if !b.Flip() {
		t.Fatal("press for the other side should flip")
	}
	if b.Flip() {
		t.Fatal("flip must be reported once, not every tick")
	}
}

func TestHardwareBridgeIgnoresPressForCurrentHolder(t *testing.T) {
	events := make(chan HolderEvent, 4)
	b := NewHardwareBridge(events, contest.DefaultHolder)

	events <- HolderEvent{Side: contest.SideA}
	if b.Flip() {
		t.Fatal("pressing for the side already holding must not flip")
	}
}

func TestHardwareBridgeCollapsesPressesWithinTick(t *testing.T) {
	events := make(chan HolderEvent, 4)
	b := NewHardwareBridge(events, contest.DefaultHolder)

	events <- HolderEvent{Side: contest.SideB}
	events <- HolderEvent{Side: contest.SideA}
	if b.Flip() {
		t.Fatal("B then A within a tick ends where it started; no flip expected")
	}

	events <- HolderEvent{Side: contest.SideB}
	events <- HolderEvent{Side: contest.SideA}
	events <- HolderEvent{Side: contest.SideB}
	if !b.Flip() {
		t.Fatal("net change to B should flip")
	}
}

func TestHardwareBridgeClosedChannel(t *testing.T) {
	events := make(chan HolderEvent, 1)
	b := NewHardwareBridge(events, contest.DefaultHolder)
	events <- HolderEvent{Side: contest.SideB}
	close(events)

	if !b.Flip() {
		t.Fatal("buffered event before close should still flip")
	}
	if b.Flip() {
		t.Fatal("closed device should stop producing flips")
	}
}
