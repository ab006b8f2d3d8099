package ownership

import (
	"hash/fnv"
	"math/rand"
	"time"

	"github.com/flagpole/c2/internal/contest"
)

// DefaultFlipProbability is the per-tick chance that a simulated node
// changes hands.
const DefaultFlipProbability = 0.25

// RandomSimulator flips with a fixed probability, independently per call.
type RandomSimulator struct {
	probability float64
	rng         *rand.Rand
}

// NewRandomSimulator returns a simulator drawing from rng.
func NewRandomSimulator(probability float64, rng *rand.Rand) (*RandomSimulator, error) {
	if err := ValidateProbability(probability); err != nil {
		return nil, err
	}
	return &RandomSimulator{probability: probability, rng: rng}, nil
}

func (r *RandomSimulator) Flip() bool {
	return r.rng.Float64() < r.probability
}

// Probability returns the configured per-tick flip probability.
func (r *RandomSimulator) Probability() float64 {
	return r.probability
}

// ValidateProbability rejects values outside (0, 1].
func ValidateProbability(p float64) error {
	if p <= 0 || p > 1 {
		return contest.Invalid("ownership.probability", "must be in (0, 1]")
	}
	return nil
}

// NewRandomFactory builds one RandomSimulator per node. A zero seed seeds
// from the wall clock; any other seed makes runs reproducible, with the node
// id mixed in so nodes still draw independent streams.
func NewRandomFactory(probability float64, seed int64) (Factory, error) {
	if err := ValidateProbability(probability); err != nil {
		return nil, err
	}
	base := seed
	if base == 0 {
		base = time.Now().UnixNano()
	}
	return func(nodeID string) Source {
		h := fnv.New64a()
		h.Write([]byte(nodeID))
		rng := rand.New(rand.NewSource(base ^ int64(h.Sum64())))
		return &RandomSimulator{probability: probability, rng: rng}
	}, nil
}
