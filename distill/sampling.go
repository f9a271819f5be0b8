package distill

import "math/rand"

// Sampler decides whether a chunk is processed or skipped. Chunk order is
// never changed; sampling only thins the set.
type Sampler interface {
	Skip(chunkIndex int) bool
}

// EveryChunk processes all chunks in index order. This is the default and the
// policy tests should use.
type EveryChunk struct{}

func (EveryChunk) Skip(int) bool { return false }

// RandomSkip skips each chunk independently with the configured probability,
// from a seeded source so runs are reproducible.
type RandomSkip struct {
	rng  *rand.Rand
	rate float64
}

// NewRandomSkip builds a skip policy. rate is clamped to [0, 1].
func NewRandomSkip(rate float64, seed int64) *RandomSkip {
	if rate < 0 {
		rate = 0
	}
	if rate > 1 {
		rate = 1
	}
	return &RandomSkip{rng: rand.New(rand.NewSource(seed)), rate: rate}
}

func (r *RandomSkip) Skip(int) bool {
	return r.rng.Float64() < r.rate
}
