package wheel

import (
	"math/rand"
	"sync"
	"time"
)

// Clock supplies the current time. Injected so eligibility and expiry
// checks are testable against a fixed timeline.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall-clock implementation.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// RandSource draws uniform floats in [0, 1). Injected so prize selection
// is reproducible in tests.
type RandSource interface {
	Draw() float64
}

// LockedRand is a RandSource safe for concurrent spins.
type LockedRand struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewLockedRand creates a LockedRand seeded with the given seed.
func NewLockedRand(seed int64) *LockedRand {
	return &LockedRand{rng: rand.New(rand.NewSource(seed))}
}

func (r *LockedRand) Draw() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Float64()
}
