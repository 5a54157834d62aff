// Package randutil centralises deterministic seeding for math/rand/v2.
package randutil

import rand "math/rand/v2"

const golden = 0x9e3779b97f4a7c15

// New returns a *rand.Rand seeded deterministically from seed. rand/v2's
// PCG wants two well-mixed 64-bit words; deriving both here keeps every
// call site reproducible from a single logged seed.
func New(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(rand.NewPCG(splitmix(u), splitmix(u+golden)))
}

// splitmix is the SplitMix64 finalizer.
func splitmix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
