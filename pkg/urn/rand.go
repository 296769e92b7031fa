package urn

import "math/rand/v2"

// NewSource returns a PCG-backed generator. A zero seed draws a fresh seed
// from the runtime's random state; the seed actually used is returned so a
// session can be replayed.
func NewSource(seed uint64) (*rand.Rand, uint64) {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), seed
}
