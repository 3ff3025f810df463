package match

import "math/rand/v2"

// Random is the single source of uniform draws for every stochastic decision
// in the engine and the batch simulator. *rand.Rand satisfies it.
type Random interface {
	// Float64 returns a draw in [0, 1).
	Float64() float64
	// IntN returns a draw in [0, n). n must be > 0.
	IntN(n int) int
}

// NewRandom returns a PCG-backed generator. Equal seeds yield equal sequences.
func NewRandom(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// uniform returns a draw in [0, span).
func uniform(rng Random, span float64) float64 {
	return rng.Float64() * span
}

// pick returns a random index into a slice of length n, or -1 when n is 0.
func pick(rng Random, n int) int {
	if n <= 0 {
		return -1
	}
	return rng.IntN(n)
}
