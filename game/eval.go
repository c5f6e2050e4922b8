package game

import "golang.org/x/exp/rand"

// Evaluate estimates the value of a non-terminal board as a score in (-1, 1)
// where positive favors the first player. Search engines only depend on this
// signature, never on how a value was produced.
type Evaluate func(Board) float64

// EvaluateNull scores every board as even.
func EvaluateNull(Board) float64 {
	return 0
}

// EvaluateThreats returns the squared threat difference scaled by weight.
func EvaluateThreats(weight float64) Evaluate {
	return func(b Board) float64 {
		t := b.ThreatCount()
		return float64(t[0]*t[0])*weight - float64(t[1]*t[1])*weight
	}
}

// EvaluateRandom draws a uniform score in [-spread, spread] from r.
// The returned function is not safe for concurrent use.
func EvaluateRandom(r *rand.Rand, spread float64) Evaluate {
	return func(Board) float64 {
		return (2*r.Float64() - 1) * spread
	}
}
