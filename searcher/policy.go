package searcher

import "math"

// Hyperparameters for MCTS

const CSquared = 1.0 // Exploration constant C=1, squared

type uct struct {
	numerator float64
}

func newUCT(cSquared float64, N float64) *uct {
	if N == 0 {
		panic("N cannot be 0")
	}
	return &uct{numerator: cSquared * math.Log(N)}
}

// evaluate scores a child with q total reward over n visits. sign is +1 when
// the first player chose the move leading to the child and -1 otherwise, so a
// larger score is better for whoever is choosing.
func (u uct) evaluate(q float64, n float64, sign float64) float64 {
	if n == 0 {
		panic("n cannot be 0")
	}
	// UCT = sign*q/n + sqrt(c^2*ln(N)/n)
	return sign*q/n + math.Sqrt(u.numerator/n)
}
