package learn

import "connect4/game"

const (
	NumFeatures = 25

	threatFeatures = 9 // 3x3 clamped threat counts
	maxThreats     = 2
	maxCenter      = 3
	centerColumn   = 3
)

// Features holds the indexes of the two active one-hot features of a board,
// both seen from the player to move.
type Features [2]int

// Extract returns the threat feature and the center column feature of b.
func Extract(b game.Board) Features {
	self, opp := b.Turn(), 1-b.Turn()

	threats := b.ThreatCount()
	ts := min(threats[self], maxThreats)*(maxThreats+1) + min(threats[opp], maxThreats)

	var center [2]int
	for row := 0; row < b.Height(centerColumn); row++ {
		center[b.Cell(centerColumn, row)]++
	}
	cs := min(center[self], maxCenter)*(maxCenter+1) + min(center[opp], maxCenter)

	return Features{ts, threatFeatures + cs}
}

// Vector expands the active features into a dense 0/1 vector.
func (f Features) Vector() []float64 {
	v := make([]float64, NumFeatures)
	for _, i := range f {
		v[i] = 1
	}
	return v
}
