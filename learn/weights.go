package learn

import (
	"errors"
	"fmt"
	"math"
	"os"

	"connect4/game"

	"gopkg.in/yaml.v3"
)

// Heuristic values stay inside the range minimax treats as decided.
const maxHeuristic = 0.9

var ErrFeatures = errors.New("weights do not match the feature set")

// Weights is a linear value function over Features. Value is the expected
// return of the player to move.
type Weights struct {
	Method   string    `yaml:"method"`
	Episodes int       `yaml:"episodes"`
	Features int       `yaml:"features"`
	Theta    []float64 `yaml:"theta"`
}

func NewWeights(method string) *Weights {
	return &Weights{
		Method:   method,
		Features: NumFeatures,
		Theta:    make([]float64, NumFeatures),
	}
}

func (w *Weights) Value(b game.Board) float64 {
	return w.valueOf(Extract(b))
}

func (w *Weights) valueOf(f Features) float64 {
	return w.Theta[f[0]] + w.Theta[f[1]]
}

// Evaluate adapts Value to a heuristic where positive favors the first
// player.
func (w *Weights) Evaluate(b game.Board) float64 {
	v := w.Value(b)
	if b.Turn() == game.O {
		v = -v
	}
	return math.Max(-maxHeuristic, math.Min(maxHeuristic, v))
}

// Greedy returns the legal move with the best afterstate value for the player
// to move, taking an immediate win first. Ties go to the earlier column in
// canonical order.
func (w *Weights) Greedy(b game.Board) int {
	best, bestValue := game.NoMove, math.Inf(-1)
	for _, col := range b.LegalMoves() {
		child := b.Play(col)
		if child.IsWon() {
			return col
		}
		var v float64
		if !child.IsDraw() {
			v = -w.Value(child)
		}
		if v > bestValue {
			best, bestValue = col, v
		}
	}
	return best
}

func (w *Weights) update(f Features, delta float64) {
	w.Theta[f[0]] += delta
	w.Theta[f[1]] += delta
}

func (w *Weights) validate() error {
	if w.Features != NumFeatures || len(w.Theta) != NumFeatures {
		return fmt.Errorf("%d features and %d weights: %w", w.Features, len(w.Theta), ErrFeatures)
	}
	return nil
}

func SaveWeights(path string, w *Weights) error {
	out, err := yaml.Marshal(w)
	if err != nil {
		return fmt.Errorf("failed to marshal weights: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("failed to write weights: %w", err)
	}
	return nil
}

func LoadWeights(path string) (*Weights, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read weights: %w", err)
	}
	w := &Weights{}
	if err := yaml.Unmarshal(data, w); err != nil {
		return nil, fmt.Errorf("failed to unmarshal weights: %w", err)
	}
	if err := w.validate(); err != nil {
		return nil, fmt.Errorf("failed to load weights: %w", err)
	}
	return w, nil
}
