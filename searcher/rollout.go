package searcher

import (
	"math/bits"

	"connect4/game"

	"golang.org/x/exp/rand"
)

// RolloutPolicy picks moves while a rollout plays a board to its end. Next is
// only called on boards that are not terminal.
type RolloutPolicy interface {
	Next(b game.Board) int
}

// UniformRollout plays a uniformly random legal move.
type UniformRollout struct {
	rng *rand.Rand
}

func NewUniformRollout(rng *rand.Rand) *UniformRollout {
	return &UniformRollout{rng: rng}
}

func (u *UniformRollout) Next(b game.Board) int {
	mask := b.LegalMovesBitmask()
	k := u.rng.Intn(bits.OnesCount8(mask))
	for i := 0; i < game.Columns; i++ {
		if mask&(1<<uint(i)) == 0 {
			continue
		}
		if k == 0 {
			return game.MoveOrder[i]
		}
		k--
	}
	panic("no legal move to roll out")
}

// NewBenchmarkRollout returns a shallow minimax with a random heuristic in
// [-0.5, 0.5], a cheap policy that still takes and blocks immediate wins.
func NewBenchmarkRollout(depth int, rng *rand.Rand) *Minimax {
	return NewMinimax(
		WithDepth(depth),
		WithHeuristic(game.EvaluateRandom(rng, 0.5)),
	)
}
