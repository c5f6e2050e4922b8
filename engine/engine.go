package engine

import (
	"context"
	"time"

	"connect4/experiments/metrics"
	"connect4/game"
)

const (
	DefaultBudget = 2000 * time.Millisecond
	DefaultGrace  = 250 * time.Millisecond
)

// Outcome codes
const (
	FirstWins  = 0
	SecondWins = 1
	Draw       = 2
)

type Engine interface {
	// Run plays a game to the end and returns its outcome code
	Run(ctx context.Context) (outcome int, gameMetric metrics.GameMetric, moveMetrics []metrics.MoveMetric)
}

// Outcome returns the outcome code of a terminal board. A win on the last
// empty cell is a win.
func Outcome(b game.Board) int {
	if b.IsWon() {
		return 1 - b.Turn()
	}
	return Draw
}

func OutcomeString(outcome int) string {
	switch outcome {
	case FirstWins:
		return "X wins"
	case SecondWins:
		return "O wins"
	default:
		return "draw"
	}
}
