package agent

import (
	"context"
	"sync/atomic"

	"connect4/experiments/metrics"
	"connect4/game"
)

type Agent interface {
	// Decide writes a column into answer, possibly several times as its search
	// improves, and returns once it is done or ctx ends
	Decide(ctx context.Context, b game.Board, answer *Answer)
	Name() string
}

// Interactive agents wait on a person and are not bound by the per-turn
// deadline.
type Interactive interface {
	Interactive() bool
}

func IsInteractive(a Agent) bool {
	i, ok := a.(Interactive)
	return ok && i.Interactive()
}

// Answer is the output slot of one turn. The driver allocates a fresh one per
// turn, so a task that outlives its deadline can only write into a slot nobody
// reads any more.
type Answer struct {
	move   atomic.Int32
	metric atomic.Pointer[metrics.SearchMetric]
}

func NewAnswer() *Answer {
	a := &Answer{}
	a.move.Store(game.NoMove)
	return a
}

func (a *Answer) Set(move int) {
	a.move.Store(int32(move))
}

// Move returns the latest column written, or game.NoMove.
func (a *Answer) Move() int {
	return int(a.move.Load())
}

func (a *Answer) SetMetric(m metrics.SearchMetric) {
	a.metric.Store(&m)
}

func (a *Answer) Metric() metrics.SearchMetric {
	if m := a.metric.Load(); m != nil {
		return *m
	}
	return metrics.SearchMetric{}
}

type null struct{}

// NewNull returns an agent that plays the first legal column in canonical
// order.
func NewNull() Agent {
	return null{}
}

func (null) Decide(_ context.Context, b game.Board, answer *Answer) {
	if moves := b.LegalMoves(); len(moves) > 0 {
		answer.Set(moves[0])
	}
}

func (null) Name() string {
	return "Null"
}
