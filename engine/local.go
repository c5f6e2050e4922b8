package engine

import (
	"context"
	"time"

	"connect4/agent"
	"connect4/experiments/metrics"
	"connect4/game"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Option func(e *Local)

// Local runs a game between two in-process agents. Each turn the agent to
// move decides in its own goroutine, bounded by the per-turn budget.
type Local struct {
	agents   [2]agent.Agent
	board    game.Board
	budget   time.Duration
	grace    time.Duration
	verbose  bool
	observer func(b game.Board, move metrics.MoveMetric)
}

func WithBudget(budget time.Duration) Option {
	return func(e *Local) {
		if budget > 0 {
			e.budget = budget
		}
	}
}

// WithGrace sets how long a task may keep running after its deadline before
// it is abandoned.
func WithGrace(grace time.Duration) Option {
	return func(e *Local) {
		if grace >= 0 {
			e.grace = grace
		}
	}
}

// WithBoard starts the game from b instead of the empty board.
func WithBoard(b game.Board) Option {
	return func(e *Local) {
		e.board = b
	}
}

func WithVerbose(verbose bool) Option {
	return func(e *Local) {
		e.verbose = verbose
	}
}

// WithObserver calls observer after every move with the new board.
func WithObserver(observer func(b game.Board, move metrics.MoveMetric)) Option {
	return func(e *Local) {
		e.observer = observer
	}
}

func NewLocal(first, second agent.Agent, options ...Option) *Local {
	if first == nil || second == nil {
		panic("need two agents")
	}
	e := &Local{ // Default values
		agents: [2]agent.Agent{first, second},
		budget: DefaultBudget,
		grace:  DefaultGrace,
	}
	for _, option := range options {
		option(e)
	}
	return e
}

// Board returns the starting board.
func (e *Local) Board() game.Board {
	return e.board
}

// Run plays until the board is won or full. Agents that answer late, answer
// an illegal column or fail are replaced by the first legal column for that
// turn, so every game ends with a definite outcome.
func (e *Local) Run(ctx context.Context) (int, metrics.GameMetric, []metrics.MoveMetric) {
	gameMetric := metrics.GameMetric{
		Agents:    [2]string{e.agents[0].Name(), e.agents[1].Name()},
		StartTime: time.Now(),
	}
	var moveMetrics []metrics.MoveMetric

	b := e.board
	for step := 1; !b.IsTerminal(); step++ {
		moveMetric := e.turn(ctx, b, step)
		b = b.Play(moveMetric.Column)
		moveMetrics = append(moveMetrics, moveMetric)

		level := zerolog.DebugLevel
		if e.verbose {
			level = zerolog.InfoLevel
		}
		log.WithLevel(level).
			Int("step", step).
			Str("agent", moveMetric.Agent).
			Int("player", moveMetric.Player).
			Int("column", moveMetric.Column).
			Dur("elapsed", moveMetric.Elapsed).
			Bool("fallback", moveMetric.Fallback).
			Msg("move")

		if e.observer != nil {
			e.observer(b, moveMetric)
		}
	}

	outcome := Outcome(b)
	gameMetric.Outcome = outcome
	gameMetric.EndTime = time.Now()
	gameMetric.Duration = gameMetric.EndTime.Sub(gameMetric.StartTime)
	gameMetric.TotalMoves = len(moveMetrics)
	return outcome, gameMetric, moveMetrics
}

// turn asks the agent to move on b and returns the column that is played.
func (e *Local) turn(ctx context.Context, b game.Board, step int) metrics.MoveMetric {
	player := b.Turn()
	a := e.agents[player]
	answer := agent.NewAnswer()

	turnCtx, cancel := ctx, context.CancelFunc(func() {})
	if !agent.IsInteractive(a) {
		turnCtx, cancel = context.WithTimeout(ctx, e.budget)
	}
	defer cancel()

	start := time.Now()
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				log.Error().Str("agent", a.Name()).Interface("panic", r).Msg("agent failed to decide")
			}
		}()
		a.Decide(turnCtx, b, answer)
	}()

	select {
	case <-done:
	case <-turnCtx.Done():
	}
	col := answer.Move()
	moveMetric := metrics.MoveMetric{
		Step:         step,
		Player:       player,
		Agent:        a.Name(),
		Column:       col,
		Elapsed:      time.Since(start),
		SearchMetric: answer.Metric(),
	}

	cancel()
	select {
	case <-done:
	case <-time.After(e.grace):
		log.Warn().Str("agent", a.Name()).Int("step", step).Msg("agent did not stop after its deadline, abandoning it")
	}

	if !b.IsValid(col) {
		moveMetric.Column = b.LegalMoves()[0]
		moveMetric.Fallback = true
		log.Warn().
			Str("agent", a.Name()).
			Int("step", step).
			Int("rejected", col).
			Int("column", moveMetric.Column).
			Msg("invalid move, substituting first legal column")
	}
	return moveMetric
}
