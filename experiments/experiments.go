package experiments

import (
	"context"
	"errors"
	"fmt"
	"io"

	"connect4/agent"
	"connect4/config"
	"connect4/engine"
	"connect4/experiments/metrics"
	"connect4/game"
	"connect4/learn"

	"github.com/rs/zerolog/log"
)

// Experiment modes
const (
	ModeSingle = "single"
	ModeTime   = "time"
	ModeWin    = "win"
	ModeDepth  = "depth"
	ModePlay   = "play"
	ModeTrain  = "train"
)

var Modes = []string{ModeSingle, ModeTime, ModeWin, ModeDepth, ModePlay, ModeTrain}

var ErrUnknownMode = errors.New("unknown test type")

// Confidence level in percent of the reported score intervals
const Confidence = 95

// Runner runs experiments with the agents of one config. Results are
// written under config.Out.
type Runner struct {
	config  config.Config
	factory *config.Factory
}

func NewRunner(c config.Config, in io.Reader, out io.Writer) *Runner {
	return &Runner{
		config:  c,
		factory: config.NewFactory(c, in, out),
	}
}

// Run runs the experiment of the given mode.
func (r *Runner) Run(ctx context.Context, mode string) error {
	var err error
	switch mode {
	case ModeSingle:
		_, err = r.Single(ctx)
	case ModeTime:
		_, err = r.TimeTrials(ctx)
	case ModeWin:
		_, err = r.WinTrials(ctx)
	case ModeDepth:
		_, err = r.DepthTrials(ctx)
	case ModePlay:
		_, err = r.Play(ctx)
	case ModeTrain:
		_, err = r.Train(ctx)
	default:
		return fmt.Errorf("%q is not one of %v: %w", mode, Modes, ErrUnknownMode)
	}
	return err
}

func (r *Runner) agent(name string) func() (agent.Agent, error) {
	return func() (agent.Agent, error) {
		return r.factory.New(name)
	}
}

func (r *Runner) minimax(depth int) func() (agent.Agent, error) {
	return func() (agent.Agent, error) {
		return agent.NewMinimax(r.factory.Minimax(depth)), nil
	}
}

// Single plays one game of the benchmark agent against minimax and logs
// every move and the final board.
func (r *Runner) Single(ctx context.Context) (int, error) {
	x, err := r.factory.New("benchmark")
	if err != nil {
		return 0, err
	}
	o := agent.NewMinimax(r.factory.Minimax(r.config.Minimax.Depth))
	log.Info().Msgf("%s vs. %s", x.Name(), o.Name())

	e := engine.NewLocal(x, o,
		engine.WithBudget(r.config.Budget),
		engine.WithGrace(r.config.Grace),
		engine.WithVerbose(true),
	)
	outcome, gameMetric, moves := e.Run(ctx)
	log.Info().Msgf("final board:\n%s", replay(e.Board(), moves))
	r.logResult("single", outcome, gameMetric)
	return outcome, nil
}

// Play plays an interactive game of a human as X against minimax.
func (r *Runner) Play(ctx context.Context) (int, error) {
	x, err := r.factory.New("human")
	if err != nil {
		return 0, err
	}
	o := agent.NewMinimax(r.factory.Minimax(r.config.Minimax.Depth))

	e := engine.NewLocal(x, o,
		engine.WithBudget(r.config.Budget),
		engine.WithGrace(r.config.Grace),
		engine.WithVerbose(r.config.Verbose),
	)
	outcome, gameMetric, moves := e.Run(ctx)
	log.Info().Msgf("final board:\n%s", replay(e.Board(), moves))
	r.logResult("play", outcome, gameMetric)
	return outcome, nil
}

// replay plays the columns of moves on b.
func replay(b game.Board, moves []metrics.MoveMetric) game.Board {
	for _, m := range moves {
		b = b.Play(m.Column)
	}
	return b
}

func (r *Runner) logResult(name string, outcome int, gameMetric metrics.GameMetric) {
	switch outcome {
	case engine.FirstWins:
		log.Info().Msgf("%s (X player) won the %s game", gameMetric.Agents[0], name)
	case engine.SecondWins:
		log.Info().Msgf("%s (O player) won the %s game", gameMetric.Agents[1], name)
	default:
		log.Info().Msgf("the %s game was a draw", name)
	}
}

// Train learns linear weights by self-play and saves them to the weights
// path.
func (r *Runner) Train(ctx context.Context) (*learn.Weights, error) {
	c := r.config.Train
	trainer, err := learn.NewTrainer(c.Method,
		learn.WithTrainingEpisodes(c.Episodes),
		learn.WithAlpha(c.Alpha),
		learn.WithGamma(c.Gamma),
		learn.WithEpsilon(c.Epsilon),
		learn.WithTrainingSeed(r.config.NextSeed()),
	)
	if err != nil {
		return nil, err
	}

	log.Info().Msgf("starting %s training for %d episodes...", c.Method, c.Episodes)
	w, err := trainer.Train(ctx)
	if err != nil {
		return nil, err
	}
	if err := learn.SaveWeights(r.config.Linear.Weights, w); err != nil {
		return nil, err
	}
	log.Info().Str("path", r.config.Linear.Weights).Msg("stored weights")
	return w, nil
}
