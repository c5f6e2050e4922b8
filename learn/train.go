package learn

import (
	"context"
	"errors"
	"fmt"

	"connect4/game"

	"github.com/rs/zerolog/log"
	"golang.org/x/exp/rand"
)

const (
	MethodMC    = "mc"
	MethodSARSA = "sarsa"
)

// Hyperparameters for training

const (
	DefaultEpisodes   = 10000
	DefaultAlpha      = 0.01
	DefaultGamma      = 0.9
	DefaultEpsilon    = 0.1
	DefaultStepReward = -0.02
)

var ErrUnknownMethod = errors.New("unknown training method")

type TrainOption func(t *Trainer)

// Trainer learns Weights by epsilon-greedy self-play. Both players share one
// set of weights since every feature is seen from the player to move.
type Trainer struct {
	method     string
	episodes   int
	alpha      float64
	gamma      float64
	epsilon    float64
	stepReward float64
	rng        *rand.Rand
}

func WithTrainingEpisodes(episodes int) TrainOption {
	return func(t *Trainer) {
		if episodes > 0 {
			t.episodes = episodes
		}
	}
}

func WithAlpha(alpha float64) TrainOption {
	return func(t *Trainer) {
		if alpha > 0 {
			t.alpha = alpha
		}
	}
}

func WithGamma(gamma float64) TrainOption {
	return func(t *Trainer) {
		if gamma > 0 && gamma <= 1 {
			t.gamma = gamma
		}
	}
}

func WithEpsilon(epsilon float64) TrainOption {
	return func(t *Trainer) {
		if epsilon >= 0 && epsilon <= 1 {
			t.epsilon = epsilon
		}
	}
}

func WithTrainingSeed(seed uint64) TrainOption {
	return func(t *Trainer) {
		t.rng = rand.New(rand.NewSource(seed))
	}
}

func NewTrainer(method string, options ...TrainOption) (*Trainer, error) {
	if method != MethodMC && method != MethodSARSA {
		return nil, fmt.Errorf("%q: %w", method, ErrUnknownMethod)
	}
	t := &Trainer{ // Default values
		method:     method,
		episodes:   DefaultEpisodes,
		alpha:      DefaultAlpha,
		gamma:      DefaultGamma,
		epsilon:    DefaultEpsilon,
		stepReward: DefaultStepReward,
	}
	for _, option := range options {
		option(t)
	}
	if t.rng == nil {
		t.rng = rand.New(rand.NewSource(1))
	}
	return t, nil
}

// Train plays the configured number of episodes from the empty board. When
// ctx ends early the weights learnt so far are returned with the context's
// error.
func (t *Trainer) Train(ctx context.Context) (*Weights, error) {
	w := NewWeights(t.method)
	step := max(t.episodes/10, 1)

	for episode := 0; episode < t.episodes; episode++ {
		if err := ctx.Err(); err != nil {
			return w, fmt.Errorf("failed to finish training: %w", err)
		}
		switch t.method {
		case MethodMC:
			t.monteCarlo(w)
		case MethodSARSA:
			t.sarsa(w)
		}
		w.Episodes++

		if w.Episodes%step == 0 {
			log.Debug().Str("method", t.method).Msgf("trained %d of %d episodes", w.Episodes, t.episodes)
		}
	}
	return w, nil
}

func (t *Trainer) choose(w *Weights, b game.Board) int {
	if t.rng.Float64() < t.epsilon {
		moves := b.LegalMoves()
		return moves[t.rng.Intn(len(moves))]
	}
	return w.Greedy(b)
}

// outcome returns the final reward of each player on a terminal board.
func outcome(b game.Board) [2]float64 {
	if !b.IsWon() {
		return [2]float64{}
	}
	var r [2]float64
	winner := 1 - b.Turn()
	r[winner], r[1-winner] = 1, -1
	return r
}

// monteCarlo plays one episode and moves every visited state toward its
// discounted return.
func (t *Trainer) monteCarlo(w *Weights) {
	var b game.Board
	var states [2][]Features
	var rewards [2][]float64
	for !b.IsTerminal() {
		p := b.Turn()
		states[p] = append(states[p], Extract(b))
		b = b.Play(t.choose(w, b))
		rewards[p] = append(rewards[p], t.stepReward)
	}

	// The outcome replaces each player's last step reward
	final := outcome(b)
	for p := range rewards {
		if n := len(rewards[p]); n > 0 {
			rewards[p][n-1] = final[p]
		}
	}

	for p := range states {
		g := 0.0
		for i := len(states[p]) - 1; i >= 0; i-- {
			g = rewards[p][i] + t.gamma*g
			f := states[p][i]
			w.update(f, t.alpha*(g-w.valueOf(f)))
		}
	}
}

// sarsa plays one episode, updating each player's previous state from the
// next state it reaches.
func (t *Trainer) sarsa(w *Weights) {
	var b game.Board
	var prev [2]Features
	var seen [2]bool
	for !b.IsTerminal() {
		p := b.Turn()
		f := Extract(b)
		if seen[p] {
			t.temporalDifference(w, prev[p], t.stepReward, w.valueOf(f))
		}
		prev[p], seen[p] = f, true
		b = b.Play(t.choose(w, b))
	}

	final := outcome(b)
	for p := range prev {
		if seen[p] {
			t.temporalDifference(w, prev[p], final[p], 0)
		}
	}
}

func (t *Trainer) temporalDifference(w *Weights, f Features, reward, next float64) {
	w.update(f, t.alpha*(reward+t.gamma*next-w.valueOf(f)))
}
