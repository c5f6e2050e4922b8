package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"connect4/agent"
	"connect4/game"
	"connect4/learn"
	"connect4/searcher"

	"github.com/samber/lo"
	"golang.org/x/exp/rand"
)

var ErrUnknownAgent = errors.New("unknown agent")

// Factory builds agents by name. Human agents built by one factory share
// its input so that two of them can take turns on one terminal.
type Factory struct {
	config Config
	in     io.Reader
	out    io.Writer
	human  *agent.Human
}

func NewFactory(c Config, in io.Reader, out io.Writer) *Factory {
	return &Factory{config: c, in: in, out: out}
}

// NewAgent builds one agent reading moves from stdin if it is human.
func NewAgent(name string, c Config) (agent.Agent, error) {
	return NewFactory(c, os.Stdin, os.Stdout).New(name)
}

type builder func(f *Factory) (agent.Agent, error)

var builders = map[string]builder{
	"null": func(*Factory) (agent.Agent, error) {
		return agent.NewNull(), nil
	},
	"human": func(f *Factory) (agent.Agent, error) {
		if f.human == nil {
			f.human = agent.NewHuman(f.in, f.out)
		}
		return f.human, nil
	},
	"benchmark": func(f *Factory) (agent.Agent, error) {
		c := f.config.Benchmark
		return agent.NewBenchmark(c.Depth, c.Random, c.Epsilon, f.config.NextSeed()), nil
	},
	"minimax": func(f *Factory) (agent.Agent, error) {
		return agent.NewMinimax(f.Minimax(f.config.Minimax.Depth)), nil
	},
	"mcts": func(f *Factory) (agent.Agent, error) {
		return agent.NewMCTS(f.MCTS()), nil
	},
	"linear": func(f *Factory) (agent.Agent, error) {
		w, err := learn.LoadWeights(f.config.Linear.Weights)
		if err != nil {
			return nil, err
		}
		return agent.NewLinear(w), nil
	},
	"linear-minimax": func(f *Factory) (agent.Agent, error) {
		w, err := learn.LoadWeights(f.config.Linear.Weights)
		if err != nil {
			return nil, err
		}
		return agent.NewLinearMinimax(w, f.config.Linear.Depth), nil
	},
}

// AgentNames returns the names New accepts, sorted.
func AgentNames() []string {
	names := lo.Keys(builders)
	slices.Sort(names)
	return names
}

func (f *Factory) New(name string) (agent.Agent, error) {
	build, ok := builders[name]
	if !ok {
		return nil, fmt.Errorf("%q is not one of %v: %w", name, AgentNames(), ErrUnknownAgent)
	}
	return build(f)
}

// Minimax returns a minimax searcher of the given depth with the configured
// discount, heuristic and memo.
func (f *Factory) Minimax(depth int) *searcher.Minimax {
	c := f.config.Minimax
	options := []searcher.MinimaxOption{
		searcher.WithDepth(depth),
		searcher.WithDiscount(c.Discount),
		searcher.WithMemoThreshold(c.MemoThreshold),
		searcher.WithHeuristic(game.EvaluateThreats(c.ThreatWeight)),
		searcher.WithMinimaxMetrics(),
	}
	switch {
	case c.MemoSize > 0:
		options = append(options, searcher.WithMemo(searcher.NewBoundedMemo(c.MemoSize)))
	case c.MemoSize < 0:
		options = append(options, searcher.WithMemo(searcher.NewSystemMemo(systemMemoFraction)))
	}
	if c.Deepening {
		options = append(options, searcher.WithIterativeDeepening())
	}
	return searcher.NewMinimax(options...)
}

// Share of the system memory a memo sized from it takes.
const systemMemoFraction = 0.25

func (f *Factory) MCTS() *searcher.MCTS {
	c := f.config.MCTS
	seed := f.config.NextSeed()
	options := []searcher.Option{
		searcher.WithExploration(c.Exploration),
		searcher.WithSeed(seed),
		searcher.WithMetrics(),
	}
	if c.Rollout == RolloutBenchmark {
		// Seeded apart from the tree so that the two random streams differ
		rng := rand.New(rand.NewSource(seed ^ 0x9e3779b97f4a7c15))
		options = append(options, searcher.WithRolloutPolicy(searcher.NewBenchmarkRollout(c.RolloutDepth, rng)))
	}
	return searcher.NewMCTS(options...)
}
