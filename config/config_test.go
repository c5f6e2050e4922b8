package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"connect4/agent"
	"connect4/game"
	"connect4/learn"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		c, err := Load("")
		require.NoError(t, err)
		require.Equal(t, Default(), c)
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		path := writeConfig(t, `
budget: 500ms
parallel: 4
minimax:
  depth: 6
  memo_size: 1024
mcts:
  rollout: benchmark
`)
		c, err := Load(path)
		require.NoError(t, err)
		require.Equal(t, 500*time.Millisecond, c.Budget)
		require.Equal(t, 4, c.Parallel)
		require.Equal(t, 6, c.Minimax.Depth)
		require.Equal(t, 1024, c.Minimax.MemoSize)
		require.Equal(t, RolloutBenchmark, c.MCTS.Rollout)
		require.Equal(t, Default().Minimax.Discount, c.Minimax.Discount, "Unset keys keep their defaults")
	})

	t.Run("environment overrides file", func(t *testing.T) {
		path := writeConfig(t, "minimax:\n  depth: 6\n")
		t.Setenv("C4_MINIMAX_DEPTH", "8")
		t.Setenv("C4_SEED", "42")

		c, err := Load(path)
		require.NoError(t, err)
		require.Equal(t, 8, c.Minimax.Depth)
		require.Equal(t, uint64(42), c.Seed)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		require.Error(t, err)
	})

	t.Run("invalid values", func(t *testing.T) {
		path := writeConfig(t, "trials: 0\n")
		_, err := Load(path)
		require.ErrorIs(t, err, ErrInvalid)
	})
}

func TestValidate(t *testing.T) {
	require.NoError(t, Default().Validate())

	tests := map[string]func(c *Config){
		"zero budget":        func(c *Config) { c.Budget = 0 },
		"negative grace":     func(c *Config) { c.Grace = -time.Second },
		"no parallelism":     func(c *Config) { c.Parallel = 0 },
		"empty depth range":  func(c *Config) { c.MinDepth, c.MaxDepth = 5, 4 },
		"zero discount":      func(c *Config) { c.Minimax.Discount = 0 },
		"discount above one": func(c *Config) { c.Minimax.Discount = 1.5 },
		"memo size":          func(c *Config) { c.Minimax.MemoSize = -2 },
		"benchmark epsilon":  func(c *Config) { c.Benchmark.Epsilon = 2 },
		"rollout":            func(c *Config) { c.MCTS.Rollout = "greedy" },
		"rollout depth":      func(c *Config) { c.MCTS.Rollout, c.MCTS.RolloutDepth = RolloutBenchmark, 0 },
		"training method":    func(c *Config) { c.Train.Method = "q" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			c := Default()
			mutate(&c)
			require.ErrorIs(t, c.Validate(), ErrInvalid)
		})
	}
}

func TestNextSeed(t *testing.T) {
	c := Default()
	require.NotZero(t, c.NextSeed())

	c.Seed = 7
	require.Equal(t, uint64(7), c.NextSeed())
}

func TestFactory(t *testing.T) {
	c := Default()
	c.Seed = 1
	c.Minimax.Depth = 4
	c.Linear.Weights = filepath.Join(t.TempDir(), "weights.yaml")
	require.NoError(t, learn.SaveWeights(c.Linear.Weights, learn.NewWeights(learn.MethodMC)))

	f := NewFactory(c, strings.NewReader(""), &bytes.Buffer{})

	t.Run("names", func(t *testing.T) {
		require.Equal(t, []string{"benchmark", "human", "linear", "linear-minimax", "mcts", "minimax", "null"}, AgentNames())
	})

	t.Run("every agent", func(t *testing.T) {
		expected := map[string]string{
			"null":           "Null",
			"human":          "Human",
			"benchmark":      "Benchmark",
			"minimax":        "Minimax",
			"mcts":           "MCTS",
			"linear":         "Linear",
			"linear-minimax": "LinearMinimax",
		}
		for name, display := range expected {
			a, err := f.New(name)
			require.NoError(t, err, name)
			require.Equal(t, display, a.Name())
		}
	})

	t.Run("unknown agent", func(t *testing.T) {
		_, err := f.New("alphazero")
		require.ErrorIs(t, err, ErrUnknownAgent)
	})

	t.Run("humans share their input", func(t *testing.T) {
		a, err := f.New("human")
		require.NoError(t, err)
		b, err := f.New("human")
		require.NoError(t, err)
		require.Same(t, a, b)
	})

	t.Run("missing weights", func(t *testing.T) {
		c := c
		c.Linear.Weights = filepath.Join(t.TempDir(), "missing.yaml")
		_, err := NewAgent("linear", c)
		require.Error(t, err)
	})

	t.Run("search agents take an immediate win", func(t *testing.T) {
		b, err := game.ParseMoves("001122")
		require.NoError(t, err)

		for _, name := range []string{"minimax", "benchmark"} {
			a, err := f.New(name)
			require.NoError(t, err)

			answer := agent.NewAnswer()
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			a.Decide(ctx, b, answer)
			cancel()
			require.Equal(t, 3, answer.Move(), name)
		}
	})

	t.Run("memo variants", func(t *testing.T) {
		for _, size := range []int{0, 1024} {
			c := c
			c.Minimax.MemoSize = size
			m := NewFactory(c, nil, nil).Minimax(4)
			require.Equal(t, 4, m.Depth())
		}
	})

	t.Run("benchmark rollout", func(t *testing.T) {
		c := c
		c.MCTS.Rollout = RolloutBenchmark
		a, err := NewFactory(c, nil, nil).New("mcts")
		require.NoError(t, err)

		b, err := game.ParseMoves("001122")
		require.NoError(t, err)
		answer := agent.NewAnswer()
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		a.Decide(ctx, b, answer)
		cancel()
		require.True(t, b.IsValid(answer.Move()))
	})
}
