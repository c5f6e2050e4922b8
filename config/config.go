package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"connect4/engine"
	"connect4/learn"
	"connect4/searcher"

	"github.com/spf13/viper"
	"lukechampine.com/frand"
)

const EnvPrefix = "C4"

// Rollout policies
const (
	RolloutUniform   = "uniform"
	RolloutBenchmark = "benchmark"
)

var ErrInvalid = errors.New("invalid config")

type Config struct {
	Budget    time.Duration `mapstructure:"budget"`     // Per-turn deadline
	Grace     time.Duration `mapstructure:"grace"`      // Wait for a task after its deadline
	TimeLimit time.Duration `mapstructure:"time_limit"` // Per-turn deadline of time trials
	Trials    int           `mapstructure:"trials"`
	Parallel  int           `mapstructure:"parallel"` // Games run at once
	Verbose   bool          `mapstructure:"verbose"`
	Out       string        `mapstructure:"out"`
	Tag       string        `mapstructure:"tag"`
	Seed      uint64        `mapstructure:"seed"` // 0 picks a random seed
	MinDepth  int           `mapstructure:"min_depth"`
	MaxDepth  int           `mapstructure:"max_depth"`

	Minimax   MinimaxConfig   `mapstructure:"minimax"`
	Benchmark BenchmarkConfig `mapstructure:"benchmark"`
	MCTS      MCTSConfig      `mapstructure:"mcts"`
	Linear    LinearConfig    `mapstructure:"linear"`
	Train     TrainConfig     `mapstructure:"train"`
}

type MinimaxConfig struct {
	Depth         int     `mapstructure:"depth"`
	Discount      float64 `mapstructure:"discount"`
	MemoThreshold float64 `mapstructure:"memo_threshold"`
	ThreatWeight  float64 `mapstructure:"threat_weight"`
	MemoSize      int     `mapstructure:"memo_size"` // 0 unbounded, -1 sized from system memory
	Deepening     bool    `mapstructure:"deepening"`
}

type BenchmarkConfig struct {
	Depth   int     `mapstructure:"depth"`
	Random  bool    `mapstructure:"random"`
	Epsilon float64 `mapstructure:"epsilon"`
}

type MCTSConfig struct {
	Exploration  float64 `mapstructure:"exploration"`
	Rollout      string  `mapstructure:"rollout"`
	RolloutDepth int     `mapstructure:"rollout_depth"`
}

type LinearConfig struct {
	Weights string `mapstructure:"weights"`
	Depth   int    `mapstructure:"depth"`
}

type TrainConfig struct {
	Method   string  `mapstructure:"method"`
	Episodes int     `mapstructure:"episodes"`
	Alpha    float64 `mapstructure:"alpha"`
	Gamma    float64 `mapstructure:"gamma"`
	Epsilon  float64 `mapstructure:"epsilon"`
}

func Default() Config {
	return Config{
		Budget:    engine.DefaultBudget,
		Grace:     engine.DefaultGrace,
		TimeLimit: 10 * time.Second,
		Trials:    1,
		Parallel:  1,
		Out:       "data",
		Tag:       "minimax",
		MinDepth:  1,
		MaxDepth:  searcher.DefaultDepth,
		Minimax: MinimaxConfig{
			Depth:         searcher.DefaultDepth,
			Discount:      searcher.Discount,
			MemoThreshold: searcher.MemoThreshold,
			ThreatWeight:  searcher.ThreatWeight,
		},
		Benchmark: BenchmarkConfig{
			Depth: 4,
		},
		MCTS: MCTSConfig{
			Exploration:  math.Sqrt(searcher.CSquared),
			Rollout:      RolloutUniform,
			RolloutDepth: 3,
		},
		Linear: LinearConfig{
			Weights: "weights.yaml",
			Depth:   4,
		},
		Train: TrainConfig{
			Method:   learn.MethodMC,
			Episodes: learn.DefaultEpisodes,
			Alpha:    learn.DefaultAlpha,
			Gamma:    learn.DefaultGamma,
			Epsilon:  learn.DefaultEpsilon,
		},
	}
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("budget", c.Budget)
	v.SetDefault("grace", c.Grace)
	v.SetDefault("time_limit", c.TimeLimit)
	v.SetDefault("trials", c.Trials)
	v.SetDefault("parallel", c.Parallel)
	v.SetDefault("verbose", c.Verbose)
	v.SetDefault("out", c.Out)
	v.SetDefault("tag", c.Tag)
	v.SetDefault("seed", c.Seed)
	v.SetDefault("min_depth", c.MinDepth)
	v.SetDefault("max_depth", c.MaxDepth)

	v.SetDefault("minimax.depth", c.Minimax.Depth)
	v.SetDefault("minimax.discount", c.Minimax.Discount)
	v.SetDefault("minimax.memo_threshold", c.Minimax.MemoThreshold)
	v.SetDefault("minimax.threat_weight", c.Minimax.ThreatWeight)
	v.SetDefault("minimax.memo_size", c.Minimax.MemoSize)
	v.SetDefault("minimax.deepening", c.Minimax.Deepening)

	v.SetDefault("benchmark.depth", c.Benchmark.Depth)
	v.SetDefault("benchmark.random", c.Benchmark.Random)
	v.SetDefault("benchmark.epsilon", c.Benchmark.Epsilon)

	v.SetDefault("mcts.exploration", c.MCTS.Exploration)
	v.SetDefault("mcts.rollout", c.MCTS.Rollout)
	v.SetDefault("mcts.rollout_depth", c.MCTS.RolloutDepth)

	v.SetDefault("linear.weights", c.Linear.Weights)
	v.SetDefault("linear.depth", c.Linear.Depth)

	v.SetDefault("train.method", c.Train.Method)
	v.SetDefault("train.episodes", c.Train.Episodes)
	v.SetDefault("train.alpha", c.Train.Alpha)
	v.SetDefault("train.gamma", c.Train.Gamma)
	v.SetDefault("train.epsilon", c.Train.Epsilon)
}

// Load reads the defaults, then the optional file at path, then C4_*
// environment variables such as C4_MINIMAX_DEPTH.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v, Default())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	switch {
	case c.Budget <= 0:
		return fmt.Errorf("budget %v must be positive: %w", c.Budget, ErrInvalid)
	case c.Grace < 0:
		return fmt.Errorf("grace %v must not be negative: %w", c.Grace, ErrInvalid)
	case c.TimeLimit <= 0:
		return fmt.Errorf("time limit %v must be positive: %w", c.TimeLimit, ErrInvalid)
	case c.Trials <= 0:
		return fmt.Errorf("trials %d must be positive: %w", c.Trials, ErrInvalid)
	case c.Parallel <= 0:
		return fmt.Errorf("parallel %d must be positive: %w", c.Parallel, ErrInvalid)
	case c.MinDepth <= 0 || c.MaxDepth < c.MinDepth:
		return fmt.Errorf("depth range [%d, %d] is empty: %w", c.MinDepth, c.MaxDepth, ErrInvalid)
	case c.Minimax.Depth <= 0:
		return fmt.Errorf("minimax depth %d must be positive: %w", c.Minimax.Depth, ErrInvalid)
	case c.Minimax.Discount <= 0 || c.Minimax.Discount > 1:
		return fmt.Errorf("discount %v must be in (0, 1]: %w", c.Minimax.Discount, ErrInvalid)
	case c.Minimax.MemoSize < -1:
		return fmt.Errorf("memo size %d must be -1 or more: %w", c.Minimax.MemoSize, ErrInvalid)
	case c.Benchmark.Depth <= 0:
		return fmt.Errorf("benchmark depth %d must be positive: %w", c.Benchmark.Depth, ErrInvalid)
	case c.Benchmark.Epsilon < 0 || c.Benchmark.Epsilon > 1:
		return fmt.Errorf("benchmark epsilon %v must be in [0, 1]: %w", c.Benchmark.Epsilon, ErrInvalid)
	case c.MCTS.Exploration < 0:
		return fmt.Errorf("exploration %v must not be negative: %w", c.MCTS.Exploration, ErrInvalid)
	case c.MCTS.Rollout != RolloutUniform && c.MCTS.Rollout != RolloutBenchmark:
		return fmt.Errorf("rollout %q is not %q or %q: %w", c.MCTS.Rollout, RolloutUniform, RolloutBenchmark, ErrInvalid)
	case c.MCTS.Rollout == RolloutBenchmark && c.MCTS.RolloutDepth <= 0:
		return fmt.Errorf("rollout depth %d must be positive: %w", c.MCTS.RolloutDepth, ErrInvalid)
	case c.Linear.Depth <= 0:
		return fmt.Errorf("linear depth %d must be positive: %w", c.Linear.Depth, ErrInvalid)
	case c.Train.Method != learn.MethodMC && c.Train.Method != learn.MethodSARSA:
		return fmt.Errorf("training method %q: %w", c.Train.Method, ErrInvalid)
	case c.Train.Episodes <= 0:
		return fmt.Errorf("training episodes %d must be positive: %w", c.Train.Episodes, ErrInvalid)
	}
	return nil
}

// NextSeed returns the configured seed, or a random one when it is 0.
func (c Config) NextSeed() uint64 {
	if c.Seed != 0 {
		return c.Seed
	}
	return frand.Uint64n(math.MaxUint64) + 1
}
