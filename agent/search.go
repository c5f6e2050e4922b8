package agent

import (
	"context"
	"sync"

	"connect4/experiments/metrics"
	"connect4/game"
	"connect4/learn"
	"connect4/searcher"

	"github.com/rs/zerolog/log"
	"golang.org/x/exp/rand"
)

const (
	BenchmarkDepth = 4

	LinearDepth    = 4
	LinearDiscount = 0.99
)

// Searcher is implemented by the search engines.
type Searcher interface {
	Search(ctx context.Context, b game.Board, report func(move int)) (searcher.Result, metrics.SearchMetric)
}

// Search plays the move of a search engine. Every improvement the engine
// reports is written to the answer straight away. The engine is not safe for
// concurrent use, so a turn that starts while an abandoned search is still
// running is skipped.
type Search struct {
	name   string
	engine Searcher
	mu     sync.Mutex
}

func NewSearch(name string, engine Searcher) *Search {
	return &Search{name: name, engine: engine}
}

func NewMinimax(m *searcher.Minimax) *Search {
	return NewSearch("Minimax", m)
}

func NewMCTS(m *searcher.MCTS) *Search {
	return NewSearch("MCTS", m)
}

// NewLinearMinimax searches with the learnt value function as heuristic.
func NewLinearMinimax(w *learn.Weights, depth int) *Search {
	m := searcher.NewMinimax(
		searcher.WithDepth(depth),
		searcher.WithDiscount(LinearDiscount),
		searcher.WithHeuristic(w.Evaluate),
	)
	return NewSearch("LinearMinimax", m)
}

func (s *Search) Decide(ctx context.Context, b game.Board, answer *Answer) {
	if !s.mu.TryLock() {
		log.Warn().Str("agent", s.name).Msg("previous search still running, skipping turn")
		return
	}
	defer s.mu.Unlock()

	result, metric := s.engine.Search(ctx, b, answer.Set)
	if result.Move != game.NoMove {
		answer.Set(result.Move)
	}
	answer.SetMetric(metric)

	log.Debug().
		Str("agent", s.name).
		Int("move", result.Move).
		Float64("value", result.Value).
		Bool("complete", result.Complete).
		Int("depth", metric.Depth).
		Int("nodes", metric.Nodes).
		Int("memoHits", metric.MemoHits).
		Int("episodes", metric.Episodes).
		Int("treeSize", metric.TreeSize).
		Msg("search finished")

	if m, ok := s.engine.(*searcher.MCTS); ok {
		if e := log.Debug(); e.Enabled() {
			e.Str("agent", s.name).Interface("children", m.Stats()).Msg("root statistics")
		}
	}
}

func (s *Search) Name() string {
	return s.name
}

// Benchmark is a weak shallow minimax used as a baseline opponent.
type Benchmark struct {
	minimax *searcher.Minimax
	epsilon float64
	rng     *rand.Rand
	mu      sync.Mutex
}

// NewBenchmark searches depth plies with a null heuristic, or a uniform random
// one in [-0.5, 0.5] when random is set. With probability epsilon it plays a
// random legal move instead.
func NewBenchmark(depth int, random bool, epsilon float64, seed uint64) *Benchmark {
	rng := rand.New(rand.NewSource(seed))
	var heuristic game.Evaluate = game.EvaluateNull
	if random {
		heuristic = game.EvaluateRandom(rng, 0.5)
	}
	return &Benchmark{
		minimax: searcher.NewMinimax(searcher.WithDepth(depth), searcher.WithHeuristic(heuristic)),
		epsilon: epsilon,
		rng:     rng,
	}
}

func (a *Benchmark) Decide(ctx context.Context, b game.Board, answer *Answer) {
	if b.IsTerminal() {
		return
	}
	if !a.mu.TryLock() {
		log.Warn().Str("agent", a.Name()).Msg("previous search still running, skipping turn")
		return
	}
	defer a.mu.Unlock()

	if a.epsilon > 0 && a.rng.Float64() < a.epsilon {
		moves := b.LegalMoves()
		answer.Set(moves[a.rng.Intn(len(moves))])
		return
	}
	result, metric := a.minimax.Search(ctx, b, answer.Set)
	if result.Move != game.NoMove {
		answer.Set(result.Move)
	}
	answer.SetMetric(metric)
}

func (a *Benchmark) Name() string {
	return "Benchmark"
}

// Linear plays greedily on a learnt value function.
type Linear struct {
	weights *learn.Weights
}

func NewLinear(w *learn.Weights) *Linear {
	return &Linear{weights: w}
}

func (a *Linear) Decide(_ context.Context, b game.Board, answer *Answer) {
	if move := a.weights.Greedy(b); move != game.NoMove {
		answer.Set(move)
	}
}

func (a *Linear) Name() string {
	return "Linear"
}
