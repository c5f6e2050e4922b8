package searcher

import (
	"context"
	"math"
	"time"

	"connect4/experiments/metrics"
	"connect4/game"

	"golang.org/x/exp/rand"
	"lukechampine.com/frand"
)

type Option func(mcts *MCTS)

type MCTS struct {
	duration time.Duration
	episodes int
	cSquared float64
	seed     uint64
	policy   RolloutPolicy
	tree     tree
	metrics  metrics.Collector
}

// ChildStat summarises one root child.
type ChildStat struct {
	Move int
	N    int
	Q    float64
	UCT  float64
}

// WithDuration bounds every search by its own timer in addition to the
// caller's context.
func WithDuration(duration time.Duration) Option {
	return func(m *MCTS) {
		if duration > 0 {
			m.duration = duration
		}
	}
}

// WithEpisodes stops a search after a fixed number of iterations.
func WithEpisodes(episodes int) Option {
	return func(m *MCTS) {
		if episodes > 0 {
			m.episodes = episodes
		}
	}
}

// WithExploration sets the UCT exploration constant C.
func WithExploration(c float64) Option {
	return func(m *MCTS) {
		if c >= 0 {
			m.cSquared = c * c
		}
	}
}

func WithSeed(seed uint64) Option {
	return func(m *MCTS) {
		if seed != 0 {
			m.seed = seed
		}
	}
}

func WithRolloutPolicy(policy RolloutPolicy) Option {
	return func(m *MCTS) {
		if policy != nil {
			m.policy = policy
		}
	}
}

func WithMetrics() Option {
	return func(m *MCTS) {
		m.metrics = metrics.NewCollector()
	}
}

func NewMCTS(options ...Option) *MCTS {
	m := &MCTS{ // Default values
		cSquared: CSquared,
		metrics:  metrics.NewDummyCollector(),
	}
	for _, option := range options {
		option(m)
	}
	if m.seed == 0 {
		m.seed = frand.Uint64n(math.MaxUint64) + 1
	}
	m.tree.rng = rand.New(rand.NewSource(m.seed))
	if m.policy == nil {
		m.policy = NewUniformRollout(m.tree.rng)
	}
	m.Reset(game.Board{})
	return m
}

// Search grows a fresh tree from b until ctx is done or the episode limit is
// reached, and returns the most visited root move. report, if not nil,
// receives every change of the best move.
func (m *MCTS) Search(ctx context.Context, b game.Board, report func(move int)) (Result, metrics.SearchMetric) {
	if m.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.duration)
		defer cancel()
	}
	if ctx.Done() == nil && m.episodes == 0 {
		panic("Must specify search episodes or a deadline")
	}

	m.metrics.Start()
	m.Reset(b)
	done := ctx.Done()

	result := Result{Move: game.NoMove}
	if b.IsTerminal() {
		return result, m.metrics.Complete()
	}

	for episode := 0; m.episodes == 0 || episode < m.episodes; episode++ {
		if !m.iterate(done) {
			break
		}
		m.metrics.AddEpisode()

		if move := m.bestMove(); move != result.Move {
			result.Move = move
			if report != nil {
				report(move)
			}
		}
	}

	root := m.tree.root()
	if root.n > 0 {
		result.Value = root.q / float64(root.n)
	}
	result.Complete = m.episodes > 0 && ctx.Err() == nil
	m.metrics.SetTreeSize(m.tree.size())
	return result, m.metrics.Complete()
}

// Reset discards the tree and roots a new one at b. A new MCTS is rooted at
// the empty board.
func (m *MCTS) Reset(b game.Board) {
	m.tree.reset(b)
}

// Iterate runs one selection, expansion, rollout and backup cycle and returns
// the current best move.
func (m *MCTS) Iterate() int {
	m.iterate(nil)
	return m.bestMove()
}

// Visits returns the number of rollouts through the root.
func (m *MCTS) Visits() int {
	return m.tree.root().n
}

// Stats describes the expanded root children in canonical order.
func (m *MCTS) Stats() []ChildStat {
	root := m.tree.root()
	stats := make([]ChildStat, 0, root.expanded)
	for i, c := range root.children {
		if c == 0 {
			continue
		}
		child := &m.tree.nodes[c]
		stat := ChildStat{Move: game.MoveOrder[i], N: child.n, Q: child.q}
		if root.n > 0 {
			stat.UCT = newUCT(m.cSquared, float64(root.n)).evaluate(child.q, float64(child.n), sign(child.board))
		}
		stats = append(stats, stat)
	}
	return stats
}

// iterate runs one cycle unless done is closed or the root is terminal. A nil
// done never stops it.
func (m *MCTS) iterate(done <-chan struct{}) bool {
	if stopped(done) || m.tree.root().terminal() {
		return false
	}
	_, ok := m.traverse(0, done)
	return ok
}

// bestMove returns the root move with the most visits, the first one in
// canonical order on ties.
func (m *MCTS) bestMove() int {
	root := m.tree.root()
	best, bestN := game.NoMove, 0
	for i, c := range root.children {
		if c == 0 {
			continue
		}
		if n := m.tree.nodes[c].n; n > bestN {
			best, bestN = game.MoveOrder[i], n
		}
	}
	return best
}

func stopped(done <-chan struct{}) bool {
	select {
	case <-done:
		return true
	default:
		return false
	}
}

// traverse descends from the node at idx and backs the rollout reward up on
// the way out. ok is false when the search was interrupted, in which case no
// statistics were changed.
func (m *MCTS) traverse(idx int32, done <-chan struct{}) (float64, bool) {
	nd := &m.tree.nodes[idx]

	var reward float64
	switch {
	case !nd.fullyExplored():
		r, ok := m.expand(idx, done)
		if !ok {
			return 0, false
		}
		reward = r
	case nd.expanded == 0: // Terminal node
		reward = nd.board.Reward()
	default:
		r, ok := m.traverse(m.bestUCTChild(idx), done)
		if !ok {
			return 0, false
		}
		reward = r
	}

	nd = &m.tree.nodes[idx]
	nd.q += reward
	nd.n++
	return reward, true
}

// expand rolls out the next queued move of the node at idx and adds the child
// once the rollout has finished.
func (m *MCTS) expand(idx int32, done <-chan struct{}) (float64, bool) {
	nd := &m.tree.nodes[idx]
	col := int(nd.unvisited[nd.head])
	b := nd.board.Play(col)

	reward, ok := m.rollout(b, done)
	if !ok {
		return 0, false
	}

	child := m.tree.add(b, true)
	nd = &m.tree.nodes[idx]
	nd.head++
	nd.children[game.OrderIndex(col)] = child
	nd.expanded++

	c := &m.tree.nodes[child]
	c.q += reward
	c.n++
	return reward, true
}

func (m *MCTS) rollout(b game.Board, done <-chan struct{}) (float64, bool) {
	for !b.IsTerminal() {
		if stopped(done) {
			return 0, false
		}
		b = b.Play(m.policy.Next(b))
	}
	return b.Reward(), true
}

func (m *MCTS) bestUCTChild(idx int32) int32 {
	nd := &m.tree.nodes[idx]
	policy := newUCT(m.cSquared, float64(nd.n))

	best, bestScore := int32(0), math.Inf(-1)
	for _, c := range nd.children {
		if c == 0 {
			continue
		}
		child := &m.tree.nodes[c]
		if score := policy.evaluate(child.q, float64(child.n), sign(child.board)); score > bestScore {
			best, bestScore = c, score
		}
	}
	return best
}

// sign is +1 when the first player moved into b.
func sign(b game.Board) float64 {
	return float64(2*b.Turn() - 1)
}
