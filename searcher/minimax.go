package searcher

import (
	"context"
	"math"

	"connect4/experiments/metrics"
	"connect4/game"
)

// Hyperparameters for minimax

const MaxScore = 256.0 // Bound on every score, real or sentinel

const DefaultDepth = 12

const Discount = 0.999 // Per-ply decay, prefers faster wins

const MemoThreshold = 0.95 // Less than Discount^42

const ThreatWeight = 0.001

// The context is polled once per this many visited positions.
const checkInterval = 1 << 10

type MinimaxOption func(m *Minimax)

type Minimax struct {
	depth     int
	discount  float64
	threshold float64
	evaluate  game.Evaluate
	memo      Memo
	pruning   bool
	deepening bool
	metrics   metrics.Collector
}

// Result is the outcome of a root search.
type Result struct {
	Move     int
	Value    float64
	Depth    int  // Deepest iteration whose root loop completed
	Complete bool // False when the context ended the search
}

func WithDepth(depth int) MinimaxOption {
	return func(m *Minimax) {
		if depth > 0 {
			m.depth = depth
		}
	}
}

func WithDiscount(discount float64) MinimaxOption {
	return func(m *Minimax) {
		if discount > 0 && discount <= 1 {
			m.discount = discount
		}
	}
}

func WithHeuristic(evaluate game.Evaluate) MinimaxOption {
	return func(m *Minimax) {
		if evaluate != nil {
			m.evaluate = evaluate
		}
	}
}

func WithMemo(memo Memo) MinimaxOption {
	return func(m *Minimax) {
		m.memo = memo
	}
}

// WithMemoThreshold sets the magnitude a value must exceed to be memoized.
func WithMemoThreshold(threshold float64) MinimaxOption {
	return func(m *Minimax) {
		m.threshold = threshold
	}
}

func WithoutMemo() MinimaxOption {
	return func(m *Minimax) {
		m.memo = nil
	}
}

func WithoutPruning() MinimaxOption {
	return func(m *Minimax) {
		m.pruning = false
	}
}

// WithIterativeDeepening repeats the search one ply deeper until the value is
// decided, time runs out or the board would be full.
func WithIterativeDeepening() MinimaxOption {
	return func(m *Minimax) {
		m.deepening = true
	}
}

func WithMinimaxMetrics() MinimaxOption {
	return func(m *Minimax) {
		m.metrics = metrics.NewCollector()
	}
}

func NewMinimax(options ...MinimaxOption) *Minimax {
	m := &Minimax{ // Default values
		depth:     DefaultDepth,
		discount:  Discount,
		threshold: MemoThreshold,
		evaluate:  game.EvaluateThreats(ThreatWeight),
		memo:      NewMapMemo(),
		pruning:   true,
		metrics:   metrics.NewDummyCollector(),
	}
	for _, option := range options {
		option(m)
	}
	return m
}

// Depth returns the first search depth.
func (m *Minimax) Depth() int {
	return m.depth
}

// MemoLen returns the number of memoized positions.
func (m *Minimax) MemoLen() int {
	if m.memo == nil {
		return 0
	}
	return m.memo.Len()
}

// Search looks for the best move on b until the search completes or ctx is
// done. report, if not nil, receives every improvement of the best move so
// an interrupted search still leaves an answer behind.
func (m *Minimax) Search(ctx context.Context, b game.Board, report func(move int)) (Result, metrics.SearchMetric) {
	m.metrics.Start()
	s := &search{Minimax: m, ctx: ctx}

	result := Result{Move: game.NoMove}
	if b.IsTerminal() {
		return result, m.metrics.Complete()
	}

	maxDepth := game.Cells - b.Count()
	for depth := m.depth; ; depth++ {
		first := depth == m.depth
		notify := report
		if !first {
			// A partial deeper iteration must not override a completed one
			notify = nil
		}

		move, value, complete := s.root(b, depth, notify)
		if complete || (first && move != game.NoMove) {
			result.Move, result.Value = move, value
		}
		if !complete {
			break
		}

		result.Depth, result.Complete = depth, true
		m.metrics.SetDepth(depth)
		if !first && report != nil {
			report(move)
		}
		if !m.deepening || math.Abs(value) >= m.threshold || depth >= maxDepth {
			break
		}
	}

	s.flush()
	return result, m.metrics.Complete()
}

// Value returns the root value of b, or 0 when b is terminal.
func (m *Minimax) Value(ctx context.Context, b game.Board) float64 {
	result, _ := m.Search(ctx, b, nil)
	return result.Value
}

// Next returns the move a full search picks, which lets a shallow minimax act
// as a rollout policy.
func (m *Minimax) Next(b game.Board) int {
	result, _ := m.Search(context.Background(), b, nil)
	return result.Move
}

// search holds the state of one root search.
type search struct {
	*Minimax
	ctx     context.Context
	stopped bool
	nodes   int
	hits    int
	prunes  int
}

func (s *search) flush() {
	s.metrics.AddNodes(s.nodes)
	s.metrics.AddMemoHits(s.hits)
	s.metrics.AddPrunes(s.prunes)
	s.nodes, s.hits, s.prunes = 0, 0, 0
}

func (s *search) expired() bool {
	if !s.stopped && s.ctx.Err() != nil {
		s.stopped = true
	}
	return s.stopped
}

func sentinel(turn int) float64 {
	return -MaxScore + float64(turn)*2*MaxScore
}

// root runs the top level loop and returns the best move found. complete is
// false when the context ended the loop before every sibling was examined.
func (s *search) root(b game.Board, depth int, report func(int)) (int, float64, bool) {
	depth = max(depth, 1)
	turn := b.Turn()
	alpha, beta := -MaxScore, MaxScore
	best := sentinel(turn)
	bestMove := game.NoMove

	for i, col := range b.LegalMoves() {
		if i > 0 && s.expired() {
			return bestMove, best, false
		}

		v, ok := s.minimax(b.Play(col), depth-1, alpha/s.discount, beta/s.discount)
		if !ok {
			return bestMove, best, false
		}
		v *= s.discount

		if turn == game.X && v > best {
			best, bestMove = v, col
			alpha = max(alpha, best)
			if report != nil {
				report(col)
			}
		} else if turn == game.O && v < best {
			best, bestMove = v, col
			beta = min(beta, best)
			if report != nil {
				report(col)
			}
		}

		if s.pruning && alpha >= beta {
			s.prunes++
			break
		}
	}
	return bestMove, best, true
}

// minimax returns the value of b searched depth plies deep. Child values are
// discounted on the way up, so the window is widened by the discount on the
// way down. ok is false when the search was interrupted and the value must
// be discarded.
func (s *search) minimax(b game.Board, depth int, alpha, beta float64) (float64, bool) {
	s.nodes++
	if s.nodes%checkInterval == 0 {
		s.expired()
	}
	if s.stopped {
		return 0, false
	}

	if s.memo != nil {
		if v, ok := s.memo.Get(b); ok {
			s.hits++
			return v, true
		}
	}

	turn := b.Turn()
	// The previous mover won: +1 when that was the first player
	if b.IsWon() {
		return float64(turn<<1) - 1, true
	}
	if b.Count() == game.Cells {
		return 0, true
	}
	if depth <= 0 {
		return s.evaluate(b), true
	}

	windowLow, windowHigh := alpha, beta
	best := sentinel(turn)
	for moves, i := b.LegalMovesBitmask(), 0; moves != 0; moves, i = moves>>1, i+1 {
		if moves&1 == 0 {
			continue
		}

		v, ok := s.minimax(b.Play(game.MoveOrder[i]), depth-1, alpha/s.discount, beta/s.discount)
		if !ok {
			return 0, false
		}
		v *= s.discount

		if turn == game.X && v > best {
			best = v
			alpha = max(alpha, best)
		} else if turn == game.O && v < best {
			best = v
			beta = min(beta, best)
		}

		if s.pruning && alpha >= beta {
			s.prunes++
			break
		}
	}

	// Only exact values are stored; a value on or outside the window is a
	// bound that depends on the caller's alpha and beta.
	exact := !s.pruning || (windowLow < best && best < windowHigh)
	if s.memo != nil && exact && math.Abs(best) > s.threshold {
		s.memo.Put(b, best)
	}
	return best, true
}
